package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-graphdb/neobolt/uri"
)

func newTestDriver() *Driver {
	seed, _ := uri.Parse("neo4j://router.example.com:7687")
	return NewDriver(nil, nil, seed, uri.NoAuth(), nil)
}

func TestSelectRoundRobinsOverReaders(t *testing.T) {
	d := newTestDriver()
	table := Table{Readers: []string{"r1:7687", "r2:7687", "r3:7687"}}

	seen := map[string]int{}
	for i := 0; i < 6; i++ {
		addr, ok := d.pick("neo4j", table, RoleRead)
		assert.True(t, ok)
		seen[addr]++
	}
	assert.Equal(t, 2, seen["r1:7687"])
	assert.Equal(t, 2, seen["r2:7687"])
	assert.Equal(t, 2, seen["r3:7687"])
}

func TestSelectSkipsBadAddresses(t *testing.T) {
	d := newTestDriver()
	table := Table{Readers: []string{"r1:7687", "r2:7687"}}

	d.MarkBad("neo4j", "r1:7687")
	for i := 0; i < 4; i++ {
		addr, ok := d.pick("neo4j", table, RoleRead)
		assert.True(t, ok)
		assert.Equal(t, "r2:7687", addr)
	}
}

func TestSelectFailsWhenAllAddressesBad(t *testing.T) {
	d := newTestDriver()
	table := Table{Readers: []string{"r1:7687"}}
	d.MarkBad("neo4j", "r1:7687")

	_, ok := d.pick("neo4j", table, RoleRead)
	assert.False(t, ok)
}

func TestAddressToTargetPreservesSchemeAndTLS(t *testing.T) {
	seed, _ := uri.Parse("neo4j+s://router.example.com:7687")
	target, err := addressToTarget(seed, "follower.example.com:7688")
	assert.NoError(t, err)
	assert.Equal(t, "follower.example.com", target.Host)
	assert.Equal(t, 7688, target.Port)
	assert.Equal(t, seed.TLS, target.TLS)
}

func TestBucketServersClassifiesByRole(t *testing.T) {
	var table Table
	bucketServers(&table, []interface{}{
		map[string]interface{}{"role": "WRITE", "addresses": []interface{}{"w1:7687"}},
		map[string]interface{}{"role": "READ", "addresses": []interface{}{"r1:7687", "r2:7687"}},
		map[string]interface{}{"role": "ROUTE", "addresses": []interface{}{"w1:7687", "r1:7687"}},
	})
	assert.Equal(t, []string{"w1:7687"}, table.Writers)
	assert.Equal(t, []string{"r1:7687", "r2:7687"}, table.Readers)
	assert.Equal(t, []string{"w1:7687", "r1:7687"}, table.Routers)
}
