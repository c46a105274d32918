package routing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTableStale(t *testing.T) {
	fresh := Table{
		TTL:       time.Minute,
		FetchedAt: time.Now(),
		Routers:   []string{"a:7687"},
	}
	assert.False(t, fresh.Stale())

	expired := fresh
	expired.FetchedAt = time.Now().Add(-2 * time.Minute)
	assert.True(t, expired.Stale())

	noRouters := Table{TTL: time.Minute, FetchedAt: time.Now()}
	assert.True(t, noRouters.Stale())
}

func TestTableAddressesForFallsBackToWriter(t *testing.T) {
	table := Table{Writers: []string{"w1:7687"}}
	assert.Equal(t, []string{"w1:7687"}, table.addressesFor(RoleRead))

	table.Readers = []string{"r1:7687"}
	assert.Equal(t, []string{"r1:7687"}, table.addressesFor(RoleRead))
}

func TestRoleFromString(t *testing.T) {
	for _, s := range []string{"READ", "WRITE", "ROUTE"} {
		_, ok := roleFromString(s)
		assert.True(t, ok, s)
	}
	_, ok := roleFromString("bogus")
	assert.False(t, ok)
}

func TestMemCachePutGetInvalidate(t *testing.T) {
	c := NewMemCache()
	_, ok := c.Get("neo4j")
	assert.False(t, ok)

	c.Put("neo4j", Table{Database: "neo4j", Routers: []string{"a:7687"}})
	got, ok := c.Get("neo4j")
	assert.True(t, ok)
	assert.Equal(t, "neo4j", got.Database)

	c.Invalidate("neo4j")
	_, ok = c.Get("neo4j")
	assert.False(t, ok)
}
