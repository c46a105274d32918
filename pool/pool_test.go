package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/go-graphdb/neobolt/uri"
)

func TestNewKeyStableForEqualCredentials(t *testing.T) {
	target := uri.ParsedURI{Host: "a.example.com", Port: 7687}
	auth := uri.BasicAuth("neo4j", "s3cret", "")

	k1 := NewKey(target, "neobolt/1.0", auth)
	k2 := NewKey(target, "neobolt/1.0", auth)
	assert.Equal(t, k1, k2)

	other := uri.BasicAuth("neo4j", "different", "")
	k3 := NewKey(target, "neobolt/1.0", other)
	assert.NotEqual(t, k1.AuthFingerprint, k3.AuthFingerprint)
}

func TestNewKeyDistinguishesAuthority(t *testing.T) {
	auth := uri.BasicAuth("neo4j", "s3cret", "")
	k1 := NewKey(uri.ParsedURI{Host: "a.example.com", Port: 7687}, "neobolt/1.0", auth)
	k2 := NewKey(uri.ParsedURI{Host: "b.example.com", Port: 7687}, "neobolt/1.0", auth)
	assert.NotEqual(t, k1, k2)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 100, cfg.MaxPoolSize)
	assert.Equal(t, 100, cfg.MaxIdle)
	assert.Equal(t, 60*time.Second, cfg.AcquireTimeout)
	assert.Equal(t, 60*time.Second, cfg.LivenessCheckTimeout)

	cfg = Config{MaxPoolSize: 10, AcquireTimeout: 5 * time.Second}.withDefaults()
	assert.Equal(t, 10, cfg.MaxPoolSize)
	assert.Equal(t, 10, cfg.MaxIdle)
	assert.Equal(t, 5*time.Second, cfg.AcquireTimeout)
}

func TestManagerStatsEmptyBeforeAcquire(t *testing.T) {
	m := NewManager(Config{}, nil)
	assert.Empty(t, m.Stats())
}
