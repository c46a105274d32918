package neobolt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-graphdb/neobolt/session"
	"github.com/go-graphdb/neobolt/uri"
)

func TestNewDriverDirectURIIsNotRoutingAware(t *testing.T) {
	d, err := NewDriver("bolt://localhost:7687", uri.NoAuth(), Config{})
	require.NoError(t, err)
	assert.Nil(t, d.routing)
	assert.Equal(t, "localhost:7687", d.target.Authority())
}

func TestNewDriverNeo4jURIIsRoutingAware(t *testing.T) {
	d, err := NewDriver("neo4j://localhost:7687", uri.NoAuth(), Config{})
	require.NoError(t, err)
	assert.NotNil(t, d.routing)
}

func TestNewDriverRejectsMalformedURI(t *testing.T) {
	_, err := NewDriver("://nope", uri.NoAuth(), Config{})
	assert.Error(t, err)
}

func TestConfigWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "neobolt/1.0", cfg.UserAgent)
	assert.NotZero(t, cfg.AcquireConnectionTimeout)
	assert.Equal(t, 100, cfg.MaxPoolSize)
	assert.NotZero(t, cfg.LivenessCheckTimeout)
}

func TestConfigWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{UserAgent: "myapp/2.0", MaxPoolSize: 5}.withDefaults()
	assert.Equal(t, "myapp/2.0", cfg.UserAgent)
	assert.Equal(t, 5, cfg.MaxPoolSize)
}

func TestNewSessionWiresDriverRetryPolicyIntoSession(t *testing.T) {
	d, err := NewDriver("neo4j://localhost:7687", uri.NoAuth(), Config{
		RetryInitialDelay: 0,
		RetryMaxDuration:  0,
	})
	require.NoError(t, err)

	s := d.NewSession(session.Config{Database: "neo4j"})
	assert.NotNil(t, s.inner)
	// a zero-valued driver policy merges to itself: every field stays zero,
	// left for the session's withDefaults to fill with its static defaults.
	merged := s.driverPolicy.Merge(s.driverPolicy)
	assert.Equal(t, s.driverPolicy, merged)
}
