package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	commonspool "github.com/jolestar/go-commons-pool/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/internal/driverlog"
	"github.com/go-graphdb/neobolt/neoerr"
	"github.com/go-graphdb/neobolt/uri"
)

// Config configures a Manager. It mirrors spec §4.3's pool knobs:
// max-pool-size (the bounded semaphore), acquire-connection-timeout, and
// liveness-check-timeout.
type Config struct {
	MaxPoolSize          int
	MaxIdle              int
	AcquireTimeout       time.Duration
	LivenessCheckTimeout time.Duration
	DialOptions          bolt.Options
	Registerer           prometheus.Registerer
}

func (c Config) withDefaults() Config {
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 100
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = c.MaxPoolSize
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 60 * time.Second
	}
	if c.LivenessCheckTimeout <= 0 {
		c.LivenessCheckTimeout = 60 * time.Second
	}
	return c
}

// PooledConn is a borrowed connection tied to the Key of the pool it came
// from, so Release can find its way home without re-deriving a fingerprint.
type PooledConn struct {
	*bolt.Conn
	key Key
}

type entry struct {
	authority  string
	objectPool *commonspool.ObjectPool
	factory    *connFactory
}

// Manager owns one per-authority ObjectPool per spec §4.3, keyed by (host,
// port, user-agent, auth-fingerprint). Grounded on bolt_pool_factory.go's
// one-pool-per-connection-string shape, generalized to a real bounded
// semaphore via github.com/jolestar/go-commons-pool/v2 instead of the
// teacher's unbounded ad-hoc dialing.
type Manager struct {
	mu      sync.Mutex
	pools   map[Key]*entry
	cfg     Config
	metrics *metrics
	log     *driverlog.Logger
}

// NewManager creates a pool Manager. Pools for individual authorities are
// created lazily, on first Acquire.
func NewManager(cfg Config, log *driverlog.Logger) *Manager {
	if log == nil {
		log = driverlog.NewNop()
	}
	return &Manager{
		pools:   make(map[Key]*entry),
		cfg:     cfg.withDefaults(),
		metrics: newMetrics(cfg.Registerer),
		log:     log,
	}
}

func (m *Manager) entryFor(key Key, target uri.ParsedURI, auth uri.AuthToken, routingContext map[string]interface{}) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.pools[key]; ok {
		return e
	}

	factory := &connFactory{
		target:          target,
		auth:            auth,
		options:         m.cfg.DialOptions,
		routingContext:  routingContext,
		livenessTimeout: m.cfg.LivenessCheckTimeout,
		log:             m.log,
	}
	poolConfig := commonspool.NewDefaultPoolConfig()
	poolConfig.MaxTotal = m.cfg.MaxPoolSize
	poolConfig.MaxIdle = m.cfg.MaxIdle
	poolConfig.TestOnBorrow = true
	poolConfig.TestOnReturn = true
	poolConfig.BlockWhenExhausted = true

	e := &entry{
		authority:  target.Authority(),
		objectPool: commonspool.NewObjectPool(context.Background(), factory, poolConfig),
		factory:    factory,
	}
	m.pools[key] = e
	return e
}

// Acquire borrows a connection for the given target/auth/access-mode,
// blocking up to acquire-connection-timeout for a free permit (spec §4.3).
// The returned connection is always READY and stream-free: commons-pool's
// TestOnBorrow/ActivateObject hooks enforce the liveness check and eager
// consumption before Acquire ever returns it to a caller.
func (m *Manager) Acquire(ctx context.Context, target uri.ParsedURI, auth uri.AuthToken, mode bolt.AccessMode, database string, routingContext map[string]interface{}) (*PooledConn, error) {
	key := NewKey(target, m.cfg.DialOptions.UserAgent, auth)
	e := m.entryFor(key, target, auth, routingContext)

	ctx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	start := time.Now()
	obj, err := e.objectPool.BorrowObject(ctx)
	m.metrics.acquireWait.WithLabelValues(e.authority).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, neoerr.Classify(neoerr.KindTimeout, "acquiring connection to %s: timed out: %v", e.authority, err)
		}
		return nil, neoerr.Classify(neoerr.KindIO, "acquiring connection to %s: %v", e.authority, err)
	}

	c := obj.(*bolt.Conn)
	c.SetAccessMode(mode)
	c.SetCurrentDatabase(database)
	m.reportOccupancy(e)
	return &PooledConn{Conn: c, key: key}, nil
}

// Release returns a connection to its pool. A DEFUNCT connection is
// invalidated instead of recycled (spec §3: "a DEFUNCT connection is never
// reused"), shrinking the pool rather than poisoning it; a later Acquire
// dials a fresh replacement on demand.
func (m *Manager) Release(ctx context.Context, pc *PooledConn) error {
	m.mu.Lock()
	e, ok := m.pools[pc.key]
	m.mu.Unlock()
	if !ok {
		return pc.Close()
	}

	var err error
	if pc.Defunct() {
		err = e.objectPool.InvalidateObject(ctx, pc.Conn)
	} else {
		err = e.objectPool.ReturnObject(ctx, pc.Conn)
	}
	m.reportOccupancy(e)
	if err != nil {
		return neoerr.Classify(neoerr.KindIO, "releasing connection to %s: %v", e.authority, err)
	}
	return nil
}

func (m *Manager) reportOccupancy(e *entry) {
	m.metrics.inUse.WithLabelValues(e.authority).Set(float64(e.objectPool.GetNumActive()))
	m.metrics.idle.WithLabelValues(e.authority).Set(float64(e.objectPool.GetNumIdle()))
}

// Close drains and closes every per-authority pool, calling DestroyObject
// (GOODBYE where possible) on every connection it holds. Errors closing
// individual pools do not stop the others from being closed; all of them
// are aggregated and returned together.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var closeErr error
	for key, e := range m.pools {
		e.objectPool.Close(ctx)
		if err := e.factory.drainDestroyErrors(); err != nil {
			closeErr = multierr.Append(closeErr, neoerr.Classify(neoerr.KindIO, "closing pool for %s: %v", e.authority, err))
		}
		delete(m.pools, key)
	}
	return closeErr
}

// Stats reports the occupancy of every pool currently open, keyed by
// authority string — useful for diagnostics and tests.
func (m *Manager) Stats() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.pools))
	for _, e := range m.pools {
		out[e.authority] = fmt.Sprintf("active=%d idle=%d", e.objectPool.GetNumActive(), e.objectPool.GetNumIdle())
	}
	return out
}
