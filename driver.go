// Package neobolt is a Bolt client library for a graph database: it speaks
// the binary framed Bolt protocol over TCP (plain or TLS) and exposes a
// uniform session/transaction/result API on top of a pooled, routing-aware
// driver. Grounded on driver.go's Driver/OpenNeo facade, generalized from a
// single always-direct *sql.DB-compatible driver into the pooled,
// optionally-routed Driver spec §2's data flow describes: Session asks the
// Driver for a connection (via Pool/Routing) with a desired role, the
// connection runs BEGIN/RUN/PULL, and a Cursor is handed back to the
// caller.
package neobolt

import (
	"context"
	"time"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/cursor"
	"github.com/go-graphdb/neobolt/internal/driverlog"
	"github.com/go-graphdb/neobolt/pool"
	"github.com/go-graphdb/neobolt/routing"
	"github.com/go-graphdb/neobolt/session"
	"github.com/go-graphdb/neobolt/uri"

	"go.uber.org/zap"
)

// Config is the driver-wide configuration of spec §3 "Driver configuration".
type Config struct {
	UserAgent                string
	AcquireConnectionTimeout time.Duration
	MaxPoolSize              int
	LivenessCheckTimeout     time.Duration
	TLSPolicyOverride        *uri.TLSPolicy

	RetryMaxDuration  time.Duration
	RetryInitialDelay time.Duration
	RetryMultiplier   float64
	RetryJitter       float64

	// RoutingCache overrides the default in-process MemCache, e.g. with a
	// *routing.BadgerCache for cross-process warm starts.
	RoutingCache routing.Cache

	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "neobolt/1.0"
	}
	if c.AcquireConnectionTimeout <= 0 {
		c.AcquireConnectionTimeout = 60 * time.Second
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 100
	}
	if c.LivenessCheckTimeout <= 0 {
		c.LivenessCheckTimeout = 60 * time.Second
	}
	return c
}

// Driver is the top-level entry point: it owns the connection pool and
// (for neo4j:// targets) the routing driver, and mints Sessions.
type Driver struct {
	target  uri.ParsedURI
	auth    uri.AuthToken
	cfg     Config
	pool    *pool.Manager
	routing *routing.Driver
	log     *driverlog.Logger
}

// NewDriver parses connStr and builds a Driver. For a neo4j*// URI the
// driver is routing-aware; for a bolt*// URI every session talks directly
// to the parsed host:port.
func NewDriver(connStr string, auth uri.AuthToken, cfg Config) (*Driver, error) {
	target, err := uri.Parse(connStr)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	log := driverlog.NewNop()
	if cfg.Logger != nil {
		log = driverlog.New(cfg.Logger, driverlog.InfoLevel)
	}

	if cfg.TLSPolicyOverride != nil {
		target.TLS = *cfg.TLSPolicyOverride
	}

	dialOpts := bolt.Options{
		UserAgent:        cfg.UserAgent,
		DialTimeout:      cfg.AcquireConnectionTimeout,
		ReadWriteTimeout: cfg.AcquireConnectionTimeout,
		Log:              log,
	}

	poolManager := pool.NewManager(pool.Config{
		MaxPoolSize:          cfg.MaxPoolSize,
		AcquireTimeout:       cfg.AcquireConnectionTimeout,
		LivenessCheckTimeout: cfg.LivenessCheckTimeout,
		DialOptions:          dialOpts,
	}, log)

	d := &Driver{target: target, auth: auth, cfg: cfg, pool: poolManager, log: log}

	if target.IsRouted() {
		d.routing = routing.NewDriver(poolManager, cfg.RoutingCache, target, auth, log)
	}

	return d, nil
}

// NewSession opens a Session against database with the given access mode
// and fetch size (spec §3 "Session configuration" defaults: fetch-size
// 1000, access-mode WRITE).
func (d *Driver) NewSession(cfg session.Config) *Session {
	return &Session{
		inner: session.New(d.pool, d.routing, d.target, d.auth, cfg, d.log),
		driverPolicy: session.RetryPolicy{
			InitialDelay: d.cfg.RetryInitialDelay,
			MaxDelay:     d.cfg.RetryMaxDuration,
			Multiplier:   d.cfg.RetryMultiplier,
			Jitter:       d.cfg.RetryJitter,
			MaxDuration:  d.cfg.RetryMaxDuration,
		},
	}
}

// Session wraps session.Session at the package root, so application code
// imports only the top-level neobolt package for the common path.
type Session struct {
	inner        *session.Session
	driverPolicy session.RetryPolicy
}

// Run executes an auto-commit statement and returns a result cursor.
func (s *Session) Run(ctx context.Context, statement string, params map[string]interface{}) (*cursor.Cursor, error) {
	return s.inner.Run(ctx, statement, params)
}

// BeginTransaction opens an explicit transaction.
func (s *Session) BeginTransaction(ctx context.Context, cfg session.TxConfig) (*session.Transaction, error) {
	return s.inner.BeginTransaction(ctx, cfg)
}

// ReadTransaction runs fn inside a managed, auto-retried read transaction,
// filling any zero-valued policy field from the driver's own retry config.
func (s *Session) ReadTransaction(ctx context.Context, fn session.TxWork, policy session.RetryPolicy) (interface{}, error) {
	return s.inner.ReadTransaction(ctx, fn, s.driverPolicy.Merge(policy))
}

// WriteTransaction runs fn inside a managed, auto-retried write
// transaction, filling any zero-valued policy field from the driver's own
// retry config.
func (s *Session) WriteTransaction(ctx context.Context, fn session.TxWork, policy session.RetryPolicy) (interface{}, error) {
	return s.inner.WriteTransaction(ctx, fn, s.driverPolicy.Merge(policy))
}

// LastBookmarks returns the session's current causal-chaining bookmarks.
func (s *Session) LastBookmarks() []string { return s.inner.LastBookmarks() }

// Close releases the driver's pooled connections.
func (d *Driver) Close(ctx context.Context) error {
	return d.pool.Close(ctx)
}
