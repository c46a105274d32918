// Package session implements spec §4.6's Session: bookmarks, access-mode
// selection, auto-commit `run()`, explicit transactions, and (in retry.go)
// the managed-transaction retry runner of spec §4.7. Grounded on tx.go's
// Commit/Rollback shape and stmt.go's RUN-then-consume flow, generalized
// from the teacher's single-connection-per-driver model (no session
// abstraction at all — every *boltConn doubled as its own session) into a
// proper Session that acquires a fresh pooled connection per operation.
package session

import (
	"context"
	"sync"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/cursor"
	"github.com/go-graphdb/neobolt/internal/driverlog"
	"github.com/go-graphdb/neobolt/pool"
	"github.com/go-graphdb/neobolt/routing"
	"github.com/go-graphdb/neobolt/uri"
)

// Config configures a Session (spec §4.6: "Holds (driver-ref, database,
// access-mode, bookmarks[])").
type Config struct {
	Database   string
	AccessMode bolt.AccessMode
	Bookmarks  []string
	FetchSize  int64
}

// Session is a single-threaded conversation scoped to one database and
// access mode. Sessions are NOT THREAD SAFE (spec §5: "safe to call from
// multiple threads of execution provided that no single cursor/session is
// shared across them").
type Session struct {
	pool    *pool.Manager
	routing *routing.Driver // nil for a direct (single-server) driver
	target  uri.ParsedURI
	auth    uri.AuthToken

	database  string
	mode      bolt.AccessMode
	fetchSize int64

	mu        sync.Mutex
	bookmarks []string

	log *driverlog.Logger
}

// New builds a Session. routingDriver is nil for a direct bolt:// driver;
// non-nil for a routed neo4j:// driver.
func New(p *pool.Manager, routingDriver *routing.Driver, target uri.ParsedURI, auth uri.AuthToken, cfg Config, log *driverlog.Logger) *Session {
	if cfg.FetchSize == 0 {
		cfg.FetchSize = 1000
	}
	if log == nil {
		log = driverlog.NewNop()
	}
	return &Session{
		pool:      p,
		routing:   routingDriver,
		target:    target,
		auth:      auth,
		database:  cfg.Database,
		mode:      cfg.AccessMode,
		fetchSize: cfg.FetchSize,
		bookmarks: append([]string(nil), cfg.Bookmarks...),
		log:       log,
	}
}

// LastBookmarks returns the causal-chaining bookmarks captured from the
// most recently completed transaction or auto-commit run (spec §5
// "Ordering guarantees").
func (s *Session) LastBookmarks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bookmarks...)
}

func (s *Session) captureBookmark(bookmark string) {
	if bookmark == "" {
		return
	}
	s.mu.Lock()
	s.bookmarks = []string{bookmark}
	s.mu.Unlock()
}

// acquire obtains a pooled connection appropriate for mode, going through
// the routing driver's Select when one is configured.
func (s *Session) acquire(ctx context.Context, mode bolt.AccessMode) (*pool.PooledConn, string, error) {
	target := s.target
	addr := target.Authority()

	if s.routing != nil {
		role := routing.RoleWrite
		if mode == bolt.AccessModeRead {
			role = routing.RoleRead
		}
		selected, _, err := s.routing.Select(ctx, s.database, role)
		if err != nil {
			return nil, "", err
		}
		addr = selected
		target, err = routing.AddressToTarget(s.target, selected)
		if err != nil {
			return nil, "", err
		}
	}

	routingContext := make(map[string]interface{}, len(target.RoutingContext))
	for k, v := range target.RoutingContext {
		routingContext[k] = v
	}
	pc, err := s.pool.Acquire(ctx, target, s.auth, mode, s.database, routingContext)
	if err != nil {
		return nil, addr, err
	}
	return pc, addr, nil
}

// release hands a connection back to the pool, reporting cluster/leader
// errors to the routing driver's failure policy (spec §4.4).
func (s *Session) release(ctx context.Context, pc *pool.PooledConn, addr string, opErr error) {
	if s.routing != nil && opErr != nil && routing.ClassifyFailure(opErr) {
		s.routing.MarkBad(s.database, addr)
	}
	if err := s.pool.Release(ctx, pc); err != nil {
		s.log.Trace("session: releasing connection failed", "error", err)
	}
}

func (s *Session) runExtras(tx txConfig) map[string]interface{} {
	extra := map[string]interface{}{"mode": modeString(s.mode)}
	if s.database != "" {
		extra["db"] = s.database
	}
	if bms := s.LastBookmarks(); len(bms) > 0 {
		extra["bookmarks"] = bms
	}
	if tx.timeoutMillis > 0 {
		extra["tx_timeout"] = tx.timeoutMillis
	}
	if len(tx.metadata) > 0 {
		extra["tx_metadata"] = tx.metadata
	}
	return extra
}

func modeString(m bolt.AccessMode) string {
	if m == bolt.AccessModeRead {
		return "r"
	}
	return "w"
}

type txConfig struct {
	timeoutMillis int64
	metadata      map[string]interface{}
}

// Run executes stmt in auto-commit mode (spec §4.6: "acquire a connection
// of the session's access-mode; send RUN ...; return a cursor; on terminal
// metadata, capture the returned bookmark into the session").
func (s *Session) Run(ctx context.Context, statement string, params map[string]interface{}) (*cursor.Cursor, error) {
	pc, addr, err := s.acquire(ctx, s.mode)
	if err != nil {
		return nil, err
	}

	extras := s.runExtras(txConfig{})
	success, err := pc.Run(statement, params, extras)
	if err != nil {
		s.release(ctx, pc, addr, err)
		return nil, err
	}

	var c *cursor.Cursor
	released := false
	c = cursor.New(pc.Conn, s.fetchSize, success.FieldNames(), func(releaseErr error) {
		if released {
			return
		}
		released = true
		if releaseErr == nil {
			s.captureBookmark(c.Summary().Bookmark())
		}
		s.release(ctx, pc, addr, releaseErr)
	})
	return c, nil
}
