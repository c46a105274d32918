package session

import (
	"context"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/cursor"
	"github.com/go-graphdb/neobolt/neoerr"
	"github.com/go-graphdb/neobolt/pool"
)

// TxConfig carries the per-transaction extras spec §4.6 lists alongside
// RUN/BEGIN: timeout and application metadata.
type TxConfig struct {
	TimeoutMillis int64
	Metadata      map[string]interface{}
}

// Transaction is an explicit transaction: BEGIN was already sent, and
// every Run within it reuses the same held connection (spec §4.6:
// "All RUNs within a tx receive the same connection"). Grounded on tx.go's
// Commit/Rollback shape, generalized to hold arbitrary RUNs rather than
// the teacher's statement-level Tx used only to bookend an existing
// *boltStmt.
type Transaction struct {
	session *Session
	pc      *pool.PooledConn
	addr    string
	live    bool
}

// BeginTransaction opens an explicit transaction of the session's access
// mode (spec §4.6 "Explicit transaction"). The caller MUST call Commit or
// Rollback; Close rolls back if the transaction is still live, for use in
// a defer.
func (s *Session) BeginTransaction(ctx context.Context, cfg TxConfig) (*Transaction, error) {
	return s.beginTransaction(ctx, s.mode, cfg)
}

func (s *Session) beginTransaction(ctx context.Context, mode bolt.AccessMode, cfg TxConfig) (*Transaction, error) {
	pc, addr, err := s.acquire(ctx, mode)
	if err != nil {
		return nil, err
	}
	extras := s.runExtras(txConfig{timeoutMillis: cfg.TimeoutMillis, metadata: cfg.Metadata})
	if err := pc.Begin(extras); err != nil {
		s.release(ctx, pc, addr, err)
		return nil, err
	}
	return &Transaction{session: s, pc: pc, addr: addr, live: true}, nil
}

// Run executes stmt inside the transaction, reusing its held connection.
func (t *Transaction) Run(statement string, params map[string]interface{}) (*cursor.Cursor, error) {
	if !t.live {
		return nil, neoerr.Classify(neoerr.KindProtocol, "transaction: Run called after Commit/Rollback")
	}
	success, err := t.pc.Run(statement, params, nil)
	if err != nil {
		t.live = false
		return nil, err
	}
	// A cursor inside an explicit transaction must not release the
	// connection back to the pool on exhaustion (spec §4.6: the connection
	// stays held until Commit/Rollback), so release is a no-op here.
	return cursor.New(t.pc.Conn, t.session.fetchSize, success.FieldNames(), func(error) {}), nil
}

// Commit commits the transaction and releases its connection (spec §4.6).
func (t *Transaction) Commit(ctx context.Context) error {
	if !t.live {
		return neoerr.Classify(neoerr.KindProtocol, "transaction: Commit called on an already-closed transaction")
	}
	t.live = false
	success, err := t.pc.Commit()
	t.session.release(ctx, t.pc, t.addr, err)
	if err != nil {
		return err
	}
	t.session.captureBookmark(success.Bookmark())
	return nil
}

// Rollback aborts the transaction and releases its connection.
func (t *Transaction) Rollback(ctx context.Context) error {
	if !t.live {
		return nil
	}
	t.live = false
	err := t.pc.Rollback()
	t.session.release(ctx, t.pc, t.addr, err)
	return err
}

// Close rolls back the transaction if it is still live (spec §4.6:
// "releasing the connection before commit/rollback is a programming error
// that causes rollback() to be issued implicitly when the tx object is
// destroyed while live"). Go has no deterministic destructor, so callers
// achieve that guarantee by deferring Close immediately after
// BeginTransaction succeeds.
func (t *Transaction) Close(ctx context.Context) error {
	if !t.live {
		return nil
	}
	return t.Rollback(ctx)
}
