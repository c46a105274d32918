package pool

import (
	"context"
	"sync"
	"time"

	commonspool "github.com/jolestar/go-commons-pool/v2"
	"go.uber.org/multierr"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/internal/driverlog"
	"github.com/go-graphdb/neobolt/neoerr"
	"github.com/go-graphdb/neobolt/uri"
)

// connFactory adapts bolt.Dial/Hello to go-commons-pool/v2's
// PooledObjectFactory, grounded on bolt_pool_factory.go's getPoolFunc: the
// teacher's factory only dialed and returned a raw *net.Conn wrapper with no
// validate/activate/passivate hooks, so eager-consumption and liveness
// checking had to be bolted onto call sites by hand. Here they live once,
// in the factory, and commons-pool invokes them on every borrow/return.
type connFactory struct {
	target          uri.ParsedURI
	auth            uri.AuthToken
	options         bolt.Options
	routingContext  map[string]interface{}
	livenessTimeout time.Duration
	log             *driverlog.Logger

	mu          sync.Mutex
	destroyErrs []error
}

func (f *connFactory) MakeObject(ctx context.Context) (*commonspool.PooledObject, error) {
	c, err := bolt.Dial(f.target, f.options)
	if err != nil {
		return nil, err
	}
	if err := c.Hello(f.auth, f.routingContext); err != nil {
		return nil, err
	}
	return commonspool.NewPooledObject(c), nil
}

func (f *connFactory) DestroyObject(ctx context.Context, pooled *commonspool.PooledObject) error {
	c := pooled.Object.(*bolt.Conn)
	var err error
	if c.State() != bolt.Defunct && c.State() == bolt.Ready {
		err = c.Goodbye()
	} else {
		err = c.Close()
	}
	if err != nil {
		f.recordDestroyError(err)
	}
	return err
}

// recordDestroyError accumulates a connection teardown failure so
// Manager.Close can surface every close/shutdown error across a pool's
// connections together, rather than letting individual DestroyObject
// failures vanish into the pool library's own best-effort shutdown.
func (f *connFactory) recordDestroyError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyErrs = append(f.destroyErrs, err)
}

// drainDestroyErrors returns every accumulated teardown error combined via
// multierr, and resets the accumulator.
func (f *connFactory) drainDestroyErrors() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := multierr.Combine(f.destroyErrs...)
	f.destroyErrs = nil
	return err
}

// ValidateObject implements the liveness check (spec §4.3: "if idle longer
// than the liveness-check-timeout, RESET before reuse") and refuses a
// DEFUNCT connection outright (spec §3: "a DEFUNCT connection is never
// reused").
func (f *connFactory) ValidateObject(ctx context.Context, pooled *commonspool.PooledObject) bool {
	c := pooled.Object.(*bolt.Conn)
	if c.Defunct() {
		return false
	}
	if f.livenessTimeout > 0 && time.Since(c.IdleSince()) >= f.livenessTimeout {
		if err := c.Reset(); err != nil {
			f.log.Trace("pool: liveness RESET failed, evicting connection", "error", err)
			return false
		}
	}
	return true
}

// ActivateObject implements the eager-consume-before-reuse invariant (spec
// §4.3): a connection handed back with an outstanding stream has it fully
// discarded before the caller ever sees it.
func (f *connFactory) ActivateObject(ctx context.Context, pooled *commonspool.PooledObject) error {
	c := pooled.Object.(*bolt.Conn)
	if c.Defunct() {
		return neoerr.Classify(neoerr.KindIO, "pool: cannot activate a DEFUNCT connection")
	}
	if c.HasOpenStream() {
		if _, err := c.Discard(-1); err != nil {
			return err
		}
	}
	return nil
}

// PassivateObject runs when a connection is returned to the pool. Any
// explicit transaction left dangling is rolled back and the connection is
// RESET to READY, so every idle pooled connection is always READY.
func (f *connFactory) PassivateObject(ctx context.Context, pooled *commonspool.PooledObject) error {
	c := pooled.Object.(*bolt.Conn)
	if c.Defunct() {
		return neoerr.Classify(neoerr.KindIO, "pool: cannot passivate a DEFUNCT connection")
	}
	if c.HasOpenStream() {
		if _, err := c.Discard(-1); err != nil {
			return err
		}
	}
	if c.State() != bolt.Ready {
		return c.Reset()
	}
	return nil
}
