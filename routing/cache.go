package routing

import (
	"encoding/json"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Cache is the pluggable persistence interface spec §4.4 names:
// `{get(key)→table|null, put(key,table,ttl)}`, so cross-process sessions
// can warm a routing table instead of every process fetching its own.
type Cache interface {
	Get(key string) (Table, bool)
	Put(key string, table Table)
}

// MemCache is the default in-process cache: a mutex-guarded map, adequate
// for a single driver instance (spec §4.4 doesn't require persistence,
// only permits it).
type MemCache struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewMemCache builds an empty in-process routing table cache.
func NewMemCache() *MemCache {
	return &MemCache{tables: make(map[string]Table)}
}

func (c *MemCache) Get(key string) (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[key]
	return t, ok
}

func (c *MemCache) Put(key string, table Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[key] = table
}

// Invalidate drops a table, forcing the next lookup to miss and refresh
// (spec §4.4 failure policy: "on total exhaustion, invalidate the routing
// table and refresh").
func (c *MemCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, key)
}

// BadgerCache persists routing tables in an embedded badger/v4 store, so a
// fleet of short-lived processes sharing one data directory can warm the
// cache without every process round-tripping a ROUTE on startup. Grounded
// on straga-Mimir_lite/nornicdb's use of dgraph-io/badger/v4 as an
// embedded KV store, repurposed here as a routing-table cache rather than
// nornicdb's primary graph storage engine.
type BadgerCache struct {
	db *badger.DB
}

// OpenBadgerCache opens (or creates) a badger store at dir for routing
// table persistence.
func OpenBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Close() error { return c.db.Close() }

type badgerTable struct {
	Database  string
	TTLMillis int64
	FetchedAt int64
	Readers   []string
	Writers   []string
	Routers   []string
}

func (c *BadgerCache) Get(key string) (Table, bool) {
	var bt badgerTable
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &bt)
		})
	})
	if err != nil {
		return Table{}, false
	}
	return Table{
		Database:  bt.Database,
		TTL:       time.Duration(bt.TTLMillis) * time.Millisecond,
		FetchedAt: time.UnixMilli(bt.FetchedAt),
		Readers:   bt.Readers,
		Writers:   bt.Writers,
		Routers:   bt.Routers,
	}, true
}

func (c *BadgerCache) Put(key string, table Table) {
	bt := badgerTable{
		Database:  table.Database,
		TTLMillis: table.TTL.Milliseconds(),
		FetchedAt: table.FetchedAt.UnixMilli(),
		Readers:   table.Readers,
		Writers:   table.Writers,
		Routers:   table.Routers,
	}
	buf, err := json.Marshal(bt)
	if err != nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf)
	})
}
