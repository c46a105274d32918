package routing

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/internal/driverlog"
	"github.com/go-graphdb/neobolt/neoerr"
	"github.com/go-graphdb/neobolt/pool"
	"github.com/go-graphdb/neobolt/uri"
)

const legacyRoutingProcedure = "CALL dbms.routing.getRoutingTable($context)"

// dbState tracks the mutable, per-database-name bookkeeping a Driver needs
// between table generations: round-robin cursors per role and the set of
// addresses marked transiently bad for the current generation (spec §4.4
// failure policy).
type dbState struct {
	mu      sync.Mutex
	cursor  map[Role]int
	badAddr map[string]bool
}

func newDBState() *dbState {
	return &dbState{cursor: make(map[Role]int), badAddr: make(map[string]bool)}
}

// Driver is the routing driver of spec §4.4: it fetches, caches, and
// selects from per-database routing tables, grounded on routing.go's
// role-bucketing of cluster-overview rows and routing_driver.go's
// per-database pool-of-pools structure — generalized from that teacher's
// Raft-overview-only, single-implicit-database shape to the full
// ROUTE/getRoutingTable, multi-database, role-round-robin model spec
// §4.4 specifies.
type Driver struct {
	pool           *pool.Manager
	cache          Cache
	seed           uri.ParsedURI
	auth           uri.AuthToken
	routingContext map[string]interface{}
	log            *driverlog.Logger

	mu    sync.Mutex
	state map[string]*dbState
}

// NewDriver builds a routing driver over seed (the original neo4j:// URI,
// used only as the first router candidate before any table has been
// fetched) and the shared connection pool.
func NewDriver(p *pool.Manager, cache Cache, seed uri.ParsedURI, auth uri.AuthToken, log *driverlog.Logger) *Driver {
	if cache == nil {
		cache = NewMemCache()
	}
	if log == nil {
		log = driverlog.NewNop()
	}
	rc := make(map[string]interface{}, len(seed.RoutingContext))
	for k, v := range seed.RoutingContext {
		rc[k] = v
	}
	return &Driver{
		pool:           p,
		cache:          cache,
		seed:           seed,
		auth:           auth,
		routingContext: rc,
		log:            log,
		state:          make(map[string]*dbState),
	}
}

func (d *Driver) dbStateFor(database string) *dbState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.state[database]
	if !ok {
		s = newDBState()
		d.state[database] = s
	}
	return s
}

// cacheKey folds the database name into the cache key; "" means the
// server-selected default database.
func cacheKey(database string) string {
	if database == "" {
		return "<default>"
	}
	return database
}

// TableFor returns a fresh-enough routing table for database, fetching a
// new generation if the cached one is stale or missing (spec §4.4 "TTL").
func (d *Driver) TableFor(ctx context.Context, database string) (Table, error) {
	if t, ok := d.cache.Get(cacheKey(database)); ok && !t.Stale() {
		return t, nil
	}
	return d.Fetch(ctx, database)
}

// routerCandidates returns the addresses worth trying for a fetch: the
// previous generation's routers first (if any), falling back to the seed
// URI's own authority so the very first fetch has somewhere to start.
func (d *Driver) routerCandidates(database string) []string {
	if t, ok := d.cache.Get(cacheKey(database)); ok && len(t.Routers) > 0 {
		return t.Routers
	}
	return []string{d.seed.Authority()}
}

// Fetch forces a new routing table generation for database, trying each
// known router in turn until one succeeds (spec §4.4 "Fetch").
func (d *Driver) Fetch(ctx context.Context, database string) (Table, error) {
	var lastErr error
	for _, addr := range d.routerCandidates(database) {
		target, err := addressToTarget(d.seed, addr)
		if err != nil {
			lastErr = err
			continue
		}
		pc, err := d.pool.Acquire(ctx, target, d.auth, bolt.AccessModeWrite, "", d.routingContext)
		if err != nil {
			lastErr = err
			continue
		}
		table, err := d.fetchFrom(pc.Conn, database)
		releaseErr := d.pool.Release(ctx, pc)
		if err != nil {
			lastErr = err
			continue
		}
		if releaseErr != nil {
			d.log.Trace("routing: releasing router connection failed", "error", releaseErr)
		}
		d.cache.Put(cacheKey(database), table)
		// A new table generation starts with no address marked bad.
		st := d.dbStateFor(database)
		st.mu.Lock()
		st.badAddr = make(map[string]bool)
		st.mu.Unlock()
		return table, nil
	}
	return Table{}, neoerr.Classify(neoerr.KindCluster, "routing: no router could serve a table for database %q: %v", database, lastErr)
}

func (d *Driver) fetchFrom(c *bolt.Conn, database string) (Table, error) {
	if c.SupportsRouting() {
		success, err := c.Route(d.routingContext, nil, database)
		if err != nil {
			return Table{}, err
		}
		rt, ok := success.Metadata["rt"].(map[string]interface{})
		if !ok {
			return Table{}, neoerr.Classify(neoerr.KindProtocol, "routing: ROUTE response missing rt metadata")
		}
		return parseTable(database, rt)
	}
	return d.fetchLegacy(c, database)
}

// fetchLegacy runs the pre-v4.1 getRoutingTable procedure (spec §4.4
// "Fetch": "or run the legacy CALL dbms.routing.getRoutingTable(...)
// procedure for older versions").
func (d *Driver) fetchLegacy(c *bolt.Conn, database string) (Table, error) {
	params := map[string]interface{}{"context": d.routingContext}
	if _, err := c.Run(legacyRoutingProcedure, params, nil); err != nil {
		return Table{}, err
	}
	batch, err := c.Pull(-1)
	if err != nil {
		return Table{}, err
	}
	if len(batch.Records) == 0 {
		return Table{}, neoerr.Classify(neoerr.KindProtocol, "routing: getRoutingTable returned no rows")
	}
	row := batch.Records[0].Values
	if len(row) < 2 {
		return Table{}, neoerr.Classify(neoerr.KindProtocol, "routing: getRoutingTable row has %d fields, want 2", len(row))
	}
	servers, ok := row[1].([]interface{})
	if !ok {
		return Table{}, neoerr.Classify(neoerr.KindProtocol, "routing: getRoutingTable servers field has type %T", row[1])
	}
	table := Table{
		Database:  database,
		TTL:       ttlFrom(row[0]),
		FetchedAt: time.Now(),
	}
	bucketServers(&table, servers)
	return table, nil
}

func parseTable(database string, rt map[string]interface{}) (Table, error) {
	servers, ok := rt["servers"].([]interface{})
	if !ok {
		return Table{}, neoerr.Classify(neoerr.KindProtocol, "routing: rt.servers has type %T", rt["servers"])
	}
	db := database
	if name, ok := rt["db"].(string); ok && name != "" {
		db = name
	}
	table := Table{
		Database:  db,
		TTL:       ttlFrom(rt["ttl"]),
		FetchedAt: time.Now(),
	}
	bucketServers(&table, servers)
	return table, nil
}

func bucketServers(table *Table, servers []interface{}) {
	for _, raw := range servers {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		roleStr, _ := entry["role"].(string)
		role, ok := roleFromString(roleStr)
		if !ok {
			continue
		}
		addrs := stringsFrom(entry["addresses"])
		switch role {
		case RoleRead:
			table.Readers = append(table.Readers, addrs...)
		case RoleWrite:
			table.Writers = append(table.Writers, addrs...)
		case RoleRoute:
			table.Routers = append(table.Routers, addrs...)
		}
	}
}

func stringsFrom(raw interface{}) []string {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func ttlFrom(raw interface{}) time.Duration {
	switch v := raw.(type) {
	case int64:
		return time.Duration(v) * time.Second
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	default:
		return 5 * time.Second
	}
}

// AddressToTarget rewrites seed's host:port to addr while preserving its
// scheme/TLS policy/database/routing-context, producing the dial target
// for one specific cluster member. Exported so the session layer can reuse
// it after calling Select.
func AddressToTarget(seed uri.ParsedURI, addr string) (uri.ParsedURI, error) {
	return addressToTarget(seed, addr)
}

func addressToTarget(seed uri.ParsedURI, addr string) (uri.ParsedURI, error) {
	host, port, err := splitHostPort(addr)
	if err != nil {
		return uri.ParsedURI{}, err
	}
	target := seed
	target.Host = host
	target.Port = port
	return target, nil
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, neoerr.Classify(neoerr.KindProtocol, "routing: invalid server address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, neoerr.Classify(neoerr.KindProtocol, "routing: invalid server port in %q", addr)
	}
	return host, port, nil
}

// Select picks the next address for role under database's current table,
// round-robin over non-transiently-bad addresses (spec §4.4 "Selection").
// It forces a table refresh (returning the refreshed table's own pick) if
// no eligible server exists.
func (d *Driver) Select(ctx context.Context, database string, role Role) (string, Table, error) {
	table, err := d.TableFor(ctx, database)
	if err != nil {
		return "", Table{}, err
	}
	addr, ok := d.pick(database, table, role)
	if ok {
		return addr, table, nil
	}

	table, err = d.Fetch(ctx, database)
	if err != nil {
		return "", Table{}, err
	}
	addr, ok = d.pick(database, table, role)
	if !ok {
		return "", Table{}, neoerr.Classify(neoerr.KindCluster, "routing: no %s server available for database %q", role, database)
	}
	return addr, table, nil
}

func (d *Driver) pick(database string, table Table, role Role) (string, bool) {
	candidates := table.addressesFor(role)
	if len(candidates) == 0 {
		return "", false
	}
	st := d.dbStateFor(database)
	st.mu.Lock()
	defer st.mu.Unlock()

	for i := 0; i < len(candidates); i++ {
		idx := st.cursor[role] % len(candidates)
		st.cursor[role]++
		addr := candidates[idx]
		if !st.badAddr[addr] {
			return addr, true
		}
	}
	return "", false
}

// MarkBad flags addr as transiently unusable for database's current table
// generation (spec §4.4 failure policy). Once every address for a role is
// bad, Select falls through to a forced Fetch.
func (d *Driver) MarkBad(database, addr string) {
	st := d.dbStateFor(database)
	st.mu.Lock()
	st.badAddr[addr] = true
	st.mu.Unlock()
}

// Invalidate drops the cached table for database, forcing the next Select
// to Fetch a fresh generation (spec §4.4: "on total exhaustion, invalidate
// the routing table and refresh").
func (d *Driver) Invalidate(database string) {
	if mc, ok := d.cache.(*MemCache); ok {
		mc.Invalidate(cacheKey(database))
		return
	}
	d.cache.Put(cacheKey(database), Table{})
}

// ClassifyFailure reports whether err, observed while using addr, should
// mark that address bad and invalidate the routing table per spec §4.4's
// failure policy ("Neo.ClientError.Cluster.NotALeader/.../RoutingTableChanged").
func ClassifyFailure(err error) bool {
	return neoerr.Retriable(err) || isClusterLeaderError(err)
}

func isClusterLeaderError(err error) bool {
	type coded interface{ Code() string }
	c, ok := err.(coded)
	return ok && neoerr.IsCluster(c.Code())
}
