// Package routing implements the routing table cache and routing driver of
// spec §4.4: fetching a cluster's role/address layout via ROUTE (or the
// legacy getRoutingTable procedure), round-robin server selection per role,
// and a pluggable cache so the table can be warmed across processes.
// Grounded on routing.go's cluster-overview parsing (same "classify rows
// into role buckets" shape, generalized from the Raft-overview procedure's
// bespoke columns to the ROUTE message's {ttl, db, servers} envelope) and
// routing_driver.go's per-database pool-of-pools structure.
package routing

import (
	"time"
)

// Role is a server's routing role within a database.
type Role int

const (
	RoleRead Role = iota
	RoleWrite
	RoleRoute
)

func (r Role) String() string {
	switch r {
	case RoleRead:
		return "READ"
	case RoleWrite:
		return "WRITE"
	case RoleRoute:
		return "ROUTE"
	default:
		return "UNKNOWN"
	}
}

func roleFromString(s string) (Role, bool) {
	switch s {
	case "READ":
		return RoleRead, true
	case "WRITE":
		return RoleWrite, true
	case "ROUTE":
		return RoleRoute, true
	default:
		return 0, false
	}
}

// Table is one routing table generation for a single database, per spec
// §4.4's `{ttl, db, servers: [{role, addresses}]}` response shape.
type Table struct {
	Database  string
	TTL       time.Duration
	FetchedAt time.Time
	Readers   []string
	Writers   []string
	Routers   []string
}

// Stale reports whether this generation has hard-expired (spec §4.4:
// "fetched-at + ttl is a hard expiry") or never had any routers to begin
// with.
func (t Table) Stale() bool {
	if len(t.Routers) == 0 {
		return true
	}
	return time.Since(t.FetchedAt) >= t.TTL
}

// addressesFor returns the address list backing a role, applying spec
// §4.4's read-falls-back-to-writer rule: "READ requests whose only reader
// is also a writer fall back to the writer" generalizes, in this
// implementation, to "if there are no dedicated readers, serve READ from
// the writer list."
func (t Table) addressesFor(role Role) []string {
	switch role {
	case RoleRead:
		if len(t.Readers) > 0 {
			return t.Readers
		}
		return t.Writers
	case RoleWrite:
		return t.Writers
	case RoleRoute:
		return t.Routers
	default:
		return nil
	}
}
