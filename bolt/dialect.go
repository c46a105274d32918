package bolt

// dialect captures the version-conditioned wire behavior spec §4.2 lists:
// pre-v4 PULL_ALL/DISCARD_ALL vs >=v4 PULL/DISCARD {n, qid}; >=v4.1 routing
// metadata in HELLO and the ROUTE message; >=v4.3 ROUTE-with-database-name
// and richer transaction metadata.
type dialect struct {
	major, minor byte
}

func newDialect(version uint32) dialect {
	major, minor := versionDecode(version)
	return dialect{major: major, minor: minor}
}

// supportsQID reports whether PULL/DISCARD carry {n, qid} (protocol >= v4).
func (d dialect) supportsQID() bool { return d.major >= 4 }

// supportsRouting reports whether ROUTE and HELLO routing metadata are
// available (protocol >= v4.1).
func (d dialect) supportsRouting() bool {
	return d.major > 4 || (d.major == 4 && d.minor >= 1)
}

// supportsRouteWithDatabase reports whether ROUTE accepts a database name
// and transactions carry richer metadata (protocol >= v4.3).
func (d dialect) supportsRouteWithDatabase() bool {
	return d.major > 4 || (d.major == 4 && d.minor >= 3)
}

// atLeast reports whether this dialect is >= the given major.minor.
func (d dialect) atLeast(major, minor byte) bool {
	return d.major > major || (d.major == major && d.minor >= minor)
}
