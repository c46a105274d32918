// Package uri parses and validates driver connection URIs (spec §3 "URI",
// §6 "URI surface"). Grounded on the teacher's driver.go/conn.go URL
// handling (url.Parse + scheme check), generalized from the teacher's
// single hard-coded "bolt" scheme to the full scheme matrix spec §3
// defines.
package uri

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Family distinguishes direct (single-server) from routed (cluster-aware)
// drivers; it is determined purely by scheme prefix (spec §3 invariant:
// "scheme determines driver family and TLS policy together").
type Family int

const (
	FamilyBolt Family = iota
	FamilyNeo4j
	FamilyHTTP
)

// TLSPolicy selects how the driver validates the server's certificate.
type TLSPolicy int

const (
	// TLSNone: plaintext TCP.
	TLSNone TLSPolicy = iota
	// TLSSecure: TLS with full certificate verification ("+s" suffix).
	TLSSecure
	// TLSSelfSigned: TLS accepting self-signed certificates ("+ssc" suffix).
	TLSSelfSigned
)

// ParsedURI is the result of parsing a connection string. Spec §3
// invariant: "once parsed they are immutable" — every field except
// RoutingContext is a value type, and callers receive a copy;
// RoutingContext is a map that all copies share, so it is not protected
// against mutation.
type ParsedURI struct {
	Scheme   string
	Family   Family
	TLS      TLSPolicy
	Host     string
	Port     int
	User     string
	Password string
	HasUser  bool
	Database string
	// RoutingContext holds every query key other than "database", passed
	// through as routing context (spec §6 "Other keys are passed through as
	// routing context").
	RoutingContext map[string]string
}

// Authority is the (host, port) pair identifying a unique connection pool,
// independent of auth/database (spec glossary "Authority" combines this
// with TLS/auth-fingerprint at the pool layer).
func (p ParsedURI) Authority() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

var schemeTable = map[string]struct {
	family Family
	tls    TLSPolicy
}{
	"bolt":      {FamilyBolt, TLSNone},
	"bolt+s":    {FamilyBolt, TLSSecure},
	"bolt+ssc":  {FamilyBolt, TLSSelfSigned},
	"neo4j":     {FamilyNeo4j, TLSNone},
	"neo4j+s":   {FamilyNeo4j, TLSSecure},
	"neo4j+ssc": {FamilyNeo4j, TLSSelfSigned},
	"http":      {FamilyHTTP, TLSNone},
	"https":     {FamilyHTTP, TLSSecure},
}

const (
	defaultBoltPort = 7687
	defaultHTTPPort = 7474
	defaultHTTPSPort = 7473
)

// Parse validates and parses a connection string per spec §3/§6.
func Parse(connStr string) (ParsedURI, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return ParsedURI{}, fmt.Errorf("uri: %w", err)
	}

	entry, ok := schemeTable[strings.ToLower(u.Scheme)]
	if !ok {
		return ParsedURI{}, fmt.Errorf("uri: unsupported scheme %q; must be one of bolt, bolt+s, bolt+ssc, neo4j, neo4j+s, neo4j+ssc, http, https", u.Scheme)
	}

	if u.Hostname() == "" {
		return ParsedURI{}, fmt.Errorf("uri: missing host in %q", connStr)
	}

	port := defaultBoltPort
	if entry.family == FamilyHTTP {
		port = defaultHTTPPort
		if entry.tls == TLSSecure {
			port = defaultHTTPSPort
		}
	}
	if p := u.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return ParsedURI{}, fmt.Errorf("uri: invalid port %q", p)
		}
		port = parsed
	}

	parsed := ParsedURI{
		Scheme:         strings.ToLower(u.Scheme),
		Family:         entry.family,
		TLS:            entry.tls,
		Host:           u.Hostname(),
		Port:           port,
		RoutingContext: map[string]string{},
	}

	if u.User != nil {
		parsed.HasUser = true
		parsed.User = u.User.Username()
		parsed.Password, _ = u.User.Password()
	}

	query := u.Query()
	if db := query.Get("database"); db != "" {
		parsed.Database = db
		query.Del("database")
	}
	for k, v := range query {
		if len(v) > 0 {
			parsed.RoutingContext[k] = v[0]
		}
	}

	return parsed, nil
}

// IsRouted reports whether this URI's family requires the routing driver
// rather than a direct single-server connection (spec §3: "neo4j* = routed").
func (p ParsedURI) IsRouted() bool { return p.Family == FamilyNeo4j }
