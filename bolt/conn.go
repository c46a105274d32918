// Package bolt implements the Bolt connection state machine: handshake and
// version negotiation, authentication, message framing via
// bolt/packstream, and the per-connection server-state tracking spec
// §4.2 specifies. Grounded on conn.go/bolt_conn.go's dial+handshake+HELLO
// sequence, generalized from protocol v1-only PULL_ALL/DISCARD_ALL to the
// full version-conditioned behavior of spec §4.2, and from a single
// hard-coded "bolt" scheme to TLS-aware dialing per the parsed URI.
package bolt

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/go-graphdb/neobolt/bolt/message"
	"github.com/go-graphdb/neobolt/bolt/packstream"
	"github.com/go-graphdb/neobolt/internal/driverlog"
	"github.com/go-graphdb/neobolt/neoerr"
	"github.com/go-graphdb/neobolt/uri"
)

// Conn represents a connection to a Bolt-speaking server.
//
// Conn objects are NOT THREAD SAFE (spec §5: "each Bolt connection is a
// single-threaded conversation"). Exactly one goroutine drives a Conn at a
// time; the pool is responsible for ensuring that.
type Conn struct {
	target    uri.ParsedURI
	userAgent string

	netConn net.Conn
	codec   *packstream.MessageCodec
	timeout time.Duration

	log *driverlog.Logger

	serverAgent     string
	protocolVersion uint32
	dialect         dialect

	state           ServerState
	currentDatabase string
	accessMode      AccessMode

	qidCounter int64
	openQID    int64 // -1 when no stream is open
	hasStream  bool

	idleSince time.Time

	// correlationID identifies this connection in logs and in HELLO's
	// extra map, independent of anything the server assigns.
	correlationID string
}

// CorrelationID returns this connection's client-generated correlation id,
// embedded in HELLO and useful for tying driver-side logs to a specific
// TCP connection across its pooled lifetime.
func (c *Conn) CorrelationID() string { return c.correlationID }

// Options configure a new Conn.
type Options struct {
	UserAgent         string
	DialTimeout       time.Duration
	ReadWriteTimeout  time.Duration
	ChunkSize         int
	TLSConfig         *tls.Config
	ProposedVersions  [4]uint32
	Log               *driverlog.Logger
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = "neobolt/1.0"
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.ReadWriteTimeout <= 0 {
		o.ReadWriteTimeout = o.DialTimeout
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 4096
	}
	if o.ProposedVersions == ([4]uint32{}) {
		o.ProposedVersions = DefaultProposedVersions
	}
	if o.Log == nil {
		o.Log = driverlog.NewNop()
	}
	return o
}

// Dial opens a TCP (or TLS) connection to target, performs the Bolt
// handshake, and returns a Conn in the CONNECTED state (spec §4.2
// "Handshake"). Hello must be called next to reach READY.
func Dial(target uri.ParsedURI, opts Options) (*Conn, error) {
	opts = opts.withDefaults()

	authority := target.Authority()
	rawConn, err := net.DialTimeout("tcp", authority, opts.DialTimeout)
	if err != nil {
		return nil, neoerr.Classify(neoerr.KindIO, "dialing %s: %v", authority, err)
	}

	netConn := rawConn
	if target.TLS != uri.TLSNone {
		tlsConfig := opts.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: target.Host}
		}
		if target.TLS == uri.TLSSelfSigned {
			tlsConfig = tlsConfig.Clone()
			tlsConfig.InsecureSkipVerify = true
		}
		tlsConn := tls.Client(rawConn, tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			rawConn.Close()
			return nil, neoerr.Classify(neoerr.KindIO, "TLS handshake with %s: %v", authority, err)
		}
		netConn = tlsConn
	}

	c := &Conn{
		target:        target,
		userAgent:     opts.UserAgent,
		netConn:       netConn,
		timeout:       opts.ReadWriteTimeout,
		log:           opts.Log,
		state:         Disconnected,
		openQID:       -1,
		correlationID: uuid.NewString(),
	}

	if err := c.setDeadline(); err != nil {
		netConn.Close()
		return nil, neoerr.Classify(neoerr.KindIO, "setting deadline: %v", err)
	}

	agreed, err := performHandshake(netConn, opts.ProposedVersions)
	if err != nil {
		netConn.Close()
		c.state = Defunct
		return nil, err
	}

	c.protocolVersion = agreed
	c.dialect = newDialect(agreed)
	c.codec = packstream.NewMessageCodec(&deadlineConn{Conn: netConn, timeout: opts.ReadWriteTimeout}, opts.ChunkSize)
	c.state = Connected
	c.log.Trace("bolt handshake complete", "authority", authority, "version", fmt.Sprintf("%d.%d", agreed&0xFF, (agreed>>8)&0xFF))
	return c, nil
}

func (c *Conn) setDeadline() error {
	return c.netConn.SetDeadline(time.Now().Add(c.timeout))
}

// deadlineConn renews a read/write deadline on every call so the chunk
// codec's blocking Read/Write calls can't hang past the connection's
// configured timeout (grounded on conn.go's per-call SetReadDeadline).
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (d *deadlineConn) Read(p []byte) (int, error) {
	if err := d.Conn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.Conn.Read(p)
}

func (d *deadlineConn) Write(p []byte) (int, error) {
	if err := d.Conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.Conn.Write(p)
}

// State returns the connection's current Bolt server state.
func (c *Conn) State() ServerState { return c.state }

// ProtocolVersion returns the negotiated protocol version as (major, minor).
func (c *Conn) ProtocolVersion() (byte, byte) { return versionDecode(c.protocolVersion) }

// SupportsRouting reports whether the negotiated protocol carries ROUTE and
// routing metadata (protocol >= v4.1), letting callers choose between the
// ROUTE message and the legacy getRoutingTable procedure (spec §4.4).
func (c *Conn) SupportsRouting() bool { return c.dialect.supportsRouting() }

// ServerAgent returns the server-reported agent string, set once HELLO
// succeeds.
func (c *Conn) ServerAgent() string { return c.serverAgent }

// CurrentDatabase returns the database this connection is scoped to.
func (c *Conn) CurrentDatabase() string { return c.currentDatabase }

// SetCurrentDatabase records which database this connection is scoped to;
// called by the pool/routing layer after BEGIN/RUN extras pin it.
func (c *Conn) SetCurrentDatabase(db string) { c.currentDatabase = db }

// AccessMode returns the access mode last negotiated for this connection.
func (c *Conn) AccessMode() AccessMode { return c.accessMode }

// SetAccessMode records the access mode this connection currently serves.
func (c *Conn) SetAccessMode(m AccessMode) { c.accessMode = m }

// Defunct reports whether this connection is permanently unusable (spec
// §3: "a DEFUNCT connection is never reused").
func (c *Conn) Defunct() bool { return c.state == Defunct }

// IdleSince returns the instant the connection last returned to READY or
// TX_READY, used by the pool's liveness check (spec §4.3).
func (c *Conn) IdleSince() time.Time { return c.idleSince }

// HasOpenStream reports whether a STREAMING/TX_STREAMING result is still
// outstanding on this connection (spec §4.2 eager-consume invariant).
func (c *Conn) HasOpenStream() bool { return c.hasStream }

// Close closes the underlying socket. It does not attempt GOODBYE; callers
// that want a polite shutdown should call Goodbye first.
func (c *Conn) Close() error {
	c.state = Defunct
	return c.netConn.Close()
}

func (c *Conn) markDefunct(err error) error {
	c.state = Defunct
	return neoerr.Classify(neoerr.KindIO, "bolt connection defunct: %v", err)
}

func (c *Conn) markReady() {
	c.hasStream = false
	c.openQID = -1
	c.idleSince = time.Now()
}

// send writes one request structure to the wire, classifying any I/O
// failure as DEFUNCT (spec §7 "IO error ... marks connection DEFUNCT").
func (c *Conn) send(msg packstream.Structure) error {
	if err := c.codec.WriteMessage(msg); err != nil {
		return c.markDefunct(err)
	}
	return nil
}

// recv reads one response structure, classifying I/O failure as DEFUNCT.
func (c *Conn) recv() (interface{}, error) {
	v, err := c.codec.ReadMessage()
	if err != nil {
		return nil, c.markDefunct(err)
	}
	return v, nil
}

// exchange sends msg and reads back exactly one response, dispatching
// FAILURE/IGNORED into classified errors. On SUCCESS it leaves c.state
// untouched — callers apply the state transition themselves, per the
// transition table (spec §4.2); a FAILURE moves the connection to FAILED
// and an unrecognized response marks it DEFUNCT.
func (c *Conn) exchange(msg packstream.Structure) (message.Success, error) {
	if err := c.send(msg); err != nil {
		return message.Success{}, err
	}
	resp, err := c.recv()
	if err != nil {
		return message.Success{}, err
	}
	switch r := resp.(type) {
	case message.Success:
		return r, nil
	case message.Failure:
		c.state = Failed
		return message.Success{}, neoerr.ServerError(r.Code(), r.Message())
	case message.Ignored:
		return message.Success{}, neoerr.Classify(neoerr.KindProtocol, "server ignored message in state %s", c.state)
	default:
		c.state = Defunct
		return message.Success{}, neoerr.Classify(neoerr.KindProtocol, "unexpected response type %T", resp)
	}
}
