// Package message defines the Bolt structure catalogue from spec §4.1:
// HELLO, GOODBYE, RESET, RUN, DISCARD, PULL, BEGIN, COMMIT, ROLLBACK, ROUTE
// on the request side, and SUCCESS, RECORD, FAILURE, IGNORED on the response
// side. Grounded on structures/messages/*.go and messages/init.go, merged
// into one package (the teacher split near-duplicates of this across
// structures/messages and messages) and extended with the >=v4 PULL/DISCARD
// {n, qid} fields, BEGIN/ROUTE extras, and GOODBYE (absent from the
// teacher entirely).
package message

// Signature bytes for every structure this driver speaks.
const (
	SigHello    byte = 0x01
	SigGoodbye  byte = 0x02
	SigReset    byte = 0x0F
	SigRun      byte = 0x10
	SigDiscard  byte = 0x2F
	SigPull     byte = 0x3F
	SigBegin    byte = 0x11
	SigCommit   byte = 0x12
	SigRollback byte = 0x13
	SigRoute    byte = 0x66

	SigSuccess byte = 0x70
	SigRecord  byte = 0x71
	SigIgnored byte = 0x7E
	SigFailure byte = 0x7F
)

// Hello carries the client identity and auth token on connection init.
// Transitions DISCONNECTED -> CONNECTED -> READY on SUCCESS (spec §4.2).
type Hello struct {
	Extra map[string]interface{}
}

// NewHello builds HELLO's extra map. correlationID, when non-empty, is
// carried as "connection_id" — a client-assigned identifier echoed back in
// driver logs, independent of anything the server assigns.
func NewHello(userAgent string, authToken map[string]interface{}, routingContext map[string]interface{}, correlationID string) Hello {
	extra := map[string]interface{}{"user_agent": userAgent}
	for k, v := range authToken {
		extra[k] = v
	}
	if routingContext != nil {
		extra["routing"] = routingContext
	}
	if correlationID != "" {
		extra["connection_id"] = correlationID
	}
	return Hello{Extra: extra}
}

func (Hello) Signature() byte           { return SigHello }
func (h Hello) Fields() []interface{}   { return []interface{}{h.Extra} }

// Goodbye politely ends the conversation. Spec §9's open question mandates
// it is only sent from READY or after a RESET.
type Goodbye struct{}

func (Goodbye) Signature() byte         { return SigGoodbye }
func (Goodbye) Fields() []interface{}   { return []interface{}{} }

// Reset forces the connection back to READY from any state (spec §4.2
// transition table, RESET column).
type Reset struct{}

func (Reset) Signature() byte       { return SigReset }
func (Reset) Fields() []interface{} { return []interface{}{} }

// Run issues a statement, either auto-commit (from READY) or inside an
// explicit transaction (from TX_READY).
type Run struct {
	Statement  string
	Parameters map[string]interface{}
	Extra      map[string]interface{}
}

func NewRun(statement string, parameters map[string]interface{}, extra map[string]interface{}) Run {
	if parameters == nil {
		parameters = map[string]interface{}{}
	}
	if extra == nil {
		extra = map[string]interface{}{}
	}
	return Run{Statement: statement, Parameters: parameters, Extra: extra}
}

func (Run) Signature() byte { return SigRun }
func (r Run) Fields() []interface{} {
	return []interface{}{r.Statement, r.Parameters, r.Extra}
}

// Discard drops outstanding records. Pre-v4: DISCARD_ALL, no fields. >=v4:
// carries {n, qid} (spec §4.2 version-conditioned behavior).
type Discard struct {
	LegacyAll bool
	N         int64
	QID       int64
}

func NewDiscardAll() Discard { return Discard{LegacyAll: true} }
func NewDiscard(n, qid int64) Discard { return Discard{N: n, QID: qid} }

func (Discard) Signature() byte { return SigDiscard }
func (d Discard) Fields() []interface{} {
	if d.LegacyAll {
		return []interface{}{}
	}
	return []interface{}{map[string]interface{}{"n": d.N, "qid": d.QID}}
}

// Pull requests more records. Same legacy/v4 split as Discard.
type Pull struct {
	LegacyAll bool
	N         int64
	QID       int64
}

func NewPullAll() Pull          { return Pull{LegacyAll: true} }
func NewPull(n, qid int64) Pull { return Pull{N: n, QID: qid} }

func (Pull) Signature() byte { return SigPull }
func (p Pull) Fields() []interface{} {
	if p.LegacyAll {
		return []interface{}{}
	}
	return []interface{}{map[string]interface{}{"n": p.N, "qid": p.QID}}
}

// Begin opens an explicit transaction: READY -> TX_READY.
type Begin struct {
	Extra map[string]interface{}
}

func NewBegin(extra map[string]interface{}) Begin {
	if extra == nil {
		extra = map[string]interface{}{}
	}
	return Begin{Extra: extra}
}

func (Begin) Signature() byte       { return SigBegin }
func (b Begin) Fields() []interface{} { return []interface{}{b.Extra} }

// Commit commits the open explicit transaction: TX_READY -> READY.
type Commit struct{}

func (Commit) Signature() byte       { return SigCommit }
func (Commit) Fields() []interface{} { return []interface{}{} }

// Rollback aborts the open explicit transaction: TX_READY -> READY.
type Rollback struct{}

func (Rollback) Signature() byte       { return SigRollback }
func (Rollback) Fields() []interface{} { return []interface{}{} }

// Route requests a fresh routing table (protocol >= v4.1; >= v4.3 carries a
// database name, spec §4.2).
type Route struct {
	RoutingContext map[string]interface{}
	Bookmarks      []string
	Database       string
}

func NewRoute(routingContext map[string]interface{}, bookmarks []string, database string) Route {
	return Route{RoutingContext: routingContext, Bookmarks: bookmarks, Database: database}
}

func (Route) Signature() byte { return SigRoute }
func (r Route) Fields() []interface{} {
	bm := make([]interface{}, len(r.Bookmarks))
	for i, b := range r.Bookmarks {
		bm[i] = b
	}
	var db interface{}
	if r.Database != "" {
		db = r.Database
	}
	return []interface{}{r.RoutingContext, bm, db}
}
