package bolt

// ServerState is the Bolt connection's finite-state-automaton value (spec
// §3 "Bolt server state", §4.2 transition table).
type ServerState int

const (
	Disconnected ServerState = iota
	Connected
	Ready
	Streaming
	TxReady
	TxStreaming
	Failed
	Interrupted
	Defunct
)

func (s ServerState) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connected:
		return "CONNECTED"
	case Ready:
		return "READY"
	case Streaming:
		return "STREAMING"
	case TxReady:
		return "TX_READY"
	case TxStreaming:
		return "TX_STREAMING"
	case Failed:
		return "FAILED"
	case Interrupted:
		return "INTERRUPTED"
	case Defunct:
		return "DEFUNCT"
	default:
		return "UNKNOWN"
	}
}

// AccessMode selects READ vs WRITE routing/transaction semantics (spec §3
// "Session configuration").
type AccessMode int

const (
	AccessModeWrite AccessMode = iota
	AccessModeRead
)

func (m AccessMode) String() string {
	if m == AccessModeRead {
		return "READ"
	}
	return "WRITE"
}
