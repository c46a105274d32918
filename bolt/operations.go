package bolt

import (
	"time"

	"github.com/go-graphdb/neobolt/bolt/message"
	"github.com/go-graphdb/neobolt/neoerr"
)

// currentQID is the sentinel this implementation always sends for qid: -1,
// meaning "the most recently opened stream" — valid because, per spec
// §4.2, this implementation keeps exactly one open stream per connection
// even though the wire protocol (>= v4) supports more.
const currentQID = -1

// Run issues RUN. From READY it is auto-commit (READY -> STREAMING); from
// TX_READY it runs inside the open explicit transaction (TX_READY ->
// TX_STREAMING). Any other source state is rejected, including a state
// that already has an open stream, since this implementation keeps one
// stream per connection (spec §4.2 transition table + "this implementation
// keeps one stream per connection").
func (c *Conn) Run(statement string, params map[string]interface{}, extra map[string]interface{}) (message.Success, error) {
	if c.hasStream {
		return message.Success{}, neoerr.Classify(neoerr.KindProtocol, "RUN rejected: a stream is already open on this connection")
	}
	switch c.state {
	case Ready, TxReady:
	case Failed:
		return message.Success{}, neoerr.Classify(neoerr.KindProtocol, "RUN ignored: connection is FAILED, RESET required")
	default:
		return message.Success{}, neoerr.Classify(neoerr.KindProtocol, "RUN rejected from state %s", c.state)
	}

	success, err := c.exchange(message.NewRun(statement, params, extra))
	if err != nil {
		return success, err
	}

	if c.state == Ready {
		c.state = Streaming
	} else {
		c.state = TxStreaming
	}
	c.hasStream = true
	c.qidCounter++
	c.openQID = c.qidCounter
	return success, nil
}

func (d dialect) pullMessage(n int64) message.Pull {
	if !d.supportsQID() {
		return message.NewPullAll()
	}
	return message.NewPull(n, currentQID)
}

func (d dialect) discardMessage(n int64) message.Discard {
	if !d.supportsQID() {
		return message.NewDiscardAll()
	}
	return message.NewDiscard(n, currentQID)
}

// StreamBatch is one PULL/DISCARD round trip's outcome: zero or more
// records (DISCARD never yields any) plus the terminal SUCCESS metadata,
// with HasMore() telling the caller whether another PULL is needed.
type StreamBatch struct {
	Records []message.Record
	Success message.Success
}

func (c *Conn) requireOpenStream() error {
	if !c.hasStream {
		return neoerr.Classify(neoerr.KindProtocol, "no open stream on this connection")
	}
	switch c.state {
	case Streaming, TxStreaming:
		return nil
	default:
		return neoerr.Classify(neoerr.KindProtocol, "PULL/DISCARD rejected from state %s", c.state)
	}
}

// Pull requests up to n more records (n == -1 means unbounded, spec §3
// "fetch-size N ... -1 = unbounded"). It reads records until the
// terminating SUCCESS/FAILURE arrives.
func (c *Conn) Pull(n int64) (StreamBatch, error) {
	if err := c.requireOpenStream(); err != nil {
		return StreamBatch{}, err
	}
	if err := c.send(c.dialect.pullMessage(n)); err != nil {
		return StreamBatch{}, err
	}
	return c.readStreamResponses()
}

// Discard drops the remainder of the open stream. n == -1 discards
// everything outstanding (spec §4.5 "DISCARD {n:−1}" cancellation/eager-
// consume idiom).
func (c *Conn) Discard(n int64) (StreamBatch, error) {
	if err := c.requireOpenStream(); err != nil {
		return StreamBatch{}, err
	}
	if err := c.send(c.dialect.discardMessage(n)); err != nil {
		return StreamBatch{}, err
	}
	return c.readStreamResponses()
}

func (c *Conn) readStreamResponses() (StreamBatch, error) {
	var batch StreamBatch
	for {
		resp, err := c.recv()
		if err != nil {
			return batch, err
		}
		switch r := resp.(type) {
		case message.Record:
			batch.Records = append(batch.Records, r)
		case message.Success:
			batch.Success = r
			if r.HasMore() {
				// Stream stays open; state is unchanged (still STREAMING/
				// TX_STREAMING).
				return batch, nil
			}
			if c.state == Streaming {
				c.state = Ready
			} else if c.state == TxStreaming {
				c.state = TxReady
			}
			c.hasStream = false
			c.openQID = -1
			c.idleSince = time.Now()
			return batch, nil
		case message.Failure:
			c.state = Failed
			return batch, neoerr.ServerError(r.Code(), r.Message())
		case message.Ignored:
			return batch, neoerr.Classify(neoerr.KindProtocol, "server ignored PULL/DISCARD in state %s", c.state)
		default:
			c.state = Defunct
			return batch, neoerr.Classify(neoerr.KindProtocol, "unexpected response type %T while streaming", resp)
		}
	}
}

// Begin opens an explicit transaction: READY -> TX_READY (spec §4.2).
func (c *Conn) Begin(extra map[string]interface{}) error {
	if c.state != Ready {
		return neoerr.Classify(neoerr.KindProtocol, "BEGIN rejected from state %s, expected READY", c.state)
	}
	_, err := c.exchange(message.NewBegin(extra))
	if err != nil {
		return err
	}
	c.state = TxReady
	return nil
}

// Commit commits the open explicit transaction: TX_READY -> READY. The
// caller must have drained/discarded any open stream first (the transition
// table only allows COMMIT from TX_READY).
func (c *Conn) Commit() (message.Success, error) {
	if c.state != TxReady {
		return message.Success{}, neoerr.Classify(neoerr.KindProtocol, "COMMIT rejected from state %s, expected TX_READY", c.state)
	}
	success, err := c.exchange(message.Commit{})
	if err != nil {
		return success, err
	}
	c.state = Ready
	c.markReady()
	return success, nil
}

// Rollback aborts the open explicit transaction: TX_READY -> READY.
func (c *Conn) Rollback() error {
	if c.state != TxReady {
		return neoerr.Classify(neoerr.KindProtocol, "ROLLBACK rejected from state %s, expected TX_READY", c.state)
	}
	_, err := c.exchange(message.Rollback{})
	if err != nil {
		return err
	}
	c.state = Ready
	c.markReady()
	return nil
}

// Reset forces the connection back to READY from any non-DEFUNCT state
// (spec §4.2 transition table, RESET column: every row maps to READY).
func (c *Conn) Reset() error {
	if c.state == Defunct {
		return neoerr.Classify(neoerr.KindProtocol, "cannot RESET a DEFUNCT connection")
	}
	_, err := c.exchange(message.Reset{})
	if err != nil {
		return err
	}
	c.state = Ready
	c.markReady()
	return nil
}

// Goodbye politely ends the conversation. Spec §9 mandates it is only sent
// from READY or after a RESET; callers in any other state must RESET
// first. Goodbye expects no response and always closes the socket.
func (c *Conn) Goodbye() error {
	if c.state != Ready {
		return neoerr.Classify(neoerr.KindProtocol, "GOODBYE rejected from state %s, expected READY (reset first)", c.state)
	}
	err := c.send(message.Goodbye{})
	closeErr := c.netConn.Close()
	c.state = Defunct
	if err != nil {
		return err
	}
	if closeErr != nil {
		return neoerr.Classify(neoerr.KindIO, "closing socket after GOODBYE: %v", closeErr)
	}
	return nil
}

// Route issues ROUTE for cluster discovery (protocol >= v4.1; database name
// support >= v4.3, spec §4.4 "Fetch"). It must be called from READY.
func (c *Conn) Route(routingContext map[string]interface{}, bookmarks []string, database string) (message.Success, error) {
	if !c.dialect.supportsRouting() {
		return message.Success{}, neoerr.Classify(neoerr.KindConfiguration, "ROUTE unsupported by negotiated protocol")
	}
	if c.state != Ready {
		return message.Success{}, neoerr.Classify(neoerr.KindProtocol, "ROUTE rejected from state %s, expected READY", c.state)
	}
	if database != "" && !c.dialect.supportsRouteWithDatabase() {
		database = ""
	}
	return c.exchange(message.NewRoute(routingContext, bookmarks, database))
}
