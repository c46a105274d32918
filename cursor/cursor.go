// Package cursor implements the result cursor of spec §4.5: a lazily
// fetched, demand-driven, forward-seekable sequence of records backed by a
// single Bolt connection's open stream. Grounded on rows.go's
// boltRows/NextNeo shape (PULL-then-decode-then-dispatch-on-response-type),
// generalized from its PULL_ALL-only, one-record-at-a-time decode loop into
// the fetch-size-N batching, bounded prefetch, and seek algorithm spec
// §4.5 specifies.
package cursor

import (
	"io"
	"sync"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/bolt/message"
	"github.com/go-graphdb/neobolt/neoerr"
)

// Streamer is the subset of *bolt.Conn a Cursor drives: issuing PULL/
// DISCARD against whichever stream is currently open on the connection.
// *bolt.Conn satisfies this directly; tests substitute a fake.
type Streamer interface {
	Pull(n int64) (bolt.StreamBatch, error)
	Discard(n int64) (bolt.StreamBatch, error)
}

// Cursor is an ordered, 0-based-position-addressable sequence of records
// (spec §4.5 "Contract"). It is NOT THREAD SAFE — callers that need to
// fan a result out across goroutines must copy records out first.
type Cursor struct {
	conn      Streamer
	fetchSize int64
	keys      []string

	buffer []message.Record
	bufPos int

	position  int64
	pullCount int64

	done    bool
	summary message.Success

	releaseOnce sync.Once
	release     func(err error)
}

// New wraps conn's just-opened stream (the caller must have already sent
// RUN/BEGIN+RUN and received its SUCCESS header) into a Cursor. fetchSize
// is N from spec §4.5 ("−1 = unbounded"). release is called exactly once,
// with the terminal error (nil on a clean finish), when the cursor's
// connection-release invariant fires — normally handing the connection
// back to the pool.
func New(conn Streamer, fetchSize int64, keys []string, release func(err error)) *Cursor {
	if release == nil {
		release = func(error) {}
	}
	return &Cursor{
		conn:      conn,
		fetchSize: fetchSize,
		keys:      keys,
		release:   release,
	}
}

// Keys returns the RUN header's field names (spec §9: "keys() are the
// RUN-response field-name header").
func (c *Cursor) Keys() []string { return c.keys }

// Position returns the 0-based position of the next record Next() would
// return.
func (c *Cursor) Position() int64 { return c.position }

// Summary returns the terminal SUCCESS metadata (bookmark, counters, plan,
// notifications, ...). It is only populated once the cursor is exhausted
// or discarded.
func (c *Cursor) Summary() message.Success { return c.summary }

func (c *Cursor) releaseWith(err error) {
	c.releaseOnce.Do(func() { c.release(err) })
}

// ensureBuffer fetches the next batch from the server if the local buffer
// is exhausted and the server previously reported has_more=true (spec
// §4.5 "Demand protocol").
func (c *Cursor) ensureBuffer() error {
	if c.bufPos < len(c.buffer) {
		return nil
	}
	if c.done {
		return io.EOF
	}

	batch, err := c.conn.Pull(c.fetchSize)
	if err != nil {
		c.done = true
		c.releaseWith(err)
		return err
	}
	c.pullCount++
	c.buffer = batch.Records
	c.bufPos = 0

	if !batch.Success.HasMore() {
		c.done = true
		c.summary = batch.Success
		c.releaseWith(nil)
	}

	if len(c.buffer) == 0 {
		if c.done {
			return io.EOF
		}
		// A batch with zero records but has_more=true is legal (the server
		// may report progress with nothing to deliver yet); fetch again.
		return c.ensureBuffer()
	}
	return nil
}

// Next returns the next record, or io.EOF once the stream is exhausted.
func (c *Cursor) Next() (message.Record, error) {
	if err := c.ensureBuffer(); err != nil {
		return message.Record{}, err
	}
	rec := c.buffer[c.bufPos]
	c.bufPos++
	c.position++
	return rec, nil
}

// Seek moves to target, which must not be less than the current position
// (spec §4.5: "seek(position) (position >= current only)"); seeking to the
// current position is a no-op. Backward seeks are not supported and are
// treated as a caller error rather than a silent no-op, since silently
// ignoring a backward seek would mask a real bug in the caller's
// bookkeeping.
func (c *Cursor) Seek(target int64) error {
	if target < c.position {
		return neoerr.Classify(neoerr.KindValue, "cursor: seek target %d is before current position %d", target, c.position)
	}

	if c.fetchSize > 0 && !c.done {
		targetBatch := target / c.fetchSize
		if targetBatch > c.pullCount {
			toSkip := (targetBatch - c.pullCount) * c.fetchSize
			batch, err := c.conn.Discard(toSkip)
			if err != nil {
				c.done = true
				c.releaseWith(err)
				return err
			}
			c.pullCount = targetBatch
			c.buffer = nil
			c.bufPos = 0
			// The bulk DISCARD only lands the server at the start of
			// targetBatch, not at target itself (target may not be a
			// multiple of fetchSize) — fall through to seekWithinBuffer,
			// which pulls that batch and walks the remaining intra-batch
			// offset.
			c.position = targetBatch * c.fetchSize
			if !batch.Success.HasMore() {
				c.done = true
				c.summary = batch.Success
				if c.position >= target {
					c.releaseWith(nil)
					return nil
				}
				c.releaseWith(nil)
				return io.EOF
			}
		}
	}

	return c.seekWithinBuffer(target)
}

// seekWithinBuffer advances position/bufPos across whatever is already
// buffered locally (or, for an unbounded fetch, the entire result set),
// pulling further batches only when the target lands beyond what's
// currently held — it never re-issues DISCARD, since that path is only
// reached once the skip-whole-batches case above no longer applies.
func (c *Cursor) seekWithinBuffer(target int64) error {
	for {
		delta := target - c.position
		remaining := int64(len(c.buffer) - c.bufPos)
		if delta <= remaining {
			c.bufPos += int(delta)
			c.position = target
			return nil
		}
		c.position += remaining
		c.bufPos = len(c.buffer)
		if c.done {
			return io.EOF
		}
		if err := c.ensureBuffer(); err != nil {
			return err
		}
	}
}

// Discard abandons the remainder of the stream (spec §4.5: "DISCARD
// {n:−1}" cancellation idiom), releasing the connection back to READY.
// Safe to call multiple times and after the cursor is already exhausted.
func (c *Cursor) Discard() error {
	if c.done {
		c.releaseWith(nil)
		return nil
	}
	batch, err := c.conn.Discard(-1)
	c.done = true
	c.buffer = nil
	c.bufPos = 0
	if err != nil {
		c.releaseWith(err)
		return err
	}
	c.summary = batch.Success
	c.releaseWith(nil)
	return nil
}

// Close is an alias for Discard, offered for io.Closer-shaped call sites.
func (c *Cursor) Close() error { return c.Discard() }
