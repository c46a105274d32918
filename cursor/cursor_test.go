package cursor

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-graphdb/neobolt/bolt"
	"github.com/go-graphdb/neobolt/bolt/message"
)

// fakeStreamer plays back a fixed sequence of batches, recording every
// PULL/DISCARD it receives so tests can assert on wire traffic without a
// real server.
type fakeStreamer struct {
	batches []bolt.StreamBatch
	next    int
	calls   []call
}

type call struct {
	kind string // "pull" or "discard"
	n    int64
}

func (f *fakeStreamer) Pull(n int64) (bolt.StreamBatch, error) {
	f.calls = append(f.calls, call{"pull", n})
	return f.take()
}

func (f *fakeStreamer) Discard(n int64) (bolt.StreamBatch, error) {
	f.calls = append(f.calls, call{"discard", n})
	return f.take()
}

func (f *fakeStreamer) take() (bolt.StreamBatch, error) {
	if f.next >= len(f.batches) {
		return bolt.StreamBatch{Success: message.Success{Metadata: map[string]interface{}{}}}, nil
	}
	b := f.batches[f.next]
	f.next++
	return b, nil
}

func recordsOf(vals ...int) []message.Record {
	out := make([]message.Record, len(vals))
	for i, v := range vals {
		out[i] = message.Record{Values: []interface{}{v}}
	}
	return out
}

func successWithMore(more bool) message.Success {
	return message.Success{Metadata: map[string]interface{}{"has_more": more}}
}

func TestCursorIteratesMultipleBatches(t *testing.T) {
	f := &fakeStreamer{batches: []bolt.StreamBatch{
		{Records: recordsOf(0, 1, 2), Success: successWithMore(true)},
		{Records: recordsOf(3, 4, 5), Success: successWithMore(true)},
		{Records: recordsOf(6), Success: successWithMore(false)},
	}}
	released := false
	c := New(f, 3, []string{"n"}, func(err error) {
		released = true
		assert.NoError(t, err)
	})

	var got []interface{}
	for {
		rec, err := c.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec.Values[0])
	}
	assert.Equal(t, []interface{}{0, 1, 2, 3, 4, 5, 6}, got)
	assert.True(t, released)
	assert.Equal(t, int64(7), c.Position())
}

func TestCursorSeekSkipsWholeBatches(t *testing.T) {
	f := &fakeStreamer{batches: []bolt.StreamBatch{
		{Records: recordsOf(0, 1, 2), Success: successWithMore(true)},    // initial PULL
		{Success: successWithMore(true)},                                // DISCARD response: never carries records
		{Records: recordsOf(9, 10, 11), Success: successWithMore(false)}, // PULL landing on the target's batch
	}}
	c := New(f, 3, nil, nil)

	// Prime the first batch so pullCount reflects "one batch already pulled".
	_, err := c.Next()
	require.NoError(t, err)

	err = c.Seek(9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), c.Position())

	rec, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 9, rec.Values[0])

	require.Len(t, f.calls, 3)
	assert.Equal(t, call{"pull", 3}, f.calls[0])
	assert.Equal(t, "discard", f.calls[1].kind)
	assert.Equal(t, call{"pull", 3}, f.calls[2])
}

func TestCursorSeekToNonAlignedTargetLandsOnExactRecord(t *testing.T) {
	f := &fakeStreamer{batches: []bolt.StreamBatch{
		{Records: recordsOf(0, 1, 2), Success: successWithMore(true)},      // initial PULL
		{Success: successWithMore(true)},                                  // DISCARD response: never carries records
		{Records: recordsOf(9, 10, 11), Success: successWithMore(false)},   // PULL landing on the target's batch
	}}
	c := New(f, 3, nil, nil)

	// Prime the first batch so pullCount reflects "one batch already pulled".
	_, err := c.Next()
	require.NoError(t, err)

	// 10 is not a multiple of fetchSize (3): it falls one record into the
	// batch that starts at 9, not at a batch boundary.
	err = c.Seek(10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.Position())

	rec, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Values[0], "seek must land on the exact requested record, not the start of its batch")

	require.Len(t, f.calls, 3)
	assert.Equal(t, call{"pull", 3}, f.calls[0])
	assert.Equal(t, "discard", f.calls[1].kind)
	assert.Equal(t, call{"pull", 3}, f.calls[2])
}

func TestCursorSeekWithinBufferIssuesNoWireCall(t *testing.T) {
	f := &fakeStreamer{batches: []bolt.StreamBatch{
		{Records: recordsOf(0, 1, 2, 3, 4), Success: successWithMore(false)},
	}}
	c := New(f, -1, nil, nil)

	rec, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Values[0])

	require.NoError(t, c.Seek(3))
	rec, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Values[0])

	require.Len(t, f.calls, 1, "seeking within the already-buffered batch must not touch the wire")
}

func TestCursorSeekBackwardIsRejected(t *testing.T) {
	f := &fakeStreamer{batches: []bolt.StreamBatch{
		{Records: recordsOf(0, 1, 2), Success: successWithMore(false)},
	}}
	c := New(f, 3, nil, nil)
	_, err := c.Next()
	require.NoError(t, err)

	err = c.Seek(0)
	assert.Error(t, err)
}

func TestCursorDiscardReleasesOnce(t *testing.T) {
	f := &fakeStreamer{batches: []bolt.StreamBatch{
		{Records: recordsOf(0, 1, 2), Success: successWithMore(true)},
	}}
	releaseCount := 0
	c := New(f, 3, nil, func(error) { releaseCount++ })

	require.NoError(t, c.Discard())
	require.NoError(t, c.Discard())
	assert.Equal(t, 1, releaseCount)
	assert.Equal(t, call{"discard", int64(-1)}, f.calls[len(f.calls)-1])
}
