package packstream

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
)

// ChunkWriter buffers one logical message's encoded bytes and flushes them
// as one or more uint16-length-prefixed chunks terminated by a zero-length
// chunk, per spec §4.1 ("Chunking"). It implements io.Writer so an Encoder
// can write directly into it.
type ChunkWriter struct {
	w         io.Writer
	chunkSize int
	buf       bytes.Buffer
}

// NewChunkWriter wraps w, splitting messages into chunks of at most
// chunkSize bytes (4096, matching the teacher's boltConn default, itself
// chosen to match a golang bufio.Reader's default size).
func NewChunkWriter(w io.Writer, chunkSize int) *ChunkWriter {
	if chunkSize <= 0 || chunkSize > 65535 {
		chunkSize = 4096
	}
	return &ChunkWriter{w: w, chunkSize: chunkSize}
}

// Write buffers bytes for the current logical message; it does not write to
// the underlying stream until Flush is called.
func (c *ChunkWriter) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

// Flush chunks the buffered message out to the stream and terminates it
// with the zero-length chunk, then resets the buffer for the next message.
func (c *ChunkWriter) Flush() error {
	defer c.buf.Reset()
	data := c.buf.Bytes()
	for len(data) > 0 {
		n := len(data)
		if n > c.chunkSize {
			n = c.chunkSize
		}
		var header [2]byte
		binary.BigEndian.PutUint16(header[:], uint16(n))
		if _, err := c.w.Write(header[:]); err != nil {
			return err
		}
		if _, err := c.w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	_, err := c.w.Write([]byte{0x00, 0x00})
	return err
}

// ChunkReader reassembles one logical message from its wire chunks. The
// message boundary is exactly the first zero-length chunk after non-zero
// chunks (spec §4.1 invariant).
type ChunkReader struct {
	r *bufio.Reader
}

// NewChunkReader wraps r.
func NewChunkReader(r io.Reader) *ChunkReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &ChunkReader{r: br}
}

// ReadMessage reads chunks until the terminating zero-length chunk and
// returns the reassembled message bytes.
func (c *ChunkReader) ReadMessage() ([]byte, error) {
	var out bytes.Buffer
	for {
		var header [2]byte
		if _, err := io.ReadFull(c.r, header[:]); err != nil {
			return nil, err
		}
		length := binary.BigEndian.Uint16(header[:])
		if length == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, c.r, int64(length)); err != nil {
			return nil, err
		}
	}
}

// Reader exposes the underlying buffered reader so a Decoder can read a
// reassembled message's bytes directly.
func (c *ChunkReader) Reader() *bufio.Reader { return c.r }
