package packstream

import (
	"bytes"
	"io"
)

// MessageCodec combines chunking and structure packing into the
// message-at-a-time interface the Bolt connection state machine uses:
// WriteMessage encodes and chunks one Structure; ReadMessage reassembles
// and decodes one Value.
type MessageCodec struct {
	chunkW *ChunkWriter
	chunkR *ChunkReader
}

// NewMessageCodec wraps a bidirectional stream. chunkSize bounds outbound
// chunk size only; inbound chunk size is whatever the peer chose.
func NewMessageCodec(rw io.ReadWriter, chunkSize int) *MessageCodec {
	return &MessageCodec{
		chunkW: NewChunkWriter(rw, chunkSize),
		chunkR: NewChunkReader(rw),
	}
}

// WriteMessage encodes msg and flushes it as chunks terminated by the
// zero-length chunk.
func (c *MessageCodec) WriteMessage(msg Structure) error {
	if err := NewEncoder(c.chunkW).Encode(msg); err != nil {
		return err
	}
	return c.chunkW.Flush()
}

// ReadMessage reassembles the next chunked message and decodes it.
func (c *MessageCodec) ReadMessage() (Value, error) {
	raw, err := c.chunkR.ReadMessage()
	if err != nil {
		return nil, err
	}
	return NewDecoder(bytes.NewReader(raw)).Decode()
}
