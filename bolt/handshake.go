package bolt

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/go-graphdb/neobolt/neoerr"
)

// magicPreamble is the 4-byte Bolt handshake magic (spec §4.2 "Handshake",
// §6 "handshake magic `0x6060B017`"), grounded on driver.go's
// magicPreamble constant.
var magicPreamble = []byte{0x60, 0x60, 0xB0, 0x17}

// DefaultProposedVersions lists, highest-preferred-first, the protocol
// versions this driver offers during handshake. Bolt v4.3 is the newest
// version whose wire shapes this driver implements (ROUTE with database
// name, richer transaction metadata, spec §4.2).
var DefaultProposedVersions = [4]uint32{
	versionEncode(4, 3),
	versionEncode(4, 1),
	versionEncode(4, 0),
	versionEncode(3, 0),
}

func versionEncode(major, minor byte) uint32 {
	return uint32(minor)<<8 | uint32(major)
}

func versionDecode(v uint32) (major, minor byte) {
	return byte(v & 0xFF), byte((v >> 8) & 0xFF)
}

// performHandshake writes the magic preamble and four proposed versions,
// then reads back the single agreed version. Zero means "none agreed" and
// is reported to the caller as a protocol error; the caller marks the
// connection DEFUNCT (spec §4.2 "Zero ⇒ connection is DEFUNCT").
func performHandshake(rw io.ReadWriter, proposed [4]uint32) (uint32, error) {
	if _, err := rw.Write(magicPreamble); err != nil {
		return 0, neoerr.Classify(neoerr.KindIO, "writing handshake magic: %v", err)
	}

	var buf bytes.Buffer
	for _, v := range proposed {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf.Write(b[:])
	}
	if _, err := rw.Write(buf.Bytes()); err != nil {
		return 0, neoerr.Classify(neoerr.KindIO, "writing proposed versions: %v", err)
	}

	var resp [4]byte
	if _, err := io.ReadFull(rw, resp[:]); err != nil {
		return 0, neoerr.Classify(neoerr.KindIO, "reading handshake response: %v", err)
	}

	agreed := binary.BigEndian.Uint32(resp[:])
	if agreed == 0 {
		return 0, neoerr.Classify(neoerr.KindProtocol, "server agreed to no proposed protocol version")
	}
	return agreed, nil
}
