package packstream

import (
	"encoding/binary"
	"io"
	"math"
)

// Encoder writes Values to a stream using PackStream encoding. It always
// picks the smallest size class that fits, per spec §4.1's "MUST choose the
// smallest size class" invariant.
type Encoder struct {
	w   io.Writer
	buf [9]byte
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) write(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// Encode writes one Value.
func (e *Encoder) Encode(v Value) error {
	switch val := v.(type) {
	case nil:
		return e.write([]byte{nilMarker})
	case bool:
		if val {
			return e.write([]byte{trueMarker})
		}
		return e.write([]byte{falseMarker})
	case int:
		return e.encodeInt(int64(val))
	case int8:
		return e.encodeInt(int64(val))
	case int16:
		return e.encodeInt(int64(val))
	case int32:
		return e.encodeInt(int64(val))
	case int64:
		return e.encodeInt(val)
	case uint:
		return e.encodeUint(uint64(val))
	case uint8:
		return e.encodeInt(int64(val))
	case uint16:
		return e.encodeInt(int64(val))
	case uint32:
		return e.encodeInt(int64(val))
	case uint64:
		return e.encodeUint(val)
	case float32:
		return e.encodeFloat(float64(val))
	case float64:
		return e.encodeFloat(val)
	case string:
		return e.encodeString(val)
	case []byte:
		return e.encodeBytes(val)
	case []interface{}:
		return e.encodeList(val)
	case map[string]interface{}:
		return e.encodeMap(val)
	case Structure:
		return e.encodeStructure(val)
	default:
		return typeError("unsupported type for encoding: %T", v)
	}
}

func (e *Encoder) encodeUint(val uint64) error {
	if val > math.MaxInt64 {
		return typeError("integer too large to encode: %d", val)
	}
	return e.encodeInt(int64(val))
}

func (e *Encoder) encodeInt(val int64) error {
	switch {
	case val >= -16 && val <= 127:
		return e.write([]byte{byte(int8(val))})
	case val >= -128 && val <= -17:
		return e.write([]byte{int8Marker, byte(int8(val))})
	case val >= -32768 && val <= 32767:
		binary.BigEndian.PutUint16(e.buf[:2], uint16(int16(val)))
		return e.write(append([]byte{int16Marker}, e.buf[:2]...))
	case val >= -2147483648 && val <= 2147483647:
		binary.BigEndian.PutUint32(e.buf[:4], uint32(int32(val)))
		return e.write(append([]byte{int32Marker}, e.buf[:4]...))
	default:
		binary.BigEndian.PutUint64(e.buf[:8], uint64(val))
		return e.write(append([]byte{int64Marker}, e.buf[:8]...))
	}
}

func (e *Encoder) encodeFloat(val float64) error {
	binary.BigEndian.PutUint64(e.buf[:8], math.Float64bits(val))
	return e.write(append([]byte{floatMarker}, e.buf[:8]...))
}

func (e *Encoder) encodeSizedHeader(tiny, m8, m16, m32 byte, length int) error {
	switch {
	case length <= 15:
		return e.write([]byte{tiny + byte(length)})
	case length <= 255:
		return e.write([]byte{m8, byte(length)})
	case length <= 65535:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(length))
		return e.write(append([]byte{m16}, b[:]...))
	case length <= 4294967295:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(length))
		return e.write(append([]byte{m32}, b[:]...))
	default:
		return typeError("value too long to encode: %d bytes", length)
	}
}

func (e *Encoder) encodeString(val string) error {
	b := []byte(val)
	if err := e.encodeSizedHeader(tinyStringMarker, string8Marker, string16Marker, string32Marker, len(b)); err != nil {
		return err
	}
	return e.write(b)
}

// encodeBytes encodes a byte slice as a PackStream List of integers, one
// per byte (0-127 pack as TINY_INT, 128-255 as INT_16); the dedicated BYTES
// marker family of modern Bolt is not used. This driver only needs
// String/List/Map/Struct at the value layer per spec §9, and the teacher's
// encoder had no BYTES support at all. Callers that
// need the dedicated BYTES wire type should use message-level raw framing
// instead of passing []byte through Encode.
func (e *Encoder) encodeBytes(val []byte) error {
	items := make([]interface{}, len(val))
	for i, b := range val {
		items[i] = int64(b)
	}
	return e.encodeList(items)
}

func (e *Encoder) encodeList(val []interface{}) error {
	if err := e.encodeSizedHeader(tinyListMarker, list8Marker, list16Marker, list32Marker, len(val)); err != nil {
		return err
	}
	for _, item := range val {
		if err := e.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeMap(val map[string]interface{}) error {
	if err := e.encodeSizedHeader(tinyMapMarker, map8Marker, map16Marker, map32Marker, len(val)); err != nil {
		return err
	}
	// Dictionary entry order is preserved on the wire but semantically
	// unordered (spec §4.1); Go map iteration order is arbitrary, which is
	// fine since order carries no meaning.
	for k, v := range val {
		if err := e.encodeString(k); err != nil {
			return err
		}
		if err := e.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeStructure(val Structure) error {
	fields := val.Fields()
	length := len(fields)
	var err error
	switch {
	case length <= 15:
		err = e.write([]byte{tinyStructMarker + byte(length)})
	case length <= 255:
		err = e.write([]byte{struct8Marker, byte(length)})
	default:
		return typeError("structure too long to encode: %d fields", length)
	}
	if err != nil {
		return err
	}
	if err := e.write([]byte{val.Signature()}); err != nil {
		return err
	}
	for _, f := range fields {
		if err := e.Encode(f); err != nil {
			return err
		}
	}
	return nil
}
