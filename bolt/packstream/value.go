// Package packstream implements the Bolt wire codec: PackStream structure
// packing (spec §4.1 "Structure packing") plus message chunking (spec §4.1
// "Chunking"). It is grounded on the teacher's encoding/{encoding,encoder,
// decoder}.go, generalized from a single ad hoc Encode/Decode pair into the
// tagged-sum Value model spec §9 calls for ("Dynamic typing at the wire
// boundary"), and fixed where the teacher's size-class math over- or
// under-shifted bytes (its String8/16/32 and List/Map 16/32 branches all
// wrote only the low byte of a multi-byte length).
package packstream

import "fmt"

// Structure is anything with a signature byte and an ordered field list —
// the wire shape of HELLO, RUN, BEGIN, SUCCESS, RECORD, a graph Node, etc.
// Concrete structures live in bolt/message and bolt/graph; this package only
// needs the interface to encode/decode them generically.
type Structure interface {
	Signature() byte
	Fields() []interface{}
}

// StructureDecoder reconstructs a concrete Structure from a signature byte
// and its decoded fields. Registered per signature so the decoder never
// needs to import bolt/message or bolt/graph (avoiding an import cycle).
type StructureDecoder func(fields []interface{}) (interface{}, error)

var structureDecoders = map[byte]StructureDecoder{}

// RegisterStructure installs the decoder for a structure signature. Called
// from package init() in bolt/message and bolt/graph.
func RegisterStructure(sig byte, dec StructureDecoder) {
	structureDecoders[sig] = dec
}

// Value is the tagged sum of every PackStream-representable Go value this
// driver round-trips: Null | Bool | Int(i64) | Float(f64) | String |
// List([]interface{}) | Map(map[string]interface{}) | Struct (any
// registered Structure). A []byte is accepted by the encoder but is sent as
// a List of integers, so it decodes as []interface{} of int64, not as
// []byte. Value is deliberately `interface{}` rather than a closed sum type
// — the encoder switches on Go's dynamic type, and the decoder always
// returns nil, bool, int64, float64, string, []interface{} or
// map[string]interface{}, plus whatever RegisterStructure produced. Coercion helpers ("get as int") are a thin
// layer over this, outside the core (spec §9).
type Value = interface{}

func typeError(format string, args ...interface{}) error {
	return fmt.Errorf("packstream: "+format, args...)
}
