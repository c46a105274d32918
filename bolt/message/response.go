package message

import (
	"fmt"

	"github.com/go-graphdb/neobolt/bolt/packstream"
)

func init() {
	packstream.RegisterStructure(SigSuccess, func(f []interface{}) (interface{}, error) {
		md, err := asMap(f, 0)
		if err != nil {
			return nil, err
		}
		return Success{Metadata: md}, nil
	})
	packstream.RegisterStructure(SigRecord, func(f []interface{}) (interface{}, error) {
		values, err := asList(f, 0)
		if err != nil {
			return nil, err
		}
		return Record{Values: values}, nil
	})
	packstream.RegisterStructure(SigIgnored, func(f []interface{}) (interface{}, error) {
		return Ignored{}, nil
	})
	packstream.RegisterStructure(SigFailure, func(f []interface{}) (interface{}, error) {
		md, err := asMap(f, 0)
		if err != nil {
			return nil, err
		}
		return Failure{Metadata: md}, nil
	})
}

func asMap(fields []interface{}, i int) (map[string]interface{}, error) {
	if i >= len(fields) {
		return map[string]interface{}{}, nil
	}
	if fields[i] == nil {
		return map[string]interface{}{}, nil
	}
	m, ok := fields[i].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("message: expected metadata map, got %T", fields[i])
	}
	return m, nil
}

func asList(fields []interface{}, i int) ([]interface{}, error) {
	if i >= len(fields) {
		return nil, nil
	}
	l, ok := fields[i].([]interface{})
	if !ok {
		return nil, fmt.Errorf("message: expected fields list, got %T", fields[i])
	}
	return l, nil
}

// Success carries SUCCESS metadata: bookmark, fields (header), has_more,
// db, t_first/t_last, type, counters, plan, notifications, connection_id
// (HELLO), routing table payload (ROUTE), etc. Left as a loosely-typed map
// per spec §9 ("type coercions live in a thin helper layer").
type Success struct {
	Metadata map[string]interface{}
}

func (Success) Signature() byte           { return SigSuccess }
func (s Success) Fields() []interface{}   { return []interface{}{s.Metadata} }

// HasMore reports the SUCCESS metadata's has_more flag (spec §4.2: "server
// may report has_more: true").
func (s Success) HasMore() bool {
	v, ok := s.Metadata["has_more"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Bookmark returns the bookmark string reported at commit/auto-commit-end,
// empty if none was reported.
func (s Success) Bookmark() string {
	v, ok := s.Metadata["bookmark"]
	if !ok {
		return ""
	}
	b, _ := v.(string)
	return b
}

// FieldNames returns the RUN response's field-name header ("fields" metadata
// key), used to build a cursor's keys() (spec §9 open question).
func (s Success) FieldNames() []string {
	v, ok := s.Metadata["fields"]
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, len(list))
	for i, item := range list {
		if s, ok := item.(string); ok {
			out[i] = s
		}
	}
	return out
}

// Record is one result row, field-aligned to the preceding RUN's header.
type Record struct {
	Values []interface{}
}

func (Record) Signature() byte        { return SigRecord }
func (r Record) Fields() []interface{} { return r.Values }

// Ignored is returned for any message sent while the connection is in
// FAILED state (spec §4.2 transition table, "ignore").
type Ignored struct{}

func (Ignored) Signature() byte       { return SigIgnored }
func (Ignored) Fields() []interface{} { return []interface{}{} }

// Failure carries a classified (code, message) pair (spec §7).
type Failure struct {
	Metadata map[string]interface{}
}

func (Failure) Signature() byte         { return SigFailure }
func (f Failure) Fields() []interface{} { return []interface{}{f.Metadata} }

func (f Failure) Code() string {
	v, _ := f.Metadata["code"].(string)
	return v
}

func (f Failure) Message() string {
	v, _ := f.Metadata["message"].(string)
	return v
}
