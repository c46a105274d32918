// Package graph implements the wire representation of the graph-shaped
// structures a RECORD's fields may carry (Node/Relationship/Path), grounded
// on structures/graph/*.go. This is a necessary leaf of the wire codec, not
// the "high-level record-to-domain mapping" the spec's §1 Non-goals exclude
// (formatters) — it decodes only as far as these plain structs, with no
// user-domain typing layered on top.
package graph

import "github.com/go-graphdb/neobolt/bolt/packstream"

const (
	SigNode                byte = 0x4E
	SigRelationship        byte = 0x52
	SigPath                byte = 0x50
	SigUnboundRelationship byte = 0x72
)

func init() {
	packstream.RegisterStructure(SigNode, func(f []interface{}) (interface{}, error) {
		return decodeNode(f)
	})
	packstream.RegisterStructure(SigRelationship, func(f []interface{}) (interface{}, error) {
		return decodeRelationship(f)
	})
	packstream.RegisterStructure(SigUnboundRelationship, func(f []interface{}) (interface{}, error) {
		return decodeUnboundRelationship(f)
	})
	packstream.RegisterStructure(SigPath, func(f []interface{}) (interface{}, error) {
		return decodePath(f)
	})
}

// Node is a graph node: an identity, its labels, and its properties.
type Node struct {
	Identity   int64
	Labels     []string
	Properties map[string]interface{}
}

func (Node) Signature() byte { return SigNode }
func (n Node) Fields() []interface{} {
	labels := make([]interface{}, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = l
	}
	return []interface{}{n.Identity, labels, n.Properties}
}

// Relationship is a bound graph relationship between two node identities.
type Relationship struct {
	Identity      int64
	StartNodeID   int64
	EndNodeID     int64
	Type          string
	Properties    map[string]interface{}
}

func (Relationship) Signature() byte { return SigRelationship }
func (r Relationship) Fields() []interface{} {
	return []interface{}{r.Identity, r.StartNodeID, r.EndNodeID, r.Type, r.Properties}
}

// UnboundRelationship is a relationship as it appears inside a Path, with
// its endpoints implied by the path's node/sequence arrays rather than
// carried directly.
type UnboundRelationship struct {
	Identity   int64
	Type       string
	Properties map[string]interface{}
}

func (UnboundRelationship) Signature() byte { return SigUnboundRelationship }
func (r UnboundRelationship) Fields() []interface{} {
	return []interface{}{r.Identity, r.Type, r.Properties}
}

// Path is an alternating sequence of nodes and unbound relationships,
// encoded as three parallel arrays plus an index sequence describing the
// walk (relationship index negative ⇒ traversed in reverse).
type Path struct {
	Nodes         []Node
	Relationships []UnboundRelationship
	Sequence      []int64
}

func (Path) Signature() byte { return SigPath }
func (p Path) Fields() []interface{} {
	nodes := make([]interface{}, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = n
	}
	rels := make([]interface{}, len(p.Relationships))
	for i, r := range p.Relationships {
		rels[i] = r
	}
	seq := make([]interface{}, len(p.Sequence))
	for i, s := range p.Sequence {
		seq[i] = s
	}
	return []interface{}{nodes, rels, seq}
}

func asInt64(v interface{}, field string) (int64, error) {
	i, ok := v.(int64)
	if !ok {
		return 0, typeErrorf(field, v)
	}
	return i, nil
}

func asString(v interface{}, field string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", typeErrorf(field, v)
	}
	return s, nil
}

func asProps(v interface{}, field string) (map[string]interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, typeErrorf(field, v)
	}
	return m, nil
}

func asStringSlice(v interface{}, field string) ([]string, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, typeErrorf(field, v)
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, typeErrorf(field, item)
		}
		out[i] = s
	}
	return out, nil
}

func decodeNode(f []interface{}) (Node, error) {
	if len(f) != 3 {
		return Node{}, fieldCountErrorf("Node", 3, len(f))
	}
	id, err := asInt64(f[0], "Node.Identity")
	if err != nil {
		return Node{}, err
	}
	labels, err := asStringSlice(f[1], "Node.Labels")
	if err != nil {
		return Node{}, err
	}
	props, err := asProps(f[2], "Node.Properties")
	if err != nil {
		return Node{}, err
	}
	return Node{Identity: id, Labels: labels, Properties: props}, nil
}

func decodeRelationship(f []interface{}) (Relationship, error) {
	if len(f) != 5 {
		return Relationship{}, fieldCountErrorf("Relationship", 5, len(f))
	}
	id, err := asInt64(f[0], "Relationship.Identity")
	if err != nil {
		return Relationship{}, err
	}
	start, err := asInt64(f[1], "Relationship.StartNodeID")
	if err != nil {
		return Relationship{}, err
	}
	end, err := asInt64(f[2], "Relationship.EndNodeID")
	if err != nil {
		return Relationship{}, err
	}
	typ, err := asString(f[3], "Relationship.Type")
	if err != nil {
		return Relationship{}, err
	}
	props, err := asProps(f[4], "Relationship.Properties")
	if err != nil {
		return Relationship{}, err
	}
	return Relationship{Identity: id, StartNodeID: start, EndNodeID: end, Type: typ, Properties: props}, nil
}

func decodeUnboundRelationship(f []interface{}) (UnboundRelationship, error) {
	if len(f) != 3 {
		return UnboundRelationship{}, fieldCountErrorf("UnboundRelationship", 3, len(f))
	}
	id, err := asInt64(f[0], "UnboundRelationship.Identity")
	if err != nil {
		return UnboundRelationship{}, err
	}
	typ, err := asString(f[1], "UnboundRelationship.Type")
	if err != nil {
		return UnboundRelationship{}, err
	}
	props, err := asProps(f[2], "UnboundRelationship.Properties")
	if err != nil {
		return UnboundRelationship{}, err
	}
	return UnboundRelationship{Identity: id, Type: typ, Properties: props}, nil
}

func decodePath(f []interface{}) (Path, error) {
	if len(f) != 3 {
		return Path{}, fieldCountErrorf("Path", 3, len(f))
	}
	nodesRaw, ok := f[0].([]interface{})
	if !ok {
		return Path{}, typeErrorf("Path.Nodes", f[0])
	}
	nodes := make([]Node, len(nodesRaw))
	for i, raw := range nodesRaw {
		n, ok := raw.(Node)
		if !ok {
			return Path{}, typeErrorf("Path.Nodes[i]", raw)
		}
		nodes[i] = n
	}
	relsRaw, ok := f[1].([]interface{})
	if !ok {
		return Path{}, typeErrorf("Path.Relationships", f[1])
	}
	rels := make([]UnboundRelationship, len(relsRaw))
	for i, raw := range relsRaw {
		r, ok := raw.(UnboundRelationship)
		if !ok {
			return Path{}, typeErrorf("Path.Relationships[i]", raw)
		}
		rels[i] = r
	}
	seqRaw, ok := f[2].([]interface{})
	if !ok {
		return Path{}, typeErrorf("Path.Sequence", f[2])
	}
	seq := make([]int64, len(seqRaw))
	for i, raw := range seqRaw {
		s, ok := raw.(int64)
		if !ok {
			return Path{}, typeErrorf("Path.Sequence[i]", raw)
		}
		seq[i] = s
	}
	return Path{Nodes: nodes, Relationships: rels, Sequence: seq}, nil
}
