// Package attrtree implements the hierarchical attribute tree that the
// partitioning core consumes and produces (spec section "external
// interfaces", operations 6.1). It is a minimal, schema-agnostic stand-in
// for the mesh-schema library the real system defers to: a node is either
// an object with ordered named children, a contiguous typed array leaf, or
// a scalar leaf.
package attrtree

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies what a Node holds.
type Kind int

const (
	KindObject Kind = iota
	KindArray
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// DType is one of the contiguous array element types named in spec section
// 6.1: i8,i16,i32,i64,u8,u16,u32,u64,f32,f64.
type DType int

const (
	Int8 DType = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

// Node is one node of the attribute tree.
type Node struct {
	name     string
	parent   *Node
	kind     Kind
	children []*Node
	index    map[string]int

	dtype    DType
	array    any // one of []int8 ... []float64, present when kind == KindArray
	external bool

	scalar any // present when kind == KindScalar
}

// NewObject creates a detached object node.
func NewObject(name string) *Node {
	return &Node{name: name, kind: KindObject, index: make(map[string]int)}
}

// Name returns the node's own name (empty for a detached root).
func (n *Node) Name() string { return n.name }

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.kind }

// Parent returns the node's parent, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Add returns the named child, first appending an empty object child of
// that name if none exists; an existing child is returned unchanged.
func (n *Node) Add(name string) *Node {
	if n.kind != KindObject {
		panic(fmt.Sprintf("attrtree: Add called on non-object node %q", n.name))
	}
	if i, ok := n.index[name]; ok {
		return n.children[i]
	}
	child := NewObject(name)
	child.parent = n
	n.index[name] = len(n.children)
	n.children = append(n.children, child)
	return child
}

// AddChild attaches an existing detached node under n with the given name,
// preserving insertion order. If a child with that name already exists it
// is replaced in place (order preserved).
func (n *Node) AddChild(name string, child *Node) {
	if n.kind != KindObject {
		panic(fmt.Sprintf("attrtree: AddChild called on non-object node %q", n.name))
	}
	child.name = name
	child.parent = n
	if i, ok := n.index[name]; ok {
		n.children[i] = child
		return
	}
	n.index[name] = len(n.children)
	n.children = append(n.children, child)
}

// Child looks up an immediate named child.
func (n *Node) Child(name string) (*Node, bool) {
	if n.kind != KindObject {
		return nil, false
	}
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.children[i], true
}

// HasChild reports whether name is an immediate child.
func (n *Node) HasChild(name string) bool {
	_, ok := n.Child(name)
	return ok
}

// Children returns the node's children in insertion order. Do not mutate
// the returned slice.
func (n *Node) Children() []*Node { return n.children }

// ChildNames returns the names of the node's children in insertion order.
func (n *Node) ChildNames() []string {
	names := make([]string, len(n.children))
	for i, c := range n.children {
		names[i] = c.name
	}
	return names
}

// Path resolves a "/"-separated path with an optional trailing "[i]" array
// index suffix on the final segment, e.g. "topologies/mesh/type" or
// "fields/temp/values[3]" (the latter returns a detached scalar node
// holding element i of the array leaf "fields/temp/values").
func (n *Node) Path(path string) (*Node, error) {
	if path == "" {
		return n, nil
	}
	segs := strings.Split(path, "/")
	cur := n
	for i, seg := range segs {
		name, idx, hasIdx := splitIndexSuffix(seg)
		child, ok := cur.Child(name)
		if !ok {
			return nil, fmt.Errorf("attrtree: path %q: no child %q at %q", path, name, cur.name)
		}
		cur = child
		if hasIdx {
			if i != len(segs)-1 {
				return nil, fmt.Errorf("attrtree: path %q: array index suffix only valid on final segment", path)
			}
			if cur.kind != KindArray {
				return nil, fmt.Errorf("attrtree: path %q: %q is not an array", path, name)
			}
			v, err := cur.ArrayElementAsFloat64(idx)
			if err != nil {
				return nil, err
			}
			return ScalarFloat64("", v), nil
		}
	}
	return cur, nil
}

func splitIndexSuffix(seg string) (name string, idx int, has bool) {
	open := strings.IndexByte(seg, '[')
	if open < 0 || !strings.HasSuffix(seg, "]") {
		return seg, 0, false
	}
	name = seg[:open]
	n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil {
		return seg, 0, false
	}
	return name, n, true
}

// ScalarFloat64 builds a detached scalar leaf holding a float64.
func ScalarFloat64(name string, v float64) *Node {
	return &Node{name: name, kind: KindScalar, scalar: v}
}

// ScalarInt64 builds a detached scalar leaf holding an int64.
func ScalarInt64(name string, v int64) *Node {
	return &Node{name: name, kind: KindScalar, scalar: v}
}

// ScalarString builds a detached scalar leaf holding a string.
func ScalarString(name string, v string) *Node {
	return &Node{name: name, kind: KindScalar, scalar: v}
}

// AsFloat64 returns a scalar's value as float64.
func (n *Node) AsFloat64() (float64, error) {
	if n.kind != KindScalar {
		return 0, fmt.Errorf("attrtree: %q is not a scalar", n.name)
	}
	switch v := n.scalar.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("attrtree: scalar %q is not numeric", n.name)
	}
}

// AsInt64 returns a scalar's value as int64.
func (n *Node) AsInt64() (int64, error) {
	if n.kind != KindScalar {
		return 0, fmt.Errorf("attrtree: %q is not a scalar", n.name)
	}
	switch v := n.scalar.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("attrtree: scalar %q is not numeric", n.name)
	}
}

// AsString returns a scalar's value as string.
func (n *Node) AsString() (string, error) {
	if n.kind != KindScalar {
		return "", fmt.Errorf("attrtree: %q is not a scalar", n.name)
	}
	if s, ok := n.scalar.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("attrtree: scalar %q is not a string", n.name)
}

// SetScalarInt64 sets or replaces a named scalar child holding v.
func (n *Node) SetScalarInt64(name string, v int64) {
	n.AddChild(name, &Node{kind: KindScalar, scalar: v})
}

// SetScalarFloat64 sets or replaces a named scalar child holding v.
func (n *Node) SetScalarFloat64(name string, v float64) {
	n.AddChild(name, &Node{kind: KindScalar, scalar: v})
}

// SetScalarString sets or replaces a named scalar child holding v.
func (n *Node) SetScalarString(name string, v string) {
	n.AddChild(name, &Node{kind: KindScalar, scalar: v})
}
