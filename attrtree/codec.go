package attrtree

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// wireNode is the gob-friendly shadow of Node. Node itself is not
// gob-encodable directly because its array/scalar fields are `any`; wireNode
// pins down one field per possible payload type so gob never needs to
// register interface implementations.
type wireNode struct {
	Name     string
	Kind     Kind
	Children []wireNode

	DType   DType
	IntData []int64
	FltData []float64

	ScalarIsString bool
	ScalarIsInt    bool
	ScalarIsFloat  bool
	ScalarString   string
	ScalarInt      int64
	ScalarFloat    float64
}

func toWire(n *Node) wireNode {
	w := wireNode{Name: n.name, Kind: n.kind}
	switch n.kind {
	case KindObject:
		w.Children = make([]wireNode, len(n.children))
		for i, c := range n.children {
			w.Children[i] = toWire(c)
		}
	case KindArray:
		w.DType = n.dtype
		switch n.dtype {
		case Float32, Float64:
			arr, _ := n.Float64Array()
			w.FltData = append([]float64(nil), arr...)
		default:
			arr, _ := n.Int64Array()
			w.IntData = append([]int64(nil), arr...)
		}
	case KindScalar:
		switch v := n.scalar.(type) {
		case string:
			w.ScalarIsString = true
			w.ScalarString = v
		case int64:
			w.ScalarIsInt = true
			w.ScalarInt = v
		case float64:
			w.ScalarIsFloat = true
			w.ScalarFloat = v
		}
	}
	return w
}

func fromWire(w wireNode) *Node {
	n := &Node{name: w.Name, kind: w.Kind}
	switch w.Kind {
	case KindObject:
		n.index = make(map[string]int)
		for _, cw := range w.Children {
			c := fromWire(cw)
			c.parent = n
			n.index[c.name] = len(n.children)
			n.children = append(n.children, c)
		}
	case KindArray:
		n.dtype = w.DType
		switch w.DType {
		case Float32, Float64:
			n.array = w.FltData
		default:
			n.array = w.IntData
		}
	case KindScalar:
		switch {
		case w.ScalarIsString:
			n.scalar = w.ScalarString
		case w.ScalarIsInt:
			n.scalar = w.ScalarInt
		case w.ScalarIsFloat:
			n.scalar = w.ScalarFloat
		}
	}
	return n
}

// Layout describes a sub-tree's shape (names, kinds, dtypes, lengths)
// without its payload, matching the "exchanges layout then payload" wording
// of spec section 4.5 so a receiver can pre-allocate before the bulk
// transfer arrives.
type Layout struct {
	Name     string
	Kind     Kind
	DType    DType
	Length   int
	Children []Layout
}

// DescribeLayout produces the Layout for n without copying array data.
func DescribeLayout(n *Node) Layout {
	l := Layout{Name: n.name, Kind: n.kind, DType: n.dtype, Length: n.Len()}
	for _, c := range n.children {
		l.Children = append(l.Children, DescribeLayout(c))
	}
	return l
}

// Marshal serializes a sub-tree for transport (spec section 6.1).
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(toWire(n)); err != nil {
		return nil, fmt.Errorf("attrtree: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal reconstructs a sub-tree previously produced by Marshal.
func Unmarshal(data []byte) (*Node, error) {
	var w wireNode
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, fmt.Errorf("attrtree: unmarshal: %w", err)
	}
	return fromWire(w), nil
}

// Clone deep-copies a sub-tree, always producing owned (non-external)
// storage even if the source borrowed data via SetExternal*.
func Clone(n *Node) *Node {
	return fromWire(toWire(n))
}
