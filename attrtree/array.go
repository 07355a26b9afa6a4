package attrtree

import "fmt"

// SetArrayFloat64 replaces (or creates) a named array-leaf child, copying
// data into the tree's own storage.
func (n *Node) SetArrayFloat64(name string, data []float64) *Node {
	cp := make([]float64, len(data))
	copy(cp, data)
	child := &Node{kind: KindArray, dtype: Float64, array: cp}
	n.AddChild(name, child)
	return child
}

// SetArrayInt64 replaces (or creates) a named array-leaf child, copying
// data into the tree's own storage.
func (n *Node) SetArrayInt64(name string, data []int64) *Node {
	cp := make([]int64, len(data))
	copy(cp, data)
	child := &Node{kind: KindArray, dtype: Int64, array: cp}
	n.AddChild(name, child)
	return child
}

// SetArrayInt32 replaces (or creates) a named array-leaf child, copying
// data into the tree's own storage.
func (n *Node) SetArrayInt32(name string, data []int32) *Node {
	cp := make([]int32, len(data))
	copy(cp, data)
	child := &Node{kind: KindArray, dtype: Int32, array: cp}
	n.AddChild(name, child)
	return child
}

// SetExternalFloat64 borrows data without copying (set_external, spec
// section 6.1). Mutations to data are visible through the tree and vice
// versa.
func (n *Node) SetExternalFloat64(name string, data []float64) *Node {
	child := &Node{kind: KindArray, dtype: Float64, array: data, external: true}
	n.AddChild(name, child)
	return child
}

// SetExternalInt64 borrows data without copying.
func (n *Node) SetExternalInt64(name string, data []int64) *Node {
	child := &Node{kind: KindArray, dtype: Int64, array: data, external: true}
	n.AddChild(name, child)
	return child
}

// IsExternal reports whether this array leaf borrows its backing storage.
func (n *Node) IsExternal() bool { return n.external }

// DType returns the leaf's element type. Only meaningful for KindArray.
func (n *Node) DType() DType { return n.dtype }

// Len returns the number of elements in an array leaf.
func (n *Node) Len() int {
	if n.kind != KindArray {
		return 0
	}
	switch a := n.array.(type) {
	case []float64:
		return len(a)
	case []float32:
		return len(a)
	case []int64:
		return len(a)
	case []int32:
		return len(a)
	case []int16:
		return len(a)
	case []int8:
		return len(a)
	case []uint64:
		return len(a)
	case []uint32:
		return len(a)
	case []uint16:
		return len(a)
	case []uint8:
		return len(a)
	default:
		return 0
	}
}

// Float64Array returns an array leaf's contents converted to []float64.
func (n *Node) Float64Array() ([]float64, error) {
	if n.kind != KindArray {
		return nil, fmt.Errorf("attrtree: %q is not an array", n.name)
	}
	switch a := n.array.(type) {
	case []float64:
		return a, nil
	case []float32:
		out := make([]float64, len(a))
		for i, v := range a {
			out[i] = float64(v)
		}
		return out, nil
	default:
		ints, err := n.Int64Array()
		if err != nil {
			return nil, fmt.Errorf("attrtree: %q cannot convert to float64 array", n.name)
		}
		out := make([]float64, len(ints))
		for i, v := range ints {
			out[i] = float64(v)
		}
		return out, nil
	}
}

// Int64Array returns an array leaf's contents converted to []int64. It is
// the workhorse accessor used throughout the core for element/vertex id
// lists, which are always integral.
func (n *Node) Int64Array() ([]int64, error) {
	if n.kind != KindArray {
		return nil, fmt.Errorf("attrtree: %q is not an array", n.name)
	}
	switch a := n.array.(type) {
	case []int64:
		return a, nil
	case []int32:
		return widen32(a), nil
	case []int16:
		out := make([]int64, len(a))
		for i, v := range a {
			out[i] = int64(v)
		}
		return out, nil
	case []int8:
		out := make([]int64, len(a))
		for i, v := range a {
			out[i] = int64(v)
		}
		return out, nil
	case []uint64:
		out := make([]int64, len(a))
		for i, v := range a {
			out[i] = int64(v)
		}
		return out, nil
	case []uint32:
		out := make([]int64, len(a))
		for i, v := range a {
			out[i] = int64(v)
		}
		return out, nil
	case []uint16:
		out := make([]int64, len(a))
		for i, v := range a {
			out[i] = int64(v)
		}
		return out, nil
	case []uint8:
		out := make([]int64, len(a))
		for i, v := range a {
			out[i] = int64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("attrtree: %q is not an integer array", n.name)
	}
}

func widen32(a []int32) []int64 {
	out := make([]int64, len(a))
	for i, v := range a {
		out[i] = int64(v)
	}
	return out
}

// ArrayElementAsFloat64 returns element i of an array leaf as float64,
// used by Path's "[i]" suffix.
func (n *Node) ArrayElementAsFloat64(i int) (float64, error) {
	arr, err := n.Float64Array()
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(arr) {
		return 0, fmt.Errorf("attrtree: index %d out of range for %q (len %d)", i, n.name, len(arr))
	}
	return arr[i], nil
}
