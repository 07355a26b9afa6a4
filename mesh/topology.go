package mesh

import (
	"fmt"

	"github.com/notargets/meshrepart/attrtree"
)

// Topology is a typed view over a topology node.
type Topology struct{ Node *attrtree.Node }

func (t Topology) Kind() (TopologyKind, error) {
	n, ok := t.Node.Child("type")
	if !ok {
		return "", fmt.Errorf("mesh: topology has no type")
	}
	s, err := n.AsString()
	if err != nil {
		return "", err
	}
	return TopologyKind(s), nil
}

// CoordsetName returns the name of the coordset this topology references.
func (t Topology) CoordsetName() (string, error) {
	n, ok := t.Node.Child("coordset")
	if !ok {
		return "", fmt.Errorf("mesh: topology has no coordset reference")
	}
	return n.AsString()
}

// LogicalDims exposes the per-axis element counts of an implicit topology
// (uniform/rectilinear/structured), used by logical selections to enumerate
// and split IJK boxes.
func (t Topology) LogicalDims() ([]int, error) {
	return t.elementDims()
}

func (t Topology) elementDims() ([]int, error) {
	kind, err := t.Kind()
	if err != nil {
		return nil, err
	}
	if !kind.Implicit() {
		return nil, fmt.Errorf("mesh: elementDims only valid for implicit topologies")
	}
	if kind == TopologyStructured {
		dims, ok := t.Node.Child("elements")
		if !ok {
			return nil, fmt.Errorf("mesh: structured topology missing elements/dims")
		}
		d, ok := dims.Child("dims")
		if !ok {
			return nil, fmt.Errorf("mesh: structured topology missing elements/dims")
		}
		var out []int
		for _, name := range []string{"i", "j", "k"} {
			if v, ok := d.Child(name); ok {
				n, err := v.AsInt64()
				if err != nil {
					return nil, err
				}
				out = append(out, int(n))
			}
		}
		return out, nil
	}
	// uniform/rectilinear: element dims are point dims minus one per axis.
	cs, err := t.coordset()
	if err != nil {
		return nil, err
	}
	ptDims, err := cs.pointDims()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(ptDims))
	for i, d := range ptDims {
		if d < 1 {
			return nil, fmt.Errorf("mesh: coordset dim %d is degenerate", i)
		}
		if d == 1 {
			out[i] = 1
		} else {
			out[i] = d - 1
		}
	}
	return out, nil
}

// pointDims exposes per-axis point counts for uniform/rectilinear
// coordsets, used to derive implicit element counts.
func (c Coordset) pointDims() ([]int, error) {
	kind, err := c.Kind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case CoordsetUniform:
		return c.uniformDims()
	case CoordsetRectilinear:
		values, _ := c.Node.Child("values")
		axes, err := c.AxisNames()
		if err != nil {
			return nil, err
		}
		out := make([]int, len(axes))
		for i, a := range axes {
			an, _ := values.Child(a)
			out[i] = an.Len()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("mesh: pointDims only valid for uniform/rectilinear coordsets")
	}
}

func (t Topology) coordset() (Coordset, error) {
	root := t.Node.Parent() // topologies
	if root == nil {
		return Coordset{}, fmt.Errorf("mesh: detached topology has no domain")
	}
	domainNode := root.Parent()
	if domainNode == nil {
		return Coordset{}, fmt.Errorf("mesh: detached topology has no domain")
	}
	csName, err := t.CoordsetName()
	if err != nil {
		return Coordset{}, err
	}
	return NewDomain(domainNode).Coordset(csName)
}

// NumElements returns the element count for any topology kind.
func (t Topology) NumElements() (int, error) {
	kind, err := t.Kind()
	if err != nil {
		return 0, err
	}
	switch kind {
	case TopologyPoints:
		cs, err := t.coordset()
		if err != nil {
			return 0, err
		}
		return cs.NumPoints()
	case TopologyUnstructured:
		shapes, ok := t.Node.Child("elements")
		if !ok {
			return 0, fmt.Errorf("mesh: unstructured topology missing elements")
		}
		if sizes, ok := shapes.Child("sizes"); ok {
			return sizes.Len(), nil
		}
		shapeNode, ok := shapes.Child("shape")
		if !ok {
			return 0, fmt.Errorf("mesh: unstructured topology missing elements/shape")
		}
		shape, err := shapeNode.AsString()
		if err != nil {
			return 0, err
		}
		conn, ok := shapes.Child("connectivity")
		if !ok {
			return 0, fmt.Errorf("mesh: unstructured topology missing connectivity")
		}
		nv := shapeVertexCount(Shape(shape))
		if nv <= 0 {
			return 0, fmt.Errorf("mesh: cannot determine element count for shape %q without sizes", shape)
		}
		return conn.Len() / nv, nil
	default:
		dims, err := t.elementDims()
		if err != nil {
			return 0, err
		}
		n := 1
		for _, d := range dims {
			n *= d
		}
		return n, nil
	}
}

// shapeVertexCount returns the vertex count of a fixed-size shape, or 0 if
// the shape is variable-size (polygonal/polyhedral).
func shapeVertexCount(s Shape) int {
	switch s {
	case ShapePoint:
		return 1
	case ShapeLine:
		return 2
	case ShapeTri:
		return 3
	case ShapeQuad, ShapeTet:
		return 4
	case ShapeHex:
		return 8
	default:
		return 0
	}
}

// ElementVertices returns the (topology-local) vertex ids of element e, in
// the source topology's own numbering, for any topology kind. This is the
// "walk the source topology's connectivity" primitive used by the
// extractor (spec section 4.2 step 2).
func (t Topology) ElementVertices(e int) ([]int, error) {
	kind, err := t.Kind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case TopologyPoints:
		return []int{e}, nil
	case TopologyUnstructured:
		return t.unstructuredElementVertices(e)
	default:
		return t.implicitElementVertices(e)
	}
}

func (t Topology) implicitElementVertices(e int) ([]int, error) {
	dims, err := t.elementDims()
	if err != nil {
		return nil, err
	}
	cs, err := t.coordset()
	if err != nil {
		return nil, err
	}
	ptDims, err := cs.pointDims()
	if err != nil {
		return nil, err
	}
	ijk := unflattenIJK(e, dims)
	switch len(dims) {
	case 1:
		i := ijk[0]
		return []int{
			flattenIJK([]int{i}, ptDims),
			flattenIJK([]int{i + 1}, ptDims),
		}, nil
	case 2:
		i, j := ijk[0], ijk[1]
		return []int{
			flattenIJK([]int{i, j}, ptDims),
			flattenIJK([]int{i + 1, j}, ptDims),
			flattenIJK([]int{i + 1, j + 1}, ptDims),
			flattenIJK([]int{i, j + 1}, ptDims),
		}, nil
	case 3:
		i, j, k := ijk[0], ijk[1], ijk[2]
		return []int{
			flattenIJK([]int{i, j, k}, ptDims),
			flattenIJK([]int{i + 1, j, k}, ptDims),
			flattenIJK([]int{i + 1, j + 1, k}, ptDims),
			flattenIJK([]int{i, j + 1, k}, ptDims),
			flattenIJK([]int{i, j, k + 1}, ptDims),
			flattenIJK([]int{i + 1, j, k + 1}, ptDims),
			flattenIJK([]int{i + 1, j + 1, k + 1}, ptDims),
			flattenIJK([]int{i, j + 1, k + 1}, ptDims),
		}, nil
	default:
		return nil, fmt.Errorf("mesh: unsupported topology dimensionality %d", len(dims))
	}
}

func (t Topology) unstructuredElementVertices(e int) ([]int, error) {
	elements, ok := t.Node.Child("elements")
	if !ok {
		return nil, fmt.Errorf("mesh: unstructured topology missing elements")
	}
	conn, ok := elements.Child("connectivity")
	if !ok {
		return nil, fmt.Errorf("mesh: unstructured topology missing connectivity")
	}
	connArr, err := conn.Int64Array()
	if err != nil {
		return nil, err
	}
	if offsetsNode, ok := elements.Child("offsets"); ok {
		offsets, err := offsetsNode.Int64Array()
		if err != nil {
			return nil, err
		}
		if e < 0 || e >= len(offsets) {
			return nil, fmt.Errorf("mesh: element %d out of range", e)
		}
		start := offsets[e]
		var end int64
		if sizesNode, ok := elements.Child("sizes"); ok {
			sizes, err := sizesNode.Int64Array()
			if err != nil {
				return nil, err
			}
			end = start + sizes[e]
		} else if e+1 < len(offsets) {
			end = offsets[e+1]
		} else {
			end = int64(len(connArr))
		}
		out := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			out = append(out, int(connArr[i]))
		}
		return out, nil
	}
	shapeNode, ok := elements.Child("shape")
	if !ok {
		return nil, fmt.Errorf("mesh: unstructured topology missing shape and offsets")
	}
	shapeStr, err := shapeNode.AsString()
	if err != nil {
		return nil, err
	}
	nv := shapeVertexCount(Shape(shapeStr))
	if nv <= 0 {
		return nil, fmt.Errorf("mesh: shape %q requires offsets/sizes for variable connectivity", shapeStr)
	}
	start := e * nv
	if start+nv > len(connArr) {
		return nil, fmt.Errorf("mesh: element %d out of range", e)
	}
	out := make([]int, nv)
	for i := 0; i < nv; i++ {
		out[i] = int(connArr[start+i])
	}
	return out, nil
}

// ElementShape returns the shape of element e.
func (t Topology) ElementShape(e int) (Shape, error) {
	kind, err := t.Kind()
	if err != nil {
		return "", err
	}
	switch kind {
	case TopologyPoints:
		return ShapePoint, nil
	case TopologyUnstructured:
		elements, _ := t.Node.Child("elements")
		if shapes, ok := elements.Child("shapes"); ok {
			// per-element shape array of small ints is out of scope here;
			// homogeneous "shape" is the supported common case.
			_ = shapes
		}
		shapeNode, ok := elements.Child("shape")
		if !ok {
			return "", fmt.Errorf("mesh: unstructured topology missing shape")
		}
		s, err := shapeNode.AsString()
		return Shape(s), err
	default:
		dims, err := t.elementDims()
		if err != nil {
			return "", err
		}
		switch len(dims) {
		case 1:
			return ShapeLine, nil
		case 2:
			return ShapeQuad, nil
		case 3:
			return ShapeHex, nil
		default:
			return "", fmt.Errorf("mesh: unsupported dimensionality %d", len(dims))
		}
	}
}

// ShapeString returns the raw elements/shape string of an unstructured
// topology (e.g. "tri", "hex", "polygonal", "polyhedral").
func (t Topology) ShapeString() (string, error) {
	elements, ok := t.Node.Child("elements")
	if !ok {
		return "", fmt.Errorf("mesh: unstructured topology missing elements")
	}
	shapeNode, ok := elements.Child("shape")
	if !ok {
		return "", fmt.Errorf("mesh: unstructured topology missing shape")
	}
	return shapeNode.AsString()
}

// ShapeVertexCount exposes shapeVertexCount for callers outside the
// package (0 means variable-size, i.e. polygonal/polyhedral).
func ShapeVertexCount(s Shape) int { return shapeVertexCount(s) }

// IsPolyhedral reports whether the topology's elements/shape is
// "polyhedral"; it does not inspect any subelements block.
func (t Topology) IsPolyhedral() bool {
	elements, ok := t.Node.Child("elements")
	if !ok {
		return false
	}
	shapeNode, ok := elements.Child("shape")
	if !ok {
		return false
	}
	s, _ := shapeNode.AsString()
	return Shape(s) == ShapePolyhedr
}

// ToUnstructured converts any topology kind into an unstructured node
// referencing csname, with elements in ascending source-element order and
// no vertex remapping applied (spec section 4.2 step 4 does the id
// rewrite separately). It also returns each element's shape.
func (t Topology) ToUnstructured(csname string) (*attrtree.Node, []Shape, error) {
	n, err := t.NumElements()
	if err != nil {
		return nil, nil, err
	}
	shapes := make([]Shape, n)
	var conn []int64
	homogeneous := Shape("")
	mixed := false
	for e := 0; e < n; e++ {
		verts, err := t.ElementVertices(e)
		if err != nil {
			return nil, nil, err
		}
		shp, err := t.ElementShape(e)
		if err != nil {
			return nil, nil, err
		}
		shapes[e] = shp
		if homogeneous == "" {
			homogeneous = shp
		} else if homogeneous != shp {
			mixed = true
		}
		for _, v := range verts {
			conn = append(conn, int64(v))
		}
	}

	out := attrtree.NewObject("")
	out.SetScalarString("type", string(TopologyUnstructured))
	out.SetScalarString("coordset", csname)
	elements := out.Add("elements")
	if mixed {
		return nil, nil, fmt.Errorf("mesh: mixed-shape topology conversion not supported")
	}
	elements.SetScalarString("shape", string(homogeneous))
	elements.SetArrayInt64("connectivity", conn)
	return out, shapes, nil
}
