package mesh

import (
	"fmt"

	"github.com/notargets/meshrepart/attrtree"
)

// Coordset is a typed view over a coordinate-set node.
type Coordset struct{ Node *attrtree.Node }

// Kind returns the coordset's representation.
func (c Coordset) Kind() (CoordsetKind, error) {
	t, ok := c.Node.Child("type")
	if !ok {
		return "", fmt.Errorf("mesh: coordset has no type")
	}
	s, err := t.AsString()
	if err != nil {
		return "", err
	}
	return CoordsetKind(s), nil
}

// AxisNames returns the ordered list of axis names present (a prefix of
// x,y,z for uniform coordsets, the x/y/z children of values otherwise),
// which also fixes the dimensionality.
func (c Coordset) AxisNames() ([]string, error) {
	kind, err := c.Kind()
	if err != nil {
		return nil, err
	}
	if kind == CoordsetUniform {
		dims, err := c.uniformDims()
		if err != nil {
			return nil, err
		}
		return []string{"x", "y", "z"}[:len(dims)], nil
	}
	values, ok := c.Node.Child("values")
	if !ok {
		return nil, fmt.Errorf("mesh: coordset has no values")
	}
	candidates := []string{"x", "y", "z"}
	var axes []string
	for _, a := range candidates {
		if values.HasChild(a) {
			axes = append(axes, a)
		}
	}
	if len(axes) == 0 {
		return nil, fmt.Errorf("mesh: coordset has no recognized axes")
	}
	return axes, nil
}

// uniformDims reads dims/i, dims/j, dims/k (point counts per axis) for a
// uniform coordset.
func (c Coordset) uniformDims() ([]int, error) {
	dims, ok := c.Node.Child("dims")
	if !ok {
		return nil, fmt.Errorf("mesh: uniform coordset has no dims")
	}
	var out []int
	for _, name := range []string{"i", "j", "k"} {
		if v, ok := dims.Child(name); ok {
			n, err := v.AsInt64()
			if err != nil {
				return nil, err
			}
			out = append(out, int(n))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("mesh: uniform coordset dims empty")
	}
	return out, nil
}

func (c Coordset) uniformOriginSpacing() (origin, spacing []float64, err error) {
	dims, derr := c.uniformDims()
	if derr != nil {
		return nil, nil, derr
	}
	axes := []string{"x", "y", "z"}[:len(dims)]
	originNode, _ := c.Node.Child("origin")
	spacingNode, _ := c.Node.Child("spacing")
	origin = make([]float64, len(axes))
	spacing = make([]float64, len(axes))
	for i, a := range axes {
		if originNode != nil {
			if v, ok := originNode.Child(a); ok {
				f, _ := v.AsFloat64()
				origin[i] = f
			}
		}
		spacing[i] = 1.0
		if spacingNode != nil {
			if v, ok := spacingNode.Child("d" + a); ok {
				f, _ := v.AsFloat64()
				spacing[i] = f
			}
		}
	}
	return origin, spacing, nil
}

// PointCoordsAxis returns the full per-axis point coordinate array for a
// uniform or rectilinear coordset (uniform values are materialized from
// origin/spacing). Used to slice a logical IJK sub-box out of an implicit
// topology while keeping the result structured (spec section 4.6 Step B).
func (c Coordset) PointCoordsAxis(axis int) ([]float64, error) {
	kind, err := c.Kind()
	if err != nil {
		return nil, err
	}
	switch kind {
	case CoordsetUniform:
		dims, err := c.uniformDims()
		if err != nil {
			return nil, err
		}
		if axis < 0 || axis >= len(dims) {
			return nil, fmt.Errorf("mesh: axis %d out of range", axis)
		}
		origin, spacing, err := c.uniformOriginSpacing()
		if err != nil {
			return nil, err
		}
		out := make([]float64, dims[axis])
		for i := range out {
			out[i] = origin[axis] + float64(i)*spacing[axis]
		}
		return out, nil
	case CoordsetRectilinear:
		axes, err := c.AxisNames()
		if err != nil {
			return nil, err
		}
		if axis < 0 || axis >= len(axes) {
			return nil, fmt.Errorf("mesh: axis %d out of range", axis)
		}
		values, _ := c.Node.Child("values")
		an, _ := values.Child(axes[axis])
		return an.Float64Array()
	default:
		return nil, fmt.Errorf("mesh: PointCoordsAxis only valid for uniform/rectilinear coordsets")
	}
}

// NumPoints returns the total point count implied by the coordset.
func (c Coordset) NumPoints() (int, error) {
	kind, err := c.Kind()
	if err != nil {
		return 0, err
	}
	switch kind {
	case CoordsetUniform:
		dims, err := c.uniformDims()
		if err != nil {
			return 0, err
		}
		n := 1
		for _, d := range dims {
			n *= d
		}
		return n, nil
	case CoordsetRectilinear:
		values, _ := c.Node.Child("values")
		axes, err := c.AxisNames()
		if err != nil {
			return 0, err
		}
		n := 1
		for _, a := range axes {
			axisNode, _ := values.Child(a)
			n *= axisNode.Len()
		}
		return n, nil
	case CoordsetExplicit:
		values, _ := c.Node.Child("values")
		axes, err := c.AxisNames()
		if err != nil {
			return 0, err
		}
		axisNode, _ := values.Child(axes[0])
		return axisNode.Len(), nil
	default:
		return 0, fmt.Errorf("mesh: unknown coordset kind %q", kind)
	}
}

// ToExplicit expands a uniform/rectilinear coordset into an explicit one
// with per-point X/Y/Z arrays, in the standard row-major IJK point
// ordering (i fastest). Explicit sources are returned unchanged (copied).
func (c Coordset) ToExplicit() (*attrtree.Node, []int, error) {
	kind, err := c.Kind()
	if err != nil {
		return nil, nil, err
	}
	axes := []string{"x", "y", "z"}
	switch kind {
	case CoordsetExplicit:
		values, _ := c.Node.Child("values")
		presentAxes, err := c.AxisNames()
		if err != nil {
			return nil, nil, err
		}
		axisLen := 0
		out := attrtree.NewObject("")
		out.SetScalarString("type", string(CoordsetExplicit))
		outValues := out.Add("values")
		for _, a := range presentAxes {
			an, _ := values.Child(a)
			arr, err := an.Float64Array()
			if err != nil {
				return nil, nil, err
			}
			axisLen = len(arr)
			outValues.SetArrayFloat64(a, arr)
		}
		dims := []int{axisLen}
		return out, dims, nil

	case CoordsetUniform:
		dims, err := c.uniformDims()
		if err != nil {
			return nil, nil, err
		}
		origin, spacing, err := c.uniformOriginSpacing()
		if err != nil {
			return nil, nil, err
		}
		npts := 1
		for _, d := range dims {
			npts *= d
		}
		coords := make([][]float64, len(dims))
		for a := range coords {
			coords[a] = make([]float64, npts)
		}
		for p := 0; p < npts; p++ {
			ijk := unflattenIJK(p, dims)
			for a := range dims {
				coords[a][p] = origin[a] + float64(ijk[a])*spacing[a]
			}
		}
		out := attrtree.NewObject("")
		out.SetScalarString("type", string(CoordsetExplicit))
		outValues := out.Add("values")
		for a := range dims {
			outValues.SetArrayFloat64(axes[a], coords[a])
		}
		return out, dims, nil

	case CoordsetRectilinear:
		values, _ := c.Node.Child("values")
		presentAxes, err := c.AxisNames()
		if err != nil {
			return nil, nil, err
		}
		axisVals := make([][]float64, len(presentAxes))
		dims := make([]int, len(presentAxes))
		for i, a := range presentAxes {
			an, _ := values.Child(a)
			arr, err := an.Float64Array()
			if err != nil {
				return nil, nil, err
			}
			axisVals[i] = arr
			dims[i] = len(arr)
		}
		npts := 1
		for _, d := range dims {
			npts *= d
		}
		coords := make([][]float64, len(dims))
		for a := range coords {
			coords[a] = make([]float64, npts)
		}
		for p := 0; p < npts; p++ {
			ijk := unflattenIJK(p, dims)
			for a := range dims {
				coords[a][p] = axisVals[a][ijk[a]]
			}
		}
		out := attrtree.NewObject("")
		out.SetScalarString("type", string(CoordsetExplicit))
		outValues := out.Add("values")
		for a, name := range presentAxes {
			outValues.SetArrayFloat64(name, coords[a])
		}
		return out, dims, nil

	default:
		return nil, nil, fmt.Errorf("mesh: unknown coordset kind %q", kind)
	}
}

// unflattenIJK turns a row-major flat point index into per-axis indices,
// with axis 0 (i) varying fastest.
func unflattenIJK(p int, dims []int) []int {
	out := make([]int, len(dims))
	for a := 0; a < len(dims); a++ {
		out[a] = p % dims[a]
		p /= dims[a]
	}
	return out
}

// flattenIJK is the inverse of unflattenIJK.
func flattenIJK(ijk []int, dims []int) int {
	p := 0
	stride := 1
	for a := 0; a < len(dims); a++ {
		p += ijk[a] * stride
		stride *= dims[a]
	}
	return p
}
