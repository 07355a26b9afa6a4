package combine

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
)

// domainAxes is one chunk's per-axis point coordinate arrays, as gathered
// from a uniform/rectilinear coordset by mesh.Coordset.PointCoordsAxis.
type domainAxes struct {
	coordsetName string
	axisNames    []string
	axisVals     [][]float64
}

// tryStructured implements spec section 4.6 Steps A/B. A single chunk
// keeps its own implicit topology unchanged (the identity case: nothing
// was split, or extraction already returned a compact structured
// sub-box). Two or more chunks must each carry a uniform/rectilinear
// coordset and tile one axis-aligned bounding IJK block exactly; their
// per-axis point arrays are merged, coverage and spacing are verified,
// and one aggregated coordset/topology/field set is built. Anything that
// doesn't qualify (a mixed group, a curvilinear TopologyStructured chunk,
// misaligned or overlapping boxes) returns an error so Combine falls back
// to unstructured assembly.
func tryStructured(d int, domains []mesh.Domain, topologyName string, opts Options) (*attrtree.Node, error) {
	if len(domains) == 1 {
		topo, err := domains[0].Topology(topologyName)
		if err != nil {
			return nil, err
		}
		kind, err := topo.Kind()
		if err != nil {
			return nil, err
		}
		if !kind.Implicit() {
			return nil, fmt.Errorf("combine: chunk topology %q is not structured", kind)
		}
		out := attrtree.Clone(domains[0].Node)
		outDomain := mesh.NewDomain(out)
		outDomain.SetDomainID(d)
		return out, nil
	}

	axes := make([]domainAxes, len(domains))
	for i, dom := range domains {
		a, err := gatherStructuredAxes(dom, topologyName)
		if err != nil {
			return nil, fmt.Errorf("combine: chunk %d: %w", i, err)
		}
		axes[i] = a
	}
	if err := checkAxesCompatible(axes); err != nil {
		return nil, err
	}
	return assembleStructured(d, domains, topologyName, axes, opts)
}

func gatherStructuredAxes(dom mesh.Domain, topologyName string) (domainAxes, error) {
	topo, err := dom.Topology(topologyName)
	if err != nil {
		return domainAxes{}, err
	}
	kind, err := topo.Kind()
	if err != nil {
		return domainAxes{}, err
	}
	if !kind.Implicit() {
		return domainAxes{}, fmt.Errorf("topology %q is not structured", kind)
	}
	csName, err := topo.CoordsetName()
	if err != nil {
		return domainAxes{}, err
	}
	cs, err := dom.Coordset(csName)
	if err != nil {
		return domainAxes{}, err
	}
	csKind, err := cs.Kind()
	if err != nil {
		return domainAxes{}, err
	}
	if csKind != mesh.CoordsetUniform && csKind != mesh.CoordsetRectilinear {
		return domainAxes{}, fmt.Errorf("coordset %q is not structured", csKind)
	}
	names, err := cs.AxisNames()
	if err != nil {
		return domainAxes{}, err
	}
	vals := make([][]float64, len(names))
	for a := range names {
		v, err := cs.PointCoordsAxis(a)
		if err != nil {
			return domainAxes{}, err
		}
		vals[a] = v
	}
	return domainAxes{coordsetName: csName, axisNames: names, axisVals: vals}, nil
}

func checkAxesCompatible(axes []domainAxes) error {
	for i := 1; i < len(axes); i++ {
		if len(axes[i].axisNames) != len(axes[0].axisNames) {
			return fmt.Errorf("combine: chunk %d dimensionality does not match chunk 0", i)
		}
		for a, name := range axes[0].axisNames {
			if axes[i].axisNames[a] != name {
				return fmt.Errorf("combine: chunk %d axis %d name %q does not match chunk 0's %q", i, a, axes[i].axisNames[a], name)
			}
		}
	}
	return nil
}

// assembleStructured merges each axis' per-chunk point arrays into one
// aggregated array, verifies every chunk's local axis is an exact
// contiguous run within it (spec section 4.6 Step B's uniform-spacing
// verification), verifies the resulting IJK boxes exactly tile the
// bounding block with no gaps or overlaps, and scatters coordinates and
// field values into the merged grid's row-major positions.
func assembleStructured(d int, domains []mesh.Domain, topologyName string, axes []domainAxes, opts Options) (*attrtree.Node, error) {
	numAxes := len(axes[0].axisNames)
	tol := opts.tolerance() * axesSpan(axes)

	mergedVals := make([][]float64, numAxes)
	offsets := make([][]int, len(domains))
	for i := range offsets {
		offsets[i] = make([]int, numAxes)
	}

	for a := 0; a < numAxes; a++ {
		perDomain := make([][]float64, len(axes))
		for i := range axes {
			perDomain[i] = axes[i].axisVals[a]
		}
		merged := mergeAxisValues(perDomain, tol)
		mergedVals[a] = merged
		for i, vals := range perDomain {
			idx, err := alignAxis(merged, vals, tol)
			if err != nil {
				return nil, fmt.Errorf("combine: axis %d chunk %d: %w", a, i, err)
			}
			offsets[i][a] = idx
		}
	}

	mergedPointDims := make([]int, numAxes)
	mergedElemDims := make([]int, numAxes)
	for a := 0; a < numAxes; a++ {
		mergedPointDims[a] = len(mergedVals[a])
		mergedElemDims[a] = elemDimOf(mergedPointDims[a])
	}

	localElemDims := make([][]int, len(domains))
	localPointDims := make([][]int, len(domains))
	for i := range axes {
		localElemDims[i] = make([]int, numAxes)
		localPointDims[i] = make([]int, numAxes)
		for a := 0; a < numAxes; a++ {
			localPointDims[i][a] = len(axes[i].axisVals[a])
			localElemDims[i][a] = elemDimOf(localPointDims[i][a])
		}
	}

	if err := verifyCoverage(mergedElemDims, offsets, localElemDims); err != nil {
		return nil, err
	}

	coordsetName := axes[0].coordsetName
	outCoordset := attrtree.NewObject("")
	outCoordset.SetScalarString("type", string(mesh.CoordsetRectilinear))
	outValues := outCoordset.Add("values")
	for a, name := range axes[0].axisNames {
		outValues.SetArrayFloat64(name, mergedVals[a])
	}

	outTopology := attrtree.NewObject("")
	outTopology.SetScalarString("type", string(mesh.TopologyRectilinear))
	outTopology.SetScalarString("coordset", coordsetName)

	out := attrtree.NewObject("")
	coordsets := out.Add("coordsets")
	coordsets.AddChild(coordsetName, outCoordset)
	topologies := out.Add("topologies")
	topologies.AddChild(topologyName, outTopology)

	if err := scatterFields(domains, topologyName, out, mergedPointDims, mergedElemDims, localPointDims, localElemDims, offsets); err != nil {
		return nil, err
	}
	if opts.PreserveMapping {
		scatterMappingFields(domains, out, mergedPointDims, mergedElemDims, localPointDims, localElemDims, offsets)
	}

	outDomain := mesh.NewDomain(out)
	outDomain.SetDomainID(d)
	return out, nil
}

// axesSpan scales the merge tolerance the same way boundingBoxDiagonal
// scales point_tolerance for the unstructured path, so structured and
// unstructured assembly treat "coincident" consistently.
func axesSpan(axes []domainAxes) float64 {
	numAxes := len(axes[0].axisNames)
	flat := make([][]float64, numAxes)
	for _, ax := range axes {
		for a := 0; a < numAxes; a++ {
			flat[a] = append(flat[a], ax.axisVals[a]...)
		}
	}
	span := boundingBoxDiagonal(flat)
	if span == 0 {
		return 1
	}
	return span
}

func mergeAxisValues(perDomain [][]float64, tol float64) []float64 {
	var flat []float64
	for _, v := range perDomain {
		flat = append(flat, v...)
	}
	sort.Float64s(flat)
	out := make([]float64, 0, len(flat))
	for _, v := range flat {
		if len(out) == 0 || v-out[len(out)-1] > tol {
			out = append(out, v)
		}
	}
	return out
}

// alignAxis finds where a chunk's own axis values sit as a contiguous run
// within the merged axis array, returning the run's starting index. It
// errors if any value drifts from the merged grid by more than tol.
func alignAxis(merged, vals []float64, tol float64) (int, error) {
	if len(vals) == 0 {
		return 0, fmt.Errorf("empty axis")
	}
	start := sort.Search(len(merged), func(i int) bool { return merged[i] >= vals[0]-tol })
	if start >= len(merged) || start+len(vals) > len(merged) {
		return 0, fmt.Errorf("axis values extend past merged bounding box")
	}
	for i, v := range vals {
		if math.Abs(merged[start+i]-v) > tol {
			return 0, fmt.Errorf("axis value %d (%.17g) does not align with merged grid (%.17g)", i, v, merged[start+i])
		}
	}
	return start, nil
}

func elemDimOf(pointDim int) int {
	if pointDim <= 1 {
		return 1
	}
	return pointDim - 1
}

// verifyCoverage checks that the per-chunk element boxes exactly tile the
// merged bounding box. Total element count must match the bounding box's
// own count, and, when the merged grid is small enough to afford a
// bitmap, every merged element must be covered exactly once, catching
// gaps and overlaps that a bare count match would miss.
func verifyCoverage(mergedElemDims []int, offsets [][]int, localElemDims [][]int) error {
	total := productInts(mergedElemDims)
	sum := 0
	for _, dims := range localElemDims {
		sum += productInts(dims)
	}
	if sum != total {
		return fmt.Errorf("combine: structured chunks cover %d elements, bounding box has %d", sum, total)
	}

	const bitmapLimit = 1 << 20
	if total > bitmapLimit {
		return nil
	}
	covered := make([]bool, total)
	for i, dims := range localElemDims {
		off := offsets[i]
		n := productInts(dims)
		for local := 0; local < n; local++ {
			gi := flattenRowMajor(addOffset(unflattenRowMajor(local, dims), off), mergedElemDims)
			if covered[gi] {
				return fmt.Errorf("combine: structured chunks overlap at element %d", gi)
			}
			covered[gi] = true
		}
	}
	return nil
}

// scatterFields implements spec section 4.6 Step B's field aggregation:
// each chunk's field values, already in that chunk's own local row-major
// IJK order, are scattered into the merged grid's row-major positions
// using its per-axis offset, rather than concatenated or remapped
// through a vertex merge as combineUnstructured's mergeFields does.
func scatterFields(domains []mesh.Domain, topologyName string, out *attrtree.Node,
	mergedPointDims, mergedElemDims []int, localPointDims, localElemDims [][]int, offsets [][]int) error {
	names := domains[0].FieldNames()
	if len(names) == 0 {
		return nil
	}

	var fieldsOut *attrtree.Node
	for _, name := range names {
		if name == "original_element_ids" || name == "original_vertex_ids" {
			continue
		}
		f0, err := domains[0].Field(name)
		if err != nil {
			return err
		}
		assoc, err := f0.Association()
		if err != nil {
			return err
		}
		ftopo, err := f0.TopologyName()
		if err != nil {
			return err
		}
		if ftopo != topologyName {
			continue
		}

		var mergedDims []int
		var localDims [][]int
		switch assoc {
		case mesh.AssocElement:
			mergedDims, localDims = mergedElemDims, localElemDims
		case mesh.AssocVertex:
			mergedDims, localDims = mergedPointDims, localPointDims
		default:
			return fmt.Errorf("combine: field %q has unsupported association %q", name, assoc)
		}

		values := make([][]float64, len(domains))
		integral := false
		for i, dom := range domains {
			f, err := dom.Field(name)
			if err != nil {
				return fmt.Errorf("combine: field %q missing on input %d: %w", name, i, err)
			}
			a, err := f.Association()
			if err != nil {
				return err
			}
			if a != assoc {
				return fmt.Errorf("combine: field %q association mismatch across inputs", name)
			}
			v, err := f.Values()
			if err != nil {
				return err
			}
			if i == 0 {
				integral = v.DType() != attrtree.Float32 && v.DType() != attrtree.Float64
			}
			arr, err := v.Float64Array()
			if err != nil {
				return fmt.Errorf("combine: field %q: %w", name, err)
			}
			values[i] = arr
		}

		out64 := scatterFloat64(mergedDims, localDims, offsets, values)

		if fieldsOut == nil {
			fieldsOut = out.Add("fields")
		}
		holder := attrtree.NewObject("")
		if integral {
			ints := make([]int64, len(out64))
			for k, x := range out64 {
				ints[k] = int64(x)
			}
			holder.SetArrayInt64("v", ints)
		} else {
			holder.SetArrayFloat64("v", out64)
		}
		valuesNode, _ := holder.Child("v")
		fieldsOut.AddChild(name, mesh.NewField(assoc, topologyName, valuesNode))
	}
	return nil
}

// scatterMappingFields places original_element_ids / original_vertex_ids
// at their scattered merged positions instead of concatenating them in
// input order, since structured assembly reorders values by IJK position.
// Emitted only when every chunk carries the mapping.
func scatterMappingFields(domains []mesh.Domain, out *attrtree.Node,
	mergedPointDims, mergedElemDims []int, localPointDims, localElemDims [][]int, offsets [][]int) {
	for _, name := range []string{"original_element_ids", "original_vertex_ids"} {
		assoc := mesh.AssocElement
		mergedDims, localDims := mergedElemDims, localElemDims
		if name == "original_vertex_ids" {
			assoc = mesh.AssocVertex
			mergedDims, localDims = mergedPointDims, localPointDims
		}

		values := make([][]int64, len(domains))
		complete := true
		for i, dom := range domains {
			f, err := dom.Field(name)
			if err != nil {
				complete = false
				break
			}
			v, err := f.Values()
			if err != nil {
				complete = false
				break
			}
			ids, err := v.Int64Array()
			if err != nil {
				complete = false
				break
			}
			values[i] = ids
		}
		if !complete {
			continue
		}

		merged := scatterInt64(mergedDims, localDims, offsets, values)
		fields := out.Add("fields")
		holder := attrtree.NewObject("")
		holder.SetArrayInt64("v", merged)
		valuesNode, _ := holder.Child("v")
		firstTopo, err := domains[0].FirstTopologyName()
		if err != nil {
			firstTopo = ""
		}
		fields.AddChild(name, mesh.NewField(assoc, firstTopo, valuesNode))
	}
}

func productInts(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func flattenRowMajor(ijk, dims []int) int {
	p := 0
	stride := 1
	for a := 0; a < len(dims); a++ {
		p += ijk[a] * stride
		stride *= dims[a]
	}
	return p
}

func unflattenRowMajor(p int, dims []int) []int {
	out := make([]int, len(dims))
	for a := 0; a < len(dims); a++ {
		out[a] = p % dims[a]
		p /= dims[a]
	}
	return out
}

func addOffset(ijk, off []int) []int {
	out := make([]int, len(ijk))
	for a := range ijk {
		out[a] = ijk[a] + off[a]
	}
	return out
}

func scatterFloat64(mergedDims []int, localDims [][]int, offsets [][]int, values [][]float64) []float64 {
	out := make([]float64, productInts(mergedDims))
	for i, dims := range localDims {
		off := offsets[i]
		n := productInts(dims)
		for local := 0; local < n; local++ {
			gi := flattenRowMajor(addOffset(unflattenRowMajor(local, dims), off), mergedDims)
			out[gi] = values[i][local]
		}
	}
	return out
}

func scatterInt64(mergedDims []int, localDims [][]int, offsets [][]int, values [][]int64) []int64 {
	out := make([]int64, productInts(mergedDims))
	for i, dims := range localDims {
		off := offsets[i]
		n := productInts(dims)
		for local := 0; local < n; local++ {
			gi := flattenRowMajor(addOffset(unflattenRowMajor(local, dims), off), mergedDims)
			out[gi] = values[i][local]
		}
	}
	return out
}
