// Package extract implements the C2 component: turning a (mesh, selection)
// pair into a self-contained sub-mesh chunk, per spec section 4.2.
package extract

import (
	"fmt"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/selection"
)

// Ownership tags whether a Chunk's tree must be freed by the engine (spec
// section 9, "Ownership of chunks": "Model this as an enum Own | Borrow on
// each chunk; the driver frees Own at the end.").
type Ownership int

const (
	Own Ownership = iota
	Borrow
)

// Chunk pairs an extracted (or wrapped) sub-mesh with its ownership and,
// once assigned by the mapper, its destination rank/domain (spec section 3).
type Chunk struct {
	Mesh       *attrtree.Node
	Ownership  Ownership
	DestRank   int
	DestDomain int

	// SourceDomainID records the domain id of the selection this chunk was
	// extracted from. The splitter and transport do not read it.
	SourceDomainID int
}

// Free releases the chunk's tree if the chunk owns it.
func (c *Chunk) Free() {
	if c == nil {
		return
	}
	if c.Ownership == Own {
		c.Mesh = nil
	}
}

// Options controls which fields are copied, mirroring the "fields"
// options-schema key (spec section 6.2). Whether mapping arrays are
// emitted is driven entirely by the selection's own preserve-mapping flag.
type Options struct {
	SelectedFields []string // empty means "all fields"
}

func (o Options) wantsField(name string) bool {
	if len(o.SelectedFields) == 0 {
		return true
	}
	for _, f := range o.SelectedFields {
		if f == name {
			return true
		}
	}
	return false
}

// Extract implements spec section 4.2 steps 1-6.
func Extract(domain mesh.Domain, sel selection.Selection, opts Options) (*Chunk, error) {
	topo, err := domain.Topology(sel.Topology())
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	n, err := topo.NumElements()
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// Step 1: project elements.
	E, err := sel.ProjectElements(domain, 0, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// Step 2: derive vertex id set V and inverse map.
	V, vinv, err := vertexClosure(topo, E)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// Step 3/4: new coordset + topology. An axis-aligned Logical selection
	// over a uniform/rectilinear topology keeps its implicit structure
	// (spec section 4.6 Step B needs at least one structured chunk to
	// recombine); anything else falls back to the generic gather-and-flatten
	// path, which always produces an unstructured topology.
	csName, err := topo.CoordsetName()
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	srcCoordset, err := domain.Coordset(csName)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var newCoordset, newTopology *attrtree.Node
	if logical, ok := sel.(*selection.Logical); ok {
		newCoordset, newTopology, err = structuredSlice(topo, srcCoordset, logical)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
	}
	if newCoordset == nil {
		newCoordset, err = gatherCoordset(srcCoordset, V)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		newTopology, err = extractTopology(topo, csName, E, vinv)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
	}

	// Assemble the output domain.
	out := attrtree.NewObject("")
	coordsets := out.Add("coordsets")
	coordsets.AddChild(csName, newCoordset)
	topologies := out.Add("topologies")
	topologies.AddChild(sel.Topology(), newTopology)

	// Step 5: slice fields.
	if err := sliceFields(domain, sel.Topology(), out, E, V, opts); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// Step 6: mapping arrays.
	if sel.PreserveMapping() {
		fields := out.Add("fields")
		fields.AddChild("original_element_ids", mesh.NewField(mesh.AssocElement, sel.Topology(), int64ArrayNode(E)))
		fields.AddChild("original_vertex_ids", mesh.NewField(mesh.AssocVertex, sel.Topology(), int64ArrayNode(V)))
		out.Add("state").SetScalarInt64("domain_id", int64(sel.DomainID()))
	}

	return &Chunk{
		Mesh:           out,
		Ownership:      Own,
		DestRank:       sel.DestinationRank(),
		DestDomain:     sel.DestinationDomain(),
		SourceDomainID: sel.DomainID(),
	}, nil
}

// int64ArrayNode builds a detached array leaf holding ids. attrtree has no
// bare constructor for an array node, so it is built as a throwaway
// object's child and detached.
func int64ArrayNode(ids []int64) *attrtree.Node {
	holder := attrtree.NewObject("")
	holder.SetArrayInt64("values", ids)
	arr, _ := holder.Child("values")
	return arr
}

// vertexClosure walks the source topology's connectivity for each e in E,
// unions the referenced vertex ids, and returns the sorted unique vertex
// set V plus the inverse map old-vertex-id -> new (dense) id.
func vertexClosure(topo mesh.Topology, E []int64) ([]int64, map[int64]int64, error) {
	seen := make(map[int64]bool)
	var V []int64
	for _, e := range E {
		verts, err := topo.ElementVertices(int(e))
		if err != nil {
			return nil, nil, err
		}
		for _, v := range verts {
			vid := int64(v)
			if !seen[vid] {
				seen[vid] = true
				V = append(V, vid)
			}
		}
	}
	V = selectionSortUnique(V)
	vinv := make(map[int64]int64, len(V))
	for i, v := range V {
		vinv[v] = int64(i)
	}
	return V, vinv, nil
}

// selectionSortUnique performs a small ascending sort with dedup; V comes
// from a hash-set walk so it is not pre-sorted the way selection ids are.
func selectionSortUnique(s []int64) []int64 {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func gatherCoordset(cs mesh.Coordset, V []int64) (*attrtree.Node, error) {
	explicit, _, err := cs.ToExplicit()
	if err != nil {
		return nil, err
	}
	values, _ := explicit.Child("values")
	out := attrtree.NewObject("")
	out.SetScalarString("type", string(mesh.CoordsetExplicit))
	outValues := out.Add("values")
	for _, axis := range values.ChildNames() {
		axisNode, _ := values.Child(axis)
		arr, err := axisNode.Float64Array()
		if err != nil {
			return nil, err
		}
		gathered := make([]float64, len(V))
		for i, v := range V {
			gathered[i] = arr[v]
		}
		outValues.SetArrayFloat64(axis, gathered)
	}
	return out, nil
}

// structuredSlice preserves an implicit topology through extraction for an
// axis-aligned Logical selection over a uniform or rectilinear coordset,
// slicing each axis' point coordinate array to the points bounding the
// selection's inclusive element box [Start,End] (points Start..End+1)
// rather than gathering into an explicit vertex list and
// flattening the topology to unstructured. It returns (nil, nil, nil) when
// the source isn't eligible, so the caller falls back to the generic path.
//
// This relies on E and V (from sel.ProjectElements / vertexClosure) already
// enumerating in the box's own local row-major order: for a box that does
// not span a full axis, the source topology's global row-major element/point
// ids restricted to the box are already strictly increasing along i, then
// j, then k, because each axis' full extent is always at least as large as
// the box's extent along it. Field slicing and the mapping arrays keyed by
// E/V therefore line up with this coordset's own row-major point ordering
// without any extra remapping.
func structuredSlice(topo mesh.Topology, cs mesh.Coordset, sel *selection.Logical) (*attrtree.Node, *attrtree.Node, error) {
	kind, err := topo.Kind()
	if err != nil {
		return nil, nil, err
	}
	if !kind.Implicit() {
		return nil, nil, nil
	}
	csKind, err := cs.Kind()
	if err != nil {
		return nil, nil, err
	}
	if csKind != mesh.CoordsetUniform && csKind != mesh.CoordsetRectilinear {
		return nil, nil, nil
	}
	axes, err := cs.AxisNames()
	if err != nil {
		return nil, nil, err
	}

	coordsetOut := attrtree.NewObject("")
	coordsetOut.SetScalarString("type", string(mesh.CoordsetRectilinear))
	values := coordsetOut.Add("values")
	for a, name := range axes {
		full, err := cs.PointCoordsAxis(a)
		if err != nil {
			return nil, nil, err
		}
		lo, hi := sel.Start[a], sel.End[a]
		nElem := len(full) - 1
		if nElem < 1 {
			nElem = 1
		}
		if lo < 0 || hi >= nElem || lo > hi {
			return nil, nil, fmt.Errorf("logical selection bounds [%d,%d] out of range for axis %d (%d elements)", lo, hi, a, nElem)
		}
		end := hi + 2
		if end > len(full) {
			end = len(full)
		}
		values.SetArrayFloat64(name, append([]float64(nil), full[lo:end]...))
	}

	csName, err := topo.CoordsetName()
	if err != nil {
		return nil, nil, err
	}
	topoOut := attrtree.NewObject("")
	topoOut.SetScalarString("type", string(mesh.TopologyRectilinear))
	topoOut.SetScalarString("coordset", csName)
	return coordsetOut, topoOut, nil
}

func extractTopology(topo mesh.Topology, csname string, E []int64, vinv map[int64]int64) (*attrtree.Node, error) {
	variable := false
	shapeStr := ""
	kind, err := topo.Kind()
	if err != nil {
		return nil, err
	}
	if kind == mesh.TopologyUnstructured {
		s, err := topo.ShapeString()
		if err != nil {
			return nil, err
		}
		shapeStr = s
		variable = mesh.ShapeVertexCount(mesh.Shape(s)) == 0
	} else if kind == mesh.TopologyPoints {
		shapeStr = string(mesh.ShapePoint)
	} else {
		// implicit topologies convert to quads (2D) / hexes (3D) / lines (1D).
		if len(E) > 0 {
			shp, err := topo.ElementShape(int(E[0]))
			if err != nil {
				return nil, err
			}
			shapeStr = string(shp)
		} else {
			dims, err := topo.LogicalDims()
			if err != nil {
				return nil, err
			}
			switch len(dims) {
			case 1:
				shapeStr = string(mesh.ShapeLine)
			case 2:
				shapeStr = string(mesh.ShapeQuad)
			case 3:
				shapeStr = string(mesh.ShapeHex)
			}
		}
	}

	out := attrtree.NewObject("")
	out.SetScalarString("type", string(mesh.TopologyUnstructured))
	out.SetScalarString("coordset", csname)
	elements := out.Add("elements")
	elements.SetScalarString("shape", shapeStr)

	var conn []int64
	if variable {
		var offsets, sizes []int64
		offset := int64(0)
		for _, e := range E {
			verts, err := topo.ElementVertices(int(e))
			if err != nil {
				return nil, err
			}
			offsets = append(offsets, offset)
			sizes = append(sizes, int64(len(verts)))
			offset += int64(len(verts))
			for _, v := range verts {
				conn = append(conn, vinv[int64(v)])
			}
		}
		elements.SetArrayInt64("offsets", offsets)
		elements.SetArrayInt64("sizes", sizes)
	} else {
		for _, e := range E {
			verts, err := topo.ElementVertices(int(e))
			if err != nil {
				return nil, err
			}
			for _, v := range verts {
				conn = append(conn, vinv[int64(v)])
			}
		}
	}
	elements.SetArrayInt64("connectivity", conn)
	return out, nil
}

func sliceFields(domain mesh.Domain, topoName string, out *attrtree.Node, E, V []int64, opts Options) error {
	names := domain.FieldNames()
	if len(names) == 0 {
		return nil
	}
	var fieldsOut *attrtree.Node
	for _, name := range names {
		if !opts.wantsField(name) {
			continue
		}
		f, err := domain.Field(name)
		if err != nil {
			return err
		}
		ftopo, err := f.TopologyName()
		if err != nil {
			return err
		}
		if ftopo != topoName {
			continue
		}
		assoc, err := f.Association()
		if err != nil {
			return err
		}
		values, err := f.Values()
		if err != nil {
			return err
		}

		var ids []int64
		switch assoc {
		case mesh.AssocElement:
			ids = E
		case mesh.AssocVertex:
			ids = V
		default:
			return fmt.Errorf("extract: field %q has unsupported association %q", name, assoc)
		}

		sliced, err := sliceArray(values, ids)
		if err != nil {
			return fmt.Errorf("extract: field %q: %w", name, err)
		}
		if fieldsOut == nil {
			fieldsOut = out.Add("fields")
		}
		fieldsOut.AddChild(name, mesh.NewField(assoc, topoName, sliced))
	}
	return nil
}

func sliceArray(values *attrtree.Node, ids []int64) (*attrtree.Node, error) {
	switch values.DType() {
	case attrtree.Float32, attrtree.Float64:
		arr, err := values.Float64Array()
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(ids))
		for i, id := range ids {
			out[i] = arr[id]
		}
		holder := attrtree.NewObject("")
		holder.SetArrayFloat64("v", out)
		n, _ := holder.Child("v")
		return n, nil
	default:
		arr, err := values.Int64Array()
		if err != nil {
			return nil, err
		}
		out := make([]int64, len(ids))
		for i, id := range ids {
			out[i] = arr[id]
		}
		holder := attrtree.NewObject("")
		holder.SetArrayInt64("v", out)
		n, _ := holder.Child("v")
		return n, nil
	}
}
