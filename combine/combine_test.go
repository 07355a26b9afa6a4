package combine

import (
	"testing"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/extract"
	"github.com/notargets/meshrepart/mesh"
)

// buildQuad builds a single-quad unstructured domain with corners at
// (x0,0),(x0+1,0),(x0+1,1),(x0,1), an element field "tag" and a vertex
// field "flag", matching the shape extract.Extract would produce.
func buildQuad(t *testing.T, x0 float64, tag int64) mesh.Domain {
	t.Helper()
	root := attrtree.NewObject("")

	coordsets := root.Add("coordsets")
	coords := coordsets.Add("coords")
	coords.SetScalarString("type", string(mesh.CoordsetExplicit))
	values := coords.Add("values")
	values.SetArrayFloat64("x", []float64{x0, x0 + 1, x0 + 1, x0})
	values.SetArrayFloat64("y", []float64{0, 0, 1, 1})

	topologies := root.Add("topologies")
	topo := topologies.Add("mesh")
	topo.SetScalarString("type", string(mesh.TopologyUnstructured))
	topo.SetScalarString("coordset", "coords")
	elements := topo.Add("elements")
	elements.SetScalarString("shape", string(mesh.ShapeQuad))
	elements.SetArrayInt64("connectivity", []int64{0, 1, 2, 3})

	fields := root.Add("fields")
	fields.AddChild("tag", mesh.NewField(mesh.AssocElement, "mesh", func() *attrtree.Node {
		h := attrtree.NewObject("")
		h.SetArrayInt64("v", []int64{tag})
		n, _ := h.Child("v")
		return n
	}()))
	fields.AddChild("flag", mesh.NewField(mesh.AssocVertex, "mesh", func() *attrtree.Node {
		h := attrtree.NewObject("")
		h.SetArrayFloat64("v", []float64{0, 0, 0, 0})
		n, _ := h.Child("v")
		return n
	}()))

	return mesh.NewDomain(root)
}

func chunkOf(d mesh.Domain) *extract.Chunk {
	return &extract.Chunk{Mesh: d.Node, Ownership: extract.Own}
}

func TestCombineMergesCoincidentVertices(t *testing.T) {
	a := buildQuad(t, 0, 0)
	b := buildQuad(t, 1, 1)

	out, err := Combine(0, []*extract.Chunk{chunkOf(a), chunkOf(b)}, "mesh", Options{PointTolerance: 1e-9})
	require.NoError(t, err)

	d := mesh.NewDomain(out)
	cs, err := d.Coordset("coords")
	require.NoError(t, err)
	npts, err := cs.NumPoints()
	require.NoError(t, err)
	assert.Equal(t, 6, npts, "shared edge's two vertices should merge")

	topo, err := d.Topology("mesh")
	require.NoError(t, err)
	n, err := topo.NumElements()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tagField, err := d.Field("tag")
	require.NoError(t, err)
	tagVals, err := tagField.Values()
	require.NoError(t, err)
	tags, err := tagVals.Int64Array()
	require.NoError(t, err)
	if !assert.ElementsMatch(t, []int64{0, 1}, tags) {
		t.Logf("tag field mismatch:\n%s", pretty.Sprint(tags))
	}

	flagField, err := d.Field("flag")
	require.NoError(t, err)
	flagVals, err := flagField.Values()
	require.NoError(t, err)
	flags, err := flagVals.Float64Array()
	require.NoError(t, err)
	assert.Len(t, flags, 6)

	assert.Equal(t, 0, d.DomainID())
}

func TestCombineSingleChunkTakesStructuredPath(t *testing.T) {
	root := attrtree.NewObject("")
	coordsets := root.Add("coordsets")
	coords := coordsets.Add("coords")
	coords.SetScalarString("type", string(mesh.CoordsetRectilinear))
	values := coords.Add("values")
	values.SetArrayFloat64("x", []float64{0, 1, 2})
	values.SetArrayFloat64("y", []float64{0, 1, 2})
	topologies := root.Add("topologies")
	topo := topologies.Add("mesh")
	topo.SetScalarString("type", string(mesh.TopologyRectilinear))
	topo.SetScalarString("coordset", "coords")
	d := mesh.NewDomain(root)

	out, err := Combine(3, []*extract.Chunk{chunkOf(d)}, "mesh", Options{})
	require.NoError(t, err)

	got := mesh.NewDomain(out)
	assert.Equal(t, 3, got.DomainID())
	gotTopo, err := got.Topology("mesh")
	require.NoError(t, err)
	kind, err := gotTopo.Kind()
	require.NoError(t, err)
	assert.Equal(t, mesh.TopologyRectilinear, kind, "single chunk of an implicit topology stays structured")
}

// buildRectilinearHalf builds one half of a 2x2-cell rectilinear mesh on
// [0,2]x[0,2], split along x at x=1, with an element field "tag" in the
// half's own row-major (i fastest) order.
func buildRectilinearHalf(t *testing.T, xVals []float64, tags []int64) mesh.Domain {
	t.Helper()
	root := attrtree.NewObject("")
	coordsets := root.Add("coordsets")
	coords := coordsets.Add("coords")
	coords.SetScalarString("type", string(mesh.CoordsetRectilinear))
	values := coords.Add("values")
	values.SetArrayFloat64("x", xVals)
	values.SetArrayFloat64("y", []float64{0, 1, 2})

	topologies := root.Add("topologies")
	topo := topologies.Add("mesh")
	topo.SetScalarString("type", string(mesh.TopologyRectilinear))
	topo.SetScalarString("coordset", "coords")

	fields := root.Add("fields")
	fields.AddChild("tag", mesh.NewField(mesh.AssocElement, "mesh", func() *attrtree.Node {
		h := attrtree.NewObject("")
		h.SetArrayInt64("v", tags)
		n, _ := h.Child("v")
		return n
	}()))

	return mesh.NewDomain(root)
}

func TestCombineMultiChunkStructuredAssembly(t *testing.T) {
	// Two 1x2-cell halves of a 2x2-cell mesh, split along x at x=1, each
	// carrying its own local row-major (i fastest) element tags.
	left := buildRectilinearHalf(t, []float64{0, 1}, []int64{10, 11})
	right := buildRectilinearHalf(t, []float64{1, 2}, []int64{20, 21})

	out, err := Combine(0, []*extract.Chunk{chunkOf(left), chunkOf(right)}, "mesh", Options{})
	require.NoError(t, err)

	d := mesh.NewDomain(out)
	topo, err := d.Topology("mesh")
	require.NoError(t, err)
	kind, err := topo.Kind()
	require.NoError(t, err)
	assert.Equal(t, mesh.TopologyRectilinear, kind, "aligned structured chunks should recombine structured")

	n, err := topo.NumElements()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	cs, err := d.Coordset("coords")
	require.NoError(t, err)
	npts, err := cs.NumPoints()
	require.NoError(t, err)
	assert.Equal(t, 9, npts)

	tagField, err := d.Field("tag")
	require.NoError(t, err)
	tagVals, err := tagField.Values()
	require.NoError(t, err)
	tags, err := tagVals.Int64Array()
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 11, 21}, tags, "tags scatter into merged row-major (i fastest) positions")
}

func TestCombineMultiChunkStructuredMisalignedFallsBackToUnstructured(t *testing.T) {
	left := buildRectilinearHalf(t, []float64{0, 1}, []int64{10, 11})
	// A gap between x=1 and x=1.5 instead of a shared boundary at x=1: the
	// merged bounding box (x in [0,1,1.5,2.5]) has more elements than the
	// two chunks' element counts sum to, so coverage verification must
	// reject this pair.
	misaligned := buildRectilinearHalf(t, []float64{1.5, 2.5}, []int64{20, 21})

	_, err := tryStructured(0, []mesh.Domain{left, misaligned}, "mesh", Options{})
	assert.Error(t, err)
}

func TestCombinePreservesMapping(t *testing.T) {
	a := buildQuad(t, 0, 0)
	a.Node.Add("fields").AddChild("original_element_ids", mesh.NewField(mesh.AssocElement, "mesh", func() *attrtree.Node {
		h := attrtree.NewObject("")
		h.SetArrayInt64("v", []int64{5})
		n, _ := h.Child("v")
		return n
	}()))
	b := buildQuad(t, 1, 1)
	b.Node.Add("fields").AddChild("original_element_ids", mesh.NewField(mesh.AssocElement, "mesh", func() *attrtree.Node {
		h := attrtree.NewObject("")
		h.SetArrayInt64("v", []int64{9})
		n, _ := h.Child("v")
		return n
	}()))

	out, err := Combine(0, []*extract.Chunk{chunkOf(a), chunkOf(b)}, "mesh", Options{PreserveMapping: true})
	require.NoError(t, err)

	d := mesh.NewDomain(out)
	f, err := d.Field("original_element_ids")
	require.NoError(t, err)
	values, err := f.Values()
	require.NoError(t, err)
	ids, err := values.Int64Array()
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 9}, ids)
}

func TestCombineNoChunksErrors(t *testing.T) {
	_, err := Combine(0, nil, "mesh", Options{})
	assert.Error(t, err)
}

func TestCombineShapeMismatchErrors(t *testing.T) {
	a := buildQuad(t, 0, 0)
	b := buildQuad(t, 1, 1)
	bTopo, err := b.Topology("mesh")
	require.NoError(t, err)
	elements, _ := bTopo.Node.Child("elements")
	elements.SetScalarString("shape", string(mesh.ShapeTri))

	_, err = Combine(0, []*extract.Chunk{chunkOf(a), chunkOf(b)}, "mesh", Options{})
	assert.Error(t, err)
}
