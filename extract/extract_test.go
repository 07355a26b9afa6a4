package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/selection"
)

// buildRectilinear2x2 builds a 2x2-cell rectilinear domain (3x3 points) on
// [0,2]x[0,2] with one element-associated field "tag" = element index, and
// one vertex-associated field "temp" = vertex index.
func buildRectilinear2x2(t *testing.T) mesh.Domain {
	t.Helper()
	root := attrtree.NewObject("")

	coordsets := root.Add("coordsets")
	coords := coordsets.Add("coords")
	coords.SetScalarString("type", "rectilinear")
	values := coords.Add("values")
	values.SetArrayFloat64("x", []float64{0, 1, 2})
	values.SetArrayFloat64("y", []float64{0, 1, 2})

	topologies := root.Add("topologies")
	topo := topologies.Add("mesh")
	topo.SetScalarString("type", "rectilinear")
	topo.SetScalarString("coordset", "coords")

	fields := root.Add("fields")
	fields.AddChild("tag", mesh.NewField(mesh.AssocElement, "mesh", func() *attrtree.Node {
		h := attrtree.NewObject("")
		h.SetArrayInt64("v", []int64{0, 1, 2, 3})
		n, _ := h.Child("v")
		return n
	}()))
	fields.AddChild("temp", mesh.NewField(mesh.AssocVertex, "mesh", func() *attrtree.Node {
		h := attrtree.NewObject("")
		h.SetArrayFloat64("v", []float64{0, 1, 2, 3, 4, 5, 6, 7, 8})
		n, _ := h.Child("v")
		return n
	}()))

	return mesh.NewDomain(root)
}

func TestExtractSingleElement(t *testing.T) {
	d := buildRectilinear2x2(t)

	sel := selection.NewExplicit(0, "mesh", []int64{0}, false)
	chunk, err := Extract(d, sel, Options{})
	require.NoError(t, err)
	require.NotNil(t, chunk.Mesh)
	assert.Equal(t, Own, chunk.Ownership)

	out := mesh.NewDomain(chunk.Mesh)
	topo, err := out.Topology("mesh")
	require.NoError(t, err)
	kind, err := topo.Kind()
	require.NoError(t, err)
	assert.Equal(t, mesh.TopologyUnstructured, kind)

	n, err := topo.NumElements()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	verts, err := topo.ElementVertices(0)
	require.NoError(t, err)
	assert.Len(t, verts, 4)

	cs, err := out.Coordset("coords")
	require.NoError(t, err)
	npts, err := cs.NumPoints()
	require.NoError(t, err)
	assert.Equal(t, 4, npts)

	tagField, err := out.Field("tag")
	require.NoError(t, err)
	tagVals, err := tagField.Values()
	require.NoError(t, err)
	tags, err := tagVals.Int64Array()
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, tags)
}

func TestExtractPreservesMapping(t *testing.T) {
	d := buildRectilinear2x2(t)

	sel := selection.NewExplicit(0, "mesh", []int64{0, 1}, true)
	chunk, err := Extract(d, sel, Options{})
	require.NoError(t, err)

	out := mesh.NewDomain(chunk.Mesh)
	elemIDs, err := out.Field("original_element_ids")
	require.NoError(t, err)
	elemVals, err := elemIDs.Values()
	require.NoError(t, err)
	ids, err := elemVals.Int64Array()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, ids)

	assert.Equal(t, 0, out.DomainID())
}

func TestExtractFieldFilter(t *testing.T) {
	d := buildRectilinear2x2(t)

	sel := selection.NewExplicit(0, "mesh", []int64{0}, false)
	chunk, err := Extract(d, sel, Options{SelectedFields: []string{"tag"}})
	require.NoError(t, err)

	out := mesh.NewDomain(chunk.Mesh)
	_, err = out.Field("tag")
	assert.NoError(t, err)
	_, err = out.Field("temp")
	assert.Error(t, err)
}

func TestExtractAllElementsKeepsAllVertices(t *testing.T) {
	d := buildRectilinear2x2(t)

	sel := selection.NewExplicit(0, "mesh", []int64{0, 1, 2, 3}, false)
	chunk, err := Extract(d, sel, Options{})
	require.NoError(t, err)

	out := mesh.NewDomain(chunk.Mesh)
	cs, err := out.Coordset("coords")
	require.NoError(t, err)
	npts, err := cs.NumPoints()
	require.NoError(t, err)
	assert.Equal(t, 9, npts)
}
