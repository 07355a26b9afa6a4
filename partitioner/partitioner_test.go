package partitioner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/mperr"
)

// buildRectilinear2x2 mirrors extract's own test fixture: a 2x2-cell
// rectilinear mesh (3x3 points) on [0,2]x[0,2] with an element field "tag".
func buildRectilinear2x2(t *testing.T) *attrtree.Node {
	t.Helper()
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

	fields := root.Add("fields")
	fields.AddChild("tag", mesh.NewField(mesh.AssocElement, "mesh", func() *attrtree.Node {
		h := attrtree.NewObject("")
		h.SetArrayInt64("v", []int64{0, 1, 2, 3})
		n, _ := h.Child("v")
		return n
	}()))

	return root
}

func TestExecuteSingleDomainWholeMeshIsDirect(t *testing.T) {
	root := buildRectilinear2x2(t)
	p := New()
	require.NoError(t, p.Initialize(root, Options{Target: 1, PreserveMapping: true}))

	output := attrtree.NewObject("")
	require.NoError(t, p.Execute(output))

	assert.False(t, output.HasChild("domain_000000"), "single-domain output should be written directly")
	d := mesh.NewDomain(output)
	topo, err := d.Topology("mesh")
	require.NoError(t, err)
	n, err := topo.NumElements()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestExecuteSplitsIntoMultipleDomains(t *testing.T) {
	root := buildRectilinear2x2(t)
	p := New()
	require.NoError(t, p.Initialize(root, Options{Target: 4}))

	output := attrtree.NewObject("")
	require.NoError(t, p.Execute(output))

	count := 0
	total := 0
	for _, name := range output.ChildNames() {
		child, _ := output.Child(name)
		count++
		d := mesh.NewDomain(child)
		topoName, err := d.FirstTopologyName()
		require.NoError(t, err)
		topo, err := d.Topology(topoName)
		require.NoError(t, err)
		n, err := topo.NumElements()
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, 4, count, "target 4 should produce 4 output domains")
	assert.Equal(t, 4, total, "every source element should end up in exactly one output domain")
}

func TestInitializeRejectsEmptyMesh(t *testing.T) {
	p := New()
	err := p.Initialize(attrtree.NewObject(""), Options{Target: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mperr.ErrOptionMalformed))
}

func TestInitializeResolvesDefaultTargetOfOne(t *testing.T) {
	root := buildRectilinear2x2(t)
	p := New()
	require.NoError(t, p.Initialize(root, Options{}))

	output := attrtree.NewObject("")
	require.NoError(t, p.Execute(output))
	assert.False(t, output.HasChild("domain_000000"))
}
