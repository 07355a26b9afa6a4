package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/selection"
	"github.com/notargets/meshrepart/transport"
)

func rectilinearDomain(nx, ny int) mesh.Domain {
	root := attrtree.NewObject("")
	coordsets := root.Add("coordsets")
	coords := coordsets.Add("coords")
	coords.SetScalarString("type", "rectilinear")
	values := coords.Add("values")
	xs := make([]float64, nx+1)
	for i := range xs {
		xs[i] = float64(i)
	}
	ys := make([]float64, ny+1)
	for i := range ys {
		ys[i] = float64(i)
	}
	values.SetArrayFloat64("x", xs)
	values.SetArrayFloat64("y", ys)

	topologies := root.Add("topologies")
	topo := topologies.Add("mesh")
	topo.SetScalarString("type", "rectilinear")
	topo.SetScalarString("coordset", "coords")
	return mesh.NewDomain(root)
}

func TestRunSplitsUntilTargetReached(t *testing.T) {
	d := rectilinearDomain(4, 4)
	sel := selection.NewLogical(0, "mesh", [3]int{0, 0, 0}, [3]int{3, 3, 0}, false)

	entries := []Entry{{Sel: sel, Domain: d}}
	out, err := Run(transport.NewSerialGroup(), entries, 4, nil)
	require.NoError(t, err)
	assert.Len(t, out, 4)

	var total uint64
	for _, e := range out {
		n, err := e.Sel.Length(e.Domain)
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, uint64(16), total)
}

func TestRunNoopWhenAlreadyAtTarget(t *testing.T) {
	d := rectilinearDomain(4, 4)
	sel := selection.NewLogical(0, "mesh", [3]int{0, 0, 0}, [3]int{3, 3, 0}, false)

	entries := []Entry{{Sel: sel, Domain: d}}
	out, err := Run(transport.NewSerialGroup(), entries, 1, nil)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestRunStopsWhenNothingSplittable(t *testing.T) {
	d := rectilinearDomain(2, 2)
	// A single-element explicit selection cannot be split further.
	sel := selection.NewExplicit(0, "mesh", []int64{0}, false)

	entries := []Entry{{Sel: sel, Domain: d}}
	out, err := Run(transport.NewSerialGroup(), entries, 4, nil)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
