package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/extract"
	"github.com/notargets/meshrepart/selection"
	"github.com/notargets/meshrepart/transport"
)

func chunkWithElements(t *testing.T, n int) *extract.Chunk {
	t.Helper()
	root := attrtree.NewObject("")
	coordsets := root.Add("coordsets")
	coords := coordsets.Add("coords")
	coords.SetScalarString("type", "rectilinear")
	values := coords.Add("values")
	xs := make([]float64, n+1)
	for i := range xs {
		xs[i] = float64(i)
	}
	values.SetArrayFloat64("x", xs)
	values.SetArrayFloat64("y", []float64{0, 1})

	topologies := root.Add("topologies")
	topo := topologies.Add("mesh")
	topo.SetScalarString("type", "rectilinear")
	topo.SetScalarString("coordset", "coords")

	return &extract.Chunk{
		Mesh:       root,
		Ownership:  extract.Own,
		DestRank:   selection.Free,
		DestDomain: selection.Free,
	}
}

func TestAssignBalancesFreeDomains(t *testing.T) {
	c1 := chunkWithElements(t, 4)
	c2 := chunkWithElements(t, 2)
	c3 := chunkWithElements(t, 1)

	chunks := []*extract.Chunk{c1, c2, c3}
	err := Assign(transport.NewSerialGroup(), chunks, 3, nil)
	require.NoError(t, err)

	seenDomains := make(map[int]bool)
	for _, c := range chunks {
		assert.NotEqual(t, selection.Free, c.DestDomain)
		assert.NotEqual(t, selection.Free, c.DestRank)
		assert.Equal(t, 0, c.DestRank) // single-rank group
		seenDomains[c.DestDomain] = true
	}
	assert.Len(t, seenDomains, 3)
}

func TestAssignRespectsFixedDomain(t *testing.T) {
	c1 := chunkWithElements(t, 4)
	c1.DestDomain = 5

	chunks := []*extract.Chunk{c1}
	err := Assign(transport.NewSerialGroup(), chunks, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, c1.DestDomain)
}
