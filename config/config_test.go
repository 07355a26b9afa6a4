package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/mperr"
	"github.com/notargets/meshrepart/selection"
)

func rectilinearDomain(t *testing.T) mesh.Domain {
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
	return mesh.NewDomain(root)
}

func TestOptionsBuildLogical(t *testing.T) {
	d := rectilinearDomain(t)
	opts := Options{Selections: []SelectionSpec{
		{Type: "logical", DomainID: 0, Start: [3]int{0, 0, 0}, End: [3]int{1, 1, 0}},
	}}
	byDomain, err := opts.Build([]mesh.Domain{d})
	require.NoError(t, err)
	sels := byDomain[0]
	require.Len(t, sels, 1)
	assert.Equal(t, selection.KindLogical, sels[0].Kind())
	assert.Equal(t, "mesh", sels[0].Topology(), "topology defaults to the domain's first topology")
}

func TestOptionsBuildExplicitAndDestinationOverrides(t *testing.T) {
	d := rectilinearDomain(t)
	destDomain, destRank := 2, 1
	opts := Options{Selections: []SelectionSpec{
		{Type: "explicit", DomainID: 0, Elements: []int64{0, 1}, DestinationDomain: &destDomain, DestinationRank: &destRank},
	}}
	byDomain, err := opts.Build([]mesh.Domain{d})
	require.NoError(t, err)
	sel := byDomain[0][0]
	assert.Equal(t, 2, sel.DestinationDomain())
	assert.Equal(t, 1, sel.DestinationRank())
}

func TestOptionsBuildRangesRequiresEvenLength(t *testing.T) {
	d := rectilinearDomain(t)
	opts := Options{Selections: []SelectionSpec{
		{Type: "ranges", DomainID: 0, Ranges: []int64{0, 1, 2}},
	}}
	_, err := opts.Build([]mesh.Domain{d})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mperr.ErrOptionMalformed))
}

func TestOptionsBuildFieldRequiresFieldName(t *testing.T) {
	d := rectilinearDomain(t)
	opts := Options{Selections: []SelectionSpec{{Type: "field", DomainID: 0}}}
	_, err := opts.Build([]mesh.Domain{d})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mperr.ErrOptionMalformed))
}

func TestOptionsBuildUnknownTypeErrors(t *testing.T) {
	d := rectilinearDomain(t)
	opts := Options{Selections: []SelectionSpec{{Type: "bogus", DomainID: 0}}}
	_, err := opts.Build([]mesh.Domain{d})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mperr.ErrOptionMalformed))
}

func TestOptionsBuildUnknownDomainErrors(t *testing.T) {
	d := rectilinearDomain(t)
	opts := Options{Selections: []SelectionSpec{{Type: "logical", DomainID: 99}}}
	_, err := opts.Build([]mesh.Domain{d})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mperr.ErrOptionMalformed))
}

func TestOptionsDefaults(t *testing.T) {
	var opts Options
	assert.True(t, opts.PreserveMapping())
	assert.Equal(t, 1e-12, opts.ResolvedMergeTolerance())

	off := false
	opts.Mapping = &off
	assert.False(t, opts.PreserveMapping())
}

func TestLoadFromExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	body := []byte(`
target: 4
fields: ["tag"]
merge_tolerance: 0.0001
selections:
  - type: explicit
    domain_id: 0
    elements: [0, 1]
`)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	opts, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, opts.Target)
	assert.Equal(t, []string{"tag"}, opts.Fields)
	assert.Equal(t, 0.0001, opts.MergeTolerance)
	require.Len(t, opts.Selections, 1)
	assert.Equal(t, "explicit", opts.Selections[0].Type)
}

func TestLoadMissingExplicitPathErrors(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
