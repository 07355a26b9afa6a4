// Package combine implements the C6 component: recombining a group of
// chunks that share a destination-domain id into one logical mesh domain,
// structured where possible and unstructured otherwise (spec section 4.6).
package combine

import (
	"fmt"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/extract"
	"github.com/notargets/meshrepart/mesh"
)

// Options controls tolerance and mapping behavior, mirroring the
// merge_tolerance / mapping options-schema keys (spec section 6.2).
type Options struct {
	// PointTolerance is a fraction of the merged bounding-box diagonal
	// below which two vertices are considered coincident. Zero selects
	// the spec default of 1e-12.
	PointTolerance float64
	PreserveMapping bool
}

func (o Options) tolerance() float64 {
	if o.PointTolerance <= 0 {
		return 1e-12
	}
	return o.PointTolerance
}

// Combine merges chunks (all destined for the same domain d) into a
// single domain node (spec section 4.6). It chooses structured assembly
// when possible, falling back to unstructured assembly otherwise.
func Combine(d int, chunks []*extract.Chunk, topologyName string, opts Options) (*attrtree.Node, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("combine: domain %d has no chunks", d)
	}
	domains := make([]mesh.Domain, len(chunks))
	for i, c := range chunks {
		domains[i] = mesh.NewDomain(c.Mesh)
	}

	if structured, err := tryStructured(d, domains, topologyName, opts); err == nil {
		return structured, nil
	}
	return combineUnstructured(d, domains, topologyName, opts)
}
