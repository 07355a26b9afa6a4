// Package config decodes the on-disk options file (spec section 6.2) into
// a config.Options value and lowers it into the selection.Selection values
// partitioner.Partitioner.Initialize expects, the way gocfd's cmd/ package
// decodes its own YAML input parameters before handing them to the solver.
package config

import (
	"fmt"

	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/mperr"
	"github.com/notargets/meshrepart/selection"
)

// SelectionSpec mirrors the "Selection subtree" table in spec section 6.2.
type SelectionSpec struct {
	Type              string  `json:"type"`
	DomainID          int     `json:"domain_id"`
	Topology          string  `json:"topology"`
	DestinationDomain *int    `json:"destination_domain,omitempty"`
	DestinationRank   *int    `json:"destination_rank,omitempty"`
	Start             [3]int  `json:"start,omitempty"`
	End               [3]int  `json:"end,omitempty"`
	Elements          []int64 `json:"elements,omitempty"`
	Ranges            []int64 `json:"ranges,omitempty"`
	Field             string  `json:"field,omitempty"`
}

// Options mirrors the top-level options schema in spec section 6.2.
type Options struct {
	Target         int             `json:"target"`
	Fields         []string        `json:"fields,omitempty"`
	Mapping        *bool           `json:"mapping,omitempty"`
	MergeTolerance float64         `json:"merge_tolerance"`
	Selections     []SelectionSpec `json:"selections,omitempty"`
}

// PreserveMapping applies the schema default of 1 (true) when Mapping is
// left unset.
func (o Options) PreserveMapping() bool {
	if o.Mapping == nil {
		return true
	}
	return *o.Mapping
}

// ResolvedMergeTolerance applies the schema default of 1e-12.
func (o Options) ResolvedMergeTolerance() float64 {
	if o.MergeTolerance <= 0 {
		return 1e-12
	}
	return o.MergeTolerance
}

// Build lowers the decoded schema into the map partitioner.Options.
// SelectionsByDomain expects, resolving each spec's topology default (the
// referenced domain's first topology) and rejecting unknown selection
// kinds or a kind whose required fields are missing (spec section 7,
// option-malformed).
func (o Options) Build(domains []mesh.Domain) (map[int][]selection.Selection, error) {
	byDomain := make(map[int]mesh.Domain, len(domains))
	for _, d := range domains {
		byDomain[d.DomainID()] = d
	}

	out := make(map[int][]selection.Selection)
	preserve := o.PreserveMapping()
	for i, spec := range o.Selections {
		d, ok := byDomain[spec.DomainID]
		if !ok {
			return nil, fmt.Errorf("%w: selections[%d]: no domain with domain_id %d", mperr.ErrOptionMalformed, i, spec.DomainID)
		}
		topoName := spec.Topology
		if topoName == "" {
			name, err := d.FirstTopologyName()
			if err != nil {
				return nil, fmt.Errorf("%w: selections[%d]: %v", mperr.ErrOptionMalformed, i, err)
			}
			topoName = name
		}

		sel, err := buildSelection(i, spec, topoName, preserve)
		if err != nil {
			return nil, err
		}
		if did := spec.DestinationDomain; did != nil {
			sel.SetDestinationDomain(*did)
		}
		if dr := spec.DestinationRank; dr != nil {
			sel.SetDestinationRank(*dr)
		}
		out[spec.DomainID] = append(out[spec.DomainID], sel)
	}
	return out, nil
}

func buildSelection(i int, spec SelectionSpec, topoName string, preserve bool) (selection.Selection, error) {
	switch spec.Type {
	case string(selection.KindLogical):
		return selection.NewLogical(spec.DomainID, topoName, spec.Start, spec.End, preserve), nil
	case string(selection.KindExplicit):
		if len(spec.Elements) == 0 {
			return nil, fmt.Errorf("%w: selections[%d]: explicit selection requires \"elements\"", mperr.ErrOptionMalformed, i)
		}
		return selection.NewExplicit(spec.DomainID, topoName, spec.Elements, preserve), nil
	case string(selection.KindRanges):
		if len(spec.Ranges)%2 != 0 {
			return nil, fmt.Errorf("%w: selections[%d]: ranges selection requires an even-length \"ranges\" array", mperr.ErrOptionMalformed, i)
		}
		items := make([]selection.Range, 0, len(spec.Ranges)/2)
		for j := 0; j < len(spec.Ranges); j += 2 {
			items = append(items, selection.Range{Lo: spec.Ranges[j], Hi: spec.Ranges[j+1]})
		}
		return selection.NewRanges(spec.DomainID, topoName, items, preserve), nil
	case string(selection.KindField):
		if spec.Field == "" {
			return nil, fmt.Errorf("%w: selections[%d]: field selection requires \"field\"", mperr.ErrOptionMalformed, i)
		}
		return selection.NewByField(spec.DomainID, topoName, spec.Field, preserve), nil
	default:
		return nil, fmt.Errorf("%w: selections[%d]: unknown selection type %q", mperr.ErrOptionMalformed, i, spec.Type)
	}
}
