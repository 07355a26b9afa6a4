package selection

import (
	"fmt"

	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/mperr"
)

// ByField is a selection whose destination domains come from the integer
// values of a named field, one distinct value per resulting sub-selection
// (spec section 3 and 4.1).
type ByField struct {
	base
	FieldName string
}

// NewByField builds a field-based selection.
func NewByField(domainID int, topology, fieldName string, preserveMapping bool) *ByField {
	return &ByField{base: newBase(domainID, topology, preserveMapping), FieldName: fieldName}
}

func (s *ByField) Kind() Kind { return KindField }

func (s *ByField) tagValues(d mesh.Domain) ([]int64, error) {
	f, err := d.Field(s.FieldName)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", mperr.ErrSelectionInapplicable, s.FieldName, err)
	}
	assoc, err := f.Association()
	if err != nil {
		return nil, err
	}
	if assoc != mesh.AssocElement {
		return nil, fmt.Errorf("%w: field %q must be element-associated to drive a field selection", mperr.ErrSelectionInapplicable, s.FieldName)
	}
	values, err := f.Values()
	if err != nil {
		return nil, err
	}
	tags, err := values.Int64Array()
	if err != nil {
		return nil, fmt.Errorf("%w: field %q must hold integer values", mperr.ErrSelectionInapplicable, s.FieldName)
	}
	return tags, nil
}

func (s *ByField) Applicable(d mesh.Domain) (bool, error) {
	topo, err := topologyOf(d, s.topology)
	if err != nil {
		return false, nil
	}
	tags, err := s.tagValues(d)
	if err != nil {
		return false, err
	}
	n, err := topo.NumElements()
	if err != nil {
		return false, err
	}
	if len(tags) != n {
		return false, fmt.Errorf("%w: field %q has %d values, topology %q has %d elements", mperr.ErrSelectionInapplicable, s.FieldName, len(tags), s.topology, n)
	}
	return true, nil
}

func (s *ByField) Length(d mesh.Domain) (uint64, error) {
	tags, err := s.tagValues(d)
	if err != nil {
		return 0, err
	}
	return uint64(len(tags)), nil
}

func (s *ByField) IsWhole(d mesh.Domain) (bool, error) { return true, nil }

// Partition performs the one-shot fan-out into per-tag-value
// sub-selections, each atomic (spec section 4.1: "not further split by
// C3").
func (s *ByField) Partition(d mesh.Domain) ([]Selection, error) {
	tags, err := s.tagValues(d)
	if err != nil {
		return nil, err
	}
	byTag := make(map[int64][]int64)
	var order []int64
	for elem, tag := range tags {
		if _, seen := byTag[tag]; !seen {
			order = append(order, tag)
		}
		byTag[tag] = append(byTag[tag], int64(elem))
	}
	insertionSort(order)

	out := make([]Selection, 0, len(order))
	for _, tag := range order {
		out = append(out, newAtomicExplicit(s.domainID, s.topology, byTag[tag], s.preserveMapping, int(tag)))
	}
	return out, nil
}

func (s *ByField) ProjectElements(d mesh.Domain, lo, hi int64) ([]int64, error) {
	tags, err := s.tagValues(d)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(tags))
	for elem := range tags {
		ids = append(ids, int64(elem))
	}
	return clampSorted(ids, lo, hi), nil
}
