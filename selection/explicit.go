package selection

import (
	"fmt"

	"github.com/notargets/meshrepart/mesh"
)

// Explicit is an arbitrary sorted unique list of element ids on a named
// topology (spec section 3).
type Explicit struct {
	base
	Elements []int64 // strictly increasing
}

// NewExplicit builds an explicit-element selection. elements must already
// be strictly increasing per spec invariant 2; NewExplicit does not check
// this, and neither does the config package's decoder, which only rejects
// an empty list. Applicable checks only the first and last ids against the
// topology's element count.
func NewExplicit(domainID int, topology string, elements []int64, preserveMapping bool) *Explicit {
	return &Explicit{base: newBase(domainID, topology, preserveMapping), Elements: elements}
}

// newAtomicExplicit builds a one-shot field-partition sub-selection that C3
// must not split further (spec section 4.1).
func newAtomicExplicit(domainID int, topology string, elements []int64, preserveMapping bool, destDomain int) *Explicit {
	e := NewExplicit(domainID, topology, elements, preserveMapping)
	e.atomic = true
	e.destDomain = destDomain
	return e
}

func (s *Explicit) Kind() Kind { return KindExplicit }

func (s *Explicit) Applicable(d mesh.Domain) (bool, error) {
	topo, err := topologyOf(d, s.topology)
	if err != nil {
		return false, nil
	}
	n, err := topo.NumElements()
	if err != nil {
		return false, err
	}
	if len(s.Elements) > 0 {
		if s.Elements[0] < 0 || s.Elements[len(s.Elements)-1] >= int64(n) {
			return false, fmt.Errorf("%w: explicit selection element id out of range for topology %q", errIDsOutOfRange, s.topology)
		}
	}
	return true, nil
}

func (s *Explicit) Length(d mesh.Domain) (uint64, error) {
	return uint64(len(s.Elements)), nil
}

func (s *Explicit) IsWhole(d mesh.Domain) (bool, error) {
	if s.whole == wholeTrue {
		return true, nil
	}
	if s.whole == wholeFalse {
		return false, nil
	}
	topo, err := topologyOf(d, s.topology)
	if err != nil {
		return false, err
	}
	n, err := topo.NumElements()
	if err != nil {
		return false, err
	}
	whole := len(s.Elements) == n
	if whole {
		s.whole = wholeTrue
	} else {
		s.whole = wholeFalse
	}
	return whole, nil
}

// Partition sorts once (elements are expected sorted already; this is
// defensive) and splits the id vector at its midpoint.
func (s *Explicit) Partition(d mesh.Domain) ([]Selection, error) {
	if len(s.Elements) < 2 {
		return []Selection{s}, nil
	}
	sorted := sortUnique(append([]int64(nil), s.Elements...))
	mid := len(sorted) / 2
	left := &Explicit{base: s.base, Elements: sorted[:mid]}
	right := &Explicit{base: s.base, Elements: sorted[mid:]}
	left.whole, right.whole = wholeUndetermined, wholeUndetermined
	return []Selection{left, right}, nil
}

func (s *Explicit) ProjectElements(d mesh.Domain, lo, hi int64) ([]int64, error) {
	return clampSorted(s.Elements, lo, hi), nil
}
