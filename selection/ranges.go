package selection

import (
	"fmt"

	"github.com/notargets/meshrepart/mesh"
)

// Range is an inclusive [Lo,Hi] pair of element ids.
type Range struct{ Lo, Hi int64 }

// Ranges is a list of disjoint, sorted [lo,hi] pairs of element ids
// (spec section 3).
type Ranges struct {
	base
	Items []Range
}

// NewRanges builds a ranges selection. Items must be disjoint and sorted
// ascending per spec invariant 2.
func NewRanges(domainID int, topology string, items []Range, preserveMapping bool) *Ranges {
	return &Ranges{base: newBase(domainID, topology, preserveMapping), Items: items}
}

func (s *Ranges) Kind() Kind { return KindRanges }

func (s *Ranges) totalCount() uint64 {
	var n uint64
	for _, r := range s.Items {
		n += uint64(r.Hi - r.Lo + 1)
	}
	return n
}

func (s *Ranges) Applicable(d mesh.Domain) (bool, error) {
	topo, err := topologyOf(d, s.topology)
	if err != nil {
		return false, nil
	}
	n, err := topo.NumElements()
	if err != nil {
		return false, err
	}
	for _, r := range s.Items {
		if r.Lo < 0 || r.Hi >= int64(n) || r.Lo > r.Hi {
			return false, fmt.Errorf("%w: range [%d,%d] out of range for topology %q", errIDsOutOfRange, r.Lo, r.Hi, s.topology)
		}
	}
	return true, nil
}

func (s *Ranges) Length(d mesh.Domain) (uint64, error) {
	return s.totalCount(), nil
}

func (s *Ranges) IsWhole(d mesh.Domain) (bool, error) {
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
	whole := len(s.Items) == 1 && s.Items[0].Lo == 0 && s.Items[0].Hi == int64(n-1)
	if whole {
		s.whole = wholeTrue
	} else {
		s.whole = wholeFalse
	}
	return whole, nil
}

// Partition walks ranges accumulating count, splitting the spanning range
// so both halves have count >= floor(total/2) on the left (spec 4.1).
func (s *Ranges) Partition(d mesh.Domain) ([]Selection, error) {
	total := s.totalCount()
	if total < 2 {
		return []Selection{s}, nil
	}
	target := total / 2

	var leftItems, rightItems []Range
	var acc uint64
	split := false
	for _, r := range s.Items {
		count := uint64(r.Hi - r.Lo + 1)
		if split {
			rightItems = append(rightItems, r)
			continue
		}
		if acc+count <= target {
			leftItems = append(leftItems, r)
			acc += count
			continue
		}
		// This range spans the split point: cut it.
		need := target - acc
		if need == 0 {
			rightItems = append(rightItems, r)
		} else {
			cut := r.Lo + int64(need) - 1
			leftItems = append(leftItems, Range{Lo: r.Lo, Hi: cut})
			if cut+1 <= r.Hi {
				rightItems = append(rightItems, Range{Lo: cut + 1, Hi: r.Hi})
			}
		}
		split = true
	}

	left := &Ranges{base: s.base, Items: leftItems}
	right := &Ranges{base: s.base, Items: rightItems}
	left.whole, right.whole = wholeUndetermined, wholeUndetermined
	return []Selection{left, right}, nil
}

func (s *Ranges) ProjectElements(d mesh.Domain, lo, hi int64) ([]int64, error) {
	var ids []int64
	for _, r := range s.Items {
		a, b := r.Lo, r.Hi
		if a < lo {
			a = lo
		}
		if b > hi {
			b = hi
		}
		for i := a; i <= b; i++ {
			ids = append(ids, i)
		}
	}
	return sortUnique(ids), nil
}
