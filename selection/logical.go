package selection

import (
	"fmt"

	"github.com/notargets/meshrepart/mesh"
)

// Logical is an axis-aligned IJK sub-box selection against a structured
// topology (spec section 3).
type Logical struct {
	base
	Start [3]int
	End   [3]int // inclusive
}

// NewLogical builds a logical selection over [start,end] (inclusive per
// axis).
func NewLogical(domainID int, topology string, start, end [3]int, preserveMapping bool) *Logical {
	return &Logical{base: newBase(domainID, topology, preserveMapping), Start: start, End: end}
}

func (s *Logical) Kind() Kind { return KindLogical }

func (s *Logical) dims(d mesh.Domain) ([]int, error) {
	topo, err := topologyOf(d, s.topology)
	if err != nil {
		return nil, err
	}
	kind, err := topo.Kind()
	if err != nil {
		return nil, err
	}
	if !kind.Implicit() {
		return nil, fmt.Errorf("mesh: logical selection requires an implicit topology, got %q", kind)
	}
	dims, err := elementDimsOf(topo)
	if err != nil {
		return nil, err
	}
	return dims, nil
}

func (s *Logical) Applicable(d mesh.Domain) (bool, error) {
	_, err := s.dims(d)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Logical) axisLen(a int) int { return s.End[a] - s.Start[a] + 1 }

func (s *Logical) Length(d mesh.Domain) (uint64, error) {
	dims, err := s.dims(d)
	if err != nil {
		return 0, err
	}
	n := uint64(1)
	for a := range dims {
		n *= uint64(s.axisLen(a))
	}
	return n, nil
}

func (s *Logical) IsWhole(d mesh.Domain) (bool, error) {
	if s.whole == wholeTrue {
		return true, nil
	}
	if s.whole == wholeFalse {
		return false, nil
	}
	dims, err := s.dims(d)
	if err != nil {
		return false, err
	}
	whole := true
	for a := range dims {
		if s.Start[a] != 0 || s.End[a] != dims[a]-1 {
			whole = false
			break
		}
	}
	if whole {
		s.whole = wholeTrue
	} else {
		s.whole = wholeFalse
	}
	return whole, nil
}

// Partition halves the selection along the longest axis, breaking ties
// i > j > k, and never splits a singleton axis (spec section 4.1).
func (s *Logical) Partition(d mesh.Domain) ([]Selection, error) {
	dims, err := s.dims(d)
	if err != nil {
		return nil, err
	}
	best := -1
	bestLen := -1
	for a := 0; a < len(dims); a++ {
		if s.axisLen(a) <= 1 {
			continue
		}
		l := s.axisLen(a)
		if l > bestLen {
			bestLen = l
			best = a
		}
	}
	if best < 0 {
		return []Selection{s}, nil
	}
	mid := s.Start[best] + (s.axisLen(best))/2

	left := &Logical{base: s.base, Start: s.Start, End: s.End}
	right := &Logical{base: s.base, Start: s.Start, End: s.End}
	left.End[best] = mid - 1
	right.Start[best] = mid
	left.whole, right.whole = wholeUndetermined, wholeUndetermined
	return []Selection{left, right}, nil
}

func (s *Logical) ProjectElements(d mesh.Domain, lo, hi int64) ([]int64, error) {
	dims, err := s.dims(d)
	if err != nil {
		return nil, err
	}
	var ids []int64
	switch len(dims) {
	case 1:
		for i := s.Start[0]; i <= s.End[0]; i++ {
			ids = append(ids, int64(flattenN([]int{i}, dims)))
		}
	case 2:
		for j := s.Start[1]; j <= s.End[1]; j++ {
			for i := s.Start[0]; i <= s.End[0]; i++ {
				ids = append(ids, int64(flattenN([]int{i, j}, dims)))
			}
		}
	case 3:
		for k := s.Start[2]; k <= s.End[2]; k++ {
			for j := s.Start[1]; j <= s.End[1]; j++ {
				for i := s.Start[0]; i <= s.End[0]; i++ {
					ids = append(ids, int64(flattenN([]int{i, j, k}, dims)))
				}
			}
		}
	}
	ids = sortUnique(ids)
	return clampSorted(ids, lo, hi), nil
}

func flattenN(ijk []int, dims []int) int {
	p := 0
	stride := 1
	for a := 0; a < len(dims); a++ {
		p += ijk[a] * stride
		stride *= dims[a]
	}
	return p
}

func elementDimsOf(topo mesh.Topology) ([]int, error) {
	_, err := topo.NumElements()
	if err != nil {
		return nil, err
	}
	// Structured/uniform/rectilinear topologies expose their per-axis
	// element counts indirectly through NumElements' product; recover the
	// factors via the coordset dims helper on Topology.
	return topo.LogicalDims()
}
