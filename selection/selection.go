// Package selection implements the C1 component of the partitioning
// pipeline: the tagged variant family of region descriptors described in
// spec section 4.1, one plain struct per kind rather than a class
// hierarchy (spec section 9, "Selection polymorphism").
package selection

import (
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/mperr"
)

var errIDsOutOfRange = mperr.ErrIDsOutOfRange

// Kind names a selection variant.
type Kind string

const (
	KindLogical  Kind = "logical"
	KindExplicit Kind = "explicit"
	KindRanges   Kind = "ranges"
	KindField    Kind = "field"
)

// Free marks destination_domain / destination_rank as unassigned.
const Free = -1

// Selection is the capability set every variant implements (spec 4.1).
type Selection interface {
	Kind() Kind
	DomainID() int
	Topology() string
	SetTopology(name string)

	DestinationDomain() int
	SetDestinationDomain(id int)
	DestinationRank() int
	SetDestinationRank(id int)
	PreserveMapping() bool

	// Splittable reports whether C3 may call Partition on this selection.
	// Field selections are splittable exactly once (spec 4.1's "one-shot"
	// rule); the sub-selections they produce are not.
	Splittable() bool

	Applicable(d mesh.Domain) (bool, error)
	Length(d mesh.Domain) (uint64, error)
	Partition(d mesh.Domain) ([]Selection, error)

	// ProjectElements appends the ids (clamped to [lo,hi] inclusive) of
	// selected elements in topology-local numbering, sorted and unique.
	ProjectElements(d mesh.Domain, lo, hi int64) ([]int64, error)

	IsWhole(d mesh.Domain) (bool, error)
}

type wholeState int

const (
	wholeUndetermined wholeState = iota
	wholeFalse
	wholeTrue
)

// base carries the fields common to every selection variant (spec 3,
// "Every selection carries...").
type base struct {
	domainID        int
	topology        string
	destDomain      int
	destRank        int
	preserveMapping bool
	atomic          bool
	whole           wholeState
}

func newBase(domainID int, topology string, preserveMapping bool) base {
	return base{
		domainID:        domainID,
		topology:        topology,
		destDomain:      Free,
		destRank:        Free,
		preserveMapping: preserveMapping,
	}
}

func (b *base) DomainID() int             { return b.domainID }
func (b *base) Topology() string          { return b.topology }
func (b *base) SetTopology(name string)   { b.topology = name }
func (b *base) DestinationDomain() int    { return b.destDomain }
func (b *base) SetDestinationDomain(i int) { b.destDomain = i }
func (b *base) DestinationRank() int      { return b.destRank }
func (b *base) SetDestinationRank(i int)  { b.destRank = i }
func (b *base) PreserveMapping() bool     { return b.preserveMapping }
func (b *base) Splittable() bool          { return !b.atomic }

func topologyOf(d mesh.Domain, name string) (mesh.Topology, error) {
	return d.Topology(name)
}

// sortUnique sorts s ascending and removes duplicates in place, returning
// the (possibly shorter) result.
func sortUnique(s []int64) []int64 {
	if len(s) < 2 {
		return s
	}
	insertionSort(s)
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// insertionSort keeps small id lists deterministic without pulling in
// sort.Slice's reflection overhead; callers pass already-mostly-sorted
// data in the common case (explicit/ranges selections are pre-sorted by
// the options schema).
func insertionSort(s []int64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

func clampSorted(ids []int64, lo, hi int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id >= lo && id <= hi {
			out = append(out, id)
		}
	}
	return out
}
