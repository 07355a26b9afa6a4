// Package transport implements the C5 component: the abstract process
// group the driver runs its collectives and point-to-point exchanges
// through (spec section 6.4), with a serial no-op implementation and an
// MPI-backed one.
package transport

import "github.com/notargets/meshrepart/attrtree"

// Group is the process-group handle used by the splitter, mapper and
// combiner. It is the sole place parallelism enters the core: every other
// package is written against mesh/selection/attrtree values only.
type Group interface {
	Rank() int
	Size() int

	// AllReduceSum returns the sum of v across all ranks.
	AllReduceSum(v int64) int64

	// AllReduceMaxLoc returns the maximum of v across all ranks and the
	// rank that holds it. Ties resolve to the lowest rank, matching the
	// "lower rank, lower index" tie-break spec section 4.3 and 5 require
	// (the caller supplies "lower index" locally once it knows it owns
	// the maximum).
	AllReduceMaxLoc(v int64) (maxValue int64, atRank int)

	// AllGather concatenates one value per rank, in rank order.
	AllGather(v []byte) [][]byte

	// AllGatherV concatenates variable-length payloads, one per rank, in
	// rank order.
	AllGatherV(v []byte) [][]byte

	// PostSend enqueues a non-blocking send of tree to dest tagged tag.
	// Nothing is transferred until ExecutePending (spec section 4.5 step 3).
	PostSend(tree *attrtree.Node, dest, tag int)

	// PostRecv enqueues a non-blocking receive from src tagged tag. The
	// returned handle's Tree is populated once ExecutePending returns.
	PostRecv(src, tag int) *PendingRecv

	// ExecutePending drives all posted sends/receives to completion.
	ExecutePending() error
}

// PendingRecv is a handle to an outstanding receive, populated by
// ExecutePending.
type PendingRecv struct {
	Tree *attrtree.Node
}
