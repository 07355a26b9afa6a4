// Package split implements the C3 component: the iterative loop that
// subdivides the globally largest selection until the total selection
// count reaches the target domain count (spec section 4.3).
package split

import (
	"go.uber.org/zap"

	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/selection"
	"github.com/notargets/meshrepart/transport"
)

// Entry pairs a selection with the domain it applies to, since Length and
// Partition both need the referenced mesh.
type Entry struct {
	Sel    selection.Selection
	Domain mesh.Domain
}

// noSplittableSentinel marks "this rank has nothing splittable" in the
// AllReduceMaxLoc value channel, since legitimate selection lengths are
// never negative.
const noSplittableSentinel = -1

// Run repeatedly splits the globally largest splittable selection until
// the total count across the group reaches target, or no selection
// anywhere remains splittable.
func Run(g transport.Group, entries []Entry, target int, log *zap.Logger) ([]Entry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for {
		total := g.AllReduceSum(int64(len(entries)))
		if total >= int64(target) {
			break
		}

		bestIdx, bestLen, err := localLargest(entries)
		if err != nil {
			return nil, err
		}
		localValue := int64(noSplittableSentinel)
		if bestIdx >= 0 {
			localValue = int64(bestLen)
		}

		maxValue, atRank := g.AllReduceMaxLoc(localValue)
		if maxValue == noSplittableSentinel {
			log.Warn("split: target not reached but no selection is splittable",
				zap.Int64("total", total), zap.Int("target", target))
			break
		}

		if atRank == g.Rank() {
			parts, err := entries[bestIdx].Sel.Partition(entries[bestIdx].Domain)
			if err != nil {
				return nil, err
			}
			domain := entries[bestIdx].Domain
			replacement := make([]Entry, len(parts))
			for i, p := range parts {
				replacement[i] = Entry{Sel: p, Domain: domain}
			}
			next := make([]Entry, 0, len(entries)+len(parts)-1)
			next = append(next, entries[:bestIdx]...)
			next = append(next, replacement...)
			next = append(next, entries[bestIdx+1:]...)
			entries = next
			log.Info("split: partitioned selection",
				zap.Int("rank", g.Rank()), zap.Int("into", len(parts)), zap.Uint64("length", bestLen))
		}
	}
	return entries, nil
}

// localLargest returns the index and element count of the largest
// splittable selection among entries, or (-1, 0, nil) if none is
// splittable. Ties keep the first (lowest-index) match.
//
// A selection with Length < 2 cannot produce two non-empty parts (every
// variant's Partition returns itself unchanged in that case), so it is
// treated as non-splittable here even though Splittable() only reflects
// the one-shot atomic flag. Without this, a single-element Explicit (or
// an all-singleton-axis Logical) would be picked forever once it becomes
// the largest remaining entry, and the loop would never grow len(entries)
// or reach the noSplittableSentinel break.
func localLargest(entries []Entry) (int, uint64, error) {
	bestIdx := -1
	var bestLen uint64
	for i, e := range entries {
		if !e.Sel.Splittable() {
			continue
		}
		n, err := e.Sel.Length(e.Domain)
		if err != nil {
			return -1, 0, err
		}
		if n < 2 {
			continue
		}
		if bestIdx < 0 || n > bestLen {
			bestIdx = i
			bestLen = n
		}
	}
	return bestIdx, bestLen, nil
}
