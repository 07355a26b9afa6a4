// Package mapper implements the C4 component: assigning a concrete
// destination rank and domain id to every chunk produced by extraction,
// honoring any fixed (non-FREE) ids the input already carries (spec
// section 4.4).
package mapper

import (
	"encoding/binary"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/notargets/meshrepart/extract"
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/selection"
	"github.com/notargets/meshrepart/transport"
)

const chunkInfoSize = 16 // numElements int64, destRank int32, destDomain int32

type chunkInfo struct {
	numElements int64
	destRank    int32
	destDomain  int32
}

// chunkElementCount sums the element count of every topology in a chunk's
// tree; extract.Extract always produces exactly one topology per chunk.
func chunkElementCount(c *extract.Chunk) (int64, error) {
	d := mesh.NewDomain(c.Mesh)
	name, err := d.FirstTopologyName()
	if err != nil {
		return 0, fmt.Errorf("mapper: chunk has no topology: %w", err)
	}
	topo, err := d.Topology(name)
	if err != nil {
		return 0, err
	}
	n, err := topo.NumElements()
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func encodeInfo(destRank, destDomain int, numElements int64) []byte {
	buf := make([]byte, chunkInfoSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(numElements))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(int32(destRank)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(int32(destDomain)))
	return buf
}

func decodeInfos(buf []byte) []chunkInfo {
	n := len(buf) / chunkInfoSize
	out := make([]chunkInfo, n)
	for i := 0; i < n; i++ {
		b := buf[i*chunkInfoSize:]
		out[i] = chunkInfo{
			numElements: int64(binary.LittleEndian.Uint64(b[0:8])),
			destRank:    int32(binary.LittleEndian.Uint32(b[8:12])),
			destDomain:  int32(binary.LittleEndian.Uint32(b[12:16])),
		}
	}
	return out
}

// Assign implements spec section 4.4 steps 1-6, mutating each of
// localChunks' DestRank/DestDomain in place. target is the resolved
// output domain count (spec section 4.7 step 4).
func Assign(g transport.Group, localChunks []*extract.Chunk, target int, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	// Step 1: all-gather per-chunk (num_elements, destination_rank,
	// destination_domain).
	local := make([]byte, 0, len(localChunks)*chunkInfoSize)
	for _, c := range localChunks {
		n, err := chunkElementCount(c)
		if err != nil {
			return err
		}
		local = append(local, encodeInfo(c.DestRank, c.DestDomain, n)...)
	}
	perRank := g.AllGatherV(local)

	var global []chunkInfo
	offsets := make([]int, len(perRank))
	for r, buf := range perRank {
		offsets[r] = len(global)
		global = append(global, decodeInfos(buf)...)
	}

	// Step 2: reserved destination-domain ids.
	reserved := make(map[int]bool)
	for _, c := range global {
		if c.destDomain != selection.Free {
			reserved[int(c.destDomain)] = true
		}
	}
	effectiveTarget := target
	if len(reserved) > target {
		log.Warn("mapper: reserved destination domains exceed target, clamping",
			zap.Int("reserved", len(reserved)), zap.Int("target", target))
		effectiveTarget = len(reserved)
	}
	domains := make([]int, 0, effectiveTarget)
	for id := range reserved {
		domains = append(domains, id)
	}
	sort.Ints(domains)
	next := 0
	for len(domains) < effectiveTarget {
		for reserved[next] {
			next++
		}
		reserved[next] = true
		domains = append(domains, next)
		sort.Ints(domains)
		next++
	}

	// Step 3: per-domain element counts seeded from fixed-domain chunks.
	domainCount := make(map[int]int64, len(domains))
	for _, id := range domains {
		domainCount[id] = 0
	}
	// domainAnchorRank records a domain's rank if any chunk in it already
	// carries a fixed destination-rank; the equal-domain-equal-rank
	// invariant (spec section 3) then binds every other chunk in that
	// domain to the same rank instead of a freshly load-balanced one.
	domainAnchorRank := make(map[int]int)
	for _, c := range global {
		if c.destDomain != selection.Free {
			domainCount[int(c.destDomain)] += c.numElements
		}
		if c.destRank != selection.Free && c.destDomain != selection.Free {
			if r, ok := domainAnchorRank[int(c.destDomain)]; !ok || int(c.destRank) < r {
				domainAnchorRank[int(c.destDomain)] = int(c.destRank)
			}
		}
	}

	// Step 4: assign FREE destination-domain chunks to the
	// current-minimum-count domain.
	assignedDomain := make([]int, len(global))
	for i, c := range global {
		if c.destDomain != selection.Free {
			assignedDomain[i] = int(c.destDomain)
			continue
		}
		d := minCountDomain(domains, domainCount)
		assignedDomain[i] = d
		domainCount[d] += c.numElements
	}

	// Step 5: per-rank element counts from fixed-rank chunks, and the set
	// of domains with at least one FREE-rank chunk needing an assignment.
	rankCount := make(map[int]int64, g.Size())
	for r := 0; r < g.Size(); r++ {
		rankCount[r] = 0
	}
	freeRankDomains := make(map[int]bool)
	for i, c := range global {
		if c.destRank != selection.Free {
			rankCount[int(c.destRank)] += c.numElements
			continue
		}
		if _, anchored := domainAnchorRank[assignedDomain[i]]; !anchored {
			freeRankDomains[assignedDomain[i]] = true
		}
	}
	dFree := make([]int, 0, len(freeRankDomains))
	for d := range freeRankDomains {
		dFree = append(dFree, d)
	}
	sort.Slice(dFree, func(i, j int) bool {
		if domainCount[dFree[i]] != domainCount[dFree[j]] {
			return domainCount[dFree[i]] > domainCount[dFree[j]]
		}
		return dFree[i] < dFree[j]
	})

	// Step 6: assign each D_free domain the current-minimum-count rank.
	domainRank := make(map[int]int, len(domains))
	for d, r := range domainAnchorRank {
		domainRank[d] = r
	}
	for _, d := range dFree {
		r := minCountRank(g.Size(), rankCount)
		domainRank[d] = r
		rankCount[r] += domainCount[d]
		log.Info("mapper: assigned rank to domain",
			zap.Int("domain", d), zap.Int("rank", r), zap.Int64("domain_total", domainCount[d]))
	}

	assignedRank := make([]int, len(global))
	for i, c := range global {
		if c.destRank != selection.Free {
			assignedRank[i] = int(c.destRank)
			continue
		}
		assignedRank[i] = domainRank[assignedDomain[i]]
	}

	// Apply the slice of the global assignment belonging to this rank.
	myOffset := offsets[g.Rank()]
	for i, c := range localChunks {
		c.DestDomain = assignedDomain[myOffset+i]
		c.DestRank = assignedRank[myOffset+i]
	}
	return nil
}

func minCountDomain(domains []int, count map[int]int64) int {
	best := domains[0]
	for _, d := range domains[1:] {
		if count[d] < count[best] {
			best = d
		}
	}
	return best
}

func minCountRank(size int, count map[int]int64) int {
	best := 0
	for r := 1; r < size; r++ {
		if count[r] < count[best] {
			best = r
		}
	}
	return best
}
