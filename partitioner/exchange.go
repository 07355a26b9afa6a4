package partitioner

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/notargets/meshrepart/extract"
	"github.com/notargets/meshrepart/selection"
	"github.com/notargets/meshrepart/split"
	"github.com/notargets/meshrepart/transport"
)

// distinctFixedDomainCount gathers every rank's non-FREE
// destination_domain ids and returns the size of their union, implementing
// section 8 invariant 5's "|{fixed destination_domain ids}|" term. It runs
// before extraction, over selections rather than extracted chunks, since
// field fan-out already fixes destination_domain at selection time.
func distinctFixedDomainCount(g transport.Group, entries []split.Entry) int {
	local := make(map[int32]struct{})
	for _, e := range entries {
		if id := e.Sel.DestinationDomain(); id != selection.Free {
			local[int32(id)] = struct{}{}
		}
	}

	buf := make([]byte, 0, len(local)*4)
	for id := range local {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(id))
		buf = append(buf, b...)
	}

	all := make(map[int32]struct{})
	for _, payload := range g.AllGatherV(buf) {
		for i := 0; i+4 <= len(payload); i += 4 {
			all[int32(binary.LittleEndian.Uint32(payload[i:i+4]))] = struct{}{}
		}
	}
	return len(all)
}

const headerSize = 16 // srcRank int32, tag int32, destRank int32, destDomain int32

type header struct {
	srcRank    int32
	tag        int32
	destRank   int32
	destDomain int32
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.srcRank))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.tag))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.destRank))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.destDomain))
	return buf
}

func decodeHeaders(buf []byte) []header {
	n := len(buf) / headerSize
	out := make([]header, n)
	for i := 0; i < n; i++ {
		b := buf[i*headerSize:]
		out[i] = header{
			srcRank:    int32(binary.LittleEndian.Uint32(b[0:4])),
			tag:        int32(binary.LittleEndian.Uint32(b[4:8])),
			destRank:   int32(binary.LittleEndian.Uint32(b[8:12])),
			destDomain: int32(binary.LittleEndian.Uint32(b[12:16])),
		}
	}
	return out
}

// redistribute implements spec section 4.5: chunks already destined for
// the local rank are kept untouched; every other chunk is exchanged
// through the transport.Group so each rank ends up holding exactly the
// chunks the mapper assigned to it. The exchange plan itself (who sends
// what to whom, under what tag) is all-gathered as a small fixed-width
// header array first, mirroring the "layout then payload" two-step spec
// section 4.5 describes for a single tree and the header/body pattern
// mapper.Assign already uses for its own chunk-info all-gather.
func redistribute(g transport.Group, chunks []*extract.Chunk, log *zap.Logger) ([]*extract.Chunk, error) {
	rank := int32(g.Rank())

	var outgoing []*extract.Chunk
	var headers []byte
	for _, c := range chunks {
		if int32(c.DestRank) == rank {
			continue
		}
		tag := int32(len(outgoing))
		headers = append(headers, encodeHeader(header{
			srcRank:    rank,
			tag:        tag,
			destRank:   int32(c.DestRank),
			destDomain: int32(c.DestDomain),
		})...)
		outgoing = append(outgoing, c)
	}

	kept := make([]*extract.Chunk, 0, len(chunks)-len(outgoing))
	for _, c := range chunks {
		if int32(c.DestRank) == rank {
			kept = append(kept, c)
		}
	}

	allHeaders := g.AllGather(headers)

	var recvs []*transport.PendingRecv
	var recvDomains []int
	for src, buf := range allHeaders {
		for _, h := range decodeHeaders(buf) {
			if h.destRank != rank {
				continue
			}
			recvs = append(recvs, g.PostRecv(src, int(h.tag)))
			recvDomains = append(recvDomains, int(h.destDomain))
		}
	}

	for i, c := range outgoing {
		g.PostSend(c.Mesh, c.DestRank, i)
	}

	if err := g.ExecutePending(); err != nil {
		return nil, err
	}

	owned := kept
	for i, pr := range recvs {
		owned = append(owned, &extract.Chunk{
			Mesh:       pr.Tree,
			Ownership:  extract.Own,
			DestRank:   int(rank),
			DestDomain: recvDomains[i],
		})
	}

	log.Info("partitioner: redistributed chunks",
		zap.Int("kept", len(kept)), zap.Int("sent", len(outgoing)), zap.Int("received", len(recvs)))
	return owned, nil
}
