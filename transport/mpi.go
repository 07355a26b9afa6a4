package transport

import (
	"fmt"
	"sort"

	"github.com/cpmech/gosl/mpi"

	"github.com/notargets/meshrepart/attrtree"
)

// MPIGroup binds Group to a real MPI communicator via cpmech/gosl/mpi, the
// same cgo MPI binding the corpus's finite-element solvers use for
// distributed assembly (grounded on gofem's fem.Main, which drives its
// domain loop off mpi.Rank()/mpi.Size()).
type MPIGroup struct {
	comm *mpi.Communicator

	pendingSends []pendingSend
	pendingRecvs []*pendingRecvState
}

type pendingSend struct {
	tree *attrtree.Node
	dest int
	tag  int
}

type pendingRecvState struct {
	src    int
	tag    int
	handle *PendingRecv
}

// NewMPIGroup wraps the default (world) communicator. Callers are
// responsible for having called mpi.Start() during process init and
// mpi.Stop() at exit, per gosl/mpi's own usage convention.
func NewMPIGroup() *MPIGroup {
	return &MPIGroup{comm: mpi.NewCommunicator(nil)}
}

func (g *MPIGroup) Rank() int { return g.comm.Rank() }
func (g *MPIGroup) Size() int { return g.comm.Size() }

func (g *MPIGroup) AllReduceSum(v int64) int64 {
	orig := []float64{float64(v)}
	dest := make([]float64, 1)
	g.comm.AllReduceSum(dest, orig)
	return int64(dest[0])
}

func (g *MPIGroup) AllReduceMaxLoc(v int64) (int64, int) {
	orig := []float64{float64(v)}
	dest := make([]float64, 1)
	origLoc := []int32{int32(g.comm.Rank())}
	destLoc := make([]int32, 1)
	g.comm.AllReduceMaxLoc(dest, orig, destLoc, origLoc)
	return int64(dest[0]), int(destLoc[0])
}

// AllGather uses one send/recv per rank pair through the communicator's
// point-to-point primitives, since gosl/mpi's collective helpers operate
// on fixed-shape float64 vectors rather than raw byte payloads.
func (g *MPIGroup) AllGather(v []byte) [][]byte {
	return g.allGatherVariable([][]byte{v})
}

func (g *MPIGroup) AllGatherV(v []byte) [][]byte {
	return g.allGatherVariable([][]byte{v})
}

func (g *MPIGroup) allGatherVariable(local [][]byte) [][]byte {
	size := g.comm.Size()
	rank := g.comm.Rank()
	lengths := make([]int, size)
	myLen := 0
	if len(local) > 0 {
		myLen = len(local[0])
	}
	for r := 0; r < size; r++ {
		if r == rank {
			lengths[r] = myLen
			continue
		}
		lengths[r] = g.exchangeLen(myLen, r)
	}

	out := make([][]byte, size)
	for r := 0; r < size; r++ {
		if r == rank {
			if myLen > 0 {
				out[r] = local[0]
			}
			continue
		}
		if lengths[r] == 0 {
			continue
		}
		out[r] = g.exchangeBytes(local, r, lengths[r])
	}
	return out
}

func (g *MPIGroup) exchangeLen(myLen, peer int) int {
	sent := []float64{float64(myLen)}
	g.comm.Send(sent, peer)
	recv := make([]float64, 1)
	g.comm.Recv(recv, peer)
	return int(recv[0])
}

func (g *MPIGroup) exchangeBytes(local [][]byte, peer, peerLen int) []byte {
	var payload []byte
	if len(local) > 0 {
		payload = local[0]
	}
	sent := bytesToFloat64(payload)
	g.comm.Send(sent, peer)
	recv := make([]float64, peerLen)
	g.comm.Recv(recv, peer)
	return float64ToBytes(recv)
}

func bytesToFloat64(b []byte) []float64 {
	out := make([]float64, len(b))
	for i, v := range b {
		out[i] = float64(v)
	}
	return out
}

func float64ToBytes(f []float64) []byte {
	out := make([]byte, len(f))
	for i, v := range f {
		out[i] = byte(v)
	}
	return out
}

func (g *MPIGroup) PostSend(tree *attrtree.Node, dest, tag int) {
	g.pendingSends = append(g.pendingSends, pendingSend{tree: tree, dest: dest, tag: tag})
}

func (g *MPIGroup) PostRecv(src, tag int) *PendingRecv {
	h := &PendingRecv{}
	g.pendingRecvs = append(g.pendingRecvs, &pendingRecvState{src: src, tag: tag, handle: h})
	return h
}

// ExecutePending sends, for every pending send/receive pair, the gob
// payload's byte length followed by the payload itself (spec section 4.5
// step 3), then clears the queues. No separate layout description is sent.
//
// gosl/mpi's Send/Recv address a peer by rank only, with no tag
// parameter, so a channel between two ranks carrying more than one
// pending message must agree on message order some other way. Sorting
// each side's queue by (peer, tag) achieves that without needing a
// tagged primitive: MPI preserves FIFO order per rank pair, so the k-th
// smallest tag this rank sends to a peer is always the k-th smallest tag
// that peer receives from it, as long as both ends walk their queue for
// that peer in tag order. The tag each message was posted with (the
// partitioner uses the chunk's index in the sender's outgoing list, not a
// global chunk index)
// therefore still determines which chunk lands in which PendingRecv,
// even though the wire protocol itself carries no tag field.
func (g *MPIGroup) ExecutePending() error {
	sends := append([]pendingSend(nil), g.pendingSends...)
	sort.Slice(sends, func(i, j int) bool {
		if sends[i].dest != sends[j].dest {
			return sends[i].dest < sends[j].dest
		}
		return sends[i].tag < sends[j].tag
	})
	recvs := append([]*pendingRecvState(nil), g.pendingRecvs...)
	sort.Slice(recvs, func(i, j int) bool {
		if recvs[i].src != recvs[j].src {
			return recvs[i].src < recvs[j].src
		}
		return recvs[i].tag < recvs[j].tag
	})

	for _, s := range sends {
		payload, err := attrtree.Marshal(s.tree)
		if err != nil {
			return fmt.Errorf("transport: marshal chunk for send to rank %d: %w", s.dest, err)
		}
		length := []float64{float64(len(payload))}
		g.comm.Send(length, s.dest)
		g.comm.Send(bytesToFloat64(payload), s.dest)
	}
	for _, r := range recvs {
		length := make([]float64, 1)
		g.comm.Recv(length, r.src)
		payload := make([]float64, int(length[0]))
		g.comm.Recv(payload, r.src)
		tree, err := attrtree.Unmarshal(float64ToBytes(payload))
		if err != nil {
			return fmt.Errorf("transport: unmarshal chunk from rank %d: %w", r.src, err)
		}
		r.handle.Tree = tree
	}
	g.pendingSends = g.pendingSends[:0]
	g.pendingRecvs = g.pendingRecvs[:0]
	return nil
}
