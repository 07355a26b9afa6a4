package transport

import "github.com/notargets/meshrepart/attrtree"

// SerialGroup is the size-1 identity group (spec section 4.5, "Serial
// path: identity"). Sends/receives never occur since there is no other
// rank to target; PostSend/PostRecv panic if ever called against self,
// which would indicate a driver bug rather than a legitimate input.
type SerialGroup struct{}

func NewSerialGroup() *SerialGroup { return &SerialGroup{} }

func (g *SerialGroup) Rank() int { return 0 }
func (g *SerialGroup) Size() int { return 1 }

func (g *SerialGroup) AllReduceSum(v int64) int64 { return v }

func (g *SerialGroup) AllReduceMaxLoc(v int64) (int64, int) { return v, 0 }

func (g *SerialGroup) AllGather(v []byte) [][]byte { return [][]byte{v} }

func (g *SerialGroup) AllGatherV(v []byte) [][]byte { return [][]byte{v} }

func (g *SerialGroup) PostSend(tree *attrtree.Node, dest, tag int) {
	panic("transport: SerialGroup.PostSend called; a size-1 group has no other rank to send to")
}

func (g *SerialGroup) PostRecv(src, tag int) *PendingRecv {
	panic("transport: SerialGroup.PostRecv called; a size-1 group has no other rank to receive from")
}

func (g *SerialGroup) ExecutePending() error { return nil }
