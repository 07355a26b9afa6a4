package transport

import "testing"

func TestSerialGroupIdentityCollectives(t *testing.T) {
	g := NewSerialGroup()

	if g.Rank() != 0 || g.Size() != 1 {
		t.Fatalf("Rank/Size = %d/%d, want 0/1", g.Rank(), g.Size())
	}
	if sum := g.AllReduceSum(7); sum != 7 {
		t.Fatalf("AllReduceSum(7) = %d, want 7", sum)
	}
	max, at := g.AllReduceMaxLoc(3)
	if max != 3 || at != 0 {
		t.Fatalf("AllReduceMaxLoc(3) = (%d, %d), want (3, 0)", max, at)
	}

	gathered := g.AllGather([]byte("x"))
	if len(gathered) != 1 || string(gathered[0]) != "x" {
		t.Fatalf("AllGather = %v, want [[x]]", gathered)
	}
	gatheredV := g.AllGatherV([]byte("y"))
	if len(gatheredV) != 1 || string(gatheredV[0]) != "y" {
		t.Fatalf("AllGatherV = %v, want [[y]]", gatheredV)
	}
}

func TestSerialGroupExecutePendingIsNoOp(t *testing.T) {
	g := NewSerialGroup()
	if err := g.ExecutePending(); err != nil {
		t.Fatalf("ExecutePending: %v", err)
	}
}

func TestSerialGroupPostSendPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("PostSend on a size-1 group should panic")
		}
	}()
	NewSerialGroup().PostSend(nil, 0, 0)
}

func TestSerialGroupPostRecvPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("PostRecv on a size-1 group should panic")
		}
	}()
	NewSerialGroup().PostRecv(0, 0)
}

// A *SerialGroup must satisfy Group; New's default construction relies on it.
var _ Group = (*SerialGroup)(nil)
