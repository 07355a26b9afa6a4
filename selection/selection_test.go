package selection

import (
	"errors"
	"testing"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/mperr"
)

// rectilinearDomain builds a 2x2-cell rectilinear mesh (3x3 points),
// mirroring the fixture extract and partitioner tests use.
func rectilinearDomain() mesh.Domain {
	root := attrtree.NewObject("")
	coordsets := root.Add("coordsets")
	coords := coordsets.Add("coords")
	coords.SetScalarString("type", "rectilinear")
	values := coords.Add("values")
	values.SetArrayFloat64("x", []float64{0, 1, 2})
	values.SetArrayFloat64("y", []float64{0, 1, 2})
	topologies := root.Add("topologies")
	topo := topologies.Add("mesh")
	topo.SetScalarString("type", "rectilinear")
	topo.SetScalarString("coordset", "coords")
	return mesh.NewDomain(root)
}

func TestLogicalApplicableAndWhole(t *testing.T) {
	d := rectilinearDomain()
	sel := NewLogical(0, "mesh", [3]int{0, 0, 0}, [3]int{1, 1, 0}, true)

	ok, err := sel.Applicable(d)
	if err != nil || !ok {
		t.Fatalf("Applicable = %v, %v, want true, nil", ok, err)
	}
	whole, err := sel.IsWhole(d)
	if err != nil || !whole {
		t.Fatalf("IsWhole = %v, %v, want true, nil", whole, err)
	}
	n, err := sel.Length(d)
	if err != nil || n != 4 {
		t.Fatalf("Length = %v, %v, want 4, nil", n, err)
	}
}

func TestLogicalPartitionSplitsAlongLongestAxis(t *testing.T) {
	d := rectilinearDomain()
	sel := NewLogical(0, "mesh", [3]int{0, 0, 0}, [3]int{1, 1, 0}, true)

	parts, err := sel.Partition(d)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("Partition returned %d selections, want 2", len(parts))
	}
	var total uint64
	for _, p := range parts {
		n, err := p.Length(d)
		if err != nil {
			t.Fatalf("Length: %v", err)
		}
		total += n
	}
	if total != 4 {
		t.Fatalf("split lengths sum to %d, want 4", total)
	}
}

func TestExplicitOutOfRangeErrors(t *testing.T) {
	d := rectilinearDomain()
	sel := NewExplicit(0, "mesh", []int64{0, 99}, true)

	_, err := sel.Applicable(d)
	if !errors.Is(err, mperr.ErrIDsOutOfRange) {
		t.Fatalf("Applicable error = %v, want ErrIDsOutOfRange", err)
	}
}

func TestExplicitProjectElementsClamps(t *testing.T) {
	sel := NewExplicit(0, "mesh", []int64{0, 1, 2, 3}, true)
	got, err := sel.ProjectElements(rectilinearDomain(), 1, 2)
	if err != nil {
		t.Fatalf("ProjectElements: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("ProjectElements = %v, want [1 2]", got)
	}
}

func TestRangesLengthCountsInclusiveSpans(t *testing.T) {
	d := rectilinearDomain()
	sel := NewRanges(0, "mesh", []Range{{Lo: 0, Hi: 1}, {Lo: 3, Hi: 3}}, true)
	n, err := sel.Length(d)
	if err != nil || n != 3 {
		t.Fatalf("Length = %v, %v, want 3, nil", n, err)
	}
}

func TestByFieldSplittableOnlyOnce(t *testing.T) {
	sel := NewByField(0, "mesh", "tag", true)
	if !sel.Splittable() {
		t.Fatalf("a fresh field selection must be splittable")
	}

	d := rectilinearDomain()
	holder := attrtree.NewObject("")
	holder.SetArrayInt64("v", []int64{0, 0, 1, 1})
	tagValues, _ := holder.Child("v")
	d.Node.Add("fields").AddChild("tag", mesh.NewField(mesh.AssocElement, "mesh", tagValues))
	parts, err := sel.Partition(d)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("Partition returned %d selections, want 2", len(parts))
	}
	for i, p := range parts {
		if p.Splittable() {
			t.Fatalf("field sub-selection %d must not be splittable again", i)
		}
	}
}

func TestDestinationDefaultsToFree(t *testing.T) {
	sel := NewExplicit(0, "mesh", []int64{0}, true)
	if sel.DestinationDomain() != Free || sel.DestinationRank() != Free {
		t.Fatalf("new selection destinations = (%d, %d), want (%d, %d)",
			sel.DestinationDomain(), sel.DestinationRank(), Free, Free)
	}
	sel.SetDestinationDomain(2)
	sel.SetDestinationRank(1)
	if sel.DestinationDomain() != 2 || sel.DestinationRank() != 1 {
		t.Fatalf("destination overrides did not take effect")
	}
}
