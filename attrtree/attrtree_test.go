package attrtree

import "testing"

func buildSample() *Node {
	root := NewObject("")
	root.SetScalarString("title", "sample")
	coords := root.Add("coords")
	coords.SetArrayFloat64("x", []float64{0, 1, 2})
	coords.SetArrayInt64("tag", []int64{5, 6, 7})
	return root
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	root := buildSample()

	data, err := Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	title, err := mustChild(t, out, "title").AsString()
	if err != nil || title != "sample" {
		t.Fatalf("title = %q, %v, want %q", title, err, "sample")
	}
	coords := mustChild(t, out, "coords")
	x, err := mustChild(t, coords, "x").Float64Array()
	if err != nil {
		t.Fatalf("Float64Array: %v", err)
	}
	if len(x) != 3 || x[1] != 1 {
		t.Fatalf("x = %v, want [0 1 2]", x)
	}
	tag, err := mustChild(t, coords, "tag").Int64Array()
	if err != nil {
		t.Fatalf("Int64Array: %v", err)
	}
	if len(tag) != 3 || tag[2] != 7 {
		t.Fatalf("tag = %v, want [5 6 7]", tag)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	root := buildSample()
	clone := Clone(root)

	coords, _ := clone.Child("coords")
	coords.SetArrayFloat64("x", []float64{9, 9, 9})

	origCoords, _ := root.Child("coords")
	origX, err := mustChild(t, origCoords, "x").Float64Array()
	if err != nil {
		t.Fatalf("Float64Array: %v", err)
	}
	if origX[0] != 0 {
		t.Fatalf("mutating the clone changed the original: x[0] = %v", origX[0])
	}
}

func TestAddChildReplacesInPlace(t *testing.T) {
	root := NewObject("")
	root.SetScalarInt64("n", 1)
	root.SetScalarInt64("n", 2)

	if len(root.ChildNames()) != 1 {
		t.Fatalf("expected a single child after replacement, got %v", root.ChildNames())
	}
	v, err := mustChild(t, root, "n").AsInt64()
	if err != nil || v != 2 {
		t.Fatalf("n = %v, %v, want 2", v, err)
	}
}

func TestPathResolvesArrayIndexSuffix(t *testing.T) {
	root := buildSample()
	got, err := root.Path("coords/x[1]")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	v, err := got.AsFloat64()
	if err != nil || v != 1 {
		t.Fatalf("Path result = %v, %v, want 1", v, err)
	}
}

func mustChild(t *testing.T, n *Node, name string) *Node {
	t.Helper()
	c, ok := n.Child(name)
	if !ok {
		t.Fatalf("missing child %q", name)
	}
	return c
}
