// Package mesh provides typed views over an attrtree.Node that follow the
// Blueprint-style mesh data model of spec section 3: coordsets, topologies,
// fields and domains. The core packages (selection, extract, split, mapper,
// combine, partitioner) operate on these typed views rather than raw paths.
package mesh

import (
	"fmt"

	"github.com/notargets/meshrepart/attrtree"
)

// CoordsetKind is one of the three coordinate-set representations named in
// spec section 3.
type CoordsetKind string

const (
	CoordsetUniform     CoordsetKind = "uniform"
	CoordsetRectilinear CoordsetKind = "rectilinear"
	CoordsetExplicit    CoordsetKind = "explicit"
)

// TopologyKind is one of the topology representations named in spec
// section 3.
type TopologyKind string

const (
	TopologyUniform      TopologyKind = "uniform"
	TopologyRectilinear  TopologyKind = "rectilinear"
	TopologyStructured   TopologyKind = "structured"
	TopologyPoints       TopologyKind = "points"
	TopologyUnstructured TopologyKind = "unstructured"
)

// Implicit returns true for topology kinds whose element indexing is
// implicit IJK derived from a coordset, per spec section 3.
func (k TopologyKind) Implicit() bool {
	switch k {
	case TopologyUniform, TopologyRectilinear, TopologyStructured:
		return true
	default:
		return false
	}
}

// Association names what a field's values are attached to.
type Association string

const (
	AssocVertex  Association = "vertex"
	AssocElement Association = "element"
)

// Shape is an unstructured element shape.
type Shape string

const (
	ShapePoint    Shape = "point"
	ShapeLine     Shape = "line"
	ShapeTri      Shape = "tri"
	ShapeQuad     Shape = "quad"
	ShapeTet      Shape = "tet"
	ShapeHex      Shape = "hex"
	ShapePolygon  Shape = "polygonal"
	ShapePolyhedr Shape = "polyhedral"
)

// Domain is a typed view over an attrtree.Node holding one mesh domain:
// mandatory "coordsets" and "topologies", optional "fields" and "state".
type Domain struct {
	Node *attrtree.Node
}

// NewDomain wraps a node as a Domain view.
func NewDomain(n *attrtree.Node) Domain { return Domain{Node: n} }

// Coordset looks up a named coordinate set.
func (d Domain) Coordset(name string) (Coordset, error) {
	cs, ok := d.Node.Child("coordsets")
	if !ok {
		return Coordset{}, fmt.Errorf("mesh: domain has no coordsets")
	}
	n, ok := cs.Child(name)
	if !ok {
		return Coordset{}, fmt.Errorf("mesh: no coordset %q", name)
	}
	return Coordset{Node: n}, nil
}

// Topology looks up a named topology.
func (d Domain) Topology(name string) (Topology, error) {
	ts, ok := d.Node.Child("topologies")
	if !ok {
		return Topology{}, fmt.Errorf("mesh: domain has no topologies")
	}
	n, ok := ts.Child(name)
	if !ok {
		return Topology{}, fmt.Errorf("mesh: no topology %q", name)
	}
	return Topology{Node: n}, nil
}

// FirstTopologyName returns the name of the first topology child in
// insertion order, used when options omit an explicit topology (spec
// section 6.2).
func (d Domain) FirstTopologyName() (string, error) {
	ts, ok := d.Node.Child("topologies")
	if !ok || len(ts.Children()) == 0 {
		return "", fmt.Errorf("mesh: domain has no topologies")
	}
	return ts.Children()[0].Name(), nil
}

// Field looks up a named field.
func (d Domain) Field(name string) (Field, error) {
	fs, ok := d.Node.Child("fields")
	if !ok {
		return Field{}, fmt.Errorf("mesh: domain has no fields")
	}
	n, ok := fs.Child(name)
	if !ok {
		return Field{}, fmt.Errorf("mesh: no field %q", name)
	}
	return Field{Node: n}, nil
}

// FieldNames returns the names of all fields on the domain, in insertion
// order, or nil if there are none.
func (d Domain) FieldNames() []string {
	fs, ok := d.Node.Child("fields")
	if !ok {
		return nil
	}
	return fs.ChildNames()
}

// DomainID returns state/domain_id, defaulting to 0 when unset (spec
// section 6.2: "domain_id ... defaults to 0" — a single unlabeled mesh is
// domain 0, matching the original's single-mesh-is-domain-0 convention).
func (d Domain) DomainID() int {
	st, ok := d.Node.Child("state")
	if !ok {
		return 0
	}
	id, ok := st.Child("domain_id")
	if !ok {
		return 0
	}
	v, err := id.AsInt64()
	if err != nil {
		return 0
	}
	return int(v)
}

// SetDomainID sets state/domain_id.
func (d Domain) SetDomainID(id int) {
	st := d.Node.Add("state")
	st.SetScalarInt64("domain_id", int64(id))
}

// Field is a typed view over a field node: association, topology name and
// values array.
type Field struct{ Node *attrtree.Node }

func (f Field) Association() (Association, error) {
	n, ok := f.Node.Child("association")
	if !ok {
		return "", fmt.Errorf("mesh: field %q has no association", f.Node.Name())
	}
	s, err := n.AsString()
	if err != nil {
		return "", err
	}
	return Association(s), nil
}

func (f Field) TopologyName() (string, error) {
	n, ok := f.Node.Child("topology")
	if !ok {
		return "", fmt.Errorf("mesh: field %q has no topology reference", f.Node.Name())
	}
	return n.AsString()
}

func (f Field) Values() (*attrtree.Node, error) {
	n, ok := f.Node.Child("values")
	if !ok {
		return nil, fmt.Errorf("mesh: field %q has no values", f.Node.Name())
	}
	return n, nil
}

// NewField builds a detached field node with the given association,
// topology reference and values.
func NewField(assoc Association, topology string, values *attrtree.Node) *attrtree.Node {
	n := attrtree.NewObject("")
	n.SetScalarString("association", string(assoc))
	n.SetScalarString("topology", topology)
	n.AddChild("values", values)
	return n
}
