package combine

import (
	"fmt"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
)

// mergeTopologies implements spec section 4.6 Step C.2: convert each
// input to unstructured if needed, rewrite connectivity through the
// per-input vertex remap, and concatenate elements preserving input
// order. All inputs must agree on element shape and on fixed vs. variable
// layout; disagreement is a combination conflict, matching the failure semantics
// for field inconsistency described in the same section.
func mergeTopologies(domains []mesh.Domain, topologyName, coordsetName string, remap [][]int) (*attrtree.Node, error) {
	var connAll, offsetsAll, sizesAll []int64
	shapeStr := ""
	variable := false
	offset := int64(0)

	for i, dom := range domains {
		topo, err := dom.Topology(topologyName)
		if err != nil {
			return nil, fmt.Errorf("combine: input %d: %w", i, err)
		}
		elementsNode, err := unstructuredElements(topo, coordsetName)
		if err != nil {
			return nil, fmt.Errorf("combine: input %d: %w", i, err)
		}

		shapeNode, ok := elementsNode.Child("shape")
		if !ok {
			return nil, fmt.Errorf("combine: input %d topology missing shape", i)
		}
		s, err := shapeNode.AsString()
		if err != nil {
			return nil, err
		}
		inputVariable := elementsNode.HasChild("offsets")
		if i == 0 {
			shapeStr, variable = s, inputVariable
		} else if s != shapeStr || inputVariable != variable {
			return nil, fmt.Errorf("combine: input %d shape %q (variable=%v) conflicts with domain shape %q (variable=%v)",
				i, s, inputVariable, shapeStr, variable)
		}

		connNode, ok := elementsNode.Child("connectivity")
		if !ok {
			return nil, fmt.Errorf("combine: input %d topology missing connectivity", i)
		}
		conn, err := connNode.Int64Array()
		if err != nil {
			return nil, err
		}

		if variable {
			offsNode, _ := elementsNode.Child("offsets")
			sizesNode, _ := elementsNode.Child("sizes")
			offs, err := offsNode.Int64Array()
			if err != nil {
				return nil, err
			}
			sizes, err := sizesNode.Int64Array()
			if err != nil {
				return nil, err
			}
			for e := range offs {
				offsetsAll = append(offsetsAll, offset)
				sizesAll = append(sizesAll, sizes[e])
				start, end := offs[e], offs[e]+sizes[e]
				for j := start; j < end; j++ {
					connAll = append(connAll, int64(remap[i][conn[j]]))
				}
				offset += sizes[e]
			}
			continue
		}

		nv := mesh.ShapeVertexCount(mesh.Shape(shapeStr))
		if nv <= 0 {
			return nil, fmt.Errorf("combine: input %d shape %q requires offsets/sizes", i, shapeStr)
		}
		for e := 0; e*nv < len(conn); e++ {
			for j := 0; j < nv; j++ {
				connAll = append(connAll, int64(remap[i][conn[e*nv+j]]))
			}
		}
	}

	out := attrtree.NewObject("")
	out.SetScalarString("type", string(mesh.TopologyUnstructured))
	out.SetScalarString("coordset", coordsetName)
	elements := out.Add("elements")
	elements.SetScalarString("shape", shapeStr)
	elements.SetArrayInt64("connectivity", connAll)
	if variable {
		elements.SetArrayInt64("offsets", offsetsAll)
		elements.SetArrayInt64("sizes", sizesAll)
	}
	return out, nil
}

func unstructuredElements(topo mesh.Topology, coordsetName string) (*attrtree.Node, error) {
	kind, err := topo.Kind()
	if err != nil {
		return nil, err
	}
	if kind == mesh.TopologyUnstructured {
		n, ok := topo.Node.Child("elements")
		if !ok {
			return nil, fmt.Errorf("mesh: unstructured topology missing elements")
		}
		return n, nil
	}
	converted, _, err := topo.ToUnstructured(coordsetName)
	if err != nil {
		return nil, err
	}
	n, ok := converted.Child("elements")
	if !ok {
		return nil, fmt.Errorf("mesh: converted topology missing elements")
	}
	return n, nil
}
