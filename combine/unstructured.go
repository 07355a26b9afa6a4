package combine

import (
	"fmt"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
)

// combineUnstructured implements spec section 4.6 Step C.
func combineUnstructured(d int, domains []mesh.Domain, topologyName string, opts Options) (*attrtree.Node, error) {
	csName, err := domains[0].Topology(topologyName)
	if err != nil {
		return nil, err
	}
	coordsetName, err := csName.CoordsetName()
	if err != nil {
		return nil, err
	}

	axesValues := make([][][]float64, len(domains))
	axisNames, err := firstAxisNames(domains[0], coordsetName)
	if err != nil {
		return nil, err
	}
	for i, dom := range domains {
		cs, err := dom.Coordset(coordsetName)
		if err != nil {
			return nil, fmt.Errorf("combine: domain %d input %d: %w", d, i, err)
		}
		explicit, _, err := cs.ToExplicit()
		if err != nil {
			return nil, err
		}
		values, _ := explicit.Child("values")
		axesValues[i] = make([][]float64, len(axisNames))
		for a, name := range axisNames {
			an, _ := values.Child(name)
			arr, err := an.Float64Array()
			if err != nil {
				return nil, err
			}
			axesValues[i][a] = arr
		}
	}

	tol := opts.tolerance()
	bbox := boundingBoxDiagonal(flattenAll(axesValues))
	absTol := tol * bbox

	merged, remap := mergeCoordinates(len(axisNames), axesValues, absTol)

	outCoordset := attrtree.NewObject("")
	outCoordset.SetScalarString("type", string(mesh.CoordsetExplicit))
	outValues := outCoordset.Add("values")
	for a, name := range axisNames {
		outValues.SetArrayFloat64(name, merged[a])
	}

	outTopology, err := mergeTopologies(domains, topologyName, coordsetName, remap)
	if err != nil {
		return nil, err
	}

	out := attrtree.NewObject("")
	coordsets := out.Add("coordsets")
	coordsets.AddChild(coordsetName, outCoordset)
	topologies := out.Add("topologies")
	topologies.AddChild(topologyName, outTopology)

	if err := mergeFields(domains, topologyName, out, remap); err != nil {
		return nil, err
	}

	if opts.PreserveMapping {
		mergeMappingFields(domains, out)
	}

	mesh.NewDomain(out).SetDomainID(d)
	return out, nil
}

func firstAxisNames(d mesh.Domain, coordsetName string) ([]string, error) {
	cs, err := d.Coordset(coordsetName)
	if err != nil {
		return nil, err
	}
	return cs.AxisNames()
}

func flattenAll(axesValues [][][]float64) [][]float64 {
	if len(axesValues) == 0 {
		return nil
	}
	axes := len(axesValues[0])
	out := make([][]float64, axes)
	for _, perDomain := range axesValues {
		for a := 0; a < axes; a++ {
			out[a] = append(out[a], perDomain[a]...)
		}
	}
	return out
}
