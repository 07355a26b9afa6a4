package combine

import (
	"fmt"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/mesh"
)

// mergeFields implements spec section 4.6 Step C.3: merge fields by name
// across inputs, requiring consistent association and topology binding,
// concatenating element-associated values in input order and scattering
// vertex-associated values through the vertex remap. A field whose first
// input holds integer values is emitted as int64, otherwise as float64.
func mergeFields(domains []mesh.Domain, topologyName string, out *attrtree.Node, remap [][]int) error {
	names := domains[0].FieldNames()
	if len(names) == 0 {
		return nil
	}

	var fieldsOut *attrtree.Node
	for _, name := range names {
		if name == "original_element_ids" || name == "original_vertex_ids" {
			continue
		}
		f0, err := domains[0].Field(name)
		if err != nil {
			return err
		}
		assoc, err := f0.Association()
		if err != nil {
			return err
		}
		ftopo, err := f0.TopologyName()
		if err != nil {
			return err
		}
		if ftopo != topologyName {
			continue
		}

		var out64 []float64
		var vertexCount int
		integral := false
		if assoc == mesh.AssocVertex {
			for _, r := range remap {
				for _, m := range r {
					if m+1 > vertexCount {
						vertexCount = m + 1
					}
				}
			}
			out64 = make([]float64, vertexCount)
		}

		for i, dom := range domains {
			f, err := dom.Field(name)
			if err != nil {
				return fmt.Errorf("combine: field %q missing on input %d: %w", name, i, err)
			}
			a, err := f.Association()
			if err != nil {
				return err
			}
			if a != assoc {
				return fmt.Errorf("combine: field %q association mismatch across inputs", name)
			}
			values, err := f.Values()
			if err != nil {
				return err
			}
			if i == 0 {
				integral = values.DType() != attrtree.Float32 && values.DType() != attrtree.Float64
			}
			arr, err := values.Float64Array()
			if err != nil {
				return fmt.Errorf("combine: field %q: %w", name, err)
			}

			switch assoc {
			case mesh.AssocElement:
				out64 = append(out64, arr...)
			case mesh.AssocVertex:
				for local, v := range arr {
					out64[remap[i][local]] = v
				}
			default:
				return fmt.Errorf("combine: field %q has unsupported association %q", name, assoc)
			}
		}

		if fieldsOut == nil {
			fieldsOut = out.Add("fields")
		}
		holder := attrtree.NewObject("")
		if integral {
			ints := make([]int64, len(out64))
			for k, v := range out64 {
				ints[k] = int64(v)
			}
			holder.SetArrayInt64("v", ints)
		} else {
			holder.SetArrayFloat64("v", out64)
		}
		values, _ := holder.Child("v")
		fieldsOut.AddChild(name, mesh.NewField(assoc, topologyName, values))
	}
	return nil
}

// mergeMappingFields implements the mapping half of spec section 4.6 Step
// C.4: concatenate original_element_ids / original_vertex_ids across
// inputs, unchanged, if present.
func mergeMappingFields(domains []mesh.Domain, out *attrtree.Node) {
	for _, name := range []string{"original_element_ids", "original_vertex_ids"} {
		var merged []int64
		found := false
		for _, dom := range domains {
			f, err := dom.Field(name)
			if err != nil {
				continue
			}
			found = true
			values, err := f.Values()
			if err != nil {
				continue
			}
			ids, err := values.Int64Array()
			if err != nil {
				continue
			}
			merged = append(merged, ids...)
		}
		if !found {
			continue
		}
		fields := out.Add("fields")
		holder := attrtree.NewObject("")
		holder.SetArrayInt64("v", merged)
		values, _ := holder.Child("v")
		assoc := mesh.AssocElement
		if name == "original_vertex_ids" {
			assoc = mesh.AssocVertex
		}
		firstTopo, err := domains[0].FirstTopologyName()
		if err != nil {
			firstTopo = ""
		}
		fields.AddChild(name, mesh.NewField(assoc, firstTopo, values))
	}
}
