package combine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// vpoint is a merged-coordinate candidate: kdtree.Comparable over an
// arbitrary number of axes (2 or 3 for this domain).
type vpoint struct {
	coords []float64
	merged int // index into the output merged-vertex list
}

func (p vpoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coords[d] - c.(vpoint).coords[int(d)]
}

func (p vpoint) Dims() int { return len(p.coords) }

func (p vpoint) Distance(c kdtree.Comparable) float64 {
	o := c.(vpoint)
	var sum float64
	for i := range p.coords {
		diff := p.coords[i] - o.coords[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

type vpoints []vpoint

func (p vpoints) Index(i int) kdtree.Comparable { return p[i] }
func (p vpoints) Len() int                      { return len(p) }

// Pivot sorts p along axis d and returns the median index, a plain
// insertion point in place of gonum's own median-of-medians helper.
func (p vpoints) Pivot(d kdtree.Dim) int {
	sort.Slice(p, func(i, j int) bool { return p[i].coords[d] < p[j].coords[d] })
	return len(p) / 2
}

func (p vpoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// mergeCoordinates dedups a set of per-input vertex coordinate lists into
// one merged list within tol absolute distance (spec section 4.6 Step
// C.1: "detect coincident vertices within a configurable point_tolerance
// ... using a spatial hash"; a kd-tree nearest-neighbor query serves the
// same purpose without a hand-rolled hash table). It returns the merged
// coordinates (one []float64 per axis) and, for each input, the mapping
// from that input's local vertex index to the merged vertex index.
func mergeCoordinates(axes int, inputs [][][]float64, tol float64) ([][]float64, [][]int) {
	merged := make([][]float64, axes)
	remap := make([][]int, len(inputs))

	var tree *kdtree.Tree
	var pts vpoints

	addMerged := func(coords []float64) int {
		idx := len(merged[0])
		for a := 0; a < axes; a++ {
			merged[a] = append(merged[a], coords[a])
		}
		return idx
	}

	for i, input := range inputs {
		n := len(input[0])
		remap[i] = make([]int, n)
		for v := 0; v < n; v++ {
			coords := make([]float64, axes)
			for a := 0; a < axes; a++ {
				coords[a] = input[a][v]
			}
			candidate := vpoint{coords: coords}

			if tree == nil {
				candidate.merged = addMerged(coords)
				pts = vpoints{candidate}
				tree = kdtree.New(pts, true)
				remap[i][v] = candidate.merged
				continue
			}

			if found, dist := tree.Nearest(candidate); found != nil {
				if match, ok := found.(vpoint); ok && dist <= tol {
					remap[i][v] = match.merged
					continue
				}
			}

			candidate.merged = addMerged(coords)
			tree.Insert(candidate, true)
			remap[i][v] = candidate.merged
		}
	}
	return merged, remap
}

// boundingBoxDiagonal returns the Euclidean diagonal length of the
// bounding box of the given per-axis coordinate arrays, used to scale
// point_tolerance's default fraction (spec section 4.6 Step C.1).
func boundingBoxDiagonal(axesValues [][]float64) float64 {
	var sq float64
	for _, vals := range axesValues {
		if len(vals) == 0 {
			continue
		}
		lo := floats.Min(vals)
		hi := floats.Max(vals)
		d := hi - lo
		sq += d * d
	}
	return math.Sqrt(sq)
}
