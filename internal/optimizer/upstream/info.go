package upstream

import (
	"github.com/born-ml/pare/internal/graph"
)

// sliceInfo describes one Gather or GatherND mover instance: which axis
// of its data input it slices and how.
type sliceInfo struct {
	node         *graph.Node
	dataIn       string
	indicesIn    string
	axis         int // normalized slice axis on the data tensor
	rankReducing bool
	sliceDim     graph.Dim // gathered length; meaningless when rankReducing
	inputRank    int
}

// gatherSliceInfo extracts mover info from a Gather or GatherND node.
// Returns false when the node is not a relocatable candidate: shape
// metadata missing, index operand of unsupported rank, or axis out of
// range.
func gatherSliceInfo(g *graph.Graph, n *graph.Node) (sliceInfo, bool) {
	switch n.Op() {
	case graph.OpGather:
		return gatherInfo(g, n)
	case graph.OpGatherND:
		return gatherNDInfo(g, n)
	default:
		return sliceInfo{}, false
	}
}

func gatherInfo(g *graph.Graph, n *graph.Node) (sliceInfo, bool) {
	dataIn, indicesIn := n.Input(0), n.Input(1)
	if dataIn == "" || indicesIn == "" {
		return sliceInfo{}, false
	}
	dataShape, ok := g.Shape(dataIn)
	if !ok {
		return sliceInfo{}, false
	}
	idxShape, ok := g.Shape(indicesIn)
	if !ok {
		return sliceInfo{}, false
	}
	axis, ok := normalizeAxis(n.AttrInt("axis", 0), dataShape.Rank())
	if !ok {
		return sliceInfo{}, false
	}

	info := sliceInfo{
		node:      n,
		dataIn:    dataIn,
		indicesIn: indicesIn,
		axis:      axis,
		inputRank: dataShape.Rank(),
	}
	switch idxShape.Rank() {
	case 0:
		info.rankReducing = true
	case 1:
		info.sliceDim = idxShape[0]
	default:
		// Higher-rank index tensors insert dimensions; not handled.
		return sliceInfo{}, false
	}
	return info, true
}

// gatherNDInfo accepts the batched point-lookup form: batch_dims = b and
// positions shaped [d0..d_{b-1}, P, 1], which slices axis b of the data
// tensor without reducing rank.
func gatherNDInfo(g *graph.Graph, n *graph.Node) (sliceInfo, bool) {
	dataIn, positionsIn := n.Input(0), n.Input(1)
	if dataIn == "" || positionsIn == "" {
		return sliceInfo{}, false
	}
	dataShape, ok := g.Shape(dataIn)
	if !ok {
		return sliceInfo{}, false
	}
	posShape, ok := g.Shape(positionsIn)
	if !ok {
		return sliceInfo{}, false
	}

	b := n.AttrInt("batch_dims", 0)
	if b < 0 || int(b)+2 != posShape.Rank() || int(b) >= dataShape.Rank() {
		return sliceInfo{}, false
	}
	last := posShape[posShape.Rank()-1]
	if last.IsSymbolic() || last.Value != 1 {
		return sliceInfo{}, false
	}
	for i := 0; i < int(b); i++ {
		if !posShape[i].Equal(dataShape[i]) {
			return sliceInfo{}, false
		}
	}

	return sliceInfo{
		node:      n,
		dataIn:    dataIn,
		indicesIn: positionsIn,
		axis:      int(b),
		sliceDim:  posShape[int(b)],
		inputRank: dataShape.Rank(),
	}, true
}

// reshapeInfo describes one Reshape mover instance that merges the two
// leading dimensions of its input: [d0, d1, rest...] -> [d0*d1, rest...].
type reshapeInfo struct {
	node    *graph.Node
	dataIn  string
	shapeIn string      // constant target-shape operand
	merged  graph.Dim   // the combined leading dimension
	rest    graph.Shape // trailing dimensions, unchanged by the merge
	inShape graph.Shape
}

// reshapeMergeInfo extracts mover info from a Reshape node. Only the
// merge-leading-two-dims pattern with a constant target shape qualifies.
func reshapeMergeInfo(g *graph.Graph, n *graph.Node) (reshapeInfo, bool) {
	if n.Op() != graph.OpReshape {
		return reshapeInfo{}, false
	}
	dataIn, shapeIn := n.Input(0), n.Input(1)
	if dataIn == "" || shapeIn == "" {
		return reshapeInfo{}, false
	}
	inShape, ok := g.Shape(dataIn)
	if !ok || inShape.Rank() < 3 {
		return reshapeInfo{}, false
	}
	target, ok := constInts(g, shapeIn)
	if !ok {
		return reshapeInfo{}, false
	}
	out, ok := resolveReshapeTarget(target, inShape)
	if !ok || out.Rank() != inShape.Rank()-1 {
		return reshapeInfo{}, false
	}
	for i := 1; i < out.Rank(); i++ {
		if !out[i].Equal(inShape[i+1]) {
			return reshapeInfo{}, false
		}
	}
	if !mergesLeadingDims(out[0], inShape[0], inShape[1]) {
		return reshapeInfo{}, false
	}

	return reshapeInfo{
		node:    n,
		dataIn:  dataIn,
		shapeIn: shapeIn,
		merged:  out[0],
		rest:    inShape[2:].Clone(),
		inShape: inShape.Clone(),
	}, true
}

// resolveReshapeTarget expands a target-shape constant against the input
// shape: 0 copies the input dimension at the same position, a single -1
// stands for the inferred remainder.
func resolveReshapeTarget(target []int64, inShape graph.Shape) (graph.Shape, bool) {
	out := make(graph.Shape, len(target))
	sawInfer := false
	for i, v := range target {
		switch {
		case v == 0:
			if i >= inShape.Rank() {
				return nil, false
			}
			out[i] = inShape[i]
		case v == -1:
			if sawInfer {
				return nil, false
			}
			sawInfer = true
			out[i] = inferDim(target, i, inShape)
		case v > 0:
			out[i] = graph.FixedDim(v)
		default:
			return nil, false
		}
	}
	return out, true
}

// inferDim resolves the -1 entry when the input element count and the
// other entries are concrete; otherwise it stays symbolic.
func inferDim(target []int64, at int, inShape graph.Shape) graph.Dim {
	concrete, ok := inShape.Concrete()
	if !ok {
		return graph.SymbolicDim("inferred")
	}
	total := int64(concrete.NumElements())
	known := int64(1)
	for i, v := range target {
		if i == at {
			continue
		}
		switch {
		case v == 0:
			if i >= inShape.Rank() || inShape[i].IsSymbolic() {
				return graph.SymbolicDim("inferred")
			}
			known *= inShape[i].Value
		case v > 0:
			known *= v
		}
	}
	if known <= 0 || total%known != 0 {
		return graph.SymbolicDim("inferred")
	}
	return graph.FixedDim(total / known)
}

// mergesLeadingDims reports whether dim out0 is the merge of d0 and d1.
// With symbolic dimensions involved the merge is accepted as long as the
// target did not simply copy d0.
func mergesLeadingDims(out0, d0, d1 graph.Dim) bool {
	if !out0.IsSymbolic() && !d0.IsSymbolic() && !d1.IsSymbolic() {
		return out0.Value == d0.Value*d1.Value
	}
	if out0.Equal(d0) && !d1.Equal(graph.FixedDim(1)) {
		return false
	}
	return true
}
