package upstream

import (
	"github.com/born-ml/pare/internal/graph"
)

// normalizeAxis maps a possibly negative axis into [0, rank).
func normalizeAxis(axis int64, rank int) (int, bool) {
	a := int(axis)
	if a < 0 {
		a += rank
	}
	if a < 0 || a >= rank {
		return 0, false
	}
	return a, true
}

// branchAxis maps an axis on the producer output onto an operand of
// smaller rank under right-aligned broadcasting. A negative result means
// the operand has no dimension at that axis.
func branchAxis(outAxis, outRank, inRank int) int {
	return outAxis - (outRank - inRank)
}

// constInts reads an initializer as a flat []int64, widening Int32.
func constInts(g *graph.Graph, name string) ([]int64, bool) {
	raw, ok := g.Initializer(name)
	if !ok {
		return nil, false
	}
	vals, err := raw.Ints()
	if err != nil {
		return nil, false
	}
	return vals, true
}

// axesOf reads the axes of a Squeeze or Unsqueeze node. Only the
// attribute form is supported; the operand form stops propagation
// instead.
func axesOf(n *graph.Node) ([]int64, bool) {
	axes := n.AttrInts("axes")
	if len(axes) == 0 {
		return nil, false
	}
	return axes, true
}

// sideOutputUnused reports whether a producer's optional extra output
// tolerates the move: it is absent, or nothing in the graph reads it.
func sideOutputUnused(g *graph.Graph, name string) bool {
	if name == "" {
		return true
	}
	return len(g.ConsumersOf(name)) == 0 && !g.IsGraphOutput(name)
}

// shapeWithout removes the dimension at axis.
func shapeWithout(s graph.Shape, axis int) graph.Shape {
	out := make(graph.Shape, 0, s.Rank()-1)
	out = append(out, s[:axis]...)
	out = append(out, s[axis+1:]...)
	return out
}

// shapeWith inserts dim at axis.
func shapeWith(s graph.Shape, axis int, dim graph.Dim) graph.Shape {
	out := make(graph.Shape, 0, s.Rank()+1)
	out = append(out, s[:axis]...)
	out = append(out, dim)
	out = append(out, s[axis:]...)
	return out
}

// shapeReplace swaps the dimension at axis for dim.
func shapeReplace(s graph.Shape, axis int, dim graph.Dim) graph.Shape {
	out := s.Clone()
	out[axis] = dim
	return out
}

// slicedShape is the shape of a mover clone output on an operand whose
// input shape is in and whose slice lands on axis.
func slicedShape(in graph.Shape, axis int, info sliceInfo) graph.Shape {
	if info.rankReducing {
		return shapeWithout(in, axis)
	}
	return shapeReplace(in, axis, info.sliceDim)
}
