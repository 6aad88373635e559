package upstream

import (
	"github.com/born-ml/pare/internal/graph"
)

// reshapeActor decides whether a dimension-merging Reshape mover may
// relocate past one producer, and how.
type reshapeActor func(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool)

// reshapeActorFor returns the actor for a producer family. Families
// without an actor stop propagation.
func reshapeActorFor(op graph.OpKind) reshapeActor {
	switch op {
	case graph.OpAdd, graph.OpSub, graph.OpMul, graph.OpDiv:
		return reshapeThroughBinary
	case graph.OpCast, graph.OpIdentity, graph.OpGelu, graph.OpRelu,
		graph.OpSigmoid, graph.OpTanh, graph.OpSqrt, graph.OpErf:
		return reshapeThroughUnary
	case graph.OpDropout:
		return reshapeThroughDropout
	case graph.OpLayerNormalization:
		return reshapeThroughLayerNorm
	case graph.OpMatMul:
		return reshapeThroughMatMul
	case graph.OpSqueeze:
		return reshapeThroughSqueeze
	case graph.OpUnsqueeze:
		return reshapeThroughUnsqueeze
	case graph.OpReshape:
		return reshapeThroughReshape
	default:
		return nil
	}
}

// reshapeThroughBinary pushes the merge onto operands that carry both
// leading dimensions and skips operands broadcasting entirely within the
// trailing ones. An operand straddling the merged dimensions (partial
// overlap, or size-1 leading dims at full rank) defeats the move.
func reshapeThroughBinary(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	plan := newPlan()
	for slot := 0; slot < 2; slot++ {
		inShape, ok := g.Shape(producer.Input(slot))
		if !ok {
			return nil, false
		}
		switch {
		case inShape.Rank() == info.inShape.Rank():
			if !inShape[0].Equal(info.inShape[0]) || !inShape[1].Equal(info.inShape[1]) {
				return nil, false
			}
			sc, ok := mergeConst(inShape[2:])
			if !ok {
				return nil, false
			}
			plan.pushReshape(slot, sc)
		case inShape.Rank() <= info.inShape.Rank()-2:
			if !broadcastsIntoRest(inShape, info.rest) {
				return nil, false
			}
			plan.skip(slot)
		default:
			return nil, false
		}
	}
	if plan.pushCount() == 0 {
		return nil, false
	}
	return plan, true
}

// reshapeThroughUnary passes the merge through rank-stable single-input
// elementwise ops.
func reshapeThroughUnary(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	return passThroughMergePlan(g, producer, info)
}

// reshapeThroughDropout passes the merge through a Dropout whose mask
// output is unused and whose ratio/training_mode operands are constants.
func reshapeThroughDropout(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	if !sideOutputUnused(g, producer.Output(1)) {
		return nil, false
	}
	for slot := 1; slot <= 2; slot++ {
		if in := producer.Input(slot); in != "" && !g.IsInitializer(in) {
			return nil, false
		}
	}
	return passThroughMergePlan(g, producer, info)
}

// reshapeThroughLayerNorm pushes the merge onto the data input when the
// normalized axes all sit in the trailing dimensions. Normalizing on or
// across the merged leading dimensions is rejected.
func reshapeThroughLayerNorm(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	rawAxis := producer.AttrInt("axis", -1)
	lnAxis, ok := normalizeAxis(rawAxis, info.inShape.Rank())
	if !ok || lnAxis < 2 {
		return nil, false
	}
	for i := 1; i <= 2; i++ {
		if !sideOutputUnused(g, producer.Output(i)) {
			return nil, false
		}
	}
	sc, ok := mergeConst(info.rest)
	if !ok {
		return nil, false
	}

	plan := newPlan()
	plan.pushReshape(0, sc)
	for slot := 1; slot < len(producer.Inputs()); slot++ {
		plan.skip(slot)
	}
	if rawAxis >= 0 {
		plan.setAttr("axis", graph.IntAttr(rawAxis-1))
	}
	return plan, true
}

// reshapeThroughMatMul folds the stacked contraction: with a rank-2
// right operand, [d0,d1,...,K]*[K,N] equals the flattened
// [d0*d1,...,K]*[K,N] row for row, so only the left operand is merged.
func reshapeThroughMatMul(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	lhs, lok := g.Shape(producer.Input(0))
	rhs, rok := g.Shape(producer.Input(1))
	if !lok || !rok || rhs.Rank() != 2 || lhs.Rank() != info.inShape.Rank() {
		return nil, false
	}
	if !lhs[0].Equal(info.inShape[0]) || !lhs[1].Equal(info.inShape[1]) {
		return nil, false
	}
	sc, ok := mergeConst(lhs[2:])
	if !ok {
		return nil, false
	}
	plan := newPlan()
	plan.pushReshape(0, sc)
	plan.skip(1)
	return plan, true
}

// reshapeThroughSqueeze passes the merge under a Squeeze whose axes all
// sit past the merged leading dimensions; those axes shift down with the
// lost rank.
func reshapeThroughSqueeze(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	axesRaw, ok := axesOf(producer)
	if !ok {
		return nil, false
	}
	inShape, ok := g.Shape(producer.Input(0))
	if !ok {
		return nil, false
	}
	adjusted := make([]int64, 0, len(axesRaw))
	for _, a := range axesRaw {
		na, ok := normalizeAxis(a, inShape.Rank())
		if !ok || na < 2 {
			return nil, false
		}
		adjusted = append(adjusted, int64(na-1))
	}
	sc, ok := mergeConst(inShape[2:])
	if !ok {
		return nil, false
	}

	plan := newPlan()
	plan.pushReshape(0, sc)
	plan.setAttr("axes", graph.IntsAttr(adjusted...))
	return plan, true
}

// reshapeThroughUnsqueeze mirrors reshapeThroughSqueeze for inserted
// axes.
func reshapeThroughUnsqueeze(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	axesRaw, ok := axesOf(producer)
	if !ok {
		return nil, false
	}
	inShape, ok := g.Shape(producer.Input(0))
	if !ok || inShape.Rank() < 2 {
		return nil, false
	}
	adjusted := make([]int64, 0, len(axesRaw))
	for _, a := range axesRaw {
		na, ok := normalizeAxis(a, info.inShape.Rank())
		if !ok || na < 2 {
			return nil, false
		}
		adjusted = append(adjusted, int64(na-1))
	}
	sc, ok := mergeConst(inShape[2:])
	if !ok {
		return nil, false
	}

	plan := newPlan()
	plan.pushReshape(0, sc)
	plan.setAttr("axes", graph.IntsAttr(adjusted...))
	return plan, true
}

// reshapeThroughReshape composes the two reshapes: the producer's target
// constant is rewritten to the merged output shape and the mover
// disappears without any clone.
func reshapeThroughReshape(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	if _, ok := constInts(g, producer.Input(1)); !ok {
		return nil, false
	}
	newTarget, ok := literalTarget(info.merged, info.rest)
	if !ok {
		return nil, false
	}
	plan := newPlan()
	plan.producerShapeConst = newTarget
	return plan, true
}

// passThroughMergePlan is the shared single-input pass-through: merge
// the producer's own input instead.
func passThroughMergePlan(g *graph.Graph, producer *graph.Node, info reshapeInfo) (*rewritePlan, bool) {
	inShape, ok := g.Shape(producer.Input(0))
	if !ok || inShape.Rank() != info.inShape.Rank() {
		return nil, false
	}
	sc, ok := mergeConst(inShape[2:])
	if !ok {
		return nil, false
	}
	plan := newPlan()
	plan.pushReshape(0, sc)
	return plan, true
}

// mergeConst builds the fresh [-1, rest...] target constant every
// relocated merge clone carries. The trailing dimensions must be
// concrete to be spelled out.
func mergeConst(rest graph.Shape) ([]int64, bool) {
	out := make([]int64, 0, rest.Rank()+1)
	out = append(out, -1)
	for _, d := range rest {
		if d.IsSymbolic() {
			return nil, false
		}
		out = append(out, d.Value)
	}
	return out, true
}

// broadcastsIntoRest checks that a low-rank operand aligns entirely
// within the trailing dimensions, so merging the leading ones cannot
// affect it.
func broadcastsIntoRest(in, rest graph.Shape) bool {
	if in.Rank() > rest.Rank() {
		return false
	}
	off := rest.Rank() - in.Rank()
	for i, d := range in {
		if d.Equal(rest[off+i]) {
			continue
		}
		if !d.IsSymbolic() && d.Value == 1 {
			continue
		}
		return false
	}
	return true
}

// literalTarget materializes [merged, rest...] as a shape constant,
// spending the single -1 code on at most one symbolic dimension.
func literalTarget(merged graph.Dim, rest graph.Shape) ([]int64, bool) {
	out := make([]int64, 0, rest.Rank()+1)
	infers := 0
	emit := func(d graph.Dim) {
		if d.IsSymbolic() {
			out = append(out, -1)
			infers++
		} else {
			out = append(out, d.Value)
		}
	}
	emit(merged)
	for _, d := range rest {
		emit(d)
	}
	return out, infers <= 1
}
