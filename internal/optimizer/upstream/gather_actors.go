package upstream

import (
	"github.com/born-ml/pare/internal/graph"
)

// gatherActor decides whether a Gather/GatherND mover may relocate past
// one producer, and how. A nil plan with ok=false is a rejection;
// rejections stop the mover's chain, they are not errors.
type gatherActor func(g *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool)

// gatherActorFor returns the actor for a producer family. Families
// without an actor stop propagation.
func gatherActorFor(op graph.OpKind) gatherActor {
	switch op {
	case graph.OpAdd, graph.OpSub, graph.OpMul, graph.OpDiv:
		return gatherThroughBinary
	case graph.OpCast, graph.OpIdentity, graph.OpGelu, graph.OpRelu,
		graph.OpSigmoid, graph.OpTanh, graph.OpSqrt, graph.OpErf:
		return gatherThroughUnary
	case graph.OpDropout:
		return gatherThroughDropout
	case graph.OpLayerNormalization:
		return gatherThroughLayerNorm
	case graph.OpMatMul:
		return gatherThroughMatMul
	case graph.OpTranspose:
		return gatherThroughTranspose
	case graph.OpSqueeze:
		return gatherThroughSqueeze
	case graph.OpUnsqueeze:
		return gatherThroughUnsqueeze
	case graph.OpReshape:
		return gatherThroughReshape
	default:
		return nil
	}
}

// gatherThroughBinary handles the broadcasting elementwise binaries.
// Each operand is decided on its own: operands carrying the full sliced
// dimension get a clone, broadcast operands are skipped, and a size-1
// dimension under a rank-reducing mover needs a compensating Squeeze so
// the ranks keep lining up.
func gatherThroughBinary(g *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	outShape, ok := g.Shape(info.dataIn)
	if !ok {
		return nil, false
	}
	outDim := outShape[info.axis]

	plan := newPlan()
	for slot := 0; slot < 2; slot++ {
		inShape, ok := g.Shape(producer.Input(slot))
		if !ok {
			return nil, false
		}
		la := branchAxis(info.axis, info.inputRank, inShape.Rank())
		switch {
		case la < 0:
			plan.skip(slot)
		case inShape[la].Equal(outDim):
			plan.push(slot, la)
		case !inShape[la].IsSymbolic() && inShape[la].Value == 1:
			if info.rankReducing {
				plan.squeezeBranch(slot, la)
			} else {
				plan.skip(slot)
			}
		default:
			return nil, false
		}
	}
	if plan.pushCount() == 0 && plan.squeezeCount() == 0 {
		return nil, false
	}
	return plan, true
}

// gatherThroughUnary handles rank-stable single-input elementwise ops.
// The slice commutes with them unconditionally.
func gatherThroughUnary(_ *graph.Graph, _ *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	plan := newPlan()
	plan.push(0, info.axis)
	return plan, true
}

// gatherThroughDropout passes the mover through a Dropout whose mask
// output is unused and whose ratio/training_mode operands are constants.
func gatherThroughDropout(g *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	if !sideOutputUnused(g, producer.Output(1)) {
		return nil, false
	}
	for slot := 1; slot <= 2; slot++ {
		if in := producer.Input(slot); in != "" && !g.IsInitializer(in) {
			return nil, false
		}
	}
	plan := newPlan()
	plan.push(0, info.axis)
	return plan, true
}

// gatherThroughLayerNorm pushes a mover slicing strictly before the
// normalized axis onto the data input. Scale and bias span the
// normalized dimensions and stay put. Slicing on or past the normalized
// axis would change the statistics and is rejected.
func gatherThroughLayerNorm(g *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	rawAxis := producer.AttrInt("axis", -1)
	lnAxis, ok := normalizeAxis(rawAxis, info.inputRank)
	if !ok {
		return nil, false
	}
	if info.axis >= lnAxis {
		return nil, false
	}
	for i := 1; i <= 2; i++ {
		if !sideOutputUnused(g, producer.Output(i)) {
			return nil, false
		}
	}

	plan := newPlan()
	plan.push(0, info.axis)
	for slot := 1; slot < len(producer.Inputs()); slot++ {
		plan.skip(slot)
	}
	if info.rankReducing && rawAxis >= 0 {
		plan.setAttr("axis", graph.IntAttr(rawAxis-1))
	}
	return plan, true
}

// gatherThroughMatMul distinguishes the three dimension roles. The
// output's last dimension lives on the right operand, the second-to-last
// on the left; batch dimensions are shared and pushed per operand.
// Rank-reducing movers re-expand the pushed operand with Unsqueeze and
// drop the axis again with a Squeeze after the MatMul, so the
// contraction shape never degenerates.
func gatherThroughMatMul(g *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	lhs, lok := g.Shape(producer.Input(0))
	rhs, rok := g.Shape(producer.Input(1))
	if !lok || !rok || lhs.Rank() < 2 || rhs.Rank() < 2 {
		return nil, false
	}
	outShape, ok := g.Shape(info.dataIn)
	if !ok {
		return nil, false
	}

	plan := newPlan()
	push := func(slot, axis int) {
		if info.rankReducing {
			plan.pushUnsqueezed(slot, axis)
		} else {
			plan.push(slot, axis)
		}
	}

	switch {
	case info.axis == info.inputRank-1:
		plan.skip(0)
		push(1, rhs.Rank()-1)
	case info.axis == info.inputRank-2:
		push(0, lhs.Rank()-2)
		plan.skip(1)
	default:
		outDim := outShape[info.axis]
		for slot, s := range []graph.Shape{lhs, rhs} {
			la := branchAxis(info.axis, info.inputRank, s.Rank())
			switch {
			case la < 0:
				plan.skip(slot)
			case s[la].Equal(outDim):
				push(slot, la)
			case !s[la].IsSymbolic() && s[la].Value == 1:
				plan.skip(slot)
			default:
				return nil, false
			}
		}
		if plan.pushCount() == 0 {
			return nil, false
		}
	}

	if info.rankReducing {
		plan.squeezeOutAxis = info.axis
	}
	return plan, true
}

// gatherThroughTranspose remaps the slice axis through the permutation.
// Rank-reducing movers would force a permutation rewrite and are
// rejected.
func gatherThroughTranspose(_ *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	if info.rankReducing {
		return nil, false
	}
	perm := producer.AttrInts("perm")
	if perm == nil {
		perm = make([]int64, info.inputRank)
		for i := range perm {
			perm[i] = int64(info.inputRank - 1 - i)
		}
	}
	if len(perm) != info.inputRank {
		return nil, false
	}
	src := perm[info.axis]
	if src < 0 || int(src) >= info.inputRank {
		return nil, false
	}
	plan := newPlan()
	plan.push(0, int(src))
	return plan, true
}

// gatherThroughSqueeze maps the slice axis back onto the producer's
// input, stepping over the squeezed axes. Rank-reducing movers shift the
// squeeze axes that sit above the removed input dimension.
func gatherThroughSqueeze(_ *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	axesRaw, ok := axesOf(producer)
	if !ok {
		return nil, false
	}
	inRank := info.inputRank + len(axesRaw)
	squeezed := make(map[int]bool, len(axesRaw))
	norm := make([]int, 0, len(axesRaw))
	for _, a := range axesRaw {
		na, ok := normalizeAxis(a, inRank)
		if !ok || squeezed[na] {
			return nil, false
		}
		squeezed[na] = true
		norm = append(norm, na)
	}

	newAxis, kept := -1, 0
	for i := 0; i < inRank; i++ {
		if squeezed[i] {
			continue
		}
		if kept == info.axis {
			newAxis = i
			break
		}
		kept++
	}
	if newAxis < 0 {
		return nil, false
	}

	plan := newPlan()
	plan.push(0, newAxis)
	if info.rankReducing {
		adjusted := make([]int64, len(norm))
		for i, a := range norm {
			if a > newAxis {
				a--
			}
			adjusted[i] = int64(a)
		}
		plan.setAttr("axes", graph.IntsAttr(adjusted...))
	}
	return plan, true
}

// gatherThroughUnsqueeze maps the slice axis back onto the producer's
// input by discounting the inserted axes. A mover slicing an inserted
// size-1 axis is rejected.
func gatherThroughUnsqueeze(_ *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	axesRaw, ok := axesOf(producer)
	if !ok {
		return nil, false
	}
	inserted := make(map[int]bool, len(axesRaw))
	norm := make([]int, 0, len(axesRaw))
	for _, a := range axesRaw {
		na, ok := normalizeAxis(a, info.inputRank)
		if !ok || inserted[na] {
			return nil, false
		}
		inserted[na] = true
		norm = append(norm, na)
	}
	if inserted[info.axis] {
		return nil, false
	}

	newAxis := info.axis
	for a := range inserted {
		if a < info.axis {
			newAxis--
		}
	}

	plan := newPlan()
	plan.push(0, newAxis)
	if info.rankReducing {
		adjusted := make([]int64, len(norm))
		for i, a := range norm {
			if a > info.axis {
				a--
			}
			adjusted[i] = int64(a)
		}
		plan.setAttr("axes", graph.IntsAttr(adjusted...))
	}
	return plan, true
}

// gatherThroughReshape moves a slice above a Reshape when the sliced
// output dimension maps one-to-one onto the same input dimension, which
// holds when all dimensions up to and including the slice axis are
// untouched by the reshape. The target-shape constant is regenerated for
// the sliced result.
func gatherThroughReshape(g *graph.Graph, producer *graph.Node, info sliceInfo) (*rewritePlan, bool) {
	target, ok := constInts(g, producer.Input(1))
	if !ok {
		return nil, false
	}
	inShape, ok := g.Shape(producer.Input(0))
	if !ok {
		return nil, false
	}
	outShape, ok := g.Shape(info.dataIn)
	if !ok {
		return nil, false
	}
	a := info.axis
	if inShape.Rank() <= a || outShape.Rank() != len(target) {
		return nil, false
	}
	for i := 0; i <= a; i++ {
		if !inShape[i].Equal(outShape[i]) {
			return nil, false
		}
	}

	var newTarget []int64
	if info.rankReducing {
		newTarget = make([]int64, 0, len(target)-1)
		newTarget = append(newTarget, target[:a]...)
		newTarget = append(newTarget, target[a+1:]...)
	} else {
		newTarget = append([]int64(nil), target...)
		switch {
		case target[a] == 0 || target[a] == -1:
			// Codes re-resolve against the sliced input on their own.
		case !info.sliceDim.IsSymbolic():
			newTarget[a] = info.sliceDim.Value
		case !hasInferCode(target, a):
			newTarget[a] = -1
		default:
			return nil, false
		}
	}

	plan := newPlan()
	plan.push(0, a)
	plan.producerShapeConst = newTarget
	return plan, true
}

// hasInferCode reports whether target carries a -1 entry outside
// position at.
func hasInferCode(target []int64, at int) bool {
	for i, v := range target {
		if i != at && v == -1 {
			return true
		}
	}
	return false
}
