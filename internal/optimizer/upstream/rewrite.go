package upstream

import (
	"github.com/born-ml/pare/internal/graph"
	"github.com/born-ml/pare/internal/tensor"
)

// applyGatherPlan relocates a Gather or GatherND mover past its producer:
// clones go onto every push branch, squeeze compensation onto the rest,
// then the original mover is retired. Returns the relocated clones so the
// caller can keep climbing with them.
func applyGatherPlan(g *graph.Graph, info sliceInfo, producer *graph.Node, plan *rewritePlan) ([]*graph.Node, error) {
	var clones []*graph.Node
	for _, b := range plan.branches {
		switch b.action {
		case actionPush:
			clone, err := insertGatherClone(g, info, producer, b)
			if err != nil {
				return nil, err
			}
			clones = append(clones, clone)
		case actionSqueezeBranch:
			if err := insertBranchSqueeze(g, producer, b.slot, b.axis); err != nil {
				return nil, err
			}
		case actionSkip:
		}
	}
	if err := retireMover(g, info.node, producer, plan); err != nil {
		return nil, err
	}
	return clones, nil
}

// applyReshapePlan relocates a dimension-merging Reshape mover past its
// producer. Every clone carries a freshly materialized target-shape
// constant; the original's constant is never shared with clones.
func applyReshapePlan(g *graph.Graph, info reshapeInfo, producer *graph.Node, plan *rewritePlan) ([]*graph.Node, error) {
	var clones []*graph.Node
	for _, b := range plan.branches {
		if b.action != actionPush {
			continue
		}
		clone, err := insertReshapeClone(g, info, producer, b)
		if err != nil {
			return nil, err
		}
		clones = append(clones, clone)
	}
	if err := retireMover(g, info.node, producer, plan); err != nil {
		return nil, err
	}
	return clones, nil
}

func insertGatherClone(g *graph.Graph, info sliceInfo, producer *graph.Node, b branchPlan) (*graph.Node, error) {
	in := producer.Input(b.slot)

	var attrs graph.Attributes
	switch info.node.Op() {
	case graph.OpGather:
		attrs = graph.Attributes{"axis": graph.IntAttr(int64(b.axis))}
	case graph.OpGatherND:
		attrs = graph.Attributes{"batch_dims": graph.IntAttr(int64(b.axis))}
	}

	cloneOut := g.GenerateTensorName(in + "_sliced")
	clone, err := g.AddNode(
		g.GenerateNodeName(info.node.Name()),
		info.node.Op(),
		[]string{in, info.indicesIn},
		[]string{cloneOut},
		attrs,
	)
	if err != nil {
		return nil, err
	}
	if inShape, ok := g.Shape(in); ok {
		g.SetShape(cloneOut, slicedShape(inShape, b.axis, info))
	}
	if dt, ok := g.DType(in); ok {
		g.SetDType(cloneOut, dt)
	}

	target := cloneOut
	if b.unsqueezeAfter {
		target, err = addUnsqueeze(g, cloneOut, b.axis)
		if err != nil {
			return nil, err
		}
	}
	if err := g.RedirectInput(producer.Index(), b.slot, target); err != nil {
		return nil, err
	}
	return clone, nil
}

func insertReshapeClone(g *graph.Graph, info reshapeInfo, producer *graph.Node, b branchPlan) (*graph.Node, error) {
	in := producer.Input(b.slot)

	raw, err := tensor.New(tensor.Shape{len(b.shapeConst)}, b.shapeConst)
	if err != nil {
		return nil, err
	}
	constName := g.GenerateTensorName(info.shapeIn)
	if err := g.AddInitializer(constName, raw); err != nil {
		return nil, err
	}

	cloneOut := g.GenerateTensorName(in + "_merged")
	clone, err := g.AddNode(
		g.GenerateNodeName(info.node.Name()),
		graph.OpReshape,
		[]string{in, constName},
		[]string{cloneOut},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if inShape, ok := g.Shape(in); ok && inShape.Rank() >= 2 {
		merged := make(graph.Shape, 0, inShape.Rank()-1)
		merged = append(merged, info.merged)
		merged = append(merged, inShape[2:]...)
		g.SetShape(cloneOut, merged)
	}
	if dt, ok := g.DType(in); ok {
		g.SetDType(cloneOut, dt)
	}

	if err := g.RedirectInput(producer.Index(), b.slot, cloneOut); err != nil {
		return nil, err
	}
	return clone, nil
}

// insertBranchSqueeze drops a size-1 axis from a producer operand so it
// keeps broadcasting against branches whose rank the move reduced.
func insertBranchSqueeze(g *graph.Graph, producer *graph.Node, slot, axis int) error {
	out, err := addSqueeze(g, producer.Input(slot), axis)
	if err != nil {
		return err
	}
	return g.RedirectInput(producer.Index(), slot, out)
}

func addSqueeze(g *graph.Graph, in string, axis int) (string, error) {
	out := g.GenerateTensorName(in + "_squeezed")
	_, err := g.AddNode(
		g.GenerateNodeName("Squeeze"),
		graph.OpSqueeze,
		[]string{in},
		[]string{out},
		graph.Attributes{"axes": graph.IntsAttr(int64(axis))},
	)
	if err != nil {
		return "", err
	}
	if s, ok := g.Shape(in); ok {
		g.SetShape(out, shapeWithout(s, axis))
	}
	if dt, ok := g.DType(in); ok {
		g.SetDType(out, dt)
	}
	return out, nil
}

// addUnsqueeze restores, as a size-1 dimension, the axis a rank-reducing
// mover removed from a pushed branch.
func addUnsqueeze(g *graph.Graph, in string, axis int) (string, error) {
	out := g.GenerateTensorName(in + "_unsqueezed")
	_, err := g.AddNode(
		g.GenerateNodeName("Unsqueeze"),
		graph.OpUnsqueeze,
		[]string{in},
		[]string{out},
		graph.Attributes{"axes": graph.IntsAttr(int64(axis))},
	)
	if err != nil {
		return "", err
	}
	if s, ok := g.Shape(in); ok {
		g.SetShape(out, shapeWith(s, axis, graph.FixedDim(1)))
	}
	if dt, ok := g.DType(in); ok {
		g.SetDType(out, dt)
	}
	return out, nil
}

// retireMover removes the mover, hands its output shape to the producer
// output, applies pending producer patches, and redirects the mover's
// consumers. Graph outputs that carried the mover's name now carry the
// redirect target's name; positions in the output list are preserved.
func retireMover(g *graph.Graph, mover, producer *graph.Node, plan *rewritePlan) error {
	moverOut := mover.Output(0)
	moverOutShape, haveShape := g.Shape(moverOut)
	moverInputs := append([]string(nil), mover.Inputs()...)

	if plan.producerShapeConst != nil {
		if err := replaceShapeOperand(g, producer, plan.producerShapeConst); err != nil {
			return err
		}
	}
	for name, attr := range plan.attrUpdates {
		if err := g.UpdateAttr(producer.Index(), name, attr); err != nil {
			return err
		}
	}

	if err := g.RemoveNode(mover.Index()); err != nil {
		return err
	}

	prodOut := producer.Output(0)
	target := prodOut
	if plan.squeezeOutAxis >= 0 {
		if haveShape {
			g.SetShape(prodOut, shapeWith(moverOutShape, plan.squeezeOutAxis, graph.FixedDim(1)))
		}
		sq, err := addSqueeze(g, prodOut, plan.squeezeOutAxis)
		if err != nil {
			return err
		}
		target = sq
	} else if haveShape {
		g.SetShape(prodOut, moverOutShape)
	}

	g.RedirectConsumers(moverOut, target)

	for _, in := range moverInputs {
		if in == "" || !g.IsInitializer(in) || g.IsGraphOutput(in) {
			continue
		}
		if len(g.ConsumersOf(in)) == 0 {
			if err := g.RemoveInitializer(in); err != nil {
				return err
			}
		}
	}
	return nil
}

// replaceShapeOperand rebinds a Reshape producer's target-shape operand
// to a freshly materialized constant. The old constant is dropped once
// nothing else reads it.
func replaceShapeOperand(g *graph.Graph, producer *graph.Node, vals []int64) error {
	raw, err := tensor.New(tensor.Shape{len(vals)}, vals)
	if err != nil {
		return err
	}
	old := producer.Input(1)
	name := g.GenerateTensorName(old + "_updated")
	if err := g.AddInitializer(name, raw); err != nil {
		return err
	}
	if err := g.RedirectInput(producer.Index(), 1, name); err != nil {
		return err
	}
	if len(g.ConsumersOf(old)) == 0 && !g.IsGraphOutput(old) {
		return g.RemoveInitializer(old)
	}
	return nil
}
