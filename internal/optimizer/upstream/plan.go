package upstream

import (
	"github.com/born-ml/pare/internal/graph"
)

type actionKind int

const (
	// actionSkip leaves the operand untouched; broadcasting keeps the
	// branch aligned after the move.
	actionSkip actionKind = iota
	// actionPush inserts a mover clone on the operand.
	actionPush
	// actionSqueezeBranch inserts a Squeeze on the operand so a
	// rank-reduced main branch still broadcasts against it.
	actionSqueezeBranch
)

// branchPlan is the per-operand outcome of an actor decision.
type branchPlan struct {
	slot   int
	action actionKind
	// axis is the slice axis on this operand (actionPush) or the axis to
	// squeeze away (actionSqueezeBranch).
	axis int
	// unsqueezeAfter restores a rank-reduced branch to the operand's
	// original rank between the clone and the producer.
	unsqueezeAfter bool
	// shapeConst, when set, is the target-shape constant for a relocated
	// Reshape clone on this operand.
	shapeConst []int64
}

// rewritePlan is a full actor decision: what happens to each producer
// operand and how the producer itself is patched up.
type rewritePlan struct {
	branches []branchPlan
	// squeezeOutAxis, when >= 0, inserts a Squeeze on the producer output
	// to drop the axis a rank-reducing mover would have removed.
	squeezeOutAxis int
	// attrUpdates are applied to the producer before the mover is removed.
	attrUpdates graph.Attributes
	// producerShapeConst replaces the producer's own shape operand
	// (Reshape producers whose target must account for the slice).
	producerShapeConst []int64
}

func newPlan() *rewritePlan {
	return &rewritePlan{squeezeOutAxis: -1}
}

func (p *rewritePlan) push(slot, axis int) {
	p.branches = append(p.branches, branchPlan{slot: slot, action: actionPush, axis: axis})
}

func (p *rewritePlan) pushUnsqueezed(slot, axis int) {
	p.branches = append(p.branches, branchPlan{slot: slot, action: actionPush, axis: axis, unsqueezeAfter: true})
}

func (p *rewritePlan) pushReshape(slot int, shapeConst []int64) {
	p.branches = append(p.branches, branchPlan{slot: slot, action: actionPush, shapeConst: shapeConst})
}

func (p *rewritePlan) skip(slot int) {
	p.branches = append(p.branches, branchPlan{slot: slot, action: actionSkip})
}

func (p *rewritePlan) squeezeBranch(slot, axis int) {
	p.branches = append(p.branches, branchPlan{slot: slot, action: actionSqueezeBranch, axis: axis})
}

func (p *rewritePlan) setAttr(name string, attr graph.Attribute) {
	if p.attrUpdates == nil {
		p.attrUpdates = graph.Attributes{}
	}
	p.attrUpdates[name] = attr
}

// pushCount reports how many branches receive a mover clone.
func (p *rewritePlan) pushCount() int {
	n := 0
	for _, b := range p.branches {
		if b.action == actionPush {
			n++
		}
	}
	return n
}

// squeezeCount reports how many branches receive a compensating Squeeze.
func (p *rewritePlan) squeezeCount() int {
	n := 0
	for _, b := range p.branches {
		if b.action == actionSqueezeBranch {
			n++
		}
	}
	return n
}
