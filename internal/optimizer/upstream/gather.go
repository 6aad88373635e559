package upstream

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/pare/internal/graph"
)

// UpStreamGather relocates Gather and GatherND nodes upstream past their
// producers so upstream operators compute on already-sliced data.
type UpStreamGather struct {
	cfg config
}

// NewUpStreamGather builds the transformer.
func NewUpStreamGather(opts ...Option) *UpStreamGather {
	return &UpStreamGather{cfg: newConfig(opts)}
}

// Name implements optimizer.GraphTransformer.
func (t *UpStreamGather) Name() string { return "UpStreamGather" }

// Apply scans candidates in topological order and relocates each one as
// far upstream as its producers allow, within the hop budget.
func (t *UpStreamGather) Apply(g *graph.Graph, logger *slog.Logger) (bool, error) {
	logger = ensureLogger(logger)

	order, err := g.TopologicalOrder()
	if err != nil {
		return false, errors.Wrap(err, "upstream gather")
	}

	modified := false
	for _, n := range order {
		if n.Op() != graph.OpGather && n.Op() != graph.OpGatherND {
			continue
		}
		if _, live := g.NodeByIndex(n.Index()); !live {
			continue
		}
		moved, err := t.propagate(g, n, logger)
		if err != nil {
			return modified, err
		}
		modified = modified || moved
	}
	return modified, nil
}

// hopItem is one pending relocation attempt: a mover instance and how
// many hops its chain has already climbed.
type hopItem struct {
	node *graph.Node
	hops int
}

func (t *UpStreamGather) propagate(g *graph.Graph, mover *graph.Node, logger *slog.Logger) (bool, error) {
	moved := false
	queue := []hopItem{{node: mover}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		info, ok := gatherSliceInfo(g, item.node)
		if !ok {
			continue
		}
		producer, ok := movable(g, info.dataIn)
		if !ok {
			continue
		}
		if item.hops >= t.cfg.maxHops {
			logger.Warn("hop budget exhausted",
				slog.String("transformer", t.Name()),
				slog.String("node", item.node.Name()),
				slog.Int("hops", item.hops))
			continue
		}

		actor := gatherActorFor(producer.Op())
		if actor == nil {
			logger.Debug("no upstream handler",
				slog.String("transformer", t.Name()),
				slog.String("node", item.node.Name()),
				slog.String("producer", producer.Name()))
			continue
		}
		plan, ok := actor(g, producer, info)
		if !ok || (item.node.Op() == graph.OpGatherND && !gatherNDCompatible(g, producer, info, plan)) {
			logger.Debug("relocation rejected",
				slog.String("transformer", t.Name()),
				slog.String("node", item.node.Name()),
				slog.String("producer", producer.Name()))
			continue
		}

		clones, err := applyGatherPlan(g, info, producer, plan)
		if err != nil {
			return moved, errors.Wrapf(err, "relocating %q past %q", item.node.Name(), producer.Name())
		}
		if err := g.Validate(); err != nil {
			return moved, errors.Wrapf(err, "graph invalid after relocating %q past %q", item.node.Name(), producer.Name())
		}
		logger.Debug("relocated mover",
			slog.String("transformer", t.Name()),
			slog.String("node", item.node.Name()),
			slog.String("producer", producer.Name()),
			slog.Int("hops", item.hops),
			slog.Int("clones", len(clones)))
		moved = true

		for _, c := range clones {
			queue = append(queue, hopItem{node: c, hops: item.hops + 1})
		}
	}
	return moved, nil
}

// gatherNDCompatible checks that a GatherND relocation keeps the
// positions operand valid on every pushed branch: the slice must stay on
// the batch_dims axis and each pushed operand must carry the same
// leading batch dimensions the positions tensor indexes into.
func gatherNDCompatible(g *graph.Graph, producer *graph.Node, info sliceInfo, plan *rewritePlan) bool {
	posShape, ok := g.Shape(info.indicesIn)
	if !ok {
		return false
	}
	for _, b := range plan.branches {
		if b.action != actionPush {
			continue
		}
		if b.axis != info.axis || b.unsqueezeAfter {
			return false
		}
		opShape, ok := g.Shape(producer.Input(b.slot))
		if !ok || opShape.Rank() <= info.axis {
			return false
		}
		for i := 0; i < info.axis; i++ {
			if !opShape[i].Equal(posShape[i]) {
				return false
			}
		}
	}
	return true
}
