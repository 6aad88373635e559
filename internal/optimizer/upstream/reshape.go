package upstream

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/pare/internal/graph"
)

// UpStreamReshape relocates Reshape nodes that merge the two leading
// dimensions ([d0, d1, rest...] -> [d0*d1, rest...]) upstream past their
// producers, so upstream operators work on the flattened layout.
type UpStreamReshape struct {
	cfg config
}

// NewUpStreamReshape builds the transformer.
func NewUpStreamReshape(opts ...Option) *UpStreamReshape {
	return &UpStreamReshape{cfg: newConfig(opts)}
}

// Name implements optimizer.GraphTransformer.
func (t *UpStreamReshape) Name() string { return "UpStreamReshape" }

// Apply scans candidates in topological order and relocates each one as
// far upstream as its producers allow, within the hop budget.
func (t *UpStreamReshape) Apply(g *graph.Graph, logger *slog.Logger) (bool, error) {
	logger = ensureLogger(logger)

	order, err := g.TopologicalOrder()
	if err != nil {
		return false, errors.Wrap(err, "upstream reshape")
	}

	modified := false
	for _, n := range order {
		if n.Op() != graph.OpReshape {
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

func (t *UpStreamReshape) propagate(g *graph.Graph, mover *graph.Node, logger *slog.Logger) (bool, error) {
	moved := false
	queue := []hopItem{{node: mover}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		info, ok := reshapeMergeInfo(g, item.node)
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

		actor := reshapeActorFor(producer.Op())
		if actor == nil {
			logger.Debug("no upstream handler",
				slog.String("transformer", t.Name()),
				slog.String("node", item.node.Name()),
				slog.String("producer", producer.Name()))
			continue
		}
		plan, ok := actor(g, producer, info)
		if !ok {
			logger.Debug("relocation rejected",
				slog.String("transformer", t.Name()),
				slog.String("node", item.node.Name()),
				slog.String("producer", producer.Name()))
			continue
		}

		clones, err := applyReshapePlan(g, info, producer, plan)
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
