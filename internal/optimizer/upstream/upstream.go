// Package upstream implements computation-reduction rewrites: Gather,
// GatherND, and dimension-merging Reshape nodes are relocated upstream
// past their producers, so producers compute on reduced data while the
// graph's outputs keep their values.
//
// A relocation is modeled as delete-original plus insert-clone per
// qualifying producer input; movers are never mutated in place. Each
// relocated clone keeps climbing within the same pass until a producer
// family rejects the move, the producer's output fans out, or the hop
// budget runs out.
package upstream

import (
	"log/slog"

	"github.com/born-ml/pare/internal/graph"
)

// DefaultMaxHops bounds how far one mover chain may climb within a
// single pass.
const DefaultMaxHops = 32

// Option configures a transformer.
type Option func(*config)

type config struct {
	maxHops int
}

// WithMaxHops overrides the per-mover propagation hop budget.
func WithMaxHops(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxHops = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{maxHops: DefaultMaxHops}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// movable reports whether a mover standing on dataIn may relocate past
// its producer: the producer's output must feed the mover alone and must
// not be a graph output, otherwise the full-size tensor is still needed
// downstream.
func movable(g *graph.Graph, dataIn string) (*graph.Node, bool) {
	producer := g.ProducerOf(dataIn)
	if producer == nil {
		return nil, false
	}
	if g.IsGraphOutput(dataIn) {
		return nil, false
	}
	if len(g.ConsumersOf(dataIn)) != 1 {
		return nil, false
	}
	return producer, true
}

func ensureLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
