// Package optimizer schedules graph transformers across leveled
// optimization phases. Transformers mutate a graph in place and report
// whether anything changed; the manager re-invokes them until a full
// round makes no change or the step budget runs out.
package optimizer

import (
	"log/slog"

	"github.com/born-ml/pare/internal/graph"
)

// GraphTransformer is one rewriting pass over a graph.
//
// Apply performs a single pass and reports whether the graph was
// modified. Passes must be idempotent: applying to an already
// fully-rewritten graph reports false. A nil logger means
// slog.Default().
type GraphTransformer interface {
	Name() string
	Apply(g *graph.Graph, logger *slog.Logger) (bool, error)
}

// Level is an optimization phase. The caller supplies the level per
// invocation; the manager holds no state between invocations beyond its
// registration lists.
type Level int

// Optimization levels.
const (
	LevelDefault  Level = iota + 1 // basic, semantics-preserving rewrites
	LevelExtended                  // rewrites assuming the default set ran
	LevelLayout                    // layout-sensitive rewrites
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDefault:
		return "default"
	case LevelExtended:
		return "extended"
	case LevelLayout:
		return "layout"
	default:
		return "invalid"
	}
}

func (l Level) valid() bool {
	return l >= LevelDefault && l <= LevelLayout
}
