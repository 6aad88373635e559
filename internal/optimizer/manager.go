package optimizer

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/pare/internal/graph"
)

// DefaultMaxSteps bounds how many full rounds ApplyTransformers runs
// when every round keeps modifying the graph.
const DefaultMaxSteps = 10

// ErrInvalidLevel reports a registration or invocation outside the
// defined levels.
var ErrInvalidLevel = errors.New("invalid optimization level")

// Manager runs registered transformers per level, re-invoking the whole
// level list until a round reports no modification (the fixpoint) or the
// step budget is exhausted.
type Manager struct {
	maxSteps     int
	transformers map[Level][]GraphTransformer
	names        map[string]struct{}
}

// NewManager creates a manager with the given step budget; zero or
// negative means DefaultMaxSteps.
func NewManager(maxSteps int) *Manager {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Manager{
		maxSteps:     maxSteps,
		transformers: make(map[Level][]GraphTransformer),
		names:        make(map[string]struct{}),
	}
}

// Register appends a transformer to a level's list. Names must be
// unique across the manager.
func (m *Manager) Register(t GraphTransformer, level Level) error {
	if !level.valid() {
		return errors.Wrapf(ErrInvalidLevel, "level %d", int(level))
	}
	if _, dup := m.names[t.Name()]; dup {
		return errors.Errorf("transformer %q already registered", t.Name())
	}
	m.names[t.Name()] = struct{}{}
	m.transformers[level] = append(m.transformers[level], t)
	return nil
}

// ApplyTransformers runs the level's transformers in registration order,
// repeating the round while it modifies the graph, up to the step
// budget. The first transformer error aborts the run.
func (m *Manager) ApplyTransformers(g *graph.Graph, level Level, logger *slog.Logger) error {
	if !level.valid() {
		return errors.Wrapf(ErrInvalidLevel, "level %d", int(level))
	}
	if logger == nil {
		logger = slog.Default()
	}
	ts := m.transformers[level]
	if len(ts) == 0 {
		return nil
	}

	for step := 1; step <= m.maxSteps; step++ {
		modified := false
		for _, t := range ts {
			changed, err := t.Apply(g, logger)
			if err != nil {
				return errors.Wrapf(err, "transformer %q (level %s, step %d)", t.Name(), level, step)
			}
			if changed {
				logger.Debug("graph modified",
					slog.String("transformer", t.Name()),
					slog.String("level", level.String()),
					slog.Int("step", step))
				modified = true
			}
		}
		if !modified {
			logger.Debug("fixpoint reached",
				slog.String("level", level.String()),
				slog.Int("steps", step))
			return nil
		}
	}

	logger.Debug("step budget exhausted",
		slog.String("level", level.String()),
		slog.Int("steps", m.maxSteps))
	return nil
}
