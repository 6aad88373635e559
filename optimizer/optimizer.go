// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimizer

import (
	"github.com/born-ml/pare/internal/optimizer"
	"github.com/born-ml/pare/internal/optimizer/upstream"
)

// GraphTransformer is one rewriting pass over a graph. Passes must be
// idempotent: applying to an already fully-rewritten graph reports no
// modification.
type GraphTransformer = optimizer.GraphTransformer

// Manager runs registered transformers per level, re-invoking the whole
// level list until a round reports no modification or the step budget is
// exhausted.
type Manager = optimizer.Manager

// Level is an optimization phase.
type Level = optimizer.Level

// Optimization levels.
const (
	LevelDefault  Level = optimizer.LevelDefault
	LevelExtended Level = optimizer.LevelExtended
	LevelLayout   Level = optimizer.LevelLayout
)

// DefaultMaxSteps bounds how many full rounds ApplyTransformers runs
// when every round keeps modifying the graph.
const DefaultMaxSteps = optimizer.DefaultMaxSteps

// ErrInvalidLevel reports a registration or invocation outside the
// defined levels.
var ErrInvalidLevel = optimizer.ErrInvalidLevel

// NewManager creates a manager with the given step budget; zero or
// negative means DefaultMaxSteps.
func NewManager(maxSteps int) *Manager {
	return optimizer.NewManager(maxSteps)
}

// Relocation passes

// UpStreamGather relocates Gather and GatherND nodes upstream past
// their producers, so producers compute on the sliced data.
type UpStreamGather = upstream.UpStreamGather

// UpStreamReshape relocates Reshape nodes that merge the two leading
// dimensions upstream past their producers.
type UpStreamReshape = upstream.UpStreamReshape

// Option configures a relocation pass.
type Option = upstream.Option

// DefaultMaxHops bounds how far one mover propagates upstream within a
// single pass application.
const DefaultMaxHops = upstream.DefaultMaxHops

// NewUpStreamGather builds the Gather/GatherND relocation pass.
//
// Example:
//
//	tr := optimizer.NewUpStreamGather(optimizer.WithMaxHops(8))
func NewUpStreamGather(opts ...Option) *UpStreamGather {
	return upstream.NewUpStreamGather(opts...)
}

// NewUpStreamReshape builds the Reshape relocation pass.
func NewUpStreamReshape(opts ...Option) *UpStreamReshape {
	return upstream.NewUpStreamReshape(opts...)
}

// WithMaxHops overrides the per-mover propagation budget. Values below
// one are ignored.
func WithMaxHops(n int) Option {
	return upstream.WithMaxHops(n)
}
