// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optimizer provides the graph-rewriting passes and the manager
// that drives them to a fixpoint.
//
// # Overview
//
// The computation-reduction passes relocate "mover" operators (Gather,
// GatherND, and dimension-merging Reshape) upstream past their
// producers, so producers compute on the reduced data instead of the
// full tensor. Output values never change; only where the reduction
// happens does.
//
//   - UpStreamGather: relocates Gather / GatherND nodes
//   - UpStreamReshape: relocates leading-dim-merging Reshape nodes
//   - Manager: runs registered passes per level until nothing changes
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/pare/graph"
//	    "github.com/born-ml/pare/optimizer"
//	)
//
//	m := optimizer.NewManager(0) // default step budget
//	if err := m.Register(optimizer.NewUpStreamGather(), optimizer.LevelDefault); err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Register(optimizer.NewUpStreamReshape(), optimizer.LevelDefault); err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.ApplyTransformers(g, optimizer.LevelDefault, nil); err != nil {
//	    log.Fatal(err)
//	}
//
// Passes mutate the graph in place and are idempotent: once a graph is
// fully rewritten, another round reports no change and the manager
// stops.
package optimizer
