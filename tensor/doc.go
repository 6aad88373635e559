// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the constant-tensor types used by the pare
// graph model.
//
// # Overview
//
// Graphs handled by this module are rewritten, never executed; the only
// tensor values they carry are constants such as gather indices and
// reshape target shapes. This package provides:
//   - Raw: an immutable constant tensor (shape, element type, flat data)
//   - Shape, DataType: concrete shape and element-type descriptors
//   - NumPy-style broadcast resolution for shape analysis
//
// # Basic Usage
//
//	import "github.com/born-ml/pare/tensor"
//
//	// A 1-D int64 index constant.
//	idx, err := tensor.New(tensor.Shape{3}, []int64{0, 2, 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vals, _ := idx.Ints() // [0 2 5]
//
//	// A scalar index.
//	one := tensor.Scalar[int64](1)
//
// # Supported Data Types
//
// The DType constraint covers the element types a Raw tensor can hold:
//   - float32, float64 (floating-point)
//   - int32, int64 (signed integers)
//   - uint8 (unsigned integers)
//   - bool (boolean masks)
//
// # Broadcasting
//
// BroadcastShapes follows NumPy broadcasting rules and is the shape-level
// check rewriters use when deciding whether an operand participates in a
// dimension:
//
//	out, aBroadcasts, err := tensor.BroadcastShapes(
//	    tensor.Shape{3, 1},
//	    tensor.Shape{3, 4},
//	)
//	// out = [3, 4], aBroadcasts = true
package tensor
