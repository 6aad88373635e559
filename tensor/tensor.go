// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/pare/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor element types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// DataType represents the runtime element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Shape represents the concrete dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Raw is an immutable constant tensor: a shape, an element type, and a
// flat data buffer. Raw values back graph initializers such as gather
// indices and reshape target shapes.
type Raw = tensor.Raw

// New creates a constant tensor from typed values. The value count must
// match the shape's element count.
//
// Example:
//
//	idx, err := tensor.New(tensor.Shape{3}, []int64{0, 2, 5})
func New[T DType](shape Shape, values []T) (*Raw, error) {
	return tensor.New(shape, values)
}

// NewRaw creates a zero-filled constant tensor with the given shape and
// element type.
func NewRaw(shape Shape, dtype DataType) (*Raw, error) {
	return tensor.NewRaw(shape, dtype)
}

// Scalar creates a rank-0 constant holding a single value.
//
// Example:
//
//	one := tensor.Scalar[int64](1)
func Scalar[T DType](value T) *Raw {
	return tensor.Scalar(value)
}

// BroadcastShapes computes the broadcast shape of two shapes following
// NumPy broadcasting rules. The boolean reports whether the first
// operand needs broadcasting to reach the result.
//
// Example:
//
//	out, aBroadcasts, err := tensor.BroadcastShapes(
//	    tensor.Shape{3, 1},
//	    tensor.Shape{3, 4},
//	)
//	// out = [3, 4], aBroadcasts = true
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
