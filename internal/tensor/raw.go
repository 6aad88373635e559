package tensor

import (
	"fmt"
	"unsafe"
)

// Raw is a host-resident constant tensor: flat row-major bytes plus shape
// and type metadata. The graph model stores initializer payloads as Raw
// values; nothing here executes kernels.
type Raw struct {
	shape Shape
	dtype DataType
	data  []byte
}

// NewRaw creates a zero-filled Raw tensor with the given shape and type.
// An empty shape declares a scalar (one element).
func NewRaw(shape Shape, dtype DataType) (*Raw, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &Raw{
		shape: shape.Clone(),
		dtype: dtype,
		data:  make([]byte, shape.NumElements()*dtype.Size()),
	}, nil
}

// New creates a Raw tensor holding the given values.
// len(values) must match the shape's element count.
func New[T DType](shape Shape, values []T) (*Raw, error) {
	var zero T
	r, err := NewRaw(shape, inferDataType(zero))
	if err != nil {
		return nil, err
	}
	if len(values) != r.NumElements() {
		return nil, fmt.Errorf("shape %v wants %d elements, got %d", shape, r.NumElements(), len(values))
	}
	dst := rawSlice[T](r)
	copy(dst, values)
	return r, nil
}

// Scalar creates a rank-0 Raw tensor holding a single value.
func Scalar[T DType](value T) *Raw {
	r, err := New(Shape{}, []T{value})
	if err != nil {
		panic(err) // Shape{} cannot fail validation
	}
	return r
}

// Shape returns the tensor's shape.
func (r *Raw) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *Raw) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *Raw) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *Raw) ByteSize() int {
	return len(r.data)
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *Raw) Data() []byte {
	return r.data
}

// Clone returns a deep copy.
func (r *Raw) Clone() *Raw {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &Raw{shape: r.shape.Clone(), dtype: r.dtype, data: data}
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *Raw) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	return rawSlice[float32](r)
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *Raw) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	return rawSlice[int32](r)
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *Raw) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	return rawSlice[int64](r)
}

// Ints returns the elements widened to int64, for Int32 and Int64 tensors.
// Index and shape operands arrive in either width.
func (r *Raw) Ints() ([]int64, error) {
	switch r.dtype {
	case Int64:
		out := make([]int64, r.NumElements())
		copy(out, r.AsInt64())
		return out, nil
	case Int32:
		src := r.AsInt32()
		out := make([]int64, len(src))
		for i, v := range src {
			out[i] = int64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tensor dtype is %s, not an integer type", r.dtype)
	}
}

// rawSlice reinterprets the byte payload as []T.
func rawSlice[T DType](r *Raw) []T {
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds fixed by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&r.data[0])), r.NumElements())
}
