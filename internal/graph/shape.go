package graph

import (
	"fmt"
	"strings"

	"github.com/born-ml/pare/internal/tensor"
)

// Dim is one dimension of an advisory tensor shape: either a concrete
// non-negative size or a symbolic name for a size unknown until runtime.
type Dim struct {
	Value int64
	Param string
}

// FixedDim builds a concrete dimension.
func FixedDim(v int64) Dim {
	return Dim{Value: v}
}

// SymbolicDim builds a named symbolic dimension.
func SymbolicDim(name string) Dim {
	return Dim{Param: name}
}

// IsSymbolic reports whether the dimension size is unknown.
func (d Dim) IsSymbolic() bool {
	return d.Param != ""
}

// Equal reports whether two dimensions agree: concrete dims compare by
// value, symbolic dims by name.
func (d Dim) Equal(other Dim) bool {
	if d.IsSymbolic() || other.IsSymbolic() {
		return d.Param == other.Param
	}
	return d.Value == other.Value
}

func (d Dim) String() string {
	if d.IsSymbolic() {
		return d.Param
	}
	return fmt.Sprintf("%d", d.Value)
}

// Shape is advisory shape metadata attached to a tensor name. It is
// metadata, not an edge: a missing or partial shape is legal and simply
// limits what rewriters can prove.
type Shape []Dim

// ShapeOf builds an all-concrete shape.
func ShapeOf(dims ...int64) Shape {
	s := make(Shape, len(dims))
	for i, d := range dims {
		s[i] = FixedDim(d)
	}
	return s
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Equal reports whether two shapes agree dimension by dimension.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !s[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Concrete converts to a plain integer shape when every dimension is
// known. The second result is false when any dimension is symbolic.
func (s Shape) Concrete() (tensor.Shape, bool) {
	out := make(tensor.Shape, len(s))
	for i, d := range s {
		if d.IsSymbolic() {
			return nil, false
		}
		out[i] = int(d.Value)
	}
	return out, true
}

// FromConcrete builds an advisory shape from a plain integer shape.
func FromConcrete(s tensor.Shape) Shape {
	out := make(Shape, len(s))
	for i, d := range s {
		out[i] = FixedDim(int64(d))
	}
	return out
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}
