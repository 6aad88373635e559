package graph

import (
	"github.com/pkg/errors"

	"github.com/born-ml/pare/internal/tensor"
)

// Builder assembles a graph programmatically. Errors stick to the
// builder and surface from Build, so call sites stay linear.
type Builder struct {
	g   *Graph
	err error
}

// NewBuilder creates a builder for a named graph.
func NewBuilder(name string) *Builder {
	return &Builder{g: NewGraph(name)}
}

// Input declares a graph input and returns its name.
func (b *Builder) Input(name string, dtype tensor.DataType, shape Shape) string {
	if b.err == nil {
		b.err = b.g.AddInput(name, dtype, shape)
	}
	return name
}

// Initializer declares a constant tensor and returns its name.
func (b *Builder) Initializer(name string, value *tensor.Raw) string {
	if b.err == nil {
		b.err = b.g.AddInitializer(name, value)
	}
	return name
}

// Int64Initializer declares an int64 constant from values; a nil dims
// slice declares a scalar.
func (b *Builder) Int64Initializer(name string, dims tensor.Shape, values ...int64) string {
	if b.err != nil {
		return name
	}
	raw, err := tensor.New(dims, values)
	if err != nil {
		b.err = errors.Wrapf(err, "initializer %q", name)
		return name
	}
	b.err = b.g.AddInitializer(name, raw)
	return name
}

// Node adds a node with an auto-generated name derived from its op.
func (b *Builder) Node(op OpKind, inputs, outputs []string, attrs Attributes) *Builder {
	if b.err != nil {
		return b
	}
	name := b.g.GenerateNodeName(op.String())
	_, b.err = b.g.AddNode(name, op, inputs, outputs, attrs)
	return b
}

// NamedNode adds a node with an explicit name.
func (b *Builder) NamedNode(name string, op OpKind, inputs, outputs []string, attrs Attributes) *Builder {
	if b.err == nil {
		_, b.err = b.g.AddNode(name, op, inputs, outputs, attrs)
	}
	return b
}

// Shape records advisory shape metadata for a tensor name. Intermediate
// tensors are not shape-inferred; annotate the ones rewriters must
// reason about.
func (b *Builder) Shape(name string, shape Shape) *Builder {
	if b.err == nil {
		b.g.SetShape(name, shape)
	}
	return b
}

// DType records the element type for a tensor name.
func (b *Builder) DType(name string, dtype tensor.DataType) *Builder {
	if b.err == nil {
		b.g.SetDType(name, dtype)
	}
	return b
}

// Output declares graph outputs.
func (b *Builder) Output(names ...string) *Builder {
	for _, name := range names {
		if b.err != nil {
			return b
		}
		b.err = b.g.AddOutput(name)
	}
	return b
}

// Build validates the assembled graph and returns it.
func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.g.Validate(); err != nil {
		return nil, errors.Wrapf(err, "graph %q", b.g.Name())
	}
	return b.g, nil
}

// MustBuild is Build for construction code that treats failure as a
// programming error.
func (b *Builder) MustBuild() *Graph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
