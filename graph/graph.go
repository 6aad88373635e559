// Package graph provides the tensor-operator dataflow graph model the
// pare rewriters operate on.
//
// A Graph owns named nodes, graph inputs/outputs, constant initializer
// payloads, and advisory shape metadata. Tensors are identified by name
// and every non-input, non-initializer tensor has exactly one producing
// node; the structural edit operations keep that invariant and Validate
// reports every violation at once when an edit goes wrong.
//
// Graphs are built programmatically with the Builder and rewritten in
// place by optimizer passes.
//
// # Example Usage
//
//	import (
//	    "github.com/born-ml/pare/graph"
//	    "github.com/born-ml/pare/tensor"
//	)
//
//	b := graph.NewBuilder("block")
//	x := b.Input("x", tensor.Float32, graph.ShapeOf(2, 128, 768))
//	idx := b.Int64Initializer("idx", tensor.Shape{1}, 0)
//	b.Node(graph.OpGather, []string{x, idx}, []string{"out"},
//	    graph.Attributes{"axis": graph.IntAttr(1)}).
//	    Output("out")
//	g, err := b.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(graph.CensusString(graph.OpCount(g)))
package graph

import (
	"github.com/born-ml/pare/internal/graph"
	"github.com/born-ml/pare/internal/tensor"
)

// Graph is a mutable tensor-operator dataflow graph.
type Graph = graph.Graph

// Node is one operator instance inside a Graph. Nodes are arena-owned;
// NodeIndex is the stable handle across edits.
type Node = graph.Node

// NodeIndex is the stable arena handle of a node within its Graph.
type NodeIndex = graph.NodeIndex

// Builder constructs graphs fluently: inputs, initializers, nodes,
// advisory shapes, and outputs, validated on Build.
type Builder = graph.Builder

// Dim is one dimension of an advisory shape: concrete or symbolic.
type Dim = graph.Dim

// Shape is advisory per-tensor shape metadata. Missing or partial
// shapes are legal and simply limit what rewriters can prove.
type Shape = graph.Shape

// OpKind identifies an operator family. The set is closed; rewriters
// dispatch on it exhaustively.
type OpKind = graph.OpKind

// Operator kinds.
const (
	OpInvalid            OpKind = graph.OpInvalid
	OpAdd                OpKind = graph.OpAdd
	OpCast               OpKind = graph.OpCast
	OpConcat             OpKind = graph.OpConcat
	OpDiv                OpKind = graph.OpDiv
	OpDropout            OpKind = graph.OpDropout
	OpEqual              OpKind = graph.OpEqual
	OpErf                OpKind = graph.OpErf
	OpGather             OpKind = graph.OpGather
	OpGatherND           OpKind = graph.OpGatherND
	OpGelu               OpKind = graph.OpGelu
	OpIdentity           OpKind = graph.OpIdentity
	OpLayerNormalization OpKind = graph.OpLayerNormalization
	OpMatMul             OpKind = graph.OpMatMul
	OpMul                OpKind = graph.OpMul
	OpPow                OpKind = graph.OpPow
	OpReduceMean         OpKind = graph.OpReduceMean
	OpRelu               OpKind = graph.OpRelu
	OpReshape            OpKind = graph.OpReshape
	OpShape              OpKind = graph.OpShape
	OpSigmoid            OpKind = graph.OpSigmoid
	OpSlice              OpKind = graph.OpSlice
	OpSoftmax            OpKind = graph.OpSoftmax
	OpSplit              OpKind = graph.OpSplit
	OpSqrt               OpKind = graph.OpSqrt
	OpSqueeze            OpKind = graph.OpSqueeze
	OpSub                OpKind = graph.OpSub
	OpTanh               OpKind = graph.OpTanh
	OpTranspose          OpKind = graph.OpTranspose
	OpUnsqueeze          OpKind = graph.OpUnsqueeze
	OpWhere              OpKind = graph.OpWhere
)

// AttrKind tags the value type held by an Attribute.
type AttrKind = graph.AttrKind

// Attribute value types.
const (
	AttrKindInt    AttrKind = graph.AttrKindInt
	AttrKindInts   AttrKind = graph.AttrKindInts
	AttrKindFloat  AttrKind = graph.AttrKindFloat
	AttrKindString AttrKind = graph.AttrKindString
)

// Attribute is a typed node attribute value.
type Attribute = graph.Attribute

// Attributes maps attribute names to values.
type Attributes = graph.Attributes

// Structural error sentinels. Edit operations and Validate wrap these
// with context.
var (
	ErrCycle             = graph.ErrCycle
	ErrDuplicateNode     = graph.ErrDuplicateNode
	ErrDuplicateTensor   = graph.ErrDuplicateTensor
	ErrUnknownTensor     = graph.ErrUnknownTensor
	ErrUnknownNode       = graph.ErrUnknownNode
	ErrNoProducer        = graph.ErrNoProducer
	ErrMultipleProducers = graph.ErrMultipleProducers
	ErrSlotOutOfRange    = graph.ErrSlotOutOfRange
)

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return graph.NewGraph(name)
}

// NewBuilder starts a fluent graph construction.
func NewBuilder(name string) *Builder {
	return graph.NewBuilder(name)
}

// FixedDim builds a concrete dimension.
func FixedDim(v int64) Dim {
	return graph.FixedDim(v)
}

// SymbolicDim builds a named symbolic dimension.
func SymbolicDim(name string) Dim {
	return graph.SymbolicDim(name)
}

// ShapeOf builds an all-concrete shape.
func ShapeOf(dims ...int64) Shape {
	return graph.ShapeOf(dims...)
}

// FromConcrete converts a concrete tensor shape into advisory metadata.
func FromConcrete(s tensor.Shape) Shape {
	return graph.FromConcrete(s)
}

// ParseOp maps an operator name to its kind.
func ParseOp(name string) (OpKind, bool) {
	return graph.ParseOp(name)
}

// IntAttr builds an integer attribute value.
func IntAttr(v int64) Attribute {
	return graph.IntAttr(v)
}

// IntsAttr builds an integer-list attribute value.
func IntsAttr(vs ...int64) Attribute {
	return graph.IntsAttr(vs...)
}

// FloatAttr builds a float attribute value.
func FloatAttr(v float32) Attribute {
	return graph.FloatAttr(v)
}

// StringAttr builds a string attribute value.
func StringAttr(v string) Attribute {
	return graph.StringAttr(v)
}

// OpCount tallies live nodes per operator kind.
func OpCount(g *Graph) map[OpKind]int {
	return graph.OpCount(g)
}

// CountOf returns the number of live nodes of one kind.
func CountOf(g *Graph, kind OpKind) int {
	return graph.CountOf(g, kind)
}

// CensusString renders an op census as a stable, sorted one-line
// summary for logs and examples.
func CensusString(counts map[OpKind]int) string {
	return graph.CensusString(counts)
}
