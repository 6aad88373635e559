package graph

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/exp/maps"

	"github.com/born-ml/pare/internal/tensor"
)

// Graph is a mutable tensor-operator dataflow graph. It owns all nodes,
// the graph input/output lists, initializer payloads, and advisory shape
// metadata. Tensors are identified by name; every non-input, non-initializer
// tensor has exactly one producing node.
//
// Producer lookup is an index over node output lists, maintained only by
// the structural edit operations, so it can never drift between edits.
// Consumer lookup is derived by scanning node input lists on demand.
type Graph struct {
	name string

	nodes       []*Node // arena; removed slots hold nil, indices never reused
	nodesByName map[string]NodeIndex

	inputs  []string
	outputs []string

	initializers map[string]*tensor.Raw
	shapes       map[string]Shape
	dtypes       map[string]tensor.DataType

	producers map[string]NodeIndex

	tensorNames map[string]struct{} // every tensor name ever used
	nodeNames   map[string]struct{} // every node name ever used
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		name:         name,
		nodesByName:  make(map[string]NodeIndex),
		initializers: make(map[string]*tensor.Raw),
		shapes:       make(map[string]Shape),
		dtypes:       make(map[string]tensor.DataType),
		producers:    make(map[string]NodeIndex),
		tensorNames:  make(map[string]struct{}),
		nodeNames:    make(map[string]struct{}),
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// AddInput declares a graph input tensor with its element type and
// advisory shape.
func (g *Graph) AddInput(name string, dtype tensor.DataType, shape Shape) error {
	if name == "" {
		return errors.Wrap(ErrUnknownTensor, "empty input name")
	}
	if g.tensorTaken(name) {
		return errors.Wrapf(ErrDuplicateTensor, "input %q", name)
	}
	g.inputs = append(g.inputs, name)
	g.tensorNames[name] = struct{}{}
	g.dtypes[name] = dtype
	if shape != nil {
		g.shapes[name] = shape.Clone()
	}
	return nil
}

// AddOutput declares a graph output tensor. The producing node may be
// added later; Validate checks that every output resolves.
func (g *Graph) AddOutput(name string) error {
	if name == "" {
		return errors.Wrap(ErrUnknownTensor, "empty output name")
	}
	for _, out := range g.outputs {
		if out == name {
			return errors.Wrapf(ErrDuplicateTensor, "output %q", name)
		}
	}
	g.outputs = append(g.outputs, name)
	return nil
}

// Inputs returns the ordered graph input names. Callers must not modify
// the returned slice.
func (g *Graph) Inputs() []string {
	return g.inputs
}

// Outputs returns the ordered graph output names. Callers must not
// modify the returned slice.
func (g *Graph) Outputs() []string {
	return g.outputs
}

// IsGraphInput reports whether name is a declared graph input.
func (g *Graph) IsGraphInput(name string) bool {
	for _, in := range g.inputs {
		if in == name {
			return true
		}
	}
	return false
}

// IsGraphOutput reports whether name is a declared graph output.
func (g *Graph) IsGraphOutput(name string) bool {
	for _, out := range g.outputs {
		if out == name {
			return true
		}
	}
	return false
}

// AddInitializer declares a named constant tensor.
func (g *Graph) AddInitializer(name string, value *tensor.Raw) error {
	if name == "" {
		return errors.Wrap(ErrUnknownTensor, "empty initializer name")
	}
	if g.tensorTaken(name) {
		return errors.Wrapf(ErrDuplicateTensor, "initializer %q", name)
	}
	g.initializers[name] = value
	g.tensorNames[name] = struct{}{}
	g.dtypes[name] = value.DType()
	g.shapes[name] = FromConcrete(value.Shape())
	return nil
}

// ReplaceInitializer swaps the payload of an existing initializer
// wholesale. The old value is discarded, never mutated.
func (g *Graph) ReplaceInitializer(name string, value *tensor.Raw) error {
	if _, ok := g.initializers[name]; !ok {
		return errors.Wrapf(ErrUnknownTensor, "initializer %q", name)
	}
	g.initializers[name] = value
	g.dtypes[name] = value.DType()
	g.shapes[name] = FromConcrete(value.Shape())
	return nil
}

// RemoveInitializer deletes an initializer. References from node inputs
// are the caller's responsibility; Validate reports any left dangling.
func (g *Graph) RemoveInitializer(name string) error {
	if _, ok := g.initializers[name]; !ok {
		return errors.Wrapf(ErrUnknownTensor, "initializer %q", name)
	}
	delete(g.initializers, name)
	delete(g.shapes, name)
	delete(g.dtypes, name)
	return nil
}

// Initializer returns the constant payload for name.
func (g *Graph) Initializer(name string) (*tensor.Raw, bool) {
	v, ok := g.initializers[name]
	return v, ok
}

// IsInitializer reports whether name is a constant initializer.
func (g *Graph) IsInitializer(name string) bool {
	_, ok := g.initializers[name]
	return ok
}

// InitializerNames returns all initializer names, sorted.
func (g *Graph) InitializerNames() []string {
	names := maps.Keys(g.initializers)
	sort.Strings(names)
	return names
}

// Shape returns the advisory shape recorded for a tensor name.
func (g *Graph) Shape(name string) (Shape, bool) {
	s, ok := g.shapes[name]
	return s, ok
}

// SetShape records advisory shape metadata for a tensor name.
func (g *Graph) SetShape(name string, shape Shape) {
	g.shapes[name] = shape.Clone()
}

// DType returns the element type recorded for a tensor name.
func (g *Graph) DType(name string) (tensor.DataType, bool) {
	dt, ok := g.dtypes[name]
	return dt, ok
}

// SetDType records the element type for a tensor name.
func (g *Graph) SetDType(name string, dtype tensor.DataType) {
	g.dtypes[name] = dtype
}

// AddNode appends a node to the graph and registers it as the producer
// of its non-empty outputs. Input and output slices and the attribute
// map are copied; the graph owns the node.
func (g *Graph) AddNode(name string, op OpKind, inputs, outputs []string, attrs Attributes) (*Node, error) {
	if name == "" {
		return nil, errors.Wrap(ErrUnknownNode, "empty node name")
	}
	if op <= OpInvalid || op >= numOpKinds {
		return nil, errors.Errorf("node %q: invalid op kind %d", name, int(op))
	}
	if _, taken := g.nodeNames[name]; taken {
		return nil, errors.Wrapf(ErrDuplicateNode, "node %q", name)
	}
	for _, out := range outputs {
		if out == "" {
			continue
		}
		if g.IsGraphInput(out) || g.IsInitializer(out) {
			return nil, errors.Wrapf(ErrDuplicateTensor, "node %q output %q", name, out)
		}
		if _, produced := g.producers[out]; produced {
			return nil, errors.Wrapf(ErrMultipleProducers, "node %q output %q", name, out)
		}
	}

	n := &Node{
		name:    name,
		op:      op,
		inputs:  append([]string(nil), inputs...),
		outputs: append([]string(nil), outputs...),
		attrs:   attrs.Clone(),
		idx:     NodeIndex(len(g.nodes)),
	}
	g.nodes = append(g.nodes, n)
	g.nodesByName[name] = n.idx
	g.nodeNames[name] = struct{}{}
	for _, out := range n.outputs {
		if out == "" {
			continue
		}
		g.producers[out] = n.idx
		g.tensorNames[out] = struct{}{}
	}
	for _, in := range n.inputs {
		if in != "" {
			g.tensorNames[in] = struct{}{}
		}
	}
	return n, nil
}

// RemoveNode deletes a node and unregisters it from the producer index.
// Consumers still referencing its outputs are the caller's
// responsibility; Validate reports any left dangling. Advisory metadata
// for the removed outputs is dropped.
func (g *Graph) RemoveNode(idx NodeIndex) error {
	n, ok := g.NodeByIndex(idx)
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "index %d", int(idx))
	}
	for _, out := range n.outputs {
		if out == "" {
			continue
		}
		delete(g.producers, out)
		delete(g.shapes, out)
		delete(g.dtypes, out)
	}
	delete(g.nodesByName, n.name)
	g.nodes[idx] = nil
	return nil
}

// UpdateAttr sets one attribute on a node. Rewriters use this to keep
// axis attributes consistent when a node's operand ranks change.
func (g *Graph) UpdateAttr(idx NodeIndex, name string, attr Attribute) error {
	n, ok := g.NodeByIndex(idx)
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "index %d", int(idx))
	}
	if n.attrs == nil {
		n.attrs = make(Attributes, 1)
	}
	if attr.Kind == AttrKindInts {
		ints := make([]int64, len(attr.Ints))
		copy(ints, attr.Ints)
		attr.Ints = ints
	}
	n.attrs[name] = attr
	return nil
}

// RedirectInput rewires one consumer's specific input slot to a
// different tensor name.
func (g *Graph) RedirectInput(idx NodeIndex, slot int, to string) error {
	n, ok := g.NodeByIndex(idx)
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "index %d", int(idx))
	}
	if slot < 0 || slot >= len(n.inputs) {
		return errors.Wrapf(ErrSlotOutOfRange, "node %q slot %d of %d", n.name, slot, len(n.inputs))
	}
	if to == "" {
		return errors.Wrapf(ErrUnknownTensor, "node %q slot %d: empty target", n.name, slot)
	}
	n.inputs[slot] = to
	g.tensorNames[to] = struct{}{}
	return nil
}

// RedirectConsumers rewires every consumer input slot and every graph
// output entry from one tensor name to another. Returns the number of
// references rewired.
func (g *Graph) RedirectConsumers(from, to string) int {
	count := 0
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		for i, in := range n.inputs {
			if in == from {
				n.inputs[i] = to
				count++
			}
		}
	}
	for i, out := range g.outputs {
		if out == from {
			g.outputs[i] = to
			count++
		}
	}
	if count > 0 {
		g.tensorNames[to] = struct{}{}
	}
	return count
}

// Node looks a node up by name.
func (g *Graph) Node(name string) (*Node, bool) {
	idx, ok := g.nodesByName[name]
	if !ok {
		return nil, false
	}
	return g.NodeByIndex(idx)
}

// NodeByIndex looks a node up by arena index.
func (g *Graph) NodeByIndex(idx NodeIndex) (*Node, bool) {
	if idx < 0 || int(idx) >= len(g.nodes) || g.nodes[idx] == nil {
		return nil, false
	}
	return g.nodes[idx], true
}

// Nodes returns all live nodes in arena order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// NumNodes returns the number of live nodes.
func (g *Graph) NumNodes() int {
	count := 0
	for _, n := range g.nodes {
		if n != nil {
			count++
		}
	}
	return count
}

// ProducerOf returns the node producing the named tensor, or nil for
// graph inputs, initializers, and unknown names.
func (g *Graph) ProducerOf(name string) *Node {
	idx, ok := g.producers[name]
	if !ok {
		return nil
	}
	n, _ := g.NodeByIndex(idx)
	return n
}

// ConsumersOf returns the nodes consuming the named tensor, in arena
// order. The order is stable within one pass execution. A node consuming
// the tensor through several slots appears once.
func (g *Graph) ConsumersOf(name string) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		for _, in := range n.inputs {
			if in == name {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// GenerateTensorName returns a tensor name derived from base that is not
// used anywhere in the graph, and reserves it.
func (g *Graph) GenerateTensorName(base string) string {
	name := base
	for i := 1; g.tensorTaken(name); i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	g.tensorNames[name] = struct{}{}
	return name
}

// GenerateNodeName returns a node name derived from base that has never
// been used in the graph, and reserves it.
func (g *Graph) GenerateNodeName(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := g.nodeNames[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	g.nodeNames[name] = struct{}{}
	return name
}

func (g *Graph) tensorTaken(name string) bool {
	_, taken := g.tensorNames[name]
	return taken
}

// resolvable reports whether a tensor name is backed by a producer, a
// graph input, or an initializer.
func (g *Graph) resolvable(name string) bool {
	if _, ok := g.producers[name]; ok {
		return true
	}
	return g.IsGraphInput(name) || g.IsInitializer(name)
}

// Validate checks the structural invariants: every referenced tensor
// resolves, every tensor has at most one producer, the producer index
// matches the node output lists, and the graph is acyclic. All
// violations are collected and returned together.
func (g *Graph) Validate() error {
	var err error

	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		for slot, in := range n.inputs {
			if in == "" {
				continue
			}
			if !g.resolvable(in) {
				err = multierr.Append(err, errors.Wrapf(ErrUnknownTensor, "node %q input %d: %q", n.name, slot, in))
			}
		}
	}

	for _, out := range g.outputs {
		if !g.resolvable(out) {
			err = multierr.Append(err, errors.Wrapf(ErrNoProducer, "graph output %q", out))
		}
	}

	seen := make(map[string]NodeIndex)
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		for _, out := range n.outputs {
			if out == "" {
				continue
			}
			if prev, dup := seen[out]; dup {
				err = multierr.Append(err, errors.Wrapf(ErrMultipleProducers, "tensor %q produced by nodes %d and %d", out, int(prev), int(n.idx)))
				continue
			}
			seen[out] = n.idx
			if got, ok := g.producers[out]; !ok || got != n.idx {
				err = multierr.Append(err, errors.Errorf("producer index out of sync for tensor %q", out))
			}
		}
	}
	for out, idx := range g.producers {
		if _, ok := seen[out]; !ok {
			err = multierr.Append(err, errors.Errorf("producer index lists unknown tensor %q (node %d)", out, int(idx)))
		}
	}

	if _, topoErr := g.TopologicalOrder(); topoErr != nil {
		err = multierr.Append(err, topoErr)
	}

	return err
}
