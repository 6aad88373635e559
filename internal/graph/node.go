package graph

// NodeIndex is a stable arena handle for a node inside its owning Graph.
// Indices are never reused within one Graph's lifetime.
type NodeIndex int

// InvalidNodeIndex marks the absence of a node.
const InvalidNodeIndex NodeIndex = -1

// Node is one operator instance. Nodes are owned exclusively by their
// Graph; pointers are transient handles, valid until the next structural
// edit that removes the node.
type Node struct {
	name    string
	op      OpKind
	inputs  []string // tensor names; "" marks an absent optional input
	outputs []string // tensor names; "" marks an unused optional output
	attrs   Attributes
	idx     NodeIndex
}

// Name returns the node's unique name.
func (n *Node) Name() string {
	return n.name
}

// Op returns the operator kind.
func (n *Node) Op() OpKind {
	return n.op
}

// Index returns the node's arena index.
func (n *Node) Index() NodeIndex {
	return n.idx
}

// Inputs returns the ordered input tensor names. Callers must not modify
// the returned slice; use Graph edit operations instead.
func (n *Node) Inputs() []string {
	return n.inputs
}

// Outputs returns the ordered output tensor names. Callers must not
// modify the returned slice.
func (n *Node) Outputs() []string {
	return n.outputs
}

// Input returns the tensor name at input slot i, or "" when the slot is
// absent or out of range.
func (n *Node) Input(i int) string {
	if i < 0 || i >= len(n.inputs) {
		return ""
	}
	return n.inputs[i]
}

// Output returns the tensor name at output slot i, or "" when the slot
// is absent or out of range.
func (n *Node) Output(i int) string {
	if i < 0 || i >= len(n.outputs) {
		return ""
	}
	return n.outputs[i]
}

// InputSlot returns the first input slot carrying the given tensor name,
// or -1 when the node does not consume it.
func (n *Node) InputSlot(tensorName string) int {
	for i, in := range n.inputs {
		if in == tensorName && in != "" {
			return i
		}
	}
	return -1
}

// Attrs returns the node's attribute map. Callers must not modify it.
func (n *Node) Attrs() Attributes {
	return n.attrs
}
