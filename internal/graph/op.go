// Package graph provides the mutable tensor-operator graph model: named
// tensors, arena-indexed nodes, producer/consumer lookup, topological
// ordering, and the structural edit operations rewriters build on.
package graph

// OpKind identifies an operator family. The set is closed: rewriters
// dispatch on it with exhaustive switches, so adding a family means adding
// a constant here and a match arm there.
type OpKind int

// Supported operator kinds.
const (
	OpInvalid OpKind = iota
	OpAdd
	OpCast
	OpConcat
	OpDiv
	OpDropout
	OpEqual
	OpErf
	OpGather
	OpGatherND
	OpGelu
	OpIdentity
	OpLayerNormalization
	OpMatMul
	OpMul
	OpPow
	OpReduceMean
	OpRelu
	OpReshape
	OpShape
	OpSigmoid
	OpSlice
	OpSoftmax
	OpSplit
	OpSqrt
	OpSqueeze
	OpSub
	OpTanh
	OpTranspose
	OpUnsqueeze
	OpWhere

	numOpKinds // must stay last
)

// opNames maps kinds to their canonical operator names.
var opNames = [numOpKinds]string{
	OpInvalid:            "Invalid",
	OpAdd:                "Add",
	OpCast:               "Cast",
	OpConcat:             "Concat",
	OpDiv:                "Div",
	OpDropout:            "Dropout",
	OpEqual:              "Equal",
	OpErf:                "Erf",
	OpGather:             "Gather",
	OpGatherND:           "GatherND",
	OpGelu:               "Gelu",
	OpIdentity:           "Identity",
	OpLayerNormalization: "LayerNormalization",
	OpMatMul:             "MatMul",
	OpMul:                "Mul",
	OpPow:                "Pow",
	OpReduceMean:         "ReduceMean",
	OpRelu:               "Relu",
	OpReshape:            "Reshape",
	OpShape:              "Shape",
	OpSigmoid:            "Sigmoid",
	OpSlice:              "Slice",
	OpSoftmax:            "Softmax",
	OpSplit:              "Split",
	OpSqrt:               "Sqrt",
	OpSqueeze:            "Squeeze",
	OpSub:                "Sub",
	OpTanh:               "Tanh",
	OpTranspose:          "Transpose",
	OpUnsqueeze:          "Unsqueeze",
	OpWhere:              "Where",
}

var opKinds = func() map[string]OpKind {
	m := make(map[string]OpKind, numOpKinds)
	for k := OpKind(1); k < numOpKinds; k++ {
		m[opNames[k]] = k
	}
	return m
}()

// String returns the canonical operator name.
func (k OpKind) String() string {
	if k < 0 || k >= numOpKinds {
		return "Invalid"
	}
	return opNames[k]
}

// ParseOp maps a canonical operator name to its kind.
// Returns false for names outside the supported set.
func ParseOp(name string) (OpKind, bool) {
	k, ok := opKinds[name]
	return k, ok
}
