package graph

// AttrKind tags the value type held by an Attribute.
type AttrKind int

// Attribute value types.
const (
	AttrKindInt AttrKind = iota
	AttrKindInts
	AttrKindFloat
	AttrKindString
)

// Attribute is a typed node attribute value.
type Attribute struct {
	Kind AttrKind
	I    int64
	Ints []int64
	F    float32
	S    string
}

// Attributes maps attribute names to values.
type Attributes map[string]Attribute

// IntAttr builds an integer attribute value.
func IntAttr(v int64) Attribute {
	return Attribute{Kind: AttrKindInt, I: v}
}

// IntsAttr builds an integer-list attribute value.
func IntsAttr(vs ...int64) Attribute {
	return Attribute{Kind: AttrKindInts, Ints: vs}
}

// FloatAttr builds a float attribute value.
func FloatAttr(v float32) Attribute {
	return Attribute{Kind: AttrKindFloat, F: v}
}

// StringAttr builds a string attribute value.
func StringAttr(v string) Attribute {
	return Attribute{Kind: AttrKindString, S: v}
}

// Clone returns a deep copy of the attribute map.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for name, attr := range a {
		if attr.Kind == AttrKindInts {
			ints := make([]int64, len(attr.Ints))
			copy(ints, attr.Ints)
			attr.Ints = ints
		}
		out[name] = attr
	}
	return out
}

// AttrInt returns an integer attribute or the default value.
func (n *Node) AttrInt(name string, defaultVal int64) int64 {
	if attr, ok := n.attrs[name]; ok && attr.Kind == AttrKindInt {
		return attr.I
	}
	return defaultVal
}

// AttrInts returns an integer-list attribute, or nil when absent.
func (n *Node) AttrInts(name string) []int64 {
	if attr, ok := n.attrs[name]; ok && attr.Kind == AttrKindInts {
		return attr.Ints
	}
	return nil
}

// AttrFloat returns a float attribute or the default value.
func (n *Node) AttrFloat(name string, defaultVal float32) float32 {
	if attr, ok := n.attrs[name]; ok && attr.Kind == AttrKindFloat {
		return attr.F
	}
	return defaultVal
}

// AttrString returns a string attribute or the default value.
func (n *Node) AttrString(name, defaultVal string) string {
	if attr, ok := n.attrs[name]; ok && attr.Kind == AttrKindString {
		return attr.S
	}
	return defaultVal
}
