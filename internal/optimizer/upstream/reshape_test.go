package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/pare/internal/graph"
	"github.com/born-ml/pare/internal/tensor"
)

func TestReshapeMergesAboveAdd(t *testing.T) {
	b := graph.NewBuilder("g")
	a := b.Input("a", tensor.Float32, graph.ShapeOf(4, 32, 256))
	bias := b.Input("bias", tensor.Float32, graph.ShapeOf(256))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 256)
	b.NamedNode("add", graph.OpAdd, []string{a, bias}, []string{"add_out"}, nil).
		Shape("add_out", graph.ShapeOf(4, 32, 256))
	b.NamedNode("merge", graph.OpReshape, []string{"add_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(128, 256)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	tr := NewUpStreamReshape()
	modified, err := tr.Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	assertCensus(t, g, map[graph.OpKind]int{graph.OpReshape: 1, graph.OpAdd: 1})

	moved := soleNode(t, g, graph.OpReshape)
	assert.Equal(t, "a", moved.Input(0))
	assert.Equal(t, []int64{-1, 256}, mustInitializer(t, g, moved.Input(1)))
	_, ok := g.Initializer("c")
	assert.False(t, ok, "original target constant dropped with the mover")

	add, ok := g.Node("add")
	require.True(t, ok)
	assert.Equal(t, moved.Output(0), add.Input(0))
	assert.Equal(t, "bias", add.Input(1), "trailing-dims broadcast branch untouched")

	assert.Equal(t, []string{"add_out"}, g.Outputs())
	assert.True(t, graph.ShapeOf(128, 256).Equal(mustShape(t, g, "add_out")))
	assert.True(t, graph.ShapeOf(128, 256).Equal(mustShape(t, g, moved.Output(0))))

	modified, err = tr.Apply(g, nil)
	require.NoError(t, err)
	assert.False(t, modified, "second application is a no-op")
}

func TestReshapePushesBothFullRankOperands(t *testing.T) {
	b := graph.NewBuilder("g")
	a := b.Input("a", tensor.Float32, graph.ShapeOf(4, 32, 256))
	d := b.Input("d", tensor.Float32, graph.ShapeOf(4, 32, 1))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 256)
	b.NamedNode("add", graph.OpAdd, []string{a, d}, []string{"add_out"}, nil).
		Shape("add_out", graph.ShapeOf(4, 32, 256))
	b.NamedNode("merge", graph.OpReshape, []string{"add_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(128, 256)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	assertCensus(t, g, map[graph.OpKind]int{graph.OpReshape: 2, graph.OpAdd: 1})

	// Each clone gets its own target spelled from its own trailing dims.
	add, ok := g.Node("add")
	require.True(t, ok)
	onA := g.ProducerOf(add.Input(0))
	onD := g.ProducerOf(add.Input(1))
	require.NotNil(t, onA)
	require.NotNil(t, onD)
	assert.Equal(t, "a", onA.Input(0))
	assert.Equal(t, "d", onD.Input(0))
	assert.Equal(t, []int64{-1, 256}, mustInitializer(t, g, onA.Input(1)))
	assert.Equal(t, []int64{-1, 1}, mustInitializer(t, g, onD.Input(1)))
	assert.True(t, graph.ShapeOf(128, 256).Equal(mustShape(t, g, onA.Output(0))))
	assert.True(t, graph.ShapeOf(128, 1).Equal(mustShape(t, g, onD.Output(0))))
	assert.True(t, graph.ShapeOf(128, 256).Equal(mustShape(t, g, "add_out")))
}

func TestReshapeRejectsPartialOverlap(t *testing.T) {
	b := graph.NewBuilder("g")
	a := b.Input("a", tensor.Float32, graph.ShapeOf(4, 32, 256))
	d := b.Input("d", tensor.Float32, graph.ShapeOf(4, 1, 256))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 256)
	b.NamedNode("add", graph.OpAdd, []string{a, d}, []string{"add_out"}, nil).
		Shape("add_out", graph.ShapeOf(4, 32, 256))
	b.NamedNode("merge", graph.OpReshape, []string{"add_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(128, 256)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.False(t, modified, "operand broadcasts inside the merged dims")
}

func TestReshapeRejectsRankStraddle(t *testing.T) {
	b := graph.NewBuilder("g")
	a := b.Input("a", tensor.Float32, graph.ShapeOf(4, 32, 256))
	d := b.Input("d", tensor.Float32, graph.ShapeOf(32, 256))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 256)
	b.NamedNode("add", graph.OpAdd, []string{a, d}, []string{"add_out"}, nil).
		Shape("add_out", graph.ShapeOf(4, 32, 256))
	b.NamedNode("merge", graph.OpReshape, []string{"add_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(128, 256)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.False(t, modified, "operand rank straddles the merged dims")
}

func TestReshapeThroughMatMul(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(2, 128, 768))
	w, err := tensor.NewRaw(tensor.Shape{768, 64}, tensor.Float32)
	require.NoError(t, err)
	b.Initializer("w", w)
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 64)
	b.NamedNode("mm", graph.OpMatMul, []string{x, "w"}, []string{"mm_out"}, nil).
		Shape("mm_out", graph.ShapeOf(2, 128, 64))
	b.NamedNode("merge", graph.OpReshape, []string{"mm_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(256, 64)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	assertCensus(t, g, map[graph.OpKind]int{graph.OpReshape: 1, graph.OpMatMul: 1})

	// Flattening the stacked rows commutes with a rank-2 contraction.
	moved := soleNode(t, g, graph.OpReshape)
	assert.Equal(t, "x", moved.Input(0))
	assert.Equal(t, []int64{-1, 768}, mustInitializer(t, g, moved.Input(1)))
	assert.True(t, graph.ShapeOf(256, 768).Equal(mustShape(t, g, moved.Output(0))))

	mm, ok := g.Node("mm")
	require.True(t, ok)
	assert.Equal(t, moved.Output(0), mm.Input(0))
	assert.Equal(t, "w", mm.Input(1))
	assert.True(t, graph.ShapeOf(256, 64).Equal(mustShape(t, g, "mm_out")))
	assert.Equal(t, []string{"mm_out"}, g.Outputs())
}

func TestReshapeRejectsBatchedMatMul(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(2, 128, 768))
	y := b.Input("y", tensor.Float32, graph.ShapeOf(2, 768, 64))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 64)
	b.NamedNode("mm", graph.OpMatMul, []string{x, y}, []string{"mm_out"}, nil).
		Shape("mm_out", graph.ShapeOf(2, 128, 64))
	b.NamedNode("merge", graph.OpReshape, []string{"mm_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(256, 64)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.False(t, modified, "a batched right operand pairs rows with batches")
}

func TestReshapeThroughLayerNorm(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(2, 128, 768))
	scale := b.Input("scale", tensor.Float32, graph.ShapeOf(768))
	bias := b.Input("bias", tensor.Float32, graph.ShapeOf(768))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 768)
	b.NamedNode("ln", graph.OpLayerNormalization,
		[]string{x, scale, bias}, []string{"ln_out"},
		graph.Attributes{"axis": graph.IntAttr(-1)}).
		Shape("ln_out", graph.ShapeOf(2, 128, 768))
	b.NamedNode("merge", graph.OpReshape, []string{"ln_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(256, 768)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	moved := soleNode(t, g, graph.OpReshape)
	assert.Equal(t, "x", moved.Input(0))

	ln, ok := g.Node("ln")
	require.True(t, ok)
	assert.Equal(t, moved.Output(0), ln.Input(0))
	assert.Equal(t, "scale", ln.Input(1))
	assert.Equal(t, "bias", ln.Input(2))
	assert.Equal(t, int64(-1), ln.AttrInt("axis", 0), "negative axis needs no shift")
	assert.True(t, graph.ShapeOf(256, 768).Equal(mustShape(t, g, "ln_out")))
	assert.Equal(t, []string{"ln_out"}, g.Outputs())
}

func TestReshapeRejectsLayerNormAcrossMergedDims(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(2, 128, 768))
	scale := b.Input("scale", tensor.Float32, graph.ShapeOf(128, 768))
	bias := b.Input("bias", tensor.Float32, graph.ShapeOf(128, 768))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 768)
	b.NamedNode("ln", graph.OpLayerNormalization,
		[]string{x, scale, bias}, []string{"ln_out"},
		graph.Attributes{"axis": graph.IntAttr(1)}).
		Shape("ln_out", graph.ShapeOf(2, 128, 768))
	b.NamedNode("merge", graph.OpReshape, []string{"ln_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(256, 768)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.False(t, modified, "normalization spans a merged dim")
}

func TestReshapeAdjustsLayerNormAxis(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(2, 128, 768))
	scale := b.Input("scale", tensor.Float32, graph.ShapeOf(768))
	bias := b.Input("bias", tensor.Float32, graph.ShapeOf(768))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 768)
	b.NamedNode("ln", graph.OpLayerNormalization,
		[]string{x, scale, bias}, []string{"ln_out"},
		graph.Attributes{"axis": graph.IntAttr(2)}).
		Shape("ln_out", graph.ShapeOf(2, 128, 768))
	b.NamedNode("merge", graph.OpReshape, []string{"ln_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(256, 768)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	ln, ok := g.Node("ln")
	require.True(t, ok)
	assert.Equal(t, int64(1), ln.AttrInt("axis", 0), "explicit axis shifts with the lost rank")
	assert.True(t, graph.ShapeOf(256, 768).Equal(mustShape(t, g, "ln_out")))
}

func castGeluMerge(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(4, 8, 16))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 16)
	b.NamedNode("cast", graph.OpCast, []string{x}, []string{"c_out"},
		graph.Attributes{"to": graph.IntAttr(int64(tensor.Float64))}).
		Shape("c_out", graph.ShapeOf(4, 8, 16))
	b.NamedNode("gelu", graph.OpGelu, []string{"c_out"}, []string{"g_out"}, nil).
		Shape("g_out", graph.ShapeOf(4, 8, 16))
	b.NamedNode("merge", graph.OpReshape, []string{"g_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(32, 16)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestReshapeClimbsPassthroughChain(t *testing.T) {
	g := castGeluMerge(t)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	assertCensus(t, g, map[graph.OpKind]int{
		graph.OpReshape: 1,
		graph.OpCast:    1,
		graph.OpGelu:    1,
	})

	moved := soleNode(t, g, graph.OpReshape)
	assert.Equal(t, "x", moved.Input(0))
	assert.Equal(t, []int64{-1, 16}, mustInitializer(t, g, moved.Input(1)))
	assert.True(t, graph.ShapeOf(32, 16).Equal(mustShape(t, g, "c_out")))
	assert.True(t, graph.ShapeOf(32, 16).Equal(mustShape(t, g, "g_out")))
	assert.Equal(t, []string{"g_out"}, g.Outputs())
}

func TestReshapeHonorsHopBudget(t *testing.T) {
	g := castGeluMerge(t)

	modified, err := NewUpStreamReshape(WithMaxHops(1)).Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	moved := soleNode(t, g, graph.OpReshape)
	assert.Equal(t, "c_out", moved.Input(0), "budget pins the clone below the Cast")
}

func TestReshapeComposesWithReshape(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(2, 3, 4, 5))
	c1 := b.Int64Initializer("c1", tensor.Shape{3}, 6, 4, 5)
	c2 := b.Int64Initializer("c2", tensor.Shape{2}, -1, 5)
	b.NamedNode("r1", graph.OpReshape, []string{x, c1}, []string{"mid"}, nil).
		Shape("mid", graph.ShapeOf(6, 4, 5))
	b.NamedNode("merge", graph.OpReshape, []string{"mid", c2}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(24, 5)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	tr := NewUpStreamReshape()
	modified, err := tr.Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	// The two reshapes compose into the surviving one; no clone appears.
	assertCensus(t, g, map[graph.OpKind]int{graph.OpReshape: 1})

	r1, ok := g.Node("r1")
	require.True(t, ok)
	assert.Equal(t, "x", r1.Input(0))
	assert.Equal(t, "c1_updated", r1.Input(1))
	assert.Equal(t, []int64{24, 5}, mustInitializer(t, g, "c1_updated"))
	_, ok = g.Initializer("c1")
	assert.False(t, ok)
	_, ok = g.Initializer("c2")
	assert.False(t, ok)

	assert.Equal(t, []string{"mid"}, g.Outputs())
	assert.True(t, graph.ShapeOf(24, 5).Equal(mustShape(t, g, "mid")))

	modified, err = tr.Apply(g, nil)
	require.NoError(t, err)
	assert.False(t, modified, "composed target no longer merges two dims")
}

func TestReshapeThroughSqueeze(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(4, 32, 1, 256))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 256)
	b.NamedNode("sq", graph.OpSqueeze, []string{x}, []string{"s_out"},
		graph.Attributes{"axes": graph.IntsAttr(2)}).
		Shape("s_out", graph.ShapeOf(4, 32, 256))
	b.NamedNode("merge", graph.OpReshape, []string{"s_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(128, 256)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	assertCensus(t, g, map[graph.OpKind]int{graph.OpReshape: 1, graph.OpSqueeze: 1})

	moved := soleNode(t, g, graph.OpReshape)
	assert.Equal(t, "x", moved.Input(0))
	assert.Equal(t, []int64{-1, 1, 256}, mustInitializer(t, g, moved.Input(1)))
	assert.True(t, graph.ShapeOf(128, 1, 256).Equal(mustShape(t, g, moved.Output(0))))

	sq := soleNode(t, g, graph.OpSqueeze)
	assert.Equal(t, []int64{1}, sq.AttrInts("axes"))
	assert.True(t, graph.ShapeOf(128, 256).Equal(mustShape(t, g, "s_out")))
}

func TestReshapeRejectsSqueezeInMergedDims(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(1, 4, 32, 256))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 256)
	b.NamedNode("sq", graph.OpSqueeze, []string{x}, []string{"s_out"},
		graph.Attributes{"axes": graph.IntsAttr(0)}).
		Shape("s_out", graph.ShapeOf(4, 32, 256))
	b.NamedNode("merge", graph.OpReshape, []string{"s_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(128, 256)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.False(t, modified, "squeezed axis sits inside the merged dims")
}

func TestReshapeThroughUnsqueeze(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(4, 32, 256))
	c := b.Int64Initializer("c", tensor.Shape{3}, -1, 1, 256)
	b.NamedNode("unsq", graph.OpUnsqueeze, []string{x}, []string{"u_out"},
		graph.Attributes{"axes": graph.IntsAttr(2)}).
		Shape("u_out", graph.ShapeOf(4, 32, 1, 256))
	b.NamedNode("merge", graph.OpReshape, []string{"u_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(128, 1, 256)).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified)

	assertCensus(t, g, map[graph.OpKind]int{graph.OpReshape: 1, graph.OpUnsqueeze: 1})

	moved := soleNode(t, g, graph.OpReshape)
	assert.Equal(t, "x", moved.Input(0))
	assert.Equal(t, []int64{-1, 256}, mustInitializer(t, g, moved.Input(1)))
	assert.True(t, graph.ShapeOf(128, 256).Equal(mustShape(t, g, moved.Output(0))))

	unsq := soleNode(t, g, graph.OpUnsqueeze)
	assert.Equal(t, []int64{1}, unsq.AttrInts("axes"))
	assert.True(t, graph.ShapeOf(128, 1, 256).Equal(mustShape(t, g, "u_out")))
}

func TestReshapeMergesSymbolicLeadingDim(t *testing.T) {
	batch := graph.SymbolicDim("batch")
	b := graph.NewBuilder("g")
	a := b.Input("a", tensor.Float32, graph.Shape{batch, graph.FixedDim(32), graph.FixedDim(256)})
	bias := b.Input("bias", tensor.Float32, graph.ShapeOf(256))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 256)
	b.NamedNode("add", graph.OpAdd, []string{a, bias}, []string{"add_out"}, nil).
		Shape("add_out", graph.Shape{batch, graph.FixedDim(32), graph.FixedDim(256)})
	b.NamedNode("merge", graph.OpReshape, []string{"add_out", c}, []string{"out"}, nil).
		Shape("out", graph.Shape{graph.SymbolicDim("flat"), graph.FixedDim(256)}).
		Output("out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.True(t, modified, "symbolic leading dim still merges via -1")

	moved := soleNode(t, g, graph.OpReshape)
	assert.Equal(t, "a", moved.Input(0))
	assert.Equal(t, []int64{-1, 256}, mustInitializer(t, g, moved.Input(1)))

	add, ok := g.Node("add")
	require.True(t, ok)
	assert.Equal(t, moved.Output(0), add.Input(0))
	want := graph.Shape{graph.SymbolicDim("flat"), graph.FixedDim(256)}
	assert.True(t, want.Equal(mustShape(t, g, "add_out")))
}

func TestReshapeStopsAtFanOut(t *testing.T) {
	b := graph.NewBuilder("g")
	x := b.Input("x", tensor.Float32, graph.ShapeOf(4, 8, 16))
	c := b.Int64Initializer("c", tensor.Shape{2}, -1, 16)
	b.NamedNode("relu", graph.OpRelu, []string{x}, []string{"r_out"}, nil).
		Shape("r_out", graph.ShapeOf(4, 8, 16))
	b.NamedNode("merge", graph.OpReshape, []string{"r_out", c}, []string{"out"}, nil).
		Shape("out", graph.ShapeOf(32, 16)).
		Output("out")
	b.NamedNode("tanh", graph.OpTanh, []string{"r_out"}, []string{"t_out"}, nil).
		Output("t_out")
	g, err := b.Build()
	require.NoError(t, err)

	modified, err := NewUpStreamReshape().Apply(g, nil)
	require.NoError(t, err)
	assert.False(t, modified, "fanned-out producer output pins the mover")
}
