package ir

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalysis struct {
	valid       bool
	runs        int
	invalidated int
}

func (f *fakeAnalysis) Name() string  { return "fake" }
func (f *fakeAnalysis) Run()          { f.valid = true; f.runs++ }
func (f *fakeAnalysis) Invalidate()   { f.valid = false; f.invalidated++ }
func (f *fakeAnalysis) IsValid() bool { return f.valid }

func TestAnalysisLifecycle(t *testing.T) {
	b := NewBuilder("f")
	g := b.Graph()
	fa := &fakeAnalysis{}
	g.Register(fa)
	g.Register(fa)
	assert.Same(t, fa, g.Analysis("fake"))
	assert.Nil(t, g.Analysis("other"))

	fa.Run()
	v := g.Version()
	x := b.NewObject(1)
	assert.False(t, fa.IsValid())
	assert.Equal(t, 1, fa.invalidated, "registered once")
	assert.Greater(t, g.Version(), v)

	g.Unregister(fa)
	fa.Run()
	require.NoError(t, g.Remove(x))
	assert.True(t, fa.IsValid(), "unregistered analyses are not notified")
}

func TestMutation(t *testing.T) {
	b := NewBuilder("f")
	g := b.Graph()
	p := b.Param(TypeReference)
	q := b.Param(TypeReference)
	nc := b.NullCheck(p)
	ret := b.Return(nc)

	assert.Equal(t, []*Inst{nc}, p.Users())
	assert.Equal(t, 2, nc.Index())

	err := g.Remove(nc)
	assert.True(t, errors.Is(err, ErrHasUsers))

	g.SetInput(nc, 0, q)
	assert.Empty(t, p.Users())
	assert.Equal(t, []*Inst{nc}, q.Users())

	g.ReplaceUses(nc, q)
	assert.Same(t, q, ret.Input(0))
	assert.Empty(t, nc.Users())
	require.NoError(t, g.Remove(nc))
	assert.Nil(t, nc.Block())
	assert.Equal(t, -1, nc.Index())
	assert.Equal(t, []*Inst{ret}, q.Users())

	c := g.InsertBefore(ret, g.NewInst(OpCall, TypeVoid, p))
	assert.Equal(t, 2, c.Index())
	assert.Panics(t, func() { g.Append(g.Entry(), c) })

	g.AddInput(c, q)
	assert.Equal(t, 2, c.NumInputs())
	require.NoError(t, g.Verify())
}

func TestRemoveEdge(t *testing.T) {
	b := NewBuilder("f")
	g := b.Graph()
	entry := b.Block()
	x, y := b.Param(TypeReference), b.Param(TypeReference)
	l := b.NewBlock(entry)
	r := b.NewBlock(entry)
	join := b.NewBlock(l, r)
	phi := b.Phi(TypeReference, x, y)
	require.NoError(t, g.Verify())

	g.RemoveEdge(l, join)
	assert.Equal(t, []*Block{r}, join.Preds())
	assert.Empty(t, l.Succs())
	assert.Equal(t, []*Inst{y}, phi.Inputs())
	assert.Empty(t, x.Users())
	require.NoError(t, g.Verify())
}

func TestVerify(t *testing.T) {
	b := NewBuilder("f")
	g := b.Graph()
	entry := b.Block()
	x := b.Param(TypeReference)
	b.NewBlock(entry)
	phi := b.Phi(TypeReference, x)
	require.NoError(t, g.Verify())

	g.AddInput(phi, x)
	detached := g.NewInst(OpParameter, TypeReference)
	b.NullCheck(detached)

	err := g.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 operands for 1 predecessors")
	assert.Contains(t, err.Error(), "is not in the graph")
}

func TestPrint(t *testing.T) {
	b := NewBuilder("f")
	p := b.Param(TypeReference)
	ld := b.LoadObject(p, FieldRef{ID: 1, Owner: 2, Name: "x"}, TypeInt32)
	ld.Volatile = true
	b.StoreArrayImm(p, 3, b.Const(7), TypeInt64)
	b.LoadConstPool(4)
	b.LoadProperty(p, Property{Mode: PropByName, Name: "k"}, nil, TypeAny)
	b.Return(nil)

	var buf bytes.Buffer
	b.Graph().Print(&buf)
	assert.Equal(t, `f:
b0: preds []
	v1 = Parameter.ref
	v2 = LoadObject.i32 volatile v1 T2.x
	v3 = Constant.i64 [7]
	StoreArrayI.i64 v1, v3 [3]
	v5 = LoadConstPool.ref #4
	v6 = LoadProperty.any v1 .k
	Return
`, buf.String())
}
