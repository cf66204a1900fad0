package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// diamond builds entry -> {l, r} -> join -> loop <-> loop -> exit.
func diamond() (g *Graph, entry, l, r, join, loop, exit *Block) {
	b := NewBuilder("diamond")
	g = b.Graph()
	entry = b.Block()
	l = b.NewBlock(entry)
	r = b.NewBlock(entry)
	join = b.NewBlock(l, r)
	loop = b.NewBlock(join)
	g.AddEdge(loop, loop)
	exit = b.NewBlock(loop)
	return
}

func TestDominators(t *testing.T) {
	g, entry, l, r, join, loop, exit := diamond()
	dead := g.NewBlock()

	assert.Nil(t, entry.Idom())
	assert.Same(t, entry, l.Idom())
	assert.Same(t, entry, r.Idom())
	assert.Same(t, entry, join.Idom())
	assert.Same(t, join, loop.Idom())
	assert.Same(t, loop, exit.Idom())
	assert.Nil(t, dead.Idom())

	assert.True(t, entry.Dominates(exit))
	assert.True(t, join.Dominates(join))
	assert.False(t, l.Dominates(join))
	assert.False(t, exit.Dominates(loop))
	assert.False(t, entry.Dominates(dead))
}

func TestInstDominance(t *testing.T) {
	b := NewBuilder("f")
	g := b.Graph()
	entry := b.Block()
	x := b.Param(TypeReference)
	y := b.NullCheck(x)
	l := b.NewBlock(entry)
	z := b.NullCheck(y)
	b.NewBlock(entry)
	w := b.NullCheck(x)

	assert.True(t, g.Dominates(x, y))
	assert.True(t, g.Dominates(x, x))
	assert.False(t, g.Dominates(y, x))
	assert.True(t, g.Dominates(y, z))
	assert.False(t, g.Dominates(z, w))
	assert.Same(t, entry, l.Idom())
}

func TestReaches(t *testing.T) {
	b := NewBuilder("f")
	g := b.Graph()
	entry := b.Block()
	a1 := b.Param(TypeReference)
	a2 := b.NullCheck(a1)
	l := b.NewBlock(entry)
	l1 := b.NullCheck(a1)
	l2 := b.NullCheck(a1)
	b.NewBlock(entry)
	r1 := b.NullCheck(a1)
	loop := b.NewBlock(l)
	g1 := b.NullCheck(a1)
	g2 := b.NullCheck(a1)
	g.AddEdge(loop, loop)

	assert.True(t, g.Reaches(a1, a2))
	assert.False(t, g.Reaches(a2, a1))
	assert.True(t, g.Reaches(a1, r1))
	assert.False(t, g.Reaches(l1, r1), "sibling blocks")
	assert.True(t, g.Reaches(l1, l2))
	assert.False(t, g.Reaches(l2, l1))
	assert.True(t, g.Reaches(g2, g1), "around the loop")
	assert.False(t, g.Reaches(a1, a1))

	// Caches are dropped on mutation.
	g.AddEdge(loop, entry)
	assert.True(t, g.Reaches(a2, a1))
}
