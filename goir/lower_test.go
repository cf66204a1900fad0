package goir_test

import (
	"errors"
	"testing"

	"github.com/BarrensZeppelin/alias"
	"github.com/BarrensZeppelin/alias/goir"
	"github.com/BarrensZeppelin/alias/ir"
	"github.com/BarrensZeppelin/alias/pkgutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
)

const source = `
	package main

	type T struct {
		a, b int
		next *T
	}

	type Inner struct{ a, b int }
	type Outer struct {
		in Inner
		x  int
	}

	var sink *T

	func fields(p *T) int {
		p.a = 1
		p.b = 2
		return p.a
	}

	func local(p *T) int {
		t := new(T)
		t.a = 1
		p.a = 2
		return t.a
	}

	func escapes(p *T) int {
		t := new(T)
		t.a = 1
		sink = t
		p.a = 2
		return t.a
	}

	func elems(s []int, i int) int {
		s[0] = 1
		s[1] = 2
		s[i] = 3
		return s[0]
	}

	func maps(m map[string]int, k string) int {
		m["a"] = 1
		m["b"] = 2
		m[k] = 3
		return m["a"]
	}

	func nested(o *Outer) int {
		o.in.a = 1
		o.in.b = 2
		return o.in.a
	}

	func addr(o *Outer) int {
		p := &o.x
		*p = 1
		o.x = 2
		return *p
	}

	func taken(o *Outer, f func(*int)) int {
		o.x = 1
		f(&o.x)
		return o.x
	}

	func loop(n int) *T {
		var last *T
		for i := 0; i < n; i++ {
			last = &T{a: i, next: last}
		}
		return last
	}

	func recovers() (err error) {
		defer func() { recover() }()
		panic("x")
	}

	func boxes(x interface{}) *T {
		if t, ok := x.(*T); ok {
			return t
		}
		return x.(*T)
	}

	func derefs(s []int, p *int) int {
		x := s[0]
		*p = 2
		return x + s[0]
	}

	func main() {}
`

func buildPackage(t *testing.T) *ssa.Package {
	t.Helper()
	pkgs, err := pkgutil.LoadPackagesFromSource(source)
	require.NoError(t, err)

	_, spkgs := pkgutil.BuildSSA(pkgs, ssa.SanityCheckFunctions)
	require.NotNil(t, spkgs[0])
	return spkgs[0]
}

func lower(t *testing.T, pkg *ssa.Package, name string) (*ir.Graph, *goir.Mapping) {
	t.Helper()
	fn := pkg.Func(name)
	require.NotNil(t, fn, name)

	g, m, err := goir.Lower(fn, goir.NewTables())
	require.NoError(t, err)
	require.NoError(t, g.Verify())
	return g, m
}

func accesses(g *ir.Graph) []*ir.Inst {
	var res []*ir.Inst
	for _, inst := range g.Instructions() {
		if inst.Op.IsMemoryAccess() {
			res = append(res, inst)
		}
	}
	return res
}

func TestLowerAliasing(t *testing.T) {
	pkg := buildPackage(t)

	type pair struct {
		i, j    int
		verdict alias.Verdict
	}

	tests := []struct {
		fn       string
		accesses int
		pairs    []pair
	}{
		{"fields", 3, []pair{
			{0, 1, alias.NoAlias},
			{0, 2, alias.MustAlias},
			{1, 2, alias.NoAlias},
		}},
		{"local", 3, []pair{
			{0, 1, alias.NoAlias},
			{0, 2, alias.MustAlias},
			{1, 2, alias.NoAlias},
		}},
		{"escapes", 4, []pair{
			{0, 2, alias.NoAlias},
			{2, 3, alias.MayAlias},
			{0, 3, alias.MustAlias},
		}},
		{"elems", 4, []pair{
			{0, 1, alias.NoAlias},
			{0, 2, alias.MayAlias},
			{0, 3, alias.MustAlias},
		}},
		{"maps", 4, []pair{
			{0, 1, alias.NoAlias},
			{0, 2, alias.MayAlias},
			{0, 3, alias.MustAlias},
		}},
		{"nested", 3, []pair{
			{0, 1, alias.NoAlias},
			{0, 2, alias.MustAlias},
		}},
		{"addr", 3, []pair{
			{0, 1, alias.MustAlias},
			{1, 2, alias.MustAlias},
		}},
		{"derefs", 2, []pair{
			{0, 1, alias.MustAlias},
		}},
	}

	for _, test := range tests {
		t.Run(test.fn, func(t *testing.T) {
			g, _ := lower(t, pkg, test.fn)
			acc := accesses(g)
			require.Len(t, acc, test.accesses)

			a := alias.New(g, alias.Config{})
			for _, p := range test.pairs {
				assert.Equal(t, p.verdict, a.CheckInstAlias(acc[p.i], acc[p.j]),
					"%s vs %s", acc[p.i], acc[p.j])
			}
		})
	}
}

func TestLowerTakenAddress(t *testing.T) {
	pkg := buildPackage(t)
	g, _ := lower(t, pkg, "taken")

	var stores, loads []*ir.Inst
	var opaque *ir.Inst
	for _, inst := range g.Instructions() {
		switch {
		case inst.Op.IsStore():
			stores = append(stores, inst)
		case inst.Op.IsLoad():
			loads = append(loads, inst)
		case inst.Op == ir.OpOpaque && inst.NumInputs() == 1:
			opaque = inst
		}
	}
	require.Len(t, stores, 1)
	require.Len(t, loads, 1)
	require.NotNil(t, opaque, "the address passed to f is materialized")

	a := alias.New(g, alias.Config{})
	assert.Equal(t, alias.MustAlias, a.CheckInstAlias(stores[0], loads[0]))
	assert.Equal(t, alias.OriginParameter, a.Classify(stores[0]).Origin.Kind)
	assert.Equal(t, alias.OriginUnknown, a.Classify(opaque).Origin.Kind)
}

func TestLowerDereference(t *testing.T) {
	pkg := buildPackage(t)
	g, m := lower(t, pkg, "derefs")
	p := m.Value(pkg.Func("derefs").Params[1])
	require.Equal(t, ir.OpParameter, p.Op)

	// p may point into s, so the store through it is not a field access.
	var through *ir.Inst
	for _, inst := range g.Instructions() {
		if inst.Op.IsMemoryAccess() {
			assert.NotSame(t, p, inst.Input(0), "%s", inst)
		}
		if inst.Op == ir.OpOpaque && inst.NumInputs() == 2 && inst.Input(0) == p {
			through = inst
		}
	}
	require.NotNil(t, through)

	a := alias.New(g, alias.Config{})
	for _, inst := range accesses(g) {
		assert.Equal(t, alias.ArrayElement, a.Classify(inst).Kind, "%s", inst)
	}
}

func TestLowerControlFlow(t *testing.T) {
	pkg := buildPackage(t)

	t.Run("Loop", func(t *testing.T) {
		g, m := lower(t, pkg, "loop")
		fn := pkg.Func("loop")
		assert.Equal(t, ir.OpParameter, m.Value(fn.Params[0]).Op)

		var phis, allocs int
		for _, inst := range g.Instructions() {
			switch inst.Op {
			case ir.OpPhi:
				phis++
				assert.Equal(t, len(inst.Block().Preds()), inst.NumInputs())
			case ir.OpNewObject:
				allocs++
			}
		}
		assert.Equal(t, 2, phis)
		assert.Equal(t, 1, allocs)

		// The allocation is stored into the next one and returned.
		a := alias.New(g, alias.Config{})
		for _, inst := range g.Instructions() {
			if inst.Op == ir.OpNewObject {
				info, ok := a.EscapeInfo(inst)
				require.True(t, ok)
				assert.True(t, info.Escaped)
			}
		}
	})

	t.Run("Recover", func(t *testing.T) {
		g, _ := lower(t, pkg, "recovers")
		fn := pkg.Func("recovers")
		require.NotNil(t, fn.Recover)

		var throw *ir.Inst
		for _, inst := range g.Instructions() {
			if inst.Op == ir.OpThrow {
				throw = inst
			}
		}
		require.NotNil(t, throw)

		var reached bool
		for _, inst := range g.Instructions() {
			if inst.Op == ir.OpReturn && g.Reaches(throw, inst) {
				reached = true
			}
		}
		assert.True(t, reached, "a panic resumes in the recover block")
	})

	t.Run("TypeAssert", func(t *testing.T) {
		g, _ := lower(t, pkg, "boxes")
		var refines int
		for _, inst := range g.Instructions() {
			if inst.Op == ir.OpRefineType {
				refines++
				assert.Equal(t, ir.OpParameter, inst.Input(0).Op)
			}
		}
		assert.Equal(t, 1, refines)
	})
}

func TestLowerMapping(t *testing.T) {
	pkg := buildPackage(t)
	fn := pkg.Func("fields")
	g, m := lower(t, pkg, "fields")

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			inst := m.Instr(instr)
			if inst == nil {
				continue
			}
			assert.Equal(t, instr, m.Source(inst))
			assert.Same(t, g, inst.Block().Graph())
		}
	}
	for _, inst := range g.Entry().Insts() {
		assert.Nil(t, m.Source(inst))
	}
}

func TestLowerNoBody(t *testing.T) {
	_, _, err := goir.Lower(new(ssa.Function), goir.NewTables())
	assert.True(t, errors.Is(err, goir.ErrNoBody))
}
