package alias_test

import (
	"fmt"
	"testing"

	"github.com/BarrensZeppelin/alias"
	"github.com/BarrensZeppelin/alias/ir"
)

var blackHole any

// chainGraph builds a function with n diamonds. Every diamond allocates an
// array on one side, loads from a parameter on the other, merges the two and
// stores into the merge.
func chainGraph(n int) *ir.Graph {
	b := ir.NewBuilder(fmt.Sprintf("chain%d", n))
	p := b.Param(ref)
	i := b.Param(ir.TypeInt64)
	cur := b.Block()
	for k := 0; k < n; k++ {
		b.NewBlock(cur)
		x := b.NewArray(b.Const(int64(k+1)), 0)
		b.StoreArray(x, i, p, ref)
		if k%8 == 0 {
			b.Call(ir.TypeVoid, x)
		}
		left := b.Block()
		b.NewBlock(cur)
		y := b.LoadArrayImm(p, int64(k), ref)
		right := b.Block()
		cur = b.NewBlock(left, right)
		phi := b.Phi(ref, x, y)
		b.StoreArrayImm(phi, int64(k), b.Const(1), ir.TypeInt64)
	}
	b.Return(nil)
	return b.Graph()
}

func BenchmarkBuild(b *testing.B) {
	for _, n := range [...]int{10, 100, 1000} {
		g := chainGraph(n)
		b.Run(fmt.Sprintf("Diamonds=%d", n), func(b *testing.B) {
			a := alias.New(g, alias.Config{})
			for k := 0; k < b.N; k++ {
				a.Invalidate()
				a.Run()
			}
			blackHole = a
		})
	}
}

func BenchmarkCheckInstAlias(b *testing.B) {
	g := chainGraph(200)
	a := alias.New(g, alias.Config{})
	var accesses []*ir.Inst
	for _, inst := range g.Instructions() {
		if inst.Op.IsMemoryAccess() {
			accesses = append(accesses, inst)
		}
	}

	b.ResetTimer()
	var res alias.Verdict
	for k := 0; k < b.N; k++ {
		x := accesses[k%len(accesses)]
		y := accesses[(k*7+3)%len(accesses)]
		res = a.CheckInstAlias(x, y)
	}
	blackHole = res
}
