// Package aliasanalyzer exposes the alias analysis of every source function
// as a go/analysis pass.
//
// Other analyzers may require Analyzer and use its *Result. On its own the
// analyzer reports loads that repeat an earlier load of the same location
// in the same block with nothing in between that may write it.
package aliasanalyzer

import (
	"go/token"
	"reflect"

	"github.com/BarrensZeppelin/alias"
	"github.com/BarrensZeppelin/alias/goir"
	"github.com/BarrensZeppelin/alias/internal/slices"
	"github.com/BarrensZeppelin/alias/ir"
	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/ssa"
)

var Analyzer = &analysis.Analyzer{
	Name:       "alias",
	Doc:        "computes alias information for memory accesses and reports redundant loads",
	Requires:   []*analysis.Analyzer{buildssa.Analyzer},
	Run:        run,
	ResultType: reflect.TypeOf((*Result)(nil)),
}

// Result holds the lowered graph and the alias analysis of every source
// function of the package.
type Result struct {
	Funcs map[*ssa.Function]*Func
}

type Func struct {
	Graph   *ir.Graph
	Mapping *goir.Mapping
	Alias   *alias.Analysis
}

func run(pass *analysis.Pass) (any, error) {
	ssaInfo := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)
	log := logrus.WithField("package", pass.Pkg.Path())

	res := &Result{Funcs: make(map[*ssa.Function]*Func, len(ssaInfo.SrcFuncs))}
	tab := goir.NewTables()
	for _, fn := range ssaInfo.SrcFuncs {
		g, m, err := goir.Lower(fn, tab)
		if err != nil {
			return nil, err
		}
		f := &Func{
			Graph:   g,
			Mapping: m,
			Alias:   alias.New(g, alias.Config{Logger: log}),
		}
		res.Funcs[fn] = f
		reportRedundantLoads(pass, f)
	}
	return res, nil
}

// reportRedundantLoads scans every block keeping the loads whose value is
// still known. Calls and opaque instructions forget everything; a store
// forgets the loads it may alias.
func reportRedundantLoads(pass *analysis.Pass, f *Func) {
	for _, b := range f.Graph.Blocks() {
		var avail []*ir.Inst
		for _, inst := range b.Insts() {
			switch op := inst.Op; {
			case op == ir.OpCall, op == ir.OpOpaque:
				avail = avail[:0]

			case op.IsStore():
				avail = slices.Filter(avail, func(l *ir.Inst) bool {
					return f.Alias.CheckInstAlias(inst, l) == alias.NoAlias
				})

			case op.IsLoad():
				if prev := findLoad(f.Alias, avail, inst); prev != nil {
					report(pass, f.Mapping, prev, inst)
					continue
				}
				avail = append(avail, inst)
			}
		}
	}
}

func findLoad(a *alias.Analysis, avail []*ir.Inst, load *ir.Inst) *ir.Inst {
	for _, prev := range avail {
		if prev.Type == load.Type && a.CheckInstAlias(prev, load) == alias.MustAlias {
			return prev
		}
	}
	return nil
}

func report(pass *analysis.Pass, m *goir.Mapping, prev, load *ir.Inst) {
	pos, prevPos := position(m.Source(load)), position(m.Source(prev))
	if !pos.IsValid() || !prevPos.IsValid() {
		return
	}
	pass.Reportf(pos, "redundant load of the location read at line %d", pass.Fset.Position(prevPos).Line)
}

// position returns the source position of a load, falling back to the
// address it reads through.
func position(instr ssa.Instruction) token.Pos {
	if instr == nil {
		return token.NoPos
	}
	if pos := instr.Pos(); pos.IsValid() {
		return pos
	}
	if load, ok := instr.(*ssa.UnOp); ok {
		return load.X.Pos()
	}
	return token.NoPos
}
