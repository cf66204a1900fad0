// Package report collects alias verdicts of a function into tables and
// prints them.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/BarrensZeppelin/alias"
	"github.com/BarrensZeppelin/alias/internal/slices"
	"github.com/BarrensZeppelin/alias/ir"
	"github.com/logrusorgru/aurora"
)

type Row struct {
	First, Second string
	Verdict       alias.Verdict
}

// Table holds the verdicts of the instruction pairs of one function.
type Table struct {
	Title string
	Rows  []Row
}

// Counts returns the number of rows per verdict.
func (t *Table) Counts() map[alias.Verdict]int {
	res := make(map[alias.Verdict]int)
	for _, r := range t.Rows {
		res[r.Verdict]++
	}
	return res
}

// Collect builds the table of every pair of memory accesses of the
// analysis' graph. With values set, pairs of reference values are added.
// describe renders an instruction; nil uses its String method.
func Collect(a *alias.Analysis, describe func(*ir.Inst) string, values bool) *Table {
	if describe == nil {
		describe = (*ir.Inst).String
	}

	insts := a.Graph().Instructions()
	accesses := slices.Filter(insts, func(inst *ir.Inst) bool { return inst.Op.IsMemoryAccess() })
	var refs []*ir.Inst
	if values {
		refs = slices.Filter(insts, func(inst *ir.Inst) bool {
			return !inst.Op.IsMemoryAccess() && inst.Op.HasResult() && inst.Type == ir.TypeReference
		})
	}

	t := &Table{Title: a.Graph().Name}
	for i, x := range accesses {
		for _, y := range accesses[i+1:] {
			t.Rows = append(t.Rows, Row{describe(x), describe(y), a.CheckInstAlias(x, y)})
		}
	}
	for i, x := range refs {
		for _, y := range refs[i+1:] {
			t.Rows = append(t.Rows, Row{describe(x), describe(y), a.CheckRefAlias(x, y)})
		}
	}
	return t
}

type Printer struct {
	w  io.Writer
	au aurora.Aurora
	// Number of tables with rows printed so far.
	printed int
}

// NewPrinter returns a printer writing to w, colouring verdicts if color
// is set.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, au: aurora.NewAurora(color)}
}

func (p *Printer) verdict(v alias.Verdict) aurora.Value {
	switch v {
	case alias.MustAlias:
		return p.au.Green(v)
	case alias.MayAlias:
		return p.au.Yellow(v)
	default:
		return p.au.Red(v)
	}
}

// Print writes the rows of t under its title. Tables without rows are
// skipped.
func (p *Printer) Print(t *Table) error {
	if len(t.Rows) == 0 {
		return nil
	}
	p.printed++
	if _, err := fmt.Fprintf(p.w, "%s\n", p.au.Bold(t.Title)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "\t%s\t%s\t%s\n", r.First, r.Second, p.verdict(r.Verdict))
	}
	return tw.Flush()
}

// Summary prints the verdict counts over all tables, along with how many
// functions were analyzed and how many of them were printed.
func (p *Printer) Summary(tables []*Table) error {
	var total [3]int
	for _, t := range tables {
		for v, n := range t.Counts() {
			total[v] += n
		}
	}
	_, err := fmt.Fprintf(p.w, "%d functions analyzed, %d reported: %d %s, %d %s, %d %s\n", len(tables), p.printed,
		total[alias.NoAlias], p.verdict(alias.NoAlias),
		total[alias.MayAlias], p.verdict(alias.MayAlias),
		total[alias.MustAlias], p.verdict(alias.MustAlias))
	return err
}
