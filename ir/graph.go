package ir

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Analysis is a derived analysis over a graph. Registered analyses are
// invalidated synchronously whenever the graph structurally changes.
type Analysis interface {
	Name() string
	// Run (re)builds the analysis over the current graph.
	Run()
	// Invalidate marks the analysis stale.
	Invalidate()
	// IsValid reports whether the analysis is built over the current graph.
	IsValid() bool
}

// Block is a basic block.
type Block struct {
	id    int
	graph *Graph
	insts []*Inst
	preds []*Block
	succs []*Block

	// Catch marks the entry block of an exception handler.
	Catch bool
}

func (b *Block) ID() int         { return b.id }
func (b *Block) Graph() *Graph   { return b.graph }
func (b *Block) Insts() []*Inst  { return b.insts }
func (b *Block) Preds() []*Block { return b.preds }
func (b *Block) Succs() []*Block { return b.succs }
func (b *Block) String() string  { return fmt.Sprintf("b%d", b.id) }

// Idom returns the immediate dominator of b, or nil for the entry block and
// unreachable blocks.
func (b *Block) Idom() *Block { return b.graph.domTree().idom[b] }

// Dominates reports whether b dominates o. Every block dominates itself.
func (b *Block) Dominates(o *Block) bool { return b.graph.domTree().dominates(b, o) }

// Graph is the instruction graph of one compiled function.
type Graph struct {
	Name string
	// Hierarchy provides class hierarchy information; it may be nil.
	Hierarchy Hierarchy

	blocks   []*Block
	entry    *Block
	nextInst int
	version  uint64
	analyses []Analysis

	dom   *domTree
	reach *reachability
}

// NewGraph returns a graph containing only an empty entry block.
func NewGraph(name string) *Graph {
	g := &Graph{Name: name}
	g.entry = g.NewBlock()
	return g
}

func (g *Graph) Entry() *Block    { return g.entry }
func (g *Graph) Blocks() []*Block { return g.blocks }

// Version is incremented by every structural mutation.
func (g *Graph) Version() uint64 { return g.version }

// Instructions returns all instructions in block order.
func (g *Graph) Instructions() []*Inst {
	var res []*Inst
	for _, b := range g.blocks {
		res = append(res, b.insts...)
	}
	return res
}

// Register attaches a derived analysis to the graph. Registering the same
// analysis twice has no effect.
func (g *Graph) Register(a Analysis) {
	for _, other := range g.analyses {
		if other == a {
			return
		}
	}
	g.analyses = append(g.analyses, a)
}

// Unregister detaches a derived analysis from the graph.
func (g *Graph) Unregister(a Analysis) {
	for k, other := range g.analyses {
		if other == a {
			g.analyses = append(g.analyses[:k], g.analyses[k+1:]...)
			return
		}
	}
}

// Analysis returns the registered analysis with the given name, or nil.
func (g *Graph) Analysis(name string) Analysis {
	for _, a := range g.analyses {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// Changed records a structural change: cached dominance and reachability
// are dropped and every registered analysis is invalidated. The mutation
// methods call it; transformations that change instructions in place may
// call it directly.
func (g *Graph) Changed() {
	g.version++
	g.dom = nil
	g.reach = nil
	for _, a := range g.analyses {
		a.Invalidate()
	}
}

// NewBlock appends a new empty block to the graph.
func (g *Graph) NewBlock() *Block {
	b := &Block{id: len(g.blocks), graph: g}
	g.blocks = append(g.blocks, b)
	g.Changed()
	return b
}

// AddEdge adds a control flow edge. The new predecessor is appended, so phi
// operands of to must be appended in the same order.
func (g *Graph) AddEdge(from, to *Block) {
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
	g.Changed()
}

// RemoveEdge removes a control flow edge together with the corresponding
// operand of every phi in to.
func (g *Graph) RemoveEdge(from, to *Block) {
	k := -1
	for i, p := range to.preds {
		if p == from {
			k = i
			break
		}
	}
	if k < 0 {
		return
	}
	to.preds = append(to.preds[:k], to.preds[k+1:]...)
	for i, s := range from.succs {
		if s == to {
			from.succs = append(from.succs[:i], from.succs[i+1:]...)
			break
		}
	}
	for _, inst := range to.insts {
		if inst.Op == OpPhi && k < len(inst.inputs) {
			in := inst.inputs[k]
			inst.inputs = append(inst.inputs[:k], inst.inputs[k+1:]...)
			in.users = removeInst(in.users, inst)
		}
	}
	g.Changed()
}

// NewInst creates a detached instruction.
func (g *Graph) NewInst(op Opcode, typ Type, inputs ...*Inst) *Inst {
	g.nextInst++
	inst := &Inst{id: g.nextInst, Op: op, Type: typ}
	for _, in := range inputs {
		inst.inputs = append(inst.inputs, in)
		in.users = append(in.users, inst)
	}
	return inst
}

// Append appends a detached instruction to b.
func (g *Graph) Append(b *Block, inst *Inst) *Inst {
	if inst.block != nil {
		panic(fmt.Errorf("%s is already placed in %s", inst.Name(), inst.block))
	}
	inst.block = b
	b.insts = append(b.insts, inst)
	g.Changed()
	return inst
}

// InsertBefore places a detached instruction immediately before pos.
func (g *Graph) InsertBefore(pos, inst *Inst) *Inst {
	if inst.block != nil {
		panic(fmt.Errorf("%s is already placed in %s", inst.Name(), inst.block))
	}
	b := pos.block
	k := pos.Index()
	b.insts = append(b.insts, nil)
	copy(b.insts[k+1:], b.insts[k:])
	b.insts[k] = inst
	inst.block = b
	g.Changed()
	return inst
}

// ErrHasUsers is returned when removing an instruction that is still used.
var ErrHasUsers = errors.New("instruction still has users")

// Remove unlinks an unused instruction from its block and its operands.
func (g *Graph) Remove(inst *Inst) error {
	if len(inst.users) != 0 {
		return fmt.Errorf("removing %s: %w", inst.Name(), ErrHasUsers)
	}
	for _, in := range inst.inputs {
		in.users = removeInst(in.users, inst)
	}
	inst.inputs = nil
	if b := inst.block; b != nil {
		b.insts = removeInst(b.insts, inst)
		inst.block = nil
	}
	g.Changed()
	return nil
}

// SetInput replaces operand k of inst.
func (g *Graph) SetInput(inst *Inst, k int, v *Inst) {
	old := inst.inputs[k]
	if old == v {
		return
	}
	inst.inputs[k] = v
	old.users = removeInst(old.users, inst)
	v.users = append(v.users, inst)
	g.Changed()
}

// AddInput appends an operand to inst.
func (g *Graph) AddInput(inst *Inst, v *Inst) {
	inst.inputs = append(inst.inputs, v)
	v.users = append(v.users, inst)
	g.Changed()
}

// ReplaceUses makes every user of old use v instead.
func (g *Graph) ReplaceUses(old, v *Inst) {
	if old == v {
		return
	}
	for _, user := range old.users {
		for k, in := range user.inputs {
			if in == old {
				user.inputs[k] = v
			}
		}
		v.users = append(v.users, user)
	}
	old.users = nil
	g.Changed()
}

// Dominates reports whether a dominates b: a is in a dominating block, or
// precedes (or is) b within the same block.
func (g *Graph) Dominates(a, b *Inst) bool {
	if a.block == nil || b.block == nil {
		return false
	}
	if a.block == b.block {
		return g.reachInfo().position(a) <= g.reachInfo().position(b)
	}
	return a.block.Dominates(b.block)
}

// Verify checks the structural invariants of the graph.
func (g *Graph) Verify() error {
	if g.entry == nil || len(g.blocks) == 0 || g.blocks[0] != g.entry {
		return errors.New("graph has no entry block")
	}
	var errs []error
	placed := make(map[*Inst]bool)
	for _, b := range g.blocks {
		for _, inst := range b.insts {
			if inst.block != b {
				errs = append(errs, fmt.Errorf("%s: listed in %s but placed in %v", inst.Name(), b, inst.block))
			}
			placed[inst] = true
		}
	}
	for _, b := range g.blocks {
		for _, inst := range b.insts {
			for k, in := range inst.inputs {
				if !placed[in] {
					errs = append(errs, fmt.Errorf("%s: operand %d (%s) is not in the graph", inst.Name(), k, in.Name()))
				}
			}
			if inst.Op == OpPhi && len(inst.inputs) != len(b.preds) {
				errs = append(errs, fmt.Errorf("%s: %d operands for %d predecessors", inst.Name(), len(inst.inputs), len(b.preds)))
			}
			for _, user := range inst.users {
				found := false
				for _, in := range user.inputs {
					found = found || in == inst
				}
				if !found {
					errs = append(errs, fmt.Errorf("%s: stale user %s", inst.Name(), user.Name()))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Print writes a textual listing of the graph.
func (g *Graph) Print(w io.Writer) {
	fmt.Fprintf(w, "%s:\n", g.Name)
	for _, b := range g.blocks {
		var preds []string
		for _, p := range b.preds {
			preds = append(preds, p.String())
		}
		fmt.Fprintf(w, "%s: preds [%s]\n", b, strings.Join(preds, " "))
		for _, inst := range b.insts {
			fmt.Fprintf(w, "\t%s\n", inst)
		}
	}
}
