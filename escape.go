package alias

import (
	"github.com/BarrensZeppelin/alias/internal/maps"
	"github.com/BarrensZeppelin/alias/internal/queue"
	"github.com/BarrensZeppelin/alias/ir"
)

// EscapeInfo describes whether a local allocation may be reachable from
// outside the analysed function.
type EscapeInfo struct {
	Escaped bool
	// Sites are the instructions after which the allocation may be
	// reachable from outside, ordered by instruction id.
	Sites []*ir.Inst
}

// ComputeEscape returns the escape information of every allocation in g.
func ComputeEscape(g *ir.Graph) map[*ir.Inst]*EscapeInfo {
	t := newEscapeTracker(g)
	t.run()
	return t.result()
}

// holdSet over-approximates the objects a reference value may denote.
type holdSet struct {
	allocs map[*ir.Inst]bool
	// external is set when the value may denote an object that was not
	// allocated by the function.
	external bool
	// heap is set for values loaded from memory. They may also denote every
	// allocation that is stored somewhere.
	heap bool
}

func (h *holdSet) add(a *ir.Inst) bool {
	if h.allocs[a] {
		return false
	}
	if h.allocs == nil {
		h.allocs = make(map[*ir.Inst]bool)
	}
	h.allocs[a] = true
	return true
}

func (h *holdSet) union(o *holdSet) (changed bool) {
	for a := range o.allocs {
		changed = h.add(a) || changed
	}
	if o.external && !h.external {
		h.external, changed = true, true
	}
	if o.heap && !h.heap {
		h.heap, changed = true, true
	}
	return changed
}

var unknownHolds = &holdSet{external: true, heap: true}

// containment records that value was stored into a local allocation.
type containment struct {
	value, store *ir.Inst
}

type escapeTracker struct {
	g *ir.Graph

	holds map[*ir.Inst]*holdSet
	// Allocations stored anywhere in memory.
	stored map[*ir.Inst]bool
	// Values stored into each local allocation.
	contents map[*ir.Inst][]containment
	// Merges of local allocations only, per allocation.
	merges map[*ir.Inst][]*ir.Inst

	sites map[*ir.Inst]map[*ir.Inst]bool
	queue queue.WorkList[*ir.Inst]
}

func newEscapeTracker(g *ir.Graph) *escapeTracker {
	return &escapeTracker{
		g:        g,
		holds:    make(map[*ir.Inst]*holdSet),
		stored:   make(map[*ir.Inst]bool),
		contents: make(map[*ir.Inst][]containment),
		merges:   make(map[*ir.Inst][]*ir.Inst),
		sites:    make(map[*ir.Inst]map[*ir.Inst]bool),
	}
}

func (t *escapeTracker) run() {
	insts := t.g.Instructions()
	t.computeHolds(insts)

	for _, inst := range insts {
		if inst.Op.IsStore() {
			for _, v := range valueOperands(inst) {
				for a := range t.holdsOf(v).allocs {
					t.stored[a] = true
				}
			}
		}
	}

	for _, inst := range insts {
		t.seed(inst)
	}

	for !t.queue.Empty() {
		a := t.queue.Pop()
		sites := maps.Keys(t.sites[a])
		for _, c := range t.contents[a] {
			t.escapeValue(c.value, append(sites[:len(sites):len(sites)], c.store)...)
		}
		for _, m := range t.merges[a] {
			for b := range t.holds[m].allocs {
				if b != a {
					t.escape(b, sites...)
				}
			}
		}
	}
}

// computeHolds computes the hold sets of all values, iterating over merges
// until nothing changes.
func (t *escapeTracker) computeHolds(insts []*ir.Inst) {
	var merges []*ir.Inst
	for _, v := range insts {
		if v.IsPassThrough() {
			continue
		}
		hs := &holdSet{}
		t.holds[v] = hs
		if !mayHoldReference(v.Type) {
			continue
		}

		switch op := v.Op; {
		case op == ir.OpNewObject || op == ir.OpNewArray:
			hs.add(v)
		case op == ir.OpNullConstant || op == ir.OpConstant:
		case op.IsMerge():
			merges = append(merges, v)
			hs.external = op == ir.OpCatchPhi
		case op.IsLoad():
			hs.external, hs.heap = true, true
		default:
			hs.external = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, m := range merges {
			hs := t.holds[m]
			for _, in := range mergeInputs(m) {
				if hs.union(t.holdsOf(in)) {
					changed = true
				}
			}
		}
	}
}

func (t *escapeTracker) holdsOf(v *ir.Inst) *holdSet {
	if hs := t.holds[resolve(v)]; hs != nil {
		return hs
	}
	return unknownHolds
}

// mayHold reports whether the value v may denote the allocation a.
func (t *escapeTracker) mayHold(v, a *ir.Inst) bool {
	if v == nil {
		return false
	}
	hs := t.holdsOf(v)
	return hs.allocs[a] || hs.heap && t.stored[a]
}

func (t *escapeTracker) seed(inst *ir.Inst) {
	switch op := inst.Op; {
	case op == ir.OpCall:
		t.escapeAll(callArgs(inst), inst)

	case op == ir.OpReturn, op == ir.OpThrow, op == ir.OpOpaque,
		op == ir.OpCatchPhi, op == ir.OpInvalid:
		t.escapeAll(inst.Inputs(), inst)

	case op == ir.OpCompute:
		if !inst.IsPassThrough() && mayHoldReference(inst.Type) {
			t.escapeAll(inst.Inputs(), inst)
		}

	case op == ir.OpPhi, op == ir.OpSelect:
		if hs := t.holds[inst]; hs.external {
			t.escapeAll(mergeInputs(inst), inst)
		} else {
			for a := range hs.allocs {
				t.merges[a] = append(t.merges[a], inst)
			}
		}

	case op == ir.OpStoreStatic, op == ir.OpStoreObject && inst.Static:
		t.escapeAll(valueOperands(inst), inst)

	case op.IsStore():
		container := t.holdsOf(inst.Input(0))
		if container.external || container.heap {
			t.escapeAll(valueOperands(inst), inst)
			return
		}
		for a := range container.allocs {
			for _, v := range valueOperands(inst) {
				t.contents[a] = append(t.contents[a], containment{v, inst})
			}
		}
	}
}

func (t *escapeTracker) escapeAll(values []*ir.Inst, site *ir.Inst) {
	for _, v := range values {
		t.escapeValue(v, site)
	}
}

func (t *escapeTracker) escapeValue(v *ir.Inst, sites ...*ir.Inst) {
	hs := t.holdsOf(v)
	for a := range hs.allocs {
		t.escape(a, sites...)
	}
	if hs.heap {
		for a := range t.stored {
			t.escape(a, sites...)
		}
	}
}

// escape records that a may be reachable from outside after any of sites.
func (t *escapeTracker) escape(a *ir.Inst, sites ...*ir.Inst) {
	set := t.sites[a]
	if set == nil {
		set = make(map[*ir.Inst]bool)
		t.sites[a] = set
	}
	grew := false
	for _, s := range sites {
		if !set[s] {
			set[s] = true
			grew = true
		}
	}
	if grew {
		t.queue.Push(a)
	}
}

// info returns the escape information of the allocation a.
func (t *escapeTracker) info(a *ir.Inst) *EscapeInfo {
	set := t.sites[a]
	info := &EscapeInfo{Escaped: len(set) > 0}
	if info.Escaped {
		info.Sites = maps.SortedKeys(set, func(x, y *ir.Inst) bool { return x.ID() < y.ID() })
	}
	return info
}

func (t *escapeTracker) result() map[*ir.Inst]*EscapeInfo {
	res := make(map[*ir.Inst]*EscapeInfo)
	for _, inst := range t.g.Instructions() {
		if inst.Op == ir.OpNewObject || inst.Op == ir.OpNewArray {
			res[inst] = t.info(inst)
		}
	}
	return res
}
