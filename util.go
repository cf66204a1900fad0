package alias

import (
	"sort"

	"github.com/BarrensZeppelin/alias/ir"
)

// resolve skips pass-through guards.
func resolve(v *ir.Inst) *ir.Inst {
	for v.IsPassThrough() {
		v = v.Input(0)
	}
	return v
}

// mergeInputs returns the operands of a merge that flow into its result.
func mergeInputs(v *ir.Inst) []*ir.Inst {
	if v.Op == ir.OpSelect {
		return v.Inputs()[:2]
	}
	return v.Inputs()
}

// mayHoldReference reports whether values of the type can denote an object.
func mayHoldReference(t ir.Type) bool {
	return t == ir.TypeReference || t == ir.TypeAny
}

// valueOperands returns the operands of inst that are stored to memory, or
// used as the key of a by-value property store.
func valueOperands(inst *ir.Inst) []*ir.Inst {
	in := inst.Inputs()
	switch inst.Op {
	case ir.OpStoreArray:
		return in[2:3]
	case ir.OpStoreArrayImm, ir.OpStoreObject:
		return in[1:2]
	case ir.OpStoreArrayPair:
		return in[2:4]
	case ir.OpStoreArrayPairImm:
		return in[1:3]
	case ir.OpStoreStatic:
		return in[:1]
	case ir.OpStoreProperty:
		return in[1:]
	}
	return nil
}

// callArgs returns the arguments of a call, including the values observed
// by an attached SaveState.
func callArgs(call *ir.Inst) []*ir.Inst {
	args := call.Inputs()
	ss := call.SaveState()
	if ss == nil {
		return args
	}
	res := append([]*ir.Inst(nil), args[:len(args)-1]...)
	return append(res, ss.Inputs()...)
}

func sortInsts(l []*ir.Inst) {
	sort.Slice(l, func(i, j int) bool { return l[i].ID() < l[j].ID() })
}
