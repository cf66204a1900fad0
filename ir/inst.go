package ir

import (
	"fmt"
	"strings"
)

// Opcode identifies the operation of an instruction. Operand layouts are
// documented per opcode.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// OpParameter is an incoming argument. No operands.
	OpParameter
	// OpConstant is a primitive constant held in Imm. No operands.
	OpConstant
	// OpNullConstant is the null reference. No operands.
	OpNullConstant

	// OpNewObject allocates an object of class Class. Operands: optional
	// SaveState.
	OpNewObject
	// OpNewArray allocates an array with element class Class. Operands:
	// length, optional SaveState.
	OpNewArray

	// OpNullCheck forwards operand 0. Operands: value, optional SaveState.
	OpNullCheck
	// OpRefineType forwards operand 0 with a narrower static type Class.
	OpRefineType

	// OpLoadArray operands: array, index.
	OpLoadArray
	// OpStoreArray operands: array, index, value.
	OpStoreArray
	// OpLoadArrayImm operands: array. Index in Imm.
	OpLoadArrayImm
	// OpStoreArrayImm operands: array, value. Index in Imm.
	OpStoreArrayImm
	// OpLoadArrayPair loads two adjacent elements. Operands: array, index.
	OpLoadArrayPair
	// OpLoadArrayPairImm operands: array. Index in Imm.
	OpLoadArrayPairImm
	// OpStoreArrayPair operands: array, index, value0, value1.
	OpStoreArrayPair
	// OpStoreArrayPairImm operands: array, value0, value1. Index in Imm.
	OpStoreArrayPairImm
	// OpLoadPairPart extracts lane Imm of a pair load. Operands: pair.
	OpLoadPairPart

	// OpLoadObject operands: object. Field in Field. With Static set the
	// operand is the class object and the access is a static field access.
	OpLoadObject
	// OpStoreObject operands: object, value.
	OpStoreObject
	// OpLoadStatic has no operands. Field in Field.
	OpLoadStatic
	// OpStoreStatic operands: value.
	OpStoreStatic

	// OpLoadConstPool loads constant pool entry Token. No operands.
	OpLoadConstPool

	// OpLoadProperty operands: object, and the key for PropByValue.
	OpLoadProperty
	// OpStoreProperty operands: object, the key for PropByValue, value.
	OpStoreProperty

	// OpCall operands: arguments, optionally followed by a SaveState.
	OpCall
	// OpSaveState records the values live for deoptimization. It observes
	// its operands without using them.
	OpSaveState

	// OpPhi has one operand per predecessor, in predecessor order.
	OpPhi
	// OpSelect operands: value if true, value if false, condition operands.
	OpSelect
	// OpCatchPhi merges values flowing into a catch handler.
	OpCatchPhi

	// OpReturn operands: returned values, if any.
	OpReturn
	// OpThrow operands: thrown value.
	OpThrow

	// OpCompute is a side-effect free computation on its operands.
	OpCompute
	// OpOpaque is an instruction the analysis does not understand. It may
	// read, write or publish anything reachable from its operands.
	OpOpaque

	numOpcodes
)

var opNames = [...]string{
	OpInvalid:           "Invalid",
	OpParameter:         "Parameter",
	OpConstant:          "Constant",
	OpNullConstant:      "NullConstant",
	OpNewObject:         "NewObject",
	OpNewArray:          "NewArray",
	OpNullCheck:         "NullCheck",
	OpRefineType:        "RefineType",
	OpLoadArray:         "LoadArray",
	OpStoreArray:        "StoreArray",
	OpLoadArrayImm:      "LoadArrayI",
	OpStoreArrayImm:     "StoreArrayI",
	OpLoadArrayPair:     "LoadArrayPair",
	OpLoadArrayPairImm:  "LoadArrayPairI",
	OpStoreArrayPair:    "StoreArrayPair",
	OpStoreArrayPairImm: "StoreArrayPairI",
	OpLoadPairPart:      "LoadPairPart",
	OpLoadObject:        "LoadObject",
	OpStoreObject:       "StoreObject",
	OpLoadStatic:        "LoadStatic",
	OpStoreStatic:       "StoreStatic",
	OpLoadConstPool:     "LoadConstPool",
	OpLoadProperty:      "LoadProperty",
	OpStoreProperty:     "StoreProperty",
	OpCall:              "Call",
	OpSaveState:         "SaveState",
	OpPhi:               "Phi",
	OpSelect:            "Select",
	OpCatchPhi:          "CatchPhi",
	OpReturn:            "Return",
	OpThrow:             "Throw",
	OpCompute:           "Compute",
	OpOpaque:            "Opaque",
}

func (op Opcode) String() string {
	if op < numOpcodes {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// IsLoad reports whether op reads memory through a field, element, static
// or property location.
func (op Opcode) IsLoad() bool {
	switch op {
	case OpLoadArray, OpLoadArrayImm, OpLoadArrayPair, OpLoadArrayPairImm,
		OpLoadPairPart, OpLoadObject, OpLoadStatic, OpLoadProperty:
		return true
	}
	return false
}

// IsStore reports whether op writes a field, element, static or property
// location.
func (op Opcode) IsStore() bool {
	switch op {
	case OpStoreArray, OpStoreArrayImm, OpStoreArrayPair, OpStoreArrayPairImm,
		OpStoreObject, OpStoreStatic, OpStoreProperty:
		return true
	}
	return false
}

// IsMemoryAccess reports whether op is a load or a store.
func (op Opcode) IsMemoryAccess() bool { return op.IsLoad() || op.IsStore() }

// IsMerge reports whether op merges values from different control flow
// paths.
func (op Opcode) IsMerge() bool {
	return op == OpPhi || op == OpSelect || op == OpCatchPhi
}

// HasResult reports whether instructions of the opcode define a value.
func (op Opcode) HasResult() bool {
	switch op {
	case OpInvalid, OpSaveState, OpReturn, OpThrow:
		return false
	}
	return !op.IsStore()
}

// Inst is an SSA instruction.
type Inst struct {
	id    int
	block *Block

	Op   Opcode
	Type Type

	inputs []*Inst
	users  []*Inst

	// Imm is the immediate operand: a constant value, an array index or a
	// pair lane.
	Imm int64
	// Field is the accessed field of object and static field accesses.
	Field FieldRef
	// Token is the constant pool entry of OpLoadConstPool.
	Token uint32
	// Prop is the constant part of a dynamic property access.
	Prop Property
	// Class is the allocated class, the refined class, or the element class
	// of an array access.
	Class TypeID

	// Volatile marks accesses that do not guarantee repeatable reads.
	Volatile bool
	// Static marks object field accesses that address a static field.
	Static bool
	// PassThrough marks guard instructions that forward operand 0.
	PassThrough bool
}

func (i *Inst) ID() int           { return i.id }
func (i *Inst) Block() *Block     { return i.block }
func (i *Inst) Inputs() []*Inst   { return i.inputs }
func (i *Inst) Input(k int) *Inst { return i.inputs[k] }
func (i *Inst) NumInputs() int    { return len(i.inputs) }
func (i *Inst) Users() []*Inst    { return i.users }

// Index returns the position of the instruction in its block, or -1 when
// the instruction is detached.
func (i *Inst) Index() int {
	if i.block == nil {
		return -1
	}
	for k, other := range i.block.insts {
		if other == i {
			return k
		}
	}
	return -1
}

// IsPassThrough reports whether the instruction forwards the identity of
// operand 0.
func (i *Inst) IsPassThrough() bool {
	if len(i.inputs) == 0 {
		return false
	}
	return i.PassThrough || i.Op == OpNullCheck || i.Op == OpRefineType
}

// SaveState returns the SaveState operand of the instruction, if any.
func (i *Inst) SaveState() *Inst {
	if n := len(i.inputs); n > 0 && i.inputs[n-1].Op == OpSaveState {
		return i.inputs[n-1]
	}
	return nil
}

// Name returns the SSA name of the instruction.
func (i *Inst) Name() string { return fmt.Sprintf("v%d", i.id) }

func (i *Inst) String() string {
	var sb strings.Builder
	if i.Op.HasResult() {
		fmt.Fprintf(&sb, "%s = ", i.Name())
	}
	sb.WriteString(i.Op.String())
	if i.Type != TypeVoid {
		fmt.Fprintf(&sb, ".%s", i.Type)
	}
	if i.Volatile {
		sb.WriteString(" volatile")
	}
	for k, in := range i.inputs {
		if k == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(in.Name())
	}
	switch i.Op {
	case OpConstant, OpLoadArrayImm, OpStoreArrayImm, OpLoadArrayPairImm,
		OpStoreArrayPairImm, OpLoadPairPart:
		fmt.Fprintf(&sb, " [%d]", i.Imm)
	case OpLoadObject, OpStoreObject, OpLoadStatic, OpStoreStatic:
		fmt.Fprintf(&sb, " %s", i.Field)
	case OpLoadConstPool:
		fmt.Fprintf(&sb, " #%d", i.Token)
	case OpLoadProperty, OpStoreProperty:
		fmt.Fprintf(&sb, " %s", i.Prop)
	}
	return sb.String()
}

func removeInst(l []*Inst, x *Inst) []*Inst {
	for k, y := range l {
		if y == x {
			return append(l[:k], l[k+1:]...)
		}
	}
	return l
}
