// Package goir lowers go/ssa functions into ir graphs for alias analysis.
//
// Every SSA block becomes an ir block. An extra prologue block in front of
// them holds the parameters, free variables and the constants, so that they
// dominate all uses. Field and element addresses whose only uses are loads
// and stores are folded into field and element accesses; any other address
// becomes an opaque reference derived from its base.
package goir

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"strings"

	"github.com/BarrensZeppelin/alias/internal/slices"
	"github.com/BarrensZeppelin/alias/ir"
	"golang.org/x/tools/go/ssa"
)

// ErrNoBody is returned when lowering an external function.
var ErrNoBody = errors.New("function has no body")

// Mapping relates SSA values and instructions to the ir instructions they
// were lowered to.
type Mapping struct {
	values map[ssa.Value]*ir.Inst
	instrs map[ssa.Instruction]*ir.Inst
	source map[*ir.Inst]ssa.Instruction
}

// Value returns the instruction that computes v, or nil.
func (m *Mapping) Value(v ssa.Value) *ir.Inst { return m.values[v] }

// Instr returns the instruction that instr was lowered to, or nil when the
// SSA instruction has no counterpart (control flow, folded addresses).
func (m *Mapping) Instr(instr ssa.Instruction) *ir.Inst { return m.instrs[instr] }

// Source returns the SSA instruction inst was lowered from, or nil for
// instructions of the prologue.
func (m *Mapping) Source(inst *ir.Inst) ssa.Instruction { return m.source[inst] }

type lowerError struct{ err error }

type lowerer struct {
	fn  *ssa.Function
	tab *Tables
	g   *ir.Graph
	b   *ir.Builder

	prologue *ir.Block
	blocks   map[*ssa.BasicBlock]*ir.Block
	ints     map[int64]*ir.Inst
	phis     []*ssa.Phi
	leaves   map[ssa.Value]bool

	m *Mapping
}

// Lower builds the ir graph of fn. Identifiers of types, fields and
// constants are interned in tab.
func Lower(fn *ssa.Function, tab *Tables) (g *ir.Graph, m *Mapping, err error) {
	if fn.Blocks == nil {
		return nil, nil, fmt.Errorf("lowering %s: %w", fn.Name(), ErrNoBody)
	}

	l := &lowerer{
		fn:     fn,
		tab:    tab,
		g:      ir.NewGraph(fn.String()),
		blocks: make(map[*ssa.BasicBlock]*ir.Block, len(fn.Blocks)),
		ints:   make(map[int64]*ir.Inst),
		leaves: make(map[ssa.Value]bool),
		m: &Mapping{
			values: make(map[ssa.Value]*ir.Inst),
			instrs: make(map[ssa.Instruction]*ir.Inst),
			source: make(map[*ir.Inst]ssa.Instruction),
		},
	}
	l.b = ir.BuilderFor(l.g)
	l.prologue = l.g.Entry()

	defer func() {
		if r := recover(); r != nil {
			le, ok := r.(lowerError)
			if !ok {
				panic(r)
			}
			g, m, err = nil, nil, fmt.Errorf("lowering %s: %w", fn, le.err)
		}
	}()

	l.lower()
	return l.g, l.m, nil
}

func (l *lowerer) fail(format string, args ...any) {
	panic(lowerError{fmt.Errorf(format, args...)})
}

func (l *lowerer) lower() {
	for _, p := range l.fn.Params {
		l.m.values[p] = l.b.Param(l.tab.Type(p.Type()))
	}
	for _, fv := range l.fn.FreeVars {
		l.m.values[fv] = l.b.Param(l.tab.Type(fv.Type()))
	}

	for _, sb := range l.fn.Blocks {
		l.blocks[sb] = l.g.NewBlock()
	}
	l.g.AddEdge(l.prologue, l.blocks[l.fn.Blocks[0]])
	for _, sb := range l.fn.Blocks {
		for _, pred := range sb.Preds {
			l.g.AddEdge(l.blocks[pred], l.blocks[sb])
		}
	}
	// A panic anywhere may resume execution in the recover block.
	if rec := l.fn.Recover; rec != nil {
		for _, sb := range l.fn.Blocks {
			if sb != rec {
				l.g.AddEdge(l.blocks[sb], l.blocks[rec])
			}
		}
	}

	// Dominator preorder visits definitions before their non-phi uses.
	done := make(map[*ssa.BasicBlock]bool, len(l.fn.Blocks))
	for _, sb := range l.fn.DomPreorder() {
		l.block(sb)
		done[sb] = true
	}
	for _, sb := range l.fn.Blocks {
		if !done[sb] {
			l.block(sb)
		}
	}

	for _, phi := range l.phis {
		inst := l.m.values[phi]
		for _, e := range phi.Edges {
			l.g.AddInput(inst, l.value(e))
		}
	}
}

func (l *lowerer) block(sb *ssa.BasicBlock) {
	l.b.SetBlock(l.blocks[sb])
	for _, instr := range sb.Instrs {
		if inst := l.instr(instr); inst != nil {
			l.m.instrs[instr] = inst
			l.m.source[inst] = instr
			if v, ok := instr.(ssa.Value); ok {
				l.m.values[v] = inst
			}
		}
	}
}

// inPrologue runs emit with the builder positioned at the prologue.
func (l *lowerer) inPrologue(emit func() *ir.Inst) *ir.Inst {
	cur := l.b.Block()
	l.b.SetBlock(l.prologue)
	defer l.b.SetBlock(cur)
	return emit()
}

// value returns the instruction computing v. Constants, functions and
// globals are materialized in the prologue on first use.
func (l *lowerer) value(v ssa.Value) *ir.Inst {
	if inst, ok := l.m.values[v]; ok {
		return inst
	}

	var inst *ir.Inst
	switch v := v.(type) {
	case *ssa.Const:
		inst = l.inPrologue(func() *ir.Inst { return l.constant(v) })
	case *ssa.Function:
		inst = l.inPrologue(func() *ir.Inst {
			return l.b.LoadConstPool(l.tab.Token("\x00func " + v.String()))
		})
	case *ssa.Global, *ssa.Builtin:
		// The storage of a global is shared with every other function.
		inst = l.inPrologue(func() *ir.Inst { return l.b.Opaque(ir.TypeReference) })
	default:
		l.fail("%s used before its definition", v.Name())
	}
	l.m.values[v] = inst
	return inst
}

func (l *lowerer) constant(c *ssa.Const) *ir.Inst {
	typ := l.tab.Type(c.Type())
	switch {
	case c.IsNil():
		return l.b.Null()
	case c.Value == nil:
		// Zero value of an aggregate.
		return l.b.Compute(typ)
	}

	switch c.Value.Kind() {
	case constant.String:
		return l.b.LoadConstPool(l.tab.Token(constant.StringVal(c.Value)))
	case constant.Bool:
		inst := l.b.Const(0)
		if constant.BoolVal(c.Value) {
			inst.Imm = 1
		}
		inst.Type = typ
		return inst
	case constant.Int:
		if x, exact := constant.Int64Val(c.Value); exact {
			inst := l.b.Const(x)
			inst.Type = typ
			return inst
		}
	}
	// Floats and huge integers get no constant identity.
	return l.b.Compute(typ)
}

func (l *lowerer) intConst(x int64) *ir.Inst {
	if inst, ok := l.ints[x]; ok {
		return inst
	}
	inst := l.inPrologue(func() *ir.Inst { return l.b.Const(x) })
	l.ints[x] = inst
	return inst
}

func (l *lowerer) values(vs []ssa.Value) []*ir.Inst {
	return slices.Map(vs, l.value)
}

func (l *lowerer) operands(instr ssa.Instruction) []*ir.Inst {
	var res []*ir.Inst
	for _, op := range instr.Operands(nil) {
		if *op != nil {
			res = append(res, l.value(*op))
		}
	}
	return res
}

func (l *lowerer) passThrough(typ types.Type, x ssa.Value) *ir.Inst {
	inst := l.b.Compute(l.tab.Type(typ), l.value(x))
	inst.PassThrough = true
	return inst
}

func (l *lowerer) instr(instr ssa.Instruction) *ir.Inst {
	switch instr := instr.(type) {
	case *ssa.If, *ssa.Jump, *ssa.DebugRef, *ssa.RunDefers:
		return nil

	case *ssa.Alloc:
		elem := deref(instr.Type())
		if arr, ok := elem.Underlying().(*types.Array); ok {
			return l.b.NewArray(l.intConst(arr.Len()), l.tab.elementClass(arr.Elem()))
		}
		return l.b.NewObject(l.tab.TypeID(elem))

	case *ssa.MakeSlice:
		elem := instr.Type().Underlying().(*types.Slice).Elem()
		return l.b.NewArray(l.value(instr.Len), l.tab.elementClass(elem))

	case *ssa.MakeMap, *ssa.MakeChan:
		return l.b.NewObject(l.tab.TypeID(instr.(ssa.Value).Type()))

	case *ssa.Phi:
		l.phis = append(l.phis, instr)
		return l.b.Phi(l.tab.Type(instr.Type()))

	case *ssa.FieldAddr:
		if l.leaf(instr) {
			return nil
		}
		return l.b.Opaque(ir.TypeReference, l.value(instr.X))

	case *ssa.IndexAddr:
		if l.leaf(instr) {
			return nil
		}
		return l.b.Opaque(ir.TypeReference, l.value(instr.X), l.value(instr.Index))

	case *ssa.UnOp:
		switch instr.Op {
		case token.MUL:
			return l.load(instr.X, instr.Type())
		case token.ARROW:
			return l.b.Opaque(l.tab.Type(instr.Type()), l.value(instr.X))
		default:
			return l.b.Compute(l.tab.Type(instr.Type()), l.value(instr.X))
		}

	case *ssa.Store:
		return l.store(instr.Addr, instr.Val)

	case *ssa.Lookup:
		if _, ok := instr.X.Type().Underlying().(*types.Map); ok {
			typ := l.tab.Type(instr.Type())
			return l.b.LoadProperty(l.value(instr.X), ir.Property{Mode: ir.PropByValue}, l.value(instr.Index), typ)
		}
		return l.b.Compute(l.tab.Type(instr.Type()), l.value(instr.X), l.value(instr.Index))

	case *ssa.MapUpdate:
		typ := l.tab.Type(instr.Value.Type())
		return l.b.StoreProperty(l.value(instr.Map), ir.Property{Mode: ir.PropByValue},
			l.value(instr.Key), l.value(instr.Value), typ)

	case *ssa.Call:
		return l.call(&instr.Call, instr.Type())
	case *ssa.Go:
		return l.call(&instr.Call, nil)
	case *ssa.Defer:
		return l.call(&instr.Call, nil)

	case *ssa.Return:
		return l.b.Emit(ir.OpReturn, ir.TypeVoid, l.values(instr.Results)...)
	case *ssa.Panic:
		return l.b.Throw(l.value(instr.X))

	case *ssa.ChangeType:
		return l.passThrough(instr.Type(), instr.X)
	case *ssa.ChangeInterface:
		return l.passThrough(instr.Type(), instr.X)
	case *ssa.SliceToArrayPointer:
		return l.passThrough(instr.Type(), instr.X)

	case *ssa.Convert:
		return l.convert(instr)

	case *ssa.MakeInterface:
		switch {
		case PointerLike(instr.X.Type()):
			return l.passThrough(instr.Type(), instr.X)
		case l.tab.Type(instr.X.Type()).IsPrimitive():
			// The boxed copy carries no references.
			return l.b.NewObject(l.tab.TypeID(instr.X.Type()))
		default:
			return l.b.Opaque(ir.TypeReference, l.value(instr.X))
		}

	case *ssa.TypeAssert:
		if !instr.CommaOk && PointerLike(instr.AssertedType) {
			return l.b.RefineType(l.value(instr.X), l.tab.TypeID(instr.AssertedType))
		}
		return l.b.Compute(l.tab.Type(instr.Type()), l.value(instr.X))

	case *ssa.Slice:
		if _, isString := instr.X.Type().Underlying().(*types.Basic); !isString && isZero(instr.Low) {
			return l.passThrough(instr.Type(), instr.X)
		}
		return l.b.Opaque(l.tab.Type(instr.Type()), l.operands(instr)...)

	case *ssa.BinOp, *ssa.Field, *ssa.Index, *ssa.Extract:
		v := instr.(ssa.Value)
		return l.b.Compute(l.tab.Type(v.Type()), l.operands(instr)...)

	default:
		// Closures, channel sends, selects, range iteration and whatever
		// else may publish or modify anything reachable from its operands.
		typ := ir.TypeVoid
		if v, ok := instr.(ssa.Value); ok {
			typ = l.tab.Type(v.Type())
		}
		return l.b.Opaque(typ, l.operands(instr)...)
	}
}

func isZero(v ssa.Value) bool {
	if v == nil {
		return true
	}
	c, ok := v.(*ssa.Const)
	return ok && c.Value != nil && c.Value.Kind() == constant.Int && constant.Sign(c.Value) == 0
}

func (l *lowerer) convert(instr *ssa.Convert) *ir.Inst {
	from, to := instr.X.Type(), instr.Type()
	switch to.Underlying().(type) {
	case *types.Slice:
		// []byte(s) and []rune(s) copy into a fresh array.
		n := l.b.Compute(ir.TypeInt64, l.value(instr.X))
		return l.b.NewArray(n, 0)
	}

	toRef := l.tab.Type(to) == ir.TypeReference
	fromRef := l.tab.Type(from) == ir.TypeReference
	switch {
	case toRef && fromRef && !isString(from) && !isString(to):
		return l.passThrough(to, instr.X)
	case toRef != fromRef:
		// Pointers laundered through uintptr.
		return l.b.Opaque(l.tab.Type(to), l.value(instr.X))
	default:
		return l.b.Compute(l.tab.Type(to), l.value(instr.X))
	}
}

func isString(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsString != 0
}

func (l *lowerer) call(common *ssa.CallCommon, result types.Type) *ir.Inst {
	typ := ir.TypeVoid
	if result != nil {
		typ = l.tab.Type(result)
	}

	if b, ok := common.Value.(*ssa.Builtin); ok {
		switch b.Name() {
		case "len", "cap", "real", "imag", "min", "max":
			return l.b.Compute(typ, l.values(common.Args)...)
		case "ssa:wrapnilchk":
			return l.b.NullCheck(l.value(common.Args[0]))
		}
		return l.b.Call(typ, l.values(common.Args)...)
	}

	var args []*ir.Inst
	if common.IsInvoke() || common.StaticCallee() == nil {
		// The receiver of an interface call or the called closure.
		args = append(args, l.value(common.Value))
	}
	args = append(args, l.values(common.Args)...)
	return l.b.Call(typ, args...)
}

// location is a memory location addressed by a load or a store.
type location struct {
	kind  accessKind
	base  *ir.Inst
	index *ir.Inst
	field ir.FieldRef
	class ir.TypeID
}

type accessKind int

const (
	// fieldAccess addresses a field of an object, or a whole variable
	// through the pseudo field "*".
	fieldAccess accessKind = iota
	elementAccess
	// opaqueAccess addresses a pointee that may be a field, an element or a
	// variable.
	opaqueAccess
)

func (l *lowerer) locate(addr ssa.Value) location {
	switch a := addr.(type) {
	case *ssa.FieldAddr:
		if l.leaf(a) {
			root, path := l.fieldPath(a)
			return location{
				kind:  fieldAccess,
				base:  l.value(root),
				field: l.tab.Field(deref(root.Type()), path),
			}
		}
	case *ssa.IndexAddr:
		if l.leaf(a) {
			return location{
				kind:  elementAccess,
				base:  l.value(a.X),
				index: l.value(a.Index),
				class: l.tab.elementClass(deref(a.Type())),
			}
		}
	}
	switch addr.(type) {
	case *ssa.Alloc, *ssa.Global:
		return location{kind: fieldAccess, base: l.value(addr), field: l.tab.Deref(deref(addr.Type()))}
	}
	return location{kind: opaqueAccess, base: l.value(addr)}
}

// fieldPath follows a chain of folded field addresses to the pointer it
// starts from.
func (l *lowerer) fieldPath(a *ssa.FieldAddr) (ssa.Value, string) {
	var names []string
	var root ssa.Value = a
	for {
		fa, ok := root.(*ssa.FieldAddr)
		if !ok || !l.leaf(fa) {
			break
		}
		st := deref(fa.X.Type()).Underlying().(*types.Struct)
		names = append(names, fieldName(st, fa.Field))
		root = fa.X
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return root, strings.Join(names, ".")
}

// leaf reports whether the address v is only used to load or store
// non-aggregate values, directly or through further field addresses.
func (l *lowerer) leaf(v ssa.Value) bool {
	if res, ok := l.leaves[v]; ok {
		return res
	}
	res := true
	if refs := v.Referrers(); refs != nil {
	scan:
		for _, ref := range *refs {
			switch ref := ref.(type) {
			case *ssa.DebugRef:
			case *ssa.UnOp:
				res = ref.Op == token.MUL && l.tab.Type(ref.Type()) != ir.TypeAny
			case *ssa.Store:
				res = ref.Addr == v && ref.Val != v && l.tab.Type(ref.Val.Type()) != ir.TypeAny
			case *ssa.FieldAddr:
				_, isField := v.(*ssa.FieldAddr)
				res = isField && l.leaf(ref)
			default:
				res = false
			}
			if !res {
				break scan
			}
		}
	}
	l.leaves[v] = res
	return res
}

func (l *lowerer) load(addr ssa.Value, typ types.Type) *ir.Inst {
	t := l.tab.Type(typ)
	if t == ir.TypeAny {
		// Aggregate copies read every field at once.
		return l.b.Opaque(t, l.value(addr))
	}

	switch loc := l.locate(addr); loc.kind {
	case elementAccess:
		inst := l.b.LoadArray(loc.base, loc.index, t)
		inst.Class = loc.class
		return inst
	case opaqueAccess:
		return l.b.Opaque(t, loc.base)
	default:
		return l.b.LoadObject(loc.base, loc.field, t)
	}
}

func (l *lowerer) store(addr, val ssa.Value) *ir.Inst {
	t := l.tab.Type(val.Type())
	if t == ir.TypeAny {
		return l.b.Opaque(ir.TypeVoid, l.value(addr), l.value(val))
	}

	switch loc := l.locate(addr); loc.kind {
	case elementAccess:
		inst := l.b.StoreArray(loc.base, loc.index, l.value(val), t)
		inst.Class = loc.class
		return inst
	case opaqueAccess:
		return l.b.Opaque(ir.TypeVoid, loc.base, l.value(val))
	default:
		return l.b.StoreObject(loc.base, loc.field, l.value(val), t)
	}
}
