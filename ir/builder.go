package ir

// Builder appends instructions to a current block of a graph.
type Builder struct {
	g *Graph
	b *Block
}

// NewBuilder returns a builder for a fresh graph positioned at its entry.
func NewBuilder(name string) *Builder {
	g := NewGraph(name)
	return &Builder{g: g, b: g.Entry()}
}

// BuilderFor returns a builder positioned at the entry of an existing graph.
func BuilderFor(g *Graph) *Builder { return &Builder{g: g, b: g.Entry()} }

func (b *Builder) Graph() *Graph      { return b.g }
func (b *Builder) Block() *Block      { return b.b }
func (b *Builder) SetBlock(bl *Block) { b.b = bl }

// NewBlock creates a block with the given predecessors and makes it current.
func (b *Builder) NewBlock(preds ...*Block) *Block {
	bl := b.g.NewBlock()
	for _, p := range preds {
		b.g.AddEdge(p, bl)
	}
	b.b = bl
	return bl
}

// Emit appends a new instruction to the current block.
func (b *Builder) Emit(op Opcode, typ Type, inputs ...*Inst) *Inst {
	return b.g.Append(b.b, b.g.NewInst(op, typ, inputs...))
}

func (b *Builder) Param(typ Type) *Inst { return b.Emit(OpParameter, typ) }

func (b *Builder) Const(v int64) *Inst {
	inst := b.Emit(OpConstant, TypeInt64)
	inst.Imm = v
	return inst
}

func (b *Builder) Null() *Inst { return b.Emit(OpNullConstant, TypeReference) }

func (b *Builder) NewObject(class TypeID) *Inst {
	inst := b.Emit(OpNewObject, TypeReference)
	inst.Class = class
	return inst
}

// NewArray allocates an array whose elements have class class (0 for
// primitive or unknown elements).
func (b *Builder) NewArray(length *Inst, class TypeID) *Inst {
	inst := b.Emit(OpNewArray, TypeReference, length)
	inst.Class = class
	return inst
}

func (b *Builder) NullCheck(v *Inst) *Inst { return b.Emit(OpNullCheck, v.Type, v) }

func (b *Builder) RefineType(v *Inst, class TypeID) *Inst {
	inst := b.Emit(OpRefineType, v.Type, v)
	inst.Class = class
	return inst
}

func (b *Builder) LoadArray(arr, idx *Inst, typ Type) *Inst {
	return b.Emit(OpLoadArray, typ, arr, idx)
}

func (b *Builder) StoreArray(arr, idx, val *Inst, typ Type) *Inst {
	return b.Emit(OpStoreArray, typ, arr, idx, val)
}

func (b *Builder) LoadArrayImm(arr *Inst, idx int64, typ Type) *Inst {
	inst := b.Emit(OpLoadArrayImm, typ, arr)
	inst.Imm = idx
	return inst
}

func (b *Builder) StoreArrayImm(arr *Inst, idx int64, val *Inst, typ Type) *Inst {
	inst := b.Emit(OpStoreArrayImm, typ, arr, val)
	inst.Imm = idx
	return inst
}

func (b *Builder) LoadArrayPair(arr, idx *Inst, typ Type) *Inst {
	return b.Emit(OpLoadArrayPair, typ, arr, idx)
}

func (b *Builder) LoadArrayPairImm(arr *Inst, idx int64, typ Type) *Inst {
	inst := b.Emit(OpLoadArrayPairImm, typ, arr)
	inst.Imm = idx
	return inst
}

func (b *Builder) StoreArrayPair(arr, idx, v0, v1 *Inst, typ Type) *Inst {
	return b.Emit(OpStoreArrayPair, typ, arr, idx, v0, v1)
}

func (b *Builder) StoreArrayPairImm(arr *Inst, idx int64, v0, v1 *Inst, typ Type) *Inst {
	inst := b.Emit(OpStoreArrayPairImm, typ, arr, v0, v1)
	inst.Imm = idx
	return inst
}

// LoadPairPart extracts one lane of a pair load.
func (b *Builder) LoadPairPart(pair *Inst, lane int64) *Inst {
	inst := b.Emit(OpLoadPairPart, pair.Type, pair)
	inst.Imm = lane
	return inst
}

func (b *Builder) LoadObject(obj *Inst, f FieldRef, typ Type) *Inst {
	inst := b.Emit(OpLoadObject, typ, obj)
	inst.Field = f
	return inst
}

func (b *Builder) StoreObject(obj *Inst, f FieldRef, val *Inst, typ Type) *Inst {
	inst := b.Emit(OpStoreObject, typ, obj, val)
	inst.Field = f
	return inst
}

func (b *Builder) LoadStatic(f FieldRef, typ Type) *Inst {
	inst := b.Emit(OpLoadStatic, typ)
	inst.Field = f
	return inst
}

func (b *Builder) StoreStatic(f FieldRef, val *Inst, typ Type) *Inst {
	inst := b.Emit(OpStoreStatic, typ, val)
	inst.Field = f
	return inst
}

func (b *Builder) LoadConstPool(token uint32) *Inst {
	inst := b.Emit(OpLoadConstPool, TypeReference)
	inst.Token = token
	return inst
}

// LoadProperty reads a dynamic property. key is only used (and required)
// for PropByValue.
func (b *Builder) LoadProperty(obj *Inst, p Property, key *Inst, typ Type) *Inst {
	inputs := []*Inst{obj}
	if p.Mode == PropByValue {
		inputs = append(inputs, key)
	}
	inst := b.Emit(OpLoadProperty, typ, inputs...)
	inst.Prop = p
	return inst
}

func (b *Builder) StoreProperty(obj *Inst, p Property, key, val *Inst, typ Type) *Inst {
	inputs := []*Inst{obj}
	if p.Mode == PropByValue {
		inputs = append(inputs, key)
	}
	inst := b.Emit(OpStoreProperty, typ, append(inputs, val)...)
	inst.Prop = p
	return inst
}

func (b *Builder) Call(typ Type, args ...*Inst) *Inst { return b.Emit(OpCall, typ, args...) }

func (b *Builder) SaveState(vals ...*Inst) *Inst { return b.Emit(OpSaveState, TypeVoid, vals...) }

func (b *Builder) Phi(typ Type, inputs ...*Inst) *Inst { return b.Emit(OpPhi, typ, inputs...) }

func (b *Builder) Select(typ Type, x, y, cond *Inst) *Inst {
	return b.Emit(OpSelect, typ, x, y, cond)
}

func (b *Builder) CatchPhi(typ Type, inputs ...*Inst) *Inst {
	return b.Emit(OpCatchPhi, typ, inputs...)
}

// Return emits a return of v, or a void return when v is nil.
func (b *Builder) Return(v *Inst) *Inst {
	if v == nil {
		return b.Emit(OpReturn, TypeVoid)
	}
	return b.Emit(OpReturn, TypeVoid, v)
}

func (b *Builder) Throw(v *Inst) *Inst { return b.Emit(OpThrow, TypeVoid, v) }

func (b *Builder) Compute(typ Type, inputs ...*Inst) *Inst {
	return b.Emit(OpCompute, typ, inputs...)
}

func (b *Builder) Opaque(typ Type, inputs ...*Inst) *Inst {
	return b.Emit(OpOpaque, typ, inputs...)
}
