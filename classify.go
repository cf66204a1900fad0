package alias

import (
	"github.com/BarrensZeppelin/alias/ir"
	"github.com/sirupsen/logrus"
)

// classifier derives origins and pointers for the instructions of a graph.
// Results are memoized for the lifetime of one build.
type classifier struct {
	g   *ir.Graph
	h   ir.Hierarchy
	log logrus.FieldLogger

	origins map[*ir.Inst]Origin
	// Merges whose origin is being computed.
	pending map[*ir.Inst]bool
}

func newClassifier(g *ir.Graph, h ir.Hierarchy, log logrus.FieldLogger) *classifier {
	return &classifier{
		g:       g,
		h:       h,
		log:     log,
		origins: make(map[*ir.Inst]Origin),
		pending: make(map[*ir.Inst]bool),
	}
}

// origin returns the origin of the object denoted by the reference value v.
func (c *classifier) origin(v *ir.Inst) Origin {
	v = resolve(v)
	if o, ok := c.origins[v]; ok {
		return o
	}

	var o Origin
	switch v.Op {
	case ir.OpNewObject, ir.OpNewArray:
		o = siteOrigin(OriginLocalAlloc, v)
	case ir.OpParameter:
		o = siteOrigin(OriginParameter, v)
	case ir.OpCall:
		o = siteOrigin(OriginCallResult, v)
	case ir.OpLoadConstPool:
		o = Origin{Kind: OriginConstPool, Token: v.Token}
	case ir.OpNullConstant:
		o = Origin{Kind: OriginNone}
	case ir.OpPhi, ir.OpSelect:
		o = c.mergeOrigin(v)
	default:
		// Catch phis, loaded references, opaque and computed values.
		o = siteOrigin(OriginUnknown, v)
	}

	c.origins[v] = o
	return o
}

// mergeOrigin keeps the origin shared by all inputs of a merge. Inputs that
// are the merge itself are ignored. Any other input that is still being
// computed (a cycle through another merge) makes the merge unknown right
// away instead of iterating to a fixed point.
func (c *classifier) mergeOrigin(v *ir.Inst) Origin {
	unknown := siteOrigin(OriginUnknown, v)

	c.pending[v] = true
	defer delete(c.pending, v)

	var shared *Origin
	for _, in := range mergeInputs(v) {
		in = resolve(in)
		if in == v {
			continue
		}
		if c.pending[in] {
			return unknown
		}

		o := c.origin(in)
		if shared == nil {
			shared = &o
		} else if *shared != o {
			return unknown
		}
	}

	if shared == nil {
		return unknown
	}
	return *shared
}

// pointer classifies inst. Memory accesses yield the location they access;
// any other instruction yields a WholeObject pointer for its value.
func (c *classifier) pointer(inst *ir.Inst) Pointer {
	p := Pointer{Site: inst, Volatile: inst.Volatile}

	switch inst.Op {
	case ir.OpLoadArray, ir.OpStoreArray,
		ir.OpLoadArrayImm, ir.OpStoreArrayImm,
		ir.OpLoadArrayPair, ir.OpLoadArrayPairImm,
		ir.OpStoreArrayPair, ir.OpStoreArrayPairImm:
		c.operands(inst, 1)
		p.Kind = ArrayElement
		p.Base = resolve(inst.Input(0))
		p.Key.Index = c.arrayIndex(inst)
		p.Key.Elem = inst.Type
		p.Key.Class = inst.Class

	case ir.OpLoadPairPart:
		c.operands(inst, 1)
		pair := resolve(inst.Input(0))
		if pair.Op != ir.OpLoadArrayPair && pair.Op != ir.OpLoadArrayPairImm {
			c.log.Panicf("%s: lane extraction from %s", inst.Name(), pair)
		}
		c.operands(pair, 1)
		p.Kind = ArrayElement
		p.Volatile = p.Volatile || pair.Volatile
		p.Base = resolve(pair.Input(0))
		idx := c.arrayIndex(pair)
		idx.Value += inst.Imm
		idx.Width = 1
		p.Key.Index = idx
		p.Key.Elem = pair.Type
		p.Key.Class = pair.Class

	case ir.OpLoadObject, ir.OpStoreObject:
		c.operands(inst, 1)
		if inst.Static {
			p.Kind = StaticField
			p.Origin = staticOrigin(c.h, inst.Field)
			p.Escaped = true
			return p
		}
		p.Kind = ObjectField
		p.Base = resolve(inst.Input(0))
		p.Key.Field = c.fieldKey(inst.Field)

	case ir.OpLoadStatic, ir.OpStoreStatic:
		p.Kind = StaticField
		p.Origin = staticOrigin(c.h, inst.Field)
		p.Escaped = true
		return p

	case ir.OpLoadProperty, ir.OpStoreProperty:
		c.operands(inst, 1)
		p.Kind = DynamicProperty
		p.Base = resolve(inst.Input(0))
		p.Key.Prop = inst.Prop
		if inst.Prop.Mode == ir.PropByValue {
			c.operands(inst, 2)
			p.Key.PropKey = resolve(inst.Input(1))
		}

	default:
		return c.value(inst)
	}

	p.Origin = c.origin(p.Base)
	p.LocalCreated = p.Origin.Kind == OriginLocalAlloc && c.g.Dominates(p.Origin.Site, inst)
	return p
}

// value classifies the object denoted by the value of inst. Loaded
// references are values too.
func (c *classifier) value(inst *ir.Inst) Pointer {
	p := Pointer{Kind: WholeObject, Site: inst, Base: resolve(inst)}
	p.Origin = c.origin(p.Base)
	p.LocalCreated = p.Origin.Kind == OriginLocalAlloc && c.g.Dominates(p.Origin.Site, inst)
	return p
}

func (c *classifier) operands(inst *ir.Inst, n int) {
	if inst.NumInputs() < n {
		c.log.Panicf("%s: expected at least %d operands, got %d", inst, n, inst.NumInputs())
	}
}

func (c *classifier) arrayIndex(inst *ir.Inst) Index {
	idx := Index{Width: 1}
	switch inst.Op {
	case ir.OpLoadArrayPair, ir.OpLoadArrayPairImm, ir.OpStoreArrayPair, ir.OpStoreArrayPairImm:
		idx.Width = 2
	}

	switch inst.Op {
	case ir.OpLoadArrayImm, ir.OpStoreArrayImm, ir.OpLoadArrayPairImm, ir.OpStoreArrayPairImm:
		idx.Known = true
		idx.Value = inst.Imm
		return idx
	}

	c.operands(inst, 2)
	operand := resolve(inst.Input(1))
	if operand.Op == ir.OpConstant {
		idx.Known = true
		idx.Value = operand.Imm
	} else {
		idx.Sym = operand
	}
	return idx
}

// fieldKey resolves named fields to their declaring type, so accesses
// through a subclass compare equal to accesses through the declaring class.
func (c *classifier) fieldKey(f ir.FieldRef) ir.FieldRef {
	if f.Name != "" {
		f.Owner = ir.DeclaringType(c.h, f.Owner, f.Name)
	}
	return f
}
