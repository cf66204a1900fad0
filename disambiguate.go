package alias

import "github.com/BarrensZeppelin/alias/ir"

// Disambiguator compares the access kinds and keys of two pointers.
type Disambiguator struct {
	Hierarchy ir.Hierarchy
}

// Disambiguate decides a pair of pointers from their keys alone when
// possible. base computes the verdict for the base objects of the two
// accesses; it is only called when a rule depends on it.
func (d Disambiguator) Disambiguate(p1, p2 Pointer, base func() Verdict) Decision {
	dec := d.decide(p1, p2, base)
	if dec == ForceMust && (p1.Volatile || p2.Volatile) {
		return Undecided
	}
	return dec
}

func (d Disambiguator) decide(p1, p2 Pointer, base func() Verdict) Decision {
	if p1.Kind != p2.Kind {
		return ForceNo
	}

	k1, k2 := p1.Key, p2.Key
	switch p1.Kind {
	case StaticField:
		if p1.Origin == p2.Origin {
			return ForceMust
		}
		return ForceNo

	case ArrayElement:
		if !d.elementsCompatible(k1, k2) {
			return ForceNo
		}
		same, disjoint := k1.Index.compare(k2.Index)
		if !same && !disjoint {
			return Undecided
		}
		switch base() {
		case MustAlias:
			if same {
				return ForceMust
			}
			return ForceNo
		case NoAlias:
			return ForceNo
		}

	case ObjectField:
		same, differ := compareFields(k1.Field, k2.Field)
		if differ {
			return ForceNo
		}
		if same && base() == MustAlias {
			return ForceMust
		}

	case DynamicProperty:
		if k1.Prop.Mode != k2.Prop.Mode {
			return ForceNo
		}
		same, differ := comparePropertyKeys(k1, k2)
		if differ {
			return ForceNo
		}
		if same && base() == MustAlias {
			return ForceMust
		}
	}

	return Undecided
}

// elementsCompatible reports whether two array accesses may read or write
// elements of the same array.
func (d Disambiguator) elementsCompatible(k1, k2 Key) bool {
	e1, e2 := k1.Elem, k2.Elem
	if e1 == ir.TypeAny || e2 == ir.TypeAny {
		return true
	}
	if e1.IsReference() != e2.IsReference() {
		return false
	}
	if !e1.IsReference() {
		return e1.Storage() == e2.Storage()
	}
	return ir.Related(d.Hierarchy, k1.Class, k2.Class)
}

// compareFields reports whether two field references denote the same field,
// or fields that cannot overlap. Stable field ids are preferred; raw type ids
// are only used when neither reference carries anything better.
func compareFields(a, b ir.FieldRef) (same, differ bool) {
	sameOwner := a.Owner != 0 && a.Owner == b.Owner
	switch {
	case a.ID != 0 && b.ID != 0:
		if a.ID == b.ID {
			return true, false
		}
		return false, sameOwner
	case a.Name != "" && b.Name != "":
		if sameOwner {
			return a.Name == b.Name, a.Name != b.Name
		}
		return false, false
	case a.ID == 0 && b.ID == 0 && a.Name == "" && b.Name == "":
		return a.TypeID != 0 && a.TypeID == b.TypeID, false
	}
	return false, false
}

// comparePropertyKeys compares the keys of two property accesses in the same
// mode.
func comparePropertyKeys(k1, k2 Key) (same, differ bool) {
	p1, p2 := k1.Prop, k2.Prop
	switch p1.Mode {
	case ir.PropByIndex:
		return p1.Index == p2.Index, p1.Index != p2.Index
	case ir.PropByName:
		return p1.Name == p2.Name, p1.Name != p2.Name
	}

	if k1.PropKey == nil || k2.PropKey == nil {
		return false, false
	}
	if k1.PropKey == k2.PropKey {
		return true, false
	}
	c1, ok1 := constantKey(k1.PropKey)
	c2, ok2 := constantKey(k2.PropKey)
	if ok1 && ok2 {
		return c1 == c2, c1 != c2
	}
	return false, false
}

type constKey struct {
	op  ir.Opcode
	val int64
}

func constantKey(v *ir.Inst) (constKey, bool) {
	switch v.Op {
	case ir.OpConstant:
		return constKey{v.Op, v.Imm}, true
	case ir.OpLoadConstPool:
		return constKey{v.Op, int64(v.Token)}, true
	}
	return constKey{}, false
}
