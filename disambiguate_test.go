package alias_test

import (
	"testing"

	"github.com/BarrensZeppelin/alias"
	"github.com/BarrensZeppelin/alias/ir"
	"github.com/stretchr/testify/assert"
)

func element(idx alias.Index, elem ir.Type) alias.Pointer {
	return alias.Pointer{Kind: alias.ArrayElement, Key: alias.Key{Index: idx, Elem: elem}}
}

func known(v int64) alias.Index { return alias.Index{Known: true, Value: v, Width: 1} }

func TestDisambiguate(t *testing.T) {
	var d alias.Disambiguator
	must := func() alias.Verdict { return alias.MustAlias }
	may := func() alias.Verdict { return alias.MayAlias }
	never := func() alias.Verdict {
		t.Fatal("base verdict should not be needed")
		return alias.MayAlias
	}

	t.Run("Kinds", func(t *testing.T) {
		field := alias.Pointer{Kind: alias.ObjectField}
		assert.Equal(t, alias.ForceNo, d.Disambiguate(element(known(0), i32), field, never))
	})

	t.Run("Elements", func(t *testing.T) {
		assert.Equal(t, alias.ForceNo, d.Disambiguate(element(known(0), i32), element(known(0), ir.TypeInt8), never))
		assert.Equal(t, alias.ForceMust, d.Disambiguate(element(known(2), i32), element(known(2), i32), must))
		assert.Equal(t, alias.ForceNo, d.Disambiguate(element(known(1), i32), element(known(2), i32), must))
		assert.Equal(t, alias.Undecided, d.Disambiguate(element(known(1), i32), element(known(2), i32), may),
			"distinct indices of possibly distinct arrays")
		assert.Equal(t, alias.Undecided, d.Disambiguate(element(known(1), i32), element(alias.Index{Width: 1}, i32), never))
	})

	t.Run("StaticFields", func(t *testing.T) {
		s1 := alias.Pointer{Kind: alias.StaticField, Origin: alias.Origin{Kind: alias.OriginStatic, Type: 1, Name: "a"}}
		s2 := alias.Pointer{Kind: alias.StaticField, Origin: alias.Origin{Kind: alias.OriginStatic, Type: 1, Name: "b"}}
		assert.Equal(t, alias.ForceMust, d.Disambiguate(s1, s1, never))
		assert.Equal(t, alias.ForceNo, d.Disambiguate(s1, s2, never))
	})

	t.Run("Volatile", func(t *testing.T) {
		p := element(known(0), i32)
		v := p
		v.Volatile = true
		assert.Equal(t, alias.ForceMust, d.Disambiguate(p, p, must))
		assert.Equal(t, alias.Undecided, d.Disambiguate(p, v, must))
		assert.Equal(t, alias.Undecided, d.Disambiguate(v, v, must))
	})

	t.Run("FieldFallback", func(t *testing.T) {
		field := func(f ir.FieldRef) alias.Pointer {
			return alias.Pointer{Kind: alias.ObjectField, Key: alias.Key{Field: f}}
		}
		withID := field(ir.FieldRef{ID: 1, Owner: 1, TypeID: 9})
		rawOnly := field(ir.FieldRef{TypeID: 9})
		assert.Equal(t, alias.Undecided, d.Disambiguate(withID, rawOnly, never),
			"a raw type id is not compared against a field reference")
		assert.Equal(t, alias.ForceNo, d.Disambiguate(
			field(ir.FieldRef{ID: 1, Owner: 3}), field(ir.FieldRef{ID: 2, Owner: 3}), never))
		assert.Equal(t, alias.Undecided, d.Disambiguate(
			field(ir.FieldRef{ID: 1, Owner: 3}), field(ir.FieldRef{ID: 2, Owner: 4}), never))
	})
}
