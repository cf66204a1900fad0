package goir

import (
	"fmt"
	"go/types"
	"strings"

	"github.com/BarrensZeppelin/alias/ir"
	"golang.org/x/tools/go/types/typeutil"
)

// PointerLike reports whether values of type t refer to memory.
func PointerLike(t types.Type) bool {
	switch t := t.(type) {
	case *types.Pointer,
		*types.Map,
		*types.Chan,
		*types.Slice,
		*types.Interface,
		*types.Signature:
		return true
	case *types.Named:
		return PointerLike(t.Underlying())
	default:
		return false
	}
}

// Tables interns Go types, fields and string constants into the
// identifiers used by ir graphs. A Tables value may be shared by the graphs
// of several functions, but not concurrently.
type Tables struct {
	types   typeutil.Map
	fields  map[fieldKey]ir.FieldID
	strings map[string]uint32

	nextType  ir.TypeID
	nextField ir.FieldID
}

type fieldKey struct {
	owner ir.TypeID
	path  string
}

func NewTables() *Tables {
	tab := &Tables{
		fields:  make(map[fieldKey]ir.FieldID),
		strings: make(map[string]uint32),
	}
	tab.types.SetHasher(typeutil.MakeHasher())
	return tab
}

// TypeID returns the identifier of t. Identical types share an identifier.
func (tab *Tables) TypeID(t types.Type) ir.TypeID {
	if id, ok := tab.types.At(t).(ir.TypeID); ok {
		return id
	}
	tab.nextType++
	tab.types.Set(t, tab.nextType)
	return tab.nextType
}

func (tab *Tables) fieldID(owner ir.TypeID, path string) ir.FieldID {
	key := fieldKey{owner, path}
	if id, ok := tab.fields[key]; ok {
		return id
	}
	tab.nextField++
	tab.fields[key] = tab.nextField
	return tab.nextField
}

// Field returns the reference of the field at path (dot separated field
// names) inside the struct type owner.
func (tab *Tables) Field(owner types.Type, path string) ir.FieldRef {
	id := tab.TypeID(owner)
	return ir.FieldRef{ID: tab.fieldID(id, path), Owner: id, Name: path, TypeID: id}
}

// Deref returns the pseudo field read and written through pointers to
// elem.
func (tab *Tables) Deref(elem types.Type) ir.FieldRef {
	return tab.Field(elem, "*")
}

// Token returns the constant pool entry of a string literal.
func (tab *Tables) Token(s string) uint32 {
	if tok, ok := tab.strings[s]; ok {
		return tok
	}
	tok := uint32(len(tab.strings) + 1)
	tab.strings[s] = tok
	return tok
}

// Type maps a Go type to the ir type of its values. Strings, pointers and
// other reference types are references; aggregates are TypeAny.
func (tab *Tables) Type(t types.Type) ir.Type {
	if _, ok := t.(*types.TypeParam); ok {
		return ir.TypeAny
	}
	switch u := t.Underlying().(type) {
	case *types.Basic:
		return basicType(u)
	case *types.Struct, *types.Array, *types.Tuple:
		return ir.TypeAny
	default:
		if PointerLike(u) {
			return ir.TypeReference
		}
		return ir.TypeAny
	}
}

func basicType(b *types.Basic) ir.Type {
	switch b.Kind() {
	case types.Bool, types.UntypedBool:
		return ir.TypeBool
	case types.Int8:
		return ir.TypeInt8
	case types.Int16:
		return ir.TypeInt16
	case types.Int32, types.UntypedRune:
		return ir.TypeInt32
	case types.Int, types.Int64, types.UntypedInt:
		return ir.TypeInt64
	case types.Uint8:
		return ir.TypeUint8
	case types.Uint16:
		return ir.TypeUint16
	case types.Uint32:
		return ir.TypeUint32
	case types.Uint, types.Uint64, types.Uintptr:
		return ir.TypeUint64
	case types.Float32:
		return ir.TypeFloat32
	case types.Float64, types.UntypedFloat:
		return ir.TypeFloat64
	case types.String, types.UntypedString, types.UnsafePointer, types.UntypedNil:
		return ir.TypeReference
	case types.Invalid:
		return ir.TypeVoid
	default:
		return ir.TypeAny
	}
}

// elementClass returns the class recorded on array accesses to elements of
// type elem.
func (tab *Tables) elementClass(elem types.Type) ir.TypeID {
	if tab.Type(elem) != ir.TypeReference {
		return 0
	}
	return tab.TypeID(elem)
}

func deref(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

// fieldName returns a name for field i of st that is unique within st.
func fieldName(st *types.Struct, i int) string {
	name := st.Field(i).Name()
	if name == "_" || strings.Contains(name, ".") {
		return fmt.Sprintf("_%d", i)
	}
	return name
}
