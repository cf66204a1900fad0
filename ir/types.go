package ir

import "fmt"

// Type is the static result type of an instruction. For memory accesses it
// is the type of the accessed element, for stores included.
type Type uint8

const (
	TypeVoid Type = iota
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeReference
	// TypeAny is an aggregate or otherwise unclassified value.
	TypeAny
)

var typeNames = [...]string{
	TypeVoid:      "void",
	TypeBool:      "bool",
	TypeInt8:      "i8",
	TypeInt16:     "i16",
	TypeInt32:     "i32",
	TypeInt64:     "i64",
	TypeUint8:     "u8",
	TypeUint16:    "u16",
	TypeUint32:    "u32",
	TypeUint64:    "u64",
	TypeFloat32:   "f32",
	TypeFloat64:   "f64",
	TypeReference: "ref",
	TypeAny:       "any",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

func (t Type) IsReference() bool { return t == TypeReference }

// IsPrimitive reports whether values of the type can never hold a reference.
func (t Type) IsPrimitive() bool {
	return t != TypeReference && t != TypeAny && t != TypeVoid
}

// Size returns the storage width in bytes, or 0 when it is unknown.
func (t Type) Size() int {
	switch t {
	case TypeBool, TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// Storage returns the canonical storage class of the type: signed and
// unsigned integers of the same width share one class.
func (t Type) Storage() Type {
	switch t {
	case TypeUint8:
		return TypeInt8
	case TypeUint16:
		return TypeInt16
	case TypeUint32:
		return TypeInt32
	case TypeUint64:
		return TypeInt64
	default:
		return t
	}
}

// TypeID identifies a class (or any named type) in the front end's type
// table. The zero value means "unknown".
type TypeID uint32

// FieldID is a stable field token supplied by the front end. The zero value
// means "unavailable".
type FieldID uint32

// FieldRef describes the field accessed by an object or static field access.
type FieldRef struct {
	// ID is the stable field reference. It is inheritance-correct and is
	// preferred over TypeID whenever present.
	ID FieldID
	// Owner is the type the field is accessed through (or declared in).
	Owner TypeID
	Name  string
	// TypeID is the raw type id carried by the access site. It is only used
	// when no ID is available.
	TypeID TypeID
}

func (f FieldRef) String() string {
	switch {
	case f.Name != "":
		return fmt.Sprintf("T%d.%s", f.Owner, f.Name)
	case f.ID != 0:
		return fmt.Sprintf("T%d.#%d", f.Owner, f.ID)
	default:
		return fmt.Sprintf("raw#%d", f.TypeID)
	}
}

// PropertyMode is the addressing mode of a dynamic property access.
type PropertyMode uint8

const (
	// PropByIndex accesses an array-like slot with a constant integer key.
	PropByIndex PropertyMode = iota
	// PropByName accesses a dictionary-like slot with a constant name.
	PropByName
	// PropByValue accesses a slot whose key is computed at run time; the key
	// is an operand of the instruction.
	PropByValue
)

func (m PropertyMode) String() string {
	switch m {
	case PropByIndex:
		return "by-index"
	case PropByName:
		return "by-name"
	case PropByValue:
		return "by-value"
	default:
		return fmt.Sprintf("PropertyMode(%d)", m)
	}
}

// Property is the constant part of a dynamic property access.
type Property struct {
	Mode  PropertyMode
	Name  string
	Index int64
}

func (p Property) String() string {
	switch p.Mode {
	case PropByIndex:
		return fmt.Sprintf("[%d]", p.Index)
	case PropByName:
		return fmt.Sprintf(".%s", p.Name)
	default:
		return "[?]"
	}
}

// Hierarchy answers the class hierarchy questions of the alias analysis.
type Hierarchy interface {
	// Parent returns the direct superclass of t, or 0 at a root.
	Parent(t TypeID) TypeID
	// Declares reports whether t itself declares the named field.
	Declares(t TypeID, field string) bool
}

// DeclaringType resolves the named field accessed through owner to the type
// that declares it. Without hierarchy information owner is returned as is.
func DeclaringType(h Hierarchy, owner TypeID, field string) TypeID {
	if h == nil || owner == 0 {
		return owner
	}
	for t := owner; t != 0; t = h.Parent(t) {
		if h.Declares(t, field) {
			return t
		}
	}
	return owner
}

// IsSubclass reports whether sub is super or one of its descendants.
func IsSubclass(h Hierarchy, sub, super TypeID) bool {
	if sub == super {
		return true
	}
	if h == nil {
		return false
	}
	for t := h.Parent(sub); t != 0; t = h.Parent(t) {
		if t == super {
			return true
		}
	}
	return false
}

// Related reports whether values of classes a and b may be the same object,
// that is whether one is a subclass of the other. Classes the hierarchy does
// not know are related to everything, as is every class when h is nil.
func Related(h Hierarchy, a, b TypeID) bool {
	if a == 0 || b == 0 || h == nil {
		return true
	}
	if d, ok := h.(interface{ Defines(TypeID) bool }); ok && (!d.Defines(a) || !d.Defines(b)) {
		return true
	}
	return IsSubclass(h, a, b) || IsSubclass(h, b, a)
}

type classInfo struct {
	name   string
	parent TypeID
	fields map[string]bool
}

// ClassTable is a Hierarchy backed by explicit class definitions.
type ClassTable struct {
	classes map[TypeID]*classInfo
}

func NewClassTable() *ClassTable {
	return &ClassTable{classes: make(map[TypeID]*classInfo)}
}

// Define adds (or replaces) a class with the given parent and declared
// fields.
func (c *ClassTable) Define(id TypeID, name string, parent TypeID, fields ...string) {
	info := &classInfo{name: name, parent: parent, fields: make(map[string]bool, len(fields))}
	for _, f := range fields {
		info.fields[f] = true
	}
	c.classes[id] = info
}

// Defines reports whether t was added with Define.
func (c *ClassTable) Defines(t TypeID) bool { return c.classes[t] != nil }

func (c *ClassTable) Parent(t TypeID) TypeID {
	if info := c.classes[t]; info != nil {
		return info.parent
	}
	return 0
}

func (c *ClassTable) Declares(t TypeID, field string) bool {
	info := c.classes[t]
	return info != nil && info.fields[field]
}

func (c *ClassTable) Name(t TypeID) string {
	if info := c.classes[t]; info != nil {
		return info.name
	}
	return fmt.Sprintf("T%d", t)
}
