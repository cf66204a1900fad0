package alias

import (
	"fmt"

	"github.com/BarrensZeppelin/alias/ir"
)

// This file contains the definition of origins: the abstract heap objects
// that reference values and memory accesses are based on.

// OriginKind classifies where a heap object comes from.
type OriginKind uint8

const (
	// OriginNone is the null reference.
	OriginNone OriginKind = iota
	// OriginParameter is an object passed in by the caller.
	OriginParameter
	// OriginLocalAlloc is an object allocated by the analysed function.
	OriginLocalAlloc
	// OriginCallResult is an object returned by a call.
	OriginCallResult
	// OriginUnknown is an object of unknown provenance: a loaded reference, a
	// merge of different origins, or the result of an opaque instruction.
	OriginUnknown
	// OriginConstPool is a constant pool entry, such as an interned literal.
	OriginConstPool
	// OriginStatic is the process-global storage of a static field.
	OriginStatic
)

var originNames = [...]string{
	OriginNone:       "None",
	OriginParameter:  "Parameter",
	OriginLocalAlloc: "LocalAlloc",
	OriginCallResult: "CallResult",
	OriginUnknown:    "Unknown",
	OriginConstPool:  "ConstPool",
	OriginStatic:     "Static",
}

func (k OriginKind) String() string {
	if int(k) < len(originNames) {
		return originNames[k]
	}
	return fmt.Sprintf("OriginKind(%d)", k)
}

// Origin denotes an abstract heap object. Origins are comparable; two equal
// origins denote the same object.
type Origin struct {
	Kind OriginKind
	// Site is the defining instruction of Parameter, LocalAlloc, CallResult
	// and Unknown origins.
	Site *ir.Inst
	// Token is the constant pool entry of a ConstPool origin.
	Token uint32
	// Type, Name and Field identify the static field of a Static origin.
	// Type is the declaring type. Field is only set when the field has no
	// name.
	Type  ir.TypeID
	Name  string
	Field ir.FieldID
}

func (o Origin) String() string {
	switch o.Kind {
	case OriginNone:
		return "None"
	case OriginConstPool:
		return fmt.Sprintf("ConstPool(#%d)", o.Token)
	case OriginStatic:
		if o.Name != "" {
			return fmt.Sprintf("Static(T%d.%s)", o.Type, o.Name)
		}
		return fmt.Sprintf("Static(T%d.#%d)", o.Type, o.Field)
	default:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Site.Name())
	}
}

// IsExternal reports whether the object may have been created outside the
// analysed function.
func (o Origin) IsExternal() bool {
	switch o.Kind {
	case OriginParameter, OriginCallResult, OriginUnknown:
		return true
	}
	return false
}

func siteOrigin(kind OriginKind, site *ir.Inst) Origin {
	return Origin{Kind: kind, Site: site}
}

// staticOrigin returns the canonical origin of a static field: the field is
// resolved through the class hierarchy to its declaring type.
func staticOrigin(h ir.Hierarchy, f ir.FieldRef) Origin {
	if f.Name == "" {
		return Origin{Kind: OriginStatic, Type: f.Owner, Field: f.ID}
	}
	return Origin{Kind: OriginStatic, Type: ir.DeclaringType(h, f.Owner, f.Name), Name: f.Name}
}
