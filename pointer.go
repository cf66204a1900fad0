package alias

import (
	"fmt"
	"strings"

	"github.com/BarrensZeppelin/alias/ir"
)

// AccessKind is the kind of location a Pointer denotes.
type AccessKind uint8

const (
	// WholeObject is a reference value itself rather than a location in it.
	WholeObject AccessKind = iota
	ArrayElement
	ObjectField
	StaticField
	DynamicProperty
)

func (k AccessKind) String() string {
	switch k {
	case WholeObject:
		return "object"
	case ArrayElement:
		return "element"
	case ObjectField:
		return "field"
	case StaticField:
		return "static"
	case DynamicProperty:
		return "property"
	default:
		return fmt.Sprintf("AccessKind(%d)", k)
	}
}

// Index is the element range [Value, Value+Width) of an array access. When
// Sym is set the range is relative to the run-time value of Sym; otherwise
// the index is a known constant if Known is set, and unknown if not.
type Index struct {
	Known bool
	Sym   *ir.Inst
	Value int64
	Width int64
}

func (x Index) String() string {
	var s string
	switch {
	case x.Known:
		s = fmt.Sprint(x.Value)
	case x.Sym != nil && x.Value != 0:
		s = fmt.Sprintf("%s%+d", x.Sym.Name(), x.Value)
	case x.Sym != nil:
		s = x.Sym.Name()
	default:
		s = "?"
	}
	if x.Width > 1 {
		s += fmt.Sprintf(":%d", x.Width)
	}
	return s
}

// compare reports whether two indices denote the same range, or ranges
// that cannot overlap. Both are false when the indices are not comparable.
func (x Index) compare(y Index) (same, disjoint bool) {
	ok := x.Known && y.Known || x.Sym != nil && x.Sym == y.Sym
	if !ok {
		return false, false
	}
	if x.Value == y.Value && x.Width == y.Width {
		return true, false
	}
	return false, x.Value+x.Width <= y.Value || y.Value+y.Width <= x.Value
}

// Key discriminates locations within an access kind.
type Key struct {
	// ArrayElement
	Index Index
	Elem  ir.Type
	Class ir.TypeID

	// ObjectField. Named fields have their Owner resolved to the declaring
	// type.
	Field ir.FieldRef

	// DynamicProperty. PropKey is the key operand of by-value accesses.
	Prop    ir.Property
	PropKey *ir.Inst
}

// Pointer is the abstract location denoted by a reference value or a memory
// access.
type Pointer struct {
	Origin Origin
	Kind   AccessKind
	Key    Key

	Volatile bool
	// LocalCreated is set when Origin is a local allocation that dominates
	// the classified instruction.
	LocalCreated bool
	// Escaped is set when the object may be reachable from outside the
	// analysed function.
	Escaped bool

	// Site is the classified instruction and Base the reference value the
	// origin was derived from, after pass-through guards are skipped. Base
	// is nil for static fields.
	Site *ir.Inst
	Base *ir.Inst
}

func (p Pointer) String() string {
	var sb strings.Builder
	sb.WriteString(p.Origin.String())
	switch p.Kind {
	case ArrayElement:
		fmt.Fprintf(&sb, "[%s].%s", p.Key.Index, p.Key.Elem)
	case ObjectField:
		fmt.Fprintf(&sb, ".%s", p.Key.Field)
	case DynamicProperty:
		if p.Key.PropKey != nil {
			fmt.Fprintf(&sb, "[%s]", p.Key.PropKey.Name())
		} else {
			sb.WriteString(p.Key.Prop.String())
		}
	}
	var flags []string
	if p.Volatile {
		flags = append(flags, "volatile")
	}
	if p.LocalCreated {
		flags = append(flags, "local")
	}
	if p.Escaped {
		flags = append(flags, "escaped")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&sb, " {%s}", strings.Join(flags, ","))
	}
	return sb.String()
}
