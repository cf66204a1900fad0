package alias

import "fmt"

// Verdict is the result of an alias query.
type Verdict uint8

const (
	// NoAlias: the two locations are definitely different.
	NoAlias Verdict = iota
	// MayAlias: the two locations may or may not be the same.
	MayAlias
	// MustAlias: the two locations are definitely the same.
	MustAlias
)

func (v Verdict) String() string {
	switch v {
	case NoAlias:
		return "NoAlias"
	case MayAlias:
		return "MayAlias"
	case MustAlias:
		return "MustAlias"
	default:
		return fmt.Sprintf("Verdict(%d)", v)
	}
}

// Decision is the outcome of key based disambiguation.
type Decision uint8

const (
	// Undecided: the keys do not settle the query. The base verdict is used,
	// capped at MayAlias.
	Undecided Decision = iota
	ForceNo
	ForceMust
)

func (d Decision) String() string {
	switch d {
	case Undecided:
		return "Undecided"
	case ForceNo:
		return "ForceNo"
	case ForceMust:
		return "ForceMust"
	default:
		return fmt.Sprintf("Decision(%d)", d)
	}
}
