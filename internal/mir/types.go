// Package mir implements the mid-level IR: functions of ordered basic
// blocks with SSA-style temporaries, allocas for mutable locals, explicit
// phi nodes, and a terminator per block (spec.md §3, "MIR").
//
// The shape of this package — a Program of Functions of BasicBlocks, an
// Instruction/Terminator interface pair, and a pass-based optimizer — is
// adapted from this repository's teacher, whose internal/ir package is
// exactly this structure aimed at an EVM backend; the EVM-specific
// instructions (storage slots, ABI/event encoding, keccak) are replaced
// here with this spec's instruction and type catalog.
package mir

import "fmt"

// Type is the sum type of spec.md §3 ("Types (MIR)"). I32/I64/U32/U64
// share one LLVM representation (i32/i64); signedness is a per-operation
// choice made at emission (spec.md §9, "Open question — signed vs.
// unsigned types").
type Type interface {
	String() string
	isType()
}

type I32 struct{}
type I64 struct{}
type U32 struct{}
type U64 struct{}
type F64 struct{}
type BoolT struct{}
type CharT struct{}
type StringT struct{}
type UnitT struct{}

// StructT is a by-value struct, passed as a pointer at the ABI boundary
// (spec.md §4.4.2's sret/aggregate rules decide exactly how).
type StructT struct {
	Name   string
	Fields []Type
}

// StructPtrT is a pointer specifically to a struct value (as opposed to a
// generic PtrT), used where the emitter needs to know field layout
// through the pointer (FieldAccess/FieldStore on a pointer receiver).
type StructPtrT struct{ Of *StructT }

// PtrT is a pointer to Elem.
type PtrT struct{ Elem Type }

// ArrayT is a fixed-size array of Elem.
type ArrayT struct {
	Elem Type
	Size int
}

// TupleT is a heterogeneous fixed-arity aggregate.
type TupleT struct{ Elems []Type }

// EnumT is a tagged union: stored as {discriminant:i64, payload-words…}.
// Variants maps a variant name to its payload field types, in the
// canonical order used for payload-word layout.
type EnumT struct {
	Name     string
	Variants map[string][]Type
	// Order fixes variant declaration order for deterministic emission.
	Order []string
}

func (I32) isType()        {}
func (I64) isType()        {}
func (U32) isType()        {}
func (U64) isType()        {}
func (F64) isType()        {}
func (BoolT) isType()      {}
func (CharT) isType()      {}
func (StringT) isType()    {}
func (UnitT) isType()      {}
func (*StructT) isType()   {}
func (*StructPtrT) isType() {}
func (*PtrT) isType()      {}
func (*ArrayT) isType()    {}
func (*TupleT) isType()    {}
func (*EnumT) isType()     {}

func (I32) String() string     { return "i32" }
func (I64) String() string     { return "i64" }
func (U32) String() string     { return "u32" }
func (U64) String() string     { return "u64" }
func (F64) String() string     { return "f64" }
func (BoolT) String() string   { return "bool" }
func (CharT) String() string   { return "char" }
func (StringT) String() string { return "string" }
func (UnitT) String() string   { return "unit" }

func (s *StructT) String() string {
	return fmt.Sprintf("struct %s", s.Name)
}

func (s *StructPtrT) String() string {
	if s.Of != nil {
		return fmt.Sprintf("*struct %s", s.Of.Name)
	}
	return "*struct"
}

func (p *PtrT) String() string { return "*" + p.Elem.String() }

func (a *ArrayT) String() string {
	return fmt.Sprintf("[%s; %d]", a.Elem.String(), a.Size)
}

func (t *TupleT) String() string {
	s := "("
	for i, e := range t.Elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + ")"
}

func (e *EnumT) String() string { return fmt.Sprintf("enum %s", e.Name) }

// IsInteger reports whether t is one of I32/I64/U32/U64.
func IsInteger(t Type) bool {
	switch t.(type) {
	case I32, I64, U32, U64:
		return true
	default:
		return false
	}
}

// IsSigned reports whether t's arithmetic is the signed family (I32/I64)
// as opposed to unsigned (U32/U64). Integer arithmetic and comparisons
// lower to the signed forms for every integer type; casts consult
// IsSigned (lowerCast in internal/emit picks zext/uitofp for an unsigned
// source).
func IsSigned(t Type) bool {
	switch t.(type) {
	case I32, I64:
		return true
	default:
		return false
	}
}

// BitWidth returns 32 or 64 for the integer family, 64 for F64/pointers
// (opaque, width is immaterial), and 1 for BoolT.
func BitWidth(t Type) int {
	switch t.(type) {
	case I32, U32:
		return 32
	case I64, U64:
		return 64
	case CharT:
		return 32
	case BoolT:
		return 1
	case F64:
		return 64
	default:
		return 64
	}
}

// Constant is the sum type of spec.md §3 ("Constant").
type Constant interface {
	isConstant()
	String() string
}

type IntConst int64
type FloatConst float64
type BoolConst bool
type StringConst string
type CharConst rune
type UnitConst struct{}

func (IntConst) isConstant()    {}
func (FloatConst) isConstant()  {}
func (BoolConst) isConstant()   {}
func (StringConst) isConstant() {}
func (CharConst) isConstant()   {}
func (UnitConst) isConstant()   {}

func (c IntConst) String() string    { return fmt.Sprintf("%d", int64(c)) }
func (c FloatConst) String() string  { return fmt.Sprintf("%g", float64(c)) }
func (c BoolConst) String() string   { return fmt.Sprintf("%t", bool(c)) }
func (c StringConst) String() string { return fmt.Sprintf("%q", string(c)) }
func (c CharConst) String() string   { return fmt.Sprintf("%q", rune(c)) }
func (UnitConst) String() string     { return "()" }
