package emit

import (
	"fmt"
	"sort"
	"strings"

	"bmbc/internal/mir"
)

// LLVMType renders an mir.Type into its LLVM textual spelling (spec.md
// §3, "Types (MIR)"). Strings are an opaque pointer to a three-word
// header, structs pass by value on the stack but are addressed through
// their named %struct.Name type, and Unit is void only in return
// position — value position is handled by the caller (ValueLLVMType).
func LLVMType(t mir.Type) string {
	switch v := t.(type) {
	case mir.I32, mir.U32:
		return "i32"
	case mir.I64, mir.U64:
		return "i64"
	case mir.F64:
		return "double"
	case mir.BoolT:
		return "i1"
	case mir.CharT:
		return "i32"
	case mir.StringT:
		return "ptr"
	case mir.UnitT:
		return "void"
	case *mir.StructT:
		return "%struct." + v.Name
	case *mir.StructPtrT:
		return "ptr"
	case *mir.PtrT:
		return "ptr"
	case *mir.ArrayT:
		return fmt.Sprintf("[%d x %s]", v.Size, LLVMType(v.Elem))
	case *mir.TupleT:
		return TupleLLVMType(v)
	case *mir.EnumT:
		return "%enum." + v.Name
	default:
		return "i64"
	}
}

// ValueLLVMType is LLVMType except Unit renders as i8, matching spec.md
// §3: "Unit (void in return, i8 0 in value position)".
func ValueLLVMType(t mir.Type) string {
	if _, ok := t.(mir.UnitT); ok {
		return "i8"
	}
	return LLVMType(t)
}

// TupleLLVMType renders a tuple's literal LLVM aggregate struct type,
// e.g. `{i64, double}`.
func TupleLLVMType(t *mir.TupleT) string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = ValueLLVMType(e)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// StructBody renders a struct definition's field list for a
// `%struct.Name = type { ... }` declaration.
func StructBody(s *mir.StructT) string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = ValueLLVMType(f)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// SortedStructNames returns a program's struct names in sorted order,
// for the deterministic emission spec.md §4.4.1 requires ("names sorted
// for deterministic output").
func SortedStructNames(prog *mir.Program) []string {
	names := make([]string, 0, len(prog.Structs))
	for name := range prog.Structs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// widenRank orders LLVM scalar types from narrowest to widest for the
// place-type widening precedence of spec.md §4.4.2: "ptr > double > i64
// > i32 > i1".
func widenRank(llvmType string) int {
	switch llvmType {
	case "i1":
		return 0
	case "i32":
		return 1
	case "i64":
		return 2
	case "double":
		return 3
	case "ptr":
		return 4
	default:
		return 2
	}
}

// Widest returns whichever of a, b has the higher widenRank.
func Widest(a, b string) string {
	if widenRank(b) > widenRank(a) {
		return b
	}
	return a
}
