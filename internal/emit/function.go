package emit

import (
	"fmt"
	"strings"

	"bmbc/internal/mir"
)

// sretThreshold is spec.md §4.4.2 step 5's boundary: a struct return
// type with more than this many fields uses the sret ABI; 1 or 2 fields
// return as a small aggregate.
const sretThreshold = 2

// ReturnABI classifies how a function's return type crosses the LLVM
// ABI boundary (spec.md §4.4.2 step 5).
type ReturnABI int

const (
	ReturnDirect ReturnABI = iota
	ReturnSmallStruct
	ReturnSret
	ReturnTuple
)

// ClassifyReturn picks the return ABI for t.
func ClassifyReturn(t mir.Type) ReturnABI {
	switch v := t.(type) {
	case *mir.StructT:
		if len(v.Fields) > sretThreshold {
			return ReturnSret
		}
		return ReturnSmallStruct
	case *mir.TupleT:
		return ReturnTuple
	default:
		return ReturnDirect
	}
}

// smallStructAggregate renders the `{i64}`/`{i64,i64}` aggregate type for
// a small-struct return (spec.md §4.4.2 step 5).
func smallStructAggregate(s *mir.StructT) string {
	parts := make([]string, len(s.Fields))
	for i := range s.Fields {
		parts[i] = "i64"
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// EmitFunctionHeader renders a function's `define ...` line and picks its
// effective body-return type, per spec.md §4.4.2 step 5.
func EmitFunctionHeader(fn *mir.Function) (header string, bodyReturnType string, sretParam bool) {
	name := fn.Name
	if fn.IsMain {
		name = "bmb_user_main"
	}

	retABI := ClassifyReturn(fn.ReturnType)
	retLLVM := ""
	params := make([]string, 0, len(fn.Params)+1)

	switch retABI {
	case ReturnSret:
		retLLVM = "void"
		params = append(params, "ptr noalias sret(i8) %_sret")
		sretParam = true
		bodyReturnType = "void"
	case ReturnSmallStruct:
		agg := smallStructAggregate(fn.ReturnType.(*mir.StructT))
		retLLVM = agg
		bodyReturnType = agg
	case ReturnTuple:
		agg := TupleLLVMType(fn.ReturnType.(*mir.TupleT))
		retLLVM = agg
		bodyReturnType = agg
	default:
		retLLVM = ValueLLVMType(fn.ReturnType)
		bodyReturnType = retLLVM
	}

	for _, p := range fn.Params {
		t := LLVMType(p.Type)
		if _, isString := p.Type.(mir.StringT); isString {
			params = append(params, fmt.Sprintf("%s nocapture readonly %%%s", t, p.Name))
		} else {
			params = append(params, fmt.Sprintf("%s %%%s", t, p.Name))
		}
	}

	attrs := functionAttributes(fn)
	linkage := ""
	if fn.AlwaysInline && !fn.IsMain {
		linkage = "private "
	}

	header = fmt.Sprintf("define %s%s @%s(%s)%s {",
		linkage, retLLVM, name, strings.Join(params, ", "), attrs)
	return header, bodyReturnType, sretParam
}

// functionAttributes composes the attribute string per spec.md §4.4.2
// step 5: "alwaysinline, inlinehint, memory(none), all combined with
// nounwind willreturn mustprogress as applicable".
func functionAttributes(fn *mir.Function) string {
	var attrs []string
	if fn.AlwaysInline {
		attrs = append(attrs, "alwaysinline")
	}
	if fn.InlineHint {
		attrs = append(attrs, "inlinehint")
	}
	if fn.Pure {
		attrs = append(attrs, "memory(none)")
	}
	attrs = append(attrs, "nounwind", "willreturn", "mustprogress")
	return " " + strings.Join(attrs, " ")
}

// EmitAllocaEntry renders the artificial `alloca_entry:` block (spec.md
// §4.4.2 step 6): one alloca per stack-alloca local, followed by a
// branch to the first MIR block, renamed with the `bb_` prefix to avoid
// colliding with identifier names.
func EmitAllocaEntry(fn *mir.Function, allocas map[mir.Place]bool, pt *PlaceTypes) []string {
	lines := []string{"alloca_entry:"}
	for _, l := range fn.Locals {
		p := mir.Place(l.Name)
		if !allocas[p] {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %%%s.addr = alloca %s", l.Name, LLVMType(l.Type)))
	}
	if len(fn.Blocks) > 0 {
		lines = append(lines, fmt.Sprintf("  br label %%%s", BlockLabel(fn.Blocks[0].Label)))
	}
	return lines
}

// BlockLabel applies the `bb_` prefix spec.md §4.4.2 step 6 requires.
func BlockLabel(label string) string {
	if strings.HasPrefix(label, "bb_") {
		return label
	}
	return "bb_" + label
}
