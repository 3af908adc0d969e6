package emit

import (
	"fmt"
	"strings"

	"bmbc/internal/mir"
)

// EmitModule renders prog as a complete, self-contained LLVM IR text
// module (spec.md §4.4: "piping it through an external C-compatible
// toolchain yields a working object file"). targetKey (an "arch-os" key
// or a full triple, see ResolveTarget) selects the datalayout/triple
// pair (spec.md §4.4.1); empty or unknown defaults to x86_64-linux.
// fastMath gates the `fast` flag on float binops/negation (spec.md §6
// `fast_math`, default off: strict IEEE-754).
func EmitModule(prog *mir.Program, targetKey string, fastMath bool) string {
	strs := CollectStrings(prog)

	var body strings.Builder
	for _, fn := range prog.Functions {
		body.WriteString(EmitFunction(fn, prog, strs, fastMath))
		body.WriteString("\n")
	}

	var out strings.Builder
	out.WriteString(EmitPrologue(prog, targetKey, strs))
	out.WriteString(body.String())
	return out.String()
}

// EmitFunction renders one function's full definition: header,
// alloca_entry block, and every MIR block in order, with phi lowering
// spliced in before each block's terminator.
func EmitFunction(fn *mir.Function, prog *mir.Program, strs *StringTable, fastMath bool) string {
	pt, _, allocas := BuildPlaceTypes(fn)
	names := NewNameTable()
	tuples := BuildTupleTypes(fn, func(callee string) mir.Type {
		for _, other := range prog.Functions {
			if other.Name == callee {
				return other.ReturnType
			}
		}
		return nil
	})
	escaping := findEscapingStructs(fn)
	phiLowering := BuildPhiLowering(fn, pt, allocas, strs, names)

	ctx := &InstrContext{
		Places:   pt,
		Allocas:  allocas,
		Tuples:   tuples,
		Strings:  strs,
		Names:    names,
		Structs:  prog.Structs,
		Escaping: escaping,
		Enums:    prog.Enums,
		FastMath: fastMath,
	}

	header, bodyReturnType, sretParam := EmitFunctionHeader(fn)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")

	for _, line := range EmitAllocaEntry(fn, allocas, pt) {
		b.WriteString(line)
		b.WriteString("\n")
	}

	for _, blk := range fn.Blocks {
		b.WriteString(BlockLabel(blk.Label))
		b.WriteString(":\n")

		for _, inst := range blk.Instructions {
			if phi, ok := inst.(mir.PhiInst); ok {
				b.WriteString(emitPhi(phi, pt, phiLowering))
				continue
			}
			for _, line := range LowerInstruction(inst, ctx) {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}

		for _, line := range phiLowering.InsertionsFor(blk.Label) {
			b.WriteString(line)
			b.WriteString("\n")
		}

		b.WriteString(emitTerminator(blk.Terminator, bodyReturnType, sretParam, fn, ctx))
	}

	b.WriteString("}\n")
	return b.String()
}

func emitPhi(phi mir.PhiInst, pt *PlaceTypes, pl *PhiLowering) string {
	t := pt.Type(phi.Dest)
	parts := make([]string, 0, len(phi.InputOrder))
	for _, pred := range phi.InputOrder {
		operand := pl.OperandFor(phi.Dest, pred, "%"+string(phi.Inputs[pred]))
		parts = append(parts, fmt.Sprintf("[ %s, %%%s ]", operand, BlockLabel(pred)))
	}
	return fmt.Sprintf("  %%%s = phi %s %s\n", phi.Dest, t, strings.Join(parts, ", "))
}

func emitTerminator(term mir.Terminator, bodyReturnType string, sretParam bool, fn *mir.Function, ctx *InstrContext) string {
	switch v := term.(type) {
	case mir.ReturnTerm:
		return emitReturn(v, bodyReturnType, sretParam, fn, ctx)
	case mir.GotoTerm:
		return fmt.Sprintf("  br label %%%s\n", BlockLabel(v.Target))
	case mir.BranchTerm:
		return fmt.Sprintf("  br i1 %%%s, label %%%s, label %%%s\n", v.Cond, BlockLabel(v.TrueTarget), BlockLabel(v.FalseTarget))
	case mir.SwitchTerm:
		var cases strings.Builder
		for _, k := range v.CaseOrder {
			fmt.Fprintf(&cases, "i64 %d, label %%%s ", k, BlockLabel(v.Cases[k]))
		}
		def := v.Default
		if def == "" {
			def = "bb_unreachable"
		}
		return fmt.Sprintf("  switch i64 %%%s, label %%%s [ %s]\n", v.Value, BlockLabel(def), cases.String())
	case mir.UnreachableTerm:
		return "  unreachable\n"
	default:
		return "  unreachable\n"
	}
}

// emitReturn implements spec.md §4.4.4's Return policy: small-struct
// packs via insertvalue, sret copies fields then returns void, tuples
// return the aggregate directly, and narrow-to-wide/ i64-to-ptr
// mismatches are bridged.
func emitReturn(v mir.ReturnTerm, bodyReturnType string, sretParam bool, fn *mir.Function, ctx *InstrContext) string {
	if sretParam {
		st := fn.ReturnType.(*mir.StructT)
		var b strings.Builder
		for i := range st.Fields {
			fieldType := ValueLLVMType(st.Fields[i])
			gep := ctx.Names.Unique("ret.sret.gep")
			srcGep := ctx.Names.Unique("ret.src.gep")
			fmt.Fprintf(&b, "  %%%s = getelementptr inbounds %%struct.%s, ptr %%%s, i32 0, i32 %d\n", srcGep, st.Name, v.Value, i)
			loaded := ctx.Names.Unique("ret.field")
			fmt.Fprintf(&b, "  %%%s = load %s, ptr %%%s\n", loaded, fieldType, srcGep)
			fmt.Fprintf(&b, "  %%%s = getelementptr inbounds %%struct.%s, ptr %%_sret, i32 0, i32 %d\n", gep, st.Name, i)
			fmt.Fprintf(&b, "  store %s %%%s, ptr %%%s\n", fieldType, loaded, gep)
		}
		b.WriteString("  ret void\n")
		return b.String()
	}

	if bodyReturnType == "void" {
		return "  ret void\n"
	}

	if v.Value == "" {
		if bodyReturnType == "i8" {
			return "  ret i8 0\n"
		}
		return fmt.Sprintf("  ret %s zeroinitializer\n", bodyReturnType)
	}

	valType := ctx.Places.Type(v.Value)
	if valType == bodyReturnType {
		return fmt.Sprintf("  ret %s %%%s\n", bodyReturnType, v.Value)
	}

	var b strings.Builder
	name := ctx.Names.Unique("ret.coerce")
	switch {
	case bodyReturnType == "ptr" && valType != "ptr":
		fmt.Fprintf(&b, "  %%%s = inttoptr %s %%%s to ptr\n", name, valType, v.Value)
	case widenRank(bodyReturnType) > widenRank(valType):
		fmt.Fprintf(&b, "  %%%s = sext %s %%%s to %s\n", name, valType, v.Value, bodyReturnType)
	default:
		fmt.Fprintf(&b, "  %%%s = bitcast %s %%%s to %s\n", name, valType, v.Value, bodyReturnType)
	}
	fmt.Fprintf(&b, "  ret %s %%%s\n", bodyReturnType, name)
	return b.String()
}

// findEscapingStructs implements spec.md §9's escape analysis: a
// StructInit's place escapes if it occurs as a return value, call
// argument, Copy source, or phi input anywhere in the function. Any
// such occurrence marks the struct as escaped, forcing heap allocation;
// false positives cost performance, not correctness.
func findEscapingStructs(fn *mir.Function) map[mir.Place]bool {
	escaping := map[mir.Place]bool{}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			switch v := inst.(type) {
			case mir.CallInst:
				for _, a := range v.Args {
					escaping[a] = true
				}
			case mir.CopyInst:
				escaping[v.Src] = true
			case mir.PhiInst:
				for _, src := range v.Inputs {
					escaping[src] = true
				}
			}
		}
		if ret, ok := b.Terminator.(mir.ReturnTerm); ok && ret.Value != "" {
			escaping[ret.Value] = true
		}
	}
	return escaping
}
