package emit

import (
	"fmt"
	"strings"

	"bmbc/internal/mir"
)

// runtimeAliases resolves a builtin call name to its runtime entry point
// (spec.md §4.4.4, "Resolve runtime name aliases").
var runtimeAliases = map[string]string{
	"len":           "bmb_string_len",
	"println_i64":   "bmb_println_i64",
	"println_f64":   "bmb_println_f64",
	"print_i64":     "bmb_print_i64",
	"print_f64":     "bmb_print_f64",
	"println_str":   "bmb_println_str",
	"print_str":     "bmb_print_str",
	"str_concat":    "bmb_string_concat",
	"str_eq":        "bmb_string_eq",
}

// inlineBuiltins lowers inline rather than calling out (spec.md §4.4.4).
var inlineBuiltins = map[string]bool{
	"len": true, "byte_at": true, "char_at": true, "ord": true, "sqrt": true,
	"load_u8": true, "store_u8": true,
	"vec_new": true, "vec_with_capacity": true, "vec_len": true, "vec_cap": true,
	"vec_get": true, "vec_set": true, "vec_push": true, "vec_pop": true, "vec_free": true,
	"malloc": true, "free": true,
	"store_i64": true, "load_i64": true, "store_f64": true, "load_f64": true,
	"str_data": true,
}

// InstrContext bundles the per-function state an instruction lowering
// needs: the place-type map, stack-alloca set, tuple-variable-type map,
// string table, and name table for fresh SSA names.
type InstrContext struct {
	Places  *PlaceTypes
	Allocas map[mir.Place]bool
	Tuples  TupleTypes
	Strings *StringTable
	Names   *NameTable
	Structs map[string]*mir.StructT
	// Escaping marks struct-valued places that escape (spec.md §4.4.4
	// StructInit rule): returned, passed to a call, or copied.
	Escaping map[mir.Place]bool
	// Enums is the tagged-union definition table EnumVariantInst indexes
	// into for its discriminant ordinal and payload layout.
	Enums map[string]*mir.EnumT
	// FastMath gates the `fast` flag on float binops/negation (spec.md
	// §6 `fast_math`, default off: strict IEEE-754).
	FastMath bool
}

// LowerInstruction renders inst's LLVM lines per the policy table
// (spec.md §4.4.4). Guard instructions (BoundsCheckInst/NullCheckInst/
// DivCheckInst) are rendered only if the eliminator did not already
// remove them from the block.
func LowerInstruction(inst mir.Instruction, ctx *InstrContext) []string {
	switch v := inst.(type) {
	case mir.ConstInst:
		return lowerConst(v, ctx)
	case mir.CopyInst:
		return lowerCopy(v, ctx)
	case mir.BinOpInst:
		return lowerBinOp(v, ctx)
	case mir.UnaryOpInst:
		return lowerUnaryOp(v, ctx)
	case mir.CallInst:
		return lowerCall(v, ctx)
	case mir.FieldAccessInst:
		return lowerFieldAccess(v, ctx)
	case mir.FieldStoreInst:
		return lowerFieldStore(v, ctx)
	case mir.StructInitInst:
		return lowerStructInit(v, ctx)
	case mir.IndexLoadInst:
		return lowerIndexLoad(v, ctx)
	case mir.IndexStoreInst:
		return lowerIndexStore(v, ctx)
	case mir.CastInst:
		return lowerCast(v, ctx)
	case mir.TupleInitInst:
		return lowerTupleInit(v, ctx)
	case mir.TupleExtractInst:
		return lowerTupleExtract(v, ctx)
	case mir.BoundsCheckInst:
		return lowerBoundsCheck(v, ctx)
	case mir.NullCheckInst:
		return lowerNullCheck(v, ctx)
	case mir.DivCheckInst:
		return lowerDivCheck(v, ctx)
	case mir.ArrayInitInst:
		return lowerArrayInit(v, ctx)
	case mir.ArrayAllocInst:
		return lowerArrayAlloc(v, ctx)
	case mir.EnumVariantInst:
		return lowerEnumVariant(v, ctx)
	case mir.PtrOffsetInst:
		return lowerPtrOffset(v, ctx)
	case mir.PtrLoadInst:
		return lowerPtrLoad(v, ctx)
	case mir.PtrStoreInst:
		return lowerPtrStore(v, ctx)
	case mir.SelectInst:
		return lowerSelect(v, ctx)
	case mir.ConcurrencyInst:
		return lowerConcurrency(v, ctx)
	default:
		return nil
	}
}

func lowerConst(v mir.ConstInst, ctx *InstrContext) []string {
	if ctx.Allocas[v.Dest] {
		if sc, ok := v.Value.(mir.StringConst); ok {
			idx := ctx.Strings.Intern(string(sc))
			return []string{fmt.Sprintf("  store ptr %s, ptr %%%s.addr", ctx.Strings.HeaderGlobal(idx), v.Dest)}
		}
		t := ValueLLVMType(v.Type)
		return []string{fmt.Sprintf("  store %s %s, ptr %%%s.addr", t, v.Value.String(), v.Dest)}
	}
	return nil
}

func lowerCopy(v mir.CopyInst, ctx *InstrContext) []string {
	srcType := ctx.Places.Type(v.Src)
	dstType := ctx.Places.Type(v.Dest)
	switch {
	case srcType == "i64" && dstType == "i32":
		return []string{fmt.Sprintf("  %%%s = trunc i64 %%%s to i32", v.Dest, v.Src)}
	case srcType == "i32" && dstType == "i64":
		return []string{fmt.Sprintf("  %%%s = sext i32 %%%s to i64", v.Dest, v.Src)}
	case srcType == "ptr" && dstType == "ptr":
		return []string{fmt.Sprintf("  %%%s = select i1 true, ptr %%%s, ptr null", v.Dest, v.Src)}
	default:
		return []string{fmt.Sprintf("  %%%s = bitcast %s %%%s to %s", v.Dest, srcType, v.Src, dstType)}
	}
}

func lowerBinOp(v mir.BinOpInst, ctx *InstrContext) []string {
	lt := ctx.Places.Type(v.Left)
	rt := ctx.Places.Type(v.Right)
	t := Widest(lt, rt)

	if t == "ptr" {
		return lowerStringOrPtrBinOp(v, ctx)
	}
	if isComparisonOp(v.Op) {
		return lowerComparison(v, t, ctx)
	}
	if t == "double" {
		return lowerFloatBinOp(v, ctx)
	}
	return lowerIntBinOp(v, t, ctx)
}

func lowerStringOrPtrBinOp(v mir.BinOpInst, ctx *InstrContext) []string {
	switch v.Op {
	case "+":
		return []string{fmt.Sprintf("  %%%s = call ptr @bmb_string_concat(ptr %%%s, ptr %%%s)", v.Dest, v.Left, v.Right)}
	case "==", "!=":
		eq := ctx.Names.Unique("streq")
		lines := []string{fmt.Sprintf("  %%%s = call i1 @bmb_string_eq(ptr %%%s, ptr %%%s)", eq, v.Left, v.Right)}
		if v.Op == "!=" {
			lines = append(lines, fmt.Sprintf("  %%%s = xor i1 %%%s, true", v.Dest, eq))
		} else {
			lines = append(lines, fmt.Sprintf("  %%%s = select i1 true, i1 %%%s, i1 %%%s", v.Dest, eq, eq))
		}
		return lines
	default:
		return []string{fmt.Sprintf("  %%%s = icmp eq ptr %%%s, %%%s", v.Dest, v.Left, v.Right)}
	}
}

func lowerComparison(v mir.BinOpInst, t string, ctx *InstrContext) []string {
	pred := map[string]string{"==": "eq", "!=": "ne", "<": "slt", "<=": "sle", ">": "sgt", ">=": "sge"}[v.Op]
	if t == "double" {
		fpred := map[string]string{"==": "oeq", "!=": "one", "<": "olt", "<=": "ole", ">": "ogt", ">=": "oge"}[v.Op]
		return []string{fmt.Sprintf("  %%%s = fcmp %s double %%%s, %%%s", v.Dest, fpred, v.Left, v.Right)}
	}
	return []string{fmt.Sprintf("  %%%s = icmp %s %s %%%s, %%%s", v.Dest, pred, t, v.Left, v.Right)}
}

func lowerFloatBinOp(v mir.BinOpInst, ctx *InstrContext) []string {
	op := map[string]string{"+": "fadd", "-": "fsub", "*": "fmul", "/": "fdiv"}[v.Op]
	if ctx.FastMath {
		return []string{fmt.Sprintf("  %%%s = %s fast double %%%s, %%%s", v.Dest, op, v.Left, v.Right)}
	}
	return []string{fmt.Sprintf("  %%%s = %s double %%%s, %%%s", v.Dest, op, v.Left, v.Right)}
}

func lowerIntBinOp(v mir.BinOpInst, t string, ctx *InstrContext) []string {
	switch v.Op {
	case "+":
		return []string{fmt.Sprintf("  %%%s = add nsw %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "+w":
		return []string{fmt.Sprintf("  %%%s = add %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "-":
		return []string{fmt.Sprintf("  %%%s = sub nsw %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "-w":
		return []string{fmt.Sprintf("  %%%s = sub %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "*":
		return []string{fmt.Sprintf("  %%%s = mul nsw %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "*w":
		return []string{fmt.Sprintf("  %%%s = mul %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "/":
		return []string{fmt.Sprintf("  %%%s = sdiv %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "%":
		return []string{fmt.Sprintf("  %%%s = srem %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "&&":
		return []string{fmt.Sprintf("  %%%s = and %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	case "||":
		return []string{fmt.Sprintf("  %%%s = or %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	default:
		return []string{fmt.Sprintf("  %%%s = add nsw %s %%%s, %%%s", v.Dest, t, v.Left, v.Right)}
	}
}

func lowerUnaryOp(v mir.UnaryOpInst, ctx *InstrContext) []string {
	t := ctx.Places.Type(v.Operand)
	switch v.Op {
	case "-":
		if t == "double" {
			if ctx.FastMath {
				return []string{fmt.Sprintf("  %%%s = fneg fast double %%%s", v.Dest, v.Operand)}
			}
			return []string{fmt.Sprintf("  %%%s = fneg double %%%s", v.Dest, v.Operand)}
		}
		return []string{fmt.Sprintf("  %%%s = sub nsw %s 0, %%%s", v.Dest, t, v.Operand)}
	case "!":
		return []string{fmt.Sprintf("  %%%s = xor i1 %%%s, true", v.Dest, v.Operand)}
	default:
		return nil
	}
}

func lowerCall(v mir.CallInst, ctx *InstrContext) []string {
	if inlineBuiltins[v.Callee] {
		return lowerInlineBuiltin(v, ctx)
	}
	name := v.Callee
	if alias, ok := runtimeAliases[name]; ok {
		name = alias
	}
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = fmt.Sprintf("%s %%%s", ctx.Places.Type(a), a)
	}
	call := fmt.Sprintf("call %s @%s(%s)", callReturnType(v, ctx), name, strings.Join(args, ", "))
	if v.TailCall {
		call = "tail " + call
	}
	if v.Dest == "" {
		return []string{"  " + call}
	}
	return []string{fmt.Sprintf("  %%%s = %s", v.Dest, call)}
}

func callReturnType(v mir.CallInst, ctx *InstrContext) string {
	if v.Dest == "" {
		return "void"
	}
	return ctx.Places.Type(v.Dest)
}

// lowerInlineBuiltin covers §4.4.4's inline builtins: scalar helpers that
// are a single instruction, and the vector family, whose single
// allocation `[capacity:i64, length:i64, data:i64...]` layout (spec.md
// §4.4.4) every vec_* builtin here addresses directly with GEPs over
// the same base pointer — capacity at index 0, length at index 1, and
// element i at index i+2. vec_push stays runtime-delegated (the default
// call-form branch below), since growing the allocation and returning a
// (possibly relocated) handle is the one op in this family that needs
// logic beyond a fixed GEP sequence. byte_at, char_at and ord have no
// case of their own either and reach the same default branch, as calls
// to @bmb_byte_at, @bmb_char_at and @bmb_ord.
func lowerInlineBuiltin(v mir.CallInst, ctx *InstrContext) []string {
	switch v.Callee {
	case "len":
		return []string{fmt.Sprintf("  %%%s = call i64 @bmb_string_len(ptr %%%s)", v.Dest, v.Args[0])}
	case "sqrt":
		return []string{fmt.Sprintf("  %%%s = call double @llvm.sqrt.f64(double %%%s)", v.Dest, v.Args[0])}
	case "vec_len":
		p := ctx.Names.Unique("vec.len.gep")
		return []string{
			fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 1", p, v.Args[0]),
			fmt.Sprintf("  %%%s = load i64, ptr %%%s", v.Dest, p),
		}
	case "vec_cap":
		p := ctx.Names.Unique("vec.cap.gep")
		return []string{
			fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 0", p, v.Args[0]),
			fmt.Sprintf("  %%%s = load i64, ptr %%%s", v.Dest, p),
		}
	case "vec_new":
		capGep := ctx.Names.Unique("vec.new.cap.gep")
		lenGep := ctx.Names.Unique("vec.new.len.gep")
		return []string{
			fmt.Sprintf("  %%%s = call ptr @malloc(i64 80)", v.Dest),
			fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 0", capGep, v.Dest),
			fmt.Sprintf("  store i64 8, ptr %%%s", capGep),
			fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 1", lenGep, v.Dest),
			fmt.Sprintf("  store i64 0, ptr %%%s", lenGep),
		}
	case "vec_with_capacity":
		slots := ctx.Names.Unique("vec.wc.slots")
		bytes := ctx.Names.Unique("vec.wc.bytes")
		capGep := ctx.Names.Unique("vec.wc.cap.gep")
		lenGep := ctx.Names.Unique("vec.wc.len.gep")
		return []string{
			fmt.Sprintf("  %%%s = add i64 %%%s, 2", slots, v.Args[0]),
			fmt.Sprintf("  %%%s = mul i64 %%%s, 8", bytes, slots),
			fmt.Sprintf("  %%%s = call ptr @malloc(i64 %%%s)", v.Dest, bytes),
			fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 0", capGep, v.Dest),
			fmt.Sprintf("  store i64 %%%s, ptr %%%s", v.Args[0], capGep),
			fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 1", lenGep, v.Dest),
			fmt.Sprintf("  store i64 0, ptr %%%s", lenGep),
		}
	case "vec_get":
		elemType := ctx.Places.Type(v.Dest)
		off := ctx.Names.Unique("vec.get.off")
		gep := ctx.Names.Unique("vec.get.gep")
		return []string{
			fmt.Sprintf("  %%%s = add i64 %%%s, 2", off, v.Args[1]),
			fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i64 %%%s", gep, elemType, v.Args[0], off),
			fmt.Sprintf("  %%%s = load %s, ptr %%%s", v.Dest, elemType, gep),
		}
	case "vec_set":
		elemType := ctx.Places.Type(v.Args[2])
		off := ctx.Names.Unique("vec.set.off")
		gep := ctx.Names.Unique("vec.set.gep")
		return []string{
			fmt.Sprintf("  %%%s = add i64 %%%s, 2", off, v.Args[1]),
			fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i64 %%%s", gep, elemType, v.Args[0], off),
			fmt.Sprintf("  store %s %%%s, ptr %%%s", elemType, v.Args[2], gep),
		}
	case "vec_pop":
		elemType := ctx.Places.Type(v.Dest)
		lenGep := ctx.Names.Unique("vec.pop.len.gep")
		oldLen := ctx.Names.Unique("vec.pop.oldlen")
		newLen := ctx.Names.Unique("vec.pop.newlen")
		off := ctx.Names.Unique("vec.pop.off")
		elemGep := ctx.Names.Unique("vec.pop.gep")
		return []string{
			fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 1", lenGep, v.Args[0]),
			fmt.Sprintf("  %%%s = load i64, ptr %%%s", oldLen, lenGep),
			fmt.Sprintf("  %%%s = sub i64 %%%s, 1", newLen, oldLen),
			fmt.Sprintf("  store i64 %%%s, ptr %%%s", newLen, lenGep),
			fmt.Sprintf("  %%%s = add i64 %%%s, 2", off, newLen),
			fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i64 %%%s", elemGep, elemType, v.Args[0], off),
			fmt.Sprintf("  %%%s = load %s, ptr %%%s", v.Dest, elemType, elemGep),
		}
	case "vec_free":
		return []string{fmt.Sprintf("  call void @free(ptr %%%s)", v.Args[0])}
	case "load_u8":
		return []string{fmt.Sprintf("  %%%s = call i8 @bmb_load_u8(ptr %%%s)", v.Dest, v.Args[0])}
	case "store_u8":
		return []string{fmt.Sprintf("  call void @bmb_store_u8(ptr %%%s, i8 %%%s)", v.Args[0], v.Args[1])}
	case "malloc":
		return []string{fmt.Sprintf("  %%%s = call ptr @malloc(i64 %%%s)", v.Dest, v.Args[0])}
	case "free":
		return []string{fmt.Sprintf("  call void @free(ptr %%%s)", v.Args[0])}
	case "load_i64":
		return []string{fmt.Sprintf("  %%%s = load i64, ptr %%%s", v.Dest, v.Args[0])}
	case "store_i64":
		return []string{fmt.Sprintf("  store i64 %%%s, ptr %%%s", v.Args[1], v.Args[0])}
	case "load_f64":
		return []string{fmt.Sprintf("  %%%s = load double, ptr %%%s", v.Dest, v.Args[0])}
	case "store_f64":
		return []string{fmt.Sprintf("  store double %%%s, ptr %%%s", v.Args[1], v.Args[0])}
	case "str_data":
		return []string{fmt.Sprintf("  %%%s = call ptr @bmb_str_data(ptr %%%s)", v.Dest, v.Args[0])}
	default:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = fmt.Sprintf("%s %%%s", ctx.Places.Type(a), a)
		}
		ret := callReturnType(v, ctx)
		call := fmt.Sprintf("call %s @bmb_%s(%s)", ret, v.Callee, strings.Join(args, ", "))
		if v.Dest == "" {
			return []string{"  " + call}
		}
		return []string{fmt.Sprintf("  %%%s = %s", v.Dest, call)}
	}
}

func lowerFieldAccess(v mir.FieldAccessInst, ctx *InstrContext) []string {
	st := ctx.structOf(v.Base)
	fieldType := "i64"
	structType := "%struct.anon"
	if st != nil {
		structType = "%struct." + st.Name
		if v.Index < len(st.Fields) {
			fieldType = ValueLLVMType(st.Fields[v.Index])
		}
	}
	gep := ctx.Names.Unique("field.gep")
	return []string{
		fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i32 0, i32 %d", gep, structType, v.Base, v.Index),
		fmt.Sprintf("  %%%s = load %s, ptr %%%s", v.Dest, fieldType, gep),
	}
}

func lowerFieldStore(v mir.FieldStoreInst, ctx *InstrContext) []string {
	st := ctx.structOf(v.Base)
	fieldType := "i64"
	structType := "%struct.anon"
	if st != nil {
		structType = "%struct." + st.Name
		if v.Index < len(st.Fields) {
			fieldType = ValueLLVMType(st.Fields[v.Index])
		}
	}
	valType := ctx.Places.Type(v.Value)
	gep := ctx.Names.Unique("field.gep")
	lines := []string{fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i32 0, i32 %d", gep, structType, v.Base, v.Index)}
	if valType != fieldType && widenRank(valType) < widenRank(fieldType) {
		ext := ctx.Names.Unique("field.sext")
		lines = append(lines, fmt.Sprintf("  %%%s = sext %s %%%s to %s", ext, valType, v.Value, fieldType))
		lines = append(lines, fmt.Sprintf("  store %s %%%s, ptr %%%s", fieldType, ext, gep))
		return lines
	}
	lines = append(lines, fmt.Sprintf("  store %s %%%s, ptr %%%s", fieldType, v.Value, gep))
	return lines
}

// structOf resolves a place's struct definition for field-table lookups,
// best-effort from the place-type map's "%struct.Name" spelling.
func (ctx *InstrContext) structOf(p mir.Place) *mir.StructT {
	t := ctx.Places.Type(p)
	if !strings.HasPrefix(t, "%struct.") {
		return nil
	}
	name := strings.TrimPrefix(t, "%struct.")
	return ctx.Structs[name]
}

func lowerStructInit(v mir.StructInitInst, ctx *InstrContext) []string {
	st := ctx.Structs[v.Struct]
	numFields := len(v.Fields)
	if st != nil {
		numFields = len(st.Fields)
	}
	structType := "%struct." + v.Struct

	var lines []string
	if ctx.Escaping[v.Dest] {
		bytes := numFields * 8
		lines = append(lines, fmt.Sprintf("  %%%s = call ptr @malloc(i64 %d)", v.Dest, bytes))
	} else {
		lines = append(lines, fmt.Sprintf("  %%%s = alloca %s", v.Dest, structType))
	}
	for i, f := range v.Fields {
		fieldType := "i64"
		if st != nil && i < len(st.Fields) {
			fieldType = ValueLLVMType(st.Fields[i])
		}
		gep := ctx.Names.Unique("init.gep")
		lines = append(lines,
			fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i32 0, i32 %d", gep, structType, v.Dest, i),
			fmt.Sprintf("  store %s %%%s, ptr %%%s", fieldType, f, gep),
		)
	}
	return lines
}

func lowerIndexLoad(v mir.IndexLoadInst, ctx *InstrContext) []string {
	elemType := ctx.Places.Type(v.Dest)
	gep := ctx.Names.Unique("idx.gep")
	return []string{
		fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i64 %%%s", gep, elemType, v.Array, v.Index),
		fmt.Sprintf("  %%%s = load %s, ptr %%%s", v.Dest, elemType, gep),
	}
}

func lowerIndexStore(v mir.IndexStoreInst, ctx *InstrContext) []string {
	elemType := ctx.Places.Type(v.Value)
	gep := ctx.Names.Unique("idx.gep")
	return []string{
		fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i64 %%%s", gep, elemType, v.Array, v.Index),
		fmt.Sprintf("  store %s %%%s, ptr %%%s", elemType, v.Value, gep),
	}
}

func lowerCast(v mir.CastInst, ctx *InstrContext) []string {
	from := ValueLLVMType(v.From)
	to := ValueLLVMType(v.To)
	fromSigned := mir.IsSigned(v.From)

	switch {
	case from == to:
		return []string{fmt.Sprintf("  %%%s = select i1 true, %s %%%s, %s zeroinitializer", v.Dest, from, v.Operand, to)}
	case from == "double" && to != "double":
		return []string{fmt.Sprintf("  %%%s = fptosi double %%%s to %s", v.Dest, v.Operand, to)}
	case to == "double" && from != "double":
		op := "sitofp"
		if !fromSigned {
			op = "uitofp"
		}
		return []string{fmt.Sprintf("  %%%s = %s %s %%%s to double", v.Dest, op, from, v.Operand)}
	case from == "ptr" && to != "ptr":
		return []string{fmt.Sprintf("  %%%s = ptrtoint ptr %%%s to %s", v.Dest, v.Operand, to)}
	case to == "ptr" && from != "ptr":
		return []string{fmt.Sprintf("  %%%s = inttoptr %s %%%s to ptr", v.Dest, from, v.Operand)}
	case widenRank(to) > widenRank(from):
		op := "sext"
		if !fromSigned {
			op = "zext"
		}
		return []string{fmt.Sprintf("  %%%s = %s %s %%%s to %s", v.Dest, op, from, v.Operand, to)}
	case widenRank(to) < widenRank(from):
		return []string{fmt.Sprintf("  %%%s = trunc %s %%%s to %s", v.Dest, from, v.Operand, to)}
	default:
		return []string{fmt.Sprintf("  %%%s = bitcast %s %%%s to %s", v.Dest, from, v.Operand, to)}
	}
}

func lowerTupleInit(v mir.TupleInitInst, ctx *InstrContext) []string {
	tupType := ctx.Tuples[v.Dest]
	if tupType == "" {
		tupType = "{i64}"
	}
	var lines []string
	acc := "undef"
	for i, e := range v.Elems {
		elemType := ctx.Places.Type(e)
		next := ctx.Names.Unique("tuple.ins")
		lines = append(lines, fmt.Sprintf("  %%%s = insertvalue %s %s, %s %%%s, %d", next, tupType, acc, elemType, e, i))
		acc = "%" + next
	}
	lines = append(lines, fmt.Sprintf("  %%%s = select i1 true, %s %s, %s undef", v.Dest, tupType, acc, tupType))
	return lines
}

func lowerTupleExtract(v mir.TupleExtractInst, ctx *InstrContext) []string {
	tupType := ctx.Tuples[v.Tuple]
	if tupType == "" {
		tupType = "{i64}"
	}
	return []string{fmt.Sprintf("  %%%s = extractvalue %s %%%s, %d", v.Dest, tupType, v.Tuple, v.Index)}
}

func lowerBoundsCheck(v mir.BoundsCheckInst, ctx *InstrContext) []string {
	ok := ctx.Names.Unique("bc.ok")
	panicLbl := ctx.Names.Unique("bc.panic")
	contLbl := ctx.Names.Unique("bc.cont")
	lenP := ctx.Names.Unique("bc.len")
	return []string{
		fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 1", lenP, v.Array),
		fmt.Sprintf("  %%%s = icmp ult i64 %%%s, %%%s", ok, v.Index, lenP),
		fmt.Sprintf("  br i1 %%%s, label %%%s, label %%%s", ok, contLbl, panicLbl),
		fmt.Sprintf("%s:", panicLbl),
		"  call void @bmb_panic_bounds()",
		"  unreachable",
		fmt.Sprintf("%s:", contLbl),
	}
}

func lowerNullCheck(v mir.NullCheckInst, ctx *InstrContext) []string {
	ok := ctx.Names.Unique("nc.ok")
	panicLbl := ctx.Names.Unique("nc.panic")
	contLbl := ctx.Names.Unique("nc.cont")
	return []string{
		fmt.Sprintf("  %%%s = icmp ne ptr %%%s, null", ok, v.Base),
		fmt.Sprintf("  br i1 %%%s, label %%%s, label %%%s", ok, contLbl, panicLbl),
		fmt.Sprintf("%s:", panicLbl),
		"  call void @bmb_panic_null()",
		"  unreachable",
		fmt.Sprintf("%s:", contLbl),
	}
}

func lowerDivCheck(v mir.DivCheckInst, ctx *InstrContext) []string {
	ok := ctx.Names.Unique("dc.ok")
	panicLbl := ctx.Names.Unique("dc.panic")
	contLbl := ctx.Names.Unique("dc.cont")
	return []string{
		fmt.Sprintf("  %%%s = icmp ne i64 %%%s, 0", ok, v.Divisor),
		fmt.Sprintf("  br i1 %%%s, label %%%s, label %%%s", ok, contLbl, panicLbl),
		fmt.Sprintf("%s:", panicLbl),
		"  call void @bmb_panic_div0()",
		"  unreachable",
		fmt.Sprintf("%s:", contLbl),
	}
}

// lowerArrayInit heap-allocates a fixed-size array literal (mirroring
// lowerStructInit's heap path) and stores each element by the same
// single-index GEP convention lowerIndexLoad/lowerIndexStore address
// arrays with. The uniform 8-byte-slot sizing matches lowerStructInit's
// own numFields*8 simplification.
func lowerArrayInit(v mir.ArrayInitInst, ctx *InstrContext) []string {
	elemType := "i64"
	if len(v.Elems) > 0 {
		elemType = ctx.Places.Type(v.Elems[0])
	}
	bytesTotal := len(v.Elems) * 8
	lines := []string{fmt.Sprintf("  %%%s = call ptr @malloc(i64 %d)", v.Dest, bytesTotal)}
	for i, e := range v.Elems {
		gep := ctx.Names.Unique("arr.init.gep")
		lines = append(lines,
			fmt.Sprintf("  %%%s = getelementptr inbounds %s, ptr %%%s, i64 %d", gep, elemType, v.Dest, i),
			fmt.Sprintf("  store %s %%%s, ptr %%%s", elemType, e, gep),
		)
	}
	return lines
}

// lowerArrayAlloc heap-allocates Size elements of Elem, the dynamic-size
// counterpart to lowerArrayInit's literal form.
func lowerArrayAlloc(v mir.ArrayAllocInst, ctx *InstrContext) []string {
	elemBytes := mir.BitWidth(v.Elem) / 8
	if elemBytes == 0 {
		elemBytes = 8
	}
	bytes := ctx.Names.Unique("arr.alloc.bytes")
	return []string{
		fmt.Sprintf("  %%%s = mul i64 %%%s, %d", bytes, v.Size, elemBytes),
		fmt.Sprintf("  %%%s = call ptr @malloc(i64 %%%s)", v.Dest, bytes),
	}
}

// lowerEnumVariant heap-allocates {discriminant:i64, payload-words…}
// (spec.md §3, EnumT) and stores the variant's ordinal (looked up in
// ctx.Enums, falling back to 0 when the enum is unknown, mirroring
// structOf's best-effort fallback) followed by each payload value.
func lowerEnumVariant(v mir.EnumVariantInst, ctx *InstrContext) []string {
	ordinal := 0
	if en, ok := ctx.Enums[v.Enum]; ok {
		for i, name := range en.Order {
			if name == v.Variant {
				ordinal = i
				break
			}
		}
	}
	bytesTotal := (1 + len(v.Payload)) * 8
	tagGep := ctx.Names.Unique("enum.tag.gep")
	lines := []string{
		fmt.Sprintf("  %%%s = call ptr @malloc(i64 %d)", v.Dest, bytesTotal),
		fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 0", tagGep, v.Dest),
		fmt.Sprintf("  store i64 %d, ptr %%%s", ordinal, tagGep),
	}
	for i, p := range v.Payload {
		elemType := ctx.Places.Type(p)
		gep := ctx.Names.Unique("enum.payload.gep")
		lines = append(lines,
			fmt.Sprintf("  %%%s = getelementptr inbounds i64, ptr %%%s, i64 %d", gep, v.Dest, i+1),
			fmt.Sprintf("  store %s %%%s, ptr %%%s", elemType, p, gep),
		)
	}
	return lines
}

// lowerPtrOffset addresses Bytes past Base at byte granularity.
func lowerPtrOffset(v mir.PtrOffsetInst, ctx *InstrContext) []string {
	return []string{fmt.Sprintf("  %%%s = getelementptr inbounds i8, ptr %%%s, i64 %%%s", v.Dest, v.Base, v.Bytes)}
}

func lowerPtrLoad(v mir.PtrLoadInst, ctx *InstrContext) []string {
	t := ValueLLVMType(v.Type)
	return []string{fmt.Sprintf("  %%%s = load %s, ptr %%%s", v.Dest, t, v.Addr)}
}

func lowerPtrStore(v mir.PtrStoreInst, ctx *InstrContext) []string {
	t := ValueLLVMType(v.Type)
	return []string{fmt.Sprintf("  store %s %%%s, ptr %%%s", t, v.Value, v.Addr)}
}

func lowerSelect(v mir.SelectInst, ctx *InstrContext) []string {
	t := ctx.Places.Type(v.Dest)
	return []string{fmt.Sprintf("  %%%s = select i1 %%%s, %s %%%s, %s %%%s", v.Dest, v.Cond, t, v.IfTrue, t, v.IfFalse)}
}

// concurrencyReturnType maps a ConcurrencyInst's Kind to its runtime
// entry point's declared return type (module.go's runtimePreamble),
// since CallInst-style return-type inference from Dest's place type
// would guess wrong for the handful of Kinds that return i1 or void.
func concurrencyReturnType(kind string) string {
	switch kind {
	case "mutex.lock", "mutex.unlock", "rwlock.read_lock", "rwlock.write_lock", "rwlock.unlock", "thread.join",
		"condvar.wait", "condvar.signal", "barrier.wait",
		"channel.send", "scope.join", "atomic.store":
		return "void"
	case "atomic.cas":
		return "i1"
	default:
		return "i64"
	}
}

// lowerConcurrency lowers a concurrency-primitive instruction to its
// named runtime entry point using the i64-handle ABI (spec.md §5): Kind
// dot-separated segments join with "_" and gain the "bmb_" prefix
// (e.g. "thread.spawn" -> "bmb_thread_spawn"), matching the externs
// module.go's runtimePreamble already declares for this family. Every
// argument is treated as an i64-typed handle/value, per that same ABI.
func lowerConcurrency(v mir.ConcurrencyInst, ctx *InstrContext) []string {
	name := "bmb_" + strings.ReplaceAll(v.Kind, ".", "_")
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		args[i] = fmt.Sprintf("i64 %%%s", a)
	}
	ret := concurrencyReturnType(v.Kind)
	call := fmt.Sprintf("call %s @%s(%s)", ret, name, strings.Join(args, ", "))
	if v.Dest == "" || ret == "void" {
		return []string{"  " + call}
	}
	return []string{fmt.Sprintf("  %%%s = %s", v.Dest, call)}
}
