package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/mir"
)

func newTestCtx() *InstrContext {
	pt, _, allocas := BuildPlaceTypes(&mir.Function{})
	return &InstrContext{
		Places:  pt,
		Allocas: allocas,
		Tuples:  TupleTypes{},
		Strings: NewStringTable(),
		Names:   NewNameTable(),
		Structs: map[string]*mir.StructT{},
		Enums:   map[string]*mir.EnumT{},
	}
}

func TestLowerBinOpIntAddIsNSW(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.BinOpInst{Dest: "r", Op: "+", Left: "a", Right: "b"}, ctx)
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "add nsw")
}

func TestLowerBinOpWrappingOmitsNSW(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.BinOpInst{Dest: "r", Op: "+w", Left: "a", Right: "b"}, ctx)
	assert.NotContains(t, strings.Join(lines, "\n"), "nsw")
}

func TestLowerBinOpComparisonProducesICmp(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.BinOpInst{Dest: "r", Op: "<", Left: "a", Right: "b"}, ctx)
	assert.Contains(t, lines[0], "icmp slt")
}

func TestLowerCastWideningUsesSext(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CastInst{Dest: "r", Operand: "x", From: mir.I32{}, To: mir.I64{}}, ctx)
	assert.Contains(t, lines[0], "sext")
}

func TestLowerCastNarrowingUsesTrunc(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CastInst{Dest: "r", Operand: "x", From: mir.I64{}, To: mir.I32{}}, ctx)
	assert.Contains(t, lines[0], "trunc")
}

func TestLowerCastIntToFloatUsesSitofp(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CastInst{Dest: "r", Operand: "x", From: mir.I64{}, To: mir.F64{}}, ctx)
	assert.Contains(t, lines[0], "sitofp")
}

func TestLowerBoundsCheckBranchesToPanic(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.BoundsCheckInst{Index: "i", Array: "arr"}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "bmb_panic_bounds")
	assert.Contains(t, joined, "unreachable")
}

func TestLowerCallInlinesLen(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CallInst{Dest: "n", Callee: "len", Args: []mir.Place{"s"}}, ctx)
	assert.Contains(t, lines[0], "@bmb_string_len")
}

func TestLowerCallResolvesRuntimeAlias(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CallInst{Callee: "println_i64", Args: []mir.Place{"x"}}, ctx)
	assert.Contains(t, lines[0], "@bmb_println_i64")
}

func TestLowerArrayInitAllocatesAndStoresElements(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.ArrayInitInst{Dest: "arr", Elems: []mir.Place{"a", "b"}}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "call ptr @malloc(i64 16)")
	assert.Contains(t, joined, "getelementptr inbounds i64, ptr %arr, i64 0")
	assert.Contains(t, joined, "getelementptr inbounds i64, ptr %arr, i64 1")
}

func TestLowerArrayAllocMultipliesSizeByElemWidth(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.ArrayAllocInst{Dest: "arr", Elem: mir.I64{}, Size: "n"}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "mul i64 %n, 8")
	assert.Contains(t, joined, "call ptr @malloc")
}

func TestLowerEnumVariantStoresOrdinalAndPayload(t *testing.T) {
	ctx := newTestCtx()
	ctx.Enums["Option"] = &mir.EnumT{
		Name:     "Option",
		Order:    []string{"None", "Some"},
		Variants: map[string][]mir.Type{"None": nil, "Some": {mir.I64{}}},
	}
	lines := LowerInstruction(mir.EnumVariantInst{Dest: "e", Enum: "Option", Variant: "Some", Payload: []mir.Place{"v"}}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "call ptr @malloc(i64 16)")
	assert.Contains(t, joined, "store i64 1, ptr")
	assert.Contains(t, joined, "getelementptr inbounds i64, ptr %e, i64 1")
}

func TestLowerEnumVariantUnknownEnumDefaultsToOrdinalZero(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.EnumVariantInst{Dest: "e", Enum: "Unknown", Variant: "X"}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "store i64 0, ptr")
}

func TestLowerPtrOffsetUsesByteGranularGep(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.PtrOffsetInst{Dest: "p", Base: "base", Bytes: "n"}, ctx)
	assert.Contains(t, lines[0], "getelementptr inbounds i8, ptr %base, i64 %n")
}

func TestLowerPtrLoadUsesDeclaredType(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.PtrLoadInst{Dest: "v", Addr: "p", Type: mir.F64{}}, ctx)
	assert.Contains(t, lines[0], "load double, ptr %p")
}

func TestLowerPtrStoreUsesDeclaredType(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.PtrStoreInst{Addr: "p", Value: "v", Type: mir.I64{}}, ctx)
	assert.Contains(t, lines[0], "store i64 %v, ptr %p")
}

func TestLowerSelectEmitsSelectInstruction(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.SelectInst{Dest: "r", Cond: "c", IfTrue: "a", IfFalse: "b"}, ctx)
	assert.Contains(t, lines[0], "select i1 %c")
}

func TestLowerConcurrencyMapsKindToRuntimeEntryPoint(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.ConcurrencyInst{Dest: "h", Kind: "thread.spawn", Args: []mir.Place{"fn", "arg"}}, ctx)
	assert.Contains(t, lines[0], "@bmb_thread_spawn(i64 %fn, i64 %arg)")
}

func TestLowerConcurrencyUnlockHasNoResult(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.ConcurrencyInst{Kind: "mutex.unlock", Args: []mir.Place{"m"}}, ctx)
	assert.Contains(t, lines[0], "call void @bmb_mutex_unlock(i64 %m)")
	assert.NotContains(t, lines[0], "=")
}

func TestLowerConcurrencyAtomicCasReturnsI1(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.ConcurrencyInst{Dest: "ok", Kind: "atomic.cas", Args: []mir.Place{"addr", "old", "new"}}, ctx)
	assert.Contains(t, lines[0], "= call i1 @bmb_atomic_cas")
}

func TestLowerInlineBuiltinVecNewInitializesCapAndLen(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CallInst{Dest: "v", Callee: "vec_new"}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "call ptr @malloc(i64 80)")
	assert.Contains(t, joined, "store i64 8, ptr")
	assert.Contains(t, joined, "store i64 0, ptr")
}

func TestLowerInlineBuiltinVecWithCapacitySizesAllocationFromArg(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CallInst{Dest: "v", Callee: "vec_with_capacity", Args: []mir.Place{"n"}}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "add i64 %n, 2")
	assert.Contains(t, joined, "mul i64")
	assert.Contains(t, joined, "call ptr @malloc(i64 %")
}

func TestLowerInlineBuiltinVecGetOffsetsPastHeader(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CallInst{Dest: "e", Callee: "vec_get", Args: []mir.Place{"v", "i"}}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "add i64 %i, 2")
	assert.Contains(t, joined, "getelementptr inbounds i64, ptr %v")
}

func TestLowerInlineBuiltinVecSetStoresAtOffsetElement(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CallInst{Callee: "vec_set", Args: []mir.Place{"v", "i", "x"}}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "add i64 %i, 2")
	assert.Contains(t, joined, "store i64 %x, ptr")
}

func TestLowerInlineBuiltinVecPopDecrementsLenAndLoadsLastElement(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CallInst{Dest: "e", Callee: "vec_pop", Args: []mir.Place{"v"}}, ctx)
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "sub i64 %")
	assert.Contains(t, joined, "getelementptr inbounds i64, ptr %v, i64 1")
}

func TestLowerInlineBuiltinVecFreeCallsFree(t *testing.T) {
	ctx := newTestCtx()
	lines := LowerInstruction(mir.CallInst{Callee: "vec_free", Args: []mir.Place{"v"}}, ctx)
	assert.Equal(t, []string{"  call void @free(ptr %v)"}, lines)
}

func TestLowerFloatBinOpOmitsFastByDefault(t *testing.T) {
	ctx := newTestCtx()
	lines := lowerFloatBinOp(mir.BinOpInst{Dest: "r", Op: "+", Left: "a", Right: "b"}, ctx)
	assert.NotContains(t, lines[0], "fast")
}

func TestLowerFloatBinOpAddsFastWhenEnabled(t *testing.T) {
	ctx := newTestCtx()
	ctx.FastMath = true
	lines := lowerFloatBinOp(mir.BinOpInst{Dest: "r", Op: "+", Left: "a", Right: "b"}, ctx)
	assert.Contains(t, lines[0], "fadd fast double")
}
