package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/mir"
)

func TestLLVMTypeScalars(t *testing.T) {
	assert.Equal(t, "i32", LLVMType(mir.I32{}))
	assert.Equal(t, "i64", LLVMType(mir.I64{}))
	assert.Equal(t, "i32", LLVMType(mir.U32{}))
	assert.Equal(t, "double", LLVMType(mir.F64{}))
	assert.Equal(t, "i1", LLVMType(mir.BoolT{}))
	assert.Equal(t, "ptr", LLVMType(mir.StringT{}))
	assert.Equal(t, "void", LLVMType(mir.UnitT{}))
}

func TestValueLLVMTypeUnitIsI8(t *testing.T) {
	assert.Equal(t, "i8", ValueLLVMType(mir.UnitT{}))
	assert.Equal(t, "void", LLVMType(mir.UnitT{}))
}

func TestLLVMTypeStructIsNamed(t *testing.T) {
	s := &mir.StructT{Name: "Point", Fields: []mir.Type{mir.I64{}, mir.I64{}}}
	assert.Equal(t, "%struct.Point", LLVMType(s))
	assert.Equal(t, "{ i64, i64 }", StructBody(s))
}

func TestTupleLLVMType(t *testing.T) {
	tup := &mir.TupleT{Elems: []mir.Type{mir.I64{}, mir.F64{}}}
	assert.Equal(t, "{i64, double}", TupleLLVMType(tup))
}

func TestWidestOrdering(t *testing.T) {
	assert.Equal(t, "i32", Widest("i1", "i32"))
	assert.Equal(t, "i64", Widest("i32", "i64"))
	assert.Equal(t, "double", Widest("i64", "double"))
	assert.Equal(t, "ptr", Widest("double", "ptr"))
	assert.Equal(t, "i64", Widest("i64", "i64"))
}

func TestSortedStructNamesDeterministic(t *testing.T) {
	prog := &mir.Program{Structs: map[string]*mir.StructT{
		"Zeta":  {Name: "Zeta"},
		"Alpha": {Name: "Alpha"},
		"Mid":   {Name: "Mid"},
	}}
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, SortedStructNames(prog))
}
