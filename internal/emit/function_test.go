package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/mir"
)

func TestClassifyReturnSretOverTwoFields(t *testing.T) {
	s := &mir.StructT{Name: "Big", Fields: []mir.Type{mir.I64{}, mir.I64{}, mir.I64{}}}
	assert.Equal(t, ReturnSret, ClassifyReturn(s))
}

func TestClassifyReturnSmallStructOneOrTwoFields(t *testing.T) {
	one := &mir.StructT{Name: "One", Fields: []mir.Type{mir.I64{}}}
	two := &mir.StructT{Name: "Two", Fields: []mir.Type{mir.I64{}, mir.I64{}}}
	assert.Equal(t, ReturnSmallStruct, ClassifyReturn(one))
	assert.Equal(t, ReturnSmallStruct, ClassifyReturn(two))
}

func TestClassifyReturnTupleAndDirect(t *testing.T) {
	tup := &mir.TupleT{Elems: []mir.Type{mir.I64{}, mir.F64{}}}
	assert.Equal(t, ReturnTuple, ClassifyReturn(tup))
	assert.Equal(t, ReturnDirect, ClassifyReturn(mir.I64{}))
}

func TestEmitFunctionHeaderRenamesMain(t *testing.T) {
	fn := &mir.Function{Name: "main", IsMain: true, ReturnType: mir.I64{}}
	header, bodyRet, sret := EmitFunctionHeader(fn)
	assert.Contains(t, header, "@bmb_user_main")
	assert.Equal(t, "i64", bodyRet)
	assert.False(t, sret)
}

func TestEmitFunctionHeaderSretForBigStruct(t *testing.T) {
	st := &mir.StructT{Name: "Big", Fields: []mir.Type{mir.I64{}, mir.I64{}, mir.I64{}}}
	fn := &mir.Function{Name: "make", ReturnType: st}
	header, bodyRet, sret := EmitFunctionHeader(fn)
	assert.True(t, sret)
	assert.Equal(t, "void", bodyRet)
	assert.Contains(t, header, "sret(i8)")
}

func TestEmitFunctionHeaderAlwaysInlineIsPrivate(t *testing.T) {
	fn := &mir.Function{Name: "helper", ReturnType: mir.UnitT{}, AlwaysInline: true}
	header, _, _ := EmitFunctionHeader(fn)
	assert.Contains(t, header, "private")
	assert.Contains(t, header, "alwaysinline")
}

func TestEmitFunctionHeaderStringParamIsReadonly(t *testing.T) {
	fn := &mir.Function{
		Name:       "greet",
		ReturnType: mir.UnitT{},
		Params:     []mir.Local{{Name: "name", Type: mir.StringT{}}},
	}
	header, _, _ := EmitFunctionHeader(fn)
	assert.Contains(t, header, "nocapture readonly %name")
}

func TestBlockLabelAddsBbPrefixOnce(t *testing.T) {
	assert.Equal(t, "bb_loop", BlockLabel("loop"))
	assert.Equal(t, "bb_loop", BlockLabel("bb_loop"))
}
