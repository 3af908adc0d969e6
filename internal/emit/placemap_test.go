package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/mir"
)

func TestBuildPlaceTypesSeedsParamsAndLocals(t *testing.T) {
	fn := &mir.Function{
		Params: []mir.Local{{Name: "x", Type: mir.I32{}}},
		Locals: []mir.Local{{Name: "acc", Type: mir.I64{}}},
		Blocks: []*mir.BasicBlock{
			{Label: "entry", Terminator: mir.ReturnTerm{Value: "acc"}},
		},
	}
	pt, _, allocas := BuildPlaceTypes(fn)

	assert.Equal(t, "i32", pt.Type("x"))
	assert.Equal(t, "i64", pt.Type("acc"))
	assert.True(t, allocas["acc"])
	assert.False(t, allocas["x"], "a parameter is not a declared local and is never an alloca candidate")
}

func TestBuildPlaceTypesDeclaredLocalNeverWidens(t *testing.T) {
	fn := &mir.Function{
		Locals: []mir.Local{{Name: "n", Type: mir.I32{}}},
		Blocks: []*mir.BasicBlock{
			{
				Label: "entry",
				Instructions: []mir.Instruction{
					mir.ConstInst{Dest: "big", Value: mir.IntConst(1), Type: mir.I64{}},
					mir.CopyInst{Dest: "n", Src: "big"},
				},
				Terminator: mir.ReturnTerm{Value: "n"},
			},
		},
	}
	pt, _, _ := BuildPlaceTypes(fn)
	assert.Equal(t, "i32", pt.Type("n"))
}

func TestBuildPlaceTypesPhiTakesWidestIncoming(t *testing.T) {
	fn := &mir.Function{
		Blocks: []*mir.BasicBlock{
			{
				Label: "left",
				Instructions: []mir.Instruction{
					mir.ConstInst{Dest: "a", Value: mir.IntConst(1), Type: mir.I32{}},
				},
				Terminator: mir.GotoTerm{Target: "join"},
			},
			{
				Label: "right",
				Instructions: []mir.Instruction{
					mir.ConstInst{Dest: "b", Value: mir.FloatConst(1), Type: mir.F64{}},
				},
				Terminator: mir.GotoTerm{Target: "join"},
			},
			{
				Label: "join",
				Instructions: []mir.Instruction{
					mir.PhiInst{
						Dest:       "p",
						Inputs:     map[string]mir.Place{"left": "a", "right": "b"},
						InputOrder: []string{"left", "right"},
					},
				},
				Terminator: mir.ReturnTerm{Value: "p"},
			},
		},
	}
	pt, phiDests, _ := BuildPlaceTypes(fn)
	assert.True(t, phiDests["p"])
	assert.Equal(t, "double", pt.Type("p"))
}

func TestBuildPlaceTypesExcludesArraysAndUnitFromAllocas(t *testing.T) {
	fn := &mir.Function{
		Locals: []mir.Local{
			{Name: "arr", Type: &mir.ArrayT{Elem: mir.I64{}, Size: 4}},
			{Name: "u", Type: mir.UnitT{}},
			{Name: "n", Type: mir.I64{}},
		},
		Blocks: []*mir.BasicBlock{
			{Label: "entry", Terminator: mir.ReturnTerm{}},
		},
	}
	_, _, allocas := BuildPlaceTypes(fn)
	assert.False(t, allocas["arr"])
	assert.False(t, allocas["u"])
	assert.True(t, allocas["n"])
}
