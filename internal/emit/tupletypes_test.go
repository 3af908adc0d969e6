package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/mir"
)

func TestBuildTupleTypesFromTupleInit(t *testing.T) {
	fn := &mir.Function{
		Blocks: []*mir.BasicBlock{
			{
				Label: "entry",
				Instructions: []mir.Instruction{
					mir.TupleInitInst{Dest: "t", Elems: []mir.Place{"a", "b"}},
				},
				Terminator: mir.ReturnTerm{Value: "t"},
			},
		},
	}
	tt := BuildTupleTypes(fn, nil)
	assert.Equal(t, "{i64, i64}", tt["t"])
}

func TestBuildTupleTypesPropagatesThroughCopyAndPhi(t *testing.T) {
	fn := &mir.Function{
		Blocks: []*mir.BasicBlock{
			{
				Label: "entry",
				Instructions: []mir.Instruction{
					mir.TupleInitInst{Dest: "t0", Elems: []mir.Place{"a"}},
					mir.CopyInst{Dest: "t1", Src: "t0"},
				},
				Terminator: mir.GotoTerm{Target: "join"},
			},
			{
				Label: "join",
				Instructions: []mir.Instruction{
					mir.PhiInst{Dest: "t2", Inputs: map[string]mir.Place{"entry": "t1"}, InputOrder: []string{"entry"}},
				},
				Terminator: mir.ReturnTerm{Value: "t2"},
			},
		},
	}
	tt := BuildTupleTypes(fn, nil)
	assert.Equal(t, tt["t0"], tt["t1"])
	assert.Equal(t, tt["t1"], tt["t2"])
}

func TestBuildTupleTypesFromCallReturn(t *testing.T) {
	tupleRet := &mir.TupleT{Elems: []mir.Type{mir.I64{}, mir.F64{}}}
	fn := &mir.Function{
		Blocks: []*mir.BasicBlock{
			{
				Label:        "entry",
				Instructions: []mir.Instruction{mir.CallInst{Dest: "r", Callee: "pair"}},
				Terminator:   mir.ReturnTerm{Value: "r"},
			},
		},
	}
	tt := BuildTupleTypes(fn, func(callee string) mir.Type {
		if callee == "pair" {
			return tupleRet
		}
		return nil
	})
	assert.Equal(t, "{i64, double}", tt["r"])
}
