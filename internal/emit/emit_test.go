package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/mir"
)

func TestEmitModuleIdentityFunction(t *testing.T) {
	prog := &mir.Program{
		Functions: []*mir.Function{
			{
				Name:       "identity",
				Params:     []mir.Local{{Name: "x", Type: mir.I64{}}},
				ReturnType: mir.I64{},
				Blocks: []*mir.BasicBlock{
					{Label: "entry", Terminator: mir.ReturnTerm{Value: "x"}},
				},
			},
		},
	}

	out := EmitModule(prog, "", false)

	assert.Contains(t, out, "define i64 @identity(i64 %x)")
	assert.Contains(t, out, "alloca_entry:")
	assert.Contains(t, out, "bb_entry:")
	assert.Contains(t, out, "ret i64 %x")
}

func TestEmitModuleRenamesMainAndKeepsRuntimePreamble(t *testing.T) {
	prog := &mir.Program{
		Functions: []*mir.Function{
			{
				Name:       "main",
				IsMain:     true,
				ReturnType: mir.UnitT{},
				Blocks: []*mir.BasicBlock{
					{Label: "entry", Terminator: mir.ReturnTerm{}},
				},
			},
		},
	}

	out := EmitModule(prog, "", false)

	assert.Contains(t, out, "@bmb_user_main")
	assert.Contains(t, out, "declare void @bmb_println_i64(i64)")
	assert.NotContains(t, out, "define void @main(")
}

func TestEmitModuleBranchingFunctionWithPhi(t *testing.T) {
	prog := &mir.Program{
		Functions: []*mir.Function{
			{
				Name:       "abs_like",
				Params:     []mir.Local{{Name: "n", Type: mir.I64{}}},
				ReturnType: mir.I64{},
				Blocks: []*mir.BasicBlock{
					{
						Label:      "entry",
						Terminator: mir.BranchTerm{Cond: "n", TrueTarget: "pos", FalseTarget: "neg"},
					},
					{
						Label: "pos",
						Instructions: []mir.Instruction{
							mir.ConstInst{Dest: "one", Value: mir.IntConst(1), Type: mir.I64{}},
						},
						Terminator: mir.GotoTerm{Target: "join"},
					},
					{
						Label: "neg",
						Instructions: []mir.Instruction{
							mir.ConstInst{Dest: "negone", Value: mir.IntConst(-1), Type: mir.I64{}},
						},
						Terminator: mir.GotoTerm{Target: "join"},
					},
					{
						Label: "join",
						Instructions: []mir.Instruction{
							mir.PhiInst{
								Dest:       "r",
								Inputs:     map[string]mir.Place{"pos": "one", "neg": "negone"},
								InputOrder: []string{"pos", "neg"},
							},
						},
						Terminator: mir.ReturnTerm{Value: "r"},
					},
				},
			},
		},
	}

	out := EmitModule(prog, "", false)
	assert.Contains(t, out, "phi i64")
	assert.Contains(t, out, "br i1 %n, label %bb_pos, label %bb_neg")
}
