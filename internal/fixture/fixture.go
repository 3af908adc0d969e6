// Package fixture loads and saves whole-pipeline test inputs for
// cmd/bmbc: a gob-encoded bundle pairing a CIR program with the MIR
// program a real typed-AST-to-MIR lowering pass would have produced
// from it (spec.md §1 carves that lowering, like the lexer and type
// checker ahead of it, out of this module's scope). Feeding the
// orchestrator a bundle lets the in-scope CIR/PIR/MIR/emission core run
// end to end from the command line without a lexer, parser, or type
// checker anywhere in this repository.
package fixture

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"bmbc/internal/cir"
	"bmbc/internal/mir"
	"bmbc/internal/pir"
	"bmbc/internal/prop"
)

func init() {
	gob.Register(prop.True{})
	gob.Register(prop.False{})
	gob.Register(prop.Compare{})
	gob.Register(prop.Not{})
	gob.Register(prop.And{})
	gob.Register(prop.Or{})
	gob.Register(prop.Implies{})
	gob.Register(prop.Forall{})
	gob.Register(prop.Exists{})
	gob.Register(prop.InBounds{})
	gob.Register(prop.NonNull{})
	gob.Register(prop.Predicate{})
	gob.Register(prop.Old{})

	gob.Register(cir.Lit{})
	gob.Register(cir.Var{})
	gob.Register(cir.BinOp{})
	gob.Register(cir.UnaryOp{})
	gob.Register(cir.If{})
	gob.Register(cir.While{})
	gob.Register(cir.Loop{})
	gob.Register(cir.For{})
	gob.Register(cir.Let{})
	gob.Register(cir.Assign{})
	gob.Register(cir.Call{})
	gob.Register(cir.Block{})
	gob.Register(cir.StructLit{})
	gob.Register(cir.TupleLit{})
	gob.Register(cir.ArrayLit{})
	gob.Register(cir.Index{})
	gob.Register(cir.Field{})
	gob.Register(cir.Ref{})
	gob.Register(cir.Deref{})
	gob.Register(cir.Cast{})
	gob.Register(cir.Len{})
	gob.Register(cir.Break{})
	gob.Register(cir.Continue{})

	gob.Register(mir.I32{})
	gob.Register(mir.I64{})
	gob.Register(mir.U32{})
	gob.Register(mir.U64{})
	gob.Register(mir.F64{})
	gob.Register(mir.BoolT{})
	gob.Register(mir.CharT{})
	gob.Register(mir.StringT{})
	gob.Register(mir.UnitT{})
	gob.Register(&mir.StructT{})
	gob.Register(&mir.StructPtrT{})
	gob.Register(&mir.PtrT{})
	gob.Register(&mir.ArrayT{})
	gob.Register(&mir.TupleT{})
	gob.Register(&mir.EnumT{})

	gob.Register(mir.IntConst(0))
	gob.Register(mir.FloatConst(0))
	gob.Register(mir.BoolConst(false))
	gob.Register(mir.StringConst(""))
	gob.Register(mir.CharConst(0))
	gob.Register(mir.UnitConst{})

	gob.Register(mir.ConstInst{})
	gob.Register(mir.CopyInst{})
	gob.Register(mir.BinOpInst{})
	gob.Register(mir.UnaryOpInst{})
	gob.Register(mir.CallInst{})
	gob.Register(mir.PhiInst{})
	gob.Register(mir.StructInitInst{})
	gob.Register(mir.FieldAccessInst{})
	gob.Register(mir.FieldStoreInst{})
	gob.Register(mir.EnumVariantInst{})
	gob.Register(mir.ArrayInitInst{})
	gob.Register(mir.ArrayAllocInst{})
	gob.Register(mir.IndexLoadInst{})
	gob.Register(mir.IndexStoreInst{})
	gob.Register(mir.CastInst{})
	gob.Register(mir.TupleInitInst{})
	gob.Register(mir.TupleExtractInst{})
	gob.Register(mir.PtrOffsetInst{})
	gob.Register(mir.PtrLoadInst{})
	gob.Register(mir.PtrStoreInst{})
	gob.Register(mir.SelectInst{})
	gob.Register(mir.BoundsCheckInst{})
	gob.Register(mir.NullCheckInst{})
	gob.Register(mir.DivCheckInst{})
	gob.Register(mir.ConcurrencyInst{})

	gob.Register(mir.ReturnTerm{})
	gob.Register(mir.GotoTerm{})
	gob.Register(mir.BranchTerm{})
	gob.Register(mir.SwitchTerm{})
	gob.Register(mir.UnreachableTerm{})
}

// Bundle pairs a CIR program with the MIR a lowering pass would have
// produced from it, so the orchestrator's Frontend boundary can be
// satisfied by decoding rather than by compiling.
type Bundle struct {
	CIR *cir.Program
	MIR *mir.Program
}

// Load reads a gob-encoded Bundle from path.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	return Decode(data)
}

// Decode gob-decodes a Bundle from raw bytes (the form the orchestrator
// hands Frontend.Compile).
func Decode(data []byte) (*Bundle, error) {
	var b Bundle
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}
	return &b, nil
}

// Save gob-encodes b to path, for producing fixtures from a REPL/test
// harness that already has CIR and MIR in hand.
func Save(path string, b *Bundle) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return fmt.Errorf("fixture: encode: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Frontend implements the orchestrator's Frontend boundary by decoding
// a Bundle instead of compiling: Compile treats its source argument as
// gob-encoded bundle bytes and returns the CIR half; LowerToMIR ignores
// the PIR it is handed (a real lowering pass would consume it) and
// returns the MIR half decoded alongside it. This is the reference
// Frontend cmd/bmbc wires by default; a build of the real language
// swaps it for one backed by an actual lexer/parser/type checker and
// lowering pass.
type Frontend struct {
	bundle *Bundle
}

// Compile decodes source as a gob-encoded Bundle and returns its CIR
// program.
func (f *Frontend) Compile(source string) (*cir.Program, error) {
	b, err := Decode([]byte(source))
	if err != nil {
		return nil, err
	}
	f.bundle = b
	return b.CIR, nil
}

// LowerToMIR returns the bundle's MIR half, decoded by the prior
// Compile call. verified is accepted only to satisfy the interface: a
// real lowering pass would consult it when deciding which calls may
// carry augmented facts, but decoding has nothing left to decide.
func (f *Frontend) LowerToMIR(p *pir.Program, verified map[string]bool) (*mir.Program, error) {
	if f.bundle == nil {
		return nil, fmt.Errorf("fixture: LowerToMIR called before Compile")
	}
	return f.bundle.MIR, nil
}
