package emit

import (
	"fmt"

	"bmbc/internal/mir"
)

// PhiLowering implements spec.md §4.4.3: because MIR allocas hold
// declared locals but phi nodes require SSA values, incoming values are
// lifted in their predecessor block, just before its terminator, via
// three maps:
//
//   - loads: a local's current alloca is loaded into a fresh SSA name.
//   - strings: a string-literal incoming value becomes a getelementptr
//     into its interned global header (§4.4.6).
//   - coerces: a narrower incoming value is sign-extended to the phi's
//     (widest) type.
//
// Phi operands pull from these maps first, falling back to a direct SSA
// reference to the incoming place.
type PhiLowering struct {
	// inserts[blockLabel] holds the LLVM lines to splice in just before
	// that block's terminator.
	inserts map[string][]string
	// operand[phiDest][predLabel] is the resolved SSA name (or constant
	// literal) to use as that phi operand.
	operand map[mir.Place]map[string]string
}

// InsertionsFor returns the lines to insert before blockLabel's
// terminator, in the order they were generated.
func (pl *PhiLowering) InsertionsFor(blockLabel string) []string {
	return pl.inserts[blockLabel]
}

// OperandFor returns the resolved phi operand for (phiDest, pred),
// falling back to a direct reference to the original incoming place if
// no map entry exists.
func (pl *PhiLowering) OperandFor(phiDest mir.Place, pred string, fallback string) string {
	if m, ok := pl.operand[phiDest]; ok {
		if v, ok := m[pred]; ok {
			return v
		}
	}
	return fallback
}

// BuildPhiLowering scans fn's blocks, tracking per-block "last known
// constant" bindings (to recognize a string-literal incoming value the
// way ConstantFolding tracks constants) and consulting pt/allocas/strs to
// build the three maps and emit their lowering instructions.
func BuildPhiLowering(fn *mir.Function, pt *PlaceTypes, allocas map[mir.Place]bool, strs *StringTable, names *NameTable) *PhiLowering {
	pl := &PhiLowering{
		inserts: map[string][]string{},
		operand: map[mir.Place]map[string]string{},
	}

	// lastConst[block][place] is the most recently assigned constant
	// value to place within block, if any — used to detect a
	// string-literal phi incoming value.
	lastConst := map[string]map[mir.Place]mir.Constant{}
	for _, b := range fn.Blocks {
		consts := map[mir.Place]mir.Constant{}
		for _, inst := range b.Instructions {
			if c, ok := inst.(mir.ConstInst); ok {
				consts[c.Dest] = c.Value
			}
		}
		lastConst[b.Label] = consts
	}

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			phi, ok := inst.(mir.PhiInst)
			if !ok {
				continue
			}
			destType := pt.Type(phi.Dest)
			pl.operand[phi.Dest] = map[string]string{}

			for _, pred := range phi.InputOrder {
				incoming := phi.Inputs[pred]

				if sc, ok := lastConst[pred][incoming].(mir.StringConst); ok {
					idx := strs.Lookup(string(sc))
					if idx >= 0 {
						ssa := names.Unique("phi.str")
						pl.inserts[pred] = append(pl.inserts[pred], fmt.Sprintf(
							"  %%%s = getelementptr inbounds %%BmbString, ptr %s, i32 0",
							ssa, strs.HeaderGlobal(idx),
						))
						pl.operand[phi.Dest][pred] = "%" + ssa
						continue
					}
				}

				if allocas[incoming] {
					ssa := names.Unique("phi.load")
					localType := pt.Type(incoming)
					pl.inserts[pred] = append(pl.inserts[pred], fmt.Sprintf(
						"  %%%s = load %s, ptr %%%s.addr",
						ssa, localType, incoming,
					))
					pl.operand[phi.Dest][pred] = coerceIfNarrower(pl, pred, ssa, localType, destType, names)
					continue
				}

				srcType := pt.Type(incoming)
				pl.operand[phi.Dest][pred] = coerceIfNarrower(pl, pred, string(incoming), srcType, destType, names)
			}
		}
	}

	return pl
}

// coerceIfNarrower emits an sext in pred when srcType is narrower than
// destType (spec.md §4.4.3 phi_coerce_map: "i1->i32, i32->i64"),
// returning the SSA name to use as the phi operand either way.
func coerceIfNarrower(pl *PhiLowering, pred, valueName, srcType, destType string, names *NameTable) string {
	if widenRank(srcType) >= widenRank(destType) {
		return "%" + valueName
	}
	ssa := names.Unique("phi.sext")
	pl.inserts[pred] = append(pl.inserts[pred], fmt.Sprintf(
		"  %%%s = sext %s %%%s to %s", ssa, srcType, valueName, destType,
	))
	return "%" + ssa
}
