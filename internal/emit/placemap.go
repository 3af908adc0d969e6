package emit

import (
	"strings"

	"bmbc/internal/mir"
)

// PlaceTypes is the place→LLVM-type map spec.md §4.4.2 step 1 builds by
// a single forward scan of every instruction, applying the widening
// precedence (ptr > double > i64 > i32 > i1), a declared local's type
// never widening, and a phi destination taking the widest type across
// its incoming values.
type PlaceTypes struct {
	types       map[mir.Place]string
	declared    map[mir.Place]bool // true if the place is a declared local (never widens)
	phiDests    map[mir.Place]bool
}

// BuildPlaceTypes scans fn and returns its place-type map, the set of
// phi destinations (step 2), and the set of stack-alloca locals
// (step 3): declared locals that are not phi destinations, not Unit
// (invariant 3), and not arrays (arrays allocate at their init site).
func BuildPlaceTypes(fn *mir.Function) (*PlaceTypes, map[mir.Place]bool, map[mir.Place]bool) {
	pt := &PlaceTypes{
		types:    make(map[mir.Place]string),
		declared: make(map[mir.Place]bool),
		phiDests: make(map[mir.Place]bool),
	}

	for _, p := range fn.Params {
		pt.types[mir.Place(p.Name)] = LLVMType(p.Type)
		pt.declared[mir.Place(p.Name)] = true
	}
	declaredTypes := make(map[mir.Place]mir.Type)
	for _, l := range fn.Locals {
		pt.types[mir.Place(l.Name)] = LLVMType(l.Type)
		pt.declared[mir.Place(l.Name)] = true
		declaredTypes[mir.Place(l.Name)] = l.Type
	}

	phiIncoming := map[mir.Place][]string{}

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			switch v := inst.(type) {
			case mir.PhiInst:
				pt.phiDests[v.Dest] = true
				for _, src := range v.Inputs {
					phiIncoming[v.Dest] = append(phiIncoming[v.Dest], pt.resolve(src))
				}
			default:
				pt.assign(inst)
			}
		}
	}

	for dest, incoming := range phiIncoming {
		widest := "i1"
		for _, t := range incoming {
			widest = Widest(widest, t)
		}
		if pt.declared[dest] {
			continue // a declared local's type never widens (spec.md §4.4.2 step 1)
		}
		pt.types[dest] = widest
	}

	allocas := map[mir.Place]bool{}
	for _, l := range fn.Locals {
		p := mir.Place(l.Name)
		if pt.phiDests[p] {
			continue
		}
		if _, isUnit := l.Type.(mir.UnitT); isUnit {
			continue
		}
		if _, isArr := l.Type.(*mir.ArrayT); isArr {
			continue
		}
		allocas[p] = true
	}

	return pt, pt.phiDests, allocas
}

func (pt *PlaceTypes) resolve(p mir.Place) string {
	if t, ok := pt.types[p]; ok {
		return t
	}
	return "i64"
}

// assign infers a result place's LLVM type from the instruction that
// defines it, skipping declared locals (which already carry their
// declared type and never widen).
func (pt *PlaceTypes) assign(inst mir.Instruction) {
	dest := inst.Result()
	if dest == "" || !inst.HasResult() {
		return
	}
	if pt.declared[dest] {
		return
	}
	var t string
	switch v := inst.(type) {
	case mir.ConstInst:
		t = ValueLLVMType(v.Type)
	case mir.CopyInst:
		t = pt.resolve(v.Src)
	case mir.BinOpInst:
		t = Widest(pt.resolve(v.Left), pt.resolve(v.Right))
		if isComparisonOp(v.Op) {
			t = "i1"
		}
	case mir.UnaryOpInst:
		t = pt.resolve(v.Operand)
	case mir.CastInst:
		t = ValueLLVMType(v.To)
	case mir.FieldAccessInst:
		t = "i64" // refined by the struct field table at emission
	case mir.IndexLoadInst:
		t = "i64"
	case mir.TupleExtractInst:
		t = "i64"
	case mir.PtrLoadInst:
		t = ValueLLVMType(v.Type)
	case mir.CallInst:
		t = "i64"
	case mir.SelectInst:
		t = Widest(pt.resolve(v.IfTrue), pt.resolve(v.IfFalse))
	case mir.ArrayInitInst:
		t = "ptr"
	case mir.ArrayAllocInst:
		t = "ptr"
	case mir.EnumVariantInst:
		t = "ptr"
	case mir.PtrOffsetInst:
		t = "ptr"
	case mir.ConcurrencyInst:
		if strings.HasSuffix(v.Kind, "cas") {
			t = "i1"
		} else {
			t = "i64"
		}
	default:
		t = "i64"
	}
	pt.types[dest] = t
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	default:
		return false
	}
}

// Type returns the computed LLVM type for place p, defaulting to i64 for
// an unseen place (e.g. an external constant not yet scanned).
func (pt *PlaceTypes) Type(p mir.Place) string {
	return pt.resolve(p)
}
