package emit

import "bmbc/internal/mir"

// maxTupleFixedPoint bounds the fixed-point iteration of spec.md §4.4.2
// step 4 at 10 passes ("in practice converges in 2–3").
const maxTupleFixedPoint = 10

// TupleTypes is the tuple-variable-type map of spec.md §4.4.2 step 4: an
// LLVM struct type string per place whose value is a tuple, propagated
// through Call, TupleInit, Copy, and Phi.
type TupleTypes map[mir.Place]string

// BuildTupleTypes computes fn's tuple-variable-type map by fixed-point
// iteration over TupleInit, Copy, Phi, and Call (when the callee's
// return type is itself a tuple, resolved via returnType).
func BuildTupleTypes(fn *mir.Function, returnType func(callee string) mir.Type) TupleTypes {
	tt := TupleTypes{}

	for i := 0; i < maxTupleFixedPoint; i++ {
		changed := false
		for _, b := range fn.Blocks {
			for _, inst := range b.Instructions {
				switch v := inst.(type) {
				case mir.TupleInitInst:
					if setTupleType(tt, v.Dest, tupleTypeOfInit(fn, v)) {
						changed = true
					}
				case mir.CopyInst:
					if t, ok := tt[v.Src]; ok {
						if setTupleType(tt, v.Dest, t) {
							changed = true
						}
					}
				case mir.PhiInst:
					for _, src := range v.Inputs {
						if t, ok := tt[src]; ok {
							if setTupleType(tt, v.Dest, t) {
								changed = true
							}
						}
					}
				case mir.CallInst:
					if v.Dest == "" || returnType == nil {
						continue
					}
					if tup, ok := returnType(v.Callee).(*mir.TupleT); ok {
						if setTupleType(tt, v.Dest, TupleLLVMType(tup)) {
							changed = true
						}
					}
				}
			}
		}
		if !changed {
			break
		}
	}

	return tt
}

func setTupleType(tt TupleTypes, p mir.Place, t string) bool {
	if t == "" {
		return false
	}
	if existing, ok := tt[p]; ok && existing == t {
		return false
	}
	tt[p] = t
	return true
}

// tupleTypeOfInit renders a TupleInit's literal LLVM struct type as one
// i64 per element; the element places' own types are not consulted.
func tupleTypeOfInit(fn *mir.Function, v mir.TupleInitInst) string {
	// A full element-type resolution needs the place-type map; callers
	// that have one available should prefer annotating TupleInit with an
	// explicit element-type list at construction. Absent that, render a
	// same-width aggregate of i64s, which is always a safe (if not
	// maximally precise) LLVM aggregate shape for a same-arity tuple.
	s := "{"
	for i := range v.Elems {
		if i > 0 {
			s += ", "
		}
		s += "i64"
	}
	return s + "}"
}
