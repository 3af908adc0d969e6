// Package fact implements ProvenFact: a proposition tagged with its
// provenance and a fresh, process-wide id (spec.md §3, "ProvenFact").
package fact

import (
	"sync/atomic"

	"bmbc/internal/prop"
)

// Tag records why a fact is known to hold.
type Tag string

const (
	TagPrecondition Tag = "precondition"
	TagControlFlow  Tag = "control_flow"
	TagLoopInvariant Tag = "loop_invariant"
	TagCallPost     Tag = "call_post"
)

// Fact is a proposition plus provenance and a unique id. Ids only need to
// be unique within one compilation; they exist so the SMT backend and the
// diagnostic renderer can attribute a proof to the operation it protects.
type Fact struct {
	ID   uint32
	Tag  Tag
	Prop prop.Proposition
}

// idCounter is the process-wide monotonic counter described in spec.md §9
// ("Global mutable state"). It is seeded at 1 and reseeded per compilation
// so that test runs and repeated builds produce deterministic ids.
var idCounter uint32

// Reseed resets the counter to 1. The orchestrator calls this once at the
// start of every compilation so fact ids are reproducible across builds of
// the same input (spec.md §8 property 2, determinism).
func Reseed() {
	atomic.StoreUint32(&idCounter, 0)
}

func nextID() uint32 {
	return atomic.AddUint32(&idCounter, 1)
}

// New creates a fresh fact with the next id.
func New(tag Tag, p prop.Proposition) Fact {
	return Fact{ID: nextID(), Tag: tag, Prop: p}
}

// Set is an ordered, append-only collection of facts. Facts are never
// retracted (spec.md §4.2: "Facts are never retracted — they are only
// scoped"); a Set's lifetime corresponds to one propagation scope.
type Set struct {
	facts []Fact
}

// NewSet builds a Set from zero or more facts.
func NewSet(facts ...Fact) Set {
	s := Set{}
	s.facts = append(s.facts, facts...)
	return s
}

// With returns a new Set containing the receiver's facts plus extra. The
// receiver is left unmodified — propagation always branches a scope rather
// than mutating a shared one, so that one branch's facts can never leak
// into a sibling branch.
func (s Set) With(extra ...Fact) Set {
	out := make([]Fact, len(s.facts), len(s.facts)+len(extra))
	copy(out, s.facts)
	out = append(out, extra...)
	return Set{facts: out}
}

// All returns every fact currently live in the scope.
func (s Set) All() []Fact {
	return s.facts
}

// Find returns the first live fact whose proposition is structurally equal
// to want, and whether one was found.
func (s Set) Find(want prop.Proposition) (Fact, bool) {
	for _, f := range s.facts {
		if prop.Equal(f.Prop, want) {
			return f, true
		}
	}
	return Fact{}, false
}

// FindMatching returns every live fact for which pred returns true.
func (s Set) FindMatching(pred func(prop.Proposition) bool) []Fact {
	var out []Fact
	for _, f := range s.facts {
		if pred(f.Prop) {
			out = append(out, f)
		}
	}
	return out
}

// Len reports how many facts are live in the scope.
func (s Set) Len() int { return len(s.facts) }
