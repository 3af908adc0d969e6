// Package pir implements the Proof-Indexed IR: a CIR decorated, at every
// node, with the set of facts known to hold at that program point, and,
// at risky operations, an explicit proof when one was found (spec.md §3,
// "PIR expression").
package pir

import (
	"bmbc/internal/cir"
	"bmbc/internal/fact"
)

// Expr decorates one CIR expression node. Node holds the original CIR
// shape; Proven is every fact live at this point; the optional proof
// fields are populated only for the operation kinds that can carry them.
type Expr struct {
	Node   cir.Expr
	Proven fact.Set

	// Populated only when Node is cir.BinOp with Op == "/" or "%".
	NonzeroProof *fact.Fact
	// Populated only when Node is cir.Index.
	BoundsProof *fact.Fact
	// Populated only when Node is cir.Field.
	NullProof *fact.Fact

	// Populated only when Node is cir.If: facts holding inside each arm.
	ThenFacts, ElseFacts fact.Set
	Then, Else           *Expr

	// Populated only when Node is cir.While/Loop/For: facts holding on
	// loop entry to the body, including any user-supplied invariants.
	InvariantFacts fact.Set
	IterFacts      fact.Set
	BodyNode       *Expr

	// Populated only when Node is cir.Call: facts the call's success edge
	// contributes to whatever consumes its result (spec.md §4.2 rule 7).
	PostconditionFacts fact.Set

	// Children for expression forms not covered above (Let/Block/BinOp
	// operands/etc.), in the same shape as the corresponding cir.Expr
	// variant, so a consumer can walk the decorated tree without needing
	// to re-derive structure from Node.
	Children []*Expr
}

// Function is a CIR function with its body replaced by a decorated PIR
// tree, plus the Precondition facts filed on entry.
type Function struct {
	Source        *cir.Function
	EntryFacts    fact.Set
	ParamFacts    map[string]fact.Set
	Body          *Expr
}

// Program is a whole compilation unit's worth of PIR functions.
type Program struct {
	Functions []*Function
}
