package mir

import (
	"fmt"

	"bmbc/internal/fact"
	"bmbc/internal/pir"
)

// ProofIndex bridges a PIR proof to the MIR guard instruction it
// justifies removing. The CIR→MIR lowering that would normally carry a
// PIR node's proof onto its lowered instruction is out of scope for this
// spec (spec.md §1); ProofIndex stands in for that hand-off, keyed by
// the same operand-name convention the lowering is expected to
// preserve (spec.md §3 invariant 1: every place traces back to a
// parameter, local, phi destination, or prior temporary, so a risky
// operation's MIR operand names still match its CIR/PIR source names).
type ProofIndex struct {
	bounds   map[string]fact.Fact // key: boundsKey(index, array)
	nonzero  map[string]fact.Fact // key: divisor place
	nonnull  map[string]fact.Fact // key: base place
}

func emptyProofIndex() *ProofIndex {
	return &ProofIndex{
		bounds:  make(map[string]fact.Fact),
		nonzero: make(map[string]fact.Fact),
		nonnull: make(map[string]fact.Fact),
	}
}

func boundsKey(index, array Place) string {
	return fmt.Sprintf("%s@%s", index, array)
}

// BuildProofIndex walks every verified function's PIR body and records
// each attached proof under its operand key, respecting spec.md §4.1's
// soundness rule: only functions present in verified contribute entries,
// since a proof produced while propagating an unverified function's
// contracts must never license an elimination.
func BuildProofIndex(prog *pir.Program, verified map[string]bool) *ProofIndex {
	idx := &ProofIndex{
		bounds:  make(map[string]fact.Fact),
		nonzero: make(map[string]fact.Fact),
		nonnull: make(map[string]fact.Fact),
	}
	for _, f := range prog.Functions {
		if !verified[f.Source.Name] {
			continue
		}
		collect(f.Body, idx)
	}
	return idx
}

func collect(n *pir.Expr, idx *ProofIndex) {
	if n == nil {
		return
	}
	if n.BoundsProof != nil {
		if ix, ok := n.Node.(boundsOperands); ok {
			a, b := ix.BoundsOperandNames()
			idx.bounds[boundsKey(Place(a), Place(b))] = *n.BoundsProof
		}
	}
	if n.NonzeroProof != nil {
		if d, ok := n.Node.(divisorOperand); ok {
			idx.nonzero[d.DivisorOperandName()] = *n.NonzeroProof
		}
	}
	if n.NullProof != nil {
		if b, ok := n.Node.(baseOperand); ok {
			idx.nonnull[b.BaseOperandName()] = *n.NullProof
		}
	}

	collect(n.Then, idx)
	collect(n.Else, idx)
	collect(n.BodyNode, idx)
	for _, c := range n.Children {
		collect(c, idx)
	}
}

// The three tiny interfaces below let collect() pull operand names out
// of the one or two cir.Expr variants that carry a proof, without this
// package importing cir directly for a single field read each.
type boundsOperands interface {
	BoundsOperandNames() (string, string)
}
type divisorOperand interface{ DivisorOperandName() string }
type baseOperand interface{ BaseOperandName() string }

// HasBounds reports whether a proof justifies removing the bounds check
// on Array[Index].
func (p *ProofIndex) HasBounds(index, array Place) bool {
	_, ok := p.bounds[boundsKey(index, array)]
	return ok
}

// HasNonzero reports whether a proof justifies removing the
// divide-by-zero check on divisor.
func (p *ProofIndex) HasNonzero(divisor Place) bool {
	_, ok := p.nonzero[string(divisor)]
	return ok
}

// HasNonNull reports whether a proof justifies removing the null-deref
// guard on base.
func (p *ProofIndex) HasNonNull(base Place) bool {
	_, ok := p.nonnull[string(base)]
	return ok
}
