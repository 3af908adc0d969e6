package mir

// Eliminator implements spec.md §4.3: the four proof-guided eliminations
// that consume only facts proven for verified functions (via ProofIndex,
// which already filtered on the soundness rule at construction).
type Eliminator struct {
	proofs *ProofIndex
}

// NewEliminator builds an eliminator over proofs. A nil proofs index is
// treated as empty (no guard is removed; PUE's reachability sweep still
// runs), useful for isolating a test to exactly one check kind.
func NewEliminator(proofs *ProofIndex) *Eliminator {
	if proofs == nil {
		proofs = emptyProofIndex()
	}
	return &Eliminator{proofs: proofs}
}

// Stats is the tally spec.md §4.3 says the eliminator returns.
type Stats struct {
	BoundsChecksEliminated      int
	NullChecksEliminated        int
	DivisionChecksEliminated    int
	UnreachableBlocksEliminated int
}

// Run applies all four eliminations to every function in prog, in the
// order spec.md §4.3 implies: per-instruction checks first (BCE, NCE,
// DCE-div), then the block-level pass (PUE).
func (e *Eliminator) Run(prog *Program) Stats {
	var total Stats
	for _, fn := range prog.Functions {
		total.BoundsChecksEliminated += e.eliminateBoundsChecks(fn)
		total.NullChecksEliminated += e.eliminateNullChecks(fn)
		total.DivisionChecksEliminated += e.eliminateDivisionChecks(fn)
		total.UnreachableBlocksEliminated += e.eliminateUnreachableBlocks(fn)
	}
	return total
}

// eliminateBoundsChecks implements BCE: remove a BoundsCheckInst ahead of
// an IndexLoad/IndexStore whose index has a matching proof.
func (e *Eliminator) eliminateBoundsChecks(fn *Function) int {
	count := 0
	for _, b := range fn.Blocks {
		kept := b.Instructions[:0]
		for _, inst := range b.Instructions {
			if bc, ok := inst.(BoundsCheckInst); ok && e.proofs.HasBounds(bc.Index, bc.Array) {
				count++
				continue
			}
			kept = append(kept, inst)
		}
		b.Instructions = kept
	}
	return count
}

// eliminateNullChecks implements NCE: remove a NullCheckInst ahead of a
// FieldAccess/PtrLoad whose base is proven non-null.
func (e *Eliminator) eliminateNullChecks(fn *Function) int {
	count := 0
	for _, b := range fn.Blocks {
		kept := b.Instructions[:0]
		for _, inst := range b.Instructions {
			if nc, ok := inst.(NullCheckInst); ok && e.proofs.HasNonNull(nc.Base) {
				count++
				continue
			}
			kept = append(kept, inst)
		}
		b.Instructions = kept
	}
	return count
}

// eliminateDivisionChecks implements DCE-div: remove a DivCheckInst ahead
// of a Div whose divisor is proven non-zero.
func (e *Eliminator) eliminateDivisionChecks(fn *Function) int {
	count := 0
	for _, b := range fn.Blocks {
		kept := b.Instructions[:0]
		for _, inst := range b.Instructions {
			if dc, ok := inst.(DivCheckInst); ok && e.proofs.HasNonzero(dc.Divisor) {
				count++
				continue
			}
			kept = append(kept, inst)
		}
		b.Instructions = kept
	}
	return count
}

// eliminateUnreachableBlocks implements PUE as a structural reachability
// sweep: it drops every block that cannot be reached from the entry
// block by following terminator successors. It does not test whether
// the facts entering a block are consistent and consults neither
// ProofIndex nor a solver, so a block whose entering facts contradict
// each other is kept as long as some reachable edge leads to it.
func (e *Eliminator) eliminateUnreachableBlocks(fn *Function) int {
	if len(fn.Blocks) == 0 {
		return 0
	}
	reachable := make(map[string]bool)
	var mark func(label string)
	mark = func(label string) {
		if reachable[label] {
			return
		}
		reachable[label] = true
		b := fn.BlockByLabel(label)
		if b == nil || b.Terminator == nil {
			return
		}
		for _, succ := range b.Terminator.Successors() {
			mark(succ)
		}
	}
	mark(fn.Blocks[0].Label)

	kept := fn.Blocks[:0]
	removed := 0
	for _, b := range fn.Blocks {
		if reachable[b.Label] {
			kept = append(kept, b)
		} else {
			removed++
		}
	}
	fn.Blocks = kept
	return removed
}
