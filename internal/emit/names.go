// Package emit implements the text LLVM emitter (spec.md §4.4): MIR to
// textual LLVM IR, handling SSA uniqueness, types, string interning,
// ABIs, and type coercion. This is deliberately the largest package in
// the module (spec.md §2 budgets it 45% of the implementation).
package emit

import "fmt"

// NameTable implements spec.md §4.4.5: every emitted name is routed
// through unique_name so that MIR, which does not guarantee name
// uniqueness (spec.md §3, "Source identifier space"), yields SSA names
// that are unique per function (invariant 7, `_N` suffixing).
type NameTable struct {
	counts map[string]int
}

// NewNameTable creates an empty table, scoped to one function.
func NewNameTable() *NameTable {
	return &NameTable{counts: make(map[string]int)}
}

// Unique returns base on first use and base_N on every subsequent use
// within this table's scope.
func (t *NameTable) Unique(base string) string {
	n := t.counts[base]
	t.counts[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}
