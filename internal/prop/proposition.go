// Package prop implements the proposition algebra used to state function
// contracts and the facts derived from them: comparisons, logical
// combinators, quantifiers, and the array/null/predicate atoms a contract
// can mention.
package prop

import (
	"fmt"
	"strings"
)

// CompareOp is one of the six comparison operators a Compare proposition
// can carry.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

// Proposition is the sum type described in spec.md §3. Every variant is a
// value type; Equal performs the sole identity check (structural equality),
// so propositions can be used as map keys via their canonical string form.
type Proposition interface {
	// isProposition restricts implementers to this package's variants.
	isProposition()
	// String renders a canonical, deterministic textual form suitable for
	// solver encoding and for use as a de-duplication key.
	String() string
}

// Equal reports whether two propositions are structurally identical.
func Equal(a, b Proposition) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

type True struct{}
type False struct{}

func (True) isProposition()  {}
func (False) isProposition() {}
func (True) String() string  { return "true" }
func (False) String() string { return "false" }

// Term is a scalar expression reference inside a proposition: a variable
// name, an integer/float literal, or a nested call such as Len(arr). Terms
// are opaque strings from this package's point of view — the CIR layer is
// responsible for rendering its expressions into Term form.
type Term string

// Compare is `lhs op rhs`.
type Compare struct {
	Lhs Term
	Op  CompareOp
	Rhs Term
}

func (Compare) isProposition() {}
func (c Compare) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Lhs, c.Op, c.Rhs)
}

// Not negates a proposition.
type Not struct{ P Proposition }

func (Not) isProposition() {}
func (n Not) String() string { return fmt.Sprintf("!%s", n.P) }

// And is the conjunction of zero or more propositions (empty = True).
type And struct{ Ps []Proposition }

func (And) isProposition() {}
func (a And) String() string { return joinProps("&&", a.Ps) }

// Or is the disjunction of zero or more propositions (empty = False).
type Or struct{ Ps []Proposition }

func (Or) isProposition() {}
func (o Or) String() string { return joinProps("||", o.Ps) }

func joinProps(sep string, ps []Proposition) string {
	if len(ps) == 0 {
		if sep == "&&" {
			return "true"
		}
		return "false"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, " "+sep+" ") + ")"
}

// Implies is `P => Q`.
type Implies struct{ P, Q Proposition }

func (Implies) isProposition() {}
func (i Implies) String() string { return fmt.Sprintf("(%s => %s)", i.P, i.Q) }

// Forall is a bounded universal quantifier over Domain.
type Forall struct {
	Var    string
	Domain Domain
	Body   Proposition
}

func (Forall) isProposition() {}
func (f Forall) String() string {
	return fmt.Sprintf("forall %s in %s. %s", f.Var, f.Domain, f.Body)
}

// Exists is a bounded existential quantifier over Domain.
type Exists struct {
	Var    string
	Domain Domain
	Body   Proposition
}

func (Exists) isProposition() {}
func (e Exists) String() string {
	return fmt.Sprintf("exists %s in %s. %s", e.Var, e.Domain, e.Body)
}

// Domain is the range a quantified variable ranges over, e.g. 0..Len(arr).
type Domain struct {
	Lo, Hi Term
}

func (d Domain) String() string { return fmt.Sprintf("%s..%s", d.Lo, d.Hi) }

// InBounds asserts 0 <= Index < Len(Array).
type InBounds struct {
	Index Term
	Array Term
}

func (InBounds) isProposition() {}
func (b InBounds) String() string { return fmt.Sprintf("in_bounds(%s, %s)", b.Index, b.Array) }

// NonNull asserts Expr is not the null pointer.
type NonNull struct{ Expr Term }

func (NonNull) isProposition() {}
func (n NonNull) String() string { return fmt.Sprintf("non_null(%s)", n.Expr) }

// Predicate is a named, user- or stdlib-defined predicate applied to
// arguments, e.g. `sorted(arr)`.
type Predicate struct {
	Name string
	Args []Term
}

func (Predicate) isProposition() {}
func (p Predicate) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = string(a)
	}
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(args, ", "))
}

// Old refers to the value of Expr as it was on function entry, valid only
// inside a postcondition; Context names the function the postcondition
// belongs to (used by the propagator to scope the reference).
type Old struct {
	Expr    Term
	Context string
}

func (Old) isProposition() {}
func (o Old) String() string { return fmt.Sprintf("old(%s)@%s", o.Expr, o.Context) }

// Negate returns the logical negation of p, simplifying the common cases
// instead of always wrapping in Not (Compare flips its operator, Not(Not(p))
// collapses) so downstream fact search sees propositions in a canonical
// shape rather than accumulating double negatives.
func Negate(p Proposition) Proposition {
	switch v := p.(type) {
	case True:
		return False{}
	case False:
		return True{}
	case Compare:
		return Compare{Lhs: v.Lhs, Op: negateOp(v.Op), Rhs: v.Rhs}
	case Not:
		return v.P
	default:
		return Not{P: p}
	}
}

func negateOp(op CompareOp) CompareOp {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	default:
		return op
	}
}
