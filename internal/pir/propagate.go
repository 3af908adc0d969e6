package pir

import (
	"bmbc/internal/cir"
	"bmbc/internal/fact"
	"bmbc/internal/prop"
)

// Propagator threads proven facts through one compilation unit's CIR
// functions (spec.md §4.2). It is stateless across functions; all
// per-function state lives in the walk below.
type Propagator struct {
	sigs     cir.SignatureTable
	verified map[string]bool
}

// NewPropagator builds a propagator over sigs, trusting only the
// functions named in verified to contribute CallPost facts at call sites
// (spec.md §4.1 soundness rule, applied at the earliest point a fact
// could otherwise leak from an unverified function into a caller).
func NewPropagator(sigs cir.SignatureTable, verified map[string]bool) *Propagator {
	return &Propagator{sigs: sigs, verified: verified}
}

// PropagateProgram runs the propagator over every function in p.
func (pg *Propagator) PropagateProgram(p *cir.Program) *Program {
	out := &Program{}
	for _, f := range p.Functions {
		out.Functions = append(out.Functions, pg.PropagateFunction(f))
	}
	return out
}

// scope carries the per-function mutable state the walk consults: the
// per-variable fact lists (rule 2, 6) and the function's declared loop
// invariants (rule 4/5).
type scope struct {
	varFacts  map[string]fact.Set
	invariants map[string][]prop.Proposition
}

// PropagateFunction implements rules 1-7 of spec.md §4.2 for a single
// function, returning its PIR form.
func (pg *Propagator) PropagateFunction(f *cir.Function) *Function {
	// Rule 1: entry facts from preconditions.
	entry := fact.NewSet()
	for _, p := range f.Preconditions {
		entry = entry.With(fact.New(fact.TagPrecondition, p))
	}

	sc := &scope{varFacts: make(map[string]fact.Set), invariants: f.LoopInvariants}

	// Rule 2: file every entry fact whose proposition mentions a
	// parameter under that parameter's per-variable list. Mention is
	// approximated by substring search on the canonical term rendering,
	// sufficient because source identifiers cannot collide as substrings
	// of unrelated identifiers once qualified (resolver's job, out of
	// scope here) and this pass only needs a conservative superset: a
	// false-positive filing costs a wasted proof search later, never an
	// unsound proof.
	for _, prm := range f.Params {
		var mentioning []fact.Fact
		for _, ef := range entry.All() {
			if mentions(ef.Prop, prm.Name) {
				mentioning = append(mentioning, ef)
			}
		}
		sc.varFacts[prm.Name] = fact.NewSet(mentioning...)
	}

	body := pg.walk(f.Body, entry, sc)

	return &Function{
		Source:     f,
		EntryFacts: entry,
		ParamFacts: sc.varFacts,
		Body:       body,
	}
}

// mentions is a structural substring test over a proposition's canonical
// string form.
func mentions(p prop.Proposition, name string) bool {
	s := p.String()
	for i := 0; i+len(name) <= len(s); i++ {
		if s[i:i+len(name)] == name {
			return true
		}
	}
	return false
}

// walk is the pre-order traversal that terminates because CIR is a
// finite tree and each recursive call strictly descends into a child
// (spec.md §4.2, "Termination"); loop bodies are visited exactly once.
func (pg *Propagator) walk(e cir.Expr, facts fact.Set, sc *scope) *Expr {
	node := &Expr{Node: e, Proven: facts}

	switch v := e.(type) {
	case cir.If:
		P := cir.ToProposition(v.Cond)
		thenFacts := facts.With(fact.New(fact.TagControlFlow, P))
		elseFacts := facts.With(fact.New(fact.TagControlFlow, prop.Negate(P)))
		node.ThenFacts = thenFacts
		node.ElseFacts = elseFacts
		node.Then = pg.walk(v.Then, thenFacts, sc)
		if v.Else != nil {
			node.Else = pg.walk(v.Else, elseFacts, sc)
		}

	case cir.While:
		P := cir.ToProposition(v.Cond)
		bodyFacts := facts.With(fact.New(fact.TagControlFlow, P))
		for _, inv := range sc.invariants[v.Label] {
			bodyFacts = bodyFacts.With(fact.New(fact.TagLoopInvariant, inv))
		}
		node.InvariantFacts = bodyFacts
		// Loop exit is not asserted as Not(P): it may be unreachable.
		node.BodyNode = pg.walk(v.Body, bodyFacts, sc)

	case cir.Loop:
		bodyFacts := facts
		for _, inv := range sc.invariants[v.Label] {
			bodyFacts = bodyFacts.With(fact.New(fact.TagLoopInvariant, inv))
		}
		node.InvariantFacts = bodyFacts
		node.BodyNode = pg.walk(v.Body, bodyFacts, sc)

	case cir.For:
		lo := cir.TermOf(v.Lo)
		hi := cir.TermOf(v.Hi)
		vt := prop.Term(v.Var)
		iterFacts := facts.With(
			fact.New(fact.TagControlFlow, prop.Compare{Lhs: vt, Op: prop.OpGe, Rhs: lo}),
			fact.New(fact.TagControlFlow, prop.Compare{Lhs: vt, Op: prop.OpLt, Rhs: hi}),
		)
		for _, inv := range sc.invariants[v.Label] {
			iterFacts = iterFacts.With(fact.New(fact.TagLoopInvariant, inv))
		}
		node.IterFacts = iterFacts
		sc.varFacts[v.Var] = iterFacts
		node.BodyNode = pg.walk(v.Body, iterFacts, sc)

	case cir.Let:
		valNode := pg.walk(v.Value, facts, sc)
		node.Children = []*Expr{valNode}
		// Rule 6: attach every fact the value expression carries to the
		// bound name's per-variable list.
		sc.varFacts[v.Name] = resultFacts(valNode)
		bodyFacts := facts
		if valNode.PostconditionFacts.Len() > 0 {
			bodyFacts = facts.With(valNode.PostconditionFacts.All()...)
		}
		if v.Body != nil {
			node.BodyNode = pg.walk(v.Body, bodyFacts, sc)
		}

	case cir.Assign:
		valNode := pg.walk(v.Value, facts, sc)
		node.Children = []*Expr{valNode}
		sc.varFacts[v.Name] = resultFacts(valNode)

	case cir.Block:
		cur := facts
		for _, sub := range v.Exprs {
			child := pg.walk(sub, cur, sc)
			node.Children = append(node.Children, child)
			if child.PostconditionFacts.Len() > 0 {
				cur = cur.With(child.PostconditionFacts.All()...)
			}
		}

	case cir.Call:
		for _, a := range v.Args {
			node.Children = append(node.Children, pg.walk(a, facts, sc))
		}
		// Rule 7: attach f's postconditions as CallPost facts, but only
		// when the callee is verified (soundness rule applied at the
		// earliest point it matters).
		if sig, ok := pg.sigs[v.Func]; ok && pg.verified[v.Func] {
			var post []fact.Fact
			for _, p := range sig.Postconditions {
				post = append(post, fact.New(fact.TagCallPost, p))
			}
			node.PostconditionFacts = fact.NewSet(post...)
		}

	case cir.BinOp:
		left := pg.walk(v.Left, facts, sc)
		right := pg.walk(v.Right, facts, sc)
		node.Children = []*Expr{left, right}
		if v.Op == "/" || v.Op == "%" {
			pg.attachDivProof(node, v, facts)
		}

	case cir.UnaryOp:
		node.Children = []*Expr{pg.walk(v.Operand, facts, sc)}

	case cir.Index:
		arrN := pg.walk(v.Array, facts, sc)
		idxN := pg.walk(v.Idx, facts, sc)
		node.Children = []*Expr{arrN, idxN}
		pg.attachBoundsProof(node, v, facts)

	case cir.Field:
		base := pg.walk(v.Base, facts, sc)
		node.Children = []*Expr{base}
		pg.attachNullProof(node, v, facts)

	case cir.Ref:
		node.Children = []*Expr{pg.walk(v.Operand, facts, sc)}
	case cir.Deref:
		node.Children = []*Expr{pg.walk(v.Operand, facts, sc)}
	case cir.Cast:
		node.Children = []*Expr{pg.walk(v.Operand, facts, sc)}
	case cir.Len:
		node.Children = []*Expr{pg.walk(v.Operand, facts, sc)}
	case cir.StructLit:
		for _, name := range v.Order {
			node.Children = append(node.Children, pg.walk(v.Fields[name], facts, sc))
		}
	case cir.TupleLit:
		for _, el := range v.Elems {
			node.Children = append(node.Children, pg.walk(el, facts, sc))
		}
	case cir.ArrayLit:
		for _, el := range v.Elems {
			node.Children = append(node.Children, pg.walk(el, facts, sc))
		}

	case cir.Var:
		if vf, ok := sc.varFacts[v.Name]; ok {
			node.Proven = facts.With(vf.All()...)
		}

	case cir.Lit, cir.Break, cir.Continue:
		// Leaves; no children, no proof obligation.
	}

	return node
}

// resultFacts is the set of facts a fully-walked expression node
// contributes to whatever binds its value (spec.md §4.2 rule 6): the
// facts live at the node plus, for a call, its postcondition facts.
func resultFacts(n *Expr) fact.Set {
	if n.PostconditionFacts.Len() > 0 {
		return n.Proven.With(n.PostconditionFacts.All()...)
	}
	return n.Proven
}

// attachDivProof implements spec.md §4.2's Div proof-search rule: find a
// live Compare(b, !=, 0), or derive it from facts entailing b != 0.
func (pg *Propagator) attachDivProof(node *Expr, v cir.BinOp, facts fact.Set) {
	rhs := cir.TermOf(v.Right)
	want := prop.Compare{Lhs: rhs, Op: prop.OpNe, Rhs: prop.Term("0")}
	if f, ok := facts.Find(want); ok {
		node.NonzeroProof = &f
		return
	}
	// An equivalent form: 0 != b.
	alt := prop.Compare{Lhs: prop.Term("0"), Op: prop.OpNe, Rhs: rhs}
	if f, ok := facts.Find(alt); ok {
		node.NonzeroProof = &f
		return
	}
	// A strict bound on either side of zero also entails non-zero.
	matches := facts.FindMatching(func(p prop.Proposition) bool {
		c, ok := p.(prop.Compare)
		if !ok || c.Lhs != rhs {
			return false
		}
		return (c.Op == prop.OpGt || c.Op == prop.OpLt) && c.Rhs == prop.Term("0")
	})
	if len(matches) > 0 {
		f := matches[0]
		node.NonzeroProof = &f
	}
}

// attachBoundsProof implements spec.md §4.2's Index proof-search rule:
// find InBounds(i, arr), or the pair {i >= 0, i < Len(arr)}.
func (pg *Propagator) attachBoundsProof(node *Expr, v cir.Index, facts fact.Set) {
	idx := cir.TermOf(v.Idx)
	arr := cir.TermOf(v.Array)
	if f, ok := facts.Find(prop.InBounds{Index: idx, Array: arr}); ok {
		node.BoundsProof = &f
		return
	}
	lenTerm := prop.Term("len(" + string(arr) + ")")
	geq0, hasGeq := facts.Find(prop.Compare{Lhs: idx, Op: prop.OpGe, Rhs: prop.Term("0")})
	ltLen, hasLt := facts.Find(prop.Compare{Lhs: idx, Op: prop.OpLt, Rhs: lenTerm})
	if hasGeq && hasLt {
		// Synthesize a single derived fact recording both premises so the
		// eliminator has one id to cite; provenance is ControlFlow since
		// it is derived, not itself a live fact.
		derived := fact.New(fact.TagControlFlow, prop.And{Ps: []prop.Proposition{geq0.Prop, ltLen.Prop}})
		node.BoundsProof = &derived
	}
}

// attachNullProof implements spec.md §4.2's Field proof-search rule:
// find NonNull(ptr).
func (pg *Propagator) attachNullProof(node *Expr, v cir.Field, facts fact.Set) {
	base := cir.TermOf(v.Base)
	if f, ok := facts.Find(prop.NonNull{Expr: base}); ok {
		node.NullProof = &f
	}
}
