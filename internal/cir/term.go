package cir

import (
	"fmt"
	"strings"

	"bmbc/internal/prop"
)

// TermOf renders an Expr into the opaque prop.Term form a Proposition
// carries, used both to state explicit contract clauses and to convert a
// branch/loop condition expression into a proposition the propagator can
// file as a fact (spec.md §4.2 rules 3-5).
func TermOf(e Expr) prop.Term {
	switch v := e.(type) {
	case Lit:
		return prop.Term(fmt.Sprintf("%v", v.Value))
	case Var:
		return prop.Term(v.Name)
	case Len:
		return prop.Term(fmt.Sprintf("len(%s)", TermOf(v.Operand)))
	case Field:
		return prop.Term(fmt.Sprintf("%s.%s", TermOf(v.Base), v.Field))
	case Index:
		return prop.Term(fmt.Sprintf("%s[%s]", TermOf(v.Array), TermOf(v.Idx)))
	case UnaryOp:
		return prop.Term(fmt.Sprintf("%s%s", v.Op, TermOf(v.Operand)))
	case BinOp:
		return prop.Term(fmt.Sprintf("(%s %s %s)", TermOf(v.Left), v.Op, TermOf(v.Right)))
	case Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = string(TermOf(a))
		}
		return prop.Term(fmt.Sprintf("%s(%s)", v.Func, strings.Join(args, ", ")))
	default:
		return prop.Term("<expr>")
	}
}

var cmpOps = map[string]prop.CompareOp{
	"==": prop.OpEq,
	"!=": prop.OpNe,
	"<":  prop.OpLt,
	"<=": prop.OpLe,
	">":  prop.OpGt,
	">=": prop.OpGe,
}

// ToProposition converts a boolean-valued expression into a Proposition.
// A top-level comparison becomes Compare; boolean && / || become And/Or;
// ! becomes Not; anything else (a bare predicate call, a bool variable)
// becomes a Predicate/opaque atom keyed by its term form so that it can
// still be matched for equality against an identical expression elsewhere.
func ToProposition(e Expr) prop.Proposition {
	switch v := e.(type) {
	case Lit:
		if b, ok := v.Value.(bool); ok {
			if b {
				return prop.True{}
			}
			return prop.False{}
		}
	case BinOp:
		if op, ok := cmpOps[v.Op]; ok {
			return prop.Compare{Lhs: TermOf(v.Left), Op: op, Rhs: TermOf(v.Right)}
		}
		if v.Op == "&&" {
			return prop.And{Ps: []prop.Proposition{ToProposition(v.Left), ToProposition(v.Right)}}
		}
		if v.Op == "||" {
			return prop.Or{Ps: []prop.Proposition{ToProposition(v.Left), ToProposition(v.Right)}}
		}
	case UnaryOp:
		if v.Op == "!" {
			return prop.Not{P: ToProposition(v.Operand)}
		}
	case Call:
		args := make([]prop.Term, len(v.Args))
		for i, a := range v.Args {
			args[i] = TermOf(a)
		}
		return prop.Predicate{Name: v.Func, Args: args}
	}
	return prop.Predicate{Name: "expr", Args: []prop.Term{TermOf(e)}}
}
