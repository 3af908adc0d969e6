// Package verify implements the verification gate (spec.md §4.1): it
// calls a configurable SMT solver once per function and classifies each
// as Verified, Failed, or Skipped, driving which functions' contracts
// the rest of the pipeline may use as optimizer premises.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"bmbc/internal/cir"
	"bmbc/internal/prop"
	"bmbc/internal/telemetry"
)

// Cache is the minimal proof-cache surface VerifyProgram consults:
// satisfied by *cache.Cache without this package importing internal/
// cache, which itself imports this package for Outcome (an import back
// the other way would cycle).
type Cache interface {
	Lookup(function string, hash [blake2b.Size256]byte) (Outcome, bool)
	Store(function string, hash [blake2b.Size256]byte, outcome Outcome)
}

// hashObligations keys a function's cache entry on its precondition/
// postcondition/loop-invariant text, the same blake2b-256 hash
// cache.HashSource uses, so a function whose contracts haven't changed
// reuses its prior verification outcome across runs (spec.md §6's
// persistent proof cache).
func hashObligations(obligations []prop.Proposition) [blake2b.Size256]byte {
	parts := make([]string, len(obligations))
	for i, o := range obligations {
		parts[i] = o.String()
	}
	return blake2b.Sum256([]byte(strings.Join(parts, ";")))
}

// OutcomeKind is the three-way classification of spec.md §4.1.
type OutcomeKind string

const (
	Verified OutcomeKind = "verified"
	Failed   OutcomeKind = "failed"
	Skipped  OutcomeKind = "skipped"
)

// Outcome is one function's verification result.
type Outcome struct {
	Kind           OutcomeKind
	Reason         string
	Counterexample string // only meaningful when Kind == Failed
}

// FunctionResult pairs a function name with its Outcome.
type FunctionResult struct {
	Function string
	Outcome  Outcome
}

// Report is the gate's output: one result per function plus a summary.
type Report struct {
	Results []FunctionResult
	// SolverUnavailable records whether the configured solver could not
	// be reached at all (spec.md §4.1, "Solver unavailable").
	SolverUnavailable bool
}

// VerifiedSet returns the subset of function names the report classifies
// as Verified.
func (r Report) VerifiedSet() map[string]bool {
	out := make(map[string]bool)
	for _, res := range r.Results {
		if res.Outcome.Kind == Verified {
			out[res.Function] = true
		}
	}
	return out
}

// Failures returns every Failed result, in report order.
func (r Report) Failures() []FunctionResult {
	var out []FunctionResult
	for _, res := range r.Results {
		if res.Outcome.Kind == Failed {
			out = append(out, res)
		}
	}
	return out
}

// DefaultTimeout is the default per-function solver wall-clock budget
// (spec.md §4.1).
const DefaultTimeout = 30 * time.Second

// FailedVerificationError is returned by VerifyProgram in Check mode when
// one or more functions fail (spec.md §4.1, §7 "Verification").
type FailedVerificationError struct {
	Report Report
}

func (e *FailedVerificationError) Error() string {
	fails := e.Report.Failures()
	return fmt.Sprintf("contract verification failed for %d function(s)", len(fails))
}

// VerifyProgram implements spec.md §4.1 in full, including the mode
// semantics and the solver-unavailable fallback. log may be nil.
// proofCache may be nil, disabling the cache consultation spec.md §6
// describes; a hit skips the solver call entirely, a miss calls the
// solver and stores the outcome under the function's obligations hash.
func VerifyProgram(ctx context.Context, p *cir.Program, mode Mode, client SolverClient, proofCache Cache, timeout time.Duration, log telemetry.Logger) (Report, error) {
	if log == nil {
		log = telemetry.Noop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if mode == ModeNone {
		log.Debug("verification gate not entered (mode=none)")
		return Report{}, nil
	}

	if mode == ModeTrust {
		log.Warn("verification bypassed (mode=trust): build is unsafe")
		rep := Report{}
		for _, f := range p.Functions {
			rep.Results = append(rep.Results, FunctionResult{
				Function: f.Name,
				Outcome:  Outcome{Kind: Verified, Reason: "trusted"},
			})
		}
		return rep, nil
	}

	if client == nil || !client.Available(ctx) {
		if mode == ModeCheck {
			log.Warn("solver unavailable: verification not sound without solver; falling back to trust semantics")
			rep := Report{SolverUnavailable: true}
			for _, f := range p.Functions {
				rep.Results = append(rep.Results, FunctionResult{
					Function: f.Name,
					Outcome:  Outcome{Kind: Verified, Reason: "trusted (solver unavailable)"},
				})
			}
			return rep, nil
		}
		// Warn mode: return the empty verified set.
		log.Warn("solver unavailable: no functions verified")
		return Report{SolverUnavailable: true}, nil
	}

	rep := Report{}
	for _, f := range p.Functions {
		outcome := verifyFunction(ctx, f, client, proofCache, timeout, log)
		rep.Results = append(rep.Results, FunctionResult{Function: f.Name, Outcome: outcome})
	}

	if mode == ModeCheck {
		if fails := rep.Failures(); len(fails) > 0 {
			for _, fr := range fails {
				log.Error("verification failed", "function", fr.Function, "reason", fr.Outcome.Reason)
			}
			return rep, &FailedVerificationError{Report: rep}
		}
	}

	return rep, nil
}

// verifyFunction gathers f's propositions (preconditions, postconditions,
// and loop invariants — the body-to-verification-condition translation
// itself is the solver's concern, out of scope here per spec.md §1),
// consults proofCache before paying for a solver round trip, and calls
// the solver with the per-function timeout on a miss.
func verifyFunction(ctx context.Context, f *cir.Function, client SolverClient, proofCache Cache, timeout time.Duration, log telemetry.Logger) Outcome {
	var obligations []prop.Proposition
	obligations = append(obligations, f.Preconditions...)
	obligations = append(obligations, f.Postconditions...)
	for _, invs := range f.LoopInvariants {
		obligations = append(obligations, invs...)
	}

	hash := hashObligations(obligations)
	if proofCache != nil {
		if outcome, ok := proofCache.Lookup(f.Name, hash); ok {
			log.Debug("proof cache hit", "function", f.Name)
			return outcome
		}
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := client.Check(cctx, f.Name, obligations)
	if err != nil {
		if cctx.Err() != nil {
			log.Warn("solver timeout", "function", f.Name, "timeout", timeout)
			return Outcome{Kind: Failed, Reason: "timeout"}
		}
		log.Warn("solver error", "function", f.Name, "error", err)
		return Outcome{Kind: Skipped, Reason: err.Error()}
	}

	if proofCache != nil {
		proofCache.Store(f.Name, hash, result)
	}
	return result
}
