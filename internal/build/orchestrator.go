package build

import (
	"context"
	"os"
	"time"

	"github.com/segmentio/ksuid"

	"bmbc/internal/cache"
	"bmbc/internal/cir"
	"bmbc/internal/config"
	"bmbc/internal/diag"
	"bmbc/internal/emit"
	"bmbc/internal/fact"
	"bmbc/internal/mir"
	"bmbc/internal/pir"
	"bmbc/internal/telemetry"
	"bmbc/internal/verify"
)

// Frontend is the external-collaborator boundary for everything spec.md
// §1 names out of scope ahead of CIR: lexing, parsing, CFG filtering,
// type checking, and MIR construction from the typed AST.
type Frontend interface {
	// Compile turns source text into a CIR program, having already
	// lexed, parsed, CFG-filtered, and type-checked it.
	Compile(source string) (*cir.Program, error)
	// LowerToMIR builds MIR from a verified PIR program and the set of
	// function names the verification gate classified Verified (the
	// soundness boundary: only Verified functions' facts may have been
	// used to augment anything the lowering produces).
	LowerToMIR(p *pir.Program, verified map[string]bool) (*mir.Program, error)
}

// Toolchain is the external-collaborator boundary for C-toolchain
// discovery and invocation (spec.md §1, §6 "LLVM IR compatibility
// contract").
type Toolchain interface {
	Assemble(llvmIR string, cfg config.BuildConfig) (objectPath string, err error)
	Link(objectPath string, cfg config.BuildConfig) (execPath string, err error)
}

// Result is a completed build's observable output.
type Result struct {
	// BuildID identifies this single Run invocation in logs; every log
	// line this orchestrator emits is tagged with it, so a build that
	// touches the solver, the proof cache, and the toolchain can still
	// be followed as one thread through interleaved output.
	BuildID         string
	FinalState      State
	VerificationRep verify.Report
	Stats           mir.Stats
	LLVMIR          string
	ObjectPath      string
	ExecutablePath  string
}

// Orchestrator drives one compilation through the full state machine.
type Orchestrator struct {
	Frontend      Frontend
	Optimizer     *mir.Pipeline
	SolverClient  verify.SolverClient
	ProofCache    *cache.Cache
	Toolchain     Toolchain
	Log           telemetry.Logger
}

// Run executes spec.md §4.4.7's state machine against cfg, enforcing
// §4.4.8's failure semantics: failure at any state is terminal and no
// partial output file remains on disk for categories that matter
// (LLVM IR / object / executable).
func (o *Orchestrator) Run(ctx context.Context, cfg config.BuildConfig) (*Result, error) {
	log := o.Log
	if log == nil {
		log = telemetry.Noop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, diag.IO(diag.CodeSourceNotFound, "invalid build configuration", err)
	}

	fact.Reseed()
	buildID := ksuid.New().String()
	log.Debug("build started", "build_id", buildID, "input", cfg.Input)

	state := Init
	res := &Result{BuildID: buildID}

	source, err := os.ReadFile(cfg.Input)
	if err != nil {
		return nil, diag.IO(diag.CodeSourceUnreadable, "cannot read input", err)
	}
	// The frontend fuses lex/parse/cfg-filter/typecheck into one call, so
	// Lexed/Parsed/CfgFiltered are not independently observable here;
	// only the fused result (TypeChecked) is a checkpoint this
	// orchestrator can assert against.
	cirProg, err := o.Frontend.Compile(string(source))
	if err != nil {
		return nil, diag.Type("front-end rejected source", err)
	}
	state = TypeChecked

	sigs := cir.BuildSignatureTable(cirProg)

	var verifiedSet map[string]bool
	var report verify.Report
	if cfg.ProofOptimizations {
		propagator := pir.NewPropagator(sigs, map[string]bool{})
		pirProg := propagator.PropagateProgram(cirProg)

		var proofCache verify.Cache
		if o.ProofCache != nil {
			proofCache = o.ProofCache
		}
		report, err = verify.VerifyProgram(ctx, cirProg, cfg.VerificationMode, o.SolverClient, proofCache, secondsToDuration(cfg.VerificationTimeout), log)
		if err != nil {
			return nil, diag.Verification(report)
		}
		verifiedSet = report.VerifiedSet()

		// A second propagation pass with the now-known verified set lets
		// the Call rule's soundness check (pir.Propagator) attach
		// postcondition facts only for genuinely verified callees.
		propagator = pir.NewPropagator(sigs, verifiedSet)
		pirProg = propagator.PropagateProgram(cirProg)

		res.VerificationRep = report
		verdict := VerifiedState
		if len(report.Failures()) > 0 {
			verdict = Unverified
		}

		mirProg, err := o.Frontend.LowerToMIR(pirProg, verifiedSet)
		if err != nil {
			return nil, diag.CodeGen(diag.CodeEmissionImpossible, "MIR construction failed", err)
		}
		// The verification gate runs on CIR/PIR ahead of MIR construction,
		// so MIRed is reached only after the verdict is already known;
		// advance from MIRed rather than from the verdict itself.
		state = o.advance(MIRed, verdict)

		proofs := mir.BuildProofIndex(pirProg, verifiedSet)
		eliminator := mir.NewEliminator(proofs)

		if o.Optimizer != nil {
			o.Optimizer.Optimize(mirProg)
		}
		stats := eliminator.Run(mirProg)
		res.Stats = stats
		state = o.advance(state, Optimized)

		if cfg.OptReport {
			log.Info("optimization report",
				"build_id", buildID,
				"bounds_checks_eliminated", stats.BoundsChecksEliminated,
				"null_checks_eliminated", stats.NullChecksEliminated,
				"division_checks_eliminated", stats.DivisionChecksEliminated,
				"unreachable_blocks_eliminated", stats.UnreachableBlocksEliminated,
			)
		}

		llvmIR := emit.EmitModule(mirProg, cfg.TargetTriple, cfg.FastMath)
		res.LLVMIR = llvmIR
		state = o.advance(state, Emitted)

		return o.finishOutputs(cfg, res, state)
	}

	// proof_optimizations = false: MIR is built straight from CIR with
	// no verification gate or fact augmentation (no function is ever in
	// verifiedSet, so BuildProofIndex / the eliminator's guard removal
	// have nothing to act on).
	propagator := pir.NewPropagator(sigs, map[string]bool{})
	pirProg := propagator.PropagateProgram(cirProg)
	mirProg, err := o.Frontend.LowerToMIR(pirProg, nil)
	if err != nil {
		return nil, diag.CodeGen(diag.CodeEmissionImpossible, "MIR construction failed", err)
	}
	state = o.advance(MIRed, Unverified)
	if o.Optimizer != nil {
		o.Optimizer.Optimize(mirProg)
	}
	state = o.advance(state, Optimized)

	llvmIR := emit.EmitModule(mirProg, cfg.TargetTriple, cfg.FastMath)
	res.LLVMIR = llvmIR
	state = o.advance(state, Emitted)

	return o.finishOutputs(cfg, res, state)
}

// advance moves the state machine from from to to, panicking if to is
// not a legal successor of from. A violation here means this
// orchestrator's own control flow skipped or misordered a stage, never
// something a build input can trigger.
func (o *Orchestrator) advance(from, to State) State {
	if !CanAdvance(from, to) {
		panic("build: illegal state transition " + string(from) + " -> " + string(to))
	}
	return to
}

// finishOutputs handles the tail of the pipeline: stopping after .ll
// when requested, or continuing through assembly and linking.
func (o *Orchestrator) finishOutputs(cfg config.BuildConfig, res *Result, state State) (*Result, error) {
	if cfg.EmitIR || cfg.OutputType == config.OutputLlvmIr {
		if err := os.WriteFile(cfg.OutputPath(), []byte(res.LLVMIR), 0o644); err != nil {
			return nil, diag.IO(diag.CodeOutputUnwritable, "cannot write LLVM IR", err)
		}
		res.FinalState = Done
		return res, nil
	}

	if o.Toolchain == nil {
		return nil, diag.CodeGen(diag.CodeEmissionImpossible, "no toolchain configured for object/executable output", nil)
	}

	objPath, err := o.Toolchain.Assemble(res.LLVMIR, cfg)
	if err != nil {
		return nil, diag.Linker("assembly failed", err)
	}
	res.ObjectPath = objPath
	state = o.advance(state, ObjectEmitted)

	if cfg.OutputType == config.OutputObject {
		res.FinalState = Done
		return res, nil
	}

	exePath, err := o.Toolchain.Link(objPath, cfg)
	if err != nil {
		return nil, diag.Linker("linking failed", err)
	}
	res.ExecutablePath = exePath
	state = o.advance(state, Linked)
	res.FinalState = o.advance(state, Done)
	return res, nil
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
