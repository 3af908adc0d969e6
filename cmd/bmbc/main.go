// Command bmbc is the build pipeline's CLI front door: it parses flags
// into a config.BuildConfig, wires the concrete collaborators spec.md §1
// puts out of scope (solver transport, CIR/MIR test fixture, C
// toolchain), and drives build.Orchestrator.Run, rendering any
// resulting diag.BuildError the way spec.md §7 describes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"bmbc/internal/build"
	"bmbc/internal/cache"
	"bmbc/internal/config"
	"bmbc/internal/diag"
	"bmbc/internal/fixture"
	"bmbc/internal/mir"
	"bmbc/internal/telemetry"
	"bmbc/internal/toolchain"
	"bmbc/internal/verify"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main's testable core: it never calls os.Exit itself, returning
// the process exit code instead.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 1
	}

	log := telemetry.New("bmbc", cfg.LogLevel)

	var proofCache *cache.Cache
	cachePath := cfg.Input + ".bmbc-cache"
	if cfg.ProofCache {
		proofCache = cache.Load(cachePath)
		defer func() {
			if err := proofCache.Save(cachePath); err != nil {
				log.Warn("proof cache write failed", "error", err)
			}
		}()
	}

	solverClient := dialSolver(cfg, log)
	if closer, ok := solverClient.(io.Closer); ok {
		defer closer.Close()
	}

	orch := &build.Orchestrator{
		Frontend:  &fixture.Frontend{},
		Optimizer: mir.NewPipeline(mir.ConstantFolding{}),
		SolverClient: solverClient,
		ProofCache:   proofCache,
		Toolchain:    &toolchain.Driver{},
		Log:          log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.VerificationTimeout+30)*time.Second)
	defer cancel()

	res, err := orch.Run(ctx, cfg)
	if err != nil {
		return reportFailure(err, stderr)
	}

	reportSuccess(res, cfg, stdout)
	return 0
}

// dialSolver resolves the verify.SolverClient named by cfg, preferring a
// WebSocket endpoint over a subprocess path, and falling back to nil
// when neither is configured: VerifyProgram already treats a nil/
// unavailable client as "solver unavailable" and handles it per mode
// (spec.md §4.4.8).
func dialSolver(cfg config.BuildConfig, log telemetry.Logger) verify.SolverClient {
	ctx := context.Background()
	switch {
	case cfg.SolverEndpoint != "":
		client, err := verify.DialWebSocket(ctx, cfg.SolverEndpoint)
		if err != nil {
			log.Warn("solver websocket dial failed", "endpoint", cfg.SolverEndpoint, "error", err)
			return nil
		}
		return client
	case cfg.SolverPath != "":
		client, err := verify.DialStdio(ctx, cfg.SolverPath)
		if err != nil {
			log.Warn("solver subprocess dial failed", "path", cfg.SolverPath, "error", err)
			return nil
		}
		return client
	default:
		return nil
	}
}

// exitCodes maps a BuildError's category to the process exit code,
// keeping each category distinguishable to a calling script without
// parsing rendered text (spec.md §6: "non-zero with a rendered
// diagnostic on any BuildError").
var exitCodes = map[diag.Category]int{
	diag.CategoryIO:           2,
	diag.CategoryParse:        3,
	diag.CategoryType:         4,
	diag.CategoryVerification: 5,
	diag.CategoryCodeGen:      6,
	diag.CategoryLinker:       7,
}

func reportFailure(err error, stderr io.Writer) int {
	buildErr, ok := err.(*diag.BuildError)
	if !ok {
		fmt.Fprintf(stderr, "%s %v\n", color.RedString("error:"), err)
		return 1
	}
	fmt.Fprint(stderr, diag.Render(buildErr, int(fdOf(stderr))))
	if code, ok := exitCodes[buildErr.Category]; ok {
		return code
	}
	return 1
}

func reportSuccess(res *build.Result, cfg config.BuildConfig, stdout io.Writer) {
	switch {
	case cfg.EmitIR || cfg.OutputType == config.OutputLlvmIr:
		fmt.Fprintln(stdout, color.GreenString("wrote LLVM IR to %s", cfg.OutputPath()))
	case cfg.OutputType == config.OutputObject:
		fmt.Fprintln(stdout, color.GreenString("wrote object file to %s", res.ObjectPath))
	default:
		fmt.Fprintln(stdout, color.GreenString("built %s", res.ExecutablePath))
	}
	if cfg.OptReport {
		fmt.Fprintf(stdout, "  bounds checks eliminated:   %d\n", res.Stats.BoundsChecksEliminated)
		fmt.Fprintf(stdout, "  null checks eliminated:     %d\n", res.Stats.NullChecksEliminated)
		fmt.Fprintf(stdout, "  division checks eliminated: %d\n", res.Stats.DivisionChecksEliminated)
		fmt.Fprintf(stdout, "  unreachable blocks removed: %d\n", res.Stats.UnreachableBlocksEliminated)
	}
}

// fdOf returns the underlying file descriptor of w when it is an *os.File
// (so Render can size its rule to the real terminal), or a non-tty
// placeholder otherwise.
func fdOf(w io.Writer) uintptr {
	if f, ok := w.(*os.File); ok {
		return f.Fd()
	}
	return ^uintptr(0)
}

// parseFlags builds a config.BuildConfig from args, applying config.Default()
// first so every flag not explicitly passed keeps spec.md §6's documented
// default.
func parseFlags(args []string, stderr io.Writer) (config.BuildConfig, error) {
	fs := flag.NewFlagSet("bmbc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := config.Default()

	var optLevel, outputType, verificationMode string

	fs.StringVar(&cfg.Output, "o", "", "output path (defaults to input stem)")
	fs.StringVar(&optLevel, "opt-level", string(cfg.OptLevel), "debug|release|size|aggressive")
	fs.StringVar(&outputType, "output-type", string(cfg.OutputType), "executable|object|llvm-ir")
	fs.BoolVar(&cfg.EmitIR, "emit-ir", cfg.EmitIR, "write the .ll file and stop")
	fs.BoolVar(&cfg.EmitCIR, "emit-cir", cfg.EmitCIR, "dump CIR for inspection")
	fs.BoolVar(&cfg.EmitPIR, "emit-pir", cfg.EmitPIR, "dump PIR for inspection")
	fs.BoolVar(&cfg.ShowProofs, "show-proofs", cfg.ShowProofs, "include proof annotations in dumps")
	fs.BoolVar(&cfg.OptReport, "opt-report", cfg.OptReport, "print the post-optimization tally")
	fs.BoolVar(&cfg.ProofOptimizations, "proof-optimizations", cfg.ProofOptimizations, "enable the CIR to PIR to MIR-facts pipeline")
	fs.BoolVar(&cfg.ProofCache, "proof-cache", cfg.ProofCache, "read/write the persistent proof cache")
	fs.StringVar(&verificationMode, "verify", string(cfg.VerificationMode), "none|check|warn|trust")
	fs.IntVar(&cfg.VerificationTimeout, "verify-timeout", cfg.VerificationTimeout, "verification wall-clock timeout, seconds")
	fs.BoolVar(&cfg.FastMath, "fast-math", cfg.FastMath, "add fast flags to float operations")
	fs.StringVar(&cfg.Target, "target", "", "symbolic target")
	fs.StringVar(&cfg.TargetTriple, "target-triple", "", "explicit LLVM target triple")
	fs.StringVar(&cfg.SolverPath, "solver-path", "", "path to a solver subprocess executable")
	fs.StringVar(&cfg.SolverEndpoint, "solver-endpoint", "", "websocket URL of a shared solver")
	fs.IntVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "0 (quiet) .. 2 (debug)")

	if err := fs.Parse(args); err != nil {
		return config.BuildConfig{}, err
	}

	if fs.NArg() > 0 {
		cfg.Input = fs.Arg(0)
	}
	cfg.OptLevel = config.OptLevel(optLevel)
	cfg.OutputType = config.OutputType(outputType)
	if mode, ok := verify.ParseMode(verificationMode); ok {
		cfg.VerificationMode = mode
	} else {
		cfg.VerificationMode = config.Default().VerificationMode
	}

	if err := cfg.Validate(); err != nil {
		return config.BuildConfig{}, err
	}
	return cfg, nil
}
