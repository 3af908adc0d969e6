// Package config holds the build configuration surface (spec.md §6):
// every recognized flag plus the concrete expansion fields (solver
// transport, log level/format) SPEC_FULL.md adds to reach a complete
// CLI-driven build.
package config

import (
	"fmt"
	"strings"

	"bmbc/internal/verify"
)

// OptLevel is spec.md §6's `opt_level` enum.
type OptLevel string

const (
	OptDebug      OptLevel = "debug"
	OptRelease    OptLevel = "release"
	OptSize       OptLevel = "size"
	OptAggressive OptLevel = "aggressive"
)

// OutputType is spec.md §6's `output_type` enum.
type OutputType string

const (
	OutputExecutable OutputType = "executable"
	OutputObject     OutputType = "object"
	OutputLlvmIr     OutputType = "llvm-ir"
)

// BuildConfig is the full set of options a build run is configured with.
// cmd/bmbc populates one from flags; tests construct one directly.
type BuildConfig struct {
	// Core (spec.md §6)
	Input                string
	Output               string
	OptLevel             OptLevel
	OutputType           OutputType
	EmitIR               bool
	EmitCIR              bool
	EmitPIR              bool
	ShowProofs           bool
	OptReport            bool
	ProofOptimizations   bool
	ProofCache           bool
	VerificationMode     verify.Mode
	VerificationTimeout  int // seconds
	FastMath             bool
	Target               string
	TargetTriple         string

	// Expansion (SPEC_FULL.md §6 "External interfaces" expansion):
	// where the verification gate's SolverClient looks for a solver.
	SolverPath     string
	SolverEndpoint string

	// Expansion: structured-logging settings. LogLevel is passed to
	// telemetry.New as its verbosity; LogFormat is not read by the logger.
	LogLevel  int
	LogFormat string
}

// Default returns the spec's documented defaults: Release, proof
// optimizations on, proof cache on, Check verification, 30s timeout,
// fast_math off.
func Default() BuildConfig {
	return BuildConfig{
		OptLevel:            OptRelease,
		OutputType:          OutputExecutable,
		ProofOptimizations:  true,
		ProofCache:          true,
		VerificationMode:    verify.ModeCheck,
		VerificationTimeout: 30,
		LogLevel:            1,
	}
}

// Validate rejects a config that cannot drive a build: a missing input,
// an unrecognized opt_level/output_type, or a non-positive timeout.
func (c BuildConfig) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return fmt.Errorf("config: input is required")
	}
	switch c.OptLevel {
	case OptDebug, OptRelease, OptSize, OptAggressive:
	default:
		return fmt.Errorf("config: unrecognized opt_level %q", c.OptLevel)
	}
	switch c.OutputType {
	case OutputExecutable, OutputObject, OutputLlvmIr:
	default:
		return fmt.Errorf("config: unrecognized output_type %q", c.OutputType)
	}
	if c.VerificationTimeout <= 0 {
		return fmt.Errorf("config: verification_timeout must be positive, got %d", c.VerificationTimeout)
	}
	if _, ok := verify.ParseMode(string(c.VerificationMode)); !ok {
		return fmt.Errorf("config: unrecognized verification_mode %q", c.VerificationMode)
	}
	return nil
}

// OutputPath returns Output if set, else Input's stem with an extension
// chosen by OutputType (spec.md §6: "defaults to input stem").
func (c BuildConfig) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	stem := stemOf(c.Input)
	switch c.OutputType {
	case OutputObject:
		return stem + ".o"
	case OutputLlvmIr:
		return stem + ".ll"
	default:
		return stem
	}
}

func stemOf(path string) string {
	base := path
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		base = path[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		return path[:len(path)-(len(base)-i)]
	}
	return path
}
