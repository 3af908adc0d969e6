package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bmbc/internal/cir"
	"bmbc/internal/config"
	"bmbc/internal/mir"
	"bmbc/internal/pir"
	"bmbc/internal/verify"
)

// identityMIR returns a single-function program equivalent to
// `fn identity(x: i64) -> i64 { return x; }`, enough for emit.EmitModule
// to produce real LLVM IR.
func identityMIR() *mir.Program {
	return &mir.Program{
		Structs: map[string]*mir.StructT{},
		Functions: []*mir.Function{
			{
				Name:       "identity",
				Params:     []mir.Local{{Name: "x", Type: mir.I64{}}},
				ReturnType: mir.I64{},
				Blocks: []*mir.BasicBlock{
					{Label: "entry", Terminator: mir.ReturnTerm{Value: "x"}},
				},
			},
		},
	}
}

// stubFrontend is a bare-bones Frontend: Compile returns compileErr when
// set and otherwise an empty CIR program (no functions to verify), and
// LowerToMIR ignores its inputs, returning mirErr when set, else mirProg
// when set, else a fixed identity function.
type stubFrontend struct {
	compileErr error
	mirErr     error
	mirProg    *mir.Program
}

func (f *stubFrontend) Compile(source string) (*cir.Program, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	return &cir.Program{}, nil
}

func (f *stubFrontend) LowerToMIR(p *pir.Program, verified map[string]bool) (*mir.Program, error) {
	if f.mirErr != nil {
		return nil, f.mirErr
	}
	if f.mirProg != nil {
		return f.mirProg, nil
	}
	return identityMIR(), nil
}

// stubToolchain returns fixed output paths (or its configured errors)
// without touching the filesystem or an actual C toolchain.
type stubToolchain struct {
	assembleErr error
	linkErr     error
}

func (t *stubToolchain) Assemble(llvmIR string, cfg config.BuildConfig) (string, error) {
	if t.assembleErr != nil {
		return "", t.assembleErr
	}
	return cfg.OutputPath() + ".o", nil
}

func (t *stubToolchain) Link(objectPath string, cfg config.BuildConfig) (string, error) {
	if t.linkErr != nil {
		return "", t.linkErr
	}
	return cfg.OutputPath(), nil
}

func writeSourceFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.bmb")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func baseConfig(t *testing.T, outputType config.OutputType) config.BuildConfig {
	cfg := config.Default()
	cfg.Input = writeSourceFile(t, "fn identity(x: i64) -> i64 { return x; }")
	cfg.Output = filepath.Join(t.TempDir(), "out")
	cfg.OutputType = outputType
	cfg.VerificationMode = verify.ModeNone // no solver wired in these tests
	return cfg
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	o := &Orchestrator{Frontend: &stubFrontend{}}
	_, err := o.Run(context.Background(), config.BuildConfig{})
	assert.Error(t, err)
}

func TestRunEmitsIRAndStopsEarly(t *testing.T) {
	cfg := baseConfig(t, config.OutputExecutable)
	cfg.EmitIR = true
	o := &Orchestrator{Frontend: &stubFrontend{}}

	res, err := o.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Done, res.FinalState)
	assert.Contains(t, res.LLVMIR, "define")
	assert.Empty(t, res.ObjectPath)
	assert.NotEmpty(t, res.BuildID)
}

func TestRunStopsAfterObjectWhenRequested(t *testing.T) {
	cfg := baseConfig(t, config.OutputObject)
	o := &Orchestrator{Frontend: &stubFrontend{}, Toolchain: &stubToolchain{}}

	res, err := o.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Done, res.FinalState)
	assert.NotEmpty(t, res.ObjectPath)
	assert.Empty(t, res.ExecutablePath)
}

func TestRunLinksThroughToExecutable(t *testing.T) {
	cfg := baseConfig(t, config.OutputExecutable)
	o := &Orchestrator{Frontend: &stubFrontend{}, Toolchain: &stubToolchain{}}

	res, err := o.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Done, res.FinalState)
	assert.NotEmpty(t, res.ObjectPath)
	assert.NotEmpty(t, res.ExecutablePath)
}

func TestRunWithoutToolchainFailsForNativeOutput(t *testing.T) {
	cfg := baseConfig(t, config.OutputExecutable)
	o := &Orchestrator{Frontend: &stubFrontend{}}

	_, err := o.Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunSurfacesLinkerFailure(t *testing.T) {
	cfg := baseConfig(t, config.OutputExecutable)
	o := &Orchestrator{Frontend: &stubFrontend{}, Toolchain: &stubToolchain{linkErr: assert.AnError}}

	_, err := o.Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunWithProofOptimizationsDisabledSkipsVerification(t *testing.T) {
	cfg := baseConfig(t, config.OutputObject)
	cfg.ProofOptimizations = false
	o := &Orchestrator{Frontend: &stubFrontend{}, Toolchain: &stubToolchain{}}

	res, err := o.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Done, res.FinalState)
	assert.Empty(t, res.VerificationRep.Results)
}

func TestRunSurfacesFrontendCompileFailure(t *testing.T) {
	cfg := baseConfig(t, config.OutputObject)
	o := &Orchestrator{Frontend: &stubFrontend{compileErr: assert.AnError}, Toolchain: &stubToolchain{}}

	_, err := o.Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRunSurfacesMIRLoweringFailure(t *testing.T) {
	cfg := baseConfig(t, config.OutputObject)
	o := &Orchestrator{Frontend: &stubFrontend{mirErr: assert.AnError}, Toolchain: &stubToolchain{}}

	_, err := o.Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestAdvancePanicsOnIllegalTransition(t *testing.T) {
	o := &Orchestrator{}
	assert.Panics(t, func() { o.advance(Init, Done) })
}

func TestAdvanceAllowsLegalTransition(t *testing.T) {
	o := &Orchestrator{}
	assert.Equal(t, Lexed, o.advance(Init, Lexed))
}
