// Package toolchain implements the build.Toolchain boundary (spec.md §1:
// "C-compiler discovery, platform link-line construction, SDK path
// search" are external collaborators) against a real C-compatible
// compiler driver found on PATH, the same way this module's other
// external-process collaborator (internal/verify's solver transport)
// shells out rather than reimplementing the other side's logic.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"bmbc/internal/config"
)

// candidates is the PATH search order Discover uses when CompilerPath is
// unset: the compiler names most LLVM-IR-capable toolchains register
// under on a Unix PATH.
var candidates = []string{"clang", "clang-18", "clang-17", "cc", "gcc"}

// Driver assembles and links via an external C compiler driver capable
// of consuming LLVM IR text directly (clang's `-x ir`) or, for a plain
// `cc`, via its `-x assembler-with-cpp`-adjacent IR front end when
// present. CompilerPath overrides discovery; empty triggers PATH search.
type Driver struct {
	CompilerPath string
}

// Discover resolves the compiler this Driver will invoke, searching
// candidates on PATH when CompilerPath is unset. It never caches the
// result: a discovery failure should be retried, not remembered, since
// spec.md gives toolchain misconfiguration no persistent-failure state.
func (d *Driver) Discover() (string, error) {
	if d.CompilerPath != "" {
		if _, err := exec.LookPath(d.CompilerPath); err != nil {
			return "", fmt.Errorf("toolchain: configured compiler %q not found: %w", d.CompilerPath, err)
		}
		return d.CompilerPath, nil
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("toolchain: no C-compatible compiler found on PATH (tried %v)", candidates)
}

// Assemble lowers llvmIR to a native object file via `clang -c -x ir`
// (or the `cc`/`gcc` equivalent), honoring cfg's optimization level and
// target triple.
func (d *Driver) Assemble(llvmIR string, cfg config.BuildConfig) (string, error) {
	compiler, err := d.Discover()
	if err != nil {
		return "", err
	}

	objPath := cfg.OutputPath() + ".o"
	if cfg.OutputType == config.OutputObject {
		objPath = cfg.OutputPath()
	}

	irPath := objPath + ".ll"
	if err := os.WriteFile(irPath, []byte(llvmIR), 0o644); err != nil {
		return "", fmt.Errorf("toolchain: writing intermediate IR: %w", err)
	}
	defer os.Remove(irPath)

	args := []string{"-x", "ir", "-c", irPath, "-o", objPath}
	args = append(args, optFlags(cfg)...)
	if cfg.TargetTriple != "" {
		args = append(args, "-target", cfg.TargetTriple)
	}

	cmd := exec.CommandContext(context.Background(), compiler, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("toolchain: %s assemble failed: %w\n%s", compiler, err, out)
	}
	return objPath, nil
}

// Link drives the same compiler as a linker front end, producing the
// final executable at cfg.OutputPath().
func (d *Driver) Link(objectPath string, cfg config.BuildConfig) (string, error) {
	compiler, err := d.Discover()
	if err != nil {
		return "", err
	}

	exePath := cfg.OutputPath()
	args := []string{objectPath, "-o", exePath}
	if cfg.TargetTriple != "" {
		args = append(args, "-target", cfg.TargetTriple)
	}

	cmd := exec.CommandContext(context.Background(), compiler, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("toolchain: %s link failed: %w\n%s", compiler, err, out)
	}
	return exePath, nil
}

func optFlags(cfg config.BuildConfig) []string {
	switch cfg.OptLevel {
	case config.OptDebug:
		return []string{"-O0", "-g"}
	case config.OptSize:
		return []string{"-Os"}
	case config.OptAggressive:
		return []string{"-O3"}
	default:
		return []string{"-O2"}
	}
}
