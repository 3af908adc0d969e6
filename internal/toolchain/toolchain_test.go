package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/config"
)

func TestDiscoverRejectsUnknownConfiguredCompiler(t *testing.T) {
	d := &Driver{CompilerPath: "bmbc-nonexistent-compiler-xyz"}
	_, err := d.Discover()
	assert.Error(t, err)
}

func TestOptFlagsPerLevel(t *testing.T) {
	assert.Contains(t, optFlags(config.BuildConfig{OptLevel: config.OptDebug}), "-O0")
	assert.Contains(t, optFlags(config.BuildConfig{OptLevel: config.OptSize}), "-Os")
	assert.Contains(t, optFlags(config.BuildConfig{OptLevel: config.OptAggressive}), "-O3")
	assert.Contains(t, optFlags(config.BuildConfig{OptLevel: config.OptRelease}), "-O2")
}
