package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, OptRelease, c.OptLevel)
	assert.True(t, c.ProofOptimizations)
	assert.True(t, c.ProofCache)
	assert.Equal(t, 30, c.VerificationTimeout)
	assert.False(t, c.FastMath)
}

func TestValidateRequiresInput(t *testing.T) {
	c := Default()
	err := c.Validate()
	assert.Error(t, err)
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	c := Default()
	c.Input = "prog.bmb"
	assert.NoError(t, c.Validate())
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	c := Default()
	c.Input = "prog.bmb"
	c.VerificationTimeout = 0
	assert.Error(t, c.Validate())
}

func TestOutputPathDefaultsToInputStem(t *testing.T) {
	c := Default()
	c.Input = "/tmp/prog.bmb"
	c.OutputType = OutputObject
	assert.Equal(t, "/tmp/prog.o", c.OutputPath())
}

func TestOutputPathHonorsExplicitOutput(t *testing.T) {
	c := Default()
	c.Input = "prog.bmb"
	c.Output = "out/myprog"
	assert.Equal(t, "out/myprog", c.OutputPath())
}
