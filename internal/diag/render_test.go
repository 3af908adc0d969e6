package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/verify"
)

func TestRenderVerificationBlockListsFunctionAndCounterexample(t *testing.T) {
	report := verify.Report{Results: []verify.FunctionResult{
		{Function: "safe_div", Outcome: verify.Outcome{Kind: verify.Failed, Reason: "precondition unmet", Counterexample: "b = 0"}},
	}}
	out := Render(Verification(report), 2)

	assert.Contains(t, out, "Contract verification failed")
	assert.Contains(t, out, "safe_div")
	assert.Contains(t, out, "precondition unmet")
	assert.Contains(t, out, "b = 0")
}

func TestRenderNonVerificationErrorIsSingleBlock(t *testing.T) {
	out := Render(IO(CodeSourceNotFound, "no such file", nil), 2)
	assert.Contains(t, out, "no such file")
	assert.Contains(t, out, CodeSourceNotFound)
}

func TestRenderNilErrorIsEmpty(t *testing.T) {
	assert.Empty(t, Render(nil, 2))
}
