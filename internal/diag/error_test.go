package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"bmbc/internal/verify"
)

func TestIOErrorWrapsCauseAndCategory(t *testing.T) {
	cause := errors.New("permission denied")
	err := IO(CodeSourceUnreadable, "cannot read source", cause)
	assert.Equal(t, CategoryIO, err.Category)
	assert.Contains(t, err.Error(), "permission denied")
	assert.ErrorIs(t, err, cause)
}

func TestVerificationErrorCarriesReport(t *testing.T) {
	report := verify.Report{Results: []verify.FunctionResult{
		{Function: "safe_div", Outcome: verify.Outcome{Kind: verify.Failed, Reason: "precondition unmet", Counterexample: "b = 0"}},
	}}
	err := Verification(report)
	assert.Equal(t, CategoryVerification, err.Category)
	assert.NotNil(t, err.Report)
	assert.Len(t, err.Report.Failures(), 1)
}

func TestDescribeKnownAndUnknownCodes(t *testing.T) {
	assert.NotEmpty(t, Describe(CodeVerificationFailed))
	assert.Empty(t, Describe("X9999"))
}
