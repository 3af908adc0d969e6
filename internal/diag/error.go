package diag

import (
	"fmt"

	"github.com/pkg/errors"

	"bmbc/internal/verify"
)

// BuildError is spec.md §7's taxonomy, carried as one Go error type
// rather than per-category types: Category plus Code drive rendering,
// Err (when present) is the wrapped underlying cause.
type BuildError struct {
	Category Category
	Code     string
	Message  string
	Err      error

	// Report is populated only for CategoryVerification, carrying the
	// full per-function breakdown §7 says the user-visible block lists.
	Report *verify.Report
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *BuildError) Unwrap() error { return e.Err }

// IO wraps a read/write failure (spec.md §7, category IO).
func IO(code, message string, cause error) *BuildError {
	return &BuildError{Category: CategoryIO, Code: code, Message: message, Err: errors.Wrap(cause, message)}
}

// Parse wraps a lexer/parser rejection.
func Parse(message string, cause error) *BuildError {
	return &BuildError{Category: CategoryParse, Code: CodeParseRejected, Message: message, Err: errors.Wrap(cause, message)}
}

// Type wraps a type-checker rejection.
func Type(message string, cause error) *BuildError {
	return &BuildError{Category: CategoryType, Code: CodeTypeRejected, Message: message, Err: errors.Wrap(cause, message)}
}

// Verification wraps a Check-mode verification failure, carrying the
// full report so the renderer can list every offending function.
func Verification(report verify.Report) *BuildError {
	return &BuildError{
		Category: CategoryVerification,
		Code:     CodeVerificationFailed,
		Message:  "contract verification failed",
		Report:   &report,
	}
}

// CodeGen wraps an impossible-at-emission condition (spec.md §7).
func CodeGen(code, message string, cause error) *BuildError {
	return &BuildError{Category: CategoryCodeGen, Code: code, Message: message, Err: cause}
}

// Linker wraps an external linker/compiler failure; cause's message is
// expected to already carry the surfaced stderr (spec.md §7: "stderr is
// surfaced verbatim").
func Linker(message string, cause error) *BuildError {
	return &BuildError{Category: CategoryLinker, Code: CodeLinkerFailed, Message: message, Err: cause}
}
