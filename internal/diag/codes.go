// Package diag implements the error taxonomy and diagnostic rendering
// of spec.md §7, extended with the verification/codegen/linker code
// ranges SPEC_FULL.md adds to the teacher's internal/errors E-code
// scheme (internal/errors/codes.go).
package diag

// Category is one of spec.md §7's error taxonomy entries.
type Category string

const (
	CategoryIO           Category = "io"
	CategoryParse        Category = "parse"
	CategoryType         Category = "type"
	CategoryVerification Category = "verification"
	CategoryCodeGen      Category = "codegen"
	CategoryLinker       Category = "linker"
)

// Stable error codes, following the teacher's E0001-style per-category
// range scheme (internal/errors/codes.go): I-range for IO, E-range
// (unchanged from the teacher) for parse/type, V-range for
// verification, G-range for codegen, L-range for linker.
const (
	CodeSourceNotFound  = "I0001"
	CodeSourceUnreadable = "I0002"
	CodeOutputUnwritable = "I0003"

	CodeParseRejected = "E0100"

	CodeTypeRejected = "E0200"

	CodeVerificationFailed      = "V0001"
	CodeSolverUnavailable       = "V0002"
	CodeVerificationTimeout     = "V0003"

	CodeEmissionImpossible = "G0001"
	CodeUnknownReturnType  = "G0002"

	CodeLinkerFailed   = "L0001"
	CodeToolchainMissing = "L0002"
)

// descriptions mirrors the teacher's GetErrorDescription lookup
// (internal/errors/codes.go), extended with this taxonomy's codes.
var descriptions = map[string]string{
	CodeSourceNotFound:   "input source file does not exist",
	CodeSourceUnreadable: "input source file could not be read",
	CodeOutputUnwritable: "output artifact could not be written",

	CodeParseRejected: "lexer or parser rejected the source",

	CodeTypeRejected: "type checker rejected the source",

	CodeVerificationFailed:  "one or more functions failed contract verification",
	CodeSolverUnavailable:   "the SMT solver was unreachable",
	CodeVerificationTimeout: "verification exceeded its wall-clock timeout",

	CodeEmissionImpossible: "an impossible-at-emission condition was reached",
	CodeUnknownReturnType:  "a runtime function's return type is unknown; defaulted to i64",

	CodeLinkerFailed:     "the external linker reported a failure",
	CodeToolchainMissing: "no C-compatible toolchain was found",
}

// Describe returns the human-readable description for code, or "" if
// unrecognized.
func Describe(code string) string {
	return descriptions[code]
}
