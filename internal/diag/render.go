package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// terminalWidth returns the current stderr terminal's column width,
// falling back to 80 when it cannot be determined (piped output,
// non-tty CI logs) — the same fallback width the teacher's LSP client
// assumes for non-interactive rendering.
func terminalWidth(fd int) int {
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// Render renders a BuildError as the user sees it (spec.md §7). A
// Verification error gets the multi-line "Contract verification failed"
// block headed and followed by each offending function's reason and
// counterexample; every other category renders as a single
// colorized error line, followed by a "caused by" line when the error
// wraps an underlying cause.
func Render(err *BuildError, fd int) string {
	if err == nil {
		return ""
	}
	if err.Category == CategoryVerification && err.Report != nil {
		return renderVerificationBlock(err, fd)
	}

	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	var b strings.Builder
	if err.Code != "" {
		fmt.Fprintf(&b, "%s[%s]: %s\n", red("error"), err.Code, bold(err.Message))
	} else {
		fmt.Fprintf(&b, "%s: %s\n", red("error"), bold(err.Message))
	}
	if err.Err != nil {
		fmt.Fprintf(&b, "  caused by: %v\n", err.Err)
	}
	return b.String()
}

func renderVerificationBlock(err *BuildError, fd int) string {
	width := terminalWidth(fd)
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	var b strings.Builder
	rule := strings.Repeat("─", min(width, 60))
	fmt.Fprintf(&b, "%s\n", red(rule))
	fmt.Fprintf(&b, "%s\n", red("Contract verification failed"))
	fmt.Fprintf(&b, "%s\n", red(rule))

	for _, fr := range err.Report.Failures() {
		fmt.Fprintf(&b, "  %s: %s\n", fr.Function, fr.Outcome.Reason)
		if fr.Outcome.Counterexample != "" {
			fmt.Fprintf(&b, "    %s %s\n", dim("counterexample:"), fr.Outcome.Counterexample)
		}
	}
	b.WriteString("\n")
	return b.String()
}
