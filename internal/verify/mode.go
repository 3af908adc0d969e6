package verify

// Mode is the VerificationMode enum of spec.md §3.
type Mode string

const (
	ModeNone  Mode = "none"
	ModeCheck Mode = "check"
	ModeWarn  Mode = "warn"
	ModeTrust Mode = "trust"
)

// ParseMode parses one of the four recognized mode spellings, matching
// the config surface of spec.md §6 (`verification_mode`).
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeNone, ModeCheck, ModeWarn, ModeTrust:
		return Mode(s), true
	default:
		return "", false
	}
}
