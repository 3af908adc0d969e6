// Package build implements the orchestrator state machine of spec.md
// §4.4.7-§4.4.8: it drives a single compilation through every stage and
// enforces that failure in any stage is terminal with no partial
// outputs. Lexing, parsing, CFG filtering, type checking, MIR
// construction from typed AST, the generic MIR optimization pipeline,
// and C-toolchain discovery/invocation are the external collaborators
// spec.md §1 carves out of this module's scope; Frontend and Toolchain
// below are the narrow interfaces this orchestrator calls into them
// through, mirroring how internal/mir.GenericOptimizer represents the
// same boundary for the optimizer stage.
package build

// State is one node of spec.md §4.4.7's state machine:
//
//	Init -> Lexed -> Parsed -> CfgFiltered -> TypeChecked -> MIRed ->
//	(Verified | Unverified) -> Optimized -> Emitted -> ObjectEmitted ->
//	Linked -> Done
type State string

const (
	Init          State = "init"
	Lexed         State = "lexed"
	Parsed        State = "parsed"
	CfgFiltered   State = "cfg_filtered"
	TypeChecked   State = "type_checked"
	MIRed         State = "mired"
	VerifiedState State = "verified"
	Unverified    State = "unverified"
	Optimized     State = "optimized"
	Emitted       State = "emitted"
	ObjectEmitted State = "object_emitted"
	Linked        State = "linked"
	Done          State = "done"
	Failed        State = "failed"
)

// next is the state machine's edge table, used only to assert an
// orchestrator run advances monotonically and never skips a recorded
// transition silently.
var next = map[State][]State{
	Init:          {Lexed},
	Lexed:         {Parsed},
	Parsed:        {CfgFiltered},
	CfgFiltered:   {TypeChecked},
	TypeChecked:   {MIRed},
	MIRed:         {VerifiedState, Unverified},
	VerifiedState: {Optimized},
	Unverified:    {Optimized},
	Optimized:     {Emitted},
	Emitted:       {ObjectEmitted, Done}, // Done directly when output_type = LlvmIr
	ObjectEmitted: {Linked, Done},        // Done directly when output_type = Object
	Linked:        {Done},
}

// CanAdvance reports whether to is a legal successor of from.
func CanAdvance(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}
