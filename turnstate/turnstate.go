// Package turnstate defines the lifecycle states of a single pipeline turn
// and the continuation verdict it produces.
package turnstate

// State represents the lifecycle of one conversational turn.
//
// State transitions:
//
//	validating_budget ──┬──> generating ──> buffering ──> auto_flushing ──> done
//	                    │
//	                    └──> blocked  (token budget exhausted, terminal)
//
// Terminal states: done, blocked
type State string

const (
	// StateValidatingBudget checks the conversation's stored token total
	// against the configured budget.
	StateValidatingBudget State = "validating_budget"

	// StateGenerating invokes the completion provider with the transcript.
	StateGenerating State = "generating"

	// StateBuffering appends the user and assistant turns to the session
	// buffer and accumulates the run's token total.
	StateBuffering State = "buffering"

	// StateAutoFlushing runs a timer-gated, best-effort flush.
	StateAutoFlushing State = "auto_flushing"

	// StateDone is the normal terminal state.
	StateDone State = "done"

	// StateBlocked is the terminal state reached when the budget gate
	// refuses the turn. Reachable only from StateValidatingBudget.
	StateBlocked State = "blocked"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateBlocked
}

// Verdict is the continuation decision a completed turn carries.
// It is an explicit tag on the pipeline state, never inferred from the
// generated text.
type Verdict string

const (
	// VerdictContinue means the conversation can accept further turns.
	VerdictContinue Verdict = "continue"

	// VerdictEnd means the conversation is closed to new turns and the
	// caller should route the user to a fresh conversation.
	VerdictEnd Verdict = "end"
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}
