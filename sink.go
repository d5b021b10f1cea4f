package yaoernie

// TerminalOutcome tells a progress observer why the feed is ending.
type TerminalOutcome string

const (
	OutcomeDone    TerminalOutcome = "done"
	OutcomeTimeout TerminalOutcome = "timeout"
	OutcomeError   TerminalOutcome = "error"
)

// ProgressSink receives phase transitions of a running task. The engine is
// the single writer; delivery is best-effort and the sink must never block
// the engine indefinitely. progress.Session is the canonical implementation.
type ProgressSink interface {
	// PlanReady is emitted at most once, when the first Thought of a task
	// carries a decomposed step list.
	PlanReady(steps []PlanStep)

	// StepStart and StepDone/StepError bracket each Act/Observe pair,
	// keyed by cycle id.
	StepStart(stepID int, tool, description string)
	StepDone(stepID int, tool, description string)
	StepError(stepID int, tool, errMsg string)

	// Status carries a free-text update.
	Status(message string)

	// Terminal tells the observer to stop listening. It is emitted for
	// every started task that reaches a terminal state.
	Terminal(outcome TerminalOutcome)
}

// nopSink is used when no progress sink is configured.
type nopSink struct{}

func (nopSink) PlanReady([]PlanStep)             {}
func (nopSink) StepStart(int, string, string)    {}
func (nopSink) StepDone(int, string, string)     {}
func (nopSink) StepError(int, string, string)    {}
func (nopSink) Status(string)                    {}
func (nopSink) Terminal(TerminalOutcome)         {}
