package yaoernie

import "context"

// Thought is the output of the Reasoner's Think phase.
type Thought struct {
	// Analysis is the reasoner's reading of the current situation.
	Analysis string `json:"analysis"`

	// Plan is a narrative description of the intended approach.
	Plan string `json:"plan"`

	// Steps is an optional decomposition of the plan. When the first
	// Thought of a task carries steps, they are published as a plan_ready
	// progress event.
	Steps []PlanStep `json:"steps,omitempty"`

	// ProposedTool names the tool to invoke in the Act phase. Empty means
	// no action this cycle.
	ProposedTool string `json:"proposed_tool,omitempty"`
}

// PlanStep is one step of a decomposed plan.
type PlanStep struct {
	ID          int    `json:"id"`
	Tool        string `json:"tool,omitempty"`
	Description string `json:"description"`
}

// ReflectionStatus is the verdict of the Reflect phase.
type ReflectionStatus string

const (
	StatusSuccess  ReflectionStatus = "success"
	StatusPartial  ReflectionStatus = "partial"
	StatusFailed   ReflectionStatus = "failed"
	StatusContinue ReflectionStatus = "continue"
)

// Reflection is the output of the Reasoner's Reflect phase.
type Reflection struct {
	SuccessAnalysis string           `json:"success_analysis"`
	ErrorAnalysis   string           `json:"error_analysis,omitempty"`
	ShouldContinue  bool             `json:"should_continue"`
	NextApproach    string           `json:"next_approach,omitempty"`
	Status          ReflectionStatus `json:"status"`
}

// ThinkRequest is the context handed to the Reasoner at the start of each
// cycle.
type ThinkRequest struct {
	UserMessage string
	PriorCycles []CycleRecord
	Tools       []ToolDescriptor
}

// ReflectRequest is the context handed to the Reasoner after the Act and
// Observe phases. Action and Observation are nil when the cycle took no
// action; they always belong to the same cycle as Thought.
type ReflectRequest struct {
	UserMessage string
	Thought     *Thought
	Action      *ToolInvocationRequest
	Observation *ToolInvocationResult
}

// Reasoner produces Thoughts and Reflections from execution context. The
// engine's correctness does not depend on the implementation beyond this
// contract; reason.New adapts any single-shot completion backend.
type Reasoner interface {
	Think(ctx context.Context, req *ThinkRequest) (*Thought, error)
	Reflect(ctx context.Context, req *ReflectRequest) (*Reflection, error)
}
