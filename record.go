package yaoernie

// CycleRecord is the append-only record of one Think/Act/Observe/Reflect
// iteration. One is produced per loop iteration, including degenerate or
// erroring ones. Observation is non-nil iff Action is non-nil.
type CycleRecord struct {
	// CycleID is 1-based and monotonic within a task.
	CycleID int `json:"cycle_id"`

	// Thought summarizes the Think phase output.
	Thought string `json:"thought"`

	// Action is the tool call attempted this cycle, if any.
	Action *ToolInvocationRequest `json:"action,omitempty"`

	// Observation is the verbatim result of Action.
	Observation *ToolInvocationResult `json:"observation,omitempty"`

	// Reflection summarizes the Reflect phase verdict.
	Reflection string `json:"reflection"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TaskExecution is the aggregate returned to the caller: the cycle-by-cycle
// transcript of one task. It is always returned in full, successful or not,
// so callers can render what was attempted.
type TaskExecution struct {
	TaskID      string        `json:"task_id"`
	Description string        `json:"description"`
	Cycles      []CycleRecord `json:"cycles"`

	// Completed is true iff the last cycle's reflection status is success.
	Completed bool `json:"completed"`

	MaxRetries   int `json:"max_retries"`
	CurrentRetry int `json:"current_retry"`
}

// LastCycle returns the most recent cycle record, or nil before the first
// cycle completes.
func (t *TaskExecution) LastCycle() *CycleRecord {
	if len(t.Cycles) == 0 {
		return nil
	}
	return &t.Cycles[len(t.Cycles)-1]
}
