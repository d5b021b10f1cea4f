package yaoernie

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// Execute runs one task to a terminal state and returns its full
// transcript. Faults inside a cycle (reasoning failures, transport
// failures, extraction failures, panics) are absorbed into degenerate cycle
// records and consume a retry; the returned error is reserved for
// precondition violations such as a missing reasoner or zero declared
// tools.
func (x *Engine) Execute(ctx context.Context, description string, options ...Option) (*TaskExecution, error) {
	if x.reasoner == nil {
		return nil, goerr.Wrap(ErrNoReasoner, "engine has no reasoner")
	}

	cfg := x.engineConfig.Clone()
	for _, opt := range options {
		opt(cfg)
	}

	taskID := uuid.New().String()
	logger := cfg.logger.With("yaoernie.task_id", taskID)
	ctx = ctxWithLogger(ctx, logger)

	tools, index, err := buildToolIndex(ctx, cfg.sources)
	if err != nil {
		return nil, err
	}
	if len(tools) == 0 {
		return nil, goerr.Wrap(ErrNoTools, "at least one tool must be declared")
	}

	logger.Info("starting task execution",
		"description", description,
		"tools", len(tools),
		"max_retries", cfg.maxRetries,
	)

	task := &TaskExecution{
		TaskID:      taskID,
		Description: description,
		MaxRetries:  cfg.maxRetries,
	}

	// The execution started, so its observer always gets a terminal
	// signal, even when no tool was ever called.
	defer cfg.sink.Terminal(OutcomeDone)

	for cycleID := 1; cycleID <= cfg.maxRetries; cycleID++ {
		task.CurrentRetry = cycleID

		record, reflection := x.runCycle(ctx, cfg, cycleID, description, task.Cycles, tools, index)
		task.Cycles = append(task.Cycles, *record)

		logger.Debug("cycle recorded",
			"cycle", cycleID,
			"success", record.Success,
			"status", reflection.Status,
			"should_continue", reflection.ShouldContinue,
		)

		if reflection.Status == StatusSuccess {
			task.Completed = true
			logger.Info("task completed", "cycles", len(task.Cycles))
			return task, nil
		}

		if !reflection.ShouldContinue {
			logger.Info("task stopped by reflection", "cycles", len(task.Cycles))
			return task, nil
		}

		if cycleID < cfg.maxRetries && cfg.pacing > 0 {
			select {
			case <-ctx.Done():
				logger.Info("task cancelled between cycles", "cycles", len(task.Cycles))
				return task, nil
			case <-time.After(cfg.pacing):
			}
		}
	}

	logger.Info("task exhausted retry ceiling", "cycles", len(task.Cycles))
	return task, nil
}

// runCycle executes one full Think/Act/Observe/Reflect iteration. It never
// returns an error: internal faults become a degenerate record with a
// failed-continue reflection so the retry ceiling, not the fault, decides
// when the task ends.
func (x *Engine) runCycle(ctx context.Context, cfg *engineConfig, cycleID int, userMessage string, prior []CycleRecord, tools []ToolDescriptor, index map[string]ToolSource) (record *CycleRecord, reflection *Reflection) {
	logger := LoggerFromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle aborted by internal fault", "cycle", cycleID, "panic", r)
			record = &CycleRecord{
				CycleID:    cycleID,
				Thought:    "cycle aborted by internal fault",
				Reflection: "internal fault absorbed, retrying",
				Error:      fmt.Sprintf("panic: %v", r),
			}
			reflection = &Reflection{
				ErrorAnalysis:  record.Error,
				ShouldContinue: true,
				Status:         StatusFailed,
			}
		}
	}()

	record = &CycleRecord{CycleID: cycleID}

	// Thinking
	thought, err := x.reasoner.Think(ctx, &ThinkRequest{
		UserMessage: userMessage,
		PriorCycles: prior,
		Tools:       tools,
	})
	if err != nil {
		logger.Warn("reasoning provider unavailable", "cycle", cycleID, "error", err)
		record.Thought = "reasoning provider unavailable"
		record.Reflection = "cycle aborted before action, retrying"
		record.Error = err.Error()
		return record, &Reflection{
			ErrorAnalysis:  err.Error(),
			ShouldContinue: true,
			Status:         StatusFailed,
		}
	}
	record.Thought = summarizeThought(thought)

	if cycleID == 1 && len(thought.Steps) > 0 {
		cfg.sink.PlanReady(thought.Steps)
	}

	// Acting
	var action *ToolInvocationRequest
	var observation *ToolInvocationResult

	if thought.ProposedTool != "" {
		args, extractErr := extractArguments(ctx, cfg, thought.ProposedTool, userMessage)
		if extractErr != nil {
			logger.Info("argument extraction failed, skipping action",
				"cycle", cycleID, "tool", thought.ProposedTool, "error", extractErr)
			record.Error = extractErr.Error()
			cfg.sink.Status("argument extraction failed for " + thought.ProposedTool)
		} else {
			action = &ToolInvocationRequest{ToolName: thought.ProposedTool, Arguments: args}
			cfg.sink.StepStart(cycleID, action.ToolName, thought.Plan)

			// Observing: the result is recorded verbatim, whatever it is.
			observation = invoke(ctx, index, action)
			record.Action = action
			record.Observation = observation

			if observation.Success {
				cfg.sink.StepDone(cycleID, action.ToolName, thought.Plan)
			} else {
				cfg.sink.StepError(cycleID, action.ToolName, observation.Error)
			}
		}
	}

	// Reflecting
	reflection = x.reflect(ctx, cfg, userMessage, thought, action, observation)
	record.Reflection = summarizeReflection(reflection, action)
	record.Success = reflection.Status == StatusSuccess
	if record.Error == "" && observation != nil && observation.Error != "" {
		record.Error = observation.Error
	}

	return record, reflection
}

// invoke routes one tool call to its source. All failures come back inside
// the result so they land in the observation, never in the caller.
func invoke(ctx context.Context, index map[string]ToolSource, req *ToolInvocationRequest) *ToolInvocationResult {
	src, ok := index[req.ToolName]
	if !ok {
		return &ToolInvocationResult{
			Success: false,
			Error:   req.ToolName + " is not a declared tool",
		}
	}

	result, err := src.Invoke(ctx, req)
	if err != nil {
		return &ToolInvocationResult{Success: false, Error: err.Error()}
	}
	return result
}

func extractArguments(ctx context.Context, cfg *engineConfig, toolName, userMessage string) (map[string]any, error) {
	extractor, ok := cfg.extractors[toolName]
	if !ok {
		// No extractor registered means the tool takes no derived
		// arguments.
		return nil, nil
	}
	return extractor(ctx, userMessage)
}

// reflect produces the cycle verdict. With reflection enabled it asks the
// Reasoner; on reasoner failure or with reflection disabled it derives the
// verdict deterministically from the observation.
func (x *Engine) reflect(ctx context.Context, cfg *engineConfig, userMessage string, thought *Thought, action *ToolInvocationRequest, observation *ToolInvocationResult) *Reflection {
	if cfg.reflection {
		reflection, err := x.reasoner.Reflect(ctx, &ReflectRequest{
			UserMessage: userMessage,
			Thought:     thought,
			Action:      action,
			Observation: observation,
		})
		if err == nil && reflection != nil {
			return reflection
		}
		LoggerFromContext(ctx).Warn("reflection unavailable, deriving verdict", "error", err)
	}

	if observation == nil {
		return &Reflection{
			SuccessAnalysis: "no action taken",
			ShouldContinue:  true,
			Status:          StatusContinue,
		}
	}

	if observation.Success {
		return &Reflection{
			SuccessAnalysis: "observation reported success",
			ShouldContinue:  false,
			Status:          StatusSuccess,
		}
	}

	return &Reflection{
		ErrorAnalysis:  observation.Error,
		ShouldContinue: true,
		Status:         StatusFailed,
	}
}

func summarizeThought(thought *Thought) string {
	parts := make([]string, 0, 2)
	if thought.Analysis != "" {
		parts = append(parts, thought.Analysis)
	}
	if thought.Plan != "" {
		parts = append(parts, thought.Plan)
	}
	if len(parts) == 0 {
		return "(empty thought)"
	}
	return strings.Join(parts, " | ")
}

func summarizeReflection(reflection *Reflection, action *ToolInvocationRequest) string {
	summary := string(reflection.Status)
	switch {
	case reflection.ErrorAnalysis != "":
		summary += ": " + reflection.ErrorAnalysis
	case reflection.SuccessAnalysis != "":
		summary += ": " + reflection.SuccessAnalysis
	}
	if action == nil && !strings.Contains(summary, "no action taken") {
		summary += " (no action taken)"
	}
	if reflection.NextApproach != "" {
		summary += "; next: " + reflection.NextApproach
	}
	return summary
}
