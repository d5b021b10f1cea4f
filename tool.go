package yaoernie

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// ToolDescriptor describes one external capability the engine may invoke.
// Descriptors are supplied at task start and are read-only for the task's
// lifetime.
type ToolDescriptor struct {
	// Name is the unique identifier for the tool. It must be unique across
	// all tool sources attached to one engine.
	Name string `json:"name"`

	// Description is a human-readable description of what the tool does.
	// It is passed to the Reasoner so it can propose the tool.
	Description string `json:"description"`
}

// Validate validates the descriptor.
func (d *ToolDescriptor) Validate() error {
	if d.Name == "" {
		return goerr.Wrap(ErrInvalidTool, "name is required", goerr.V("tool", d))
	}
	return nil
}

// ToolInvocationRequest is one logical tool call, constructed fresh per Act
// phase.
type ToolInvocationRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolInvocationResult is the outcome of one invocation. It is produced once
// and never mutated after return.
type ToolInvocationResult struct {
	Success   bool   `json:"success"`
	Payload   any    `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
	RawOutput string `json:"raw_output,omitempty"`
}

// ToolSource provides tool descriptors and executes invocations against
// them. Implementations include proctool.Invoker (one process per call) and
// mcp.Client (persistent MCP server).
type ToolSource interface {
	// Descriptors returns the tools this source declares.
	Descriptors(ctx context.Context) ([]ToolDescriptor, error)

	// Invoke executes one tool call. Transport and protocol failures are
	// reported inside the result, not as an error; the error return is
	// reserved for caller mistakes such as an unknown tool name.
	Invoke(ctx context.Context, req *ToolInvocationRequest) (*ToolInvocationResult, error)
}

// buildToolIndex merges the descriptors of all sources and maps each tool
// name back to its source. Name conflicts across sources are rejected.
func buildToolIndex(ctx context.Context, sources []ToolSource) ([]ToolDescriptor, map[string]ToolSource, error) {
	var descriptors []ToolDescriptor
	index := map[string]ToolSource{}

	for _, src := range sources {
		descs, err := src.Descriptors(ctx)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to get tool descriptors")
		}

		for _, desc := range descs {
			if err := desc.Validate(); err != nil {
				return nil, nil, err
			}
			if _, ok := index[desc.Name]; ok {
				return nil, nil, goerr.Wrap(ErrToolNameConflict, "tool name conflict", goerr.V("tool_name", desc.Name))
			}
			index[desc.Name] = src
			descriptors = append(descriptors, desc)
		}
	}

	return descriptors, index, nil
}
