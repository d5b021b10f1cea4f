// Package proctool invokes tools as one-shot subprocesses. Each logical
// call spawns a fresh process, writes a framed initialize handshake and the
// invocation request to its stdin, waits for the process to exit, and scans
// everything it printed for the matching response line.
package proctool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	yaoernie "github.com/longdream/yao-ernie"
)

const (
	protocolVersion = "2024-11-05"
	clientName      = "yao-ernie"
	clientVersion   = "0.1.0"

	handshakeID  = 1
	invocationID = 2
)

// ErrUnknownTool is returned by Invoke for a tool name this invoker never
// declared.
var ErrUnknownTool = goerr.New("unknown tool")

// ToolCommand declares one tool backed by an executable.
type ToolCommand struct {
	Name        string
	Description string

	Command string
	Args    []string
	Env     []string
}

// Invoker maps logical tool calls to process-level exchanges. It keeps no
// persistent connection: one process is spawned per call and no per-call
// timeout is enforced at this layer; callers bound total latency via the
// engine's retry ceiling.
type Invoker struct {
	tools  map[string]ToolCommand
	strict bool
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithStrictOutput makes output that contains no response matching the
// invocation id a hard failure instead of the default lenient fallback that
// treats the raw output as a successful payload.
func WithStrictOutput() Option {
	return func(x *Invoker) {
		x.strict = true
	}
}

// New creates an Invoker over the declared tool commands.
func New(tools []ToolCommand, options ...Option) (*Invoker, error) {
	index := make(map[string]ToolCommand, len(tools))
	for _, tool := range tools {
		if tool.Name == "" || tool.Command == "" {
			return nil, goerr.Wrap(yaoernie.ErrInvalidTool, "tool name and command are required", goerr.V("tool", tool))
		}
		if _, ok := index[tool.Name]; ok {
			return nil, goerr.Wrap(yaoernie.ErrToolNameConflict, "duplicate tool command", goerr.V("tool_name", tool.Name))
		}
		index[tool.Name] = tool
	}

	invoker := &Invoker{tools: index}
	for _, opt := range options {
		opt(invoker)
	}
	return invoker, nil
}

// Descriptors implements yaoernie.ToolSource.
func (x *Invoker) Descriptors(ctx context.Context) ([]yaoernie.ToolDescriptor, error) {
	descriptors := make([]yaoernie.ToolDescriptor, 0, len(x.tools))
	for _, tool := range x.tools {
		descriptors = append(descriptors, yaoernie.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
		})
	}
	return descriptors, nil
}

// request is one framed request written to the tool process.
type request struct {
	ID     int            `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// response is one line of tool process output. Lines that do not parse into
// this shape are skipped.
type response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Invoke implements yaoernie.ToolSource. Transport and protocol failures
// come back inside the result; the error return is reserved for unknown
// tool names.
func (x *Invoker) Invoke(ctx context.Context, req *yaoernie.ToolInvocationRequest) (*yaoernie.ToolInvocationResult, error) {
	tool, ok := x.tools[req.ToolName]
	if !ok {
		return nil, goerr.Wrap(ErrUnknownTool, "tool is not declared", goerr.V("tool_name", req.ToolName))
	}

	logger := yaoernie.LoggerFromContext(ctx)
	logger.Debug("invoking tool process", "tool", tool.Name, "command", tool.Command)

	stdout, stderr, exitCode, runErr := x.exchange(ctx, tool, req)

	// The captured output is authoritative: a matching response wins even
	// when the process exited non-zero.
	if result := x.parseOutput(stdout); result != nil {
		return result, nil
	}

	if raw := strings.TrimSpace(stdout); raw != "" {
		if x.strict {
			return &yaoernie.ToolInvocationResult{
				Success:   false,
				Error:     "no response matched the invocation id",
				RawOutput: stdout,
			}, nil
		}
		// Lenient fallback: unmatched but non-empty output is treated as
		// the payload itself.
		return &yaoernie.ToolInvocationResult{
			Success:   true,
			Payload:   raw,
			RawOutput: stdout,
		}, nil
	}

	diagnostic := strings.TrimSpace(stderr)
	if diagnostic == "" {
		switch {
		case runErr != nil && exitCode < 0:
			// The process never started.
			diagnostic = runErr.Error()
		case runErr != nil:
			diagnostic = fmt.Sprintf("exit code %d, no output", exitCode)
		default:
			diagnostic = "tool produced no output"
		}
	}

	return &yaoernie.ToolInvocationResult{Success: false, Error: diagnostic}, nil
}

// exchange spawns the tool process, writes both framed requests to its
// stdin and drains its output until exit.
func (x *Invoker) exchange(ctx context.Context, tool ToolCommand, req *yaoernie.ToolInvocationRequest) (stdout, stderr string, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, tool.Command, tool.Args...)
	if len(tool.Env) > 0 {
		cmd.Env = append(cmd.Environ(), tool.Env...)
	}

	frames, err := encodeFrames(tool.Name, req.Arguments)
	if err != nil {
		return "", "", 0, err
	}
	cmd.Stdin = bytes.NewReader(frames)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	exitCode = -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	return outBuf.String(), errBuf.String(), exitCode, runErr
}

func encodeFrames(toolName string, arguments map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	handshake := request{
		ID:     handshakeID,
		Method: "initialize",
		Params: map[string]any{
			"protocolVersion": protocolVersion,
			"clientInfo": map[string]any{
				"name":    clientName,
				"version": clientVersion,
			},
		},
	}
	if err := enc.Encode(handshake); err != nil {
		return nil, goerr.Wrap(err, "failed to encode handshake frame")
	}

	invocation := request{
		ID:     invocationID,
		Method: "invoke",
		Params: map[string]any{
			"tool":      toolName,
			"arguments": arguments,
		},
	}
	if err := enc.Encode(invocation); err != nil {
		return nil, goerr.Wrap(err, "failed to encode invocation frame")
	}

	return buf.Bytes(), nil
}

// parseOutput scans output lines for the response whose id matches the
// invocation frame. Unparseable lines are skipped, not fatal. Returns nil
// when no line matches.
func (x *Invoker) parseOutput(stdout string) *yaoernie.ToolInvocationResult {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var resp response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			continue
		}
		if resp.ID != invocationID {
			continue
		}

		if resp.Error != nil {
			return &yaoernie.ToolInvocationResult{
				Success:   false,
				Error:     resp.Error.Message,
				RawOutput: stdout,
			}
		}

		// A matching id with neither result nor error is not a usable
		// response; fall through to the unmatched-output handling.
		if len(resp.Result) == 0 {
			continue
		}

		return &yaoernie.ToolInvocationResult{
			Success:   true,
			Payload:   decodeResult(resp.Result),
			RawOutput: stdout,
		}
	}

	return nil
}

// decodeResult keeps the payload JSON-shaped: objects stay maps, anything
// else is passed through as decoded.
func decodeResult(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
