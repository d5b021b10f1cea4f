// Package mcp provides a persistent MCP server as a tool source. Unlike
// proctool, which spawns one process per call, this client keeps a single
// session open and routes every invocation through it.
package mcp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	yaoernie "github.com/longdream/yao-ernie"
)

// Client is a tool source backed by one MCP server, reachable over stdio
// (local executable) or SSE (remote server).
type Client struct {
	// For local MCP server
	path    string
	args    []string
	envVars []string

	// For remote MCP server
	baseURL string
	headers map[string]string

	client     *client.Client
	initResult *mcp.InitializeResult

	initMutex sync.Mutex
}

// StdioOption is an option for a local MCP server spawned via stdio.
type StdioOption func(*Client)

// WithEnvVars appends environment variables for the spawned MCP server.
func WithEnvVars(envVars []string) StdioOption {
	return func(c *Client) {
		c.envVars = append(c.envVars, envVars...)
	}
}

// SSEOption is an option for a remote MCP server reached via HTTP SSE.
type SSEOption func(*Client)

// WithHeaders replaces the request headers for the SSE transport.
func WithHeaders(headers map[string]string) SSEOption {
	return func(c *Client) {
		c.headers = headers
	}
}

// NewStdio creates a client for a local MCP executable.
func NewStdio(path string, args []string, options ...StdioOption) *Client {
	c := &Client{
		path: path,
		args: args,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NewSSE creates a client for a remote MCP server.
func NewSSE(baseURL string, options ...SSEOption) *Client {
	c := &Client{
		baseURL: baseURL,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// start lazily opens the transport and performs the initialize handshake.
// It is safe to call from multiple goroutines; only the first call does
// work.
func (c *Client) start(ctx context.Context) error {
	c.initMutex.Lock()
	defer c.initMutex.Unlock()

	if c.initResult != nil {
		return nil
	}

	var tp transport.Interface
	if c.path != "" {
		tp = transport.NewStdio(c.path, c.envVars, c.args...)
	}

	if c.baseURL != "" {
		sse, err := transport.NewSSE(c.baseURL, transport.WithHeaders(c.headers))
		if err != nil {
			return goerr.Wrap(err, "failed to create SSE transport")
		}
		tp = sse
	}

	if tp == nil {
		return goerr.New("no transport configured")
	}

	c.client = client.NewClient(tp)

	if err := c.client.Start(ctx); err != nil {
		return goerr.Wrap(err, "failed to start MCP client")
	}

	var initRequest mcp.InitializeRequest
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "yao-ernie",
		Version: "0.1.0",
	}

	resp, err := c.client.Initialize(ctx, initRequest)
	if err != nil {
		return goerr.Wrap(err, "failed to initialize MCP client")
	}
	c.initResult = resp

	return nil
}

// Descriptors implements yaoernie.ToolSource by listing the server's tools.
func (c *Client) Descriptors(ctx context.Context) ([]yaoernie.ToolDescriptor, error) {
	if err := c.start(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tools")
	}

	descriptors := make([]yaoernie.ToolDescriptor, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		descriptors = append(descriptors, yaoernie.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
		})
	}

	return descriptors, nil
}

// Invoke implements yaoernie.ToolSource. Server-reported tool errors come
// back inside the result, transport errors as well; the session survives
// failed calls.
func (c *Client) Invoke(ctx context.Context, req *yaoernie.ToolInvocationRequest) (*yaoernie.ToolInvocationResult, error) {
	if err := c.start(ctx); err != nil {
		return &yaoernie.ToolInvocationResult{Success: false, Error: err.Error()}, nil
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = req.ToolName
	callReq.Params.Arguments = req.Arguments

	resp, err := c.client.CallTool(ctx, callReq)
	if err != nil {
		return &yaoernie.ToolInvocationResult{Success: false, Error: err.Error()}, nil
	}

	payload, raw := contentToPayload(resp.Content)
	if resp.IsError {
		errMsg := "tool reported an error"
		if raw != "" {
			errMsg = raw
		}
		return &yaoernie.ToolInvocationResult{
			Success:   false,
			Error:     errMsg,
			RawOutput: raw,
		}, nil
	}

	return &yaoernie.ToolInvocationResult{
		Success:   true,
		Payload:   payload,
		RawOutput: raw,
	}, nil
}

// Close shuts down the underlying MCP session.
func (c *Client) Close() error {
	c.initMutex.Lock()
	defer c.initMutex.Unlock()

	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close MCP client")
	}
	c.client = nil
	c.initResult = nil
	return nil
}

// contentToPayload extracts the first text content as a JSON payload when
// it parses, or the text itself when it does not. The same leniency as
// proctool's raw-output fallback.
func contentToPayload(contents []mcp.Content) (any, string) {
	for _, content := range contents {
		txt, ok := mcp.AsTextContent(content)
		if !ok {
			continue
		}

		var v any
		if err := json.Unmarshal([]byte(txt.Text), &v); err == nil {
			return v, txt.Text
		}
		return txt.Text, txt.Text
	}

	return nil, ""
}
