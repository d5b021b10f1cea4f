// Package claude provides a reason.Completer over Anthropic's Messages
// API.
package claude

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// DefaultModel is the model used when WithModel is not given.
	DefaultModel = anthropic.ModelClaude3_5SonnetLatest

	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// Client calls the Anthropic Messages API.
type Client struct {
	client *anthropic.Client

	model       anthropic.Model
	temperature float64
	maxTokens   int64
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model identifier.
func WithModel(model anthropic.Model) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTemperature sets the sampling temperature. Range 0.0 to 1.0.
func WithTemperature(temperature float64) Option {
	return func(c *Client) {
		c.temperature = temperature
	}
}

// WithMaxTokens sets the generation token limit.
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// New creates a new Anthropic completer. An empty apiKey falls back to the
// SDK's environment-based configuration.
func New(apiKey string, options ...Option) *Client {
	c := &Client{
		model:       DefaultModel,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}

	for _, opt := range options {
		opt(c)
	}

	var clientOpts []option.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}

	client := anthropic.NewClient(clientOpts...)
	c.client = &client

	return c
}

// Complete implements reason.Completer.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "anthropic message request failed")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return sb.String(), nil
}
