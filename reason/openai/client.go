// Package openai provides a reason.Completer over the OpenAI chat
// completion API, including OpenAI-compatible endpoints via WithBaseURL.
package openai

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is the model used when WithModel is not given.
	DefaultModel = openai.GPT4TurboPreview

	defaultTemperature = 0.7
)

// Client calls the OpenAI chat completion API.
type Client struct {
	client *openai.Client

	model       string
	baseURL     string
	temperature float32
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float32) Option {
	return func(c *Client) {
		c.temperature = temperature
	}
}

// New creates a new OpenAI completer.
func New(apiKey string, options ...Option) *Client {
	c := &Client{
		model:       DefaultModel,
		temperature: defaultTemperature,
	}

	for _, opt := range options {
		opt(c)
	}

	config := openai.DefaultConfig(apiKey)
	if c.baseURL != "" {
		config.BaseURL = c.baseURL
	}
	c.client = openai.NewClientWithConfig(config)

	return c
}

// Complete implements reason.Completer.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "openai chat completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", goerr.New("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
