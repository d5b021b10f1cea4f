// Package gemini provides a reason.Completer over Google's Gemini models
// on the Vertex AI backend.
package gemini

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the model used when WithModel is not given.
	DefaultModel = "gemini-2.5-flash"

	defaultTemperature = float32(0.7)
)

// Client calls the Gemini API via Vertex AI.
type Client struct {
	client *genai.Client

	projectID string
	location  string

	model       string
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

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float32) Option {
	return func(c *Client) {
		c.temperature = temperature
	}
}

// New creates a new Gemini completer for the given GCP project and
// location.
func New(ctx context.Context, projectID, location string, options ...Option) (*Client, error) {
	c := &Client{
		projectID:   projectID,
		location:    location,
		model:       DefaultModel,
		temperature: defaultTemperature,
	}

	for _, opt := range options {
		opt(c)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client",
			goerr.V("project_id", projectID), goerr.V("location", location))
	}
	c.client = client

	return c, nil
}

// Complete implements reason.Completer.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.temperature),
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Role: "system",
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", goerr.Wrap(err, "gemini content generation failed", goerr.V("model", c.model))
	}

	return resp.Text(), nil
}
