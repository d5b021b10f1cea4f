// Package reason adapts single-shot completion backends into the engine's
// Reasoner contract. The Provider owns prompt construction and response
// parsing; the backend only turns a system prompt and a user prompt into
// text.
package reason

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	yaoernie "github.com/longdream/yao-ernie"
)

// Completer is a single-shot completion backend. reason/claude,
// reason/openai and reason/gemini provide implementations.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// Provider implements yaoernie.Reasoner on top of a Completer.
type Provider struct {
	completer Completer
}

// New creates a Provider.
func New(completer Completer) *Provider {
	return &Provider{completer: completer}
}

// Think asks the backend for the next Thought. A malformed response never
// fails the cycle: the raw text becomes the analysis of a tool-less
// Thought.
func (p *Provider) Think(ctx context.Context, req *yaoernie.ThinkRequest) (*yaoernie.Thought, error) {
	prompt := buildThoughtPrompt(req)

	text, err := p.completer.Complete(ctx, thoughtSystemPrompt, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate thought")
	}

	var thought yaoernie.Thought
	if err := json.Unmarshal([]byte(extractJSON(text)), &thought); err != nil {
		yaoernie.LoggerFromContext(ctx).Warn("thought response is not JSON, using raw text", "error", err)
		return &yaoernie.Thought{Analysis: strings.TrimSpace(text)}, nil
	}

	return &thought, nil
}

// Reflect asks the backend for the cycle verdict. A malformed response
// falls back to a continue verdict so the retry ceiling stays in charge.
func (p *Provider) Reflect(ctx context.Context, req *yaoernie.ReflectRequest) (*yaoernie.Reflection, error) {
	prompt := buildReflectionPrompt(req)

	text, err := p.completer.Complete(ctx, reflectionSystemPrompt, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate reflection")
	}

	var reflection yaoernie.Reflection
	if err := json.Unmarshal([]byte(extractJSON(text)), &reflection); err != nil {
		yaoernie.LoggerFromContext(ctx).Warn("reflection response is not JSON, continuing", "error", err)
		return &yaoernie.Reflection{
			SuccessAnalysis: strings.TrimSpace(text),
			ShouldContinue:  true,
			Status:          yaoernie.StatusContinue,
		}, nil
	}

	if !validStatus(reflection.Status) {
		reflection.Status = yaoernie.StatusContinue
	}

	return &reflection, nil
}

func validStatus(status yaoernie.ReflectionStatus) bool {
	switch status {
	case yaoernie.StatusSuccess, yaoernie.StatusPartial, yaoernie.StatusFailed, yaoernie.StatusContinue:
		return true
	}
	return false
}
