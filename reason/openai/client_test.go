package openai_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/longdream/yao-ernie/reason"
	"github.com/longdream/yao-ernie/reason/openai"
)

var _ reason.Completer = (*openai.Client)(nil)

func TestOpenAIComplete(t *testing.T) {
	apiKey, ok := os.LookupEnv("TEST_OPENAI_API_KEY")
	if !ok {
		t.Skip("TEST_OPENAI_API_KEY is not set")
	}

	ctx := context.Background()
	options := []openai.Option{openai.WithTemperature(0)}
	if baseURL := os.Getenv("TEST_OPENAI_BASE_URL"); baseURL != "" {
		options = append(options, openai.WithBaseURL(baseURL))
	}
	if model := os.Getenv("TEST_OPENAI_MODEL"); model != "" {
		options = append(options, openai.WithModel(model))
	}
	client := openai.New(apiKey, options...)

	text := gt.R1(client.Complete(ctx,
		"Respond with a JSON object only.",
		`Return {"ok": true} and nothing else.`,
	)).NoError(t)

	gt.S(t, text).Contains("ok")
}
