package gemini_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/longdream/yao-ernie/reason"
	"github.com/longdream/yao-ernie/reason/gemini"
)

var _ reason.Completer = (*gemini.Client)(nil)

func TestGeminiComplete(t *testing.T) {
	projectID, ok := os.LookupEnv("TEST_GCP_PROJECT_ID")
	if !ok {
		t.Skip("TEST_GCP_PROJECT_ID is not set")
	}
	location, ok := os.LookupEnv("TEST_GCP_LOCATION")
	if !ok {
		t.Skip("TEST_GCP_LOCATION is not set")
	}

	ctx := context.Background()
	client := gt.R1(gemini.New(ctx, projectID, location, gemini.WithTemperature(0))).NoError(t)

	text := gt.R1(client.Complete(ctx,
		"Respond with a JSON object only.",
		`Return {"ok": true} and nothing else.`,
	)).NoError(t)

	gt.S(t, text).Contains("ok")
}
