package reason

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	yaoernie "github.com/longdream/yao-ernie"
)

func TestExtractJSON(t *testing.T) {
	t.Run("bare json", func(t *testing.T) {
		gt.Equal(t, `{"analysis":"x"}`, extractJSON(`{"analysis":"x"}`))
	})

	t.Run("fenced json", func(t *testing.T) {
		text := "```json\n{\"analysis\":\"x\"}\n```"
		gt.Equal(t, `{"analysis":"x"}`, extractJSON(text))
	})

	t.Run("plain fence", func(t *testing.T) {
		text := "```\n{\"analysis\":\"x\"}\n```"
		gt.Equal(t, `{"analysis":"x"}`, extractJSON(text))
	})

	t.Run("json embedded in prose", func(t *testing.T) {
		text := `Sure, here is the result: {"analysis":"x"} hope that helps`
		gt.Equal(t, `{"analysis":"x"}`, extractJSON(text))
	})

	t.Run("no json at all", func(t *testing.T) {
		gt.Equal(t, "just words", extractJSON("  just words  "))
	})
}

func TestThink(t *testing.T) {
	ctx := context.Background()

	req := &yaoernie.ThinkRequest{
		UserMessage: "check /tmp/data.txt",
		Tools: []yaoernie.ToolDescriptor{
			{Name: "file_check", Description: "checks whether a file exists"},
		},
		PriorCycles: []yaoernie.CycleRecord{
			{
				CycleID:    1,
				Thought:    "try the obvious thing",
				Action:     &yaoernie.ToolInvocationRequest{ToolName: "file_check"},
				Reflection: "failed: exit code 1",
				Error:      "exit code 1, no output",
			},
		},
	}

	t.Run("well-formed response", func(t *testing.T) {
		var gotSystem, gotUser string
		provider := New(CompleterFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			gotSystem = systemPrompt
			gotUser = userPrompt
			return `{"analysis":"retry with args","plan":"pass the path","proposed_tool":"file_check"}`, nil
		}))

		thought := gt.R1(provider.Think(ctx, req)).NoError(t)
		gt.Equal(t, "file_check", thought.ProposedTool)
		gt.Equal(t, "retry with args", thought.Analysis)

		gt.S(t, gotSystem).Contains("reasoning component")
		gt.S(t, gotUser).Contains("check /tmp/data.txt")
		gt.S(t, gotUser).Contains("file_check: checks whether a file exists")
		gt.S(t, gotUser).Contains("Attempt 1")
		gt.S(t, gotUser).Contains("exit code 1, no output")
	})

	t.Run("malformed response falls back to raw text", func(t *testing.T) {
		provider := New(CompleterFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "I cannot produce JSON today", nil
		}))

		thought := gt.R1(provider.Think(ctx, req)).NoError(t)
		gt.Equal(t, "I cannot produce JSON today", thought.Analysis)
		gt.Equal(t, "", thought.ProposedTool)
	})

	t.Run("backend error propagates", func(t *testing.T) {
		provider := New(CompleterFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "", errors.New("rate limited")
		}))

		_, err := provider.Think(ctx, req)
		gt.Error(t, err)
		gt.S(t, err.Error()).Contains("failed to generate thought")
	})
}

func TestReflect(t *testing.T) {
	ctx := context.Background()

	req := &yaoernie.ReflectRequest{
		UserMessage: "check /tmp/data.txt",
		Thought:     &yaoernie.Thought{Analysis: "try file_check", Plan: "invoke it"},
		Action:      &yaoernie.ToolInvocationRequest{ToolName: "file_check"},
		Observation: &yaoernie.ToolInvocationResult{Success: true, Payload: map[string]any{"ok": true}},
	}

	t.Run("well-formed response", func(t *testing.T) {
		var gotUser string
		provider := New(CompleterFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			gotUser = userPrompt
			return `{"success_analysis":"file exists","should_continue":false,"status":"success"}`, nil
		}))

		reflection := gt.R1(provider.Reflect(ctx, req)).NoError(t)
		gt.Equal(t, yaoernie.StatusSuccess, reflection.Status)
		gt.False(t, reflection.ShouldContinue)

		gt.S(t, gotUser).Contains("invoked file_check")
		gt.S(t, gotUser).Contains("Observation: success")
	})

	t.Run("no action is stated in the prompt", func(t *testing.T) {
		var gotUser string
		provider := New(CompleterFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			gotUser = userPrompt
			return `{"success_analysis":"nothing happened","should_continue":true,"status":"continue"}`, nil
		}))

		gt.R1(provider.Reflect(ctx, &yaoernie.ReflectRequest{
			UserMessage: "an ambiguous request",
			Thought:     &yaoernie.Thought{Analysis: "unsure"},
		})).NoError(t)

		gt.S(t, gotUser).Contains("No action was taken this cycle")
	})

	t.Run("unknown status normalized to continue", func(t *testing.T) {
		provider := New(CompleterFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return `{"success_analysis":"hm","should_continue":true,"status":"maybe"}`, nil
		}))

		reflection := gt.R1(provider.Reflect(ctx, req)).NoError(t)
		gt.Equal(t, yaoernie.StatusContinue, reflection.Status)
	})

	t.Run("malformed response continues", func(t *testing.T) {
		provider := New(CompleterFunc(func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			return "not json", nil
		}))

		reflection := gt.R1(provider.Reflect(ctx, req)).NoError(t)
		gt.Equal(t, yaoernie.StatusContinue, reflection.Status)
		gt.True(t, reflection.ShouldContinue)
	})
}
