package reason

import (
	"fmt"
	"regexp"
	"strings"

	yaoernie "github.com/longdream/yao-ernie"
)

const (
	thoughtSystemPrompt = `You are the reasoning component of a task execution agent. ` +
		`Analyze the task and the attempts so far, then decide the next step. ` +
		`Respond with a JSON object only.`

	reflectionSystemPrompt = `You are the reflection component of a task execution agent. ` +
		`Judge whether the last attempt succeeded and whether another attempt is worthwhile. ` +
		`Respond with a JSON object only.`

	thoughtFormat = `Respond with this JSON structure:
{
  "analysis": "your reading of the situation",
  "plan": "your intended approach",
  "steps": [{"id": 1, "tool": "tool name or empty", "description": "step"}],
  "proposed_tool": "name of the tool to invoke now, or empty for no action"
}
Only propose tools from the available list. Omit "steps" unless the task decomposes naturally.`

	reflectionFormat = `Respond with this JSON structure:
{
  "success_analysis": "what worked",
  "error_analysis": "what failed, if anything",
  "should_continue": true or false,
  "next_approach": "what to change on the next attempt, if continuing",
  "status": "success" | "partial" | "failed" | "continue"
}`
)

func buildThoughtPrompt(req *yaoernie.ThinkRequest) string {
	var sb strings.Builder

	sb.WriteString("Task:\n")
	sb.WriteString(req.UserMessage)
	sb.WriteString("\n\nAvailable tools:\n")
	for _, tool := range req.Tools {
		fmt.Fprintf(&sb, "- %s: %s\n", tool.Name, tool.Description)
	}

	if len(req.PriorCycles) > 0 {
		sb.WriteString("\nPrevious attempts:\n")
		for _, cycle := range req.PriorCycles {
			fmt.Fprintf(&sb, "Attempt %d: %s\n", cycle.CycleID, cycle.Thought)
			if cycle.Action != nil {
				fmt.Fprintf(&sb, "  invoked %s\n", cycle.Action.ToolName)
			}
			if cycle.Error != "" {
				fmt.Fprintf(&sb, "  error: %s\n", cycle.Error)
			}
			fmt.Fprintf(&sb, "  verdict: %s\n", cycle.Reflection)
		}
	}

	sb.WriteString("\n")
	sb.WriteString(thoughtFormat)

	return sb.String()
}

func buildReflectionPrompt(req *yaoernie.ReflectRequest) string {
	var sb strings.Builder

	sb.WriteString("Task:\n")
	sb.WriteString(req.UserMessage)

	if req.Thought != nil {
		fmt.Fprintf(&sb, "\n\nYour reasoning was:\n%s\nPlan: %s\n", req.Thought.Analysis, req.Thought.Plan)
	}

	if req.Action == nil {
		sb.WriteString("\nNo action was taken this cycle. Note that explicitly in your analysis.\n")
	} else {
		fmt.Fprintf(&sb, "\nAction: invoked %s with %v\n", req.Action.ToolName, req.Action.Arguments)
		if req.Observation != nil {
			if req.Observation.Success {
				fmt.Fprintf(&sb, "Observation: success, payload: %v\n", req.Observation.Payload)
			} else {
				fmt.Fprintf(&sb, "Observation: failure, error: %s\n", req.Observation.Error)
			}
		}
	}

	sb.WriteString("\n")
	sb.WriteString(reflectionFormat)

	return sb.String()
}

var codeBlockRegex = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// extractJSON strips markdown fences and surrounding prose from a model
// response. Backends are asked for JSON only, but models wrap it anyway.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	if matches := codeBlockRegex.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}

	return text
}
