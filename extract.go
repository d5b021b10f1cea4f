package yaoernie

import (
	"context"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Extractor derives the arguments for one tool from the task's request
// text. Extractors are registered per tool with WithExtractor; when a
// proposed tool has no extractor, the Act phase runs it with no arguments.
//
// An extraction failure does not abort the task: the cycle records the
// failure reason, takes no action, and still consumes a retry.
type Extractor func(ctx context.Context, userMessage string) (map[string]any, error)

// ErrExtractionFailed is the base error for argument extraction failures.
var ErrExtractionFailed = goerr.New("argument extraction failed")

// Filesystem path token: absolute (unix or windows) or home-relative,
// trailing punctuation excluded.
var pathPattern = regexp.MustCompile(`(?:[A-Za-z]:[\\/]|/|~/)[\w.\-~\\/]+`)

// PathExtractor returns an Extractor that locates a filesystem path token in
// the request text and binds it to the named parameter.
func PathExtractor(param string) Extractor {
	return func(ctx context.Context, userMessage string) (map[string]any, error) {
		match := pathPattern.FindString(userMessage)
		if match == "" {
			return nil, goerr.Wrap(ErrExtractionFailed, "no path token in request text",
				goerr.V("param", param))
		}
		return map[string]any{param: strings.TrimRight(match, ".,;:")}, nil
	}
}

// QuotedTextExtractor returns an Extractor that binds the first quoted
// segment of the request text to the named parameter, falling back to the
// full text when nothing is quoted.
func QuotedTextExtractor(param string) Extractor {
	quoted := regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	return func(ctx context.Context, userMessage string) (map[string]any, error) {
		if m := quoted.FindStringSubmatch(userMessage); m != nil {
			text := m[1]
			if text == "" {
				text = m[2]
			}
			return map[string]any{param: text}, nil
		}
		return map[string]any{param: userMessage}, nil
	}
}

// StaticExtractor returns an Extractor that always yields the given
// arguments, ignoring the request text.
func StaticExtractor(args map[string]any) Extractor {
	return func(ctx context.Context, userMessage string) (map[string]any, error) {
		return args, nil
	}
}
