package llm

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one chat completion. System travels separately because the
// providers disagree on where it goes.
type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	// JSON asks the provider for a JSON object reply where it supports that.
	JSON bool
}

// Client is anything that can turn a Request into reply text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrDisabled is returned by the no-op client used when no provider is configured.
var ErrDisabled = errors.New("llm disabled: no API key configured")

// User builds a single-turn request.
func User(system, prompt string) Request {
	return Request{System: system, Messages: []Message{{Role: RoleUser, Content: prompt}}}
}

func Temp(v float64) *float64 { return &v }

type disabled struct{}

func (disabled) Complete(context.Context, Request) (string, error) { return "", ErrDisabled }

// Disabled returns a client that always fails with ErrDisabled.
func Disabled() Client { return disabled{} }

/* ----- reply helpers ----- */

// ExtractJSONObject returns the outermost {...} span of s, or "".
func ExtractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

// ExtractJSONArray returns the outermost [...] span of s, or "".
func ExtractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "]")
	if end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

var fencedRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// StripFences removes a surrounding markdown code fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fencedRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func coalesce(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
