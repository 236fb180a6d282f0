package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSetHeaderPreserveCase(t *testing.T) {
	hdr := http.Header{}
	setHeaderPreserveCase(hdr, "HTTP-Referer", "https://example.com/app")
	if vals := hdr["HTTP-Referer"]; len(vals) != 1 || vals[0] != "https://example.com/app" {
		t.Fatalf("expected HTTP-Referer slice to be preserved, got %+v", vals)
	}
	if _, exists := hdr["Http-Referer"]; exists {
		t.Fatalf("unexpected canonical header variant present: %+v", hdr)
	}

	setHeaderPreserveCase(hdr, "Referer", "https://example.com/app")
	if got := hdr.Get("Referer"); got != "https://example.com/app" {
		t.Fatalf("expected Referer to be set via canonical path, got %q", got)
	}

	// Blank values should be ignored.
	setHeaderPreserveCase(hdr, "  ", "value")
	setHeaderPreserveCase(hdr, "X-Test", "   ")
	if _, exists := hdr[" "]; exists {
		t.Fatalf("expected blank header keys to be ignored")
	}
	if got := hdr.Get("X-Test"); got != "" {
		t.Fatalf("expected blank header values to be skipped, got %q", got)
	}
}

func TestOpenAIComplete(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Raise it.  "}}]}`))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_BASE", srv.URL+"/")
	c, err := NewOpenAI("gpt-4o-mini", "", time.Second)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	out, err := c.Complete(context.Background(), Request{
		System:      "be brief",
		Messages:    []Message{{Role: RoleUser, Content: "AKs on the button?"}},
		MaxTokens:   50,
		Temperature: Temp(0),
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "Raise it." {
		t.Fatalf("unexpected reply %q", out)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system + user messages, got %v", got["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Fatalf("system message should come first, got %v", msgs[0])
	}
	if got["max_tokens"] != float64(50) || got["temperature"] != float64(0) {
		t.Fatalf("unexpected tuning fields: %v", got)
	}
	if _, ok := got["response_format"]; !ok {
		t.Fatalf("JSON request should set response_format")
	}
}

func TestOpenAICompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_BASE", srv.URL)
	c, err := NewOpenAI("gpt-4o-mini", "openai", time.Second)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	_, err = c.Complete(context.Background(), User("", "hi"))
	if err == nil || !strings.Contains(err.Error(), "http 429") {
		t.Fatalf("expected http 429 error, got %v", err)
	}
}

func TestModelName(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_BASE", "http://localhost:1")
	c, err := NewOpenAI("gpt-4o-mini", "openai", time.Second)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	if got := ModelName(c); got != "gpt-4o-mini" {
		t.Fatalf("ModelName: %q", got)
	}
	if got := ModelName(Limit(c, 1, 1)); got != "gpt-4o-mini" {
		t.Fatalf("ModelName through limiter: %q", got)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	a, err := NewAnthropic("")
	if err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}
	if got := ModelName(a); got != defaultAnthropicModel {
		t.Fatalf("ModelName anthropic: %q", got)
	}
	if got := ModelName(Disabled()); got != "" {
		t.Fatalf("disabled client should have no model, got %q", got)
	}
}

func TestExtractJSON(t *testing.T) {
	if got := ExtractJSONObject("sure! {\"hand\":\"AKs\"} done"); got != `{"hand":"AKs"}` {
		t.Fatalf("ExtractJSONObject: %q", got)
	}
	if got := ExtractJSONObject("no json"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := ExtractJSONArray("here: [1, 2]\n\"final_comment\": \"x\""); got != "[1, 2]" {
		t.Fatalf("ExtractJSONArray: %q", got)
	}
	if got := StripFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("StripFences: %q", got)
	}
}
