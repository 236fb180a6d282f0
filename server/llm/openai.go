package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// OpenAI talks to any chat/completions endpoint (OpenAI, OpenRouter or a
// compatible proxy) resolved from the environment.
type OpenAI struct {
	cfg  apiConfig
	http *http.Client
}

// NewOpenAI resolves endpoint, key and headers for model. provider may force
// "openai" or "openrouter"; empty lets the environment decide.
func NewOpenAI(model, provider string, timeout time.Duration) (*OpenAI, error) {
	cfg, err := resolveAPIConfig(model, provider)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &OpenAI{cfg: cfg, http: &http.Client{Timeout: timeout}}, nil
}

func (c *OpenAI) Model() string { return c.cfg.Model }

func (c *OpenAI) Provider() string { return c.cfg.Kind.String() }

func (c *OpenAI) payload(req Request) map[string]any {
	msgs := make([]map[string]string, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]string{"role": m.Role, "content": m.Content})
	}
	payload := map[string]any{
		"model":    c.cfg.Model,
		"messages": msgs,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.JSON {
		payload["response_format"] = map[string]any{"type": "json_object"}
	}
	applyTuningFromEnv(payload, c.cfg.Kind == providerOpenRouter)
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	return payload
}

// Complete sends req to /chat/completions and returns the first choice.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	b, err := json.Marshal(c.payload(req))
	if err != nil {
		return "", err
	}
	url := c.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	setHeaderPreserveCase(httpReq.Header, c.cfg.HeaderName, c.cfg.HeaderPrefix+c.cfg.APIKey)
	if c.cfg.Organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.cfg.Organization)
	}
	for k, v := range c.cfg.ExtraHeaders {
		setHeaderPreserveCase(httpReq.Header, k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	body := buf.Bytes()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s http %d: %s", c.Provider(), resp.StatusCode, truncate(string(body), 800))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &cc); err != nil {
		return "", err
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

// setHeaderPreserveCase keeps non-canonical names such as "HTTP-Referer"
// verbatim; some gateways match them case-sensitively.
func setHeaderPreserveCase(hdr http.Header, key, value string) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return
	}
	if http.CanonicalHeaderKey(key) == key {
		hdr.Set(key, value)
		return
	}
	hdr[key] = []string{value}
}

func applyTuningFromEnv(m map[string]any, preferOpenRouter bool) {
	if v := envWithFallback(preferOpenRouter, "OPENAI_TEMPERATURE", "OPENROUTER_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m["temperature"] = f
		}
	}
	if v := envWithFallback(preferOpenRouter, "OPENAI_TOP_P", "OPENROUTER_TOP_P"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m["top_p"] = f
		}
	}
	if v := envWithFallback(preferOpenRouter, "OPENAI_MAX_OUTPUT_TOKENS", "OPENROUTER_MAX_OUTPUT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if _, set := m["max_tokens"]; !set {
				m["max_tokens"] = n
			}
		}
	}
}

func envWithFallback(preferOpenRouter bool, openAIKey, openRouterKey string) string {
	keys := []string{openAIKey, openRouterKey}
	if preferOpenRouter {
		keys[0], keys[1] = keys[1], keys[0]
	}
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func preferOpenRouterEnv() bool {
	if strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")) != "" && strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) == "" {
		return true
	}
	if strings.TrimSpace(os.Getenv("OPENROUTER_MODEL")) != "" && strings.TrimSpace(os.Getenv("OPENAI_MODEL")) == "" {
		return true
	}
	if strings.TrimSpace(os.Getenv("OPENROUTER_API_BASE")) != "" || strings.TrimSpace(os.Getenv("OPENROUTER_BASE_URL")) != "" {
		return true
	}
	for _, k := range []string{"OPENAI_API_BASE", "OPENAI_BASE_URL"} {
		if base := strings.TrimSpace(os.Getenv(k)); base != "" && strings.Contains(strings.ToLower(base), "openrouter") {
			return true
		}
	}
	return false
}
