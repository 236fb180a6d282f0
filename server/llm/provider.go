package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	// Provider is "openai", "openrouter", "anthropic", "none" or "" (auto).
	Provider       string
	Model          string // chat/completions model
	AnthropicModel string
	Timeout        time.Duration
	// RequestsPerMinute caps outbound calls; <= 0 disables the limiter.
	RequestsPerMinute int
}

// New builds the configured client. With no provider named it picks
// Anthropic when only ANTHROPIC_API_KEY is set, otherwise the OpenAI path.
// With no credentials at all it returns Disabled().
func New(opts Options) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		provider = detectProvider()
	}
	var (
		c   Client
		err error
	)
	switch provider {
	case "none", "off":
		return Disabled(), nil
	case "anthropic", "claude":
		c, err = NewAnthropic(opts.AnthropicModel)
	case "openai", "openrouter":
		c, err = NewOpenAI(opts.Model, provider, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opts.RequestsPerMinute > 0 {
		c = Limit(c, rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return c, nil
}

// ModelName reports the model behind c, looking through the rate limiter.
// A disabled client has none.
func ModelName(c Client) string {
	if l, ok := c.(*limited); ok {
		c = l.next
	}
	if m, ok := c.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

func detectProvider() string {
	hasOpenAI := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" ||
		strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")) != ""
	hasAnthropic := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")) != ""
	switch {
	case hasOpenAI && preferOpenRouterEnv():
		return "openrouter"
	case hasOpenAI:
		return "openai"
	case hasAnthropic:
		return "anthropic"
	default:
		return "none"
	}
}

/* ----- rate limiting ----- */

type limited struct {
	next    Client
	limiter *rate.Limiter
}

// Limit wraps c so that calls wait for a token from a limiter of r/burst.
func Limit(c Client, r rate.Limit, burst int) Client {
	return &limited{next: c, limiter: rate.NewLimiter(r, burst)}
}

func (l *limited) Complete(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return l.next.Complete(ctx, req)
}
