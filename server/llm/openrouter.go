package llm

import (
	"errors"
	"os"
	"strings"
)

// defaultTitle is sent as X-Title to OpenRouter unless OPENROUTER_TITLE is set.
const defaultTitle = "Preflop Coach"

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

type providerKind int

const (
	providerOpenAI providerKind = iota
	providerOpenRouter
)

func (k providerKind) String() string {
	if k == providerOpenRouter {
		return "openrouter"
	}
	return "openai"
}

// apiConfig is everything needed to call one chat/completions endpoint.
type apiConfig struct {
	Kind         providerKind
	APIKey       string
	Model        string
	BaseURL      string
	HeaderName   string
	HeaderPrefix string
	Organization string
	ExtraHeaders map[string]string
}

// resolveAPIConfig works out endpoint, key and auth header for model.
// Precedence for the provider: the provider argument, LLM_PROVIDER, an
// "openrouter/" model prefix, an OpenRouter base URL, then whichever key is set.
func resolveAPIConfig(model, provider string) (apiConfig, error) {
	base := firstNonEmpty(os.Getenv("OPENAI_API_BASE"), os.Getenv("OPENAI_BASE_URL"),
		os.Getenv("OPENROUTER_API_BASE"), os.Getenv("OPENROUTER_BASE_URL"))

	kind, pinned := providerOpenAI, false
	switch strings.ToLower(firstNonEmpty(provider, os.Getenv("LLM_PROVIDER"))) {
	case "openrouter":
		kind, pinned = providerOpenRouter, true
	case "openai":
		kind, pinned = providerOpenAI, true
	}
	if !pinned {
		switch {
		case strings.Contains(strings.ToLower(model), "openrouter/"):
			kind = providerOpenRouter
		case strings.Contains(strings.ToLower(base), "openrouter"):
			kind = providerOpenRouter
		case preferOpenRouterEnv():
			kind = providerOpenRouter
		}
	}

	cfg := apiConfig{Kind: kind, Model: strings.TrimSpace(model), ExtraHeaders: map[string]string{}}
	if cfg.Model == "" && kind == providerOpenRouter {
		cfg.Model = strings.TrimSpace(os.Getenv("OPENROUTER_MODEL"))
	}
	if cfg.Model == "" {
		cfg.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	}
	if cfg.Model == "" {
		return apiConfig{}, errors.New("model missing: set OPENAI_MODEL/OPENROUTER_MODEL or pass a value")
	}

	if base == "" {
		base = openAIBaseURL
		if kind == providerOpenRouter {
			base = openRouterBaseURL
		}
	}
	cfg.BaseURL = strings.TrimRight(base, "/")

	openAIKey, openRouterKey := os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENROUTER_API_KEY")
	if kind == providerOpenRouter {
		cfg.APIKey = firstNonEmpty(openRouterKey, openAIKey)
	} else {
		cfg.APIKey = firstNonEmpty(openAIKey, openRouterKey)
	}
	if cfg.APIKey == "" {
		return apiConfig{}, errors.New("API key missing: set OPENAI_API_KEY or OPENROUTER_API_KEY")
	}

	cfg.HeaderName = firstNonEmpty(os.Getenv("OPENAI_API_KEY_HEADER"), os.Getenv("OPENROUTER_API_KEY_HEADER"), "Authorization")
	cfg.HeaderPrefix = coalesce(os.Getenv("OPENAI_API_KEY_PREFIX"), os.Getenv("OPENROUTER_API_KEY_PREFIX"))
	if cfg.HeaderName == "Authorization" && strings.TrimSpace(cfg.HeaderPrefix) == "" {
		cfg.HeaderPrefix = "Bearer "
	}
	cfg.Organization = strings.TrimSpace(os.Getenv("OPENAI_ORG"))

	if kind == providerOpenRouter {
		if site := strings.TrimSpace(os.Getenv("OPENROUTER_SITE_URL")); site != "" {
			cfg.ExtraHeaders["HTTP-Referer"] = site
			cfg.ExtraHeaders["Referer"] = site
		}
		cfg.ExtraHeaders["X-Title"] = firstNonEmpty(os.Getenv("OPENROUTER_TITLE"), defaultTitle)
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
