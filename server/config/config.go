package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/joho/godotenv"
)

// Config is the resolved configuration: defaults, then the HCL file, then
// environment variables.
type Config struct {
	LogLevel   string
	TreeDir    string
	Transcript string
	Database   DatabaseSettings
	Server     ServerSettings
	LLM        LLMSettings
	Sessions   SessionSettings
}

type DatabaseSettings struct {
	Driver string `hcl:"driver,optional"` // sqlite | postgres
	Path   string `hcl:"path,optional"`
	DSN    string `hcl:"dsn,optional"`
}

type ServerSettings struct {
	Address        string   `hcl:"address,optional"`
	Port           int      `hcl:"port,optional"`
	AllowedOrigins []string `hcl:"allowed_origins,optional"`
	ReadTimeoutRaw string   `hcl:"read_timeout,optional"`

	ReadTimeout time.Duration
}

type LLMSettings struct {
	Provider          string `hcl:"provider,optional"`
	Model             string `hcl:"model,optional"`
	AnthropicModel    string `hcl:"anthropic_model,optional"`
	RequestsPerMinute int    `hcl:"requests_per_minute,optional"`
	TimeoutRaw        string `hcl:"timeout,optional"`
	DisableParse      bool   `hcl:"disable_parse,optional"`
	DisablePolish     bool   `hcl:"disable_polish,optional"`

	Timeout time.Duration
}

type SessionSettings struct {
	TTLRaw      string `hcl:"ttl,optional"`
	MaxSessions int    `hcl:"max_sessions,optional"`
	MaxMessages int    `hcl:"max_messages,optional"`

	TTL time.Duration
}

// fileConfig is the HCL layout; every block is optional.
type fileConfig struct {
	LogLevel   string            `hcl:"log_level,optional"`
	TreeDir    string            `hcl:"tree,optional"`
	Transcript string            `hcl:"transcript,optional"`
	Database   *DatabaseSettings `hcl:"database,block"`
	Server     *ServerSettings   `hcl:"server,block"`
	LLM        *LLMSettings      `hcl:"llm,block"`
	Sessions   *SessionSettings  `hcl:"sessions,block"`
}

func Default() *Config {
	return &Config{
		LogLevel:   "info",
		TreeDir:    "tree",
		Transcript: "assistant_log.txt",
		Database: DatabaseSettings{
			Driver: "sqlite",
			Path:   "poker_ranges.db",
		},
		Server: ServerSettings{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8080", "http://127.0.0.1:8080"},
			ReadTimeoutRaw: "15s",
		},
		LLM: LLMSettings{
			Model:             "gpt-4o-mini",
			RequestsPerMinute: 60,
			TimeoutRaw:        "45s",
		},
		Sessions: SessionSettings{
			TTLRaw:      "30m",
			MaxSessions: 1000,
			MaxMessages: 50,
		},
	}
}

// LoadEnvFiles reads .env style files into the process environment without
// overriding what is already set. With no files it tries ./.env and ignores
// its absence.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Load builds the configuration. An empty path or a missing file means
// defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.applyFile(path); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	c.LogLevel = coalesce(fc.LogLevel, c.LogLevel)
	c.TreeDir = coalesce(fc.TreeDir, c.TreeDir)
	c.Transcript = coalesce(fc.Transcript, c.Transcript)
	if d := fc.Database; d != nil {
		c.Database.Driver = coalesce(d.Driver, c.Database.Driver)
		c.Database.Path = coalesce(d.Path, c.Database.Path)
		c.Database.DSN = coalesce(d.DSN, c.Database.DSN)
	}
	if s := fc.Server; s != nil {
		c.Server.Address = coalesce(s.Address, c.Server.Address)
		if s.Port != 0 {
			c.Server.Port = s.Port
		}
		if s.AllowedOrigins != nil {
			c.Server.AllowedOrigins = s.AllowedOrigins
		}
		c.Server.ReadTimeoutRaw = coalesce(s.ReadTimeoutRaw, c.Server.ReadTimeoutRaw)
	}
	if l := fc.LLM; l != nil {
		c.LLM.Provider = coalesce(l.Provider, c.LLM.Provider)
		c.LLM.Model = coalesce(l.Model, c.LLM.Model)
		c.LLM.AnthropicModel = coalesce(l.AnthropicModel, c.LLM.AnthropicModel)
		if l.RequestsPerMinute != 0 {
			c.LLM.RequestsPerMinute = l.RequestsPerMinute
		}
		c.LLM.TimeoutRaw = coalesce(l.TimeoutRaw, c.LLM.TimeoutRaw)
		c.LLM.DisableParse = l.DisableParse
		c.LLM.DisablePolish = l.DisablePolish
	}
	if s := fc.Sessions; s != nil {
		c.Sessions.TTLRaw = coalesce(s.TTLRaw, c.Sessions.TTLRaw)
		if s.MaxSessions != 0 {
			c.Sessions.MaxSessions = s.MaxSessions
		}
		if s.MaxMessages != 0 {
			c.Sessions.MaxMessages = s.MaxMessages
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.TreeDir = getenv("RANGES_TREE", c.TreeDir)
	c.Transcript = getenv("TRANSCRIPT_LOG", c.Transcript)

	c.Database.Path = getenv("RANGES_DB", c.Database.Path)
	c.Database.DSN = getenv("DATABASE_URL", c.Database.DSN)
	c.Database.Driver = getenv("DB_DRIVER", c.Database.Driver)

	c.Server.Port = atoiDef(os.Getenv("PORT"), c.Server.Port)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	c.LLM.Provider = getenv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getenv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.AnthropicModel = getenv("ANTHROPIC_MODEL", c.LLM.AnthropicModel)
	c.LLM.RequestsPerMinute = atoiDef(os.Getenv("LLM_RPM"), c.LLM.RequestsPerMinute)
	c.LLM.TimeoutRaw = getenv("LLM_TIMEOUT", c.LLM.TimeoutRaw)
	if v := os.Getenv("LLM_DISABLE_PARSE"); v != "" {
		c.LLM.DisableParse = asBool(v)
	}
	if v := os.Getenv("LLM_DISABLE_POLISH"); v != "" {
		c.LLM.DisablePolish = asBool(v)
	}

	c.Sessions.TTLRaw = getenv("SESSION_TTL", c.Sessions.TTLRaw)
	c.Sessions.MaxSessions = atoiDef(os.Getenv("MAX_SESSIONS"), c.Sessions.MaxSessions)
}

// resolve parses durations and validates.
func (c *Config) resolve() error {
	var err error
	if c.Server.ReadTimeout, err = parseDuration("server.read_timeout", c.Server.ReadTimeoutRaw); err != nil {
		return err
	}
	if c.LLM.Timeout, err = parseDuration("llm.timeout", c.LLM.TimeoutRaw); err != nil {
		return err
	}
	if c.Sessions.TTL, err = parseDuration("sessions.ttl", c.Sessions.TTLRaw); err != nil {
		return err
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	return c.Validate()
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn (or DATABASE_URL) is required for postgres")
		}
	default:
		return fmt.Errorf("invalid database driver: %q", c.Database.Driver)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	switch c.LLM.Provider {
	case "", "openai", "openrouter", "anthropic", "none":
	default:
		return fmt.Errorf("invalid llm provider: %q", c.LLM.Provider)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must not be negative")
	}

	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("sessions.max_sessions must be positive")
	}
	if c.Sessions.MaxMessages <= 0 {
		return fmt.Errorf("sessions.max_messages must be positive")
	}
	return nil
}

// ListenAddress returns host:port for the HTTP server.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

/* ----- env helpers ----- */

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func coalesce(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
