package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LOG_LEVEL", "RANGES_TREE", "TRANSCRIPT_LOG", "RANGES_DB", "DATABASE_URL", "DB_DRIVER",
	"PORT", "ALLOWED_ORIGINS", "LLM_PROVIDER", "OPENAI_MODEL", "ANTHROPIC_MODEL", "LLM_RPM",
	"LLM_TIMEOUT", "LLM_DISABLE_PARSE", "LLM_DISABLE_POLISH", "SESSION_TTL", "MAX_SESSIONS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coach.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "poker_ranges.db", cfg.Database.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, ":8080", cfg.ListenAddress())
	assert.Len(t, cfg.Server.AllowedOrigins, 3)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
log_level = "debug"
tree      = "/data/tree"

database {
  path = "/data/ranges.db"
}

server {
  port            = 9000
  allowed_origins = ["https://coach.example"]
}

llm {
  provider       = "anthropic"
  disable_polish = true
}

sessions {
  ttl          = "5m"
  max_sessions = 10
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/data/tree", cfg.TreeDir)
	assert.Equal(t, "/data/ranges.db", cfg.Database.Path)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://coach.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.True(t, cfg.LLM.DisablePolish)
	assert.False(t, cfg.LLM.DisableParse)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model, "unset keys keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, 10, cfg.Sessions.MaxSessions)
	assert.Equal(t, 50, cfg.Sessions.MaxMessages)

	t.Setenv("PORT", "7000")
	t.Setenv("RANGES_DB", "/tmp/other.db")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("ALLOWED_ORIGINS", "http://a, http://b")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Sessions.TTL)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"bad driver":   `database { driver = "oracle" }`,
		"postgres dsn": `database { driver = "postgres" }`,
		"bad port":     `server { port = 70000 }`,
		"bad provider": `llm { provider = "pigeon" }`,
		"bad ttl":      `sessions { ttl = "soon" }`,
		"syntax":       `server {`,
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/ranges")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("COACH_TEST_VALUE=from-file\nCOACH_TEST_KEEP=from-file\n"), 0o644))
	t.Setenv("COACH_TEST_VALUE", "")
	os.Unsetenv("COACH_TEST_VALUE")
	t.Setenv("COACH_TEST_KEEP", "from-env")

	require.NoError(t, LoadEnvFiles(path))
	assert.Equal(t, "from-file", os.Getenv("COACH_TEST_VALUE"))
	assert.Equal(t, "from-env", os.Getenv("COACH_TEST_KEEP"))

	assert.Error(t, LoadEnvFiles(filepath.Join(t.TempDir(), "nope.env")))
}

func TestEnvHelpers(t *testing.T) {
	assert.Equal(t, 5, atoiDef("", 5))
	assert.Equal(t, 5, atoiDef("five", 5))
	assert.Equal(t, 7, atoiDef("7", 5))
	assert.True(t, asBool(" Yes "))
	assert.False(t, asBool("nah"))
}
