package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"preflop-coach/server/config"
	"preflop-coach/server/llm"
	"preflop-coach/server/question"
	"preflop-coach/server/store"
)

// Globals are shared by every command.
type Globals struct {
	Config   string   `kong:"short='c',default='coach.hcl',env='COACH_CONFIG',help='HCL config file (optional)'"`
	EnvFile  []string `kong:"name='env-file',help='.env files to load (default ./.env)'"`
	LogLevel string   `kong:"name='log-level',help='debug|info|warn|error'"`
	DB       string   `kong:"name='db',help='SQLite range database path'"`
}

type CLI struct {
	Globals

	Import  ImportCmd  `kong:"cmd,help='Import a solver tree into the range database'"`
	Migrate MigrateCmd `kong:"cmd,help='Create the range database schema'"`
	Ask     AskCmd     `kong:"cmd,help='Ask range questions interactively'"`
	Lookup  LookupCmd  `kong:"cmd,help='One-shot range lookup without the LLM'"`
	Browse  BrowseCmd  `kong:"cmd,help='Browse positions, nodes and ranges'"`
	Serve   ServeCmd   `kong:"cmd,help='Run the HTTP API'"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("preflop-coach"),
		kong.Description("Pre-flop range database, assistant and coach"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&cli.Globals)
	kctx.FatalIfErrorf(err)
}

// setup loads .env files and the config, applies flag overrides and builds
// the logger.
func (g *Globals) setup() (*config.Config, *log.Logger, error) {
	if err := config.LoadEnvFiles(g.EnvFile...); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.DB != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = g.DB
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "coach",
	})
	if lvl, err := log.ParseLevel(strings.ToLower(level)); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// openStore opens the configured backend. Query commands pass readOnly so a
// missing SQLite file is fatal instead of silently created.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger, readOnly bool) store.Store {
	s, err := store.Open(ctx, store.Options{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		ReadOnly: readOnly,
	})
	if errors.Is(err, store.ErrDatabaseMissing) {
		logger.Fatal("range database not found; run import first", "path", cfg.Database.Path)
	}
	if err != nil {
		logger.Fatal("open database", "driver", cfg.Database.Driver, "err", err)
	}
	return s
}

func newLLM(cfg *config.Config) (llm.Client, error) {
	return llm.New(llm.Options{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		AnthropicModel:    cfg.LLM.AnthropicModel,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
}

func assistantOptions(cfg *config.Config) question.Options {
	return question.Options{
		ParseWithLLM: !cfg.LLM.DisableParse,
		Polish:       !cfg.LLM.DisablePolish,
		Timeout:      cfg.LLM.Timeout,
	}
}
