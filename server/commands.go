package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/quartz"

	"preflop-coach/server/coach"
	"preflop-coach/server/console"
	"preflop-coach/server/ingest"
	"preflop-coach/server/llm"
	"preflop-coach/server/question"
	"preflop-coach/server/quiz"
	"preflop-coach/server/session"
	"preflop-coach/server/solve"
)

/* ----- import / migrate ----- */

type ImportCmd struct {
	Tree    string `kong:"help='Solver tree root (default from config)'"`
	Fresh   bool   `kong:"help='Drop existing tables before importing'"`
	Workers int    `kong:"help='Concurrent file parsers (default GOMAXPROCS)'"`
}

func (c *ImportCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	tree := c.Tree
	if tree == "" {
		tree = cfg.TreeDir
	}
	s := openStore(ctx, cfg, logger, false)
	defer s.Close()

	im := &ingest.Importer{Store: s, Logger: logger, Workers: c.Workers, Fresh: c.Fresh}
	stats, err := im.Run(ctx, tree)
	if err != nil {
		return err
	}
	fmt.Printf("Done. %d nodes, %d ranges, %d skipped folders, %d duplicate nodes, %d bad rows.\n",
		stats.Nodes, stats.Ranges, stats.Skipped, stats.Duplicates, stats.BadRows)
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	s := openStore(ctx, cfg, logger, false)
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("migrated", "driver", cfg.Database.Driver)
	return nil
}

/* ----- ask / lookup / browse ----- */

type AskCmd struct {
	NoLLM    bool     `kong:"name='no-llm',help='Rule-based parsing only, no polishing'"`
	Question []string `kong:"arg,optional,help='Ask once and exit'"`
}

func (c *AskCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	s := openStore(ctx, cfg, logger, true)
	defer s.Close()

	client := llm.Disabled()
	if !c.NoLLM {
		if client, err = newLLM(cfg); err != nil {
			return err
		}
		logger.Debug("llm ready", "model", llm.ModelName(client))
	}
	assistant := question.NewAssistant(s, client, logger, assistantOptions(cfg))

	if len(c.Question) > 0 {
		ans, err := assistant.Answer(ctx, strings.Join(c.Question, " "))
		if err != nil {
			return err
		}
		fmt.Println(ans.Text)
		return nil
	}

	transcript, err := console.OpenTranscript(cfg.Transcript)
	if err != nil {
		return err
	}
	defer transcript.Close()
	return console.NewREPL(assistant, transcript, logger, os.Stdout).Run(ctx)
}

type LookupCmd struct {
	Position string `kong:"required,short='p',help='Hero position (UTG, CO, button...)'"`
	Actions  string `kong:"short='a',help='Prior actions: words or an encoded sequence (PF:F-R)'"`
	Hand     string `kong:"required,short='H',help='Hand code or combo (AKs, QQ, 6d5s)'"`
}

func (c *LookupCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	s := openStore(ctx, cfg, logger, true)
	defer s.Close()

	q, err := question.BuildQuery(ctx, s, c.Position, c.Actions, c.Hand)
	if err != nil {
		return err
	}
	return console.NewBrowser(s, os.Stdout).Lookup(ctx, q)
}

type BrowseCmd struct {
	Positions BrowsePositionsCmd `kong:"cmd,help='List positions with node counts'"`
	Nodes     BrowseNodesCmd     `kong:"cmd,help='List nodes for a position'"`
	Node      BrowseNodeCmd      `kong:"cmd,help='Show action totals and top combos for a node'"`
}

type BrowsePositionsCmd struct{}

func (c *BrowsePositionsCmd) Run(ctx context.Context, g *Globals) error {
	return withBrowser(ctx, g, func(b *console.Browser) error {
		return b.Positions(ctx)
	})
}

type BrowseNodesCmd struct {
	Position string `kong:"arg,help='Position'"`
}

func (c *BrowseNodesCmd) Run(ctx context.Context, g *Globals) error {
	return withBrowser(ctx, g, func(b *console.Browser) error {
		return b.Nodes(ctx, c.Position)
	})
}

type BrowseNodeCmd struct {
	ID     int64  `kong:"arg,help='Node id'"`
	Action string `kong:"help='Only this action (f, c, r...)'"`
	Limit  int    `kong:"default='20',help='Combos per action; 0 lists all'"`
}

func (c *BrowseNodeCmd) Run(ctx context.Context, g *Globals) error {
	return withBrowser(ctx, g, func(b *console.Browser) error {
		return b.Node(ctx, c.ID, c.Action, c.Limit)
	})
}

func withBrowser(ctx context.Context, g *Globals, fn func(*console.Browser) error) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	s := openStore(ctx, cfg, logger, true)
	defer s.Close()
	return fn(console.NewBrowser(s, os.Stdout))
}

/* ----- serve ----- */

type ServeCmd struct {
	Addr string `kong:"help='Listen address (default from config)'"`
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	s := openStore(ctx, cfg, logger, true)
	defer s.Close()

	client, err := newLLM(cfg)
	if err != nil {
		return err
	}
	bank, err := quiz.LoadBank()
	if err != nil {
		return err
	}
	sessions := session.New(quartz.NewReal(), session.Options{
		TTL:         cfg.Sessions.TTL,
		MaxSessions: cfg.Sessions.MaxSessions,
		MaxMessages: cfg.Sessions.MaxMessages,
	})
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	sessions.Janitor(janitorCtx, time.Minute)

	app := &App{
		Store:          s,
		Assistant:      question.NewAssistant(s, client, logger, assistantOptions(cfg)),
		Coach:          coach.New(client, sessions),
		Quiz:           quiz.New(bank, client, logger, nil),
		Solver:         solve.New(s, quartz.NewReal(), solve.Options{}),
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	addr := c.Addr
	if addr == "" {
		addr = cfg.ListenAddress()
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      Router(app),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.LLM.Timeout + 15*time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "db", cfg.Database.Driver, "model", llm.ModelName(client))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
