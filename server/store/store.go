package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"preflop-coach/server/engine"
)

var (
	// ErrNoNode means no node matched a position + action sequence.
	ErrNoNode = errors.New("no matching node")
	// ErrDatabaseMissing is returned when a read-only open finds no database file.
	ErrDatabaseMissing = errors.New("database not found")
)

type Node struct {
	ID             int64  `json:"id"`
	ActionSequence string `json:"action_sequence"`
	Position       string `json:"position"`
	FolderName     string `json:"folder_name"`
	FilePath       string `json:"file_path"`
}

type RangeRow struct {
	NodeID    int64   `json:"node_id"`
	Action    string  `json:"action"`
	Combo     string  `json:"combo"`
	Frequency float64 `json:"frequency"`
}

type PositionCount struct {
	Position string `json:"position"`
	Nodes    int    `json:"nodes"`
}

type ActionTotal struct {
	Action string  `json:"action"`
	Total  float64 `json:"total"`
}

// NodeFinder is the minimum a backend needs for FindNode.
type NodeFinder interface {
	// ExactNode returns the lowest node id with exactly this position and sequence.
	ExactNode(ctx context.Context, position, seq string) (int64, bool, error)
	// FirstNodeLike returns the lowest node id whose sequence matches a LIKE pattern.
	FirstNodeLike(ctx context.Context, position, pattern string) (int64, bool, error)
}

// Reader covers every query-time operation.
type Reader interface {
	NodeFinder
	CanonicalPosition(ctx context.Context, raw string) (string, bool, error)
	RangeRows(ctx context.Context, nodeID int64, combos []string) ([]RangeRow, error)
	Positions(ctx context.Context) ([]PositionCount, error)
	NodesForPosition(ctx context.Context, position string) ([]Node, error)
	ActionTotals(ctx context.Context, nodeID int64) ([]ActionTotal, error)
	TopCombos(ctx context.Context, nodeID int64, action string, limit int) ([]RangeRow, error)
	Ping(ctx context.Context) error
}

// ImportTx is the write side, valid inside one Import call.
type ImportTx interface {
	InsertAliases(ctx context.Context, aliases []engine.PositionAlias) error
	InsertNode(ctx context.Context, n Node) (int64, error)
	InsertRanges(ctx context.Context, nodeID int64, rows []RangeRow) error
}

type Store interface {
	Reader
	Migrate(ctx context.Context) error
	// Reset drops and recreates every table.
	Reset(ctx context.Context) error
	// Import runs fn inside a single transaction.
	Import(ctx context.Context, fn func(tx ImportTx) error) error
	Close() error
}

type Options struct {
	Driver string // "sqlite" (default) or "postgres"
	Path   string // sqlite file
	DSN    string // postgres connection string
	// ReadOnly refuses to create a missing sqlite file.
	ReadOnly bool
}

// Open picks the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "sqlite", "sqlite3":
		s, err := OpenSQLite(ctx, opts.Path, opts.ReadOnly)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql", "pg":
		db, err := OpenPostgres(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}

// FindNode resolves a node id: exact match first, then, when seq contains a
// raise of unspecified size, the lowest id whose sequence matches with the
// size wildcarded (R -> R%). Whole raise sizes match either spelling, so
// "PF:R3" finds a node stored as "PF:R3.0".
func FindNode(ctx context.Context, f NodeFinder, position, seq string) (int64, error) {
	variants := engine.SequenceVariants(seq)
	for _, v := range variants {
		id, ok, err := f.ExactNode(ctx, position, v)
		if err != nil {
			return 0, fmt.Errorf("exact node lookup: %w", err)
		}
		if ok {
			return id, nil
		}
	}
	if !engine.HasGenericRaise(seq) {
		return 0, ErrNoNode
	}
	for _, v := range variants {
		id, ok, err := f.FirstNodeLike(ctx, position, engine.RaiseWildcard(v))
		if err != nil {
			return 0, fmt.Errorf("fuzzy node lookup: %w", err)
		}
		if ok {
			return id, nil
		}
	}
	return 0, ErrNoNode
}

// aliasKey is the normalisation applied on both sides of an alias lookup.
func aliasKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "_", "")
}

func uniqueCombos(combos []string) []string {
	if len(combos) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(combos))
	out := make([]string, 0, len(combos))
	for _, c := range combos {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
