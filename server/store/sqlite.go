package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"preflop-coach/server/engine"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLite is the file-backed range database.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (and, unless readOnly, creates) the database at path.
func OpenSQLite(ctx context.Context, path string, readOnly bool) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if readOnly {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, path)
			}
			return nil, err
		}
	} else if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	dsn := "file:" + filepath.ToSlash(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if readOnly {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One blocking connection per process.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Close() error                   { return s.db.Close() }
func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}

func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		DROP TABLE IF EXISTS ranges;
		DROP TABLE IF EXISTS nodes;
		DROP TABLE IF EXISTS position_alias;
	`); err != nil {
		return err
	}
	return s.Migrate(ctx)
}

func (s *SQLite) Import(ctx context.Context, fn func(tx ImportTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // safe if already committed

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type sqliteTx struct{ tx *sql.Tx }

func (t *sqliteTx) InsertAliases(ctx context.Context, aliases []engine.PositionAlias) error {
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO position_alias(alias, canonical, ordinal)
		VALUES (?, ?, ?)
		ON CONFLICT(alias) DO UPDATE SET canonical = excluded.canonical, ordinal = excluded.ordinal
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range aliases {
		if _, err := stmt.ExecContext(ctx, a.Alias, string(a.Canonical), a.Ordinal); err != nil {
			return fmt.Errorf("insert alias %s: %w", a.Alias, err)
		}
	}
	return nil
}

func (t *sqliteTx) InsertNode(ctx context.Context, n Node) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO nodes(action_sequence, position, folder_name, file_path)
		VALUES (?, ?, ?, ?)
	`, n.ActionSequence, n.Position, n.FolderName, n.FilePath)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *sqliteTx) InsertRanges(ctx context.Context, nodeID int64, rows []RangeRow) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT INTO ranges(node_id, action, combo, frequency)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, nodeID, r.Action, r.Combo, r.Frequency); err != nil {
			return fmt.Errorf("insert range %s/%s: %w", r.Action, r.Combo, err)
		}
	}
	return nil
}

/* -----------------------------
   Queries
------------------------------*/

func (s *SQLite) ExactNode(ctx context.Context, position, seq string) (int64, bool, error) {
	return s.firstID(ctx, `
		SELECT id FROM nodes
		 WHERE position = ? AND action_sequence = ?
		 ORDER BY id LIMIT 1
	`, position, seq)
}

func (s *SQLite) FirstNodeLike(ctx context.Context, position, pattern string) (int64, bool, error) {
	return s.firstID(ctx, `
		SELECT id FROM nodes
		 WHERE position = ? AND action_sequence LIKE ?
		 ORDER BY id LIMIT 1
	`, position, pattern)
}

func (s *SQLite) firstID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *SQLite) CanonicalPosition(ctx context.Context, raw string) (string, bool, error) {
	var canon string
	err := s.db.QueryRowContext(ctx, `
		SELECT canonical FROM position_alias
		 WHERE REPLACE(REPLACE(UPPER(alias), ' ', ''), '_', '') = ?
		 LIMIT 1
	`, aliasKey(raw)).Scan(&canon)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return canon, true, nil
}

func (s *SQLite) RangeRows(ctx context.Context, nodeID int64, combos []string) ([]RangeRow, error) {
	combos = uniqueCombos(combos)
	if len(combos) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(combos)+1)
	args = append(args, nodeID)
	for _, c := range combos {
		args = append(args, c)
	}
	query := `
		SELECT node_id, action, combo, frequency
		  FROM ranges
		 WHERE node_id = ? AND combo IN (` + strings.TrimSuffix(strings.Repeat("?,", len(combos)), ",") + `)
		 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRangeRows(rows)
}

func (s *SQLite) Positions(ctx context.Context) ([]PositionCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, COUNT(*) AS n
		  FROM nodes
		 GROUP BY position
		 ORDER BY n DESC, position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PositionCount
	for rows.Next() {
		var pc PositionCount
		if err := rows.Scan(&pc.Position, &pc.Nodes); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (s *SQLite) NodesForPosition(ctx context.Context, position string) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_sequence, position, folder_name, file_path
		  FROM nodes
		 WHERE position = ?
		 ORDER BY action_sequence, id
	`, position)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.ActionSequence, &n.Position, &n.FolderName, &n.FilePath); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) ActionTotals(ctx context.Context, nodeID int64) ([]ActionTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action, SUM(frequency) AS total
		  FROM ranges
		 WHERE node_id = ?
		 GROUP BY action
		 ORDER BY total DESC, action
	`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActionTotal
	for rows.Next() {
		var at ActionTotal
		if err := rows.Scan(&at.Action, &at.Total); err != nil {
			return nil, err
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

// TopCombos lists combos for one action by descending frequency; limit <= 0 means all.
func (s *SQLite) TopCombos(ctx context.Context, nodeID int64, action string, limit int) ([]RangeRow, error) {
	query := `
		SELECT node_id, action, combo, frequency
		  FROM ranges
		 WHERE node_id = ? AND action = ?
		 ORDER BY frequency DESC, combo`
	args := []any{nodeID, action}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRangeRows(rows)
}

func scanRangeRows(rows *sql.Rows) ([]RangeRow, error) {
	var out []RangeRow
	for rows.Next() {
		var r RangeRow
		if err := rows.Scan(&r.NodeID, &r.Action, &r.Combo, &r.Frequency); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
