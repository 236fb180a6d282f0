package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"preflop-coach/server/engine"
)

//go:embed schema_postgres.sql
var postgresSchema string

// Postgres serves the same tables from a shared server.
type Postgres struct{ *pgxpool.Pool }

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is empty")
	}
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Postgres{p}, nil
}

func (db *Postgres) Close() error                   { db.Pool.Close(); return nil }
func (db *Postgres) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func (db *Postgres) Migrate(ctx context.Context) error {
	_, err := db.Exec(ctx, postgresSchema)
	return err
}

func (db *Postgres) Reset(ctx context.Context) error {
	if _, err := db.Exec(ctx, `DROP TABLE IF EXISTS ranges, nodes, position_alias CASCADE`); err != nil {
		return err
	}
	return db.Migrate(ctx)
}

func (db *Postgres) Import(ctx context.Context, fn func(tx ImportTx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // safe if already committed

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) InsertAliases(ctx context.Context, aliases []engine.PositionAlias) error {
	batch := &pgx.Batch{}
	for _, a := range aliases {
		batch.Queue(`
			INSERT INTO position_alias(alias, canonical, ordinal)
			VALUES ($1, $2, $3)
			ON CONFLICT (alias) DO UPDATE
			  SET canonical = EXCLUDED.canonical,
			      ordinal = EXCLUDED.ordinal
		`, a.Alias, string(a.Canonical), a.Ordinal)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *pgTx) InsertNode(ctx context.Context, n Node) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO nodes(action_sequence, position, folder_name, file_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, n.ActionSequence, n.Position, n.FolderName, n.FilePath).Scan(&id)
	return id, err
}

func (t *pgTx) InsertRanges(ctx context.Context, nodeID int64, rows []RangeRow) error {
	if len(rows) == 0 {
		return nil
	}
	src := make([][]any, len(rows))
	for i, r := range rows {
		src[i] = []any{nodeID, r.Action, r.Combo, r.Frequency}
	}
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"ranges"},
		[]string{"node_id", "action", "combo", "frequency"},
		pgx.CopyFromRows(src),
	)
	return err
}

/* -----------------------------
   Queries
------------------------------*/

func (db *Postgres) ExactNode(ctx context.Context, position, seq string) (int64, bool, error) {
	return db.firstID(ctx, `
		SELECT id FROM nodes
		 WHERE position = $1 AND action_sequence = $2
		 ORDER BY id LIMIT 1
	`, position, seq)
}

func (db *Postgres) FirstNodeLike(ctx context.Context, position, pattern string) (int64, bool, error) {
	return db.firstID(ctx, `
		SELECT id FROM nodes
		 WHERE position = $1 AND action_sequence LIKE $2
		 ORDER BY id LIMIT 1
	`, position, pattern)
}

func (db *Postgres) firstID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var id int64
	err := db.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (db *Postgres) CanonicalPosition(ctx context.Context, raw string) (string, bool, error) {
	var canon string
	err := db.QueryRow(ctx, `
		SELECT canonical FROM position_alias
		 WHERE REPLACE(REPLACE(UPPER(alias), ' ', ''), '_', '') = $1
		 LIMIT 1
	`, aliasKey(raw)).Scan(&canon)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return canon, true, nil
}

func (db *Postgres) RangeRows(ctx context.Context, nodeID int64, combos []string) ([]RangeRow, error) {
	combos = uniqueCombos(combos)
	if len(combos) == 0 {
		return nil, nil
	}
	rows, err := db.Query(ctx, `
		SELECT node_id, action, combo, frequency
		  FROM ranges
		 WHERE node_id = $1 AND combo = ANY($2)
		 ORDER BY id
	`, nodeID, combos)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[RangeRow])
}

func (db *Postgres) Positions(ctx context.Context) ([]PositionCount, error) {
	rows, err := db.Query(ctx, `
		SELECT position, COUNT(*)::int AS n
		  FROM nodes
		 GROUP BY position
		 ORDER BY n DESC, position
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[PositionCount])
}

func (db *Postgres) NodesForPosition(ctx context.Context, position string) ([]Node, error) {
	rows, err := db.Query(ctx, `
		SELECT id, action_sequence, position, folder_name, file_path
		  FROM nodes
		 WHERE position = $1
		 ORDER BY action_sequence, id
	`, position)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Node])
}

func (db *Postgres) ActionTotals(ctx context.Context, nodeID int64) ([]ActionTotal, error) {
	rows, err := db.Query(ctx, `
		SELECT action, SUM(frequency) AS total
		  FROM ranges
		 WHERE node_id = $1
		 GROUP BY action
		 ORDER BY total DESC, action
	`, nodeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ActionTotal])
}

func (db *Postgres) TopCombos(ctx context.Context, nodeID int64, action string, limit int) ([]RangeRow, error) {
	query := `
		SELECT node_id, action, combo, frequency
		  FROM ranges
		 WHERE node_id = $1 AND action = $2
		 ORDER BY frequency DESC, combo`
	args := []any{nodeID, action}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top combos: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[RangeRow])
}
