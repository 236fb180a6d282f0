package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to PREFLOP_TEST_POSTGRES_DSN and resets its
// tables. Point it at a scratch database.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("PREFLOP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PREFLOP_TEST_POSTGRES_DSN not set, skipping postgres test")
	}
	ctx := context.Background()
	db, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping(ctx))
	require.NoError(t, db.Reset(ctx))
	return db
}

func TestPostgresFindNode(t *testing.T) {
	db := newTestPostgres(t)
	ids := seed(t, db,
		seedNode{seq: "PF:F-R3", pos: "BTN"},
		seedNode{seq: "PF:F-R2.5", pos: "BTN"},
		seedNode{seq: "PF:F-R3.0", pos: "CO"},
	)
	ctx := context.Background()

	id, err := FindNode(ctx, db, "BTN", "PF:F-R2.5")
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)

	id, err = FindNode(ctx, db, "BTN", "PF:F-R")
	require.NoError(t, err)
	assert.Equal(t, ids[0], id)

	id, err = FindNode(ctx, db, "CO", "PF:F-R3")
	require.NoError(t, err)
	assert.Equal(t, ids[2], id)

	_, err = FindNode(ctx, db, "SB", "PF:F-R")
	assert.ErrorIs(t, err, ErrNoNode)
}

func TestPostgresRangeRows(t *testing.T) {
	db := newTestPostgres(t)
	ids := seed(t, db, seedNode{seq: "PF:", pos: "UTG", rows: []RangeRow{
		{Action: "r", Combo: "AcKc", Frequency: 1},
		{Action: "f", Combo: "AcKc", Frequency: 0},
		{Action: "r", Combo: "AdKd", Frequency: 0.5},
		{Action: "f", Combo: "7c2d", Frequency: 1},
	}})
	ctx := context.Background()

	rows, err := db.RangeRows(ctx, ids[0], []string{"AcKc", "AdKd", "AcKc", "AhKh"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Contains(t, []string{"AcKc", "AdKd"}, r.Combo)
		assert.Equal(t, ids[0], r.NodeID)
	}

	rows, err = db.RangeRows(ctx, ids[0], nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	got, ok, err := db.CanonicalPosition(ctx, "small blind")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SB", got)
}
