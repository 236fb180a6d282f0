package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflop-coach/server/engine"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "ranges.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

type seedNode struct {
	seq, pos string
	rows     []RangeRow
}

func seed(t *testing.T, s Store, nodes ...seedNode) []int64 {
	t.Helper()
	var ids []int64
	err := s.Import(context.Background(), func(tx ImportTx) error {
		if err := tx.InsertAliases(context.Background(), engine.PositionAliases()); err != nil {
			return err
		}
		for _, n := range nodes {
			id, err := tx.InsertNode(context.Background(), Node{
				ActionSequence: n.seq, Position: n.pos,
				FolderName: n.seq, FilePath: n.seq + ".json",
			})
			if err != nil {
				return err
			}
			if err := tx.InsertRanges(context.Background(), id, n.rows); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	require.NoError(t, err)
	return ids
}

func TestFindNodeExact(t *testing.T) {
	s := newTestSQLite(t)
	ids := seed(t, s,
		seedNode{seq: "PF:F-F", pos: "CO"},
		seedNode{seq: "PF:F-F", pos: "BTN"},
	)

	id, err := FindNode(context.Background(), s, "BTN", "PF:F-F")
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)

	_, err = FindNode(context.Background(), s, "SB", "PF:F-F")
	assert.ErrorIs(t, err, ErrNoNode)
}

func TestFindNodeGenericRaiseFallsBackToLowestID(t *testing.T) {
	s := newTestSQLite(t)
	ids := seed(t, s,
		seedNode{seq: "PF:F-R3", pos: "BTN"},
		seedNode{seq: "PF:F-R2.5", pos: "BTN"},
		seedNode{seq: "PF:F-R2.5", pos: "CO"},
	)

	id, err := FindNode(context.Background(), s, "BTN", "PF:F-R")
	require.NoError(t, err)
	assert.Equal(t, ids[0], id)

	id, err = FindNode(context.Background(), s, "CO", "PF:F-R")
	require.NoError(t, err)
	assert.Equal(t, ids[2], id)

	// A sized raise never falls back.
	_, err = FindNode(context.Background(), s, "BTN", "PF:F-R4")
	assert.ErrorIs(t, err, ErrNoNode)
}

func TestFindNodePrefersExactGenericRaise(t *testing.T) {
	s := newTestSQLite(t)
	ids := seed(t, s,
		seedNode{seq: "PF:R2.5", pos: "SB"},
		seedNode{seq: "PF:R", pos: "SB"},
	)
	id, err := FindNode(context.Background(), s, "SB", "PF:R")
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)
}

func TestFindNodeWholeRaiseSpellings(t *testing.T) {
	s := newTestSQLite(t)
	ids := seed(t, s,
		seedNode{seq: "PF:F-R3.0", pos: "CO"},
		seedNode{seq: "PF:R2", pos: "BTN"},
		seedNode{seq: "PF:R2.0-R", pos: "SB"},
	)
	ctx := context.Background()

	id, err := FindNode(ctx, s, "CO", "PF:F-R3")
	require.NoError(t, err)
	assert.Equal(t, ids[0], id)

	id, err = FindNode(ctx, s, "BTN", "PF:R2.0")
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)

	id, err = FindNode(ctx, s, "SB", "PF:R2-R")
	require.NoError(t, err)
	assert.Equal(t, ids[2], id)

	_, err = FindNode(ctx, s, "CO", "PF:F-R3.5")
	assert.ErrorIs(t, err, ErrNoNode)
}

func TestDuplicateNodesResolveToLowestID(t *testing.T) {
	s := newTestSQLite(t)
	ids := seed(t, s,
		seedNode{seq: "PF:C", pos: "HJ"},
		seedNode{seq: "PF:C", pos: "HJ"},
	)
	id, err := FindNode(context.Background(), s, "HJ", "PF:C")
	require.NoError(t, err)
	assert.Equal(t, ids[0], id)
}

func TestRangeRowsFiltersCombos(t *testing.T) {
	s := newTestSQLite(t)
	ids := seed(t, s, seedNode{seq: "PF:", pos: "UTG", rows: []RangeRow{
		{Action: "r", Combo: "AcKc", Frequency: 1},
		{Action: "f", Combo: "AcKc", Frequency: 0},
		{Action: "r", Combo: "7c2d", Frequency: 0},
		{Action: "f", Combo: "7c2d", Frequency: 1},
	}})

	rows, err := s.RangeRows(context.Background(), ids[0], []string{"AcKc", "AcKc", "AdKd"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "AcKc", r.Combo)
		assert.Equal(t, ids[0], r.NodeID)
	}

	rows, err = s.RangeRows(context.Background(), ids[0], nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCanonicalPosition(t *testing.T) {
	s := newTestSQLite(t)
	seed(t, s)

	for raw, want := range map[string]string{"low jack": "UTG", "Small_Blind": "SB", "btn": "BTN"} {
		got, ok, err := s.CanonicalPosition(context.Background(), raw)
		require.NoError(t, err)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got)
	}
	_, ok, err := s.CanonicalPosition(context.Background(), "MP")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBrowseQueries(t *testing.T) {
	s := newTestSQLite(t)
	ids := seed(t, s,
		seedNode{seq: "PF:F", pos: "BTN", rows: []RangeRow{
			{Action: "r", Combo: "AcKc", Frequency: 1},
			{Action: "r", Combo: "QcQd", Frequency: 0.5},
			{Action: "f", Combo: "QcQd", Frequency: 0.5},
		}},
		seedNode{seq: "PF:", pos: "BTN"},
		seedNode{seq: "PF:", pos: "UTG"},
	)
	ctx := context.Background()

	positions, err := s.Positions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []PositionCount{{"BTN", 2}, {"UTG", 1}}, positions)

	nodes, err := s.NodesForPosition(ctx, "BTN")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "PF:", nodes[0].ActionSequence)

	totals, err := s.ActionTotals(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "r", totals[0].Action)
	assert.InDelta(t, 1.5, totals[0].Total, 1e-9)

	top, err := s.TopCombos(ctx, ids[0], "r", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "AcKc", top[0].Combo)

	all, err := s.TopCombos(ctx, ids[0], "r", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestResetClearsTables(t *testing.T) {
	s := newTestSQLite(t)
	seed(t, s, seedNode{seq: "PF:", pos: "UTG"})
	require.NoError(t, s.Reset(context.Background()))
	positions, err := s.Positions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	_, err := Open(context.Background(), Options{Path: filepath.Join(t.TempDir(), "nope.db"), ReadOnly: true})
	assert.ErrorIs(t, err, ErrDatabaseMissing)

	_, err = Open(context.Background(), Options{Driver: "oracle"})
	assert.Error(t, err)
}
