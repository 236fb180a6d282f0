package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflop-coach/server/store"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "deep", "ff_co", "r.json"), `{"f": {"AcKc": 1}}`)
	writeFile(t, filepath.Join(root, "ffr25_btn", "r.json"),
		`{"r": {"AcKc": 1, "AdKd": "0.5"}, "f": {"AdKd": 0.5, "7c2d": 1.5}}`)
	writeFile(t, filepath.Join(root, "nounderscore", "r.json"), `{}`)
	writeFile(t, filepath.Join(root, "broken_sb", "r.json"), `{`)
	writeFile(t, filepath.Join(root, "other", "ff_co", "r.json"), `{"c": {"QcQd": 0.25}}`)
	writeFile(t, filepath.Join(root, "two_hj", "a.json"), `{}`)
	writeFile(t, filepath.Join(root, "two_hj", "b.json"), `{}`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty_bb"), 0o755))
	return root
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{Path: filepath.Join(t.TempDir(), "ranges.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestImportTree(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	im := &Importer{Store: s, Logger: quietLogger(), Workers: 2}

	stats, err := im.Run(ctx, buildTree(t))
	require.NoError(t, err)
	assert.Equal(t, Stats{Nodes: 3, Ranges: 5, Skipped: 2, Duplicates: 1, BadRows: 1}, stats)

	// ids follow walk order, so the duplicate resolves to deep/ff_co.
	nodes, err := s.NodesForPosition(ctx, "CO")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	id, err := store.FindNode(ctx, s, "CO", "PF:F-F")
	require.NoError(t, err)
	assert.Equal(t, nodes[0].ID, id)
	assert.Contains(t, nodes[0].FilePath, filepath.Join("deep", "ff_co"))

	id, err = store.FindNode(ctx, s, "BTN", "PF:F-F-R2.5")
	require.NoError(t, err)
	rows, err := s.RangeRows(ctx, id, []string{"AdKd", "7c2d"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "AdKd", r.Combo)
		assert.InDelta(t, 0.5, r.Frequency, 1e-9)
	}

	canon, ok, err := s.CanonicalPosition(ctx, "low jack")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "UTG", canon)
}

func TestImportFreshReplacesData(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	root := buildTree(t)

	im := &Importer{Store: s, Logger: quietLogger()}
	_, err := im.Run(ctx, root)
	require.NoError(t, err)
	_, err = im.Run(ctx, root)
	require.NoError(t, err)
	nodes, err := s.NodesForPosition(ctx, "BTN")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	im.Fresh = true
	_, err = im.Run(ctx, root)
	require.NoError(t, err)
	nodes, err = s.NodesForPosition(ctx, "BTN")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestImportKeepsUnknownSeats(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "f_mp", "r.json"), `{"f": {"AcKc": 1}}`)
	writeFile(t, filepath.Join(root, "f_cutoff", "r.json"), `{"f": {"AcKc": 1}}`)

	var buf bytes.Buffer
	im := &Importer{Store: s, Logger: log.New(&buf)}
	stats, err := im.Run(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Nodes)

	assert.Contains(t, buf.String(), "not a 6-max seat")
	assert.Contains(t, buf.String(), "position=MP")
	assert.NotContains(t, buf.String(), "position=CO")

	nodes, err := s.NodesForPosition(ctx, "MP")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestImportMissingRoot(t *testing.T) {
	im := &Importer{Store: newStore(t), Logger: quietLogger()}
	_, err := im.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFrequencyAcceptsStrings(t *testing.T) {
	var rf RangeFile
	require.NoError(t, json.Unmarshal([]byte(`{"r": {"AsKs": "0.75", "AhKh": 0.5}}`), &rf))
	assert.InDelta(t, 0.75, float64(rf["r"]["AsKs"]), 1e-9)
	assert.InDelta(t, 0.5, float64(rf["r"]["AhKh"]), 1e-9)

	assert.Error(t, json.Unmarshal([]byte(`{"r": {"AsKs": "lots"}}`), &rf))
}
