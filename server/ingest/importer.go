package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"preflop-coach/server/engine"
	"preflop-coach/server/store"
)

// Frequency accepts both 0.25 and "0.25" in the solver files.
type Frequency float64

func (f *Frequency) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("frequency %q: %w", s, err)
		}
		*f = Frequency(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("frequency %s: %w", b, err)
	}
	*f = Frequency(v)
	return nil
}

// RangeFile is the on-disk shape: action -> combo -> frequency.
type RangeFile map[string]map[string]Frequency

type Stats struct {
	Nodes      int `json:"nodes"`
	Ranges     int `json:"ranges"`
	Skipped    int `json:"skipped"`    // folders that could not be decoded or parsed
	Duplicates int `json:"duplicates"` // (position, sequence) pairs seen more than once
	BadRows    int `json:"bad_rows"`   // frequencies outside [0,1]
}

type Importer struct {
	Store  store.Store
	Logger *log.Logger
	// Workers bounds concurrent file parsing; <= 0 means GOMAXPROCS.
	Workers int
	// Fresh drops existing tables before importing.
	Fresh bool
}

type leaf struct {
	dir, folder, file string
	seq, pos          string
}

type parsed struct {
	rows []store.RangeRow
	bad  int
	err  error
}

/* ----- walk ----- */

// findLeaves returns every directory holding exactly one .json file, in
// lexical walk order.
func findLeaves(root string) ([]leaf, error) {
	var out []leaf
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		var jsonFiles []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				jsonFiles = append(jsonFiles, e.Name())
			}
		}
		if len(jsonFiles) != 1 {
			return nil
		}
		out = append(out, leaf{dir: path, folder: filepath.Base(path), file: filepath.Join(path, jsonFiles[0])})
		return nil
	})
	return out, err
}

func parseFile(path string) parsed {
	raw, err := os.ReadFile(path)
	if err != nil {
		return parsed{err: err}
	}
	var rf RangeFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return parsed{err: fmt.Errorf("decode %s: %w", filepath.Base(path), err)}
	}
	var p parsed
	for action, combos := range rf {
		for combo, freq := range combos {
			f := float64(freq)
			if f < 0 || f > 1 {
				p.bad++
				continue
			}
			p.rows = append(p.rows, store.RangeRow{Action: action, Combo: combo, Frequency: f})
		}
	}
	sort.Slice(p.rows, func(i, j int) bool {
		if p.rows[i].Action != p.rows[j].Action {
			return p.rows[i].Action < p.rows[j].Action
		}
		return p.rows[i].Combo < p.rows[j].Combo
	})
	return p
}

/* ----- run ----- */

// Run imports the tree under root. Files are parsed concurrently; all rows
// are written in one transaction in walk order, so node ids follow the
// directory order.
func (im *Importer) Run(ctx context.Context, root string) (Stats, error) {
	var stats Stats
	lg := im.Logger
	if lg == nil {
		lg = log.Default()
	}
	if st, err := os.Stat(root); err != nil {
		return stats, fmt.Errorf("tree root: %w", err)
	} else if !st.IsDir() {
		return stats, fmt.Errorf("tree root %s is not a directory", root)
	}

	if im.Fresh {
		if err := im.Store.Reset(ctx); err != nil {
			return stats, fmt.Errorf("reset: %w", err)
		}
	} else if err := im.Store.Migrate(ctx); err != nil {
		return stats, fmt.Errorf("migrate: %w", err)
	}

	all, err := findLeaves(root)
	if err != nil {
		return stats, fmt.Errorf("walk %s: %w", root, err)
	}
	leaves := all[:0]
	for _, l := range all {
		seq, raw, err := engine.DecodeFolderName(l.folder)
		if err != nil {
			lg.Warn("skip folder", "folder", l.folder, "err", err)
			stats.Skipped++
			continue
		}
		l.seq, l.pos = seq, engine.NormalizePosition(raw)
		if !engine.Seat(l.pos).Valid() {
			lg.Warn("position is not a 6-max seat, importing as-is", "folder", l.folder, "position", l.pos)
		}
		leaves = append(leaves, l)
	}

	results := make([]parsed, len(leaves))
	g, gctx := errgroup.WithContext(ctx)
	workers := im.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for i := range leaves {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = parseFile(leaves[i].file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	seen := map[string]string{}
	err = im.Store.Import(ctx, func(tx store.ImportTx) error {
		if err := tx.InsertAliases(ctx, engine.PositionAliases()); err != nil {
			return fmt.Errorf("aliases: %w", err)
		}
		for i, l := range leaves {
			p := results[i]
			if p.err != nil {
				lg.Warn("skip file", "file", l.file, "err", p.err)
				stats.Skipped++
				continue
			}
			if p.bad > 0 {
				lg.Warn("frequencies outside [0,1] dropped", "file", l.file, "rows", p.bad)
				stats.BadRows += p.bad
			}
			key := l.pos + " " + l.seq
			if first, dup := seen[key]; dup {
				lg.Warn("duplicate node", "position", l.pos, "sequence", l.seq, "first", first, "again", l.dir)
				stats.Duplicates++
			} else {
				seen[key] = l.dir
			}
			id, err := tx.InsertNode(ctx, store.Node{
				ActionSequence: l.seq,
				Position:       l.pos,
				FolderName:     l.folder,
				FilePath:       l.file,
			})
			if err != nil {
				return fmt.Errorf("node %s: %w", l.folder, err)
			}
			if err := tx.InsertRanges(ctx, id, p.rows); err != nil {
				return fmt.Errorf("ranges %s: %w", l.folder, err)
			}
			stats.Nodes++
			stats.Ranges += len(p.rows)
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	lg.Info("import complete", "nodes", stats.Nodes, "ranges", stats.Ranges,
		"skipped", stats.Skipped, "duplicates", stats.Duplicates)
	return stats, nil
}
