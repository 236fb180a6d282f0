package ranges

import (
	"context"
	"errors"
	"fmt"

	"preflop-coach/server/engine"
	"preflop-coach/server/store"
)

// Query is what a caller must supply for a range lookup.
type Query struct {
	Position string // canonical seat
	Sequence string // encoded action sequence, "PF:F-R"
	Hand     string // hand code, "AKs", "QQ", "6d5s"
}

type Result struct {
	NodeID  int64    `json:"node_id"`
	Combos  []string `json:"combos"`
	Summary Summary  `json:"summary"`
}

// Lookup resolves the node, expands the hand and summarises the matching rows.
// A missing node comes back as store.ErrNoNode; an unknown hand or a node
// without those combos comes back as a Result whose Summary has no data.
func Lookup(ctx context.Context, r store.Reader, q Query) (Result, error) {
	nodeID, err := store.FindNode(ctx, r, q.Position, q.Sequence)
	if err != nil {
		return Result{}, err
	}
	res := Result{NodeID: nodeID, Combos: engine.CombosForHand(q.Hand)}
	if len(res.Combos) == 0 {
		return res, nil
	}
	rows, err := r.RangeRows(ctx, nodeID, res.Combos)
	if err != nil {
		return Result{}, fmt.Errorf("range rows for node %d: %w", nodeID, err)
	}
	res.Summary = Summarise(rows)
	return res, nil
}

// NoNodeText is the explicit no-data answer for a missing node.
func NoNodeText(position, seq string) string {
	return fmt.Sprintf("No node found for %s after sequence %s.", position, seq)
}

// Describe renders a lookup outcome as text, mapping the no-data cases to
// their fixed messages. Only unexpected errors are returned.
func Describe(res Result, err error, q Query) (string, error) {
	if errors.Is(err, store.ErrNoNode) {
		return NoNodeText(q.Position, q.Sequence), nil
	}
	if err != nil {
		return "", err
	}
	return res.Summary.String(), nil
}
