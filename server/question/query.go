package question

import (
	"context"
	"fmt"
	"strings"

	"preflop-coach/server/engine"
	"preflop-coach/server/ranges"
	"preflop-coach/server/store"
)

// CanonicalPosition asks the alias table first and falls back to the
// built-in aliases.
func CanonicalPosition(ctx context.Context, r store.Reader, raw string) (string, error) {
	pos, ok, err := r.CanonicalPosition(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("canonical position: %w", err)
	}
	if ok {
		return pos, nil
	}
	return engine.NormalizePosition(raw), nil
}

// BuildQuery turns loose lookup inputs into a range query. actions is either
// an encoded sequence ("PF:F-R2.5") or action words ("fold, raise 2.5").
func BuildQuery(ctx context.Context, r store.Reader, position, actions, hand string) (ranges.Query, error) {
	position = strings.TrimSpace(position)
	hand = normalizeHand(hand)
	if position == "" || hand == "" {
		return ranges.Query{}, fmt.Errorf("position and hand are required")
	}
	pos, err := CanonicalPosition(ctx, r, position)
	if err != nil {
		return ranges.Query{}, err
	}
	return ranges.Query{Position: pos, Sequence: encodeSequence(actions), Hand: hand}, nil
}

func encodeSequence(actions string) string {
	actions = strings.TrimSpace(actions)
	if strings.HasPrefix(strings.ToUpper(actions), engine.SequencePrefix) {
		return strings.ToUpper(actions)
	}
	return engine.EncodeActions(ParseActions(actions))
}
