package solve

import (
	"fmt"
	"strings"

	"preflop-coach/server/engine"
)

var strength = map[engine.ActionKind]int{
	engine.Fold:  1,
	engine.Check: 2,
	engine.Call:  3,
	engine.Raise: 4,
}

// ActionWords turns "<SEAT>_<Action>" flags into the actions of every 6-max
// seat that acts before hero, in table order. An unflagged seat folded and
// a seat with several flags takes the strongest. When hero's seat is not a
// 6-max seat only the flagged seats are listed.
func ActionWords(position string, flags map[string]bool) []string {
	chosen := map[engine.Seat]engine.ActionKind{}
	for key, on := range flags {
		i := strings.LastIndexByte(key, '_')
		if !on || i < 0 {
			continue
		}
		seat, ok := engine.LookupSeat(key[:i])
		if !ok {
			continue
		}
		kind := engine.ActionKind(strings.ToLower(key[i+1:]))
		if strength[kind] > strength[chosen[seat]] {
			chosen[seat] = kind
		}
	}

	hero, heroKnown := engine.LookupSeat(position)
	var words []string
	for _, seat := range engine.TableOrder {
		if heroKnown && seat == hero {
			break
		}
		kind, ok := chosen[seat]
		if !ok {
			if !heroKnown {
				continue
			}
			kind = engine.Fold
		}
		words = append(words, string(kind))
	}
	return words
}

var suitSymbols = strings.NewReplacer("♥", "h", "♠", "s", "♦", "d", "♣", "c")

// parseCards reads "A♥", "10♠", "Kd" or "th".
func parseCards(names []string) ([]engine.Card, error) {
	out := make([]engine.Card, 0, len(names))
	for _, n := range names {
		s := suitSymbols.Replace(strings.TrimSpace(n))
		if strings.HasPrefix(s, "10") {
			s = "T" + s[2:]
		}
		c, err := engine.ParseCard(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScenario, err)
		}
		out = append(out, c)
	}
	return out, nil
}
