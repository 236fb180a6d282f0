package engine

import "strings"

// PositionAlias is one row of the position_alias table.
type PositionAlias struct {
	Alias     string
	Canonical Seat
	Ordinal   int
}

var positionAliases = map[Seat][]string{
	UTG: {"UTG", "EP1", "P1", "LJ", "LOWJACK", "LOW_JACK"},
	HJ:  {"HJ", "HIGHJACK", "HIJACK", "P2", "P3"},
	CO:  {"CO", "CUTOFF"},
	BTN: {"BTN", "BUTTON"},
	SB:  {"SB", "SMALLBLIND", "SMALL_BLIND"},
	BB:  {"BB", "BIGBLIND", "BIG_BLIND"},
}

var aliasToSeat = func() map[string]Seat {
	m := make(map[string]Seat)
	for seat, aliases := range positionAliases {
		for _, a := range aliases {
			m[sanitizeAlias(a)] = seat
		}
	}
	return m
}()

func sanitizeAlias(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "_", "")
}

// NormalizePosition maps any known spelling of a seat ("low jack", "lj",
// "Small_Blind") to its canonical code. Unknown values come back upper-cased.
func NormalizePosition(raw string) string {
	if seat, ok := LookupSeat(raw); ok {
		return string(seat)
	}
	return strings.ToUpper(raw)
}

// LookupSeat is NormalizePosition without the pass-through.
func LookupSeat(raw string) (Seat, bool) {
	seat, ok := aliasToSeat[sanitizeAlias(strings.TrimSpace(raw))]
	return seat, ok
}

// PositionAliases lists every alias in table order, then alias order.
func PositionAliases() []PositionAlias {
	var out []PositionAlias
	for _, seat := range TableOrder {
		for _, a := range positionAliases[seat] {
			out = append(out, PositionAlias{Alias: a, Canonical: seat, Ordinal: seat.Ordinal()})
		}
	}
	return out
}
