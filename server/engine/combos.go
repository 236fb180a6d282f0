package engine

import "strings"

// CombosForHand expands a hand code into concrete two-card combos.
//
//	"6d5s" -> [6d5s]             exact combo
//	"QQ"   -> 6 pocket-pair combos
//	"AK"   -> 4 suited + 12 offsuit
//	"AKs"  -> 4 suited, "AKo" -> 12 offsuit
//
// Anything else yields an empty result.
func CombosForHand(code string) []string {
	code = strings.ReplaceAll(strings.TrimSpace(code), " ", "")

	switch len(code) {
	case 4:
		if !isSuit(code[1]) || !isSuit(code[3]) {
			return nil
		}
		a, err1 := ParseCard(code[0:2])
		b, err2 := ParseCard(code[2:4])
		if err1 != nil || err2 != nil || a == b {
			return nil
		}
		return []string{comboString(a, b)}
	case 2:
		r1, r2, ok := rankPair(code[0], code[1])
		if !ok {
			return nil
		}
		if r1 == r2 {
			return pairCombos(r1)
		}
		return append(suitedCombos(r1, r2), offsuitCombos(r1, r2)...)
	case 3:
		r1, r2, ok := rankPair(code[0], code[1])
		if !ok {
			return nil
		}
		switch lower(code[2]) {
		case 's':
			if r1 == r2 {
				return nil
			}
			return suitedCombos(r1, r2)
		case 'o':
			if r1 == r2 {
				return pairCombos(r1)
			}
			return offsuitCombos(r1, r2)
		}
	}
	return nil
}

func rankPair(a, b byte) (int, int, bool) {
	r1, ok1 := rankValue(a)
	r2, ok2 := rankValue(b)
	return r1, r2, ok1 && ok2
}

func pairCombos(r int) []string {
	out := make([]string, 0, 6)
	for i, s1 := range Suits {
		for _, s2 := range Suits[i+1:] {
			out = append(out, comboString(Card{r, s1}, Card{r, s2}))
		}
	}
	return out
}

func suitedCombos(r1, r2 int) []string {
	out := make([]string, 0, 4)
	for _, s := range Suits {
		out = append(out, comboString(Card{r1, s}, Card{r2, s}))
	}
	return out
}

func offsuitCombos(r1, r2 int) []string {
	out := make([]string, 0, 12)
	for _, s1 := range Suits {
		for _, s2 := range Suits {
			if s1 != s2 {
				out = append(out, comboString(Card{r1, s1}, Card{r2, s2}))
			}
		}
	}
	return out
}

func comboString(a, b Card) string { return a.String() + b.String() }
