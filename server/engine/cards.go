package engine

import (
	"fmt"
	"strings"
)

const (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

// Suits in the order combos are generated.
var Suits = []byte{'c', 'd', 'h', 's'}

func (c Card) String() string {
	ranks := "  23456789TJQKA"
	return fmt.Sprintf("%c%c", ranks[c.Rank], c.Suit)
}

// rankValue maps a rank character (case-insensitive) to 2..14.
func rankValue(ch byte) (int, bool) {
	i := strings.IndexByte(rankChars, upper(ch))
	if i < 0 {
		return 0, false
	}
	return i + 2, true
}

func isSuit(ch byte) bool { return strings.IndexByte(suitChars, lower(ch)) >= 0 }

// ParseCard parses "As", "td", "9H" into a Card.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return Card{}, fmt.Errorf("card %q: want 2 characters", s)
	}
	rank, ok := rankValue(s[0])
	if !ok {
		return Card{}, fmt.Errorf("card %q: bad rank", s)
	}
	if !isSuit(s[1]) {
		return Card{}, fmt.Errorf("card %q: bad suit", s)
	}
	return Card{Rank: rank, Suit: lower(s[1])}, nil
}

func upper(ch byte) byte {
	if ch >= 'a' && ch <= 'z' {
		return ch - 'a' + 'A'
	}
	return ch
}

func lower(ch byte) byte {
	if ch >= 'A' && ch <= 'Z' {
		return ch - 'A' + 'a'
	}
	return ch
}
