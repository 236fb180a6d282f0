package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	poker "github.com/paulhankin/poker"
)

// DefaultTrials is how many runouts HandEquity deals when given none.
const DefaultTrials = 20000

// MaxOpponents is the most random hands HandEquity will deal against hero.
const MaxOpponents = 9

var ErrOpponents = errors.New("opponents must be between 1 and 9")

// EquityResult is hero's showdown record over a set of runouts.
type EquityResult struct {
	Equity float64 `json:"equity"` // share of the pot, 0..1
	Win    float64 `json:"win"`    // fraction of runouts won outright
	Tie    float64 `json:"tie"`    // fraction of runouts split
	Trials int     `json:"trials"`
}

// Percent is Equity on a 0..100 scale, one decimal.
func (r EquityResult) Percent() float64 { return math.Round(r.Equity*1000) / 10 }

// Convert our engine.Card -> library card.
func toPH(c Card) (poker.Card, error) {
	var s poker.Suit
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	case 's':
		s = poker.Spade
	default:
		var zero poker.Card
		return zero, fmt.Errorf("bad suit %q", c.Suit)
	}
	// Our ranks: 2..14 (Ace=14). Library: 1..13 (Ace=1).
	r := poker.Rank(c.Rank)
	if c.Rank == 14 {
		r = poker.Rank(1)
	}
	return poker.MakeCard(s, r)
}

// knownCards converts cards and rejects duplicates.
func knownCards(cards []Card) ([]poker.Card, error) {
	out := make([]poker.Card, 0, len(cards))
	seen := make(map[poker.Card]bool, len(cards))
	for _, c := range cards {
		pc, err := toPH(c)
		if err != nil || !pc.Valid() {
			return nil, fmt.Errorf("invalid card %v", c)
		}
		if seen[pc] {
			return nil, fmt.Errorf("duplicate card %s", c)
		}
		seen[pc] = true
		out = append(out, pc)
	}
	return out, nil
}

func remainingDeck(known []poker.Card) []poker.Card {
	used := make(map[poker.Card]bool, len(known))
	for _, c := range known {
		used[c] = true
	}
	deck := make([]poker.Card, 0, len(poker.Cards)-len(known))
	for _, c := range poker.Cards {
		if !used[c] {
			deck = append(deck, c)
		}
	}
	return deck
}

// HandEquity estimates hero's share of the pot against opponents holding
// random hands. Up to five board cards may be known; the rest of the board
// and every opponent hand are dealt at random for each trial. Heads-up on a
// complete board every villain holding is enumerated instead.
func HandEquity(hero [2]Card, board []Card, opponents, trials int, rng *rand.Rand) (EquityResult, error) {
	if opponents < 1 || opponents > MaxOpponents {
		return EquityResult{}, ErrOpponents
	}
	if len(board) > 5 {
		return EquityResult{}, fmt.Errorf("board has %d cards, at most 5", len(board))
	}
	known, err := knownCards(append([]Card{hero[0], hero[1]}, board...))
	if err != nil {
		return EquityResult{}, err
	}
	deck := remainingDeck(known)
	if opponents == 1 && len(board) == 5 {
		return riverEquity(known, deck), nil
	}
	if trials <= 0 {
		trials = DefaultTrials
	}
	return monteCarlo(known, deck, opponents, trials, rng), nil
}

// riverEquity enumerates every villain holding. known is hero then board.
func riverEquity(known, deck []poker.Card) EquityResult {
	var heroHand [7]poker.Card
	copy(heroHand[:], known)
	heroScore := poker.Eval7(&heroHand)

	villain := heroHand
	var total, win, tie int
	for i := 0; i < len(deck); i++ {
		for j := i + 1; j < len(deck); j++ {
			villain[0], villain[1] = deck[i], deck[j]
			vScore := poker.Eval7(&villain)
			total++
			if heroScore > vScore { // higher is better
				win++
			} else if heroScore == vScore {
				tie++
			}
		}
	}
	return EquityResult{
		Equity: (float64(win) + 0.5*float64(tie)) / float64(total),
		Win:    float64(win) / float64(total),
		Tie:    float64(tie) / float64(total),
		Trials: total,
	}
}

func monteCarlo(known, deck []poker.Card, opponents, trials int, rng *rand.Rand) EquityResult {
	boardKnown := len(known) - 2
	need := 5 - boardKnown + 2*opponents

	var hands [MaxOpponents + 1][7]poker.Card
	for h := 0; h <= opponents; h++ {
		copy(hands[h][2:], known[2:])
	}
	hands[0][0], hands[0][1] = known[0], known[1]

	var share, win, tie float64
	for t := 0; t < trials; t++ {
		// Partial Fisher-Yates: the first need cards are a uniform sample.
		for i := 0; i < need; i++ {
			j := i + rng.Intn(len(deck)-i)
			deck[i], deck[j] = deck[j], deck[i]
		}
		n := 0
		for b := 2 + boardKnown; b < 7; b++ {
			for h := 0; h <= opponents; h++ {
				hands[h][b] = deck[n]
			}
			n++
		}
		for h := 1; h <= opponents; h++ {
			hands[h][0], hands[h][1] = deck[n], deck[n+1]
			n += 2
		}

		heroScore := poker.Eval7(&hands[0])
		best, winners := heroScore, 1
		for h := 1; h <= opponents; h++ {
			s := poker.Eval7(&hands[h])
			switch {
			case s > best:
				best, winners = s, 1
			case s == best:
				winners++
			}
		}
		if best != heroScore {
			continue
		}
		share += 1 / float64(winners)
		if winners == 1 {
			win++
		} else {
			tie++
		}
	}
	return EquityResult{
		Equity: share / float64(trials),
		Win:    win / float64(trials),
		Tie:    tie / float64(trials),
		Trials: trials,
	}
}

// MadeHand names hero's best hand with a flop ("pair of aces ...") or a
// river board. Other board sizes give "".
func MadeHand(hero [2]Card, board []Card) (string, error) {
	if len(board) != 3 && len(board) != 5 {
		return "", nil
	}
	known, err := knownCards(append([]Card{hero[0], hero[1]}, board...))
	if err != nil {
		return "", err
	}
	return poker.Describe(known)
}
