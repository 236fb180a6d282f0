// Package solve answers a whole table scenario: hero's seat, the actions
// before them and their hole cards.
package solve

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/coder/quartz"

	"preflop-coach/server/engine"
	"preflop-coach/server/question"
	"preflop-coach/server/ranges"
	"preflop-coach/server/store"
)

// ErrScenario wraps every problem with the submitted scenario itself.
var ErrScenario = errors.New("bad scenario")

const (
	BasisRanges = "ranges"
	BasisEquity = "equity"
)

// Request is the scenario builder's payload.
type Request struct {
	Players  int             `json:"players"`
	Position string          `json:"position"`
	Actions  map[string]bool `json:"actions"` // "UTG_Raise": true
	Cards    []string        `json:"cards"`   // "A♥", "10♠" or "Kd"
	Board    []string        `json:"board,omitempty"`
}

type Result struct {
	BestMove string          `json:"bestMove"`
	Equity   float64         `json:"equity"` // percent against players-1 random hands
	Basis    string          `json:"basis"`
	Position string          `json:"position"`
	Sequence string          `json:"sequence"`
	Hand     string          `json:"hand"`
	MadeHand string          `json:"made_hand,omitempty"`
	Summary  *ranges.Summary `json:"summary,omitempty"`
}

type Options struct {
	Trials int // Monte Carlo runouts, engine.DefaultTrials when <= 0
}

type Solver struct {
	store  store.Reader
	clock  quartz.Clock
	trials int
}

func New(r store.Reader, clock quartz.Clock, opts Options) *Solver {
	if opts.Trials <= 0 {
		opts.Trials = engine.DefaultTrials
	}
	return &Solver{store: r, clock: clock, trials: opts.Trials}
}

// Solve looks hero's combo up in the range database and prices it against
// random hands. The best move is the combo's most frequent solver action,
// or an equity threshold when the database has nothing for the spot.
func (s *Solver) Solve(ctx context.Context, req Request) (Result, error) {
	hero, err := parseCards(req.Cards)
	if err != nil {
		return Result{}, err
	}
	if len(hero) != 2 {
		return Result{}, fmt.Errorf("%w: want 2 hole cards, got %d", ErrScenario, len(hero))
	}
	board, err := parseCards(req.Board)
	if err != nil {
		return Result{}, err
	}
	players := req.Players
	if players == 0 {
		players = len(engine.TableOrder)
	}
	if players < 2 || players > engine.MaxOpponents+1 {
		return Result{}, fmt.Errorf("%w: players must be 2 to %d", ErrScenario, engine.MaxOpponents+1)
	}
	holding := [2]engine.Card{hero[0], hero[1]}
	combo := hero[0].String() + hero[1].String()

	words := ActionWords(req.Position, req.Actions)
	q, err := question.BuildQuery(ctx, s.store, req.Position, strings.Join(words, ", "), combo)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScenario, err)
	}

	rng := rand.New(rand.NewSource(s.clock.Now().UnixNano()))
	eq, err := engine.HandEquity(holding, board, players-1, s.trials, rng)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScenario, err)
	}
	made, err := engine.MadeHand(holding, board)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrScenario, err)
	}

	res := Result{
		Equity:   eq.Percent(),
		Position: q.Position,
		Sequence: q.Sequence,
		Hand:     combo,
		MadeHand: made,
	}
	lookup, err := ranges.Lookup(ctx, s.store, q)
	switch {
	case errors.Is(err, store.ErrNoNode):
	case err != nil:
		return Result{}, err
	case !lookup.Summary.NoData():
		sum := lookup.Summary
		res.Summary = &sum
		res.BestMove = moveName(sum.Actions[0].Action)
		res.Basis = BasisRanges
		return res, nil
	}
	res.BestMove = byEquity(eq.Equity, players)
	res.Basis = BasisEquity
	return res, nil
}

// byEquity raises with half again a fair share of the pot, calls with a
// fair share and folds below it.
func byEquity(equity float64, players int) string {
	fair := 1 / float64(players)
	switch {
	case equity >= 1.5*fair:
		return "Raise"
	case equity >= fair:
		return "Call"
	default:
		return "Fold"
	}
}

func moveName(action string) string {
	switch strings.ToLower(action) {
	case "r":
		return "Raise"
	case "c":
		return "Call"
	case "f":
		return "Fold"
	case "x":
		return "Check"
	}
	return strings.ToUpper(action)
}
