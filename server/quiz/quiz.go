package quiz

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"preflop-coach/server/llm"
)

//go:embed bank.yaml
var bankYAML []byte

// MaxQuestions caps a static quiz.
const MaxQuestions = 10

const DefaultComment = "Great job!"

type Question struct {
	Question    string   `yaml:"question" json:"question"`
	Choices     []string `yaml:"choices" json:"choices"`
	Answer      string   `yaml:"answer" json:"answer"`
	Explanation string   `yaml:"explanation" json:"explanation"`
}

// Bank maps a skill band ("1-2", "3-4") to its questions.
type Bank map[string][]Question

func LoadBank() (Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(bankYAML, &b); err != nil {
		return nil, fmt.Errorf("quiz bank: %w", err)
	}
	for key, qs := range b {
		for i, q := range qs {
			if q.Question == "" || q.Answer == "" {
				return nil, fmt.Errorf("quiz bank %s[%d]: question and answer are required", key, i)
			}
		}
	}
	return b, nil
}

// LevelKey picks the bank band for a skill level. Only two bands exist;
// anything above 4 reuses the beginner band.
func LevelKey(level int) string {
	switch {
	case level <= 2:
		return "1-2"
	case level <= 4:
		return "3-4"
	default:
		return "1-2"
	}
}

// ClampLevel keeps a skill level in 1..10.
func ClampLevel(level int) int {
	return min(max(level, 1), 10)
}

type Quizmaster struct {
	bank    Bank
	llm     llm.Client
	logger  *log.Logger
	rng     *rand.Rand
	timeout time.Duration
}

func New(bank Bank, c llm.Client, logger *log.Logger, rng *rand.Rand) *Quizmaster {
	if c == nil {
		c = llm.Disabled()
	}
	if logger == nil {
		logger = log.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Quizmaster{bank: bank, llm: c, logger: logger, rng: rng, timeout: 90 * time.Second}
}

/* ----- static ----- */

// Static samples up to MaxQuestions distinct questions for level.
func (q *Quizmaster) Static(level int) []Question {
	pool := q.bank[LevelKey(level)]
	idx := q.rng.Perm(len(pool))
	n := min(MaxQuestions, len(pool))
	out := make([]Question, n)
	for i := 0; i < n; i++ {
		out[i] = pool[idx[i]]
	}
	return out
}

/* ----- generated ----- */

var levelPrompts = []struct {
	upTo   int
	prompt string
}{
	{2, "Create 10 multiple-choice questions that test absolute hand strength in Texas Hold'em. " +
		"For each, show two 5-card showdown hands, ask which one wins, and explain the answer in one sentence for learners."},
	{4, "Write 10 one-sentence scenarios that force the player to use basic pot odds or position. " +
		"For each, give four answer choices (fold / call / min-raise / shove) and briefly state the correct choice with a short pot-odds calculation."},
	{6, "Generate 10 quiz spots from the turn in a cash game (100 bb effective) where villain's range is described in words. " +
		"For each, ask which bet-sizing or line maximises EV, include board texture, and reveal solver-approximate equities in the explanation."},
	{8, "Pose 10 tournament hands (40 bb, 9-max, ICM in play) that test range construction and blocker logic. " +
		"For each, give four nuanced options (e.g., small-bet, over-bet, check-call, check-fold) and in the answer justify with range vs. range equity and blocker effects."},
	{10, "Create 10 solver-style quizzes: 200 bb deep, H2H on the river after a polarising 3-barrel in a 4-bet pot. " +
		"For each, present exact hand ranges in notation, node-lock villain to a 25% over-fold, and ask for the optimal mixed strategy (bet sizes + frequencies) with GTO EV figures. " +
		"Return the solver breakdown in the explanation."},
}

const quizTail = " After the quiz, give a personal comment on what the player should practice next. " +
	`Return as a JSON array: [{question, choices, correct, explanation}], and a final comment as "final_comment": "...".`

const quizSystem = "You are a world-class poker coach and quizmaster. Always answer in English and return only valid JSON."

func quizPrompt(level int) string {
	level = ClampLevel(level)
	for _, lp := range levelPrompts {
		if level <= lp.upTo {
			return lp.prompt + quizTail
		}
	}
	return levelPrompts[len(levelPrompts)-1].prompt + quizTail
}

type GeneratedQuestion struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	Correct     string   `json:"correct"`
	Explanation string   `json:"explanation"`
}

type Generated struct {
	Questions    []GeneratedQuestion `json:"questions"`
	FinalComment string              `json:"final_comment"`
}

// ParseError carries the raw model reply that could not be read as a quiz.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return "could not parse quiz JSON: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

var finalCommentRe = regexp.MustCompile(`"final_comment"\s*:\s*"([^"]+)"`)

// parseGenerated reads the outermost JSON array as the questions and the
// final_comment field wherever it appears.
func parseGenerated(raw string) (Generated, error) {
	g := Generated{FinalComment: DefaultComment}
	if arr := llm.ExtractJSONArray(raw); arr != "" {
		if err := json.Unmarshal([]byte(arr), &g.Questions); err != nil {
			return Generated{}, &ParseError{Raw: raw, Err: err}
		}
	}
	if m := finalCommentRe.FindStringSubmatch(raw); m != nil {
		g.FinalComment = m[1]
	}
	if g.Questions == nil {
		g.Questions = []GeneratedQuestion{}
	}
	return g, nil
}

// Generate asks the model for a fresh quiz at level.
func (q *Quizmaster) Generate(ctx context.Context, level int) (Generated, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	req := llm.User(quizSystem, quizPrompt(level))
	req.MaxTokens = 1800
	req.Temperature = llm.Temp(0.7)
	raw, err := q.llm.Complete(ctx, req)
	if err != nil {
		return Generated{}, fmt.Errorf("generate quiz: %w", err)
	}
	g, err := parseGenerated(raw)
	if err != nil {
		q.logger.Warn("quiz reply unreadable", "level", level, "err", err)
		return Generated{}, err
	}
	return g, nil
}

/* ----- feedback ----- */

type UserAnswer struct {
	Question   string `json:"question"`
	UserAnswer string `json:"user_answer"`
}

type Feedback struct {
	Feedback string `json:"feedback"`
	Score    int    `json:"score"`
}

// Score counts answers that match the bank for level.
func (q *Quizmaster) Score(level int, answers []UserAnswer) int {
	correct := map[string]string{}
	for _, bq := range q.bank[LevelKey(level)] {
		correct[bq.Question] = bq.Answer
	}
	score := 0
	for _, a := range answers {
		if want, ok := correct[a.Question]; ok && a.UserAnswer == want {
			score++
		}
	}
	return score
}

const feedbackSystem = "You are a world-class poker coach. Always answer in English."

const feedbackPrompt = "A poker player just completed a quiz. Here are the questions, their answers, and which were correct or incorrect. " +
	"Give a concise, personal feedback (max 3-4 sentences, max 200 tokens). Do NOT use bold text. " +
	"Use clear paragraph breaks (\n\n) for each new thought or topic. Focus on the most important improvement points.\n"

// Feedback scores the answers and asks the model for comments. A model
// failure is reported inline; the score is always returned.
func (q *Quizmaster) Feedback(ctx context.Context, level int, answers []UserAnswer) Feedback {
	fb := Feedback{Score: q.Score(level, answers)}

	type graded struct {
		UserAnswer
		Correct *bool `json:"correct,omitempty"`
	}
	key := map[string]string{}
	for _, bq := range q.bank[LevelKey(level)] {
		key[bq.Question] = bq.Answer
	}
	rows := make([]graded, len(answers))
	for i, a := range answers {
		rows[i] = graded{UserAnswer: a}
		if want, ok := key[a.Question]; ok {
			hit := a.UserAnswer == want
			rows[i].Correct = &hit
		}
	}
	body, _ := json.Marshal(rows)

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	req := llm.User(feedbackSystem, feedbackPrompt+string(body))
	req.MaxTokens = 200
	req.Temperature = llm.Temp(0.7)
	text, err := q.llm.Complete(ctx, req)
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			q.logger.Warn("quiz feedback failed", "err", err)
		}
		fb.Feedback = fmt.Sprintf("(LLM error: %v)", err)
		return fb
	}
	fb.Feedback = strings.TrimSpace(text)
	return fb
}
