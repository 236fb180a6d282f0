package question

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"preflop-coach/server/engine"
	"preflop-coach/server/llm"
	"preflop-coach/server/ranges"
	"preflop-coach/server/store"
)

// HintText is returned when the question lacks a hand or a position.
const HintText = "Could not detect both hand and position. Example: 'AKs CO after fold, fold' or '6d5s UTG'."

const polishSystem = "You are a concise poker expert. Insert the EXACT 'Actions:' block you receive; do not edit its numbers."

const parseSystem = "You are a poker expert. Always return only JSON, never explanations."

const parsePrompt = `Extract hand, position and action sequence from this question. ` +
	`The action sequence is a list of the actions before hero acts (e.g. ["fold", "call", "raise 2.5"]). ` +
	`"after first person folds" means ["fold"]. "after fold, fold" means ["fold", "fold"]. "after limp" means ["call"]. ` +
	`Return JSON: {"hand": ..., "position": ..., "actions": [...]}. Use null for anything missing.

Example: 'What should I do with AKs on CO after fold, fold?' -> actions: ["fold", "fold"]
Example: 'What should I do with QQ on BTN after limp?' -> actions: ["call"]
Example: 'What should I do with 6d5s UTG?' -> actions: []
Question: `

type Options struct {
	// ParseWithLLM asks the model to parse first; the regex parser fills gaps.
	ParseWithLLM bool
	// Polish lets the model wrap the Actions block in prose.
	Polish          bool
	PolishMaxTokens int
	Timeout         time.Duration
}

// Assistant answers free-text range questions from the database.
type Assistant struct {
	store  store.Reader
	llm    llm.Client
	logger *log.Logger
	opts   Options
}

func NewAssistant(r store.Reader, c llm.Client, logger *log.Logger, opts Options) *Assistant {
	if c == nil {
		c = llm.Disabled()
	}
	if logger == nil {
		logger = log.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	if opts.PolishMaxTokens <= 0 {
		opts.PolishMaxTokens = 2500
	}
	return &Assistant{store: r, llm: c, logger: logger, opts: opts}
}

type Answer struct {
	Question string          `json:"question"`
	Parsed   Parsed          `json:"parsed"`
	Position string          `json:"position,omitempty"` // canonical
	Sequence string          `json:"sequence"`
	NodeID   int64           `json:"node_id,omitempty"`
	Summary  *ranges.Summary `json:"summary,omitempty"`
	Draft    string          `json:"draft"`
	Text     string          `json:"answer"`
	Polished bool            `json:"polished"`
}

// Answer runs parse, lookup, summarise and polish. Only storage failures
// come back as errors; everything else is reported in Answer.Text.
func (a *Assistant) Answer(ctx context.Context, q string) (Answer, error) {
	q = strings.TrimSpace(q)
	ans := Answer{Question: q}

	ans.Parsed = a.parse(ctx, q)
	ans.Sequence = ans.Parsed.Sequence()

	if ans.Parsed.Position != "" {
		pos, err := CanonicalPosition(ctx, a.store, ans.Parsed.Position)
		if err != nil {
			return ans, err
		}
		ans.Position = pos
	}

	if ans.Parsed.Hand == "" || ans.Position == "" {
		ans.Draft = HintText
		ans.Text = HintText
		return ans, nil
	}

	query := ranges.Query{Position: ans.Position, Sequence: ans.Sequence, Hand: ans.Parsed.Hand}
	res, err := ranges.Lookup(ctx, a.store, query)
	draft, err := ranges.Describe(res, err, query)
	if err != nil {
		return ans, fmt.Errorf("lookup: %w", err)
	}
	ans.Draft = draft
	ans.Text = draft
	if res.NodeID != 0 {
		ans.NodeID = res.NodeID
		if !res.Summary.NoData() {
			s := res.Summary
			ans.Summary = &s
		}
	}

	if ans.Summary == nil || !a.opts.Polish {
		return ans, nil
	}
	ans.Text, ans.Polished = a.polish(ctx, q, draft)
	return ans, nil
}

func (a *Assistant) parse(ctx context.Context, q string) Parsed {
	regex := ParseQuestion(q)
	if !a.opts.ParseWithLLM {
		return regex
	}
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()
	req := llm.User(parseSystem, parsePrompt+q)
	req.MaxTokens = 200
	req.Temperature = llm.Temp(0)
	req.JSON = true
	reply, err := a.llm.Complete(ctx, req)
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			a.logger.Warn("llm parse failed, using rules", "err", err)
		}
		return regex
	}
	p, err := decodeLLMParse(reply)
	if err != nil {
		a.logger.Warn("llm parse unreadable, using rules", "err", err)
		return regex
	}
	a.logger.Debug("llm parse", "hand", p.Hand, "position", p.Position, "actions", p.Actions)
	merged := a.usable(ctx, p).merge(regex)
	if err := Validate(merged); err != nil && Validate(regex) == nil {
		a.logger.Debug("llm parse rejected, using rules", "err", err)
		return regex
	}
	return merged
}

// usable blanks model-supplied fields that can never be looked up so the
// rule-based parse fills them instead.
func (a *Assistant) usable(ctx context.Context, p Parsed) Parsed {
	if p.Hand != "" && len(engine.CombosForHand(p.Hand)) == 0 {
		a.logger.Debug("llm hand unusable", "hand", p.Hand)
		p.Hand = ""
	}
	if p.Position != "" {
		p.Position = a.knownPosition(ctx, p.Position)
	}
	return p
}

// knownPosition returns raw when it names a seat, the seat mention inside
// it ("the cutoff" -> "cutoff"), or "".
func (a *Assistant) knownPosition(ctx context.Context, raw string) string {
	if _, ok := engine.LookupSeat(raw); ok {
		return raw
	}
	if _, ok, err := a.store.CanonicalPosition(ctx, raw); err == nil && ok {
		return raw
	}
	if m := posRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	a.logger.Debug("llm position unusable", "position", raw)
	return ""
}

// polish returns the model's prose, or the draft with an inline error. A
// reply that dropped or altered the Actions block gets the block appended.
func (a *Assistant) polish(ctx context.Context, q, draft string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()
	req := llm.User(polishSystem, fmt.Sprintf("Question: %s\n\n%s", q, draft))
	req.MaxTokens = a.opts.PolishMaxTokens
	req.Temperature = llm.Temp(0.3)
	reply, err := a.llm.Complete(ctx, req)
	if errors.Is(err, llm.ErrDisabled) {
		return draft, false
	}
	if err != nil {
		a.logger.Warn("llm polish failed", "err", err)
		return fmt.Sprintf("(LLM error: %v)\n\n%s", err, draft), false
	}
	reply = strings.TrimSpace(reply)
	if !strings.Contains(reply, draft) {
		a.logger.Warn("polished answer lost the Actions block, appending it")
		reply += "\n\n" + draft
	}
	return reply, true
}
