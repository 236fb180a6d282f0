package question

import (
	"encoding/json"
	"fmt"
	"strings"

	"preflop-coach/server/engine"
	"preflop-coach/server/llm"
)

const (
	SourceLLM   = "llm"
	SourceRegex = "regex"
)

// Parsed is what we pull out of a free-text question.
type Parsed struct {
	Hand     string   `json:"hand"`     // "AKs", "QQ", "6d5s"
	Position string   `json:"position"` // raw, not yet canonical
	Actions  []string `json:"actions"`  // canonical words: fold|call|check|raise [size]
	Source   string   `json:"source,omitempty"`
}

// Sequence encodes the actions, "PF:F-R2.5".
func (p Parsed) Sequence() string { return engine.EncodeActions(p.Actions) }

// Complete reports whether both hand and position were found.
func (p Parsed) Complete() bool { return p.Hand != "" && p.Position != "" }

// llmParse is the JSON shape the model is asked for. Any field may be null.
type llmParse struct {
	Hand     *string  `json:"hand"`
	Position *string  `json:"position"`
	Actions  []string `json:"actions"`
}

// decodeLLMParse reads the model reply into a Parsed, normalising every field.
func decodeLLMParse(raw string) (Parsed, error) {
	obj := llm.ExtractJSONObject(llm.StripFences(raw))
	if obj == "" {
		return Parsed{}, fmt.Errorf("no JSON object in reply %q", truncate(raw, 120))
	}
	var lp llmParse
	if err := json.Unmarshal([]byte(obj), &lp); err != nil {
		return Parsed{}, fmt.Errorf("decode parse reply: %w", err)
	}
	p := Parsed{Source: SourceLLM}
	if lp.Hand != nil {
		p.Hand = normalizeHand(*lp.Hand)
	}
	if lp.Position != nil {
		p.Position = strings.TrimSpace(*lp.Position)
	}
	for _, a := range lp.Actions {
		if c, ok := canonicalAction(a); ok {
			p.Actions = append(p.Actions, c)
		}
	}
	return p, nil
}

// Validate rejects a Parsed that cannot be looked up.
func Validate(p Parsed) error {
	if p.Hand == "" {
		return fmt.Errorf("no hand")
	}
	if p.Position == "" {
		return fmt.Errorf("no position")
	}
	if len(engine.CombosForHand(p.Hand)) == 0 {
		return fmt.Errorf("unknown hand %q", p.Hand)
	}
	for _, a := range p.Actions {
		if _, ok := canonicalAction(a); !ok {
			return fmt.Errorf("unknown action %q", a)
		}
	}
	return nil
}

// merge fills gaps in p from q.
func (p Parsed) merge(q Parsed) Parsed {
	if p.Hand == "" {
		p.Hand = q.Hand
	}
	if p.Position == "" {
		p.Position = q.Position
	}
	if len(p.Actions) == 0 {
		p.Actions = q.Actions
	}
	return p
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
