package coach

import (
	"context"
	"errors"
	"strings"
	"time"

	"preflop-coach/server/llm"
	"preflop-coach/server/session"
)

// HistoryWindow is how many past messages go with each request.
const HistoryWindow = 10

const plainRules = "Never use markdown or bold, only plain text. " +
	"Always be brief and concise. Never give long or rambling answers. " +
	"Always answer in English, regardless of the user's language."

var tiers = []struct {
	upTo   int
	system string
}{
	{2, "You are Adam, a friendly and encouraging poker coach for complete beginners. " +
		"Focus on explaining basic concepts like hand rankings, betting order, and simple odds. " +
		"Use simple language and avoid poker slang. Be very patient and encouraging. " +
		"Always explain everything step by step. " + plainRules},
	{4, "You are Adam, a supportive poker coach for comfortable beginners. " +
		"Focus on position, pot odds, and basic pre-flop strategies. " +
		"Introduce basic poker terminology like 'tight/loose' and 'pot control'. " +
		"Keep explanations clear but slightly more technical. " + plainRules},
	{6, "You are Adam, a strategic poker coach for intermediate players. " +
		"Focus on range analysis, continuation betting, and implied odds. " +
		"Use moderate poker slang and include brief mathematical examples. " +
		"Discuss stack-to-pot ratios and basic GTO concepts. " + plainRules},
	{8, "You are Adam, an advanced poker coach for experienced players. " +
		"Focus on GTO deviations, blocker effects, and bet sizing trees. " +
		"Use advanced terminology and discuss equity realization. " +
		"Include detailed mathematical analysis and range visualization concepts. " + plainRules},
}

const proTier = "You are Adam, a high-stakes poker coach for professional players. " +
	"Focus on solver-based strategies, node locking, and mixed strategy frequencies. " +
	"Use advanced poker terminology and discuss complex game theory. " +
	"Include detailed mathematical analysis and solver interpretations. " + plainRules

// SystemPrompt picks the persona for a skill level (1..10).
func SystemPrompt(level int) string {
	for _, t := range tiers {
		if level <= t.upTo {
			return t.system
		}
	}
	return proTier
}

var ErrEmptyQuestion = errors.New("empty question")

type Coach struct {
	llm      llm.Client
	sessions *session.Store
	timeout  time.Duration
}

func New(c llm.Client, sessions *session.Store) *Coach {
	if c == nil {
		c = llm.Disabled()
	}
	return &Coach{llm: c, sessions: sessions, timeout: 60 * time.Second}
}

// Ask records text in the session, sends the recent history with the
// tier's persona and records the reply. A failed call leaves the user
// message in history. The window always opens on a user message.
func (c *Coach) Ask(ctx context.Context, sessionID string, level int, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyQuestion
	}
	c.sessions.Append(sessionID, llm.Message{Role: llm.RoleUser, Content: text})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	answer, err := c.llm.Complete(ctx, llm.Request{
		System:      SystemPrompt(level),
		Messages:    fromFirstUser(c.sessions.History(sessionID, HistoryWindow)),
		MaxTokens:   150,
		Temperature: llm.Temp(0.9),
	})
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	c.sessions.Append(sessionID, llm.Message{Role: llm.RoleAssistant, Content: answer})
	return answer, nil
}

func fromFirstUser(msgs []llm.Message) []llm.Message {
	for i, m := range msgs {
		if m.Role == llm.RoleUser {
			return msgs[i:]
		}
	}
	return nil
}

// Close forgets a session's history.
func (c *Coach) Close(sessionID string) bool {
	return c.sessions.Close(sessionID)
}
