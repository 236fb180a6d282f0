package question

import (
	"regexp"
	"strconv"
	"strings"

	"preflop-coach/server/engine"
)

var (
	comboRe = regexp.MustCompile(`(?i)\b([2-9TJQKA][cdhs]\s*[2-9TJQKA][cdhs])\b`)
	// Ranks must be upper case so words like "at" or "kt" in prose do not read as hands.
	handRe = regexp.MustCompile(`\b([2-9TJQKA]{2}[soSO]?)\b`)
	posRe  = regexp.MustCompile(`(?i)\b(utg|lj|hj|co|btn|sb|bb|low ?jack|high ?jack|hijack|cutoff|button|small blind|big blind)\b`)
)

var actionAlias = map[string]engine.ActionKind{
	"fold": engine.Fold, "folds": engine.Fold, "muck": engine.Fold, "f": engine.Fold,
	"call": engine.Call, "calls": engine.Call, "flat": engine.Call, "limp": engine.Call, "c": engine.Call,
	"check": engine.Check, "checks": engine.Check, "x": engine.Check, "k": engine.Check,
	"raise": engine.Raise, "raises": engine.Raise, "raised": engine.Raise,
	"open": engine.Raise, "opens": engine.Raise,
	"3bet": engine.Raise, "3-bet": engine.Raise, "4bet": engine.Raise, "4-bet": engine.Raise,
}

// betWordRe joins "3-bet" / "3 bet" so the separator split keeps it whole.
var betWordRe = regexp.MustCompile(`\b([34])[ -]bet\b`)

// ParseActions pulls canonical actions out of free text. A raise word
// followed by a number becomes "raise <n>".
func ParseActions(text string) []string {
	text = betWordRe.ReplaceAllString(strings.ToLower(text), "${1}bet")
	text = strings.NewReplacer(",", " ", "-", " ", ";", " ").Replace(text)
	tokens := strings.Fields(text)

	var acts []string
	for i := 0; i < len(tokens); i++ {
		t := strings.Trim(tokens[i], "\"'`“”‘’.?!:()")
		if t == "after" {
			continue
		}
		kind, ok := actionAlias[t]
		if !ok {
			continue
		}
		if kind == engine.Raise {
			j := i + 1
			if j < len(tokens) && tokens[j] == "to" {
				j++
			}
			if j < len(tokens) {
				if size, ok := parseSize(tokens[j]); ok {
					acts = append(acts, "raise "+size)
					i = j
					continue
				}
			}
		}
		acts = append(acts, string(kind))
	}
	return acts
}

func parseSize(tok string) (string, bool) {
	tok = strings.Trim(tok, "\"'.?!:()")
	tok = strings.TrimSuffix(strings.TrimSuffix(tok, "bb"), "x")
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil || f <= 0 {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// canonicalAction maps one action phrase ("limp", "3-bet", "raise 2.5") to
// its canonical form.
func canonicalAction(s string) (string, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) == 0 {
		return "", false
	}
	kind, ok := actionAlias[fields[0]]
	if !ok {
		return "", false
	}
	if kind == engine.Raise && len(fields) > 1 {
		if size, ok := parseSize(fields[1]); ok {
			return "raise " + size, true
		}
	}
	return string(kind), true
}

var handWords = strings.NewReplacer("offsuit", "o", "suited", "s")

// normalizeHand tidies a hand code: "ak s" -> "AKs", "6D 5s" -> "6d5s",
// "AK suited" -> "AKs".
func normalizeHand(s string) string {
	s = handWords.Replace(strings.ToLower(strings.Join(strings.Fields(s), "")))
	switch len(s) {
	case 4:
		return strings.ToUpper(s[:1]) + strings.ToLower(s[1:2]) + strings.ToUpper(s[2:3]) + strings.ToLower(s[3:])
	case 2:
		return strings.ToUpper(s)
	case 3:
		return strings.ToUpper(s[:2]) + strings.ToLower(s[2:])
	}
	return s
}

// ParseQuestion is the rule-based parser: combos win over hand codes, the
// first position mention is taken.
func ParseQuestion(text string) Parsed {
	p := Parsed{Source: SourceRegex, Actions: ParseActions(text)}
	if m := comboRe.FindStringSubmatch(text); m != nil {
		p.Hand = normalizeHand(m[1])
	} else if m := handRe.FindStringSubmatch(text); m != nil {
		p.Hand = normalizeHand(m[1])
	}
	if m := posRe.FindStringSubmatch(text); m != nil {
		p.Position = m[1]
	}
	return p
}
