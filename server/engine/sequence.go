package engine

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrNoSeparator = errors.New("folder name has no '_' separator")
	ErrNoPosition  = errors.New("folder name has an empty position suffix")
)

// DecodeFolderName turns a solver folder name into an action sequence and
// the position suffix:
//
//	"ffr25_btn" -> ("PF:F-F-R2.5", "BTN")
//	"ccx_lj"    -> ("PF:C-C-X", "LJ")
//
// Raise digits get a decimal point before the last digit ("25" -> "2.5");
// a single digit is used as-is and a bare "r" becomes a generic "R".
// Anything else, upper-case letters included, is skipped.
func DecodeFolderName(folder string) (seq string, pos string, err error) {
	i := strings.LastIndexByte(folder, '_')
	if i < 0 {
		return "", "", ErrNoSeparator
	}
	seqPart, posPart := folder[:i], folder[i+1:]
	if strings.TrimSpace(posPart) == "" {
		return "", "", ErrNoPosition
	}

	var tokens []string
	for j := 0; j < len(seqPart); {
		switch ch := seqPart[j]; ch {
		case 'f', 'c', 'x':
			tokens = append(tokens, string(upper(ch)))
			j++
		case 'r':
			k := j + 1
			for k < len(seqPart) && seqPart[k] >= '0' && seqPart[k] <= '9' {
				k++
			}
			tokens = append(tokens, TokenRaise+raiseAmount(seqPart[j+1:k]))
			j = k
		default:
			j++
		}
	}
	return joinSequence(tokens), strings.ToUpper(posPart), nil
}

func raiseAmount(digits string) string {
	if len(digits) <= 1 {
		return digits
	}
	return digits[:len(digits)-1] + "." + digits[len(digits)-1:]
}

func joinSequence(tokens []string) string {
	return SequencePrefix + strings.Join(tokens, "-")
}

// EncodeActions encodes canonical action words ("fold", "call", "check",
// "raise", "raise 2.5") into a sequence. Unknown words are dropped.
func EncodeActions(actions []string) string {
	var tokens []string
	for _, act := range actions {
		fields := strings.Fields(strings.ToLower(act))
		if len(fields) == 0 {
			continue
		}
		switch ActionKind(fields[0]) {
		case Fold:
			tokens = append(tokens, TokenFold)
		case Call:
			tokens = append(tokens, TokenCall)
		case Check:
			tokens = append(tokens, TokenCheck)
		case Raise:
			tok := TokenRaise
			if len(fields) == 2 {
				if f, err := strconv.ParseFloat(strings.ReplaceAll(fields[1], ",", "."), 64); err == nil && f > 0 {
					tok += strconv.FormatFloat(f, 'f', -1, 64)
				}
			}
			tokens = append(tokens, tok)
		}
	}
	return joinSequence(tokens)
}

// SequenceTokens splits "PF:F-R2.5" into ["F", "R2.5"].
func SequenceTokens(seq string) []string {
	body := strings.TrimPrefix(seq, SequencePrefix)
	if body == "" {
		return nil
	}
	return strings.Split(body, "-")
}

// HasGenericRaise reports whether seq holds a raise token without a size.
func HasGenericRaise(seq string) bool {
	for _, t := range SequenceTokens(seq) {
		if t == TokenRaise {
			return true
		}
	}
	return false
}

// SequenceVariants returns seq followed by every other spelling of it that
// differs only in how sized raises are written. Folder decoding always emits
// one decimal ("r20" -> "R2.0") while EncodeActions trims it ("raise 2" ->
// "R2"), so both have to be tried.
func SequenceVariants(seq string) []string {
	tokens := SequenceTokens(seq)
	out := []string{seq}
	seen := map[string]bool{seq: true}
	var walk func(i int, acc []string)
	walk = func(i int, acc []string) {
		if i == len(tokens) {
			if s := joinSequence(acc); !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
			return
		}
		for _, t := range raiseSpellings(tokens[i]) {
			walk(i+1, append(acc[:i:i], t))
		}
	}
	walk(0, make([]string, 0, len(tokens)))
	return out
}

// raiseSpellings lists the equivalent forms of one token: "R3" and "R3.0"
// for a whole size, just the token itself for anything else.
func raiseSpellings(tok string) []string {
	if !strings.HasPrefix(tok, TokenRaise) || tok == TokenRaise {
		return []string{tok}
	}
	f, err := strconv.ParseFloat(tok[len(TokenRaise):], 64)
	if err != nil {
		return []string{tok}
	}
	forms := []string{tok}
	for _, alt := range []string{
		strconv.FormatFloat(f, 'f', -1, 64),
		strconv.FormatFloat(f, 'f', 1, 64),
	} {
		if v, _ := strconv.ParseFloat(alt, 64); v == f && TokenRaise+alt != tok {
			forms = append(forms, TokenRaise+alt)
		}
	}
	return forms
}

// RaiseWildcard rewrites every generic raise token as "R%" for a SQL LIKE
// match against sized raises.
func RaiseWildcard(seq string) string {
	tokens := SequenceTokens(seq)
	for i, t := range tokens {
		if t == TokenRaise {
			tokens[i] = TokenRaise + "%"
		}
	}
	return joinSequence(tokens)
}
