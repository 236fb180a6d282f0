package ranges

import (
	"fmt"
	"sort"
	"strings"

	"preflop-coach/server/store"
)

// NoDataText is what callers print when a lookup matched nothing.
const NoDataText = "No data for that hand in the database."

// SummaryHeader opens every rendered summary; the LLM polish step must keep it verbatim.
const SummaryHeader = "Actions:"

// ActionFrequency is the mean frequency of one action across the matched combos.
type ActionFrequency struct {
	Action    string  `json:"action"`
	Frequency float64 `json:"frequency"`
	Combos    int     `json:"combos"`
}

type Summary struct {
	Actions []ActionFrequency `json:"actions"`
}

// NoData reports whether the summary carries no numbers at all.
func (s Summary) NoData() bool { return len(s.Actions) == 0 }

// Summarise groups rows by action, averages the frequency over the combos
// seen for that action and sorts by that average, highest first.
func Summarise(rows []store.RangeRow) Summary {
	if len(rows) == 0 {
		return Summary{}
	}
	type acc struct {
		sum float64
		n   int
	}
	byAction := map[string]*acc{}
	for _, r := range rows {
		a := byAction[r.Action]
		if a == nil {
			a = &acc{}
			byAction[r.Action] = a
		}
		a.sum += r.Frequency
		a.n++
	}
	out := make([]ActionFrequency, 0, len(byAction))
	for action, a := range byAction {
		out = append(out, ActionFrequency{Action: action, Frequency: a.sum / float64(a.n), Combos: a.n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Action < out[j].Action
	})
	return Summary{Actions: out}
}

// String renders the block the assistant shows:
//
//	Actions:
//	  R   : 62.5 %
//	  F   : 37.5 %
func (s Summary) String() string {
	if s.NoData() {
		return NoDataText
	}
	lines := make([]string, len(s.Actions))
	for i, a := range s.Actions {
		lines[i] = fmt.Sprintf("%-4s: %.1f %%", strings.ToUpper(a.Action), a.Frequency*100)
	}
	return SummaryHeader + "\n  " + strings.Join(lines, "\n  ")
}
