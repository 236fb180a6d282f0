package console

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"preflop-coach/server/question"
	"preflop-coach/server/ranges"
	"preflop-coach/server/store"
)

// DefaultComboLimit is how many combos a node view lists per action.
const DefaultComboLimit = 20

// Browser prints read-only views of the range database.
type Browser struct {
	store store.Reader
	out   io.Writer
}

func NewBrowser(r store.Reader, out io.Writer) *Browser {
	return &Browser{store: r, out: out}
}

func (b *Browser) Positions(ctx context.Context) error {
	rows, err := b.store.Positions(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(b.out, "No nodes imported.")
		return nil
	}
	data := pterm.TableData{{"#", "Position", "Nodes"}}
	for i, r := range rows {
		data = append(data, []string{strconv.Itoa(i), r.Position, strconv.Itoa(r.Nodes)})
	}
	return b.table("Positions", data)
}

func (b *Browser) Nodes(ctx context.Context, position string) error {
	position, err := question.CanonicalPosition(ctx, b.store, position)
	if err != nil {
		return err
	}
	nodes, err := b.store.NodesForPosition(ctx, position)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		fmt.Fprintf(b.out, "No nodes for %s.\n", position)
		return nil
	}
	data := pterm.TableData{{"ID", "Sequence", "Folder"}}
	for _, n := range nodes {
		data = append(data, []string{strconv.FormatInt(n.ID, 10), n.ActionSequence, n.FolderName})
	}
	return b.table("Nodes for "+position, data)
}

// Node shows summed frequencies per action, a bar chart of their shares and
// the top combos for action (every action when empty). limit <= 0 lists all.
func (b *Browser) Node(ctx context.Context, id int64, action string, limit int) error {
	totals, err := b.store.ActionTotals(ctx, id)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		fmt.Fprintf(b.out, "No ranges for node %d.\n", id)
		return nil
	}
	data := pterm.TableData{{"Action", "Total frequency"}}
	var sum float64
	for _, t := range totals {
		data = append(data, []string{strings.ToUpper(t.Action), strconv.FormatFloat(t.Total, 'f', 2, 64)})
		sum += t.Total
	}
	if err := b.table(fmt.Sprintf("Action frequencies - node %d", id), data); err != nil {
		return err
	}
	if sum > 0 {
		bars := make(pterm.Bars, 0, len(totals))
		for _, t := range totals {
			bars = append(bars, pterm.Bar{Label: strings.ToUpper(t.Action), Value: int(math.Round(t.Total / sum * 100))})
		}
		chart, err := pterm.DefaultBarChart.WithBars(bars).WithHorizontal().WithShowValue().Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(b.out, chart)
	}

	for _, t := range totals {
		if action != "" && !strings.EqualFold(action, t.Action) {
			continue
		}
		combos, err := b.store.TopCombos(ctx, id, t.Action, limit)
		if err != nil {
			return err
		}
		data := pterm.TableData{{"Combo", "Freq"}}
		for _, c := range combos {
			data = append(data, []string{c.Combo, strconv.FormatFloat(c.Frequency, 'f', 3, 64)})
		}
		if err := b.table(fmt.Sprintf("%d combos for '%s'", len(combos), t.Action), data); err != nil {
			return err
		}
	}
	return nil
}

// Lookup prints a one-shot range lookup without any LLM involvement.
func (b *Browser) Lookup(ctx context.Context, q ranges.Query) error {
	res, err := ranges.Lookup(ctx, b.store, q)
	text, err := ranges.Describe(res, err, q)
	if err != nil {
		return err
	}
	fmt.Fprintf(b.out, "%s %s, %s, %d combos\n%s\n", q.Position, q.Sequence, q.Hand, len(res.Combos), text)
	return nil
}

func (b *Browser) table(title string, data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintf(b.out, "\n=== %s ===\n%s\n", title, s)
	return nil
}
