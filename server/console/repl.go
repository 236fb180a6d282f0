package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"preflop-coach/server/question"
)

// Answerer is the part of the assistant the loop needs.
type Answerer interface {
	Answer(ctx context.Context, q string) (question.Answer, error)
}

type lineReader interface {
	Readline() (string, error)
}

// REPL is the interactive question loop.
type REPL struct {
	assistant  Answerer
	transcript *Transcript
	logger     *log.Logger
	out        io.Writer
}

func NewREPL(a Answerer, t *Transcript, logger *log.Logger, out io.Writer) *REPL {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &REPL{assistant: a, transcript: t, logger: logger, out: out}
}

// Run reads questions until exit, quit or EOF.
func (r *REPL) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "Question: ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "\n%s - type 'exit' to quit\n\n", bold("Poker Range Assistant"))
	return r.loop(ctx, rl)
}

func (r *REPL) loop(ctx context.Context, rl lineReader) error {
	red := color.New(color.FgRed).SprintFunc()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "Good-bye!")
				return nil
			}
			return err
		}
		q := strings.TrimSpace(line)
		if q == "" {
			continue
		}
		switch strings.ToLower(q) {
		case "exit", "quit":
			fmt.Fprintln(r.out, "Good-bye!")
			return nil
		}

		ans, err := r.assistant.Answer(ctx, q)
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
			r.logger.Error("answer failed", "err", err)
			continue
		}
		fmt.Fprintf(r.out, "\n%s\n\n", colourAnswer(ans))
		r.transcript.Record(q, ans.Text)
	}
}

func colourAnswer(ans question.Answer) string {
	switch {
	case ans.Summary != nil:
		return color.New(color.FgGreen).Sprint(ans.Text)
	case strings.HasPrefix(ans.Text, "(LLM error:"):
		return color.New(color.FgYellow).Sprint(ans.Text)
	default:
		return ans.Text
	}
}

/* ----- transcript ----- */

// Transcript appends question/answer pairs as logfmt lines. A nil
// *Transcript records nothing.
type Transcript struct {
	f   *os.File
	log *log.Logger
}

func OpenTranscript(path string) (*Transcript, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return &Transcript{f: f, log: NewTranscriptLogger(f)}, nil
}

// NewTranscriptLogger writes timestamped logfmt records to w.
func NewTranscriptLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Formatter:       log.LogfmtFormatter,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})
}

func (t *Transcript) Record(q, answer string) {
	if t == nil {
		return
	}
	t.log.Info("exchange", "user", q, "ai", answer)
}

func (t *Transcript) Close() error {
	if t == nil {
		return nil
	}
	return t.f.Close()
}
