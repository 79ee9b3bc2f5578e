package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mind-engage/classquiz/internal/quizsession"
	"github.com/mind-engage/classquiz/internal/views"
)

// take runs one interactive attempt until it completes, the student quits
// or the session ends in a terminal state.
func take(ctx context.Context, reader *bufio.Reader, out io.Writer, d Deps) error {
	opts := []quizsession.Option{quizsession.WithClock(d.Clock)}
	if d.Recorder != nil {
		opts = append(opts, quizsession.WithRecorder(d.Recorder))
	}
	ctl := quizsession.New(d.Client, d.Store, opts...)
	defer ctl.Close()

	fmt.Fprintln(out, "Loading quiz...")
	if err := ctl.Load(ctx); err != nil {
		return err
	}

	for {
		s := ctl.Snapshot()
		page := views.BuildQuiz(s)
		views.RenderQuiz(out, page)

		switch s.State {
		case quizsession.StateCompleted, quizsession.StateNoQuestions, quizsession.StateRedirect:
			return nil
		case quizsession.StateError:
			if !page.Retryable {
				return nil
			}
		}

		fmt.Fprint(out, prompt(page))
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}
		cmd := strings.ToLower(strings.TrimSpace(line))

		switch cmd {
		case "":
			continue
		case "q", "quit":
			fmt.Fprintln(out, "Quiz left unsubmitted.")
			return nil
		case "x", "exit":
			if err := ctl.Exit(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Logged out.")
			return nil
		case "r", "retry":
			err = ctl.Retry(ctx)
		case "n", "next":
			err = ctl.Next()
		case "p", "prev":
			err = ctl.Prev()
		case "s", "submit":
			err = ctl.Submit(ctx)
		case "?", "help":
			printTakeHelp(out)
			continue
		default:
			idx, ok := views.ParseLetter(cmd, len(page.Options))
			if !ok {
				fmt.Fprintln(out, "Unknown input. Type ? for help.")
				continue
			}
			err = ctl.SelectCurrent(idx)
		}
		// local validation lands in the snapshot and is rendered next loop
		if err != nil && !errors.Is(err, quizsession.ErrIncomplete) {
			fmt.Fprintf(out, "! %v\n", err)
		}
	}
}

func prompt(p views.QuizPage) string {
	if p.State == quizsession.StateError {
		return "[r]etry [q]uit > "
	}
	parts := []string{}
	if n := len(p.Options); n > 0 {
		parts = append(parts, fmt.Sprintf("A-%s answer", views.Letter(n-1)))
	}
	if p.CanPrev {
		parts = append(parts, "[p]rev")
	}
	if p.ShowNext {
		parts = append(parts, "[n]ext")
	}
	if p.ShowSubmit {
		parts = append(parts, "[s]ubmit")
	}
	parts = append(parts, "[q]uit")
	return strings.Join(parts, " ") + " > "
}

func printTakeHelp(out io.Writer) {
	fmt.Fprintln(out, "  A-D   choose an option for this question")
	fmt.Fprintln(out, "  n/p   next / previous question")
	fmt.Fprintln(out, "  s     submit (every question needs an answer)")
	fmt.Fprintln(out, "  r     retry loading after an error")
	fmt.Fprintln(out, "  q     quit without submitting")
	fmt.Fprintln(out, "  x     log out and discard this attempt")
}
