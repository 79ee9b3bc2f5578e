package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/mind-engage/classquiz/internal/quizsession"
)

type Option struct {
	Index    int
	Letter   string
	Text     string
	Selected bool
}

// QuizPage is what both the terminal and the browser render for a
// snapshot. It carries no behaviour.
type QuizPage struct {
	State quizsession.State
	Title string

	Number       int // 1-based
	Total        int
	Answered     int
	ProgressText string
	Progress     int // percent, capped at 100

	QuestionID string
	Prompt     string
	Options    []Option

	CanPrev       bool
	ShowNext      bool
	ShowSubmit    bool
	SubmitEnabled bool
	Submitting    bool

	Error     string
	Retryable bool

	ScoreText   string
	PercentText string
}

func Letter(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}

// ParseLetter turns "b" or "B" into 1 when n options exist.
func ParseLetter(in string, n int) (int, bool) {
	in = strings.ToUpper(strings.TrimSpace(in))
	if len(in) != 1 || n < 1 {
		return 0, false
	}
	i := int(in[0]) - 'A'
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// Progress is the position-based progress bar width.
func Progress(cursor, total int) int {
	if total <= 0 {
		return 0
	}
	p := (cursor + 1) * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}

func BuildQuiz(s quizsession.Snapshot) QuizPage {
	p := QuizPage{
		State:      s.State,
		Title:      s.Title,
		Total:      s.Total(),
		Answered:   s.Answered(),
		Submitting: s.State == quizsession.StateSubmitting,
	}
	if s.Failure != nil {
		p.Error = s.Failure.Message
		p.Retryable = s.Failure.Retryable && s.State == quizsession.StateError
	}

	switch s.State {
	case quizsession.StateCompleted:
		p.ScoreText = fmt.Sprintf("%d / %d", s.Score, s.Total())
		if pct, ok := s.Percent(); ok {
			p.PercentText = fmt.Sprintf("%d%%", pct)
		}
		return p
	case quizsession.StateReady, quizsession.StateInProgress, quizsession.StateSubmitting:
	default:
		return p
	}

	q, ok := s.Current()
	if !ok {
		return p
	}
	p.Number = s.Cursor + 1
	p.ProgressText = fmt.Sprintf("Question %d of %d", p.Number, p.Total)
	p.Progress = Progress(s.Cursor, p.Total)
	p.QuestionID = q.ID.String()
	p.Prompt = q.Text
	sel, has := s.Selected(q.ID)
	for i, o := range q.Options {
		p.Options = append(p.Options, Option{Index: i, Letter: Letter(i), Text: o, Selected: has && sel == i})
	}
	p.CanPrev = s.Cursor > 0 && !p.Submitting
	last := s.Cursor == p.Total-1
	p.ShowNext = !last
	p.ShowSubmit = last
	p.SubmitEnabled = s.CanSubmit
	return p
}

// RenderQuiz writes the terminal form of p.
func RenderQuiz(w io.Writer, p QuizPage) {
	switch p.State {
	case quizsession.StateIdle, quizsession.StateLoading:
		fmt.Fprintln(w, "Loading quiz...")
		return
	case quizsession.StateRedirect:
		fmt.Fprintln(w, "You are not logged in. Run: quizctl login <register-number>")
		return
	case quizsession.StateNoQuestions:
		fmt.Fprintln(w, "No Questions Available")
		fmt.Fprintln(w, "There are no questions available for this quiz.")
		return
	case quizsession.StateError:
		fmt.Fprintf(w, "Error: %s\n", p.Error)
		if p.Retryable {
			fmt.Fprintln(w, "Type r to retry or q to quit.")
		}
		return
	case quizsession.StateCompleted:
		fmt.Fprintln(w, "Quiz Completed!")
		fmt.Fprintf(w, "Your score: %s\n", p.ScoreText)
		if p.PercentText != "" {
			fmt.Fprintln(w, p.PercentText)
		}
		return
	}

	fmt.Fprintln(w)
	if p.Title != "" {
		fmt.Fprintf(w, "%s\n", p.Title)
	}
	fmt.Fprintf(w, "%s  [%s] %d%%\n", p.ProgressText, bar(p.Progress, 20), p.Progress)
	if p.Error != "" {
		fmt.Fprintf(w, "! %s\n", p.Error)
	}
	fmt.Fprintf(w, "\n%s\n\n", p.Prompt)
	for _, o := range p.Options {
		mark := " "
		if o.Selected {
			mark = "*"
		}
		fmt.Fprintf(w, " %s %s. %s\n", mark, o.Letter, o.Text)
	}
	fmt.Fprintf(w, "\nAnswered %d of %d", p.Answered, p.Total)
	if p.Submitting {
		fmt.Fprint(w, "  (submitting...)")
	}
	fmt.Fprintln(w)
}

func bar(pct, width int) string {
	n := pct * width / 100
	return strings.Repeat("#", n) + strings.Repeat(".", width-n)
}
