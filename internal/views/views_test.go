package views

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/quizsession"
	"github.com/mind-engage/classquiz/internal/results"
)

func snapshot(state quizsession.State, n, cursor int) quizsession.Snapshot {
	s := quizsession.Snapshot{State: state, Title: "Weekly", Cursor: cursor, Answers: map[apiclient.ID]int{}}
	for i := 0; i < n; i++ {
		s.Questions = append(s.Questions, apiclient.Question{
			ID:      apiclient.ID(string(rune('a' + i))),
			Text:    "prompt " + string(rune('a'+i)),
			Options: []string{"one", "two", "three", "four"},
		})
	}
	return s
}

func TestProgressIsCapped(t *testing.T) {
	if Progress(0, 4) != 25 || Progress(3, 4) != 100 || Progress(9, 4) != 100 || Progress(0, 0) != 0 {
		t.Fatalf("progress mismatch: %d %d %d", Progress(0, 4), Progress(3, 4), Progress(9, 4))
	}
}

func TestParseLetter(t *testing.T) {
	if i, ok := ParseLetter(" c ", 4); !ok || i != 2 {
		t.Fatalf("c = %d %v", i, ok)
	}
	for _, in := range []string{"e", "", "ab", "1"} {
		if _, ok := ParseLetter(in, 4); ok {
			t.Fatalf("%q accepted", in)
		}
	}
	if Letter(3) != "D" {
		t.Fatalf("letter = %s", Letter(3))
	}
}

func TestBuildQuizInProgress(t *testing.T) {
	s := snapshot(quizsession.StateInProgress, 3, 1)
	s.Answers["b"] = 2
	p := BuildQuiz(s)
	if p.ProgressText != "Question 2 of 3" || p.Progress != 66 {
		t.Fatalf("progress = %q %d", p.ProgressText, p.Progress)
	}
	if p.Prompt != "prompt b" || len(p.Options) != 4 || !p.Options[2].Selected || p.Options[0].Selected {
		t.Fatalf("page = %+v", p)
	}
	if !p.CanPrev || !p.ShowNext || p.ShowSubmit {
		t.Fatalf("navigation flags = %+v", p)
	}

	last := BuildQuiz(snapshot(quizsession.StateInProgress, 3, 2))
	if last.ShowNext || !last.ShowSubmit || last.SubmitEnabled {
		t.Fatalf("last question flags = %+v", last)
	}
}

func TestBuildQuizCompleted(t *testing.T) {
	cases := []struct {
		score, n int
		want     string
	}{{7, 10, "70%"}, {0, 5, "0%"}, {4, 4, "100%"}}
	for _, tc := range cases {
		s := snapshot(quizsession.StateCompleted, tc.n, 0)
		s.Score = tc.score
		p := BuildQuiz(s)
		if p.PercentText != tc.want {
			t.Fatalf("%d/%d = %q, want %q", tc.score, tc.n, p.PercentText, tc.want)
		}
		var buf bytes.Buffer
		RenderQuiz(&buf, p)
		if !strings.Contains(buf.String(), "Quiz Completed!") || !strings.Contains(buf.String(), p.ScoreText) {
			t.Fatalf("render = %q", buf.String())
		}
	}
}

func TestRenderErrorShowsRetryHint(t *testing.T) {
	s := snapshot(quizsession.StateError, 0, 0)
	s.Failure = &quizsession.Failure{Kind: quizsession.KindServer, Message: "failed to load quiz", Retryable: true}
	var buf bytes.Buffer
	RenderQuiz(&buf, BuildQuiz(s))
	if !strings.Contains(buf.String(), "failed to load quiz") || !strings.Contains(buf.String(), "retry") {
		t.Fatalf("render = %q", buf.String())
	}
}

func TestBuildAndRenderResults(t *testing.T) {
	entries := []results.Entry{
		{Name: "Asha", ClassName: "1st year", Department: "CSE", Score: 4},
		{Name: "Bartholomew Ray", ClassName: "1st year", Department: "IT", Score: 8},
	}
	p := BuildResults("7", entries, results.Filter{})
	if p.Filter.Department != results.All || len(p.Rows) != 2 || p.Rows[0].Name != "Bartholomew Ray" {
		t.Fatalf("page = %+v", p)
	}
	if p.BarWidth(8) != 100 || p.BarWidth(4) != 50 {
		t.Fatalf("bar widths = %d %d", p.BarWidth(8), p.BarWidth(4))
	}
	var buf bytes.Buffer
	if err := RenderResults(&buf, p); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Participants: 2", "Average: 6.0", "Bartholome...", "CSE"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckRegistration(t *testing.T) {
	r, err := CheckRegistration(apiclient.Registration{
		Name: "  Asha ", RegisterNumber: " R1 ", ClassName: "3rd year", Section: "C", Department: "AI&DS",
	})
	if err != nil || r.Name != "Asha" || r.RegisterNumber != "R1" {
		t.Fatalf("got %+v %v", r, err)
	}
	bad := []apiclient.Registration{
		{RegisterNumber: "R1", ClassName: "1st year", Section: "A", Department: "CSE"},
		{Name: "A", RegisterNumber: "R1", ClassName: "5th year", Section: "A", Department: "CSE"},
		{Name: "A", RegisterNumber: "R1", ClassName: "1st year", Section: "E", Department: "CSE"},
		{Name: "A", RegisterNumber: "R1", ClassName: "1st year", Section: "A", Department: "MBA"},
	}
	for _, b := range bad {
		if _, err := CheckRegistration(b); err == nil {
			t.Fatalf("%+v accepted", b)
		}
	}
}
