package views

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mind-engage/classquiz/internal/apiclient"
	"github.com/mind-engage/classquiz/internal/results"
)

const topN = 10

type ResultsPage struct {
	QuizID      string
	Filter      results.Filter
	Departments []string
	Classes     []string
	Rows        []results.Ranked
	Stats       results.Stats
	Top         []results.Bar
	TopMax      int
}

func BuildResults(quizID string, entries []results.Entry, f results.Filter) ResultsPage {
	if f.Department == "" {
		f.Department = results.All
	}
	if f.Class == "" {
		f.Class = results.All
	}
	rows := results.Rank(entries, f)
	p := ResultsPage{
		QuizID:      quizID,
		Filter:      f,
		Departments: results.Departments(entries),
		Classes:     results.Classes(entries),
		Rows:        rows,
		Stats:       results.Summarize(rows),
		Top:         results.TopPerformers(rows, topN),
	}
	for _, b := range p.Top {
		if b.Score > p.TopMax {
			p.TopMax = b.Score
		}
	}
	return p
}

// BarWidth scales score against the best score to a 0..100 width.
func (p ResultsPage) BarWidth(score int) int {
	if p.TopMax <= 0 {
		return 0
	}
	return score * 100 / p.TopMax
}

func RenderResults(w io.Writer, p ResultsPage) error {
	fmt.Fprintf(w, "Results for quiz %s (department: %s, class: %s)\n\n", p.QuizID, p.Filter.Department, p.Filter.Class)
	if len(p.Rows) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	fmt.Fprintf(w, "Participants: %d  Average: %s  Highest: %d  Lowest: %d\n\n",
		p.Stats.Participants, p.Stats.AverageText(), p.Stats.Highest, p.Stats.Lowest)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tCLASS\tDEPARTMENT\tSCORE")
	for _, r := range p.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", r.Rank, r.Name, r.ClassName, r.Department, r.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nTop performers")
	tw = tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	for _, b := range p.Top {
		fmt.Fprintf(tw, "%s\t%s %d\n", b.Label, strings.Repeat("#", p.BarWidth(b.Score)*30/100), b.Score)
	}
	return tw.Flush()
}

func RenderActiveQuiz(w io.Writer, aq apiclient.AdminActiveQuiz, found bool) {
	if !found {
		fmt.Fprintln(w, "No active quiz found.")
		return
	}
	fmt.Fprintf(w, "Active quiz: %s (id %s, %s)\n", aq.Title, aq.QuizID, aq.Status)
}
