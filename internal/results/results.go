package results

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// All disables a filter.
const All = "All"

type Entry struct {
	Name       string `json:"name"`
	ClassName  string `json:"class_name"`
	Department string `json:"department"`
	Score      int    `json:"score"`
}

type Filter struct {
	Department string
	Class      string
}

func (f Filter) match(e Entry) bool {
	if f.Department != "" && f.Department != All && e.Department != f.Department {
		return false
	}
	if f.Class != "" && f.Class != All && e.ClassName != f.Class {
		return false
	}
	return true
}

type Ranked struct {
	Rank int
	Entry
}

// Rank filters entries and orders them by score, highest first. Equal
// scores keep their input order. Rank is position+1.
func Rank(entries []Entry, f Filter) []Ranked {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.match(e) {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	out := make([]Ranked, len(kept))
	for i, e := range kept {
		out[i] = Ranked{Rank: i + 1, Entry: e}
	}
	return out
}

type Stats struct {
	Participants int
	Average      float64
	Highest      int
	Lowest       int
}

// AverageText is the average with one decimal, "0.0" with no participants.
func (s Stats) AverageText() string { return strconv.FormatFloat(s.Average, 'f', 1, 64) }

func Summarize(rows []Ranked) Stats {
	if len(rows) == 0 {
		return Stats{}
	}
	st := Stats{Participants: len(rows), Highest: rows[0].Score, Lowest: rows[0].Score}
	total := 0
	for _, r := range rows {
		total += r.Score
		if r.Score > st.Highest {
			st.Highest = r.Score
		}
		if r.Score < st.Lowest {
			st.Lowest = r.Score
		}
	}
	st.Average = float64(total) / float64(len(rows))
	return st
}

// Departments lists filter options: All, then each department in order of
// first appearance.
func Departments(entries []Entry) []string {
	return options(entries, func(e Entry) string { return e.Department })
}

func Classes(entries []Entry) []string {
	return options(entries, func(e Entry) string { return e.ClassName })
}

func options(entries []Entry, field func(Entry) string) []string {
	out := []string{All}
	seen := map[string]bool{}
	for _, e := range entries {
		v := field(e)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

type Bar struct {
	Label string
	Score int
}

const labelMax = 10

// TopPerformers returns bars for the first n ranked rows. Long names are
// cut to 10 runes plus "...".
func TopPerformers(rows []Ranked, n int) []Bar {
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]Bar, 0, n)
	for _, r := range rows[:n] {
		out = append(out, Bar{Label: truncate(r.Name), Score: r.Score})
	}
	return out
}

func truncate(name string) string {
	rs := []rune(name)
	if len(rs) <= labelMax {
		return name
	}
	return string(rs[:labelMax]) + "..."
}

// WriteCSV writes rank,name,class_name,department,score rows.
func WriteCSV(w io.Writer, rows []Ranked) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "name", "class_name", "department", "score"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{strconv.Itoa(r.Rank), r.Name, r.ClassName, r.Department, strconv.Itoa(r.Score)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r.Rank, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Putter is where exported sheets go (see storage.FSStore).
type Putter interface {
	Put(key string, r io.Reader) (string, error)
}

// Export writes rows as CSV under key and returns the stored key.
func Export(p Putter, key string, rows []Ranked) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return "", err
	}
	return p.Put(key, &buf)
}
