package results

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func sample() []Entry {
	return []Entry{
		{Name: "Asha", ClassName: "2nd year", Department: "CSE", Score: 7},
		{Name: "Bala", ClassName: "3rd year", Department: "ECE", Score: 9},
		{Name: "Chandrasekaran", ClassName: "2nd year", Department: "CSE", Score: 9},
		{Name: "Divya", ClassName: "2nd year", Department: "IT", Score: 3},
	}
}

func TestRankSortsByScoreAndKeepsTieOrder(t *testing.T) {
	rows := Rank(sample(), Filter{})
	if len(rows) != 4 {
		t.Fatalf("len = %d", len(rows))
	}
	want := []string{"Bala", "Chandrasekaran", "Asha", "Divya"}
	for i, r := range rows {
		if r.Name != want[i] || r.Rank != i+1 {
			t.Fatalf("row %d = %+v, want %s rank %d", i, r, want[i], i+1)
		}
	}
}

func TestRankFilters(t *testing.T) {
	rows := Rank(sample(), Filter{Department: "CSE", Class: All})
	if len(rows) != 2 || rows[0].Name != "Chandrasekaran" {
		t.Fatalf("dept filter = %+v", rows)
	}
	rows = Rank(sample(), Filter{Department: "CSE", Class: "3rd year"})
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %+v", rows)
	}
}

func TestSummarize(t *testing.T) {
	st := Summarize(Rank(sample(), Filter{}))
	if st.Participants != 4 || st.Highest != 9 || st.Lowest != 3 {
		t.Fatalf("stats = %+v", st)
	}
	if st.AverageText() != "7.0" {
		t.Fatalf("average = %s", st.AverageText())
	}
	empty := Summarize(nil)
	if empty.Participants != 0 || empty.AverageText() != "0.0" {
		t.Fatalf("empty stats = %+v", empty)
	}
}

func TestFilterOptions(t *testing.T) {
	d := Departments(sample())
	if strings.Join(d, ",") != "All,CSE,ECE,IT" {
		t.Fatalf("departments = %v", d)
	}
	c := Classes(sample())
	if strings.Join(c, ",") != "All,2nd year,3rd year" {
		t.Fatalf("classes = %v", c)
	}
}

func TestTopPerformersTruncatesNames(t *testing.T) {
	bars := TopPerformers(Rank(sample(), Filter{}), 10)
	if len(bars) != 4 {
		t.Fatalf("bars = %d", len(bars))
	}
	if bars[1].Label != "Chandrasek..." {
		t.Fatalf("label = %q", bars[1].Label)
	}
	if bars[0].Label != "Bala" {
		t.Fatalf("label = %q", bars[0].Label)
	}
	if got := TopPerformers(Rank(sample(), Filter{}), 2); len(got) != 2 {
		t.Fatalf("limit not applied: %d", len(got))
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Rank(sample()[:2], Filter{})); err != nil {
		t.Fatalf("csv: %v", err)
	}
	want := "rank,name,class_name,department,score\n1,Bala,3rd year,ECE,9\n2,Asha,2nd year,CSE,7\n"
	if buf.String() != want {
		t.Fatalf("csv = %q", buf.String())
	}
}

type memPutter map[string]string

func (m memPutter) Put(key string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m[key] = string(b)
	return key, nil
}

func TestExport(t *testing.T) {
	m := memPutter{}
	key, err := Export(m, "quiz-7.csv", Rank(sample(), Filter{Department: "IT"}))
	if err != nil || key != "quiz-7.csv" {
		t.Fatalf("export = (%q, %v)", key, err)
	}
	if !strings.HasSuffix(m[key], "1,Divya,2nd year,IT,3\n") {
		t.Fatalf("content = %q", m[key])
	}
}
