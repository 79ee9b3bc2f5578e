package quizsession

import (
	"time"

	"github.com/mind-engage/classquiz/internal/apiclient"
)

// Snapshot is a read-only copy of the controller state for rendering.
type Snapshot struct {
	State     State
	QuizID    apiclient.ID
	Title     string
	Questions []apiclient.Question
	Answers   map[apiclient.ID]int
	Cursor    int
	Score     int
	StartedAt time.Time
	Failure   *Failure
	CanSubmit bool
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:     c.state,
		QuizID:    c.quizID,
		Title:     c.title,
		Questions: append([]apiclient.Question(nil), c.questions...),
		Answers:   make(map[apiclient.ID]int, len(c.answers)),
		Cursor:    c.cursor,
		Score:     c.score,
		StartedAt: c.startedAt,
		CanSubmit: c.editableLocked() == nil && c.completeLocked(),
	}
	for k, v := range c.answers {
		s.Answers[k] = v
	}
	if c.failure != nil {
		f := *c.failure
		s.Failure = &f
	}
	return s
}

func (s Snapshot) Total() int    { return len(s.Questions) }
func (s Snapshot) Answered() int { return len(s.Answers) }

// Current returns the question under the cursor.
func (s Snapshot) Current() (apiclient.Question, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Questions) {
		return apiclient.Question{}, false
	}
	return s.Questions[s.Cursor], true
}

// Selected returns the recorded option for qid.
func (s Snapshot) Selected(qid apiclient.ID) (int, bool) {
	v, ok := s.Answers[qid]
	return v, ok
}

func (s Snapshot) Percent() (int, bool) {
	if s.State != StateCompleted {
		return 0, false
	}
	return Percent(s.Score, len(s.Questions))
}
