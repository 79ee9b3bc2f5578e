package quizsession

import (
	"context"
	"sync"
	"time"

	"github.com/mind-engage/classquiz/internal/apiclient"
)

// API is the slice of the backend the controller talks to.
type API interface {
	ActiveQuiz(ctx context.Context) (apiclient.ActiveQuiz, bool, error)
	Questions(ctx context.Context, quizID apiclient.ID) ([]apiclient.Question, error)
	Submit(ctx context.Context, s apiclient.Submission) (apiclient.SubmissionResult, error)
}

// Recorder receives transition events. Implementations must not block for
// long; they run on the caller's goroutine.
type Recorder interface {
	Record(ctx context.Context, typ string, data map[string]any)
}

type Clock func() time.Time

type Option func(*Controller)

func WithClock(c Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(ctl *Controller) { ctl.rec = r }
}

// Controller owns one quiz attempt. All methods are safe for concurrent
// use; the lock is never held across a network call.
type Controller struct {
	api    API
	tokens apiclient.TokenStore
	clock  Clock
	rec    Recorder

	mu        sync.Mutex
	state     State
	gen       uint64 // bumped when a session is dropped; older responses are discarded
	closed    bool
	quizID    apiclient.ID
	title     string
	questions []apiclient.Question
	index     map[apiclient.ID]int
	answers   map[apiclient.ID]int
	cursor    int
	startedAt time.Time
	score     int
	failure   *Failure
}

func New(api API, tokens apiclient.TokenStore, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		tokens: tokens,
		clock:  time.Now,
		state:  StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load is the mount step: check for a token, fetch the active quiz, then
// its questions. The outcome is reported through Snapshot; the returned
// error only signals misuse.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	switch c.state {
	case StateIdle:
	case StateLoading:
		c.mu.Unlock()
		return ErrLoadInFlight
	default:
		c.mu.Unlock()
		return ErrAlreadyLoaded
	}
	if c.startedAt.IsZero() {
		c.startedAt = c.clock()
	}
	gen := c.beginLoadLocked()
	c.mu.Unlock()
	return c.load(ctx, gen)
}

// Retry repeats the load after a retryable failure.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if err := c.usableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state == StateLoading {
		c.mu.Unlock()
		return ErrLoadInFlight
	}
	if c.state != StateError || c.failure == nil || !c.failure.Retryable {
		c.mu.Unlock()
		return ErrNotRetryable
	}
	gen := c.beginLoadLocked()
	c.mu.Unlock()
	return c.load(ctx, gen)
}

func (c *Controller) beginLoadLocked() uint64 {
	c.state = StateLoading
	c.failure = nil
	return c.gen
}

func (c *Controller) load(ctx context.Context, gen uint64) error {
	if c.tokens != nil {
		if _, ok, err := c.tokens.Token(ctx); err != nil || !ok {
			c.mu.Lock()
			if !c.staleLocked(gen) {
				c.redirectLocked()
			}
			c.mu.Unlock()
			c.record(ctx, "session_redirected", map[string]any{"during": "load"})
			return nil
		}
	}

	aq, found, err := c.api.ActiveQuiz(ctx)
	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return nil
	}
	if err == nil && !found {
		c.failLocked(Failure{Kind: KindNotFound, Message: msgNoActiveQuiz})
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		redirected := c.loadFailedLocked(err)
		c.mu.Unlock()
		if redirected {
			c.record(ctx, "session_redirected", map[string]any{"during": "active_quiz"})
		}
		return nil
	}
	c.quizID, c.title = aq.QuizID, aq.Title
	c.mu.Unlock()

	qs, err := c.api.Questions(ctx, aq.QuizID)
	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return nil
	}
	switch {
	case err != nil && apiclient.KindOf(err) == apiclient.KindClientError && apiclient.StatusOf(err) == 404,
		err == nil && len(qs) == 0:
		c.state = StateNoQuestions
		c.failure = &Failure{Kind: KindNotFound, Message: msgNoQuestions}
		c.mu.Unlock()
		return nil
	case err != nil:
		redirected := c.loadFailedLocked(err)
		c.mu.Unlock()
		if redirected {
			c.record(ctx, "session_redirected", map[string]any{"during": "questions"})
		}
		return nil
	}

	index := make(map[apiclient.ID]int, len(qs))
	for i, q := range qs {
		if _, dup := index[q.ID]; dup {
			c.failLocked(Failure{Kind: KindServer, Message: "quiz has duplicate question ids"})
			c.mu.Unlock()
			return nil
		}
		index[q.ID] = i
	}
	c.questions = append([]apiclient.Question(nil), qs...)
	c.index = index
	c.answers = make(map[apiclient.ID]int, len(qs))
	c.cursor = 0
	c.state = StateReady
	quizID := c.quizID
	c.mu.Unlock()

	c.record(ctx, "quiz_loaded", map[string]any{"quiz_id": quizID.String(), "questions": len(qs)})
	return nil
}

// loadFailedLocked applies a load error and reports whether it redirected.
func (c *Controller) loadFailedLocked(err error) bool {
	f := classify(err, msgLoadFailed)
	if f.Kind == KindUnauthenticated {
		c.redirectLocked()
		return true
	}
	c.failLocked(f)
	return false
}

func (c *Controller) failLocked(f Failure) {
	c.state = StateError
	c.failure = &f
}

func (c *Controller) redirectLocked() {
	c.state = StateRedirect
	c.failure = &Failure{Kind: KindUnauthenticated, Message: "please log in"}
	c.gen++
}

func (c *Controller) staleLocked(gen uint64) bool {
	return c.closed || c.gen != gen
}

func (c *Controller) usableLocked() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

// editableLocked guards every mutation of answers and cursor.
func (c *Controller) editableLocked() error {
	if c.closed {
		return ErrClosed
	}
	switch c.state {
	case StateReady, StateInProgress:
		return nil
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateCompleted:
		return ErrFinished
	}
	return ErrNotReady
}

func (c *Controller) Next() error { return c.move(1) }
func (c *Controller) Prev() error { return c.move(-1) }

// move shifts the cursor by delta, clamped to the question range.
func (c *Controller) move(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	next := c.cursor + delta
	if next < 0 {
		next = 0
	}
	if next > len(c.questions)-1 {
		next = len(c.questions) - 1
	}
	c.cursor = next
	c.state = StateInProgress
	return nil
}

// Select records option for question qid, replacing any earlier choice.
func (c *Controller) Select(qid apiclient.ID, option int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return err
	}
	i, ok := c.index[qid]
	if !ok {
		return ErrUnknownQuestion
	}
	if option < 0 || option >= len(c.questions[i].Options) {
		return ErrInvalidOption
	}
	c.answers[qid] = option
	c.state = StateInProgress
	if c.failure != nil && c.failure.Kind == KindValidation {
		c.failure = nil
	}
	return nil
}

// SelectCurrent answers the question under the cursor.
func (c *Controller) SelectCurrent(option int) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	qid := c.questions[c.cursor].ID
	c.mu.Unlock()
	return c.Select(qid, option)
}

func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editableLocked() == nil && c.completeLocked()
}

func (c *Controller) completeLocked() bool {
	if len(c.answers) != len(c.questions) {
		return false
	}
	for _, q := range c.questions {
		if _, ok := c.answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Submit sends the answers once. Incomplete answers fail locally with
// ErrIncomplete; a second call while one is in flight gets
// ErrSubmitInFlight. Network outcomes land in Snapshot.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.completeLocked() {
		c.failure = &Failure{Kind: KindValidation, Message: msgIncomplete}
		c.mu.Unlock()
		return ErrIncomplete
	}
	answers := make(map[string]int, len(c.answers))
	for id, opt := range c.answers {
		answers[id.String()] = opt
	}
	elapsed := int64(c.clock().Sub(c.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	sub := apiclient.Submission{QuizID: c.quizID, Answers: answers, TimeTaken: elapsed}
	total := len(c.questions)
	c.state = StateSubmitting
	c.failure = nil
	gen := c.gen
	c.mu.Unlock()

	c.record(ctx, "submit_started", map[string]any{"quiz_id": sub.QuizID.String(), "time_taken": elapsed})
	res, err := c.api.Submit(ctx, sub)

	c.mu.Lock()
	if c.staleLocked(gen) {
		c.mu.Unlock()
		return nil
	}
	if err == nil && (res.Score < 0 || res.Score > total) {
		err = &apiclient.ServerError{Status: 200, Message: "score out of range"}
	}
	if err != nil {
		f := classify(err, msgSubmitFailed)
		if f.Kind == KindUnauthenticated {
			c.redirectLocked()
			c.mu.Unlock()
			c.record(ctx, "session_redirected", map[string]any{"during": "submit"})
			return nil
		}
		// answers and cursor are untouched; back to editing
		c.state = StateInProgress
		c.failure = &f
		c.mu.Unlock()
		c.record(ctx, "submit_failed", map[string]any{"kind": string(f.Kind), "error": err.Error()})
		return nil
	}
	c.score = res.Score
	c.state = StateCompleted
	c.mu.Unlock()

	c.record(ctx, "submit_succeeded", map[string]any{"quiz_id": sub.QuizID.String(), "score": res.Score, "total": total})
	return nil
}

// Exit ends the session for good: the token store is cleared and all
// quiz state is dropped.
func (c *Controller) Exit(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.gen++
	c.state = StateIdle
	c.quizID, c.title = "", ""
	c.questions, c.index, c.answers = nil, nil, nil
	c.cursor, c.score = 0, 0
	c.failure = nil
	c.mu.Unlock()
	if c.tokens == nil {
		return nil
	}
	return c.tokens.Clear(ctx)
}

// Close detaches the controller from its view. Responses still in flight
// are discarded when they arrive.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.gen++
	c.mu.Unlock()
}

func (c *Controller) record(ctx context.Context, typ string, data map[string]any) {
	if c.rec != nil {
		c.rec.Record(ctx, typ, data)
	}
}
