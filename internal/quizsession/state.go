package quizsession

import (
	"errors"
	"math"
	"net/http"

	"github.com/mind-engage/classquiz/internal/apiclient"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateInProgress
	StateSubmitting
	StateCompleted
	StateError
	StateNoQuestions
	StateRedirect
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StateLoading:     "loading",
	StateReady:       "ready",
	StateInProgress:  "in_progress",
	StateSubmitting:  "submitting",
	StateCompleted:   "completed",
	StateError:       "error",
	StateNoQuestions: "no_questions",
	StateRedirect:    "redirect",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal states accept no further actions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateNoQuestions, StateRedirect:
		return true
	}
	return false
}

type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindServer          Kind = "server"
	KindTransport       Kind = "transport"
)

// Failure is what views show for the last failed action.
type Failure struct {
	Kind      Kind
	Message   string
	Retryable bool
}

const (
	msgNoActiveQuiz = "no active quiz available"
	msgNoQuestions  = "no questions available for this quiz"
	msgIncomplete   = "please answer all questions before submitting"
	msgLoadFailed   = "failed to load quiz, please try again"
	msgSubmitFailed = "submission failed, your answers are kept; please try again"
)

var (
	ErrIncomplete      = errors.New("quizsession: not every question has an answer")
	ErrSubmitInFlight  = errors.New("quizsession: submission already in progress")
	ErrLoadInFlight    = errors.New("quizsession: load already in progress")
	ErrAlreadyLoaded   = errors.New("quizsession: already loaded")
	ErrFinished        = errors.New("quizsession: session is finished")
	ErrClosed          = errors.New("quizsession: session closed")
	ErrNotReady        = errors.New("quizsession: no questions loaded")
	ErrNotRetryable    = errors.New("quizsession: nothing to retry")
	ErrInvalidOption   = errors.New("quizsession: option index out of range")
	ErrUnknownQuestion = errors.New("quizsession: unknown question id")
)

// classify maps a network error onto a failure, using fallback as the
// message for server and transport errors.
func classify(err error, fallback string) Failure {
	switch apiclient.KindOf(err) {
	case apiclient.KindUnauthenticated:
		return Failure{Kind: KindUnauthenticated, Message: "session expired, please log in again"}
	case apiclient.KindClientError:
		if apiclient.StatusOf(err) == http.StatusNotFound {
			return Failure{Kind: KindNotFound, Message: apiclient.Message(err)}
		}
		return Failure{Kind: KindValidation, Message: apiclient.Message(err)}
	case apiclient.KindServerError:
		return Failure{Kind: KindServer, Message: fallback, Retryable: true}
	default:
		return Failure{Kind: KindTransport, Message: fallback, Retryable: true}
	}
}

// Percent is round(score/total*100). ok is false when total is zero.
func Percent(score, total int) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	return int(math.Round(float64(score) / float64(total) * 100)), true
}
