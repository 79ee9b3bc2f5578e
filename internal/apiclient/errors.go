package apiclient

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the outcome of a call.
type Kind int

const (
	KindSuccess Kind = iota
	KindUnauthenticated
	KindClientError
	KindServerError
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	case KindTransportError:
		return "transport_error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ErrUnauthenticated is returned when a call needs a token and none is
// stored, or when the backend rejects the token with 401.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrUnsupportedFile is a local rejection; no request is made.
var ErrUnsupportedFile = errors.New("only .xlsx and .csv files are accepted")

// ClientError is a 4xx answer (other than an intercepted 401), or a 2xx
// answer whose body says status=error.
type ClientError struct {
	Status  int
	Message string
}

func (e *ClientError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("server error (status %d)", e.Status)
	}
	return fmt.Sprintf("server error (status %d): %s", e.Status, e.Message)
}

// TransportError means no usable response arrived: dial failure, timeout,
// cancellation, DNS.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return "quiz service unavailable: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// KindOf maps any error returned by this package onto the result taxonomy.
// Errors it does not recognise count as transport failures: no usable
// response was obtained.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	if errors.Is(err, ErrUnauthenticated) {
		return KindUnauthenticated
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return KindClientError
	}
	if errors.Is(err, ErrUnsupportedFile) {
		return KindClientError
	}
	var se *ServerError
	if errors.As(err, &se) {
		return KindServerError
	}
	return KindTransportError
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Status
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status
	}
	if errors.Is(err, ErrUnauthenticated) {
		return 401
	}
	return 0
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return err.Error()
}
