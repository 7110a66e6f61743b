package search

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a search produced no results.
type ErrorKind int

const (
	KindInvalidQuery ErrorKind = iota + 1
	KindNetwork
	KindParsing
	KindEmptyResults
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidQuery:
		return "invalid_query"
	case KindNetwork:
		return "network_error"
	case KindParsing:
		return "parsing_error"
	case KindEmptyResults:
		return "empty_results"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the only error type Search returns. Err keeps the underlying
// cause and is always set for KindNetwork.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindInvalidQuery:
		msg = "invalid search query"
	case KindNetwork:
		msg = "search network error"
	case KindParsing:
		msg = "could not parse search response"
	case KindEmptyResults:
		msg = "no search results"
	default:
		msg = "search error"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrInvalidQuery = &Error{Kind: KindInvalidQuery}
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrParsing      = &Error{Kind: KindParsing}
	ErrEmptyResults = &Error{Kind: KindEmptyResults}
)

// KindOf reports the classification of err if it is or wraps a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ErrBodyTooLarge is the parsing cause for a response over the body limit.
var ErrBodyTooLarge = errors.New("response too large")
