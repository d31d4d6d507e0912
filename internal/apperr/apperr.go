// Package apperr defines the error taxonomy shared by the enrichment,
// extraction and query layers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfig
	KindFetch
	KindUpstream
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindFetch:
		return "fetch"
	case KindUpstream:
		return "upstream"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// maxDetail bounds the upstream body kept for diagnostics
const maxDetail = 200

// Error is the single error type used across the service
type Error struct {
	Kind    Kind
	Msg     string
	Status  int    // upstream HTTP status, if any
	Detail  string // truncated upstream body
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports bad or missing caller input
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Config reports missing credentials or connection parameters
func Config(msg string) error {
	return &Error{Kind: KindConfig, Msg: msg}
}

// NotFound reports that a lookup matched nothing
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Fetch reports a failed best-effort sub-fetch
func Fetch(msg string, status int, timeout bool, err error) error {
	return &Error{Kind: KindFetch, Msg: msg, Status: status, Timeout: timeout, Err: err}
}

// Upstream reports a failed model or storage call. The detail is truncated.
func Upstream(msg string, status int, detail string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Status: status, Detail: Truncate(detail, maxDetail), Err: err}
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// As returns the *Error in err's chain, if any
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknown
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status returned to API clients
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
