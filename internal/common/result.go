package common

import (
	"fmt"
	"net/http"
)

// Kind classifies a failed service call.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindUpstream   Kind = "upstream"
	KindNetwork    Kind = "network"
	KindInternal   Kind = "internal"
)

// Failure is the error half of a Result.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []string
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.Status, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap maps the failure onto the package sentinels so callers can use
// errors.Is without switching on Kind.
func (f *Failure) Unwrap() error {
	switch {
	case f.Status == http.StatusNotFound:
		return ErrNotFound
	case f.Kind == KindValidation:
		return ErrValidation
	case f.Kind == KindAuth:
		return ErrUnauthorized
	case f.Kind == KindUpstream || f.Kind == KindNetwork:
		return ErrUpstream
	default:
		return ErrInternal
	}
}

// Result is what the client service layer returns: either a value or a
// classified failure. Callers switch on Failure.Kind instead of probing
// response bodies.
type Result[T any] struct {
	Value T
	Err   *Failure
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](kind Kind, message string) Result[T] {
	return Result[T]{Err: &Failure{Kind: kind, Message: message}}
}

func FailWith[T any](f *Failure) Result[T] {
	return Result[T]{Err: f}
}

func (r Result[T]) IsOk() bool { return r.Err == nil }

// Unwrap returns the value and a nil error, or the zero value and the failure.
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}

// KindFromStatus maps an HTTP status onto a failure kind. 2xx has no kind.
func KindFromStatus(status int) Kind {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	default:
		return KindUpstream
	}
}
