// Package apperr defines the error kinds the service distinguishes at its
// boundaries. Handlers map kinds to HTTP status codes; the job pipeline
// absorbs AnalysisError into the failed terminal state instead of returning it.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAccessDenied
	KindAnalysis
	KindStorage
)

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// Message is the single-line user-facing text, without wrapped causes.
func (e *Error) Message() string { return e.msg }

func Validation(msg string) error {
	return &Error{kind: KindValidation, msg: msg}
}

func NotFound(msg string) error {
	return &Error{kind: KindNotFound, msg: msg}
}

func AccessDenied(msg string) error {
	return &Error{kind: KindAccessDenied, msg: msg}
}

func Analysis(msg string, err error) error {
	return &Error{kind: KindAnalysis, msg: msg, err: err}
}

func Storage(msg string, err error) error {
	return &Error{kind: KindStorage, msg: msg, err: err}
}

// KindOf reports the kind of err, or KindUnknown for errors produced
// outside this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
