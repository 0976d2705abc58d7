// Package apperr carries the error kinds the HTTP layer turns into status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the caller
type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindForbidden
	KindPartialImport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindPartialImport:
		return "partial_import"
	default:
		return "persistence"
	}
}

// Error is a classified error with a message that is safe to show to users
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAuth          = &Error{Kind: KindAuth}
	ErrForbidden     = &Error{Kind: KindForbidden}
	ErrPersistence   = &Error{Kind: KindPersistence}
	ErrPartialImport = &Error{Kind: KindPartialImport}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Auth(msg string) error {
	return &Error{Kind: KindAuth, Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Persistence wraps a datastore failure; msg is what the user sees
func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// PartialImportError reports how far a bulk import got before failing
type PartialImportError struct {
	EventID       uint
	RowsCommitted int
	Batch         int
	Err           error
}

func (e *PartialImportError) Error() string {
	return fmt.Sprintf("import %d failed at batch %d after %d rows: %v", e.EventID, e.Batch, e.RowsCommitted, e.Err)
}

func (e *PartialImportError) Unwrap() error {
	return e.Err
}

func (e *PartialImportError) Is(target error) bool {
	return target == ErrPartialImport
}

// KindOf returns the kind of err, defaulting to persistence for unclassified errors
func KindOf(err error) Kind {
	var pe *PartialImportError
	if errors.As(err, &pe) {
		return KindPartialImport
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

// Message returns the user-facing message for err
func Message(err error) string {
	var pe *PartialImportError
	if errors.As(err, &pe) {
		return fmt.Sprintf("import stopped at batch %d; %d rows were saved", pe.Batch, pe.RowsCommitted)
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return "internal server error"
}

// Status maps err to an HTTP status code
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
