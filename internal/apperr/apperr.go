// Package apperr defines the failure kinds the engine reports to its callers.
//
// Every error leaving a core operation either is, or wraps, an *Error whose
// Kind tells the caller what to do next: fix the request (InvalidInput,
// InvalidLevel, NotFound), pick another action (SessionAlreadyActive,
// InsufficientContent), retry with backoff (StorageUnavailable) or report a
// bug (StorageConflict).
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInvalidLevel         Kind = "invalid_level"
	KindInvalidInput         Kind = "invalid_input"
	KindSessionAlreadyActive Kind = "session_already_active"
	KindInsufficientContent  Kind = "insufficient_content"
	KindStorageUnavailable   Kind = "storage_unavailable"
	KindStorageConflict      Kind = "storage_conflict"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidLevel         = &Error{Kind: KindInvalidLevel}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrSessionAlreadyActive = &Error{Kind: KindSessionAlreadyActive}
	ErrInsufficientContent  = &Error{Kind: KindInsufficientContent}
	ErrStorageUnavailable   = &Error{Kind: KindStorageUnavailable}
	ErrStorageConflict      = &Error{Kind: KindStorageConflict}
)

// Error is a classified failure. Op names the operation that failed
// (e.g. "mastery.SetLevel"); Msg is a human-readable detail; Err is the
// underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. A target with an
// Op or Msg set must match those too, so sentinels match any error of their
// kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return t.Msg == "" || t.Msg == e.Msg
}

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the caller may retry the operation with backoff.
func Retryable(err error) bool {
	return KindOf(err) == KindStorageUnavailable
}

// InsufficientContentError carries the shortfall that made a session
// impossible to compose, so callers can decide whether to relax the request.
type InsufficientContentError struct {
	// Level is the short level, or -1 when the whole catalog is short.
	Level     int `json:"level"`
	Wanted    int `json:"wanted"`
	Available int `json:"available"`
}

func (e *InsufficientContentError) Error() string {
	if e.Level < 0 {
		return fmt.Sprintf("catalog has %d eligible questions, %d requested", e.Available, e.Wanted)
	}
	return fmt.Sprintf("level %d: %d questions wanted, %d available", e.Level, e.Wanted, e.Available)
}
