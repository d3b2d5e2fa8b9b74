// Package outcome defines the closed result vocabulary shared by the
// secret store adapter and the authentication gate.
//
// Every native status or error from the underlying platform subsystems
// is mapped exactly once, at the adapter boundary, into one of these
// variants. Nothing downstream of the adapters ever sees a native code.
package outcome

import "fmt"

// Status classifies the result of a credential or authentication operation.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusNotFound        Status = "not_found"
	StatusUserCanceled    Status = "user_canceled"
	StatusDuplicateItem   Status = "duplicate_item"
	StatusUnauthenticated Status = "unauthenticated"
	StatusUnavailable     Status = "unavailable"
	StatusFailure         Status = "failure"
)

// Outcome is a tagged result: exactly one variant per call, no partial
// success. Value is meaningful only when Status is StatusSuccess.
// Code and Message carry diagnostics for StatusFailure and StatusUnavailable.
type Outcome[T any] struct {
	Status  Status
	Value   T
	Code    string
	Message string
}

// Success returns a successful outcome carrying v.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Status: StatusSuccess, Value: v}
}

// NotFound reports that the requested entry does not exist.
func NotFound[T any]() Outcome[T] {
	return Outcome[T]{Status: StatusNotFound}
}

// UserCanceled reports that the user dismissed an interactive prompt.
func UserCanceled[T any]() Outcome[T] {
	return Outcome[T]{Status: StatusUserCanceled}
}

// DuplicateItem reports that an entry with the same key already exists.
func DuplicateItem[T any]() Outcome[T] {
	return Outcome[T]{Status: StatusDuplicateItem}
}

// Unauthenticated reports a completed challenge that did not authenticate.
func Unauthenticated[T any]() Outcome[T] {
	return Outcome[T]{Status: StatusUnauthenticated}
}

// Unavailable reports that device authentication cannot be evaluated
// on this device (nothing enrolled, locked out, unsupported platform).
func Unavailable[T any](message string) Outcome[T] {
	return Outcome[T]{Status: StatusUnavailable, Code: string(StatusUnavailable), Message: message}
}

// Failure reports any other error, with a stable code and a diagnostic
// message derived from the native error.
func Failure[T any](code, message string) Outcome[T] {
	return Outcome[T]{Status: StatusFailure, Code: code, Message: message}
}

// Ok reports whether the outcome is a success.
func (o Outcome[T]) Ok() bool {
	return o.Status == StatusSuccess
}

// Err returns the outcome as an error for logging. Success variants
// return nil; recoverable variants stringify without a code.
func (o Outcome[T]) Err() error {
	switch o.Status {
	case StatusSuccess:
		return nil
	case StatusFailure, StatusUnavailable:
		return fmt.Errorf("%s: %s", o.Code, o.Message)
	default:
		return fmt.Errorf("%s", o.Status)
	}
}

// Map converts the non-value variants of an outcome to another value
// type, preserving status and diagnostics. It panics on success
// outcomes; callers handle those explicitly.
func Map[T, U any](o Outcome[T]) Outcome[U] {
	if o.Status == StatusSuccess {
		panic("outcome: Map called on success")
	}
	return Outcome[U]{Status: o.Status, Code: o.Code, Message: o.Message}
}
