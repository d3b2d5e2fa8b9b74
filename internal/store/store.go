// Package store adapts the OS secret store to the credential operation
// vocabulary.
//
// A Backend is the native store: it persists (service, account) entries
// and reports results through a small set of sentinel errors. The
// Adapter composes the backend into create/read/update/delete/upsert
// outcomes, runs the authentication gate in front of reads where
// configured, and is the only place native store behavior is
// normalized. Nothing above the adapter sees a backend error.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/keyhaven/keyhaven/internal/account"
	"github.com/keyhaven/keyhaven/internal/policy"
)

// Sentinel errors a Backend returns. Anything else is an opaque native
// failure.
var (
	// ErrNotFound is returned when no entry exists for the key.
	ErrNotFound = errors.New("credential not found")
	// ErrDuplicate is returned by Add when an entry already exists.
	ErrDuplicate = errors.New("credential already exists")
	// ErrUserCanceled is returned when the store's own access prompt
	// was dismissed by the user.
	ErrUserCanceled = errors.New("user canceled store access")
)

// AccessControlError reports that the native access-control object for
// a create could not be constructed. No store call was attempted.
type AccessControlError struct {
	Err error
}

func (e *AccessControlError) Error() string {
	return fmt.Sprintf("constructing access control: %v", e.Err)
}

func (e *AccessControlError) Unwrap() error { return e.Err }

// Backend is the native secret store. Implementations map their
// platform status codes onto the sentinel errors above; the scope and
// presence attributes of the access policy are applied at Add time and
// never again.
type Backend interface {
	Add(cred account.Credential, pol policy.AccessPolicy) error
	Lookup(key account.Key) ([]byte, error)
	Update(cred account.Credential) error
	Remove(key account.Key) error
}

// backendLogger is shared by the platform backends for sparse debug logs.
var backendLogger = slog.With("component", "store")

// decodePassword converts stored bytes back to the boundary string.
// A decode failure is a store-integrity problem, distinct from absence.
func decodePassword(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("stored password is not valid UTF-8")
	}
	return string(data), nil
}
