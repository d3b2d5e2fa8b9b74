// Package account defines the value types identifying a stored credential.
//
// A credential is keyed by (service, account). Uniqueness of the pair is
// enforced by the underlying secret store, not here; this package only
// validates that a request is well formed before any store or
// authentication call is attempted.
package account

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrEmptyService is returned when a request omits the service name.
	ErrEmptyService = errors.New("service name must not be empty")
	// ErrEmptyAccount is returned when a request omits the account name.
	ErrEmptyAccount = errors.New("account name must not be empty")
	// ErrInvalidPassword is returned when a password is not valid UTF-8.
	ErrInvalidPassword = errors.New("password must be valid UTF-8")
)

// Key identifies a credential entry within the store.
type Key struct {
	Service string
	Account string
}

// Validate checks the key's invariants.
func (k Key) Validate() error {
	if k.Service == "" {
		return ErrEmptyService
	}
	if k.Account == "" {
		return ErrEmptyAccount
	}
	return nil
}

// Credential is a write payload: a key plus an opaque password.
// The password bytes are produced by UTF-8 encoding at the boundary;
// the store never interprets them.
type Credential struct {
	Key      Key
	Password []byte
}

// NewCredential builds a validated credential from boundary strings.
func NewCredential(service, acct, password string) (Credential, error) {
	c := Credential{
		Key:      Key{Service: service, Account: acct},
		Password: []byte(password),
	}
	return c, c.Validate()
}

// Validate checks the credential's invariants. An empty password is
// permitted; a malformed one is a boundary error, not a store error.
func (c Credential) Validate() error {
	if err := c.Key.Validate(); err != nil {
		return err
	}
	if !utf8.Valid(c.Password) {
		return ErrInvalidPassword
	}
	return nil
}
