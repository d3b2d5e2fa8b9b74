package store

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/keyhaven/keyhaven/internal/account"
	"github.com/keyhaven/keyhaven/internal/policy"
)

// KeyringBackend stores credentials through the OS keyring: Credential
// Manager on Windows, Secret Service on Linux, Keychain elsewhere.
//
// The keyring API exposes neither access-control attributes nor an
// add-vs-update distinction, so the policy's scope is whatever the
// platform applies to keyring entries, and Add/Update consult the
// existing entry first. The check-then-write pair is not atomic; the
// store's own last-writer-wins semantics apply if two processes race.
type KeyringBackend struct{}

// NewKeyringBackend creates a keyring-backed store.
func NewKeyringBackend() *KeyringBackend {
	return &KeyringBackend{}
}

func (b *KeyringBackend) Add(cred account.Credential, pol policy.AccessPolicy) error {
	_, err := keyring.Get(cred.Key.Service, cred.Key.Account)
	switch {
	case err == nil:
		return ErrDuplicate
	case !errors.Is(err, keyring.ErrNotFound):
		return b.normalize("add", cred.Key, err)
	}

	if err := keyring.Set(cred.Key.Service, cred.Key.Account, string(cred.Password)); err != nil {
		return b.normalize("add", cred.Key, err)
	}
	return nil
}

func (b *KeyringBackend) Lookup(key account.Key) ([]byte, error) {
	value, err := keyring.Get(key.Service, key.Account)
	if err != nil {
		return nil, b.normalize("lookup", key, err)
	}
	return []byte(value), nil
}

func (b *KeyringBackend) Update(cred account.Credential) error {
	if _, err := keyring.Get(cred.Key.Service, cred.Key.Account); err != nil {
		return b.normalize("update", cred.Key, err)
	}
	if err := keyring.Set(cred.Key.Service, cred.Key.Account, string(cred.Password)); err != nil {
		return b.normalize("update", cred.Key, err)
	}
	return nil
}

func (b *KeyringBackend) Remove(key account.Key) error {
	if err := keyring.Delete(key.Service, key.Account); err != nil {
		return b.normalize("remove", key, err)
	}
	return nil
}

func (b *KeyringBackend) normalize(op string, key account.Key, err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	backendLogger.Debug("keyring call failed", "op", op,
		"service", key.Service, "account", key.Account, "error", err)
	return fmt.Errorf("keyring %s %s/%s: %w", op, key.Service, key.Account, err)
}
