//go:build darwin

package store

import (
	"errors"
	"fmt"

	gokeychain "github.com/keybase/go-keychain"

	"github.com/keyhaven/keyhaven/internal/account"
	"github.com/keyhaven/keyhaven/internal/policy"
)

// errSecUserCanceled is not among the library's named errors.
const errorUserCanceled = gokeychain.Error(-128)

// KeychainBackend stores credentials in the macOS Keychain as
// generic or internet passwords keyed by (service, account).
type KeychainBackend struct {
	class Class
}

// NewKeychainBackend creates a Keychain-backed store for the given
// secret class.
func NewKeychainBackend(class Class) *KeychainBackend {
	return &KeychainBackend{class: class}
}

func (b *KeychainBackend) secClass() gokeychain.SecClass {
	if b.class == ClassInternet {
		return gokeychain.SecClassInternetPassword
	}
	return gokeychain.SecClassGenericPassword
}

func (b *KeychainBackend) query(key account.Key) gokeychain.Item {
	item := gokeychain.NewItem()
	item.SetSecClass(b.secClass())
	item.SetService(key.Service)
	item.SetAccount(key.Account)
	return item
}

// Add stores a new entry with the policy's attributes applied. The
// user-presence requirement is enforced by the authentication gate in
// front of reads; the keychain item itself carries the accessible
// scope and the synchronizable flag.
func (b *KeychainBackend) Add(cred account.Credential, pol policy.AccessPolicy) error {
	accessible, err := accessibleFor(pol.Scope)
	if err != nil {
		return &AccessControlError{Err: err}
	}

	item := b.query(cred.Key)
	item.SetLabel(fmt.Sprintf("keyhaven: %s/%s", cred.Key.Service, cred.Key.Account))
	item.SetData(cred.Password)
	item.SetAccessible(accessible)
	if pol.Synchronizable {
		item.SetSynchronizable(gokeychain.SynchronizableYes)
	} else {
		item.SetSynchronizable(gokeychain.SynchronizableNo)
	}

	if err := gokeychain.AddItem(item); err != nil {
		return b.normalize("add", cred.Key, err)
	}
	return nil
}

func (b *KeychainBackend) Lookup(key account.Key) ([]byte, error) {
	query := b.query(key)
	query.SetMatchLimit(gokeychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := gokeychain.QueryItem(query)
	if err != nil {
		return nil, b.normalize("lookup", key, err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0].Data, nil
}

func (b *KeychainBackend) Update(cred account.Credential) error {
	update := gokeychain.NewItem()
	update.SetData(cred.Password)

	if err := gokeychain.UpdateItem(b.query(cred.Key), update); err != nil {
		return b.normalize("update", cred.Key, err)
	}
	return nil
}

func (b *KeychainBackend) Remove(key account.Key) error {
	if err := gokeychain.DeleteItem(b.query(key)); err != nil {
		return b.normalize("remove", key, err)
	}
	return nil
}

// normalize maps the library's OSStatus-derived errors onto the
// backend sentinel vocabulary.
func (b *KeychainBackend) normalize(op string, key account.Key, err error) error {
	switch {
	case errors.Is(err, gokeychain.ErrorItemNotFound):
		return ErrNotFound
	case errors.Is(err, gokeychain.ErrorDuplicateItem):
		return ErrDuplicate
	case errors.Is(err, errorUserCanceled):
		return ErrUserCanceled
	default:
		backendLogger.Debug("keychain call failed", "op", op,
			"service", key.Service, "account", key.Account, "error", err)
		return fmt.Errorf("keychain %s %s/%s: %w", op, key.Service, key.Account, err)
	}
}

func accessibleFor(scope policy.Scope) (gokeychain.Accessible, error) {
	switch scope {
	case policy.ScopeWhenPasscodeSet:
		return gokeychain.AccessibleWhenPasscodeSetThisDeviceOnly, nil
	case policy.ScopeWhenUnlocked:
		return gokeychain.AccessibleWhenUnlockedThisDeviceOnly, nil
	default:
		return gokeychain.AccessibleDefault, fmt.Errorf("unsupported accessible scope %q", scope)
	}
}
