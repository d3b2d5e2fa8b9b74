//go:build !darwin

package store

// NewSystemBackend returns the OS keyring backend. The secret class is
// a Keychain concept; the keyring API has no equivalent attribute.
func NewSystemBackend(class Class) Backend {
	return NewKeyringBackend()
}
