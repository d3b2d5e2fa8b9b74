//go:build darwin

package store

// NewSystemBackend returns the macOS Keychain backend.
func NewSystemBackend(class Class) Backend {
	return NewKeychainBackend(class)
}
