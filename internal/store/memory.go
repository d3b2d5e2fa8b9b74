package store

import (
	"sync"

	"github.com/keyhaven/keyhaven/internal/account"
	"github.com/keyhaven/keyhaven/internal/policy"
)

// MemoryBackend is an in-memory implementation of Backend for testing.
// It records the access policy attached at Add time so tests can assert
// that updates never alter it.
type MemoryBackend struct {
	mu       sync.RWMutex
	secrets  map[account.Key][]byte
	policies map[account.Key]policy.AccessPolicy
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		secrets:  make(map[account.Key][]byte),
		policies: make(map[account.Key]policy.AccessPolicy),
	}
}

func (b *MemoryBackend) Add(cred account.Credential, pol policy.AccessPolicy) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.secrets[cred.Key]; ok {
		return ErrDuplicate
	}
	b.secrets[cred.Key] = append([]byte(nil), cred.Password...)
	b.policies[cred.Key] = pol
	return nil
}

func (b *MemoryBackend) Lookup(key account.Key) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.secrets[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Update(cred account.Credential) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.secrets[cred.Key]; !ok {
		return ErrNotFound
	}
	b.secrets[cred.Key] = append([]byte(nil), cred.Password...)
	return nil
}

func (b *MemoryBackend) Remove(key account.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.secrets[key]; !ok {
		return ErrNotFound
	}
	delete(b.secrets, key)
	delete(b.policies, key)
	return nil
}

// Contains reports whether an entry exists, without any gating.
func (b *MemoryBackend) Contains(key account.Key) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.secrets[key]
	return ok
}

// Policy returns the access policy recorded when the entry was created.
func (b *MemoryBackend) Policy(key account.Key) (policy.AccessPolicy, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pol, ok := b.policies[key]
	return pol, ok
}
