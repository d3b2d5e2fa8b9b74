package authgate

import (
	"context"
	"sync"
)

// ScriptedAuthenticator is a test double that resolves challenges from
// a queued script instead of prompting. It records every prompt so
// tests can assert that capability queries never authenticate.
type ScriptedAuthenticator struct {
	mu sync.Mutex

	// AvailablePolicies controls Available per policy; absent means false.
	AvailablePolicies map[Policy]bool
	// AvailableErr, when set, is returned from every Available call.
	AvailableErr error
	// BiometryType is returned from Biometry.
	BiometryType SecurityType

	script  []ScriptedResult
	prompts []string
}

// ScriptedResult is one queued Authenticate response.
type ScriptedResult struct {
	Authenticated bool
	Err           error
}

// NewScriptedAuthenticator returns an authenticator with nothing
// enrolled and an empty script. An Authenticate call past the end of
// the script reports ErrUnavailable.
func NewScriptedAuthenticator() *ScriptedAuthenticator {
	return &ScriptedAuthenticator{
		AvailablePolicies: make(map[Policy]bool),
		BiometryType:      SecurityNone,
	}
}

// Enqueue appends a response to the challenge script.
func (a *ScriptedAuthenticator) Enqueue(r ScriptedResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.script = append(a.script, r)
}

// Prompts returns the reasons shown so far, in order.
func (a *ScriptedAuthenticator) Prompts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.prompts...)
}

func (a *ScriptedAuthenticator) Available(policy Policy) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.AvailableErr != nil {
		return false, a.AvailableErr
	}
	return a.AvailablePolicies[policy], nil
}

func (a *ScriptedAuthenticator) Biometry() SecurityType {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.BiometryType
}

func (a *ScriptedAuthenticator) Authenticate(ctx context.Context, policy Policy, reason string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.prompts = append(a.prompts, reason)
	if len(a.script) == 0 {
		return false, ErrUnavailable
	}
	next := a.script[0]
	a.script = a.script[1:]
	return next.Authenticated, next.Err
}
