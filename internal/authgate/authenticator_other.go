//go:build !darwin

package authgate

import "context"

// SystemAuthenticator reports device authentication as unavailable on
// platforms without a native prompt integration. Capability queries
// return false and challenges resolve to ErrUnavailable; credential
// operations that do not gate reads are unaffected.
type SystemAuthenticator struct{}

// NewSystemAuthenticator returns the stub authenticator for this platform.
func NewSystemAuthenticator() *SystemAuthenticator {
	return &SystemAuthenticator{}
}

func (a *SystemAuthenticator) Available(policy Policy) (bool, error) {
	return false, nil
}

func (a *SystemAuthenticator) Biometry() SecurityType {
	return SecurityNone
}

func (a *SystemAuthenticator) Authenticate(ctx context.Context, policy Policy, reason string) (bool, error) {
	return false, ErrUnavailable
}
