//go:build darwin

package authgate

import (
	"context"
	"fmt"
	"strings"

	touchid "github.com/ansxuman/go-touchid"
)

// SystemAuthenticator drives the macOS LocalAuthentication prompt via
// the go-touchid bridge.
type SystemAuthenticator struct{}

// NewSystemAuthenticator returns the native macOS authenticator.
func NewSystemAuthenticator() *SystemAuthenticator {
	return &SystemAuthenticator{}
}

// Available reports capability without prompting. The framework offers
// no probe short of evaluating the policy, so this assumes device-owner
// authentication is configured; an un-enrolled device surfaces as
// ErrUnavailable from the prompt itself.
func (a *SystemAuthenticator) Available(policy Policy) (bool, error) {
	switch policy {
	case PolicyBiometricsOnly, PolicyDeviceOwner:
		return true, nil
	default:
		return false, fmt.Errorf("unknown authentication policy %q", policy)
	}
}

// Biometry reports Touch ID: the only biometric shipped on Mac hardware.
func (a *SystemAuthenticator) Biometry() SecurityType {
	return SecurityTouch
}

// Authenticate runs the native prompt. go-touchid blocks until the
// prompt resolves and does not accept a context; cancellation unwinds
// when the user dismisses the dialog.
func (a *SystemAuthenticator) Authenticate(ctx context.Context, policy Policy, reason string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	deviceType := touchid.DeviceTypeAny
	if policy == PolicyBiometricsOnly {
		deviceType = touchid.DeviceTypeBiometrics
	}

	authenticated, err := touchid.Auth(deviceType, reason)
	if err != nil {
		return false, classifyNativeError(err)
	}
	return authenticated, nil
}

// classifyNativeError folds the bridge's error strings into the gate's
// sentinel vocabulary. The bridge wraps LAError descriptions, so string
// matching is the only handle available.
func classifyNativeError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "cancel"):
		return fmt.Errorf("%w: %v", ErrUserCanceled, err)
	case strings.Contains(msg, "not available"),
		strings.Contains(msg, "not enrolled"),
		strings.Contains(msg, "no identities are enrolled"),
		strings.Contains(msg, "lockout"),
		strings.Contains(msg, "passcode not set"):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}
