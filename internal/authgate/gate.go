// Package authgate decides whether an operation is gated behind live
// device authentication and runs the interactive challenge.
//
// The gate owns one authentication context. A challenge suspends the
// caller until the user completes or dismisses the OS prompt; while one
// challenge is in flight, a second on the same gate is rejected rather
// than interleaved. Capability queries never prompt.
package authgate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/keyhaven/keyhaven/internal/outcome"
)

// Policy selects which device-owner verification methods satisfy a
// challenge.
type Policy string

const (
	// PolicyBiometricsOnly accepts only an enrolled biometric.
	PolicyBiometricsOnly Policy = "biometricsOnly"
	// PolicyDeviceOwner accepts any device-owner method, biometric or
	// passcode.
	PolicyDeviceOwner Policy = "deviceOwnerAnyMethod"
)

// SecurityType names the strongest enrolled device-owner verification
// method.
type SecurityType string

const (
	SecurityFace      SecurityType = "face"
	SecurityTouch     SecurityType = "touch"
	SecurityBiometric SecurityType = "biometric"
	SecurityPasscode  SecurityType = "passcode"
	SecurityNone      SecurityType = "none"
)

// Sentinel errors an Authenticator returns from Authenticate. Anything
// else is treated as an opaque native failure.
var (
	// ErrUserCanceled is returned when the user dismisses the prompt.
	ErrUserCanceled = errors.New("user canceled authentication")
	// ErrUnavailable is returned when the policy cannot be evaluated on
	// this device: nothing enrolled, biometry locked out, or no
	// platform support at all.
	ErrUnavailable = errors.New("device authentication not available")
)

// Authenticator is the OS-native device authentication capability.
//
// Available reports whether a policy is currently satisfiable and must
// never prompt. Authenticate runs the interactive challenge and blocks
// until it resolves. Biometry names the biometric the hardware offers,
// regardless of enrollment.
type Authenticator interface {
	Available(policy Policy) (bool, error)
	Authenticate(ctx context.Context, policy Policy, reason string) (bool, error)
	Biometry() SecurityType
}

// Gate wraps an Authenticator with challenge exclusivity and optional
// grace-window reuse of a prior authentication.
type Gate struct {
	auth        Authenticator
	reuseWindow time.Duration
	logger      *slog.Logger

	mu          sync.Mutex // held for the full duration of a challenge
	lastSuccess time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithReuseWindow sets how long a successful challenge may be reused
// when the caller opts in with allowReuse.
func WithReuseWindow(d time.Duration) Option {
	return func(g *Gate) { g.reuseWindow = d }
}

// DefaultReuseWindow bounds reuse of a prior authentication. Matches
// the ceiling the OS applies to its own authentication grace period.
const DefaultReuseWindow = 30 * time.Second

// New creates a gate over the given authenticator.
func New(auth Authenticator, opts ...Option) *Gate {
	g := &Gate{
		auth:        auth,
		reuseWindow: DefaultReuseWindow,
		logger:      slog.With("component", "authgate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanAuthenticate reports whether the policy is currently satisfiable.
// It never prompts and never fails: a capability check that itself
// errors reports false, and the underlying error is logged rather than
// surfaced.
func (g *Gate) CanAuthenticate(policy Policy) bool {
	ok, err := g.auth.Available(policy)
	if err != nil {
		g.logger.Debug("capability check failed", "policy", policy, "error", err)
		return false
	}
	return ok
}

// SecurityType probes enrolled verification methods from strongest to
// weakest without prompting.
func (g *Gate) SecurityType() SecurityType {
	if ok, err := g.auth.Available(PolicyBiometricsOnly); err == nil && ok {
		if bio := g.auth.Biometry(); bio != SecurityNone {
			return bio
		}
		return SecurityBiometric
	}
	if ok, err := g.auth.Available(PolicyDeviceOwner); err == nil && ok {
		return SecurityPasscode
	}
	return SecurityNone
}

// Challenge runs an interactive authentication challenge and blocks
// until the user resolves it. With allowReuse, a success within the
// reuse window short-circuits to Success(true) without prompting;
// otherwise every call forces a fresh prompt.
//
// Only one challenge may be in flight per gate. A concurrent call
// returns Failure rather than interleaving prompts on the same
// authentication context.
func (g *Gate) Challenge(ctx context.Context, policy Policy, reason string, allowReuse bool) outcome.Outcome[bool] {
	if !g.mu.TryLock() {
		return outcome.Failure[bool]("challenge_in_progress", "another authentication challenge is already running")
	}
	defer g.mu.Unlock()

	if allowReuse && !g.lastSuccess.IsZero() && time.Since(g.lastSuccess) < g.reuseWindow {
		g.logger.Debug("reusing prior authentication", "age", time.Since(g.lastSuccess))
		return outcome.Success(true)
	}

	authenticated, err := g.auth.Authenticate(ctx, policy, reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserCanceled):
			return outcome.UserCanceled[bool]()
		case errors.Is(err, ErrUnavailable):
			return outcome.Unavailable[bool](err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return outcome.UserCanceled[bool]()
		default:
			return outcome.Failure[bool]("authentication_error", err.Error())
		}
	}
	if !authenticated {
		// Rare: most platforms pair a false result with an error.
		return outcome.Success(false)
	}

	g.lastSuccess = time.Now()
	return outcome.Success(true)
}
