package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/keyhaven/keyhaven/internal/account"
	"github.com/keyhaven/keyhaven/internal/authgate"
	"github.com/keyhaven/keyhaven/internal/outcome"
	"github.com/keyhaven/keyhaven/internal/policy"
)

// AuthRequest carries the per-call authentication configuration for a
// gated read: which policy to challenge with, the localized reason
// shown in the prompt, and whether a recent success may be reused.
type AuthRequest struct {
	Policy     authgate.Policy
	Reason     string
	AllowReuse bool
}

// Adapter turns backend calls into credential operation outcomes.
//
// When constructed with a gate and gated reads enabled, Read challenges
// the user before the store is queried at all; a dismissed prompt
// short-circuits without touching the backend. Create, Update, Delete
// and Upsert go straight to the backend, whose own access policy may
// still prompt and report a cancel.
type Adapter struct {
	backend   Backend
	gate      *authgate.Gate
	gateReads bool
	selector  func() policy.AccessPolicy
	logger    *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithGate installs an authentication gate and enables read gating.
func WithGate(g *authgate.Gate) AdapterOption {
	return func(a *Adapter) {
		a.gate = g
		a.gateReads = true
	}
}

// WithPolicySelector overrides the access policy attached on create.
func WithPolicySelector(sel func() policy.AccessPolicy) AdapterOption {
	return func(a *Adapter) { a.selector = sel }
}

// NewAdapter creates an adapter over the given backend.
func NewAdapter(backend Backend, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		backend:  backend,
		selector: policy.ForCreate,
		logger:   slog.With("component", "store"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Create stores a new credential under the selected access policy.
// An existing entry with the same key reports DuplicateItem and leaves
// the store unchanged.
func (a *Adapter) Create(cred account.Credential) outcome.Outcome[bool] {
	pol := a.selector()
	if err := a.backend.Add(cred, pol); err != nil {
		return a.normalizeWrite("create", cred.Key, err)
	}
	a.logger.Debug("credential created", "service", cred.Key.Service, "account", cred.Key.Account)
	return outcome.Success(true)
}

// Read retrieves a credential's password. When read gating is enabled
// the challenge runs first; only an authenticated challenge reaches the
// backend. Absence reports NotFound, not an error.
func (a *Adapter) Read(ctx context.Context, key account.Key, auth AuthRequest) outcome.Outcome[string] {
	if a.gate != nil && a.gateReads {
		challenge := a.gate.Challenge(ctx, auth.Policy, auth.Reason, auth.AllowReuse)
		if !challenge.Ok() {
			return outcome.Map[bool, string](challenge)
		}
		if !challenge.Value {
			return outcome.Unauthenticated[string]()
		}
	}

	data, err := a.backend.Lookup(key)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return outcome.NotFound[string]()
		case errors.Is(err, ErrUserCanceled):
			return outcome.UserCanceled[string]()
		default:
			return outcome.Failure[string]("store_error", err.Error())
		}
	}

	password, err := decodePassword(data)
	if err != nil {
		return outcome.Failure[string]("utf8_decode_error", err.Error())
	}
	return outcome.Success(password)
}

// Update replaces the password of an existing credential. A missing
// entry reports NotFound; there is no implicit create.
func (a *Adapter) Update(cred account.Credential) outcome.Outcome[bool] {
	if err := a.backend.Update(cred); err != nil {
		return a.normalizeWrite("update", cred.Key, err)
	}
	a.logger.Debug("credential updated", "service", cred.Key.Service, "account", cred.Key.Account)
	return outcome.Success(true)
}

// Delete removes a credential. Absence is benign: deleting something
// already gone reports Success(false), never an error.
func (a *Adapter) Delete(key account.Key) outcome.Outcome[bool] {
	if err := a.backend.Remove(key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return outcome.Success(false)
		}
		return a.normalizeWrite("delete", key, err)
	}
	a.logger.Debug("credential deleted", "service", key.Service, "account", key.Account)
	return outcome.Success(true)
}

// Upsert updates an existing credential, falling through to Create only
// when the update reports NotFound. Update-first avoids a duplicate-item
// race when the entry exists, and a refresh of an existing entry keeps
// its original access policy.
func (a *Adapter) Upsert(cred account.Credential) outcome.Outcome[bool] {
	updated := a.Update(cred)
	if updated.Status != outcome.StatusNotFound {
		return updated
	}
	return a.Create(cred)
}

func (a *Adapter) normalizeWrite(op string, key account.Key, err error) outcome.Outcome[bool] {
	var ace *AccessControlError
	switch {
	case errors.Is(err, ErrDuplicate):
		return outcome.DuplicateItem[bool]()
	case errors.Is(err, ErrNotFound):
		return outcome.NotFound[bool]()
	case errors.Is(err, ErrUserCanceled):
		return outcome.UserCanceled[bool]()
	case errors.As(err, &ace):
		return outcome.Failure[bool]("access_control_error", ace.Error())
	default:
		a.logger.Debug("store operation failed", "op", op,
			"service", key.Service, "account", key.Account, "error", err)
		return outcome.Failure[bool]("store_error", err.Error())
	}
}
