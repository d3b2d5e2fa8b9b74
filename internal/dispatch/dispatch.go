// Package dispatch maps boundary method calls onto credential and
// authentication operations.
//
// The dispatcher receives a method name and a raw argument bundle,
// validates both before any store or authentication call, and produces
// exactly one typed result or one typed error. Recoverable outcomes
// (not-found, user-canceled) fold into the result wherever the
// operation's semantics allow; everything else crosses the boundary as
// an Error carrying a stable code.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/keyhaven/keyhaven/internal/account"
	"github.com/keyhaven/keyhaven/internal/audit"
	"github.com/keyhaven/keyhaven/internal/authgate"
	"github.com/keyhaven/keyhaven/internal/config"
	"github.com/keyhaven/keyhaven/internal/outcome"
	"github.com/keyhaven/keyhaven/internal/store"
)

// Boundary error codes, distinct from every store/auth outcome.
const (
	CodeBadRequest     = "bad_request"
	CodeNotImplemented = "not_implemented"
)

// Error is the only error type that crosses the boundary. Native
// platform errors never appear here; Message carries their diagnostics.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func badRequest(format string, args ...any) *Error {
	return &Error{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

// outcomeError converts a non-success outcome into a boundary error.
func outcomeError[T any](o outcome.Outcome[T]) *Error {
	switch o.Status {
	case outcome.StatusFailure, outcome.StatusUnavailable:
		return &Error{Code: o.Code, Message: o.Message}
	default:
		return &Error{Code: string(o.Status), Message: string(o.Status)}
	}
}

// Dispatcher is the entry point for the operation surface.
type Dispatcher struct {
	adapter *store.Adapter
	gate    *authgate.Gate
	runtime *config.Runtime
	auditor *audit.Logger
	actor   string
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAudit records every operation to the audit log.
func WithAudit(l *audit.Logger, actor string) Option {
	return func(d *Dispatcher) {
		d.auditor = l
		d.actor = actor
	}
}

// New creates a dispatcher over the given adapter, gate and runtime
// configuration.
func New(adapter *store.Adapter, gate *authgate.Gate, runtime *config.Runtime, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		adapter: adapter,
		gate:    gate,
		runtime: runtime,
		logger:  slog.With("component", "dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Methods returns the operation surface, for capability listings.
func Methods() []string {
	return []string{
		"canAuthenticate",
		"authenticate",
		"getDeviceSecurityType",
		"createAccountPassword",
		"readAccountPassword",
		"updateAccountPassword",
		"upsertAccountPassword",
		"deleteAccountPassword",
		"setLocalizationModel",
		"setBiometricsRequired",
	}
}

// Invoke runs one operation. The result is a JSON-encodable value
// (bool, string, or nil); the error, when non-nil, is always *Error.
func (d *Dispatcher) Invoke(ctx context.Context, method string, args json.RawMessage) (any, error) {
	switch method {
	case "canAuthenticate":
		return d.canAuthenticate(args)
	case "authenticate":
		return d.authenticate(ctx, args)
	case "getDeviceSecurityType":
		return string(d.gate.SecurityType()), nil
	case "createAccountPassword":
		return d.createAccountPassword(args)
	case "readAccountPassword":
		return d.readAccountPassword(ctx, args)
	case "updateAccountPassword":
		return d.updateAccountPassword(args)
	case "upsertAccountPassword":
		return d.upsertAccountPassword(args)
	case "deleteAccountPassword":
		return d.deleteAccountPassword(args)
	case "setLocalizationModel":
		return d.setLocalizationModel(args)
	case "setBiometricsRequired":
		return d.setBiometricsRequired(args)
	default:
		return nil, &Error{Code: CodeNotImplemented, Message: fmt.Sprintf("method %q not recognized", method)}
	}
}

type accountArgs struct {
	ServiceName string  `json:"serviceName"`
	AccountName string  `json:"accountName"`
	Password    *string `json:"password"`
}

func parseAccountArgs(args json.RawMessage, needPassword bool) (accountArgs, *Error) {
	var a accountArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return a, badRequest("malformed arguments: %v", err)
		}
	}
	if a.ServiceName == "" {
		return a, badRequest("serviceName is required")
	}
	if a.AccountName == "" {
		return a, badRequest("accountName is required")
	}
	if needPassword && a.Password == nil {
		return a, badRequest("password is required")
	}
	return a, nil
}

func (a accountArgs) key() account.Key {
	return account.Key{Service: a.ServiceName, Account: a.AccountName}
}

func (a accountArgs) credential() (account.Credential, *Error) {
	cred, err := account.NewCredential(a.ServiceName, a.AccountName, *a.Password)
	if err != nil {
		return cred, badRequest("%v", err)
	}
	return cred, nil
}

type authArgs struct {
	Policy     string `json:"policy"`
	AllowReuse *bool  `json:"allowReuse"`
}

func parseAuthArgs(args json.RawMessage) (authArgs, *Error) {
	var a authArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return a, badRequest("malformed arguments: %v", err)
		}
	}
	return a, nil
}

// challengePolicy resolves the policy for a call: an explicit argument
// wins, otherwise the biometrics-required toggle decides.
func (d *Dispatcher) challengePolicy(arg string, snap config.Snapshot) (authgate.Policy, *Error) {
	switch arg {
	case "":
		if snap.BiometricsRequired {
			return authgate.PolicyBiometricsOnly, nil
		}
		return authgate.PolicyDeviceOwner, nil
	case string(authgate.PolicyBiometricsOnly):
		return authgate.PolicyBiometricsOnly, nil
	case string(authgate.PolicyDeviceOwner):
		return authgate.PolicyDeviceOwner, nil
	default:
		return "", badRequest("unknown policy %q", arg)
	}
}

func (d *Dispatcher) canAuthenticate(args json.RawMessage) (any, error) {
	a, errb := parseAuthArgs(args)
	if errb != nil {
		return nil, errb
	}
	pol, errb := d.challengePolicy(a.Policy, d.runtime.Snapshot())
	if errb != nil {
		return nil, errb
	}
	return d.gate.CanAuthenticate(pol), nil
}

func (d *Dispatcher) authenticate(ctx context.Context, args json.RawMessage) (any, error) {
	a, errb := parseAuthArgs(args)
	if errb != nil {
		return nil, errb
	}
	snap := d.runtime.Snapshot()
	pol, errb := d.challengePolicy(a.Policy, snap)
	if errb != nil {
		return nil, errb
	}
	allowReuse := snap.AllowReuse
	if a.AllowReuse != nil {
		allowReuse = *a.AllowReuse
	}

	got := d.gate.Challenge(ctx, pol, snap.Reason, allowReuse)
	d.record(audit.ActionChallenge, account.Key{}, got.Status)
	if !got.Ok() {
		return nil, outcomeError(got)
	}
	return got.Value, nil
}

func (d *Dispatcher) createAccountPassword(args json.RawMessage) (any, error) {
	a, errb := parseAccountArgs(args, true)
	if errb != nil {
		return nil, errb
	}
	cred, errb := a.credential()
	if errb != nil {
		return nil, errb
	}

	got := d.adapter.Create(cred)
	d.record(audit.ActionCreate, cred.Key, got.Status)
	return writeResult(got)
}

func (d *Dispatcher) readAccountPassword(ctx context.Context, args json.RawMessage) (any, error) {
	a, errb := parseAccountArgs(args, false)
	if errb != nil {
		return nil, errb
	}
	snap := d.runtime.Snapshot()
	pol, _ := d.challengePolicy("", snap)

	got := d.adapter.Read(ctx, a.key(), store.AuthRequest{
		Policy:     pol,
		Reason:     snap.Reason,
		AllowReuse: snap.AllowReuse,
	})
	d.record(audit.ActionRead, a.key(), got.Status)

	switch got.Status {
	case outcome.StatusSuccess:
		return got.Value, nil
	case outcome.StatusNotFound:
		return nil, nil
	case outcome.StatusUserCanceled, outcome.StatusUnauthenticated:
		if snap.CancelPolicy == config.CancelReturnsError {
			return nil, outcomeError(got)
		}
		return nil, nil
	default:
		return nil, outcomeError(got)
	}
}

func (d *Dispatcher) updateAccountPassword(args json.RawMessage) (any, error) {
	a, errb := parseAccountArgs(args, true)
	if errb != nil {
		return nil, errb
	}
	cred, errb := a.credential()
	if errb != nil {
		return nil, errb
	}

	got := d.adapter.Update(cred)
	d.record(audit.ActionUpdate, cred.Key, got.Status)
	return writeResult(got)
}

func (d *Dispatcher) upsertAccountPassword(args json.RawMessage) (any, error) {
	a, errb := parseAccountArgs(args, true)
	if errb != nil {
		return nil, errb
	}
	cred, errb := a.credential()
	if errb != nil {
		return nil, errb
	}

	got := d.adapter.Upsert(cred)
	d.record(audit.ActionUpsert, cred.Key, got.Status)
	return writeResult(got)
}

func (d *Dispatcher) deleteAccountPassword(args json.RawMessage) (any, error) {
	a, errb := parseAccountArgs(args, false)
	if errb != nil {
		return nil, errb
	}

	got := d.adapter.Delete(a.key())
	d.record(audit.ActionDelete, a.key(), got.Status)
	return writeResult(got)
}

type localizationArgs struct {
	Reason string `json:"reason"`
}

func (d *Dispatcher) setLocalizationModel(args json.RawMessage) (any, error) {
	var a localizationArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, badRequest("malformed arguments: %v", err)
		}
	}
	// An absent or empty model leaves the current one in place.
	d.runtime.SetReason(a.Reason)
	return nil, nil
}

type biometricsArgs struct {
	BiometricsRequired *bool `json:"biometricsRequired"`
}

func (d *Dispatcher) setBiometricsRequired(args json.RawMessage) (any, error) {
	var a biometricsArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, badRequest("malformed arguments: %v", err)
		}
	}
	if a.BiometricsRequired == nil {
		return nil, badRequest("biometricsRequired is required")
	}
	d.runtime.SetBiometricsRequired(*a.BiometricsRequired)
	return nil, nil
}

// writeResult maps a write outcome to the boundary form: true on
// success, false on a canceled prompt, a typed error otherwise.
func writeResult(got outcome.Outcome[bool]) (any, error) {
	switch got.Status {
	case outcome.StatusSuccess:
		return got.Value, nil
	case outcome.StatusUserCanceled, outcome.StatusUnauthenticated:
		return false, nil
	default:
		return nil, outcomeError(got)
	}
}

// record writes an audit entry; auditing is best-effort and a logging
// failure never blocks the operation.
func (d *Dispatcher) record(action audit.Action, key account.Key, status outcome.Status) {
	if d.auditor == nil {
		return
	}
	if err := d.auditor.Log(audit.Entry{
		Action:  action,
		Service: key.Service,
		Account: key.Account,
		Outcome: string(status),
		Actor:   d.actor,
	}); err != nil {
		d.logger.Warn("audit write failed", "action", action, "error", err)
	}
}
