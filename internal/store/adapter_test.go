package store

import (
	"context"
	"errors"
	"testing"

	"github.com/keyhaven/keyhaven/internal/account"
	"github.com/keyhaven/keyhaven/internal/authgate"
	"github.com/keyhaven/keyhaven/internal/outcome"
	"github.com/keyhaven/keyhaven/internal/policy"
)

// Unit tests run against MemoryBackend — no OS keychain interaction.

func testKey() account.Key {
	return account.Key{Service: "app", Account: "user1"}
}

func testCredential(t *testing.T, password string) account.Credential {
	t.Helper()
	cred, err := account.NewCredential("app", "user1", password)
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}
	return cred
}

func TestCreateThenReadRoundTrip(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())

	if got := a.Create(testCredential(t, "s3cr3t")); !got.Ok() || !got.Value {
		t.Fatalf("Create: %+v", got)
	}
	got := a.Read(context.Background(), testKey(), AuthRequest{})
	if !got.Ok() {
		t.Fatalf("Read: %+v", got)
	}
	if got.Value != "s3cr3t" {
		t.Errorf("expected s3cr3t, got %q", got.Value)
	}
}

func TestCreateDuplicate(t *testing.T) {
	backend := NewMemoryBackend()
	a := NewAdapter(backend)

	a.Create(testCredential(t, "first"))
	got := a.Create(testCredential(t, "second"))
	if got.Status != outcome.StatusDuplicateItem {
		t.Fatalf("second create = %+v, want duplicate_item", got)
	}

	// Failed create must not have touched the existing entry.
	read := a.Read(context.Background(), testKey(), AuthRequest{})
	if read.Value != "first" {
		t.Errorf("store changed by failed create: %q", read.Value)
	}
}

func TestReadNotFound(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())

	got := a.Read(context.Background(), testKey(), AuthRequest{})
	if got.Status != outcome.StatusNotFound {
		t.Errorf("Read = %+v, want not_found", got)
	}
}

func TestUpdateMissingEntry(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())

	got := a.Update(testCredential(t, "s3cr3t"))
	if got.Status != outcome.StatusNotFound {
		t.Errorf("Update = %+v, want not_found", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())
	a.Create(testCredential(t, "s3cr3t"))

	if got := a.Delete(testKey()); !got.Ok() || !got.Value {
		t.Fatalf("first delete: %+v", got)
	}
	// Deleting something already gone is not a failure.
	if got := a.Delete(testKey()); !got.Ok() || got.Value {
		t.Fatalf("second delete: %+v, want Success(false)", got)
	}
}

func TestUpsertCreatesWhenMissing(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())

	if got := a.Upsert(testCredential(t, "s3cr3t")); !got.Ok() || !got.Value {
		t.Fatalf("Upsert: %+v", got)
	}
	if got := a.Read(context.Background(), testKey(), AuthRequest{}); got.Value != "s3cr3t" {
		t.Errorf("expected s3cr3t after upsert, got %q", got.Value)
	}
}

func TestUpsertKeepsOriginalPolicy(t *testing.T) {
	backend := NewMemoryBackend()
	a := NewAdapter(backend)

	a.Create(testCredential(t, "original"))
	created, _ := backend.Policy(testKey())

	if got := a.Upsert(testCredential(t, "refreshed")); !got.Ok() {
		t.Fatalf("Upsert: %+v", got)
	}

	after, ok := backend.Policy(testKey())
	if !ok || after != created {
		t.Errorf("upsert of existing entry changed the access policy: %+v -> %+v", created, after)
	}
	if got := a.Read(context.Background(), testKey(), AuthRequest{}); got.Value != "refreshed" {
		t.Errorf("expected refreshed, got %q", got.Value)
	}
}

// failingBackend reports a fixed error from Update to verify that
// upsert does not fall through to create on anything but NotFound.
type failingBackend struct {
	*MemoryBackend
	updateErr error
}

func (b *failingBackend) Update(cred account.Credential) error {
	return b.updateErr
}

func TestUpsertDoesNotCreateOnUpdateFailure(t *testing.T) {
	backend := &failingBackend{
		MemoryBackend: NewMemoryBackend(),
		updateErr:     errors.New("store offline"),
	}
	a := NewAdapter(backend)

	got := a.Upsert(testCredential(t, "s3cr3t"))
	if got.Status != outcome.StatusFailure {
		t.Fatalf("Upsert = %+v, want failure", got)
	}
	if backend.Contains(testKey()) {
		t.Error("upsert must not fall through to create on a non-NotFound update failure")
	}
}

func TestUpsertCanceledUpdate(t *testing.T) {
	backend := &failingBackend{
		MemoryBackend: NewMemoryBackend(),
		updateErr:     ErrUserCanceled,
	}
	a := NewAdapter(backend)

	got := a.Upsert(testCredential(t, "s3cr3t"))
	if got.Status != outcome.StatusUserCanceled {
		t.Errorf("Upsert = %+v, want user_canceled", got)
	}
}

func TestAccessControlFailureIsDistinct(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())

	// MemoryBackend accepts any policy, so exercise the mapping directly.
	got := a.normalizeWrite("create", testKey(), &AccessControlError{Err: errors.New("unsupported flag combination")})
	if got.Status != outcome.StatusFailure || got.Code != "access_control_error" {
		t.Errorf("access control failure = %+v, want access_control_error", got)
	}
}

func TestReadDecodesUTF8(t *testing.T) {
	backend := NewMemoryBackend()
	backend.Add(account.Credential{
		Key:      testKey(),
		Password: []byte{0xff, 0xfe},
	}, policy.ForCreate())
	a := NewAdapter(backend)

	got := a.Read(context.Background(), testKey(), AuthRequest{})
	if got.Status != outcome.StatusFailure || got.Code != "utf8_decode_error" {
		t.Errorf("Read = %+v, want utf8_decode_error failure", got)
	}
}

func gatedAdapter(t *testing.T, backend Backend, results ...authgate.ScriptedResult) (*Adapter, *authgate.ScriptedAuthenticator) {
	t.Helper()
	auth := authgate.NewScriptedAuthenticator()
	for _, r := range results {
		auth.Enqueue(r)
	}
	return NewAdapter(backend, WithGate(authgate.New(auth))), auth
}

func TestGatedReadChallengesFirst(t *testing.T) {
	backend := NewMemoryBackend()
	a, auth := gatedAdapter(t, backend, authgate.ScriptedResult{Authenticated: true})
	a.Create(testCredential(t, "s3cr3t"))

	got := a.Read(context.Background(), testKey(), AuthRequest{
		Policy: authgate.PolicyDeviceOwner,
		Reason: "read app password",
	})
	if !got.Ok() || got.Value != "s3cr3t" {
		t.Fatalf("gated read: %+v", got)
	}
	if prompts := auth.Prompts(); len(prompts) != 1 || prompts[0] != "read app password" {
		t.Errorf("expected one challenge with reason, got %v", prompts)
	}
}

func TestGatedReadCanceledShortCircuits(t *testing.T) {
	backend := NewMemoryBackend()
	a, _ := gatedAdapter(t, backend, authgate.ScriptedResult{Err: authgate.ErrUserCanceled})
	a.Create(testCredential(t, "s3cr3t"))

	got := a.Read(context.Background(), testKey(), AuthRequest{Policy: authgate.PolicyDeviceOwner})
	if got.Status != outcome.StatusUserCanceled {
		t.Fatalf("Read = %+v, want user_canceled", got)
	}
	// The store must remain untouched: entry still present and readable
	// through an ungated check.
	if !backend.Contains(testKey()) {
		t.Error("canceled read must leave the store untouched")
	}
}

func TestGatedReadUnauthenticated(t *testing.T) {
	a, _ := gatedAdapter(t, NewMemoryBackend(), authgate.ScriptedResult{Authenticated: false})
	a.Create(testCredential(t, "s3cr3t"))

	got := a.Read(context.Background(), testKey(), AuthRequest{Policy: authgate.PolicyDeviceOwner})
	if got.Status != outcome.StatusUnauthenticated {
		t.Errorf("Read = %+v, want unauthenticated", got)
	}
}

func TestGatedReadUnavailable(t *testing.T) {
	a, _ := gatedAdapter(t, NewMemoryBackend(), authgate.ScriptedResult{Err: authgate.ErrUnavailable})
	a.Create(testCredential(t, "s3cr3t"))

	got := a.Read(context.Background(), testKey(), AuthRequest{Policy: authgate.PolicyDeviceOwner})
	if got.Status != outcome.StatusUnavailable {
		t.Errorf("Read = %+v, want unavailable", got)
	}
}

// TestLifecycleScenario walks the full create/read/update/delete cycle.
func TestLifecycleScenario(t *testing.T) {
	a := NewAdapter(NewMemoryBackend())
	ctx := context.Background()

	if got := a.Create(testCredential(t, "s3cr3t")); !got.Ok() || !got.Value {
		t.Fatalf("create: %+v", got)
	}
	if got := a.Read(ctx, testKey(), AuthRequest{}); got.Value != "s3cr3t" {
		t.Fatalf("read: %+v", got)
	}
	if got := a.Update(testCredential(t, "s3cr3t2")); !got.Ok() || !got.Value {
		t.Fatalf("update: %+v", got)
	}
	if got := a.Read(ctx, testKey(), AuthRequest{}); got.Value != "s3cr3t2" {
		t.Fatalf("read after update: %+v", got)
	}
	if got := a.Delete(testKey()); !got.Ok() || !got.Value {
		t.Fatalf("delete: %+v", got)
	}
	if got := a.Delete(testKey()); !got.Ok() || got.Value {
		t.Fatalf("second delete: %+v", got)
	}
	if got := a.Read(ctx, testKey(), AuthRequest{}); got.Status != outcome.StatusNotFound {
		t.Fatalf("read after delete: %+v", got)
	}
}
