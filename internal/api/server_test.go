package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/keyhaven/keyhaven/internal/audit"
	"github.com/keyhaven/keyhaven/internal/authgate"
	"github.com/keyhaven/keyhaven/internal/config"
	"github.com/keyhaven/keyhaven/internal/dispatch"
	"github.com/keyhaven/keyhaven/internal/store"
)

func setupTestServer(t *testing.T) *http.Client {
	t.Helper()

	adapter := store.NewAdapter(store.NewMemoryBackend())
	gate := authgate.New(authgate.NewScriptedAuthenticator())
	runtime := config.NewRuntime(config.Default())
	return serveOn(t, NewServer(dispatch.New(adapter, gate, runtime)))
}

func serveOn(t *testing.T, srv *Server) *http.Client {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "test.sock")
	go srv.ListenUnix(sockPath)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	// Wait for the socket to be ready
	for i := 0; i < 20; i++ {
		if _, err := net.Dial("unix", sockPath); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", sockPath)
			},
		},
	}
}

func postInvoke(t *testing.T, client *http.Client, method, arguments string) (*http.Response, map[string]any) {
	t.Helper()

	body := map[string]any{"method": method}
	if arguments != "" {
		body["arguments"] = json.RawMessage(arguments)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := client.Post("http://unix/v1/invoke", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST /v1/invoke: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, decoded
}

func TestInvokeRoundTrip(t *testing.T) {
	client := setupTestServer(t)

	resp, body := postInvoke(t, client, "createAccountPassword",
		`{"serviceName":"app","accountName":"user1","password":"s3cr3t"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d, body %v", resp.StatusCode, body)
	}
	if body["result"] != true {
		t.Errorf("create result = %v", body["result"])
	}

	resp, body = postInvoke(t, client, "readAccountPassword",
		`{"serviceName":"app","accountName":"user1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read status = %d", resp.StatusCode)
	}
	if body["result"] != "s3cr3t" {
		t.Errorf("read result = %v", body["result"])
	}
}

func TestInvokeUnknownMethod(t *testing.T) {
	client := setupTestServer(t)

	resp, body := postInvoke(t, client, "rotateAccountPassword", `{}`)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
	if body["code"] != dispatch.CodeNotImplemented {
		t.Errorf("code = %v", body["code"])
	}
}

func TestInvokeValidationError(t *testing.T) {
	client := setupTestServer(t)

	resp, body := postInvoke(t, client, "createAccountPassword", `{"serviceName":"app"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body["code"] != dispatch.CodeBadRequest {
		t.Errorf("code = %v", body["code"])
	}
}

func TestInvokeDuplicateConflict(t *testing.T) {
	client := setupTestServer(t)

	postInvoke(t, client, "createAccountPassword",
		`{"serviceName":"app","accountName":"user1","password":"one"}`)
	resp, body := postInvoke(t, client, "createAccountPassword",
		`{"serviceName":"app","accountName":"user1","password":"two"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if body["code"] != "duplicate_item" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestInvokeMissingMethod(t *testing.T) {
	client := setupTestServer(t)

	resp, err := client.Post("http://unix/v1/invoke", "application/json",
		bytes.NewReader([]byte(`{"arguments":{}}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPromptMethodsAreRateLimited(t *testing.T) {
	client := setupTestServer(t)

	var limited bool
	for i := 0; i < 6; i++ {
		resp, _ := postInvoke(t, client, "authenticate", `{"allowReuse":false}`)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected a burst of challenges to hit the rate limit")
	}
}

func TestHealth(t *testing.T) {
	client := setupTestServer(t)

	resp, err := client.Get("http://unix/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestAuditRecent(t *testing.T) {
	auditor, err := audit.NewLogger(filepath.Join(t.TempDir(), "audit.log"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { auditor.Close() })

	adapter := store.NewAdapter(store.NewMemoryBackend())
	gate := authgate.New(authgate.NewScriptedAuthenticator())
	runtime := config.NewRuntime(config.Default())
	d := dispatch.New(adapter, gate, runtime, dispatch.WithAudit(auditor, "api"))
	client := serveOn(t, NewServer(d, WithAuditTrail(auditor)))

	postInvoke(t, client, "createAccountPassword",
		`{"serviceName":"app","accountName":"user1","password":"s3cr3t"}`)

	resp, err := client.Get("http://unix/v1/audit/recent?n=10")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Entries []audit.Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(body.Entries))
	}
	if body.Entries[0].Action != audit.ActionCreate || body.Entries[0].Actor != "api" {
		t.Errorf("unexpected entry: %+v", body.Entries[0])
	}
}

func TestAuditRecentNotRegisteredWithoutTrail(t *testing.T) {
	client := setupTestServer(t)

	resp, err := client.Get("http://unix/v1/audit/recent")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMethodsListing(t *testing.T) {
	client := setupTestServer(t)

	resp, err := client.Get("http://unix/v1/methods")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Methods []string `json:"methods"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range body.Methods {
		if m == "upsertAccountPassword" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected upsertAccountPassword in %v", body.Methods)
	}
}
