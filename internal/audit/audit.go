// Package audit provides append-only structured logging for credential
// operations.
//
// Every operation against the secret store, and every authentication
// challenge, is recorded as newline-delimited JSON. Entries never carry
// secret values — only the (service, account) identity and the
// normalized outcome.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Action describes what happened.
type Action string

const (
	ActionCreate    Action = "credential_create"
	ActionRead      Action = "credential_read"
	ActionUpdate    Action = "credential_update"
	ActionUpsert    Action = "credential_upsert"
	ActionDelete    Action = "credential_delete"
	ActionChallenge Action = "auth_challenge"
)

// Entry is a single audit log record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Action    Action    `json:"action"`
	Service   string    `json:"service,omitempty"`
	Account   string    `json:"account,omitempty"`
	Outcome   string    `json:"outcome"`
	Actor     string    `json:"actor,omitempty"` // "cli" or "api"
	Detail    string    `json:"detail,omitempty"`
}

// recentEntries is how many entries a Logger keeps in memory for the
// daemon's recent-activity endpoint.
const recentEntries = 256

// Logger writes audit entries to an append-only file and keeps the
// most recent ones in memory. A nil Logger discards entries, so
// auditing is safe to leave unconfigured.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	recent *Ring
}

// NewLogger creates or opens an audit log file for appending.
func NewLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &Logger{file: f, path: path, recent: NewRing(recentEntries)}, nil
}

// Log writes an audit entry.
func (l *Logger) Log(entry Entry) error {
	if l == nil {
		return nil
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	l.recent.Add(entry)
	return nil
}

// Recent returns the last n logged entries, oldest first. A nil
// Logger returns nothing.
func (l *Logger) Recent(n int) []Entry {
	if l == nil {
		return nil
	}
	return l.recent.Last(n)
}

// Close closes the audit log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.file.Close()
}
