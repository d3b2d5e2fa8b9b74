package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/keyhaven/keyhaven/internal/audit"
	"github.com/keyhaven/keyhaven/internal/authgate"
	"github.com/keyhaven/keyhaven/internal/config"
	"github.com/keyhaven/keyhaven/internal/dispatch"
	"github.com/keyhaven/keyhaven/internal/store"
)

// stack wires the full operation pipeline: config, gate, store adapter,
// audit and dispatcher. Both the CLI commands and the serve daemon go
// through the dispatcher so boundary semantics are identical.
type stack struct {
	cfg        *config.Config
	runtime    *config.Runtime
	gate       *authgate.Gate
	dispatcher *dispatch.Dispatcher
	auditor    *audit.Logger
}

func buildStack(actor string) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	runtime := config.NewRuntime(cfg)
	gate := authgate.New(authgate.NewSystemAuthenticator(), authgate.WithReuseWindow(cfg.ReuseWindow.Duration))

	adapterOpts := []store.AdapterOption{}
	if cfg.GateReads {
		adapterOpts = append(adapterOpts, store.WithGate(gate))
	}
	adapter := store.NewAdapter(store.NewSystemBackend(store.Class(cfg.SecretClass)), adapterOpts...)

	var auditor *audit.Logger
	if cfg.AuditLog != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.AuditLog), 0700); err != nil {
			return nil, fmt.Errorf("creating audit dir: %w", err)
		}
		auditor, err = audit.NewLogger(cfg.AuditLog)
		if err != nil {
			return nil, err
		}
	}

	return &stack{
		cfg:        cfg,
		runtime:    runtime,
		gate:       gate,
		dispatcher: dispatch.New(adapter, gate, runtime, dispatch.WithAudit(auditor, actor)),
		auditor:    auditor,
	}, nil
}

func (s *stack) Close() {
	s.auditor.Close()
}
