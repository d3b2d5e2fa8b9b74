package config

import "sync"

// Runtime is the process-wide view of the settings boundary methods may
// change while running: the localization model and the challenge policy
// toggle. Reads take a snapshot so a concurrent update never splits a
// single operation's view.
type Runtime struct {
	mu sync.RWMutex

	reason             string
	cancelPolicy       CancelPolicy
	biometricsRequired bool
	allowReuse         bool
}

// NewRuntime builds the runtime view from a loaded config.
func NewRuntime(cfg *Config) *Runtime {
	return &Runtime{
		reason:             cfg.Reason,
		cancelPolicy:       cfg.CancelPolicy,
		biometricsRequired: cfg.BiometricsRequired,
		allowReuse:         cfg.AllowReuse,
	}
}

// Snapshot is one consistent view of the mutable settings.
type Snapshot struct {
	Reason             string
	CancelPolicy       CancelPolicy
	BiometricsRequired bool
	AllowReuse         bool
}

// Snapshot returns the current settings.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Reason:             r.reason,
		CancelPolicy:       r.cancelPolicy,
		BiometricsRequired: r.biometricsRequired,
		AllowReuse:         r.allowReuse,
	}
}

// SetReason installs a new localization model. An empty reason is
// ignored, mirroring the boundary's treatment of an absent model.
func (r *Runtime) SetReason(reason string) {
	if reason == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reason = reason
}

// SetBiometricsRequired toggles the challenge policy between
// biometrics-only and any device-owner method.
func (r *Runtime) SetBiometricsRequired(required bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.biometricsRequired = required
}

// Apply refreshes the runtime from a reloaded config.
func (r *Runtime) Apply(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reason = cfg.Reason
	r.cancelPolicy = cfg.CancelPolicy
	r.biometricsRequired = cfg.BiometricsRequired
	r.allowReuse = cfg.AllowReuse
}
