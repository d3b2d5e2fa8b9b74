// Package config loads keyhaven configuration from
// ~/.keyhaven/config.yaml and holds the mutable runtime view of the
// settings that boundary methods may change while the daemon runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CancelPolicy decides how a user-canceled read surfaces at the
// boundary. Source variants disagree; both behaviors are supported.
type CancelPolicy string

const (
	// CancelReturnsNull folds a canceled read into a null result.
	CancelReturnsNull CancelPolicy = "null"
	// CancelReturnsError propagates a canceled read as a typed error.
	CancelReturnsError CancelPolicy = "error"
)

// DefaultReason is shown in authentication prompts until a caller
// installs a localization model.
const DefaultReason = "authenticate to access your passwords"

// Duration wraps time.Duration for YAML unmarshaling from strings like "10s", "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Config holds the persistent configuration.
type Config struct {
	// Reason is the localized string shown in authentication prompts.
	Reason string `yaml:"reason"`
	// CancelPolicy selects null-result or error on canceled reads.
	CancelPolicy CancelPolicy `yaml:"cancel_policy"`
	// SecretClass selects generic or internet keychain items.
	SecretClass string `yaml:"secret_class"`
	// BiometricsRequired restricts challenges to biometrics only.
	BiometricsRequired bool `yaml:"biometrics_required"`
	// AllowReuse permits reusing a recent authentication by default.
	AllowReuse bool `yaml:"allow_reuse"`
	// ReuseWindow bounds how long a prior authentication is reusable.
	ReuseWindow Duration `yaml:"reuse_window"`
	// GateReads challenges the user before reads touch the store.
	GateReads bool `yaml:"gate_reads"`
	// SocketPath is where the API daemon listens.
	SocketPath string `yaml:"socket_path"`
	// AuditLog is the audit file path; empty disables auditing.
	AuditLog string `yaml:"audit_log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Reason:       DefaultReason,
		CancelPolicy: CancelReturnsNull,
		SecretClass:  "generic",
		ReuseWindow:  Duration{30 * time.Second},
		GateReads:    true,
		SocketPath:   defaultHomePath("keyhaven.sock"),
		AuditLog:     defaultHomePath("audit.log"),
	}
}

// DefaultPath returns the default config file path: ~/.keyhaven/config.yaml.
func DefaultPath() string {
	return defaultHomePath("config.yaml")
}

func defaultHomePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".keyhaven", name)
}

// Load reads a YAML config file from path, filling unset fields with
// defaults. A missing file returns the defaults and no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Reason == "" {
		cfg.Reason = DefaultReason
	}
	if cfg.CancelPolicy == "" {
		cfg.CancelPolicy = CancelReturnsNull
	}
	if cfg.CancelPolicy != CancelReturnsNull && cfg.CancelPolicy != CancelReturnsError {
		return nil, fmt.Errorf("parsing %s: unknown cancel_policy %q", path, cfg.CancelPolicy)
	}
	if cfg.ReuseWindow.Duration <= 0 {
		cfg.ReuseWindow = Duration{30 * time.Second}
	}
	return cfg, nil
}
