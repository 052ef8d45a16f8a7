// Package config loads the cache's configuration constants and
// agent-level settings from YAML, the way pkg/manager.Config and
// pkg/log.Config are populated in the teacher repository.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dtnkit/bpcache/pkg/bpid"
)

// Config holds the recognized configuration constants from spec.md §6
// plus the agent-level settings needed to run bpcached.
type Config struct {
	// SelfAddr is this interface's own EID, used as source/report-to on
	// generated DACS bundles and as the storage service's attach address.
	SelfAddr bpid.EID `yaml:"self_addr"`

	// DACSLifetime is how long a generated DACS bundle is valid for.
	DACSLifetime time.Duration `yaml:"dacs_lifetime"`
	// DACSOpenTime is how long a non-full DACS accumulates sequence
	// numbers before being finalized regardless of fill.
	DACSOpenTime time.Duration `yaml:"dacs_open_time"`
	// FastRetryTime is the initial retransmission backoff interval.
	FastRetryTime time.Duration `yaml:"fast_retry_time"`
	// MaxRetryTime caps the exponential retransmission backoff.
	MaxRetryTime time.Duration `yaml:"max_retry_time"`
	// DACSMaxSeqPerPayload caps the number of sequence numbers one DACS
	// payload may carry before it is finalized.
	DACSMaxSeqPerPayload int `yaml:"dacs_max_seq_per_payload"`
	// MaxSubqDepth is the sub-queue depth limit used while the
	// interface is up (0 is always used while it is down).
	MaxSubqDepth int `yaml:"max_subq_depth"`

	// AgeOutSweeps is the number of consecutive poll sweeps an idle,
	// non-custody entry may go without ACTIVITY before it is deleted.
	AgeOutSweeps int `yaml:"age_out_sweeps"`

	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig controls the logging ambient stack.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the Prometheus HTTP exporter.
type MetricsConfig struct {
	BindAddr string `yaml:"bind_addr"`
}

// Default returns a Config with the constants the original bplib
// source pins for its DACS/retry behavior, and reasonable agent
// defaults.
func Default() Config {
	return Config{
		DACSLifetime:         24 * time.Hour,
		DACSOpenTime:         10 * time.Second,
		FastRetryTime:        5 * time.Second,
		MaxRetryTime:         5 * time.Minute,
		DACSMaxSeqPerPayload: 64,
		MaxSubqDepth:         64,
		AgeOutSweeps:         2,
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			BindAddr: ":9464",
		},
	}
}

// Load reads a YAML file at path and overlays it onto Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
