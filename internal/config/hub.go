// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "60s" or "5m" parse with
// time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// HubConfig is the complete hub.yaml configuration.
type HubConfig struct {
	Listen       ListenInfo      `yaml:"listen"`
	Logging      LoggingInfo     `yaml:"logging"`
	Stats        StatsInfo       `yaml:"stats"`
	Housekeeping HousekeepingCfg `yaml:"housekeeping"`
	AuditLog     AuditLogCfg     `yaml:"audit_log"`
}

// ListenInfo is the hub's bind address. The port defaults to 4242.
type ListenInfo struct {
	Address string `yaml:"address"` // host:port; empty host means all interfaces
}

// StatsInfo configures the gopsutil-backed /status command and the
// background stats logger.
type StatsInfo struct {
	LogInterval Duration `yaml:"log_interval"` // default 60s, also applied when 0; a negative value disables the background logger
	DiskPath    string   `yaml:"disk_path"`    // default "."
}

// HousekeepingCfg configures the cron-driven stale-draining-peer sweep and
// audit-log rotation check.
type HousekeepingCfg struct {
	Schedule string `yaml:"schedule"` // cron expression, default "@every 5m"
}

// AuditLogCfg configures the optional rotating protocol-event log. Empty
// Path disables it.
type AuditLogCfg struct {
	Path               string `yaml:"path"`
	MaxSizeBytes       string `yaml:"max_size"`              // default "10mb"
	MaxSizeBytesRaw    int64  `yaml:"-"`
	PgzipThresholdBytes string `yaml:"pgzip_threshold"`      // files at or above this size use pgzip; default "64mb"
	PgzipThresholdRaw  int64  `yaml:"-"`
}

const (
	defaultHubPort          = "4242"
	defaultStatsLogInterval = 60 * time.Second
	defaultHousekeeping     = "@every 5m"
	defaultAuditMaxSize     = "10mb"
	defaultPgzipThreshold   = "64mb"
)

// LoadHubConfig reads and validates path. A missing file is not treated
// specially here; callers (cmd/hub) fall back to an empty HubConfig and
// its defaults when the flag-provided path does not exist.
func LoadHubConfig(path string) (*HubConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hub config: %w", err)
	}

	var cfg HubConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing hub config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating hub config: %w", err)
	}

	return &cfg, nil
}

// DefaultHubConfig returns a HubConfig with every default applied, for the
// no-config-file case.
func DefaultHubConfig() *HubConfig {
	cfg := &HubConfig{}
	_ = cfg.validate()
	return cfg
}

func (c *HubConfig) validate() error {
	if c.Listen.Address == "" {
		c.Listen.Address = ":" + defaultHubPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Stats.LogInterval == 0 {
		c.Stats.LogInterval = Duration(defaultStatsLogInterval)
	}
	if c.Stats.DiskPath == "" {
		c.Stats.DiskPath = "."
	}

	if c.Housekeeping.Schedule == "" {
		c.Housekeeping.Schedule = defaultHousekeeping
	}

	if c.AuditLog.Path != "" {
		if c.AuditLog.MaxSizeBytes == "" {
			c.AuditLog.MaxSizeBytes = defaultAuditMaxSize
		}
		parsed, err := ParseByteSize(c.AuditLog.MaxSizeBytes)
		if err != nil {
			return fmt.Errorf("audit_log.max_size: %w", err)
		}
		c.AuditLog.MaxSizeBytesRaw = parsed

		if c.AuditLog.PgzipThresholdBytes == "" {
			c.AuditLog.PgzipThresholdBytes = defaultPgzipThreshold
		}
		parsed, err = ParseByteSize(c.AuditLog.PgzipThresholdBytes)
		if err != nil {
			return fmt.Errorf("audit_log.pgzip_threshold: %w", err)
		}
		c.AuditLog.PgzipThresholdRaw = parsed
	}

	return nil
}
