// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadHubConfig_ExampleFile(t *testing.T) {
	cfgPath := filepath.Join("..", "..", "configs", "hub.example.yaml")
	cfg, err := LoadHubConfig(cfgPath)
	if err != nil {
		t.Fatalf("failed to load hub example config: %v", err)
	}

	if cfg.Listen.Address != ":4242" {
		t.Errorf("expected listen.address ':4242', got %q", cfg.Listen.Address)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %q", cfg.Logging.Level)
	}
	if cfg.Stats.LogInterval != Duration(60*time.Second) {
		t.Errorf("expected stats.log_interval 60s, got %v", cfg.Stats.LogInterval)
	}
	if cfg.Housekeeping.Schedule != "@every 5m" {
		t.Errorf("expected housekeeping.schedule '@every 5m', got %q", cfg.Housekeeping.Schedule)
	}
	if cfg.AuditLog.Path != "" {
		t.Errorf("expected audit_log.path empty, got %q", cfg.AuditLog.Path)
	}
}

func TestLoadHubConfig_Defaults(t *testing.T) {
	cfg := DefaultHubConfig()
	if cfg.Listen.Address != ":4242" {
		t.Errorf("expected default listen.address ':4242', got %q", cfg.Listen.Address)
	}
	if cfg.Housekeeping.Schedule != defaultHousekeeping {
		t.Errorf("expected default housekeeping schedule, got %q", cfg.Housekeeping.Schedule)
	}
	if cfg.Stats.DiskPath != "." {
		t.Errorf("expected default stats.disk_path '.', got %q", cfg.Stats.DiskPath)
	}
}

func TestLoadClientConfig_ExampleFile(t *testing.T) {
	cfgPath := filepath.Join("..", "..", "configs", "client.example.yaml")
	cfg, err := LoadClientConfig(cfgPath)
	if err != nil {
		t.Fatalf("failed to load client example config: %v", err)
	}

	if cfg.Hub.Host != "talk.example.com" {
		t.Errorf("expected hub.host 'talk.example.com', got %q", cfg.Hub.Host)
	}
	if cfg.Hub.Port != 4242 {
		t.Errorf("expected hub.port 4242, got %d", cfg.Hub.Port)
	}
	if cfg.Transfer.MaxBytesPerSecRaw != 2*1024*1024 {
		t.Errorf("expected transfer.max_bytes_per_sec 2mb parsed, got %d", cfg.Transfer.MaxBytesPerSecRaw)
	}
}

func TestLoadClientConfig_Defaults(t *testing.T) {
	cfg := DefaultClientConfig()
	if cfg.Hub.Port != defaultClientPort {
		t.Errorf("expected default hub.port %d, got %d", defaultClientPort, cfg.Hub.Port)
	}
	if cfg.Transfer.MaxBytesPerSecRaw != 0 {
		t.Errorf("expected default transfer.max_bytes_per_sec unlimited (0), got %d", cfg.Transfer.MaxBytesPerSecRaw)
	}
}

func TestParseByteSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1kb", 1024},
		{"2mb", 2 * 1024 * 1024},
		{"1gb", 1024 * 1024 * 1024},
		{"512b", 512},
		{"100", 100},
	}
	for _, c := range cases {
		got, err := ParseByteSize(c.in)
		if err != nil {
			t.Fatalf("ParseByteSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseByteSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseByteSize_Invalid(t *testing.T) {
	if _, err := ParseByteSize(""); err == nil {
		t.Errorf("expected error for empty string")
	}
	if _, err := ParseByteSize("notasize"); err == nil {
		t.Errorf("expected error for unparsable string")
	}
}
