// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClientConfig is the complete client.yaml configuration for the
// participant binary.
type ClientConfig struct {
	Hub      HubAddr      `yaml:"hub"`
	Logging  LoggingInfo  `yaml:"logging"`
	Transfer TransferInfo `yaml:"transfer"`
}

// HubAddr holds the client's hub settings. Port is the port /connect uses
// when its optional port argument is omitted. Host is loaded but not read by
// /connect, which always takes the host as an argument.
type HubAddr struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"` // default 4242
}

// TransferInfo configures the optional bandwidth cap applied to the bulk
// copy of each file transfer.
type TransferInfo struct {
	MaxBytesPerSec string `yaml:"max_bytes_per_sec"` // e.g. "2mb"; "" or "0" = unlimited
	MaxBytesPerSecRaw int64 `yaml:"-"`
}

const defaultClientPort = 4242

// LoadClientConfig reads and validates path.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating client config: %w", err)
	}

	return &cfg, nil
}

// DefaultClientConfig returns a ClientConfig with every default applied, for
// the no-config-file case.
func DefaultClientConfig() *ClientConfig {
	cfg := &ClientConfig{}
	_ = cfg.validate()
	return cfg
}

func (c *ClientConfig) validate() error {
	if c.Hub.Port == 0 {
		c.Hub.Port = defaultClientPort
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Transfer.MaxBytesPerSec == "" || c.Transfer.MaxBytesPerSec == "0" {
		c.Transfer.MaxBytesPerSecRaw = 0
	} else {
		parsed, err := ParseByteSize(c.Transfer.MaxBytesPerSec)
		if err != nil {
			return fmt.Errorf("transfer.max_bytes_per_sec: %w", err)
		}
		c.Transfer.MaxBytesPerSecRaw = parsed
	}

	return nil
}
