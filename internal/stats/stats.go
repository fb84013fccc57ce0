// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package stats collects host resource metrics for the hub's /status
// command and periodic stats log. Pull-on-demand: callers grab a fresh
// Snapshot whenever they need one.
package stats

import (
	"log/slog"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot holds host metrics collected at one instant.
type Snapshot struct {
	CPUPercent       float64
	MemoryPercent    float64
	DiskUsagePercent float64
	LoadAverage1m    float64
}

// Collect gathers a fresh Snapshot, logging (at debug level) any metric that
// could not be read rather than failing the whole snapshot — a host missing
// one gopsutil source (e.g. no load average on some platforms) should not
// prevent /status from reporting the rest.
func Collect(logger *slog.Logger, diskPath string) Snapshot {
	var s Snapshot

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	} else {
		logger.Debug("failed to collect cpu stats", "error", err)
	}

	if v, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = v.UsedPercent
	} else {
		logger.Debug("failed to collect memory stats", "error", err)
	}

	if d, err := disk.Usage(diskPath); err == nil {
		s.DiskUsagePercent = d.UsedPercent
	} else {
		logger.Debug("failed to collect disk stats", "error", err)
	}

	if l, err := load.Avg(); err == nil {
		s.LoadAverage1m = l.Load1
	} else {
		logger.Debug("failed to collect load stats", "error", err)
	}

	return s
}
