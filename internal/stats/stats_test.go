// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package stats

import (
	"log/slog"
	"os"
	"testing"
)

func TestCollectReturnsNonNegativeMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	snap := Collect(logger, ".")

	if snap.CPUPercent < 0 || snap.MemoryPercent < 0 || snap.DiskUsagePercent < 0 || snap.LoadAverage1m < 0 {
		t.Fatalf("Collect returned a negative metric: %+v", snap)
	}
}
