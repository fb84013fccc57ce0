// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the NTalk License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package hub

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/nishisan-dev/ntalk/internal/eventloop"
)

// Sweeper runs a cron schedule that asks the hub's single event-loop
// goroutine to perform periodic maintenance: the stale-draining-peer reaper
// and, if enabled, audit-log rotation.
type Sweeper struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewSweeper registers schedule as a cron job that posts a Housekeeping
// event on loop every time it fires.
func NewSweeper(schedule string, loop *eventloop.Loop, logger *slog.Logger) (*Sweeper, error) {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	if _, err := c.AddFunc(schedule, func() {
		loop.Post(eventloop.Event{Kind: eventloop.Housekeeping, ID: "sweep"})
	}); err != nil {
		return nil, fmt.Errorf("registering housekeeping schedule %q: %w", schedule, err)
	}

	return &Sweeper{cron: c, logger: logger}, nil
}

// Start begins the cron scheduler.
func (s *Sweeper) Start() {
	s.logger.Info("housekeeping sweeper started")
	s.cron.Start()
}

// Stop stops the scheduler, waiting for any in-flight job.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("housekeeping sweeper stopped")
}
