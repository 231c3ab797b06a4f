/*
DESCRIPTION
  scheduler.go wires the Backfiller's fast and slow cadences onto
  robfig/cron, in the style of Ocean Cron's scheduler wrapper.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package backfill

import (
	"context"
	"fmt"

	cron "github.com/robfig/cron/v3"
)

// Default cadences, per spec §4.6.
const (
	defaultFastSpec = "@every 5m"
	defaultSlowSpec = "@every 3h"
)

// Scheduler runs a Backfiller's fast and slow passes on a cron schedule.
type Scheduler struct {
	FastSpec string
	SlowSpec string

	cron *cron.Cron
}

// Start builds and starts the underlying cron runner, scheduling b's fast
// and slow passes against ctx. Call Stop to halt it.
func (s *Scheduler) Start(ctx context.Context, b *Backfiller) error {
	fastSpec, slowSpec := s.FastSpec, s.SlowSpec
	if fastSpec == "" {
		fastSpec = defaultFastSpec
	}
	if slowSpec == "" {
		slowSpec = defaultSlowSpec
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fastSpec, func() { b.RunFast(ctx) }); err != nil {
		return fmt.Errorf("backfill: could not schedule fast pass: %w", err)
	}
	if _, err := s.cron.AddFunc(slowSpec, func() { b.RunSlow(ctx) }); err != nil {
		return fmt.Errorf("backfill: could not schedule slow pass: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner, waiting for any in-progress job to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
