/*
DESCRIPTION
  manager.go wires one Worker per (channel, quality) pair a node is
  configured to capture and runs them concurrently under a single
  cancellation scope, in the spirit of the broadcastManager's
  map-of-workers wiring.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package downloader

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ausocean/utils/logging"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/hls"
)

// Target names one stream a Manager should capture: a provider resolving
// playlists for channel, and the set of qualities to download from it.
type Target struct {
	Channel  string
	Provider hls.Provider
	Quality  []string
}

// Manager runs one Worker per (channel, quality) pair across a set of
// Targets.
type Manager struct {
	Archive *archive.Archive
	Log     logging.Logger

	workers []*Worker
}

// NewManager builds a Manager with one Worker per (Target.Channel,
// quality) pair.
func NewManager(targets []Target, a *archive.Archive, log logging.Logger) *Manager {
	m := &Manager{Archive: a, Log: log}
	for _, target := range targets {
		for _, quality := range target.Quality {
			m.workers = append(m.workers, NewWorker(target.Channel, quality, target.Provider, a, log))
		}
	}
	return m
}

// Run starts every worker and blocks until ctx is canceled or a worker
// returns a non-context error, at which point it cancels the remaining
// workers and returns that error.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range m.workers {
		w := w
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}
