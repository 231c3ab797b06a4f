/*
DESCRIPTION
  worker.go implements the per-(channel, quality) downloader: it polls
  a resolved media playlist, spawns bounded-concurrency download tasks
  for newly observed segments, and re-resolves the playlist URL once a
  provider's max worker age elapses.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package downloader polls HLS media playlists and persists newly
// observed segments into the archive.
package downloader

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ausocean/utils/logging"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/hls"
	"github.com/clipfleet/clipfleet/segment"
)

// Default tuning, overridable per Worker.
const (
	defaultPollInterval = 2 * time.Second
	defaultJitter       = 0.10 // ±10%.
	defaultConcurrency  = 4
	defaultSeenCapacity = 512
)

// Worker polls a single (channel, quality) media playlist and writes
// newly observed segments into an Archive.
type Worker struct {
	Channel  string
	Quality  string
	Provider hls.Provider
	Archive  *archive.Archive
	Client   *http.Client
	Log      logging.Logger

	PollInterval time.Duration
	Jitter       float64
	Concurrency  int64
	SeenCapacity int

	sem  *semaphore.Weighted
	seen *seenSet
}

// NewWorker returns a Worker ready to Run, filling in defaults for any
// zero-valued tuning fields.
func NewWorker(channel, quality string, provider hls.Provider, a *archive.Archive, log logging.Logger) *Worker {
	return &Worker{
		Channel:      channel,
		Quality:      quality,
		Provider:     provider,
		Archive:      a,
		Client:       http.DefaultClient,
		Log:          log,
		PollInterval: defaultPollInterval,
		Jitter:       defaultJitter,
		Concurrency:  defaultConcurrency,
		SeenCapacity: defaultSeenCapacity,
	}
}

// Run resolves the media playlist and polls it until ctx is canceled.
// It re-resolves whenever the provider's max worker age elapses, per
// spec §4.4 step 5.
func (w *Worker) Run(ctx context.Context) error {
	w.sem = semaphore.NewWeighted(w.Concurrency)
	w.seen = newSeenSet(w.SeenCapacity)

	for {
		res, err := w.Provider.Resolve(ctx, w.Quality)
		if err != nil {
			w.Log.Warning("downloader: could not resolve media playlist", "channel", w.Channel, "quality", w.Quality, "error", err)
			if !w.sleep(ctx, w.jittered()) {
				return ctx.Err()
			}
			continue
		}
		w.Log.Info("downloader: resolved media playlist", "channel", w.Channel, "quality", w.Quality, "url", res.MediaPlaylistURL)

		if err := w.pollUntilStale(ctx, res); err != nil {
			return err
		}
	}
}

// pollUntilStale polls res.MediaPlaylistURL until ctx is canceled or the
// provider's max worker age has elapsed, at which point it returns nil so
// Run re-resolves.
func (w *Worker) pollUntilStale(ctx context.Context, res hls.Resolution) error {
	deadline := time.Now().Add(res.MaxWorkerAge)

	for {
		if !time.Now().Before(deadline) {
			w.Log.Info("downloader: worker age exceeded, re-resolving", "channel", w.Channel, "quality", w.Quality)
			return nil
		}

		entries, err := hls.FetchMediaPlaylist(ctx, w.Client, res.MediaPlaylistURL)
		if err != nil {
			w.Log.Warning("downloader: could not fetch media playlist", "channel", w.Channel, "quality", w.Quality, "error", err)
		} else {
			w.dispatchNew(ctx, entries)
		}

		if !w.sleep(ctx, w.jittered()) {
			return ctx.Err()
		}
	}
}

// dispatchNew spawns a download task for each entry not already in the
// seen set and with a usable date, per spec §4.4 step 3. The URI is
// marked seen regardless of whether a task is spawned or how it ends, so
// a failing segment is not retried forever within one worker lifetime.
func (w *Worker) dispatchNew(ctx context.Context, entries []hls.Entry) {
	for _, e := range entries {
		if w.seen.Has(e.URI) {
			continue
		}
		w.seen.Add(e.URI)
		if e.ProgramDateTime.IsZero() {
			continue
		}

		if err := w.sem.Acquire(ctx, 1); err != nil {
			return // ctx canceled.
		}
		go func(e hls.Entry) {
			defer w.sem.Release(1)
			w.download(ctx, e)
		}(e)
	}
}

// download fetches one segment and persists it per the finalization
// rules in spec §4.4 step 4.
func (w *Worker) download(ctx context.Context, e hls.Entry) {
	tmp := segment.NewTemp(w.Channel, w.Quality, e.ProgramDateTime, e.Duration)
	tw, err := archive.NewTempWriter(w.Archive, tmp)
	if err != nil {
		w.Log.Error("downloader: could not open temp writer", "uri", e.URI, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URI, nil)
	if err != nil {
		tw.Abandon()
		w.Log.Error("downloader: bad segment request", "uri", e.URI, "error", err)
		return
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		w.finalizeAfterError(tw, tmp, e.URI, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		w.finalizeAfterError(tw, tmp, e.URI, nil)
		return
	}

	_, copyErr := io.Copy(tw, resp.Body)
	if copyErr != nil {
		w.finalizeAfterError(tw, tmp, e.URI, copyErr)
		return
	}

	if _, err := tw.Finalize(w.Archive, tmp, segment.Full); err != nil {
		w.Log.Error("downloader: could not finalize full segment", "uri", e.URI, "error", err)
	}
}

// finalizeAfterError finalizes a partially-written segment as Partial if
// any bytes arrived, or discards it entirely if none did.
func (w *Worker) finalizeAfterError(tw *archive.TempWriter, tmp segment.Segment, uri string, err error) {
	if err != nil {
		w.Log.Warning("downloader: segment download failed", "uri", uri, "error", err)
	} else {
		w.Log.Warning("downloader: segment download failed", "uri", uri)
	}
	if tw.Written() == 0 {
		if abErr := tw.Abandon(); abErr != nil {
			w.Log.Error("downloader: could not abandon empty temp file", "uri", uri, "error", abErr)
		}
		return
	}
	if _, fErr := tw.Finalize(w.Archive, tmp, segment.Partial); fErr != nil {
		w.Log.Error("downloader: could not finalize partial segment", "uri", uri, "error", fErr)
	}
}

// jittered returns PollInterval randomized by ±Jitter.
func (w *Worker) jittered() time.Duration {
	frac := 1 + (rand.Float64()*2-1)*w.Jitter
	return time.Duration(float64(w.PollInterval) * frac)
}

// sleep waits for d or ctx cancellation, returning false in the latter case.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
