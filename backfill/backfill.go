/*
DESCRIPTION
  backfill.go implements the peer-to-peer segment replication pass: for
  each (peer, channel, quality, hour), diff the peer's segment listing
  against the local archive and pull whatever is missing, skipping
  segments too recent to be trustworthy and failures on one peer
  without aborting the others.

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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/segment"
)

// defaultRecencyWindow is how recent a remote segment's Start must be
// before the Backfiller will skip it, since a download this fresh may
// still be in progress on the peer and later arrive larger or Full.
const defaultRecencyWindow = 60 * time.Second

// Backfiller replicates missing segments from peers into a local Archive.
type Backfiller struct {
	Self      string
	Peers     Source
	Archive   *archive.Archive
	Channels  []string
	Qualities []string
	Client    *http.Client
	Log       logging.Logger

	// RecencyWindow overrides defaultRecencyWindow if non-zero.
	RecencyWindow time.Duration
	// HourOrder controls traversal order within one pass, both across
	// hours and across the segments pulled within each hour.
	HourOrder Order

	inFlight sync.Map // peer name -> struct{}, prevents overlapping passes against the same peer.
}

func (b *Backfiller) recencyWindow() time.Duration {
	if b.RecencyWindow > 0 {
		return b.RecencyWindow
	}
	return defaultRecencyWindow
}

func (b *Backfiller) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}

// RunFast performs one fast-cadence pass: the last 3 hours, per spec
// §4.6's fast/slow cadence split.
func (b *Backfiller) RunFast(ctx context.Context) {
	hours := applyOrder(lastNHours(3, time.Now()), b.HourOrder)
	b.runPass(ctx, func(peer Peer, channel, quality string) []string { return hours })
}

// RunSlow performs one slow-cadence pass: every hour the peer reports
// having, for each channel/quality.
func (b *Backfiller) RunSlow(ctx context.Context) {
	b.runPass(ctx, func(peer Peer, channel, quality string) []string {
		hours, err := b.listHours(ctx, peer, channel, quality)
		if err != nil {
			b.Log.Warning("backfill: could not list remote hours", "peer", peer.Name, "channel", channel, "quality", quality, "error", err)
			return nil
		}
		return applyOrder(hours, b.HourOrder)
	})
}

// runPass iterates every (peer, channel, quality), using hoursFor to
// decide which hours to sync for that combination. A failure against one
// peer is logged and does not stop the others.
func (b *Backfiller) runPass(ctx context.Context, hoursFor func(peer Peer, channel, quality string) []string) {
	peers, err := b.Peers.Peers(ctx)
	if err != nil {
		b.Log.Error("backfill: could not list peers", "error", err)
		return
	}
	peers = withoutSelf(peers, b.Self)

	for _, peer := range peers {
		if _, already := b.inFlight.LoadOrStore(peer.Name, struct{}{}); already {
			b.Log.Debug("backfill: skipping peer, pass already in flight", "peer", peer.Name)
			continue
		}
		func() {
			defer b.inFlight.Delete(peer.Name)
			for _, channel := range b.Channels {
				for _, quality := range b.Qualities {
					hours := hoursFor(peer, channel, quality)
					b.syncHours(ctx, peer, channel, quality, hours)
				}
			}
		}()
	}
}

// syncHours pulls every segment present on peer but missing locally,
// across the given hours, for one (channel, quality). A failure listing
// one hour is logged and does not abort the remaining hours.
func (b *Backfiller) syncHours(ctx context.Context, peer Peer, channel, quality string, hours []string) {
	for _, hour := range hours {
		remote, err := b.listSegments(ctx, peer, channel, quality, hour)
		if err != nil {
			b.Log.Warning("backfill: could not list remote segments", "peer", peer.Name, "channel", channel, "quality", quality, "hour", hour, "error", err)
			continue
		}
		local, err := archive.ListSegmentFiles(b.Archive, channel, quality, hour)
		if err != nil {
			b.Log.Warning("backfill: could not list local segments", "peer", peer.Name, "channel", channel, "quality", quality, "hour", hour, "error", err)
			continue
		}
		have := make(map[string]struct{}, len(local))
		for _, name := range local {
			have[name] = struct{}{}
		}

		// Randomize segment order the same way hours are ordered, so
		// parallel nodes backfilling the same peer don't collide on
		// the same segment at the same time.
		for _, name := range applyOrder(remote, b.HourOrder) {
			if _, ok := have[name]; ok {
				continue
			}
			if err := b.pullOne(ctx, peer, channel, quality, hour, name); err != nil {
				b.Log.Warning("backfill: could not pull segment", "peer", peer.Name, "name", name, "error", err)
			}
		}
	}
}

// pullOne fetches one missing segment and writes it into the local
// archive, unless it is too recent to trust yet.
func (b *Backfiller) pullOne(ctx context.Context, peer Peer, channel, quality, hour, name string) error {
	s, err := segment.Parse(strings.Join([]string{channel, quality, hour, name}, "/"))
	if err != nil || s.Kind == segment.Temp {
		return nil // not a well-formed finalized segment; ignore.
	}
	if time.Since(s.Start) < b.recencyWindow() {
		return nil
	}

	url := fmt.Sprintf("%s/segments/%s/%s/%s/%s", peer.BaseURL, channel, quality, hour, name)
	content, err := b.get(ctx, url)
	if err != nil {
		return err
	}
	return archive.Write(b.Archive, s, content)
}

// listHours fetches a peer's reported hour directories for a channel/quality.
func (b *Backfiller) listHours(ctx context.Context, peer Peer, channel, quality string) ([]string, error) {
	url := fmt.Sprintf("%s/files/%s/%s", peer.BaseURL, channel, quality)
	body, err := b.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var hours []string
	if err := json.Unmarshal(body, &hours); err != nil {
		return nil, fmt.Errorf("backfill: could not decode hour listing: %w", err)
	}
	return hours, nil
}

// listSegments fetches a peer's reported segment filenames for one hour.
func (b *Backfiller) listSegments(ctx context.Context, peer Peer, channel, quality, hour string) ([]string, error) {
	url := fmt.Sprintf("%s/files/%s/%s/%s", peer.BaseURL, channel, quality, hour)
	body, err := b.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("backfill: could not decode segment listing: %w", err)
	}
	return names, nil
}

func (b *Backfiller) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("backfill: bad request for %q: %w", url, err)
	}
	resp, err := b.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("backfill: request to %q failed: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backfill: %q returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
