/*
DESCRIPTION
  hls.go defines the provider-independent media playlist entry and the
  Provider interface the Downloader resolves against. Playlist encoding
  itself is delegated to github.com/grafov/m3u8; this file owns only the
  shapes clipfleet needs out of it.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package hls resolves a stream's media playlist URL for a requested
// quality and parses that playlist into the (URI, date, duration)
// triples the Downloader needs.
package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/grafov/m3u8"
)

// ErrRemote wraps any non-2xx HTTP response or transport failure talking
// to an HLS origin or provider handshake endpoint.
var ErrRemote = errors.New("hls: remote request failed")

// ErrUnsupported is returned when a requested quality has no matching
// variant in the master playlist.
var ErrUnsupported = errors.New("hls: quality not available")

// Entry is one media segment entry as listed in a media playlist.
type Entry struct {
	URI             string
	ProgramDateTime time.Time // zero if the playlist carries none.
	Duration        time.Duration
}

// Resolution is the result of resolving a (channel, quality) pair against
// a provider: the media playlist URL to poll, and the maximum duration a
// Downloader worker may keep polling it before re-resolving.
type Resolution struct {
	MediaPlaylistURL string
	MaxWorkerAge     time.Duration
	// LowLatency reports whether the provider advertises LL-HLS partial
	// segments. clipfleet does not act on this yet; it exists so a future
	// provider can report it without an interface break.
	LowLatency bool
}

// Provider resolves a media playlist URL for a given quality from
// whatever upstream handshake a concrete stream source requires.
type Provider interface {
	// Resolve returns the media playlist URL for quality ("source" or a
	// provider-specific rendition name), plus the provider's worker-age
	// policy.
	Resolve(ctx context.Context, quality string) (Resolution, error)
}

// FetchMediaPlaylist fetches and parses a media playlist, returning its
// segment entries in playlist order, with each segment URI resolved
// against url so it is absolute. Entries without a usable date (no
// EXT-X-PROGRAM-DATE-TIME) are still returned; callers that require a date
// (the Downloader does) filter those out themselves, per spec §4.4 step 3.
func FetchMediaPlaylist(ctx context.Context, client *http.Client, url string) ([]Entry, error) {
	body, err := get(ctx, client, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	playlist, listType, err := m3u8.DecodeFrom(body, true)
	if err != nil {
		return nil, fmt.Errorf("hls: could not decode media playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return nil, fmt.Errorf("hls: %q is not a media playlist: %w", url, ErrUnsupported)
	}
	media, ok := playlist.(*m3u8.MediaPlaylist)
	if !ok {
		return nil, fmt.Errorf("hls: unexpected playlist type for %q: %w", url, ErrUnsupported)
	}

	base, err := neturl.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("hls: bad media playlist url %q: %w", url, err)
	}

	entries := make([]Entry, 0, len(media.Segments))
	for _, seg := range media.Segments {
		if seg == nil {
			continue // m3u8 pads its ring buffer with nils past Count().
		}
		uri, err := base.Parse(seg.URI)
		if err != nil {
			return nil, fmt.Errorf("hls: bad segment uri %q in %q: %w", seg.URI, url, err)
		}
		entries = append(entries, Entry{
			URI:             uri.String(),
			ProgramDateTime: seg.ProgramDateTime,
			Duration:        time.Duration(seg.Duration * float64(time.Second)),
		})
	}
	return entries, nil
}

func get(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("hls: bad request for %q: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRemote, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: status %d", ErrRemote, url, resp.StatusCode)
	}
	return resp.Body, nil
}
