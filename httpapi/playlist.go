/*
DESCRIPTION
  playlist.go serves the archive back out as HLS: a master playlist
  listing the channel's known qualities, and a media playlist built
  from the Selector's output over a caller-specified [start, end)
  window.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package httpapi

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/grafov/m3u8"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/segment"
	"github.com/clipfleet/clipfleet/selector"
)

func parseSegment(path string) (segment.Segment, error) {
	return segment.Parse(path)
}

// qualitiesForChannel discovers the quality directories present for a
// channel by scanning the archive's first configured quality list; since
// the archive has no channel-level index, it relies on the set of
// qualities that actually have at least one hour on disk.
func qualitiesForChannel(a *archive.Archive, channel string, knownQualities []string) []string {
	var out []string
	for _, q := range knownQualities {
		hours, err := archive.ListHours(a, channel, q)
		if err == nil && len(hours) > 0 {
			out = append(out, q)
		}
	}
	return out
}

// masterPlaylist returns a handler serving a master playlist whose
// variants point at this node's own media playlist endpoint for each of
// knownQualities the channel has archived data for.
func masterPlaylist(a *archive.Archive, knownQualities []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		channel := strings.TrimSuffix(c.Params("channel"), ".m3u8")
		if rejectHidden(c, channel) {
			return nil
		}
		qualities := qualitiesForChannel(a, channel, knownQualities)
		if len(qualities) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no archived qualities for channel")
		}

		master := m3u8.NewMasterPlaylist()
		for _, q := range qualities {
			master.Append(fmt.Sprintf("/playlist/%s/%s.m3u8", channel, q), nil, m3u8.VariantParams{})
		}
		c.Set(fiber.HeaderContentType, "application/vnd.apple.mpegurl")
		return c.SendString(master.String())
	}
}

// mediaPlaylist returns a handler serving a media playlist built from
// the Selector's best-effort coverage of [start, end) for one
// (channel, quality). Holes become EXT-X-DISCONTINUITY markers.
func mediaPlaylist(a *archive.Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		channel, quality := c.Params("channel"), strings.TrimSuffix(c.Params("quality"), ".m3u8")
		if rejectHidden(c, channel, quality) {
			return nil
		}
		start, end, err := parseWindow(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "bad start/end: "+err.Error())
		}

		entries, err := selector.BestSegments(a, channel, quality, start, end, true)
		if err != nil {
			return err
		}

		playlist, err := m3u8.NewMediaPlaylist(0, uint(len(entries)+1))
		if err != nil {
			return err
		}
		pendingDiscontinuity := false
		for _, e := range entries {
			if e.Hole {
				pendingDiscontinuity = true
				continue
			}
			name := strings.Join([]string{channel, quality, e.Segment.Hour()}, "/")
			uri := fmt.Sprintf("/segments/%s/%s", name, segmentFilename(e.Segment))
			if err := playlist.Append(uri, e.Segment.Duration.Seconds(), ""); err != nil {
				return err
			}
			playlist.Segments[playlist.Count()-1].ProgramDateTime = e.Segment.Start
			if pendingDiscontinuity {
				if err := playlist.SetDiscontinuity(); err != nil {
					return err
				}
				pendingDiscontinuity = false
			}
		}
		playlist.Close()

		c.Set(fiber.HeaderContentType, "application/vnd.apple.mpegurl")
		return c.SendString(playlist.String())
	}
}

// segmentFilename re-derives just the filename component of a segment's
// archive path, for embedding in a generated playlist URI.
func segmentFilename(s segment.Segment) string {
	full, err := segment.Format(s)
	if err != nil {
		return ""
	}
	return full[strings.LastIndex(full, "/")+1:]
}
