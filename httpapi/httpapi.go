/*
DESCRIPTION
  httpapi.go implements the node's HTTP façade: the archive listing and
  segment-bytes endpoints peers use for backfill, plus the playlist
  endpoints that serve the archive back out as HLS.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package httpapi exposes a node's archive over HTTP: hour/segment
// listings for peer backfill, raw segment bytes, and HLS playlists
// generated from the Selector.
package httpapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ausocean/utils/logging"

	"github.com/clipfleet/clipfleet/archive"
)

// New builds a Fiber app exposing a's listing, segment, and playlist
// routes. qualities is the node's configured quality set, used by the
// master playlist handler to enumerate a channel's variants.
func New(a *archive.Archive, qualities []string, log logging.Logger) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler(log)})

	app.Get("/files/:channel/:quality", listHours(a))
	app.Get("/files/:channel/:quality/:hour", listSegments(a))
	app.Get("/segments/:channel/:quality/:hour/:filename", getSegment(a))
	app.Get("/playlist/:channel.m3u8", masterPlaylist(a, qualities))
	app.Get("/playlist/:channel/:quality.m3u8", mediaPlaylist(a))

	return app
}

func errorHandler(log logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		log.Warning("httpapi: request failed", "path", c.Path(), "error", err)
		code := fiber.StatusInternalServerError
		if fe, ok := err.(*fiber.Error); ok {
			code = fe.Code
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

// rejectHidden returns true (and has already written a 403 response) if
// any path segment in name begins with a dot, per the hidden-file
// exclusion rule.
func rejectHidden(c *fiber.Ctx, names ...string) bool {
	for _, n := range names {
		if strings.HasPrefix(n, ".") {
			c.Status(fiber.StatusForbidden)
			return true
		}
	}
	return false
}

func listHours(a *archive.Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		channel, quality := c.Params("channel"), c.Params("quality")
		if rejectHidden(c, channel, quality) {
			return nil
		}
		hours, err := archive.ListHours(a, channel, quality)
		if err != nil {
			return err
		}
		return c.JSON(hours)
	}
}

// listSegments serves the peer-facing hour listing. It must apply the
// same well-formed/non-Temp filter as a reader walking the archive
// directly, so an in-progress "…-temp-<uuid>.ts" capture (which still
// ends in .ts and so survives ListSegmentFiles' raw name filter) is
// never advertised to a backfilling peer.
func listSegments(a *archive.Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		channel, quality, hour := c.Params("channel"), c.Params("quality"), c.Params("hour")
		if rejectHidden(c, channel, quality, hour) {
			return nil
		}
		segments, err := archive.ListSegments(a, channel, quality, hour)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(segments))
		for _, s := range segments {
			names = append(names, segmentFilename(s.Segment))
		}
		return c.JSON(names)
	}
}

func getSegment(a *archive.Archive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		channel, quality, hour, filename := c.Params("channel"), c.Params("quality"), c.Params("hour"), c.Params("filename")
		if rejectHidden(c, channel, quality, hour, filename) {
			return nil
		}
		path := strings.Join([]string{channel, quality, hour, filename}, "/")
		s, err := parseSegment(path)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		content, err := archive.ReadSegment(a, s)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		c.Set(fiber.HeaderContentType, "video/mp2t")
		return c.Send(content)
	}
}

// parseWindow decodes the ?start=&end= query parameters (RFC3339) shared
// by the playlist endpoints.
func parseWindow(c *fiber.Ctx) (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
