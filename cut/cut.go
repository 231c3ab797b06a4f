/*
DESCRIPTION
  cut.go defines the shared cutting vocabulary: the selection entries
  fast and full cuts operate on, and the sub-process error sentinel
  both share.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cut implements the fast (byte-stitching) and full
// (re-encoding) cut pipelines that turn a Selector's output into a
// single output byte stream spanning [start, end).
package cut

import (
	"errors"
	"time"

	"github.com/clipfleet/clipfleet/selector"
)

// ErrSubprocess wraps any non-zero exit from an ffmpeg sub-process
// spawned by a cut.
var ErrSubprocess = errors.New("cut: sub-process failed")

// ErrHoleNotAllowed is returned by FullCut, which has no way to encode a
// timeline jump into a single re-encoded stream; callers must reject
// holes (or request a fast cut) before calling it.
var ErrHoleNotAllowed = errors.New("cut: full cut cannot accept a hole")

// FFmpegPath names the ffmpeg binary both cutters run; overridable for
// testing against a stub. FFprobePath names an ffprobe binary that
// neither cutter invokes.
var (
	FFmpegPath  = "ffmpeg"
	FFprobePath = "ffprobe"
)

func clampNonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// holeCount reports how many of entries are holes.
func holeCount(entries []selector.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Hole {
			n++
		}
	}
	return n
}
