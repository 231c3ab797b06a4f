/*
DESCRIPTION
  fastcut.go implements the byte-stitching cut: whole segments are
  streamed verbatim, and only the leading/trailing segment (when the
  request isn't aligned to segment boundaries) is passed through a
  single-segment ffmpeg trim that copies its streams without
  re-encoding.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package cut

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/selector"
)

// FastCut writes the byte-stitched cut of entries spanning [start, end)
// to w. entries must not begin or end with a hole; an intermediate hole
// is a deliberate discontinuity and is simply skipped in the output,
// which only happens when the caller allowed holes.
func FastCut(ctx context.Context, a *archive.Archive, entries []selector.Entry, start, end time.Time, w io.Writer) error {
	if len(entries) == 0 || entries[0].Hole || entries[len(entries)-1].Hole {
		return fmt.Errorf("cut: fast cut requires a non-hole first and last entry")
	}

	cutStart := clampNonNegative(start.Sub(entries[0].Segment.Start))
	last := entries[len(entries)-1].Segment
	cutEnd := clampNonNegative(end.Sub(last.Start))

	for i, e := range entries {
		if e.Hole {
			continue // timeline jump: emit nothing.
		}

		isFirst := i == 0
		isLast := i == len(entries)-1
		trimStart := isFirst && cutStart > 0
		trimEnd := isLast && cutEnd > 0 && cutEnd < e.Segment.Duration

		abs, err := a.AbsPath(e.Segment)
		if err != nil {
			return fmt.Errorf("cut: could not resolve segment path: %w", err)
		}

		if !trimStart && !trimEnd {
			if err := streamFile(abs, w); err != nil {
				return err
			}
			continue
		}

		if err := trimSegment(ctx, abs, cutStart, cutEnd, trimStart, trimEnd, w); err != nil {
			return err
		}
	}
	return nil
}

// streamFile copies a whole segment file's bytes to w verbatim.
func streamFile(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cut: could not open segment %q: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("cut: could not stream segment %q: %w", path, err)
	}
	return nil
}

// trimSegment spawns an ffmpeg sub-process that reads a single segment,
// copies every stream unchanged, and trims to [cutStart, cutEnd)
// relative to that segment's own start, streaming MPEG-TS to w.
func trimSegment(ctx context.Context, path string, cutStart, cutEnd time.Duration, trimStart, trimEnd bool, w io.Writer) error {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", path}
	if trimStart {
		args = append(args, "-ss", formatSeconds(cutStart))
	}
	if trimEnd {
		args = append(args, "-to", formatSeconds(cutEnd))
	}
	args = append(args, "-map", "0", "-c", "copy", "-f", "mpegts", "pipe:1")

	cmd := exec.CommandContext(ctx, FFmpegPath, args...)
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: trimming %q: %v: %s", ErrSubprocess, path, err, stderr.String())
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
