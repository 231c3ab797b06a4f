/*
DESCRIPTION
  fullcut.go implements the full (whole-stream re-encode) cut: a
  producer goroutine streams every segment's bytes into an ffmpeg
  sub-process's stdin, which trims and re-encodes per the caller's
  encoder configuration, emitting either a piped stream or a seekable
  temp file depending on the output container's requirements.

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
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/selector"
)

// FullCut writes the re-encoded cut of entries spanning [start, end) to
// w, applying encoderArgs after ffmpeg's own trim. entries must contain
// no holes. If stream is false, output is buffered to a seekable temp
// file and only copied to w after the sub-process exits cleanly, as
// required by output containers that need a seekable sink (e.g. to
// rewrite a moov atom at the end of the write).
func FullCut(ctx context.Context, a *archive.Archive, entries []selector.Entry, start, end time.Time, encoderArgs []string, stream bool, w io.Writer) error {
	if holeCount(entries) > 0 {
		return ErrHoleNotAllowed
	}
	if len(entries) == 0 {
		return fmt.Errorf("cut: full cut requires at least one segment")
	}

	cutStart := clampNonNegative(start.Sub(entries[0].Segment.Start))
	duration := end.Sub(start)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ss", formatSeconds(cutStart),
		"-t", formatSeconds(duration),
	}
	args = append(args, encoderArgs...)

	var tmpFile *os.File
	if stream {
		args = append(args, "pipe:1")
	} else {
		var err error
		tmpFile, err = os.CreateTemp("", "clipfleet-fullcut-*.out")
		if err != nil {
			return fmt.Errorf("cut: could not create seekable output temp file: %w", err)
		}
		defer os.Remove(tmpFile.Name())
		defer tmpFile.Close()
		args = append(args, tmpFile.Name())
	}

	cmd := exec.CommandContext(ctx, FFmpegPath, args...)
	if stream {
		cmd.Stdout = w
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("cut: could not open sub-process stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrSubprocess, err)
	}

	producerErrCh := make(chan error, 1)
	go func() {
		producerErrCh <- produce(a, entries, stdin, cancel)
	}()

	waitErr := cmd.Wait()
	producerErr := <-producerErrCh

	if waitErr != nil {
		return fmt.Errorf("%w: %v: %s", ErrSubprocess, waitErr, stderr.String())
	}
	if producerErr != nil {
		return fmt.Errorf("cut: producer failed: %w", producerErr)
	}

	if !stream {
		if err := tmpFile.Close(); err != nil {
			return fmt.Errorf("cut: could not close output temp file: %w", err)
		}
		f, err := os.Open(tmpFile.Name())
		if err != nil {
			return fmt.Errorf("cut: could not reopen output temp file: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return fmt.Errorf("cut: could not stream output temp file: %w", err)
		}
	}
	return nil
}

// produce streams every segment's bytes into stdin in order, tolerating
// the sub-process closing stdin early (the remaining writes are simply
// discarded as broken-pipe errors). Any other error cancels the
// sub-process via cancel and is returned.
func produce(a *archive.Archive, entries []selector.Entry, stdin io.WriteCloser, cancel context.CancelFunc) error {
	defer stdin.Close()
	for _, e := range entries {
		abs, err := a.AbsPath(e.Segment)
		if err != nil {
			cancel()
			return err
		}
		f, err := os.Open(abs)
		if err != nil {
			cancel()
			return err
		}
		_, err = io.Copy(stdin, f)
		f.Close()
		if err != nil {
			if isBrokenPipe(err) {
				return nil
			}
			cancel()
			return err
		}
	}
	return nil
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}
