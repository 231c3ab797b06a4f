/*
DESCRIPTION
  archive.go implements the on-disk archive: directory layout, the
  atomic write-then-rename discipline every writer (Downloader,
  Backfiller) must use, and the listing helpers the HTTP façade and the
  Backfiller's local-file enumeration share.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package archive implements the content-addressed, atomic-rename
// filesystem layout that backs the segment archive.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/clipfleet/clipfleet/segment"
)

// Archive is a filesystem tree rooted at Base, organized
// <base>/<channel>/<quality>/<hour>/<filename>.
type Archive struct {
	Base string
}

// New returns an Archive rooted at base. base need not exist yet;
// directories are created on demand by Write.
func New(base string) *Archive {
	return &Archive{Base: base}
}

// HourDir returns the absolute directory for a given channel/quality/hour.
func (a *Archive) HourDir(channel, quality, hour string) string {
	return filepath.Join(a.Base, channel, quality, hour)
}

// AbsPath returns the absolute path for s, which must have Channel and
// Quality set.
func (a *Archive) AbsPath(s segment.Segment) (string, error) {
	rel, err := segment.Format(s)
	if err != nil {
		return "", err
	}
	return filepath.Join(a.Base, filepath.FromSlash(rel)), nil
}

// Write atomically persists content as s: it writes to a sibling
// "<finalpath>.<uuid>.temp" file, then renames it to the final
// content-addressed path. A rename that finds the target already
// present is treated as success, since identical (channel, quality,
// start, duration, hash) paths are guaranteed to hold identical bytes;
// the temp file is unlinked in that case instead.
func Write(a *Archive, s segment.Segment, content []byte) error {
	final, err := a.AbsPath(s)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return fmt.Errorf("archive: could not create hour directory: %w", err)
	}

	tmp := final + "." + uuid.NewString() + ".temp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("archive: could not write temp file: %w", err)
	}

	return commit(tmp, final)
}

// commit renames tmp to final, treating "target already exists" as
// success and unlinking tmp in that case.
func commit(tmp, final string) error {
	err := os.Rename(tmp, final)
	if err == nil {
		return nil
	}
	// Content-addressed names mean a pre-existing target has identical
	// bytes; the rename racing another writer (Downloader vs.
	// Backfiller) is expected, not an error.
	if _, statErr := os.Stat(final); statErr == nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("archive: could not unlink stale temp file: %w", rmErr)
		}
		return nil
	}
	return fmt.Errorf("archive: could not rename temp file into place: %w", err)
}

// TempWriter writes a Temp segment at its own "...-temp-<uuid>.ts"
// archive path for streaming writes (used by the Downloader,
// which appends chunks as they arrive rather than buffering the whole
// segment). Finalize must be called to rename it into place.
type TempWriter struct {
	file     *os.File
	tempPath string
	written  int64
}

// NewTempWriter opens a new temp file for s (which must be Temp-typed)
// under the correct hour directory, creating directories as needed.
func NewTempWriter(a *Archive, s segment.Segment) (*TempWriter, error) {
	if s.Kind != segment.Temp {
		return nil, errors.New("archive: TempWriter requires a Temp-typed segment")
	}
	tempAbs, err := a.AbsPath(s)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(tempAbs), 0o755); err != nil {
		return nil, fmt.Errorf("archive: could not create hour directory: %w", err)
	}
	f, err := os.Create(tempAbs)
	if err != nil {
		return nil, fmt.Errorf("archive: could not create temp file: %w", err)
	}
	return &TempWriter{file: f, tempPath: tempAbs}, nil
}

// Write streams a chunk of segment bytes to the temp file, tracking the
// total bytes written so a mid-download error can still finalize as
// Partial using the bytes received so far.
func (w *TempWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

// Written returns the number of bytes written so far.
func (w *TempWriter) Written() int64 { return w.written }

// Abandon discards the in-progress temp file without persisting
// anything; used when zero bytes were received before an error.
func (w *TempWriter) Abandon() error {
	w.file.Close()
	err := os.Remove(w.tempPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("archive: could not remove abandoned temp file: %w", err)
	}
	return nil
}

// Finalize closes the temp file, computes its hash, and renames it to
// the final path for a segment of the given kind (Full or Partial)
// derived from base (a Temp segment sharing channel/quality/start/duration).
func (w *TempWriter) Finalize(a *Archive, base segment.Segment, kind segment.Type) (segment.Segment, error) {
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return segment.Segment{}, fmt.Errorf("archive: could not sync temp file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return segment.Segment{}, fmt.Errorf("archive: could not close temp file: %w", err)
	}

	content, err := os.ReadFile(w.tempPath)
	if err != nil {
		return segment.Segment{}, fmt.Errorf("archive: could not re-read temp file for hashing: %w", err)
	}

	final := base.Finalize(kind, content)
	finalAbs, err := a.AbsPath(final)
	if err != nil {
		return segment.Segment{}, err
	}

	if err := commit(w.tempPath, finalAbs); err != nil {
		return segment.Segment{}, err
	}
	return final, nil
}

// ListHours returns the hour-directory names present for a
// channel/quality, skipping hidden entries. Non-existent roots yield an
// empty list, not an error (a fresh archive has no hours yet).
func ListHours(a *Archive, channel, quality string) ([]string, error) {
	dir := filepath.Join(a.Base, channel, quality)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: could not list hours: %w", err)
	}

	var hours []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		hours = append(hours, e.Name())
	}
	sort.Strings(hours)
	return hours, nil
}

// ListSegmentFiles returns the raw filenames present in an hour
// directory, skipping hidden entries. It does not parse or filter by
// type; callers that need only well-formed, non-temp names should parse
// each result with segment.Parse and discard ErrBadFormat/Temp entries.
func ListSegmentFiles(a *Archive, channel, quality, hour string) ([]string, error) {
	dir := a.HourDir(channel, quality, hour)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: could not list segment files: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || strings.HasSuffix(e.Name(), ".temp") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListSegments parses every well-formed, non-Temp segment in an hour
// directory, attaching the on-disk byte length (needed by the selector's
// largest-partial tie-break) via SizedSegment.
func ListSegments(a *Archive, channel, quality, hour string) ([]SizedSegment, error) {
	names, err := ListSegmentFiles(a, channel, quality, hour)
	if err != nil {
		return nil, err
	}

	dir := a.HourDir(channel, quality, hour)
	var out []SizedSegment
	for _, name := range names {
		s, err := segment.Parse(strings.Join([]string{channel, quality, hour, name}, "/"))
		if err != nil || s.Kind == segment.Temp {
			// Unparseable or temp entries are invisible to readers,
			// per the name-prefix filtering rule.
			continue
		}
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		out = append(out, SizedSegment{Segment: s, Size: info.Size()})
	}
	return out, nil
}

// SizedSegment pairs a parsed Segment with its on-disk byte length.
type SizedSegment struct {
	segment.Segment
	Size int64
}

// ReadSegment reads the full bytes of a segment from the archive.
func ReadSegment(a *Archive, s segment.Segment) ([]byte, error) {
	abs, err := a.AbsPath(s)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// Exists reports whether s's file is already present in the archive.
func Exists(a *Archive, s segment.Segment) bool {
	abs, err := a.AbsPath(s)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}
