/*
DESCRIPTION
  segment.go defines the Segment record and the archive filename codec:
  parse turns an on-disk path (or a bare filename) into a Segment, format
  does the inverse.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package segment defines the archive's Segment record and the filename
// encoding used to store identity and provenance on disk.
package segment

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is the finalization state of a segment file on disk.
type Type int

// The possible finalization states of a segment.
const (
	Full Type = iota
	Partial
	Temp
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case Full:
		return "full"
	case Partial:
		return "partial"
	case Temp:
		return "temp"
	default:
		return "unknown"
	}
}

func parseType(s string) (Type, bool) {
	switch s {
	case "full":
		return Full, true
	case "partial":
		return Partial, true
	case "temp":
		return Temp, true
	default:
		return 0, false
	}
}

// ErrBadFormat is returned by Parse when the input does not match the
// archive filename convention.
var ErrBadFormat = errors.New("segment: bad filename format")

// hourLayout is the strftime-equivalent "%Y-%m-%dT%H" used for hour
// directories, expressed as a time.Layout reference string.
const hourLayout = "2006-01-02T15"

// timeLayout is the "HH:MM:SS.fff" portion of a filename.
const timeLayout = "15:04:05.000"

// Segment is an immutable record describing one archived media segment.
//
// Channel and Quality are populated only when Parse is given a full
// archive-relative path (or the caller sets them directly); a bare
// filename parses to a Segment with these left empty and with Start on
// the zero date, so its Hour() names no real hour directory. Hash is nil
// when Kind is Temp.
type Segment struct {
	Channel  string
	Quality  string
	Start    time.Time // UTC, millisecond precision.
	Duration time.Duration
	Kind     Type
	Hash     []byte // 32-byte SHA-256, nil for Temp.
	UUID     string // populated for Temp segments in place of Hash.
}

// End returns Start+Duration.
func (s Segment) End() time.Time { return s.Start.Add(s.Duration) }

// IsPartial reports whether s is a Partial segment.
func (s Segment) IsPartial() bool { return s.Kind == Partial }

// Hour returns the UTC hour-directory name this segment belongs in.
func (s Segment) Hour() string { return s.Start.UTC().Format(hourLayout) }

// HashForBytes computes the segment hash used in the filename and for
// content-addressed identity checks.
func HashForBytes(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// NewTemp creates a new in-progress Temp segment for the given start and
// provider-reported duration. The returned UUID becomes part of the
// filename; it is discarded once the segment is finalized and renamed.
func NewTemp(channel, quality string, start time.Time, dur time.Duration) Segment {
	return Segment{
		Channel:  channel,
		Quality:  quality,
		Start:    start.UTC(),
		Duration: dur,
		Kind:     Temp,
		UUID:     uuid.NewString(),
	}
}

// Finalize returns a copy of s (which must be Temp) promoted to Full or
// Partial, with its hash computed from the bytes actually written.
func (s Segment) Finalize(kind Type, written []byte) Segment {
	out := s
	out.Kind = kind
	out.Hash = HashForBytes(written)
	out.UUID = ""
	return out
}

// filename returns just the final path component, e.g.
// "00:00:02.000-2-full-<hash>.ts" or "...-temp-<uuid>.ts".
func (s Segment) filename() string {
	durSec := strconv.FormatFloat(s.Duration.Seconds(), 'f', -1, 64)
	t := s.Start.UTC().Format(timeLayout)
	if s.Kind == Temp {
		return fmt.Sprintf("%s-%s-temp-%s.ts", t, durSec, s.UUID)
	}
	enc := base64.RawURLEncoding.EncodeToString(s.Hash)
	return fmt.Sprintf("%s-%s-%s-%s.ts", t, durSec, s.Kind, enc)
}

// Format produces the archive-relative path "<channel>/<quality>/<hour>/<filename>".
// Channel and Quality must be set.
func Format(s Segment) (string, error) {
	if s.Channel == "" || s.Quality == "" {
		return "", fmt.Errorf("segment: format requires channel and quality: %w", ErrBadFormat)
	}
	return strings.Join([]string{s.Channel, s.Quality, s.Hour(), s.filename()}, "/"), nil
}

// Parse accepts either a full archive-relative path
// ("<channel>/<quality>/<hour>/<filename>") or a bare filename, and
// returns the decoded Segment. A bare filename yields a Segment with
// Channel, Quality unset. Parse fails with ErrBadFormat on any deviation
// from the convention described in the archive layout.
func Parse(path string) (Segment, error) {
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")

	var s Segment
	var fname string
	switch len(parts) {
	case 1:
		fname = parts[0]
	case 4:
		s.Channel, s.Quality = parts[0], parts[1]
		fname = parts[3]
		// parts[2] (hour) is derived from Start below and re-checked
		// for consistency so a mis-filed segment is still rejected.
	default:
		return Segment{}, fmt.Errorf("segment: %q has %d path components: %w", path, len(parts), ErrBadFormat)
	}

	if !strings.HasSuffix(fname, ".ts") {
		return Segment{}, fmt.Errorf("segment: %q missing .ts suffix: %w", fname, ErrBadFormat)
	}
	stem := strings.TrimSuffix(fname, ".ts")

	// stem is "HH:MM:SS.fff-duration-type-tail", i.e. exactly 4
	// hyphen-delimited fields, noting the time field itself contains
	// colons but no hyphens.
	fields := strings.SplitN(stem, "-", 4)
	if len(fields) != 4 {
		return Segment{}, fmt.Errorf("segment: %q malformed stem: %w", fname, ErrBadFormat)
	}
	timePart, durPart, typePart, tail := fields[0], fields[1], fields[2], fields[3]

	t, err := time.Parse(timeLayout, timePart)
	if err != nil {
		return Segment{}, fmt.Errorf("segment: bad time %q: %w", timePart, ErrBadFormat)
	}

	durSec, err := strconv.ParseFloat(durPart, 64)
	if err != nil || durSec <= 0 {
		return Segment{}, fmt.Errorf("segment: bad duration %q: %w", durPart, ErrBadFormat)
	}
	s.Duration = time.Duration(durSec * float64(time.Second))

	kind, ok := parseType(typePart)
	if !ok {
		return Segment{}, fmt.Errorf("segment: bad type %q: %w", typePart, ErrBadFormat)
	}
	s.Kind = kind

	if kind == Temp {
		if tail == "" {
			return Segment{}, fmt.Errorf("segment: temp segment missing uuid: %w", ErrBadFormat)
		}
		s.UUID = tail
	} else {
		hash, err := base64.RawURLEncoding.DecodeString(tail)
		if err != nil || len(hash) != sha256.Size {
			return Segment{}, fmt.Errorf("segment: bad hash %q: %w", tail, ErrBadFormat)
		}
		s.Hash = hash
	}

	// Combine the time-of-day with the hour directory (if we have one)
	// to recover the full timestamp. A bare filename has no date
	// context, so Start carries only the time-of-day on the zero date;
	// callers that need the real Start must parse the full path.
	if len(parts) == 4 {
		hourPart := parts[2]
		day, err := time.Parse(hourLayout, hourPart)
		if err != nil {
			return Segment{}, fmt.Errorf("segment: bad hour directory %q: %w", hourPart, ErrBadFormat)
		}
		s.Start = time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		if s.Hour() != hourPart {
			return Segment{}, fmt.Errorf("segment: %q hour mismatch with start time: %w", path, ErrBadFormat)
		}
	} else {
		s.Start = t.UTC()
	}

	return s, nil
}
