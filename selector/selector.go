/*
DESCRIPTION
  selector.go implements best_segments: given a (channel, quality,
  start, end) request, it walks the archive's hour directories and
  produces a gap-aware, duplicate-resolved list of segments (or nil
  "hole" entries) covering the request.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package selector implements the archive's best-available segment
// selection algorithm.
package selector

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/segment"
)

// ErrContainsHoles is returned when allowHoles is false but the
// selection would otherwise contain at least one gap.
var ErrContainsHoles = errors.New("selector: selection contains holes")

// Entry is one slot in a selection: either a concrete segment, or a
// hole (Segment is the zero value and Hole is true) representing a
// known discontinuity.
type Entry struct {
	Segment segment.Segment
	Hole    bool
}

// BestSegments returns an ordered list of Entry values covering
// [start, end) as best it can from the archive, per the algorithm in
// spec §4.5. If allowHoles is false and the selection would contain
// any hole, it fails with ErrContainsHoles instead.
func BestSegments(a *archive.Archive, channel, quality string, start, end time.Time, allowHoles bool) ([]Entry, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("selector: end %v must be after start %v", end, start)
	}

	candidates, err := collectCandidates(a, channel, quality, start, end)
	if err != nil {
		return nil, err
	}

	entries := walk(candidates, start, end)

	if !allowHoles {
		for _, e := range entries {
			if e.Hole {
				return nil, ErrContainsHoles
			}
		}
	}
	return entries, nil
}

// collectCandidates gathers one chosen segment per distinct Start
// across every hour directory that could possibly contribute to
// [start, end), applying the duplicate-resolution rule within each
// Start group.
func collectCandidates(a *archive.Archive, channel, quality string, start, end time.Time) ([]segment.Segment, error) {
	hours := hourRange(start, end)

	groups := map[int64][]archive.SizedSegment{} // keyed by Start.UnixMilli()
	for _, hour := range hours {
		segs, err := archive.ListSegments(a, channel, quality, hour)
		if err != nil {
			return nil, fmt.Errorf("selector: could not list segments for hour %s: %w", hour, err)
		}
		for _, s := range segs {
			key := s.Start.UnixMilli()
			groups[key] = append(groups[key], s)
		}
	}

	out := make([]segment.Segment, 0, len(groups))
	for _, group := range groups {
		out = append(out, chooseFromGroup(group))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// hourRange returns the hour-directory names to scan: floor(start)-1h
// through floor(end) inclusive, accounting for segments whose Start
// falls in the previous hour but whose range covers start.
func hourRange(start, end time.Time) []string {
	const layout = "2006-01-02T15"
	from := start.UTC().Truncate(time.Hour).Add(-time.Hour)
	to := end.UTC().Truncate(time.Hour)

	var hours []string
	for h := from; !h.After(to); h = h.Add(time.Hour) {
		hours = append(hours, h.Format(layout))
	}
	return hours
}

// chooseFromGroup applies the duplicate-resolution rule: prefer any
// Full segment (largest duration, ties broken by largest hash,
// lexicographically), else the Partial with the largest on-disk size.
// Temp segments never reach here (archive.ListSegments excludes them).
func chooseFromGroup(group []archive.SizedSegment) segment.Segment {
	var fulls []archive.SizedSegment
	var partials []archive.SizedSegment
	for _, s := range group {
		switch s.Kind {
		case segment.Full:
			fulls = append(fulls, s)
		case segment.Partial:
			partials = append(partials, s)
		}
	}

	if len(fulls) > 0 {
		best := fulls[0]
		for _, s := range fulls[1:] {
			switch {
			case s.Duration > best.Duration:
				best = s
			case s.Duration == best.Duration && bytes.Compare(s.Hash, best.Hash) > 0:
				best = s
			}
		}
		return best.Segment
	}

	best := partials[0]
	for _, s := range partials[1:] {
		if s.Size > best.Size {
			best = s
		}
	}
	return best.Segment
}

// walk produces the ordered Entry list from a Start-sorted candidate
// list, inserting holes per the rules in spec §4.5.
func walk(candidates []segment.Segment, start, end time.Time) []Entry {
	var entries []Entry

	// Find the first candidate that either straddles start, or begins
	// within [start, end) (in which case we prepend a leading hole).
	firstIdx := -1
	leadingHole := false
	for i, c := range candidates {
		if !c.Start.After(start) && c.End().After(start) {
			firstIdx = i
			break
		}
		if !c.Start.Before(start) && c.Start.Before(end) {
			firstIdx = i
			leadingHole = true
			break
		}
	}

	if firstIdx == -1 {
		// Nothing usable at all: a single trailing hole represents the
		// entire requested range.
		return []Entry{{Hole: true}}
	}

	if leadingHole {
		entries = append(entries, Entry{Hole: true})
	}

	var prev *segment.Segment
	for i := firstIdx; i < len(candidates); i++ {
		c := candidates[i]

		if prev != nil {
			if c.Start.Before(prev.End()) {
				// Overlap: drop c and keep walking from prev.
				continue
			}
			if prev.IsPartial() || c.Start.After(prev.End()) {
				entries = append(entries, Entry{Hole: true})
			}
		}

		entries = append(entries, Entry{Segment: c})
		cc := c
		prev = &cc

		if !prev.End().Before(end) {
			break
		}
	}

	if len(entries) == 0 {
		return []Entry{{Hole: true}}
	}

	last := entries[len(entries)-1]
	if last.Hole || last.Segment.IsPartial() || last.Segment.End().Before(end) {
		entries = append(entries, Entry{Hole: true})
	}

	return entries
}
