/*
DESCRIPTION
  hours.go implements hour selection for a fast backfill pass (the last
  N hours; there is no explicit [start, stop] range, and a slow pass
  takes the hours the peer lists instead) and the traversal order
  (forward, reverse, random) used to spread collision risk across
  peers running the same cadence concurrently.

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
	"math/rand"
	"time"
)

const hourLayout = "2006-01-02T15"

// Order controls the sequence hours are visited in during one pass.
type Order int

// The supported traversal orders.
const (
	Forward Order = iota
	Reverse
	Random
)

// lastNHours returns the n most recent hour-directory names up to and
// including now's hour, oldest first.
func lastNHours(n int, now time.Time) []string {
	now = now.UTC()
	hours := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		hours = append(hours, now.Add(-time.Duration(i)*time.Hour).Truncate(time.Hour).Format(hourLayout))
	}
	return hours
}

// applyOrder returns hours reordered per order. Forward leaves the
// (already oldest-first) slice unchanged; Reverse visits newest first;
// Random shuffles independently per call so concurrent peers scanning
// the same hour set don't collide on the same hour at the same time.
func applyOrder(hours []string, order Order) []string {
	out := make([]string, len(hours))
	copy(out, hours)

	switch order {
	case Reverse:
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	case Random:
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}
