/*
DESCRIPTION
  seen.go implements the bounded "recently seen" URI set each Worker
  uses to avoid re-downloading a segment already observed, without
  growing without bound over a worker's lifetime.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package downloader

// seenSet is a FIFO-evicting set of URIs, bounded to capacity entries.
// Not safe for concurrent use; each Worker owns its own seenSet and
// touches it only from its single polling goroutine.
type seenSet struct {
	capacity int
	order    []string
	present  map[string]struct{}
}

// newSeenSet returns a seenSet holding at most capacity URIs.
func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		capacity: capacity,
		present:  make(map[string]struct{}, capacity),
	}
}

// Has reports whether uri has been added before.
func (s *seenSet) Has(uri string) bool {
	_, ok := s.present[uri]
	return ok
}

// Add records uri as seen, evicting the oldest entry if the set is at
// capacity.
func (s *seenSet) Add(uri string) {
	if s.Has(uri) {
		return
	}
	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.present, oldest)
	}
	s.order = append(s.order, uri)
	s.present[uri] = struct{}{}
}
