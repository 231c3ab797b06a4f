/*
DESCRIPTION
  peer.go defines the peer set a Backfiller draws from: a static
  configured list plus an optional discovery callback, always with
  self excluded.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package backfill replicates segments missing from the local archive
// by pulling them from peer nodes serving the same channels.
package backfill

import "context"

// Peer identifies one other node a Backfiller may pull segments from.
type Peer struct {
	Name    string // stable identity, used to skip self and for logging.
	BaseURL string // e.g. "https://node2.example.net"
}

// Source supplies the current peer set. StaticPeers is the common case;
// a discovery-backed Source (e.g. service registry lookup) can be
// substituted without changing the Backfiller.
type Source interface {
	Peers(ctx context.Context) ([]Peer, error)
}

// StaticPeers is a Source backed by a fixed, configured list.
type StaticPeers []Peer

// Peers implements Source.
func (s StaticPeers) Peers(ctx context.Context) ([]Peer, error) { return []Peer(s), nil }

// withoutSelf returns peers with any entry named self removed.
func withoutSelf(peers []Peer, self string) []Peer {
	out := peers[:0:0]
	for _, p := range peers {
		if p.Name == self {
			continue
		}
		out = append(out, p)
	}
	return out
}
