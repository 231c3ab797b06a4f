/*
DESCRIPTION
  sink.go defines the opaque upload-sink interface the cut pipeline hands
  its output stream to: "an upload destination is an opaque sink that
  consumes the cut byte stream and returns an opaque identifier."

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package uploadsink defines the opaque sink interface a cut's output
// stream is handed to, and a YouTube-backed implementation of it.
package uploadsink

import (
	"context"
	"io"
)

// Metadata describes the destination-agnostic fields a caller may set on
// an uploaded clip. A zero Metadata is valid; sinks apply their own
// defaults for anything left unset.
type Metadata struct {
	Title       string
	Description string
	Category    string
	Privacy     string
	Tags        []string
}

// Sink consumes a cut's byte stream and returns an opaque identifier the
// caller can later use to check status, per spec.md §6's external
// collaborators list. Implementations must read media to completion (or
// return an error) before returning.
type Sink interface {
	Upload(ctx context.Context, media io.Reader, meta Metadata) (id string, err error)
}

// StatusChecker is an optional capability a Sink may additionally
// implement when its destination supports polling upload status after
// the fact.
type StatusChecker interface {
	CheckStatus(ctx context.Context, id string) (string, error)
}
