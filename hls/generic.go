/*
DESCRIPTION
  generic.go implements the generic URL provider: a static master
  playlist URL exposing only the "source" quality, mapped to the
  playlist's first variant.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package hls

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/grafov/m3u8"
)

// GenericProvider resolves a fixed master playlist URL. It supports only
// the "source" quality, mapped to the master playlist's first variant,
// and reports an effectively unbounded worker age since a static URL
// never rotates.
type GenericProvider struct {
	Client       *http.Client
	MasterURL    string
	MaxWorkerAge time.Duration // zero means unbounded.
}

// NewGenericProvider returns a GenericProvider with a default HTTP client
// and an unbounded worker age.
func NewGenericProvider(masterURL string) *GenericProvider {
	return &GenericProvider{
		Client:    http.DefaultClient,
		MasterURL: masterURL,
	}
}

// Resolve implements Provider.
func (p *GenericProvider) Resolve(ctx context.Context, quality string) (Resolution, error) {
	if quality != "source" {
		return Resolution{}, fmt.Errorf("hls: generic provider only serves %q, got %q: %w", "source", quality, ErrUnsupported)
	}

	body, err := get(ctx, p.Client, p.MasterURL)
	if err != nil {
		return Resolution{}, err
	}
	defer body.Close()

	playlist, listType, err := m3u8.DecodeFrom(body, true)
	if err != nil {
		return Resolution{}, fmt.Errorf("hls: could not decode master playlist: %w", err)
	}
	if listType != m3u8.MASTER {
		return Resolution{}, fmt.Errorf("hls: %q is not a master playlist: %w", p.MasterURL, ErrUnsupported)
	}
	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok || len(master.Variants) == 0 {
		return Resolution{}, fmt.Errorf("hls: master playlist has no variants: %w", ErrUnsupported)
	}

	age := p.MaxWorkerAge
	if age <= 0 {
		age = 365 * 24 * time.Hour // effectively unbounded.
	}
	return Resolution{
		MediaPlaylistURL: master.Variants[0].URI,
		MaxWorkerAge:     age,
	}, nil
}
