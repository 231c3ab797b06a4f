/*
DESCRIPTION
  token.go implements a thread-safe oauth2.TokenSource wrapper that
  invokes a callback whenever the underlying token is refreshed.
  Grounded on gauth.SmartTokenSource in the teacher, adapted away from
  its GCS-backed persistence use into a generic notify callback (the
  teacher's file a file to carry a TODO about thread safety the teacher
  never got back around to; this version closes it with a mutex) and
  used by both the Twitch provider's bearer token and the YouTube
  upload sink's refresh token.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package oauthutil wraps golang.org/x/oauth2 token sources with
// refresh notification, so a caller can persist a newly-issued token
// without polling.
package oauthutil

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/ausocean/utils/logging"
)

// RefreshNotifyFunc is called with the newly-issued token each time the
// underlying source refreshes it. An error here (e.g. persisting the
// token failed) is logged, not propagated: the refreshed token is
// still usable for the caller's immediate request regardless of
// whether it could be saved.
type RefreshNotifyFunc func(*oauth2.Token) error

// NotifyingTokenSource wraps an oauth2.TokenSource, calling
// RefreshNotifyFunc whenever Token returns an access token different
// from the last one observed.
type NotifyingTokenSource struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	notify RefreshNotifyFunc
	log    logging.Logger
	curr   *oauth2.Token
}

// New wraps cfg's token source (seeded with tok) so that every refresh
// invokes notify with the new token.
func New(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, notify RefreshNotifyFunc, log logging.Logger) *NotifyingTokenSource {
	return &NotifyingTokenSource{
		src:    cfg.TokenSource(ctx, tok),
		notify: notify,
		log:    log,
		curr:   tok,
	}
}

// Token returns a valid access token, invoking notify if the
// underlying source refreshed it since the last call.
func (s *NotifyingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curr == nil || s.curr.AccessToken != tok.AccessToken {
		s.curr = tok
		if s.notify != nil {
			if err := s.notify(tok); err != nil {
				s.log.Error("oauthutil: refresh notify failed", "error", err)
			}
		}
	}
	return s.curr, nil
}
