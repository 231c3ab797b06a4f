/*
DESCRIPTION
  twitch.go implements the Twitch-style provider: a signed
  access-token handshake via GraphQL, followed by a master playlist
  fetch against Twitch's HLS edge (usher). No retrieved library covers
  this private API, so the handshake is implemented directly against
  net/http.

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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grafov/m3u8"
	"golang.org/x/oauth2"
)

const (
	twitchGQLURL   = "https://gql.twitch.tv/gql"
	twitchUsherURL = "https://usher.ttvnw.net/api/channel/hls"

	// twitchAccessTokenHash is the persisted-query hash for the
	// PlaybackAccessToken operation; Twitch's client ships with this
	// baked in and it has been stable for years.
	twitchAccessTokenHash = "0828119ded1c13477966434e15800ff57ddacf13ba1911c129dc2200705b0712"

	// maxTwitchWorkerAge bounds how long a worker may keep polling a
	// resolved media playlist URL before re-resolving, per spec §4.3.
	maxTwitchWorkerAge = 20 * time.Hour
)

// TwitchProvider resolves a Twitch channel's media playlist URL via the
// two-step access-token handshake.
type TwitchProvider struct {
	Client      *http.Client
	Channel     string
	ClientID    string
	TokenSource oauth2.TokenSource // optional; nil means an unauthenticated handshake.
}

// NewTwitchProvider returns a TwitchProvider for channel, authenticating
// GraphQL requests with clientID and, if ts is non-nil, a bearer token.
func NewTwitchProvider(channel, clientID string, ts oauth2.TokenSource) *TwitchProvider {
	return &TwitchProvider{
		Client:      http.DefaultClient,
		Channel:     channel,
		ClientID:    clientID,
		TokenSource: ts,
	}
}

type twitchAccessToken struct {
	Value     string
	Signature string
}

// Resolve implements Provider.
func (p *TwitchProvider) Resolve(ctx context.Context, quality string) (Resolution, error) {
	tok, err := p.fetchAccessToken(ctx)
	if err != nil {
		return Resolution{}, err
	}

	masterURL, err := p.masterPlaylistURL(tok)
	if err != nil {
		return Resolution{}, err
	}

	body, err := get(ctx, p.Client, masterURL)
	if err != nil {
		return Resolution{}, err
	}
	defer body.Close()

	playlist, listType, err := m3u8.DecodeFrom(body, true)
	if err != nil {
		return Resolution{}, fmt.Errorf("hls: could not decode twitch master playlist: %w", err)
	}
	if listType != m3u8.MASTER {
		return Resolution{}, fmt.Errorf("hls: twitch response is not a master playlist: %w", ErrUnsupported)
	}
	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return Resolution{}, fmt.Errorf("hls: unexpected twitch playlist type: %w", ErrUnsupported)
	}

	variant, err := selectVariant(master, quality)
	if err != nil {
		return Resolution{}, fmt.Errorf("hls: channel %q quality %q: %w", p.Channel, quality, err)
	}

	return Resolution{
		MediaPlaylistURL: variant.URI,
		MaxWorkerAge:     maxTwitchWorkerAge,
	}, nil
}

func (p *TwitchProvider) fetchAccessToken(ctx context.Context) (twitchAccessToken, error) {
	reqBody := map[string]any{
		"operationName": "PlaybackAccessToken",
		"extensions": map[string]any{
			"persistedQuery": map[string]any{
				"version":    1,
				"sha256Hash": twitchAccessTokenHash,
			},
		},
		"variables": map[string]any{
			"isLive":     true,
			"login":      p.Channel,
			"isVod":      false,
			"vodID":      "",
			"playerType": "site",
		},
	}
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return twitchAccessToken{}, fmt.Errorf("hls: could not encode twitch access token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitchGQLURL, bytes.NewReader(buf))
	if err != nil {
		return twitchAccessToken{}, fmt.Errorf("hls: bad twitch access token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", p.ClientID)
	if p.TokenSource != nil {
		t, err := p.TokenSource.Token()
		if err != nil {
			return twitchAccessToken{}, fmt.Errorf("hls: could not obtain twitch oauth token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return twitchAccessToken{}, fmt.Errorf("%w: twitch gql: %v", ErrRemote, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return twitchAccessToken{}, fmt.Errorf("%w: twitch gql: status %d", ErrRemote, resp.StatusCode)
	}

	var parsed struct {
		Data struct {
			StreamPlaybackAccessToken struct {
				Value     string `json:"value"`
				Signature string `json:"signature"`
			} `json:"streamPlaybackAccessToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return twitchAccessToken{}, fmt.Errorf("hls: could not decode twitch access token response: %w", err)
	}
	tok := parsed.Data.StreamPlaybackAccessToken
	if tok.Value == "" || tok.Signature == "" {
		return twitchAccessToken{}, fmt.Errorf("hls: twitch access token response missing value/signature: %w", ErrRemote)
	}
	return twitchAccessToken{Value: tok.Value, Signature: tok.Signature}, nil
}

func (p *TwitchProvider) masterPlaylistURL(tok twitchAccessToken) (string, error) {
	u, err := url.Parse(fmt.Sprintf("%s/%s.m3u8", twitchUsherURL, p.Channel))
	if err != nil {
		return "", fmt.Errorf("hls: could not build twitch master url: %w", err)
	}
	q := u.Query()
	q.Set("sig", tok.Signature)
	q.Set("token", tok.Value)
	q.Set("p", strconv.Itoa(rand.Intn(1_000_000)))
	q.Set("allow_source", "true")
	q.Set("allow_audio_only", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// selectVariant applies the rendition-selection rules in spec §4.3: the
// variant whose video rendition name contains "(source)" is the source
// rendition, and audio_only is excluded unless explicitly requested.
func selectVariant(master *m3u8.MasterPlaylist, quality string) (*m3u8.Variant, error) {
	for _, v := range master.Variants {
		name := videoRenditionName(v)
		if name == "" {
			continue
		}
		isAudioOnly := strings.EqualFold(name, "audio_only")
		if isAudioOnly && !strings.EqualFold(quality, "audio_only") {
			continue
		}
		if strings.EqualFold(quality, "source") {
			if strings.Contains(name, "(source)") {
				return v, nil
			}
			continue
		}
		if strings.EqualFold(name, quality) {
			return v, nil
		}
	}
	return nil, ErrUnsupported
}

// videoRenditionName returns v's associated EXT-X-MEDIA video rendition
// name, or "" if v has no video alternative (malformed master playlist).
func videoRenditionName(v *m3u8.Variant) string {
	for _, alt := range v.Alternatives {
		if alt == nil {
			continue
		}
		if strings.EqualFold(alt.Type, "VIDEO") {
			return alt.Name
		}
	}
	return ""
}
