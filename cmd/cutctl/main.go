/*
DESCRIPTION
  cutctl is a command-line utility for cutting an arbitrary time range
  out of a clipfleetd archive and, optionally, uploading the result.
  Grounded on cmd/upload's flag-driven, single-shot command style in the
  teacher, extended to call the Selector and either cutter before
  handing the result to an uploadsink.Sink.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// cutctl cuts a time range out of an archive (fast or full) and writes
// the result to a file or uploads it to YouTube.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/cut"
	"github.com/clipfleet/clipfleet/internal/oauthutil"
	"github.com/clipfleet/clipfleet/selector"
	"github.com/clipfleet/clipfleet/uploadsink"
)

func main() {
	baseDir := flag.String("base-dir", "", "Archive root directory.")
	channel := flag.String("channel", "", "Channel name.")
	quality := flag.String("quality", "source", "Quality name.")
	start := flag.String("start", "", "Cut start, RFC3339.")
	end := flag.String("end", "", "Cut end, RFC3339.")
	mode := flag.String("mode", "fast", `Cut mode: "fast" or "full".`)
	encoderArgs := flag.String("encoder-args", "", "Space-separated extra ffmpeg args for full cut (e.g. video codec/bitrate).")
	out := flag.String("out", "", "Output file path. If empty, uploads to YouTube instead.")
	youtubeToken := flag.String("youtube-token", "", "OAuth2 access token for the YouTube upload sink (ignored if -out or -youtube-refresh-token is set).")
	youtubeClientID := flag.String("youtube-client-id", "", "OAuth2 client ID, used with -youtube-refresh-token.")
	youtubeClientSecret := flag.String("youtube-client-secret", "", "OAuth2 client secret, used with -youtube-refresh-token.")
	youtubeRefreshToken := flag.String("youtube-refresh-token", "", "OAuth2 refresh token; if set, the upload sink refreshes its own access token instead of using -youtube-token.")
	title := flag.String("title", "", "Upload title (YouTube sink only).")
	flag.Parse()

	if *baseDir == "" || *channel == "" || *start == "" || *end == "" {
		log.Fatal("base-dir, channel, start and end are required")
	}

	startTime, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		log.Fatalf("bad -start: %v", err)
	}
	endTime, err := time.Parse(time.RFC3339, *end)
	if err != nil {
		log.Fatalf("bad -end: %v", err)
	}

	a := archive.New(*baseDir)
	entries, err := selector.BestSegments(a, *channel, *quality, startTime, endTime, true)
	if err != nil {
		log.Fatalf("could not select segments: %v", err)
	}

	ctx := context.Background()

	var dst *os.File
	if *out != "" {
		dst, err = os.Create(*out)
		if err != nil {
			log.Fatalf("could not create output file: %v", err)
		}
		defer dst.Close()
	} else {
		dst, err = os.CreateTemp("", "clipfleet-cut-*.ts")
		if err != nil {
			log.Fatalf("could not create temp file: %v", err)
		}
		defer os.Remove(dst.Name())
		defer dst.Close()
	}

	switch *mode {
	case "fast":
		err = cut.FastCut(ctx, a, entries, startTime, endTime, dst)
	case "full":
		var args []string
		if *encoderArgs != "" {
			args = strings.Fields(*encoderArgs)
		}
		err = cut.FullCut(ctx, a, entries, startTime, endTime, args, false, dst)
	default:
		log.Fatalf("unknown -mode %q", *mode)
	}
	if err != nil {
		log.Fatalf("cut failed: %v", err)
	}

	if *out != "" {
		fmt.Println(dst.Name())
		return
	}

	if _, err := dst.Seek(0, 0); err != nil {
		log.Fatalf("could not rewind cut output: %v", err)
	}
	ts, err := youtubeTokenSource(ctx, *youtubeClientID, *youtubeClientSecret, *youtubeRefreshToken, *youtubeToken)
	if err != nil {
		log.Fatal(err)
	}
	sink := uploadsink.NewYouTube(ts)
	id, err := sink.Upload(ctx, dst, uploadsink.Metadata{Title: *title})
	if err != nil {
		log.Fatalf("upload failed: %v", err)
	}
	fmt.Println(id)
}

// youtubeTokenSource prefers a self-refreshing source built from a
// refresh token over a fixed access token, so long-running batch jobs
// invoking cutctl repeatedly don't need a fresh -youtube-token each time.
func youtubeTokenSource(ctx context.Context, clientID, clientSecret, refreshToken, accessToken string) (oauth2.TokenSource, error) {
	if refreshToken != "" {
		cfg := &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
		}
		seed := &oauth2.Token{RefreshToken: refreshToken}
		notify := func(tok *oauth2.Token) error { return nil }
		return oauthutil.New(ctx, cfg, seed, notify, cutctlLogger{}), nil
	}
	if accessToken == "" {
		return nil, fmt.Errorf("either -youtube-token or -youtube-refresh-token is required when -out is not set")
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}), nil
}

// cutctlLogger adapts the standard log package to logging.Logger so
// this single-shot CLI doesn't need to stand up the node's structured
// logger just to satisfy oauthutil's dependency.
type cutctlLogger struct{}

func (cutctlLogger) Debug(msg string, args ...interface{})   {}
func (cutctlLogger) Info(msg string, args ...interface{})    { log.Println(msg) }
func (cutctlLogger) Warning(msg string, args ...interface{}) { log.Println(msg) }
func (cutctlLogger) Error(msg string, args ...interface{})   { log.Println(msg) }
func (cutctlLogger) Fatal(msg string, args ...interface{})   { log.Fatalln(msg) }
