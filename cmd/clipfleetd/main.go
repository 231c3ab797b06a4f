/*
DESCRIPTION
  clipfleetd is the node daemon: it resolves each configured channel's
  HLS source, captures segments into the local archive, replicates gaps
  from peers on a fast/slow cadence, and serves the archive back out as
  HLS and raw segment bytes. Wiring is grounded on cmd/vidforward's
  main.go in the teacher: flag parsing, a lumberjack file logger, a
  config file loaded once and then watched for live reload, and a
  watchdog that flushes state on SIGINT/SIGTERM.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// clipfleetd runs one capture-and-archive node: downloader, backfiller,
// and HTTP façade, wired from a JSON config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/backfill"
	"github.com/clipfleet/clipfleet/config"
	"github.com/clipfleet/clipfleet/downloader"
	"github.com/clipfleet/clipfleet/hls"
	"github.com/clipfleet/clipfleet/httpapi"
	"github.com/clipfleet/clipfleet/internal/globallog"
	"github.com/clipfleet/clipfleet/internal/oauthutil"
	"github.com/clipfleet/clipfleet/internal/watchdog"
)

// Logging defaults, mirroring the teacher's fixed log path/rotation.
const (
	logPath      = "/var/log/clipfleetd/clipfleetd.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
)

func main() {
	configPath := flag.String("config", "/etc/clipfleetd/config.json", "Path to the node's JSON config file.")
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logging.Info, io.MultiWriter(os.Stderr, fileLog), false)
	globallog.Set(log)

	watcher, err := config.NewWatcher(*configPath, log)
	if err != nil {
		log.Fatal("could not load config", "error", err)
	}
	if err := watcher.Start(); err != nil {
		log.Warning("could not watch config file for live reload", "error", err)
	}

	cfg := watcher.Current()
	a := archive.New(cfg.BaseDir)

	dog := watchdog.New(log)

	g, ctx := errgroup.WithContext(context.Background())
	ctx, cancel := context.WithCancel(ctx)
	dog.WatchSignals(cancel)

	mgr, err := buildDownloaderManager(cfg, a, log)
	if err != nil {
		log.Fatal("could not build downloader manager", "error", err)
	}
	g.Go(func() error { return mgr.Run(ctx) })

	bf := &backfill.Backfiller{
		Self:          cfg.HTTPListen,
		Peers:         peerSource(cfg.Peers),
		Archive:       a,
		Channels:      channelNames(cfg.Channels),
		Qualities:     cfg.Qualities,
		RecencyWindow: cfg.Backfill.RecentCutoff,
		Log:           log,
	}
	sched := &backfill.Scheduler{FastSpec: cfg.Backfill.FastInterval, SlowSpec: cfg.Backfill.FullInterval}
	if err := sched.Start(ctx, bf); err != nil {
		log.Fatal("could not start backfill scheduler", "error", err)
	}

	app := httpapi.New(a, cfg.Qualities, log)
	app.Get("/healthz", dog.Healthz())
	g.Go(func() error {
		log.Info("listening", "addr", cfg.HTTPListen)
		if err := app.Listen(cfg.HTTPListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http façade: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sched.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("clipfleetd exiting with error", "error", err)
		os.Exit(1)
	}
}

func channelNames(channels []config.Channel) []string {
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.Name
	}
	return names
}

func peerSource(peers []string) backfill.StaticPeers {
	out := make(backfill.StaticPeers, len(peers))
	for i, p := range peers {
		out[i] = backfill.Peer{Name: p, BaseURL: p}
	}
	return out
}

// buildDownloaderManager constructs one Worker per configured
// channel/quality pair, resolving each channel's provider from its
// configuration kind.
func buildDownloaderManager(cfg *config.Config, a *archive.Archive, log logging.Logger) (*downloader.Manager, error) {
	var targets []downloader.Target
	for _, ch := range cfg.Channels {
		provider, err := buildProvider(ch, log)
		if err != nil {
			return nil, fmt.Errorf("clipfleetd: channel %q: %w", ch.Name, err)
		}
		targets = append(targets, downloader.Target{
			Channel:  ch.Name,
			Provider: provider,
			Quality:  cfg.Qualities,
		})
	}
	return downloader.NewManager(targets, a, log), nil
}

// buildProvider resolves ch's token source before constructing its
// Provider. A channel with a refresh token gets a self-refreshing
// oauthutil.NotifyingTokenSource; one with only a fixed-token env var
// gets a static source; one with neither captures unauthenticated.
func buildProvider(ch config.Channel, log logging.Logger) (hls.Provider, error) {
	switch ch.Provider {
	case config.ProviderGeneric:
		if ch.MasterURL == "" {
			return nil, fmt.Errorf("generic provider requires master_url")
		}
		return hls.NewGenericProvider(ch.MasterURL), nil
	case config.ProviderTwitch:
		if ch.TwitchLogin == "" || ch.TwitchClientID == "" {
			return nil, fmt.Errorf("twitch provider requires twitch_login and twitch_client_id")
		}
		ts, err := twitchTokenSource(ch, log)
		if err != nil {
			return nil, fmt.Errorf("twitch provider: %w", err)
		}
		return hls.NewTwitchProvider(ch.TwitchLogin, ch.TwitchClientID, ts), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", ch.Provider)
	}
}

func twitchTokenSource(ch config.Channel, log logging.Logger) (oauth2.TokenSource, error) {
	if ch.TwitchRefreshToken != "" {
		tokenURL := ch.TwitchTokenURL
		if tokenURL == "" {
			tokenURL = config.DefaultTwitchTokenURL
		}
		cfg := &oauth2.Config{
			ClientID:     ch.TwitchClientID,
			ClientSecret: ch.TwitchClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		}
		seed := &oauth2.Token{RefreshToken: ch.TwitchRefreshToken}
		notify := func(tok *oauth2.Token) error {
			log.Info("twitch bearer token refreshed", "channel", ch.Name)
			return nil
		}
		return oauthutil.New(context.Background(), cfg, seed, notify, log), nil
	}
	if ch.TwitchTokenEnv != "" {
		if tok := os.Getenv(ch.TwitchTokenEnv); tok != "" {
			return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}), nil
		}
	}
	return nil, nil
}
