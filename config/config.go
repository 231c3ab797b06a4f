/*
DESCRIPTION
  config.go loads the node's fixed configuration record from a JSON file
  with environment variable overrides, and watches the file for live
  reload, grounded on cmd/vidforward's loadConfig/onConfigChange pattern.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config loads and live-reloads a node's configuration: archive
// location, channel/provider list, peer set, and the backfill/downloader
// tuning knobs from spec.md §6.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ProviderKind names the HLS resolution strategy for a channel.
type ProviderKind string

// The supported provider kinds.
const (
	ProviderGeneric ProviderKind = "generic"
	ProviderTwitch  ProviderKind = "twitch"
)

// Channel describes one capture target and how to resolve its HLS
// source.
type Channel struct {
	Name     string       `json:"name"`
	Provider ProviderKind `json:"provider"`

	// Generic provider fields.
	MasterURL string `json:"master_url,omitempty"`

	// Twitch provider fields. TwitchTokenEnv names an environment
	// variable holding a fixed bearer token; if TwitchRefreshToken is
	// set instead, the provider refreshes its own bearer token via
	// oauthutil against TwitchTokenURL (defaults to Twitch's OAuth2
	// token endpoint) and TwitchRefreshToken takes precedence.
	TwitchLogin        string `json:"twitch_login,omitempty"`
	TwitchClientID     string `json:"twitch_client_id,omitempty"`
	TwitchClientSecret string `json:"twitch_client_secret,omitempty"`
	TwitchTokenEnv     string `json:"twitch_token_env,omitempty"`
	TwitchRefreshToken string `json:"twitch_refresh_token,omitempty"`
	TwitchTokenURL     string `json:"twitch_token_url,omitempty"`
}

// DefaultTwitchTokenURL is Twitch's OAuth2 token endpoint, used when a
// Channel omits TwitchTokenURL.
const DefaultTwitchTokenURL = "https://id.twitch.tv/oauth2/token"

// Backfill holds the backfiller's cadence and recency-window tuning.
type Backfill struct {
	FastInterval string        `json:"fast_interval"`
	FullInterval string        `json:"full_interval"`
	RecentCutoff time.Duration `json:"recent_cutoff"`
}

// Downloader holds poll and concurrency values for the capture workers.
// They are loaded and defaulted here, but clipfleetd does not pass them
// to its workers, which run with the downloader package's own defaults.
type Downloader struct {
	PollInterval time.Duration `json:"poll_interval"`
	Concurrency  int64         `json:"concurrency"`
}

// Config is the fixed record described in spec.md §6.
type Config struct {
	BaseDir    string     `json:"base_dir"`
	Channels   []Channel  `json:"channels"`
	Qualities  []string   `json:"qualities"`
	Peers      []string   `json:"peers"`
	Backfill   Backfill   `json:"backfill"`
	Downloader Downloader `json:"downloader"`
	HTTPListen string     `json:"http_listen"`

	// LogLevel, LogSuppress and LogCallerFilters are logger knobs,
	// mirroring the teacher's logger config fields. A Watcher reloads
	// them with the rest of the Config, but clipfleetd builds its logger
	// once at Info level and does not apply them.
	LogLevel         string   `json:"log_level"`
	LogSuppress      bool     `json:"log_suppress"`
	LogCallerFilters []string `json:"log_caller_filters"`
}

func setDefaults(c *Config) {
	if c.Backfill.FastInterval == "" {
		c.Backfill.FastInterval = "@every 5m"
	}
	if c.Backfill.FullInterval == "" {
		c.Backfill.FullInterval = "@every 3h"
	}
	if c.Backfill.RecentCutoff == 0 {
		c.Backfill.RecentCutoff = 60 * time.Second
	}
	if c.Downloader.PollInterval == 0 {
		c.Downloader.PollInterval = 2 * time.Second
	}
	if c.Downloader.Concurrency == 0 {
		c.Downloader.Concurrency = 4
	}
}

// envOverrides applies the small set of environment variables that may
// override file-sourced values, named CLIPFLEET_<FIELD>.
func envOverrides(c *Config) error {
	if v := os.Getenv("CLIPFLEET_BASE_DIR"); v != "" {
		c.BaseDir = v
	}
	if v := os.Getenv("CLIPFLEET_HTTP_LISTEN"); v != "" {
		c.HTTPListen = v
	}
	if v := os.Getenv("CLIPFLEET_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CLIPFLEET_DOWNLOADER_CONCURRENCY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: bad CLIPFLEET_DOWNLOADER_CONCURRENCY %q: %w", v, err)
		}
		c.Downloader.Concurrency = n
	}
	return nil
}

// Load reads and parses the config file at path, applies defaults for
// unset tuning fields, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: could not read %s: %w", path, err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: could not unmarshal %s: %w", path, err)
	}
	setDefaults(&c)
	if err := envOverrides(&c); err != nil {
		return nil, err
	}
	if c.BaseDir == "" {
		return nil, fmt.Errorf("config: base_dir is required")
	}
	return &c, nil
}
