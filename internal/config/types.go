package config

import (
	"strings"
	"time"
)

// Config is the top-level configuration for tempo.
type Config struct {
	App       AppConfig       `toml:"app"`
	Binance   BinanceConfig   `toml:"binance"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Presets   PresetsConfig   `toml:"presets"`
	History   HistoryConfig   `toml:"history"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

type BinanceConfig struct {
	APIKey             string `toml:"api_key"`
	APISecret          string `toml:"api_secret"`
	RESTBaseURL        string `toml:"rest_base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	ProxyEnabled       bool   `toml:"proxy_enabled"`
	RESTProxyURL       string `toml:"rest_proxy_url"`
}

func (b BinanceConfig) HTTPTimeout() time.Duration {
	return time.Duration(b.HTTPTimeoutSeconds) * time.Second
}

// SchedulerConfig controls the firing loops. Poll periods are fixed
// constants, not adaptive; the fine poll takes over inside fine_window_ms
// of the target instant.
type SchedulerConfig struct {
	PollMs             int     `toml:"poll_ms"`
	FinePollMs         int     `toml:"fine_poll_ms"`
	FineWindowMs       int     `toml:"fine_window_ms"`
	GraceMs            int     `toml:"grace_ms"`
	FillPollMs         int     `toml:"fill_poll_ms"`
	FillTimeoutSeconds int     `toml:"fill_timeout_seconds"`
	MinNotional        float64 `toml:"min_notional"`
	MinLeadSeconds     int     `toml:"min_lead_seconds"`
	MaxLeadDays        int     `toml:"max_lead_days"`
}

func (s SchedulerConfig) Poll() time.Duration     { return time.Duration(s.PollMs) * time.Millisecond }
func (s SchedulerConfig) FinePoll() time.Duration { return time.Duration(s.FinePollMs) * time.Millisecond }
func (s SchedulerConfig) Grace() time.Duration    { return time.Duration(s.GraceMs) * time.Millisecond }
func (s SchedulerConfig) FillPoll() time.Duration { return time.Duration(s.FillPollMs) * time.Millisecond }

func (s SchedulerConfig) FineWindow() time.Duration {
	return time.Duration(s.FineWindowMs) * time.Millisecond
}

func (s SchedulerConfig) FillTimeout() time.Duration {
	return time.Duration(s.FillTimeoutSeconds) * time.Second
}

func (s SchedulerConfig) MinLead() time.Duration {
	return time.Duration(s.MinLeadSeconds) * time.Second
}

func (s SchedulerConfig) MaxLead() time.Duration {
	return time.Duration(s.MaxLeadDays) * 24 * time.Hour
}

// PresetsConfig points at the optional order-preset YAML file. Empty path
// disables the registry.
type PresetsConfig struct {
	Path string `toml:"path"`
}

// HistoryConfig points at the optional sqlite execution journal. Empty path
// disables it.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// keySet tracks which config paths were explicitly set in the files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}
