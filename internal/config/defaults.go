package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":3000"

	defaultBinanceREST        = "https://fapi.binance.com"
	defaultBinanceHTTPTimeout = 15

	defaultSchedulerPollMs       = 100
	defaultSchedulerFinePollMs   = 10
	defaultSchedulerFineWindowMs = 1000
	defaultSchedulerGraceMs      = 2000
	defaultFillPollMs            = 100
	defaultFillTimeoutSeconds    = 300
	defaultMinNotional           = 5.0
	defaultMinLeadSeconds        = 1
	defaultMaxLeadDays           = 365
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Binance.applyDefaults(keys)
	c.Scheduler.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (b *BinanceConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("binance.rest_base_url", &b.RESTBaseURL, defaultBinanceREST),
		fieldDefault{
			key:   "binance.http_timeout_seconds",
			need:  func() bool { return b.HTTPTimeoutSeconds <= 0 },
			apply: func() { b.HTTPTimeoutSeconds = defaultBinanceHTTPTimeout },
		},
	)
}

func (s *SchedulerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("scheduler.poll_ms", &s.PollMs, defaultSchedulerPollMs),
		intFieldDefault("scheduler.fine_poll_ms", &s.FinePollMs, defaultSchedulerFinePollMs),
		intFieldDefault("scheduler.fine_window_ms", &s.FineWindowMs, defaultSchedulerFineWindowMs),
		intFieldDefault("scheduler.grace_ms", &s.GraceMs, defaultSchedulerGraceMs),
		intFieldDefault("scheduler.fill_poll_ms", &s.FillPollMs, defaultFillPollMs),
		intFieldDefault("scheduler.fill_timeout_seconds", &s.FillTimeoutSeconds, defaultFillTimeoutSeconds),
		intFieldDefault("scheduler.min_lead_seconds", &s.MinLeadSeconds, defaultMinLeadSeconds),
		intFieldDefault("scheduler.max_lead_days", &s.MaxLeadDays, defaultMaxLeadDays),
		fieldDefault{
			key:   "scheduler.min_notional",
			need:  func() bool { return s.MinNotional <= 0 },
			apply: func() { s.MinNotional = defaultMinNotional },
		},
	)
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
