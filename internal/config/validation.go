package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Binance.validate(); err != nil {
		return err
	}
	if err := c.Scheduler.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	return nil
}

func (b *BinanceConfig) validate() error {
	if strings.TrimSpace(b.RESTBaseURL) == "" {
		return fmt.Errorf("binance.rest_base_url cannot be empty")
	}
	if b.ProxyEnabled && strings.TrimSpace(b.RESTProxyURL) == "" {
		return fmt.Errorf("binance.rest_proxy_url required when proxy_enabled")
	}
	return nil
}

func (s *SchedulerConfig) validate() error {
	if s.PollMs <= 0 || s.FinePollMs <= 0 {
		return fmt.Errorf("scheduler poll periods must be positive")
	}
	if s.FinePollMs > s.PollMs {
		return fmt.Errorf("scheduler.fine_poll_ms must not exceed scheduler.poll_ms")
	}
	if s.GraceMs <= 0 {
		return fmt.Errorf("scheduler.grace_ms must be positive")
	}
	if s.FillPollMs <= 0 || s.FillTimeoutSeconds <= 0 {
		return fmt.Errorf("scheduler fill watch settings must be positive")
	}
	if s.MinLeadSeconds <= 0 || s.MaxLeadDays <= 0 {
		return fmt.Errorf("scheduler lead bounds must be positive")
	}
	if s.MinLead() >= s.MaxLead() {
		return fmt.Errorf("scheduler.min_lead_seconds must be below scheduler.max_lead_days")
	}
	return nil
}
