package engine

import (
	"fmt"
	"strings"

	"tempo/internal/gateway/exchange"
)

// ValidationError marks a rejected request so transport can map it to a
// client error instead of a server one.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func normalizeRequest(req CreateRequest) CreateRequest {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Side = strings.ToUpper(strings.TrimSpace(req.Side))
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	req.MarginMode = strings.ToUpper(strings.TrimSpace(req.MarginMode))
	if req.Type == "" {
		req.Type = exchange.OrderTypeMarket
	}
	if req.Type == exchange.OrderTypeLimit && req.TimeInForce == "" {
		req.TimeInForce = exchange.TimeInForceGTC
	}
	return req
}

func (e *Engine) validateNew(req CreateRequest) error {
	if req.Symbol == "" {
		return invalidf("symbol is required")
	}
	if req.Side != exchange.SideBuy && req.Side != exchange.SideSell {
		return invalidf("side must be BUY or SELL, got %q", req.Side)
	}
	if req.Type != exchange.OrderTypeMarket && req.Type != exchange.OrderTypeLimit {
		return invalidf("type must be MARKET or LIMIT, got %q", req.Type)
	}
	if req.Quantity <= 0 {
		return invalidf("quantity must be positive")
	}
	if req.Type == exchange.OrderTypeLimit && req.Price <= 0 {
		return invalidf("limit orders require a positive price")
	}
	if req.MarginMode != "" && req.MarginMode != exchange.MarginModeCrossed && req.MarginMode != exchange.MarginModeIsolated {
		return invalidf("margin mode must be CROSSED or ISOLATED, got %q", req.MarginMode)
	}
	if req.Leverage < 0 {
		return invalidf("leverage must not be negative")
	}

	lead := req.ScheduledAt.Sub(e.now())
	if lead < e.settings.MinLead {
		return invalidf("scheduled time must be at least %s in the future", e.settings.MinLead)
	}
	if lead > e.settings.MaxLead {
		return invalidf("scheduled time must be within %s from now", e.settings.MaxLead)
	}
	if req.CloseAt != nil && !req.CloseAt.After(req.ScheduledAt) {
		return invalidf("close time must be after the scheduled time")
	}
	return nil
}
