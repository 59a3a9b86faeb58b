package apihttp

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tempo/internal/engine"
	"tempo/internal/preset"
)

// pick returns the first existing field among aliases, so clients may
// send either camelCase or snake_case keys.
func pick(body gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := body.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func parseTimeField(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.String:
		t, err := time.Parse(time.RFC3339, v.String())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q, expected RFC3339", v.String())
		}
		return t, nil
	case gjson.Number:
		return time.UnixMilli(v.Int()), nil
	default:
		return time.Time{}, fmt.Errorf("invalid time value %q", v.Raw)
	}
}

// parseCreateRequest tolerantly decodes a schedule-order body. Numeric
// fields accept both JSON numbers and numeric strings; times accept
// RFC3339 strings or unix milliseconds.
func parseCreateRequest(raw []byte) (engine.CreateRequest, string, error) {
	var req engine.CreateRequest
	if len(raw) == 0 {
		return req, "", fmt.Errorf("request body is required")
	}
	if !gjson.ValidBytes(raw) {
		return req, "", fmt.Errorf("request body is not valid JSON")
	}
	body := gjson.ParseBytes(raw)

	req.Symbol = pick(body, "symbol").String()
	req.Side = pick(body, "side").String()
	req.Type = pick(body, "type", "orderType", "order_type").String()
	req.Quantity = pick(body, "quantity", "qty").Float()
	req.Price = pick(body, "price").Float()
	req.TimeInForce = pick(body, "timeInForce", "time_in_force").String()
	req.CloseAfterFill = pick(body, "closeAfterFill", "close_after_fill").Bool()
	req.ReduceOnly = pick(body, "reduceOnly", "reduce_only").Bool()
	req.Leverage = int(pick(body, "leverage").Int())
	req.MarginMode = pick(body, "marginMode", "margin_mode", "marginType", "margin_type").String()

	if v := pick(body, "scheduledAt", "scheduled_at", "executeAt", "execute_at"); v.Exists() {
		t, err := parseTimeField(v)
		if err != nil {
			return req, "", fmt.Errorf("scheduledAt: %w", err)
		}
		req.ScheduledAt = t
	} else if v := pick(body, "delaySeconds", "delay_seconds"); v.Exists() {
		req.ScheduledAt = time.Now().Add(time.Duration(v.Float() * float64(time.Second)))
	}
	if v := pick(body, "closeAt", "close_at"); v.Exists() {
		t, err := parseTimeField(v)
		if err != nil {
			return req, "", fmt.Errorf("closeAt: %w", err)
		}
		req.CloseAt = &t
	}

	presetID := strings.TrimSpace(pick(body, "preset").String())
	return req, presetID, nil
}

// applyPreset validates overrides and fills request fields the client
// left empty from the named preset.
func applyPreset(reg *preset.Registry, id string, req engine.CreateRequest, raw []byte) (engine.CreateRequest, error) {
	p, ok := reg.Preset(id)
	if !ok {
		return req, fmt.Errorf("unknown preset: %s", id)
	}
	if body, ok := gjson.ParseBytes(raw).Value().(map[string]any); ok {
		delete(body, "preset")
		if err := reg.ValidateOverrides(id, body); err != nil {
			return req, fmt.Errorf("preset %s overrides: %w", id, err)
		}
	}
	if req.Symbol == "" {
		req.Symbol = p.Symbol
	}
	if req.Side == "" {
		req.Side = p.Side
	}
	if req.Type == "" {
		req.Type = p.Type
	}
	if req.Quantity == 0 {
		req.Quantity = p.Quantity
	}
	if req.Price == 0 {
		req.Price = p.Price
	}
	if req.Leverage == 0 {
		req.Leverage = p.Leverage
	}
	if req.MarginMode == "" {
		req.MarginMode = p.MarginMode
	}
	if req.TimeInForce == "" {
		req.TimeInForce = p.TimeInForce
	}
	if !req.ReduceOnly {
		req.ReduceOnly = p.ReduceOnly
	}
	if !req.CloseAfterFill {
		req.CloseAfterFill = p.CloseAfterFill
	}
	if req.CloseAt == nil && p.CloseDelaySeconds > 0 && !req.ScheduledAt.IsZero() {
		t := req.ScheduledAt.Add(time.Duration(p.CloseDelaySeconds) * time.Second)
		req.CloseAt = &t
	}
	return req, nil
}

func parseReplayRequest(raw []byte) (time.Duration, bool) {
	delay := 5 * time.Second
	shiftClose := true
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return delay, shiftClose
	}
	body := gjson.ParseBytes(raw)
	// zero or missing delay keeps the default, matching the lenient
	// create-side parsing
	if v := pick(body, "delaySeconds", "delay_seconds"); v.Exists() && v.Float() > 0 {
		delay = time.Duration(v.Float() * float64(time.Second))
	}
	if v := pick(body, "shiftClose", "shift_close"); v.Exists() {
		shiftClose = v.Bool()
	}
	return delay, shiftClose
}

func parseCloseRequest(raw []byte) string {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return ""
	}
	return strings.TrimSpace(gjson.GetBytes(raw, "symbol").String())
}
