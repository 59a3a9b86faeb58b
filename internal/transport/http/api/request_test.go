package apihttp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateRequest(t *testing.T) {
	t.Run("camelCase body", func(t *testing.T) {
		req, presetID, err := parseCreateRequest([]byte(`{
			"symbol": "BTCUSDT",
			"side": "BUY",
			"type": "LIMIT",
			"quantity": 0.01,
			"price": 48000,
			"timeInForce": "GTC",
			"scheduledAt": "2026-09-01T12:00:00Z",
			"closeAfterFill": true,
			"leverage": 10,
			"marginMode": "CROSSED"
		}`))
		require.NoError(t, err)
		assert.Empty(t, presetID)
		assert.Equal(t, "BTCUSDT", req.Symbol)
		assert.Equal(t, "LIMIT", req.Type)
		assert.Equal(t, 0.01, req.Quantity)
		assert.Equal(t, 48000.0, req.Price)
		assert.Equal(t, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC), req.ScheduledAt.UTC())
		assert.True(t, req.CloseAfterFill)
		assert.Equal(t, 10, req.Leverage)
	})

	t.Run("snake_case and numeric strings", func(t *testing.T) {
		req, _, err := parseCreateRequest([]byte(`{
			"symbol": "ETHUSDT",
			"side": "SELL",
			"quantity": "0.05",
			"scheduled_at": 1788264000000,
			"close_at": "2026-09-01T12:01:00Z",
			"margin_type": "ISOLATED"
		}`))
		require.NoError(t, err)
		assert.Equal(t, 0.05, req.Quantity)
		assert.Equal(t, time.UnixMilli(1788264000000), req.ScheduledAt)
		require.NotNil(t, req.CloseAt)
		assert.Equal(t, "ISOLATED", req.MarginMode)
	})

	t.Run("delaySeconds instead of absolute time", func(t *testing.T) {
		before := time.Now()
		req, _, err := parseCreateRequest([]byte(`{"symbol":"BTCUSDT","side":"BUY","quantity":1,"delaySeconds":30}`))
		require.NoError(t, err)
		assert.WithinDuration(t, before.Add(30*time.Second), req.ScheduledAt, time.Second)
	})

	t.Run("preset reference", func(t *testing.T) {
		_, presetID, err := parseCreateRequest([]byte(`{"preset":"btc-scalp","scheduledAt":"2026-09-01T12:00:00Z"}`))
		require.NoError(t, err)
		assert.Equal(t, "btc-scalp", presetID)
	})

	t.Run("invalid time", func(t *testing.T) {
		_, _, err := parseCreateRequest([]byte(`{"symbol":"X","scheduledAt":"tomorrow"}`))
		assert.Error(t, err)
	})

	t.Run("empty and malformed bodies", func(t *testing.T) {
		_, _, err := parseCreateRequest(nil)
		assert.Error(t, err)
		_, _, err = parseCreateRequest([]byte("{not json"))
		assert.Error(t, err)
	})
}

func TestParseReplayRequest(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		delay, shift := parseReplayRequest(nil)
		assert.Equal(t, 5*time.Second, delay)
		assert.True(t, shift)
	})

	t.Run("explicit values", func(t *testing.T) {
		delay, shift := parseReplayRequest([]byte(`{"delay_seconds": 30, "shift_close": false}`))
		assert.Equal(t, 30*time.Second, delay)
		assert.False(t, shift)
	})

	t.Run("zero delay falls back to default", func(t *testing.T) {
		delay, shift := parseReplayRequest([]byte(`{"delay_seconds": 0}`))
		assert.Equal(t, 5*time.Second, delay)
		assert.True(t, shift)
	})
}

func TestParseCloseRequest(t *testing.T) {
	assert.Equal(t, "BTCUSDT", parseCloseRequest([]byte(`{"symbol":" BTCUSDT "}`)))
	assert.Empty(t, parseCloseRequest(nil))
}
