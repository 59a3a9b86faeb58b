package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const presetsYAML = `
presets:
  btc-scalp:
    description: "quick btc entry"
    symbol: btcusdt
    side: buy
    type: market
    quantity: 0.002
    leverage: 10
    close_after_fill: true
    overrides:
      type: object
      properties:
        quantity:
          type: number
          maximum: 0.01
  eth-timed:
    symbol: ETHUSDT
    side: BUY
    quantity: 0.05
    close_delay_seconds: 30
`

func writePresets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRegistry(t *testing.T) {
	t.Run("loads and normalizes presets", func(t *testing.T) {
		reg, err := NewRegistry(writePresets(t, presetsYAML))
		require.NoError(t, err)

		p, ok := reg.Preset("btc-scalp")
		require.True(t, ok)
		assert.Equal(t, "BTCUSDT", p.Symbol)
		assert.Equal(t, "BUY", p.Side)
		assert.Equal(t, "MARKET", p.Type)
		assert.Equal(t, 1, p.Version)
		assert.True(t, p.CloseAfterFill)

		snap := reg.Snapshot()
		assert.Len(t, snap.Presets, 2)
		assert.Equal(t, int64(1), snap.Version)
	})

	t.Run("unknown preset", func(t *testing.T) {
		reg, err := NewRegistry(writePresets(t, presetsYAML))
		require.NoError(t, err)
		_, ok := reg.Preset("missing")
		assert.False(t, ok)
	})

	t.Run("overrides schema enforced", func(t *testing.T) {
		reg, err := NewRegistry(writePresets(t, presetsYAML))
		require.NoError(t, err)

		assert.NoError(t, reg.ValidateOverrides("btc-scalp", map[string]any{"quantity": 0.005}))
		assert.Error(t, reg.ValidateOverrides("btc-scalp", map[string]any{"quantity": 0.5}))
		// numeric strings are coerced before validation
		assert.NoError(t, reg.ValidateOverrides("btc-scalp", map[string]any{"quantity": "0.005"}))
	})

	t.Run("preset without schema accepts anything", func(t *testing.T) {
		reg, err := NewRegistry(writePresets(t, presetsYAML))
		require.NoError(t, err)
		assert.NoError(t, reg.ValidateOverrides("eth-timed", map[string]any{"quantity": 100}))
	})

	t.Run("unknown top-level keys rejected", func(t *testing.T) {
		_, err := NewRegistry(writePresets(t, "templates:\n  a:\n    symbol: X\n"))
		assert.Error(t, err)
	})

	t.Run("empty path rejected", func(t *testing.T) {
		_, err := NewRegistry("  ")
		assert.Error(t, err)
	})
}
