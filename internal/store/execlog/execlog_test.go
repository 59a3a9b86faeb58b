package execlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "executions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExecLog(t *testing.T) {
	ctx := context.Background()

	t.Run("append and read back", func(t *testing.T) {
		s := openTestStore(t)
		require.NoError(t, s.Append(ctx, Entry{
			RecordID: "r1",
			Symbol:   "BTCUSDT",
			Action:   ActionFire,
			Status:   "executed",
			OrderID:  100,
			DriftMs:  12,
		}))
		require.NoError(t, s.Append(ctx, Entry{
			RecordID: "r1",
			Symbol:   "BTCUSDT",
			Action:   ActionTimeClose,
			Status:   "executed",
			OrderID:  101,
		}))

		entries, err := s.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		// newest first
		assert.Equal(t, ActionTimeClose, entries[0].Action)
		assert.Equal(t, ActionFire, entries[1].Action)
		assert.Equal(t, int64(12), entries[1].DriftMs)
		assert.False(t, entries[0].Time.IsZero())
	})

	t.Run("failure entries keep the error text", func(t *testing.T) {
		s := openTestStore(t)
		require.NoError(t, s.Append(ctx, Entry{
			RecordID: "r2",
			Symbol:   "ETHUSDT",
			Action:   ActionFire,
			Status:   "failed",
			Error:    "insufficient margin",
		}))
		entries, err := s.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "insufficient margin", entries[0].Error)
	})

	t.Run("limit is applied and capped", func(t *testing.T) {
		s := openTestStore(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, s.Append(ctx, Entry{RecordID: "r", Symbol: "X", Action: ActionFire, Status: "executed"}))
		}
		entries, err := s.Recent(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, entries, 3)

		entries, err = s.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, entries, 5)
	})

	t.Run("empty path rejected", func(t *testing.T) {
		_, err := Open("")
		assert.Error(t, err)
	})
}
