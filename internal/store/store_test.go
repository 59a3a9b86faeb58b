package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tempo/internal/scheduler"
)

func scheduledRecord(id string) *Record {
	return &Record{
		ID:          id,
		Symbol:      "BTCUSDT",
		Side:        "BUY",
		Type:        "MARKET",
		Quantity:    0.01,
		ScheduledAt: time.Now().Add(time.Minute),
		Status:      StatusScheduled,
	}
}

func TestStorePut(t *testing.T) {
	t.Run("insert and get", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		rec, ok := s.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "BTCUSDT", rec.Symbol)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		s := New()
		assert.Error(t, s.Put(&Record{}))
	})

	t.Run("replace allowed only while scheduled", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		assert.NoError(t, s.Put(scheduledRecord("a")))

		s.Update("a", func(r *Record) { r.Status = StatusExecuted })
		assert.Error(t, s.Put(scheduledRecord("a")))
	})

	t.Run("replace tears down existing loops", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		ctx, cancel := context.WithCancel(context.Background())
		s.SetPrimaryHandle("a", scheduler.NewHandle(cancel))

		assert.NoError(t, s.Put(scheduledRecord("a")))
		select {
		case <-ctx.Done():
		default:
			t.Fatal("old primary loop was not cancelled")
		}
	})
}

func TestStoreSnapshots(t *testing.T) {
	t.Run("get returns a copy", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		rec, _ := s.Get("a")
		rec.Symbol = "ETHUSDT"
		again, _ := s.Get("a")
		assert.Equal(t, "BTCUSDT", again.Symbol)
	})

	t.Run("all returns every record", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		assert.NoError(t, s.Put(scheduledRecord("b")))
		assert.Len(t, s.All(), 2)
	})

	t.Run("terminal records are retained", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		s.Update("a", func(r *Record) { r.Status = StatusFailed })
		assert.Len(t, s.All(), 1)
	})
}

func TestStoreCancel(t *testing.T) {
	t.Run("scheduled record is cancelled and loops stopped", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		ctx, cancel := context.WithCancel(context.Background())
		s.SetPrimaryHandle("a", scheduler.NewHandle(cancel))

		out, err := s.Cancel("a")
		assert.NoError(t, err)
		assert.False(t, out.PendingCloseCancelled)
		assert.Equal(t, StatusCancelled, out.Record.Status)
		assert.NotNil(t, out.Record.CancelledAt)
		select {
		case <-ctx.Done():
		default:
			t.Fatal("primary loop was not cancelled")
		}
	})

	t.Run("executed with pending time close cancels only the close", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		s.Update("a", func(r *Record) { r.Status = StatusExecuted })
		ctx, cancel := context.WithCancel(context.Background())
		s.SetTimeCloseHandle("a", scheduler.NewHandle(cancel))

		out, err := s.Cancel("a")
		assert.NoError(t, err)
		assert.True(t, out.PendingCloseCancelled)
		assert.Equal(t, StatusExecuted, out.Record.Status)
		select {
		case <-ctx.Done():
		default:
			t.Fatal("time close loop was not cancelled")
		}

		// second cancel: nothing pending anymore
		_, err = s.Cancel("a")
		var serr *InvalidStateError
		assert.ErrorAs(t, err, &serr)
	})

	t.Run("executed after close completed is invalid state", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		s.Update("a", func(r *Record) { r.Status = StatusExecuted })
		_, cancel := context.WithCancel(context.Background())
		s.SetTimeCloseHandle("a", scheduler.NewHandle(cancel))
		s.ClearTimeCloseHandle("a")

		_, err := s.Cancel("a")
		var serr *InvalidStateError
		assert.ErrorAs(t, err, &serr)
		assert.Equal(t, StatusExecuted, serr.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		s := New()
		_, err := s.Cancel("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("already cancelled", func(t *testing.T) {
		s := New()
		assert.NoError(t, s.Put(scheduledRecord("a")))
		_, err := s.Cancel("a")
		assert.NoError(t, err)
		_, err = s.Cancel("a")
		var serr *InvalidStateError
		assert.ErrorAs(t, err, &serr)
	})
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusScheduled.Terminal())
	assert.True(t, StatusExecuted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestRecordClone(t *testing.T) {
	closeAt := time.Now().Add(time.Hour)
	rec := scheduledRecord("a")
	rec.CloseAt = &closeAt
	rec.TimeClose = &CloseOutcome{Closed: true, OrderID: 7}

	clone := rec.Clone()
	*clone.CloseAt = closeAt.Add(time.Hour)
	clone.TimeClose.OrderID = 8

	assert.Equal(t, closeAt, *rec.CloseAt)
	assert.Equal(t, int64(7), rec.TimeClose.OrderID)
}
