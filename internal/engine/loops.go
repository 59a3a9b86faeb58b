package engine

import (
	"context"
	"time"

	"tempo/internal/closer"
	"tempo/internal/gateway/exchange"
	"tempo/internal/logger"
	"tempo/internal/precision"
	"tempo/internal/scheduler"
	"tempo/internal/store"
	"tempo/internal/store/execlog"
)

// startPrimary spawns the firing loop for a scheduled record and registers
// its handle so cancel/reschedule can tear it down.
func (e *Engine) startPrimary(id string, target time.Time) {
	ctx, cancel := context.WithCancel(e.ctx)
	h := scheduler.NewHandle(cancel)
	e.st.SetPrimaryHandle(id, h)
	loop := scheduler.NewLoop("primary:"+id, e.settings.Poll, e.settings.FinePoll, e.settings.FineWindow, e.settings.Grace)
	go func() {
		defer h.Finish()
		loop.Run(ctx, target, func() { e.fire(ctx, id) })
	}()
}

// fire executes one scheduled order at its instant. Every mutation goes
// through the store so cancel races resolve on record status, not on
// goroutine timing.
func (e *Engine) fire(ctx context.Context, id string) {
	rec, ok := e.st.Get(id)
	if !ok || rec.Status.Terminal() {
		return
	}

	meta, err := e.gw.SymbolMetadata(ctx, rec.Symbol)
	if err != nil {
		e.failRecord(rec, "fetching symbol metadata: "+err.Error())
		return
	}
	spec := precision.Resolve(*meta)
	qty := precision.RoundQuantity(rec.Quantity, spec.StepSize, spec.QuantityPrecision)

	price := rec.Price
	if rec.Type != exchange.OrderTypeLimit || price <= 0 {
		mark, err := e.gw.MarkPrice(ctx, rec.Symbol)
		if err != nil {
			logger.Errorf("engine: mark price for %s: %v", rec.Symbol, err)
		} else {
			price = mark
		}
	}

	if !rec.ReduceOnly && qty*price < e.settings.MinNotional {
		e.failRecord(rec, "order notional below exchange minimum")
		logger.Warnf("engine: %s notional %.4f below minimum %.2f, not submitting", id, qty*price, e.settings.MinNotional)
		return
	}

	// Margin and leverage setup is best effort: the exchange rejects the
	// calls when a position is already open, which must not block the
	// order itself.
	if rec.MarginMode != "" {
		if err := e.gw.SetMarginMode(ctx, rec.Symbol, rec.MarginMode); err != nil {
			logger.Warnf("engine: setting margin mode %s on %s: %v", rec.MarginMode, rec.Symbol, err)
		}
	}
	if rec.Leverage > 0 {
		if err := e.gw.SetLeverage(ctx, rec.Symbol, rec.Leverage); err != nil {
			logger.Warnf("engine: setting leverage %dx on %s: %v", rec.Leverage, rec.Symbol, err)
		}
	}

	req := exchange.OrderRequest{
		Symbol:            rec.Symbol,
		Side:              rec.Side,
		Type:              rec.Type,
		Quantity:          qty,
		TimeInForce:       rec.TimeInForce,
		ReduceOnly:        rec.ReduceOnly,
		QuantityPrecision: spec.QuantityPrecision,
		PricePrecision:    spec.PricePrecision,
	}
	if rec.Type == exchange.OrderTypeLimit {
		req.Price = price
	}

	firedAt := e.now()
	res, err := e.gw.SubmitOrder(ctx, req)
	if err != nil {
		e.failRecord(rec, err.Error())
		logger.Errorf("engine: submitting %s: %v", id, err)
		return
	}

	drift := firedAt.Sub(rec.ScheduledAt).Milliseconds()
	_ = e.st.Update(id, func(r *store.Record) {
		if r.Status.Terminal() {
			return
		}
		r.Status = store.StatusExecuted
		r.Quantity = qty
		r.ExchangeOrderID = res.OrderID
		t := firedAt
		r.ExecutedAt = &t
		r.ScheduledUnixMs = rec.ScheduledAt.UnixMilli()
		r.ExecutedUnixMs = firedAt.UnixMilli()
		r.DriftMs = drift
	})
	logger.Infof("engine: fired %s %s %s qty=%v orderID=%d drift=%dms",
		rec.Side, rec.Type, rec.Symbol, qty, res.OrderID, drift)
	e.journalEvent(execlog.Entry{
		RecordID: id,
		Symbol:   rec.Symbol,
		Action:   execlog.ActionFire,
		Status:   string(store.StatusExecuted),
		OrderID:  res.OrderID,
		DriftMs:  drift,
	})

	if rec.CloseAt != nil {
		if rec.CloseAt.After(e.now()) {
			e.startTimeClose(id, rec.Symbol, *rec.CloseAt)
		} else {
			logger.Warnf("engine: close time for %s already passed, skipping timed close", id)
		}
	}
	if rec.CloseAfterFill {
		e.startFillWatch(id, rec.Symbol, res.OrderID)
	}
}

func (e *Engine) failRecord(rec *store.Record, reason string) {
	now := e.now()
	_ = e.st.Update(rec.ID, func(r *store.Record) {
		if r.Status.Terminal() {
			return
		}
		r.Status = store.StatusFailed
		r.Error = reason
		t := now
		r.ExecutedAt = &t
	})
	e.journalEvent(execlog.Entry{
		RecordID: rec.ID,
		Symbol:   rec.Symbol,
		Action:   execlog.ActionFire,
		Status:   string(store.StatusFailed),
		Error:    reason,
	})
}

// startTimeClose arms the wall-clock close loop for an executed record.
func (e *Engine) startTimeClose(id, symbol string, target time.Time) {
	ctx, cancel := context.WithCancel(e.ctx)
	h := scheduler.NewHandle(cancel)
	e.st.SetTimeCloseHandle(id, h)
	loop := scheduler.NewLoop("time-close:"+id, e.settings.Poll, e.settings.FinePoll, e.settings.FineWindow, e.settings.Grace)
	go func() {
		defer h.Finish()
		defer e.st.ClearTimeCloseHandle(id)
		loop.Run(ctx, target, func() { e.timeClose(ctx, id, symbol) })
	}()
}

func (e *Engine) timeClose(ctx context.Context, id, symbol string) {
	out := e.cl.Close(ctx, symbol)
	e.recordClose(id, symbol, execlog.ActionTimeClose, out, func(r *store.Record, o *store.CloseOutcome) {
		r.TimeClose = o
	})
}

// startFillWatch polls the entry order until it fills, then closes the
// resulting position. Gives up after the fill timeout without recording
// an outcome; a later timed close may still run.
func (e *Engine) startFillWatch(id, symbol string, orderID int64) {
	ctx, cancel := context.WithCancel(e.ctx)
	h := scheduler.NewHandle(cancel)
	e.st.SetFillWatchHandle(id, h)
	go func() {
		defer h.Finish()
		defer e.st.ClearFillWatchHandle(id)

		ticker := time.NewTicker(e.settings.FillPoll)
		defer ticker.Stop()
		deadline := time.NewTimer(e.settings.FillTimeout)
		defer deadline.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-deadline.C:
				logger.Warnf("engine: fill watch for %s timed out after %s, order %d never filled", id, e.settings.FillTimeout, orderID)
				return
			case <-ticker.C:
				st, err := e.gw.OrderStatus(ctx, symbol, orderID)
				if err != nil {
					logger.Debugf("engine: fill watch %s: %v", id, err)
					continue
				}
				if !st.Filled {
					continue
				}
				logger.Infof("engine: order %d for %s filled (%s), closing position", orderID, symbol, st.Status)
				out := e.cl.Close(ctx, symbol)
				e.recordClose(id, symbol, execlog.ActionFillClose, out, func(r *store.Record, o *store.CloseOutcome) {
					r.FillClose = o
				})
				return
			}
		}
	}()
}

func (e *Engine) recordClose(id, symbol string, action string, out closer.Outcome, assign func(*store.Record, *store.CloseOutcome)) {
	now := e.now()
	o := &store.CloseOutcome{ClosedAt: now}
	switch {
	case out.Err != nil:
		o.Error = out.Err.Error()
		logger.Errorf("engine: %s for %s failed: %v", action, id, out.Err)
	case out.NoPosition:
		o.Closed = true
		logger.Infof("engine: %s for %s found no open position on %s", action, id, symbol)
	default:
		o.Closed = true
		o.OrderID = out.OrderID
		logger.Infof("engine: %s for %s closed %s with order %d", action, id, symbol, out.OrderID)
	}
	_ = e.st.Update(id, func(r *store.Record) { assign(r, o) })

	entry := execlog.Entry{
		RecordID: id,
		Symbol:   symbol,
		Action:   action,
		Status:   string(store.StatusExecuted),
		OrderID:  o.OrderID,
	}
	if o.Error != "" {
		entry.Error = o.Error
	}
	e.journalEvent(entry)
}
