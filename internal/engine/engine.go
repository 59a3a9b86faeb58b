// Package engine runs the scheduled-order lifecycle: it fires the primary
// order at its target instant, validates quantity and notional at fire
// time, and chains the optional fill-triggered and time-triggered closes.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tempo/internal/closer"
	"tempo/internal/gateway/exchange"
	"tempo/internal/logger"
	"tempo/internal/store"
	"tempo/internal/store/execlog"
)

// Settings are the engine's timing and validation constants. Zero values
// fall back to the production defaults.
type Settings struct {
	Poll       time.Duration
	FinePoll   time.Duration
	FineWindow time.Duration
	Grace      time.Duration

	FillPoll    time.Duration
	FillTimeout time.Duration

	MinNotional float64
	MinLead     time.Duration
	MaxLead     time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.Poll <= 0 {
		s.Poll = 100 * time.Millisecond
	}
	if s.FinePoll <= 0 {
		s.FinePoll = 10 * time.Millisecond
	}
	if s.FineWindow <= 0 {
		s.FineWindow = time.Second
	}
	if s.Grace <= 0 {
		s.Grace = 2 * time.Second
	}
	if s.FillPoll <= 0 {
		s.FillPoll = 100 * time.Millisecond
	}
	if s.FillTimeout <= 0 {
		s.FillTimeout = 5 * time.Minute
	}
	if s.MinNotional <= 0 {
		s.MinNotional = 5
	}
	if s.MinLead <= 0 {
		s.MinLead = time.Second
	}
	if s.MaxLead <= 0 {
		s.MaxLead = 365 * 24 * time.Hour
	}
	return s
}

type Engine struct {
	ctx      context.Context
	gw       exchange.Gateway
	st       *store.Store
	cl       *closer.Closer
	journal  *execlog.Store
	settings Settings
	nowFn    func() time.Time
}

// New builds an engine whose loops all derive from ctx; cancelling it
// tears every active loop down. journal may be nil.
func New(ctx context.Context, gw exchange.Gateway, st *store.Store, cl *closer.Closer, journal *execlog.Store, settings Settings) *Engine {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Engine{
		ctx:      ctx,
		gw:       gw,
		st:       st,
		cl:       cl,
		journal:  journal,
		settings: settings.withDefaults(),
		nowFn:    time.Now,
	}
}

// CreateRequest carries the validated inputs for one scheduled order.
type CreateRequest struct {
	Symbol         string
	Side           string
	Type           string
	Quantity       float64
	Price          float64
	TimeInForce    string
	ScheduledAt    time.Time
	CloseAfterFill bool
	CloseAt        *time.Time
	ReduceOnly     bool
	Leverage       int
	MarginMode     string
}

// Create validates the request, stores a new record and starts its
// primary firing loop. Validation failures surface synchronously; nothing
// is stored on rejection.
func (e *Engine) Create(req CreateRequest) (*store.Record, error) {
	req = normalizeRequest(req)
	if err := e.validateNew(req); err != nil {
		return nil, err
	}
	rec := &store.Record{
		ID:             uuid.NewString(),
		Symbol:         req.Symbol,
		Side:           req.Side,
		Type:           req.Type,
		Quantity:       req.Quantity,
		Price:          req.Price,
		TimeInForce:    req.TimeInForce,
		ScheduledAt:    req.ScheduledAt,
		CloseAfterFill: req.CloseAfterFill,
		CloseAt:        req.CloseAt,
		ReduceOnly:     req.ReduceOnly,
		Leverage:       req.Leverage,
		MarginMode:     req.MarginMode,
		Status:         store.StatusScheduled,
	}
	if err := e.st.Put(rec); err != nil {
		return nil, err
	}
	// Snapshot before the loop starts; once it runs, rec belongs to the
	// store lock.
	out := rec.Clone()
	e.startPrimary(out.ID, out.ScheduledAt)
	logger.Infof("engine: scheduled %s %s %s qty=%v at %s (id=%s)",
		out.Side, out.Type, out.Symbol, out.Quantity, out.ScheduledAt.Format(time.RFC3339), out.ID)
	return out, nil
}

// List returns sanitized snapshots of every record.
func (e *Engine) List() []store.Record {
	return e.st.All()
}

func (e *Engine) Get(id string) (*store.Record, bool) {
	return e.st.Get(id)
}

// Cancel delegates to the store's three-way cancel contract and journals
// a full cancellation.
func (e *Engine) Cancel(id string) (*store.CancelOutcome, error) {
	out, err := e.st.Cancel(id)
	if err != nil {
		return nil, err
	}
	if !out.PendingCloseCancelled {
		e.journalEvent(execlog.Entry{
			RecordID: id,
			Symbol:   out.Record.Symbol,
			Action:   execlog.ActionCancel,
			Status:   string(out.Record.Status),
		})
	}
	return out, nil
}

// Reschedule re-targets a still-scheduled record to now+delay, tearing
// down its current loop. Used by the manual test/replay path; delay is
// clamped to a short horizon on purpose. When shiftClose is set and the
// record has a timed close, the close moves to 10s past the new instant.
func (e *Engine) Reschedule(id string, delay time.Duration, shiftClose bool) (*store.Record, error) {
	if delay < time.Second || delay > time.Minute {
		return nil, &ValidationError{Reason: "reschedule delay must be between 1 and 60 seconds"}
	}
	rec, ok := e.st.Get(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	if rec.Status != store.StatusScheduled {
		return nil, &store.InvalidStateError{ID: id, Status: rec.Status}
	}
	newAt := e.now().Add(delay)
	rec.ScheduledAt = newAt
	if shiftClose && rec.CloseAt != nil {
		t := newAt.Add(10 * time.Second)
		rec.CloseAt = &t
	}
	if err := e.st.Put(rec); err != nil {
		return nil, err
	}
	out := rec.Clone()
	e.startPrimary(out.ID, out.ScheduledAt)
	logger.Infof("engine: rescheduled %s to %s", id, newAt.Format(time.RFC3339))
	return out, nil
}

func (e *Engine) now() time.Time {
	if e.nowFn != nil {
		return e.nowFn()
	}
	return time.Now()
}

func (e *Engine) journalEvent(entry execlog.Entry) {
	if e.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.journal.Append(ctx, entry); err != nil {
		logger.Warnf("engine: journaling %s for %s failed: %v", entry.Action, entry.RecordID, err)
	}
}
