package store

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusExecuted  Status = "executed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further status transition may occur. An
// executed record may still have chained close outcomes pending; those are
// tracked in the outcome fields, never in Status.
func (s Status) Terminal() bool {
	return s == StatusExecuted || s == StatusFailed || s == StatusCancelled
}

// CloseOutcome tracks one chained close action. The fill-triggered and
// time-triggered closes are independent; a record may carry both.
type CloseOutcome struct {
	Closed   bool      `json:"closed"`
	ClosedAt time.Time `json:"closed_at"`
	OrderID  int64     `json:"close_order_id,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Record is the scheduled-order entity. It holds domain data only; timer
// handles live in the store's side table and are never serialized.
type Record struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Type        string  `json:"type"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price,omitempty"`
	TimeInForce string  `json:"time_in_force"`

	ScheduledAt    time.Time  `json:"scheduled_at"`
	CloseAfterFill bool       `json:"close_after_fill"`
	CloseAt        *time.Time `json:"close_at,omitempty"`

	ReduceOnly bool   `json:"reduce_only"`
	Leverage   int    `json:"leverage"`
	MarginMode string `json:"margin_mode"`

	Status          Status     `json:"status"`
	ExchangeOrderID int64      `json:"exchange_order_id,omitempty"`
	ExecutedAt      *time.Time `json:"executed_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	Error           string     `json:"error,omitempty"`

	// Timing deviation of the primary fire, for observability.
	ScheduledUnixMs int64 `json:"scheduled_unix_ms,omitempty"`
	ExecutedUnixMs  int64 `json:"executed_unix_ms,omitempty"`
	DriftMs         int64 `json:"drift_ms,omitempty"`

	FillClose *CloseOutcome `json:"fill_close,omitempty"`
	TimeClose *CloseOutcome `json:"time_close,omitempty"`
}

// Clone returns a deep copy safe to hand to callers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	if r.CloseAt != nil {
		t := *r.CloseAt
		out.CloseAt = &t
	}
	if r.ExecutedAt != nil {
		t := *r.ExecutedAt
		out.ExecutedAt = &t
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		out.CancelledAt = &t
	}
	if r.FillClose != nil {
		o := *r.FillClose
		out.FillClose = &o
	}
	if r.TimeClose != nil {
		o := *r.TimeClose
		out.TimeClose = &o
	}
	return &out
}
