// Package store keeps the authoritative in-memory registry of scheduled
// orders. Records are retained until process exit; there is no eviction of
// terminal records. Timer handles are kept in a side table keyed by record
// id so domain data stays cleanly serializable.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tempo/internal/scheduler"
)

var ErrNotFound = errors.New("scheduled order not found")

// InvalidStateError is returned when a cancel hits a record that is
// neither scheduled nor executed-with-pending-close.
type InvalidStateError struct {
	ID     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("scheduled order %s cannot be cancelled in status %s", e.ID, e.Status)
}

// CancelOutcome reports which cancel branch was taken.
type CancelOutcome struct {
	Record                Record
	PendingCloseCancelled bool
	Message               string
}

type handleSet struct {
	primary   *scheduler.Handle
	timeClose *scheduler.Handle
	fillWatch *scheduler.Handle
}

type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	handles map[string]*handleSet

	nowFn func() time.Time
}

func New() *Store {
	return &Store{
		records: make(map[string]*Record),
		handles: make(map[string]*handleSet),
		nowFn:   time.Now,
	}
}

// Put inserts a record. An existing record with the same id may only be
// replaced while still scheduled (the reschedule path); its loops are torn
// down first.
func (s *Store) Put(rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[rec.ID]; ok {
		if existing.Status != StatusScheduled {
			return fmt.Errorf("record %s already exists in status %s", rec.ID, existing.Status)
		}
		s.stopHandlesLocked(rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// All returns sanitized copies of every record, in map iteration order.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec.Clone())
	}
	return out
}

func (s *Store) Get(id string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Update applies fn to the record under the store lock. Engine loops use
// this for every mutation so readers never observe torn state.
func (s *Store) Update(id string, fn func(*Record)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// Cancel implements the three-way cancel contract: scheduled records are
// cancelled outright; executed records with a pending time-based close
// have only that close torn down; everything else is an invalid state.
func (s *Store) Cancel(id string) (*CancelOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch {
	case rec.Status == StatusScheduled:
		s.stopHandlesLocked(id)
		now := s.now()
		rec.Status = StatusCancelled
		rec.CancelledAt = &now
		return &CancelOutcome{
			Record:  *rec.Clone(),
			Message: "scheduled order cancelled",
		}, nil
	case rec.Status == StatusExecuted && s.pendingTimeCloseLocked(id):
		hs := s.handles[id]
		hs.timeClose.Stop()
		hs.timeClose = nil
		return &CancelOutcome{
			Record:                *rec.Clone(),
			PendingCloseCancelled: true,
			Message:               "pending auto-close cancelled; executed order is unaffected",
		}, nil
	default:
		return nil, &InvalidStateError{ID: id, Status: rec.Status}
	}
}

func (s *Store) SetPrimaryHandle(id string, h *scheduler.Handle) {
	s.setHandle(id, func(hs *handleSet) { hs.primary = h })
}

func (s *Store) SetTimeCloseHandle(id string, h *scheduler.Handle) {
	s.setHandle(id, func(hs *handleSet) { hs.timeClose = h })
}

func (s *Store) SetFillWatchHandle(id string, h *scheduler.Handle) {
	s.setHandle(id, func(hs *handleSet) { hs.fillWatch = h })
}

// ClearTimeCloseHandle is called by the time-close loop when it finishes,
// so a later cancel does not mistake a completed close for a pending one.
func (s *Store) ClearTimeCloseHandle(id string) {
	s.setHandle(id, func(hs *handleSet) { hs.timeClose = nil })
}

func (s *Store) ClearFillWatchHandle(id string) {
	s.setHandle(id, func(hs *handleSet) { hs.fillWatch = nil })
}

func (s *Store) setHandle(id string, fn func(*handleSet)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hs, ok := s.handles[id]
	if !ok {
		hs = &handleSet{}
		s.handles[id] = hs
	}
	fn(hs)
}

func (s *Store) pendingTimeCloseLocked(id string) bool {
	hs, ok := s.handles[id]
	return ok && hs.timeClose != nil
}

func (s *Store) stopHandlesLocked(id string) {
	hs, ok := s.handles[id]
	if !ok {
		return
	}
	hs.primary.Stop()
	hs.timeClose.Stop()
	hs.fillWatch.Stop()
	delete(s.handles, id)
}

func (s *Store) now() time.Time {
	if s.nowFn != nil {
		return s.nowFn()
	}
	return time.Now()
}
