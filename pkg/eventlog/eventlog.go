// Package eventlog is the append-only record of (query, retrieved, gate
// decision, outcome) consumed by the out-of-scope active-learning
// collaborator. It is the thinnest component: append plus query by
// thread, no update path at all, grounded in this codebase's append-only
// table style.
package eventlog

import (
	"fmt"

	"github.com/kittclouds/crtengine/internal/store"
)

type EventLog struct {
	db store.Storer
}

func New(db store.Storer) *EventLog {
	return &EventLog{db: db}
}

// Append writes one EventRecord. There is no corresponding update
// method: the Storer interface simply does not expose one.
func (e *EventLog) Append(rec *store.EventRecord) error {
	if err := e.db.AppendEvent(rec); err != nil {
		return fmt.Errorf("eventlog: append: %w", err)
	}
	return nil
}

// ForThread returns the most recent events for a thread, newest first.
func (e *EventLog) ForThread(threadID string, limit int) ([]*store.EventRecord, error) {
	events, err := e.db.EventsForThread(threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("eventlog: for thread: %w", err)
	}
	return events, nil
}
