package app

import (
	"context"
	"fmt"

	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/feed"
	"github.com/xsa-dev/barter-rs/internal/storage"
)

// RecordingSink tees market events into the event log before forwarding
// them to the trader's feed. Log-first ordering means a crash can lose an
// unprocessed event but never process an unlogged one, so replaying the
// log always reproduces at least what the live run saw.
type RecordingSink struct {
	next  feed.Sink
	store *storage.EventStore
}

// NewRecordingSink wraps a feed sink with event-log persistence.
func NewRecordingSink(next feed.Sink, store *storage.EventStore) *RecordingSink {
	return &RecordingSink{next: next, store: store}
}

// Push logs the event, then forwards it.
func (r *RecordingSink) Push(ev event.Event) error {
	if err := r.store.SaveEvent(context.Background(), ev); err != nil {
		return fmt.Errorf("event log write: %w", err)
	}
	return r.next.Push(ev)
}
