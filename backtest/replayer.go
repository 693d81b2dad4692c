package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/feed"
	"github.com/xsa-dev/barter-rs/internal/storage"
)

// Replayer reads the recorded market event log and pushes it through an
// event feed, so a backtest exercises exactly the code path a live run
// does. The bar sequence is the only input: signals, orders and fills are
// regenerated, not replayed.
type Replayer struct {
	store *storage.EventStore
}

// NewReplayer creates a replayer over an existing event log.
func NewReplayer(dbPath string) (*Replayer, error) {
	store, err := storage.NewEventStore(dbPath)
	if err != nil {
		return nil, err
	}

	return &Replayer{store: store}, nil
}

// RunReplay pushes every recorded market event onto the feed in log order,
// then a terminate command marking end-of-history. The feed itself stays
// open: execution still owes fills for orders generated off the final
// bars, and the trader settles those before it honours the terminate.
func (r *Replayer) RunReplay(ctx context.Context, f *feed.EventFeed) error {
	events, err := r.store.LoadMarketEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to load event log: %w", err)
	}

	slog.Info("Replaying market events", slog.Int("count", len(events)))

	for _, ev := range events {
		if err := f.Push(ev); err != nil {
			return fmt.Errorf("replay aborted, feed closed early: %w", err)
		}
	}

	if err := f.Push(event.NewTerminateCommand()); err != nil {
		return fmt.Errorf("replay aborted, feed closed early: %w", err)
	}

	return nil
}

// Push injects a single synthetic market event, for tests and fixtures.
func (r *Replayer) Push(ctx context.Context, ev *event.MarketEvent) error {
	return r.store.SaveEvent(ctx, ev)
}

// Close releases the underlying store.
func (r *Replayer) Close() error {
	return r.store.Close()
}
