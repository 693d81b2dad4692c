package backtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xsa-dev/barter-rs/internal/engine"
	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/execution"
	"github.com/xsa-dev/barter-rs/internal/feed"
	"github.com/xsa-dev/barter-rs/internal/portfolio"
	"github.com/xsa-dev/barter-rs/internal/strategy"
)

func TestReplayer_RoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	replayer, err := NewReplayer(dbPath)
	if err != nil {
		t.Fatalf("NewReplayer failed: %v", err)
	}
	defer replayer.Close()

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	closes := []float64{100, 105, 103}
	for i, c := range closes {
		ev := &event.MarketEvent{
			Trace:     uuid.New(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Exchange:  "binance",
			Symbol:    "BTCUSDT",
			Bar:       event.Bar{Close: c},
		}
		if err := replayer.Push(ctx, ev); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	f := feed.NewEventFeed(8)
	if err := replayer.RunReplay(ctx, f); err != nil {
		t.Fatalf("RunReplay failed: %v", err)
	}

	for i, want := range closes {
		ev, err := f.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		market, ok := ev.(*event.MarketEvent)
		if !ok {
			t.Fatalf("expected MarketEvent, got %T", ev)
		}
		if market.Bar.Close != want {
			t.Errorf("event %d: expected close %v, got %v", i, want, market.Bar.Close)
		}
	}

	// End-of-history is a terminate command, not a closed feed: execution
	// must still be able to push fills for the final bars.
	ev, err := f.Next()
	if err != nil {
		t.Fatalf("expected a terminate command after replay, got %v", err)
	}
	cmd, ok := ev.(*event.CommandEvent)
	if !ok || cmd.Command != event.CommandTerminate {
		t.Errorf("expected CommandTerminate, got %T", ev)
	}
	if err := f.Push(&event.FillEvent{Trace: uuid.New()}); err != nil {
		t.Errorf("feed must stay open for late fills, got %v", err)
	}
}

func TestReplayer_EmptyLog(t *testing.T) {
	replayer, err := NewReplayer(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewReplayer failed: %v", err)
	}
	defer replayer.Close()

	f := feed.NewEventFeed(1)
	if err := replayer.RunReplay(context.Background(), f); err != nil {
		t.Fatalf("RunReplay failed: %v", err)
	}

	ev, err := f.Next()
	if err != nil {
		t.Fatalf("expected an immediate terminate command, got %v", err)
	}
	if cmd, ok := ev.(*event.CommandEvent); !ok || cmd.Command != event.CommandTerminate {
		t.Errorf("expected CommandTerminate, got %T", ev)
	}
}

// Replaying a recorded bar sequence must regenerate the orders AND the
// fills, so a backtest ends holding the same exposure a live run would.
func TestReplayer_RegeneratesFillsThroughTheFullLoop(t *testing.T) {
	replayer, err := NewReplayer(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("NewReplayer failed: %v", err)
	}
	defer replayer.Close()

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// With SMA(1, 2) the third bar is a golden cross: short 20 vs long 15.
	for i, c := range []float64{10, 10, 20} {
		ev := &event.MarketEvent{
			Trace:     uuid.New(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Exchange:  "binance",
			Symbol:    "BTCUSDT",
			Bar:       event.Bar{Close: c},
		}
		if err := replayer.Push(ctx, ev); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	f := feed.NewEventFeed(8)
	orders := make(chan *event.OrderEvent, 4)

	var manager *portfolio.Manager
	initialiser := portfolio.InitialiserFunc(func(instruments map[string][]string, tx chan<- *event.OrderEvent, fd feed.Feed) (portfolio.Portfolio, error) {
		p, err := portfolio.NewManagerInitialiser(portfolio.ManagerConfig{
			StartingCash:      1000.0,
			DefaultOrderValue: 100.0,
		})(instruments, tx, fd)
		if err != nil {
			return nil, err
		}
		manager = p.(*portfolio.Manager)
		return p, nil
	})

	trader, err := engine.NewTrader(engine.TraderConfig{
		Feed:        f,
		Strategy:    strategy.NewSMACrossStrategy("binance", "BTCUSDT", 1, 2),
		Initialiser: initialiser,
		ExecutionTx: orders,
		Instruments: map[string][]string{"binance": {"BTCUSDT"}},
	})
	if err != nil {
		t.Fatalf("NewTrader failed: %v", err)
	}

	execCtx, stopExec := context.WithCancel(ctx)
	defer stopExec()
	exec := execution.NewPaperExecution(orders, f, execution.NewFeeModel(0, 0, 0), nil)
	go exec.Run(execCtx)

	if err := replayer.RunReplay(ctx, f); err != nil {
		t.Fatalf("RunReplay failed: %v", err)
	}
	if err := trader.Run(); err != nil {
		t.Fatalf("trader run failed: %v", err)
	}

	open := manager.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("expected 1 open position after replay, got %d", len(open))
	}
	if open[0].Direction != portfolio.DirectionLong || open[0].Quantity != 5.0 {
		t.Errorf("position mismatch: %s qty %v", open[0].Direction, open[0].Quantity)
	}
	if got := manager.Cash(); got != 900.0 {
		t.Errorf("expected cash 900 after the entry, got %v", got)
	}
}
