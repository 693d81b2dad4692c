package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/xsa-dev/barter-rs/backtest"
	"github.com/xsa-dev/barter-rs/internal/app"
	"github.com/xsa-dev/barter-rs/internal/engine"
	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/execution"
	"github.com/xsa-dev/barter-rs/internal/feed"
	"github.com/xsa-dev/barter-rs/internal/infra"
	"github.com/xsa-dev/barter-rs/internal/portfolio"
	"github.com/xsa-dev/barter-rs/internal/storage"
	"github.com/xsa-dev/barter-rs/internal/strategy"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Event plumbing: one feed in, one order channel out.
	eventFeed := feed.NewEventFeed(cfg.InboxSize())
	orderCh := make(chan *event.OrderEvent, cfg.OrderChannelSize())

	// A SIGINT becomes a terminate command so the trader finishes the
	// event it is processing before stopping.
	go func() {
		<-ctx.Done()
		eventFeed.Push(event.NewTerminateCommand())
	}()

	// 5. Portfolio, restored from the latest snapshot when one exists.
	startingCash := cfg.Trading.StartingCash
	var restored []portfolio.Position

	if snap, err := bootstrap.Snapshots.LoadLatest(); err != nil {
		slog.Error("Snapshot load failed", slog.Any("error", err))
		os.Exit(1)
	} else if snap != nil {
		restored, err = snap.RestorePositions()
		if err != nil {
			slog.Error("Snapshot restore failed", slog.Any("error", err))
			os.Exit(1)
		}
		startingCash = snap.Cash
	}

	var manager *portfolio.Manager
	initialiser := portfolio.InitialiserFunc(func(instruments map[string][]string, tx chan<- *event.OrderEvent, f feed.Feed) (portfolio.Portfolio, error) {
		p, err := portfolio.NewManagerInitialiser(portfolio.ManagerConfig{
			StartingCash:      startingCash,
			DefaultOrderValue: cfg.Trading.DefaultOrderValue,
			History:           bootstrap.EventStore,
			RestoredPositions: restored,
		})(instruments, tx, f)
		if err != nil {
			return nil, err
		}
		manager = p.(*portfolio.Manager)
		return p, nil
	})

	// 6. Strategy on the first configured instrument.
	exchange, symbol := firstInstrument(cfg.Instruments)
	strat := strategy.NewSMACrossStrategy(exchange, symbol,
		cfg.Strategy.ShortPeriod, cfg.Strategy.LongPeriod)

	// 7. Paper execution consumes orders, produces fills.
	var limiter *infra.RateLimiter
	if cfg.Execution.MaxOrdersPerSec > 0 {
		limiter = infra.NewRateLimiter(1, cfg.Execution.MaxOrdersPerSec)
	}
	fees := execution.NewFeeModel(
		cfg.Execution.ExchangeFeeRate,
		cfg.Execution.SlippageRate,
		cfg.Execution.NetworkFee)

	// Execution runs on its own context, not the signal context: after a
	// SIGINT the trader still settles in-flight orders, so fills must keep
	// flowing until Run returns.
	execCtx, stopExec := context.WithCancel(context.Background())
	defer stopExec()

	exec := execution.NewPaperExecution(orderCh, eventFeed, fees, limiter)
	go exec.Run(execCtx)

	// 8. Market data: live WS in PAPER mode, the event log in REPLAY mode.
	switch cfg.Trading.Mode {
	case "PAPER":
		sink := app.NewRecordingSink(eventFeed, bootstrap.EventStore)
		creds := feed.Credentials{
			AccessKey: cfg.Feed.AccessKey,
			SecretKey: cfg.Feed.SecretKey,
		}
		live := feed.NewLiveMarketFeed(cfg.Feed.WSURL, exchange, cfg.Instruments[exchange], creds, sink)
		if err := live.Connect(ctx); err != nil {
			slog.Error("Live feed connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer live.Disconnect()
		slog.InfoContext(ctx, "✅ Live market feed started", slog.String("exchange", exchange))

	case "REPLAY":
		replayer, err := backtest.NewReplayer(bootstrap.ReplaySourceDBPath())
		if err != nil {
			slog.Error("Replayer init failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer replayer.Close()
		go func() {
			if err := replayer.RunReplay(ctx, eventFeed); err != nil {
				slog.Error("Replay failed", slog.Any("error", err))
			}
		}()
		slog.InfoContext(ctx, "✅ Replay started")
	}

	// 9. The trader lifecycle (the Hotpath loop).
	trader, err := engine.NewTrader(engine.TraderConfig{
		Feed:        eventFeed,
		Strategy:    strat,
		Initialiser: initialiser,
		ExecutionTx: orderCh,
		Instruments: cfg.Instruments,
	})
	if err != nil {
		slog.Error("Trader construction failed", slog.Any("error", err))
		os.Exit(1)
	}

	reason := trader.Run()

	// 10. Persist a snapshot of whatever exposure remains.
	if manager != nil {
		snap := storageSnapshot(manager)
		if err := bootstrap.Snapshots.Save(snap); err != nil {
			slog.Warn("Snapshot save failed", slog.Any("error", err))
		}
		if err := bootstrap.Snapshots.Cleanup(5); err != nil {
			slog.Warn("Snapshot cleanup failed", slog.Any("error", err))
		}

		slog.Info("Final equity",
			slog.Float64("equity", manager.CurrentEquity().Equity),
			slog.Float64("cash", manager.Cash()),
			slog.Int("closed_positions", len(manager.ClosedPositions())))
	}

	if reason != nil {
		slog.Error("👋 Shut down with error", slog.Any("reason", reason))
		os.Exit(1)
	}
	slog.Info("👋 Shut down gracefully")
}

func storageSnapshot(m *portfolio.Manager) *storage.Snapshot {
	return storage.CreateSnapshot(m.Cash(), m.CurrentEquity(), m.OpenPositions())
}

func firstInstrument(instruments map[string][]string) (string, string) {
	for exchange, symbols := range instruments {
		if len(symbols) > 0 {
			return exchange, symbols[0]
		}
	}
	return "", ""
}
