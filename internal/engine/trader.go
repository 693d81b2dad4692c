package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/feed"
	"github.com/xsa-dev/barter-rs/internal/portfolio"
	"github.com/xsa-dev/barter-rs/internal/strategy"
)

// Trader is the core single-threaded event processor. It owns its feed,
// strategy and portfolio exclusively and steps through the lifecycle
// union until it reaches Terminate. Run MUST be driven by one goroutine.
type Trader struct {
	feed        feed.Feed
	strategy    strategy.Strategy
	initialiser portfolio.Initialiser
	executionTx chan<- *event.OrderEvent

	instruments map[string][]string
	state       State

	// pendingFills counts orders sent to execution whose fills have not
	// come back yet. A terminate request settles these before stopping.
	pendingFills int
}

// TraderConfig collects the collaborators a Trader requires. All fields
// are mandatory.
type TraderConfig struct {
	Feed        feed.Feed
	Strategy    strategy.Strategy
	Initialiser portfolio.Initialiser
	ExecutionTx chan<- *event.OrderEvent
	Instruments map[string][]string
}

// NewTrader validates the configuration and returns a Trader parked in
// the Initialise state.
func NewTrader(cfg TraderConfig) (*Trader, error) {
	switch {
	case cfg.Feed == nil:
		return nil, fmt.Errorf("trader config: nil feed")
	case cfg.Strategy == nil:
		return nil, fmt.Errorf("trader config: nil strategy")
	case cfg.Initialiser == nil:
		return nil, fmt.Errorf("trader config: nil portfolio initialiser")
	case cfg.ExecutionTx == nil:
		return nil, fmt.Errorf("trader config: nil execution channel")
	case len(cfg.Instruments) == 0:
		return nil, fmt.Errorf("trader config: no instruments")
	}

	return &Trader{
		feed:        cfg.Feed,
		strategy:    cfg.Strategy,
		initialiser: cfg.Initialiser,
		executionTx: cfg.ExecutionTx,
		instruments: cfg.Instruments,
		state:       Initialise{Instruments: cfg.Instruments},
	}, nil
}

// Run drives the lifecycle to completion and returns the Terminate reason:
// nil for a graceful stop, the fatal error otherwise.
func (t *Trader) Run() error {
	slog.Info("Trader started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		switch s := t.state.(type) {
		case Initialise:
			t.state = t.init(s)
		case Consume:
			t.state = t.consume(s)
		case Terminate:
			if s.Reason != nil {
				slog.Error("Trader terminated", slog.Any("reason", s.Reason))
			} else {
				slog.Info("Trader terminated gracefully")
			}
			return s.Reason
		default:
			panic(fmt.Sprintf("trader entered unknown state %T", t.state))
		}
	}
}

// init builds the portfolio. Failure is fatal: there is no consuming
// without a validated portfolio.
func (t *Trader) init(s Initialise) State {
	p, err := t.initialiser.Init(s.Instruments, t.executionTx, t.feed)
	if err != nil {
		return Terminate{Reason: fmt.Errorf("portfolio initialisation: %w", err)}
	}

	slog.Info("Portfolio initialised", slog.Int("exchanges", len(s.Instruments)))
	return Consume{Portfolio: p}
}

// consume pulls events one at a time and fully processes each before the
// next pull. It only returns when a transition out of Consume is due.
func (t *Trader) consume(s Consume) State {
	for {
		ev, err := t.feed.Next()
		if err != nil {
			if errors.Is(err, feed.ErrFeedFinished) {
				return Terminate{}
			}
			return Terminate{Reason: fmt.Errorf("event feed: %w", err)}
		}

		switch e := ev.(type) {
		case *event.MarketEvent:
			s.Portfolio.UpdateFromMarket(e)
			if signal := t.strategy.GenerateSignal(e); signal != nil {
				t.dispatchSignal(s, signal)
			}

		case *event.SignalEvent:
			t.dispatchSignal(s, e)

		case *event.OrderEvent:
			// Externally injected orders bypass the portfolio and go
			// straight to execution.
			t.sendOrder(e)

		case *event.FillEvent:
			if err := s.Portfolio.UpdateFromFill(e); err != nil {
				return Terminate{Reason: fmt.Errorf("account update: %w", err)}
			}
			if t.pendingFills > 0 {
				t.pendingFills--
			}

		case *event.CommandEvent:
			if e.Command == event.CommandTerminate {
				slog.Info("Terminate command received",
					slog.Int("fills_pending", t.pendingFills))
				return t.settle(s)
			}
			slog.Warn("Unknown command ignored", slog.Any("command", e.Command))

		default:
			slog.Warn("Unknown event type ignored", slog.String("kind", ev.Kind().String()))
		}
	}
}

// settle applies the fills execution still owes for orders sent before
// the terminate request. No new orders once a stop is requested: market
// and signal events seen while settling are discarded.
func (t *Trader) settle(s Consume) State {
	for t.pendingFills > 0 {
		ev, err := t.feed.Next()
		if err != nil {
			slog.Warn("Feed finished with fills outstanding",
				slog.Int("fills_pending", t.pendingFills))
			return Terminate{}
		}

		fill, ok := ev.(*event.FillEvent)
		if !ok {
			continue
		}
		if err := s.Portfolio.UpdateFromFill(fill); err != nil {
			return Terminate{Reason: fmt.Errorf("account update: %w", err)}
		}
		t.pendingFills--
	}

	return Terminate{}
}

func (t *Trader) dispatchSignal(s Consume, signal *event.SignalEvent) {
	if order := s.Portfolio.GenerateOrder(signal); order != nil {
		t.sendOrder(order)
	}
}

// sendOrder blocks while the execution channel is full; a bounded channel
// intentionally throttles order submission.
func (t *Trader) sendOrder(order *event.OrderEvent) {
	slog.Info("Order submitted",
		slog.String("symbol", order.Symbol),
		slog.String("decision", string(order.Decision)),
		slog.Float64("quantity", order.Quantity))

	t.executionTx <- order
	t.pendingFills++
}
