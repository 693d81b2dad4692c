package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsa-dev/barter-rs/internal/engine"
	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/feed"
	"github.com/xsa-dev/barter-rs/internal/portfolio"
)

type stubPortfolio struct {
	marketEvents []*event.MarketEvent
	fillEvents   []*event.FillEvent
	signals      []*event.SignalEvent

	order   *event.OrderEvent
	fillErr error
}

func (s *stubPortfolio) UpdateFromMarket(m *event.MarketEvent) {
	s.marketEvents = append(s.marketEvents, m)
}

func (s *stubPortfolio) UpdateFromFill(f *event.FillEvent) error {
	s.fillEvents = append(s.fillEvents, f)
	return s.fillErr
}

func (s *stubPortfolio) GenerateOrder(sig *event.SignalEvent) *event.OrderEvent {
	s.signals = append(s.signals, sig)
	return s.order
}

type stubStrategy struct {
	signal *event.SignalEvent
}

func (s *stubStrategy) GenerateSignal(*event.MarketEvent) *event.SignalEvent {
	return s.signal
}

func stubInitialiser(p portfolio.Portfolio, err error) portfolio.Initialiser {
	return portfolio.InitialiserFunc(func(map[string][]string, chan<- *event.OrderEvent, feed.Feed) (portfolio.Portfolio, error) {
		return p, err
	})
}

func newTestTrader(t *testing.T, f *feed.EventFeed, p portfolio.Portfolio, strat *stubStrategy, orders chan *event.OrderEvent) *engine.Trader {
	t.Helper()

	trader, err := engine.NewTrader(engine.TraderConfig{
		Feed:        f,
		Strategy:    strat,
		Initialiser: stubInitialiser(p, nil),
		ExecutionTx: orders,
		Instruments: map[string][]string{"binance": {"BTCUSDT"}},
	})
	require.NoError(t, err)
	return trader
}

func marketEvent() *event.MarketEvent {
	return &event.MarketEvent{
		Trace:     uuid.New(),
		Timestamp: time.Now().UTC(),
		Exchange:  "binance",
		Symbol:    "BTCUSDT",
		Bar:       event.Bar{Close: 100.0},
	}
}

func TestNewTrader_Validation(t *testing.T) {
	valid := engine.TraderConfig{
		Feed:        feed.NewEventFeed(1),
		Strategy:    &stubStrategy{},
		Initialiser: stubInitialiser(&stubPortfolio{}, nil),
		ExecutionTx: make(chan *event.OrderEvent, 1),
		Instruments: map[string][]string{"binance": {"BTCUSDT"}},
	}

	tests := []struct {
		name   string
		mutate func(*engine.TraderConfig)
	}{
		{"nil feed", func(c *engine.TraderConfig) { c.Feed = nil }},
		{"nil strategy", func(c *engine.TraderConfig) { c.Strategy = nil }},
		{"nil initialiser", func(c *engine.TraderConfig) { c.Initialiser = nil }},
		{"nil execution channel", func(c *engine.TraderConfig) { c.ExecutionTx = nil }},
		{"no instruments", func(c *engine.TraderConfig) { c.Instruments = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := engine.NewTrader(cfg)
			assert.Error(t, err)
		})
	}
}

func TestTrader_InitFailureTerminates(t *testing.T) {
	initErr := errors.New("bad instrument universe")

	trader, err := engine.NewTrader(engine.TraderConfig{
		Feed:        feed.NewEventFeed(1),
		Strategy:    &stubStrategy{},
		Initialiser: stubInitialiser(nil, initErr),
		ExecutionTx: make(chan *event.OrderEvent, 1),
		Instruments: map[string][]string{"binance": {"BTCUSDT"}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, trader.Run(), initErr)
}

func TestTrader_FeedExhaustionTerminatesGracefully(t *testing.T) {
	f := feed.NewEventFeed(4)
	p := &stubPortfolio{}
	trader := newTestTrader(t, f, p, &stubStrategy{}, make(chan *event.OrderEvent, 4))

	require.NoError(t, f.Push(marketEvent()))
	require.NoError(t, f.Push(marketEvent()))
	f.Close()

	assert.NoError(t, trader.Run())
	assert.Len(t, p.marketEvents, 2)
}

func TestTrader_TerminateCommandStopsBeforeLaterEvents(t *testing.T) {
	f := feed.NewEventFeed(4)
	p := &stubPortfolio{}
	trader := newTestTrader(t, f, p, &stubStrategy{}, make(chan *event.OrderEvent, 4))

	require.NoError(t, f.Push(marketEvent()))
	require.NoError(t, f.Push(event.NewTerminateCommand()))
	require.NoError(t, f.Push(marketEvent())) // never reached

	assert.NoError(t, trader.Run())
	assert.Len(t, p.marketEvents, 1)
}

func TestTrader_TerminateSettlesInFlightFills(t *testing.T) {
	f := feed.NewEventFeed(8)
	orders := make(chan *event.OrderEvent, 4)

	signal := &event.SignalEvent{
		Trace:    uuid.New(),
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Close:    100.0,
		Advice:   event.DecisionLong,
	}
	order := &event.OrderEvent{
		Trace:    signal.Trace,
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Decision: event.DecisionLong,
		Quantity: 1.0,
		Close:    100.0,
	}
	p := &stubPortfolio{order: order}
	trader := newTestTrader(t, f, p, &stubStrategy{signal: signal}, orders)

	require.NoError(t, f.Push(marketEvent()))               // generates the order
	require.NoError(t, f.Push(event.NewTerminateCommand())) // stop requested
	require.NoError(t, f.Push(&event.FillEvent{             // fill arrives after the command
		Trace:    order.Trace,
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Decision: event.DecisionLong,
		Quantity: 1.0,
	}))
	require.NoError(t, f.Push(marketEvent())) // discarded while settling

	require.NoError(t, trader.Run())

	// The late fill reached the portfolio; the market event behind it
	// did not generate further activity.
	assert.Len(t, p.fillEvents, 1)
	assert.Len(t, p.marketEvents, 1)
}

func TestTrader_TerminateWithLostFillStillStops(t *testing.T) {
	f := feed.NewEventFeed(8)
	orders := make(chan *event.OrderEvent, 4)

	signal := &event.SignalEvent{
		Trace:    uuid.New(),
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Close:    100.0,
		Advice:   event.DecisionLong,
	}
	p := &stubPortfolio{order: &event.OrderEvent{
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Decision: event.DecisionLong,
		Quantity: 1.0,
	}}
	trader := newTestTrader(t, f, p, &stubStrategy{signal: signal}, orders)

	require.NoError(t, f.Push(marketEvent()))
	require.NoError(t, f.Push(event.NewTerminateCommand()))
	f.Close() // the owed fill never arrives

	assert.NoError(t, trader.Run())
	assert.Empty(t, p.fillEvents)
}

func TestTrader_MarketEventFlowsToExecution(t *testing.T) {
	f := feed.NewEventFeed(4)
	orders := make(chan *event.OrderEvent, 4)

	signal := &event.SignalEvent{
		Trace:    uuid.New(),
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Close:    100.0,
		Advice:   event.DecisionLong,
	}
	order := &event.OrderEvent{
		Trace:    signal.Trace,
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Decision: event.DecisionLong,
		Quantity: 1.0,
		Close:    100.0,
	}

	p := &stubPortfolio{order: order}
	trader := newTestTrader(t, f, p, &stubStrategy{signal: signal}, orders)

	require.NoError(t, f.Push(marketEvent()))
	f.Close()

	require.NoError(t, trader.Run())

	// Market update applied before the signal was evaluated.
	require.Len(t, p.marketEvents, 1)
	require.Len(t, p.signals, 1)
	assert.Equal(t, signal, p.signals[0])

	select {
	case got := <-orders:
		assert.Equal(t, order, got)
	default:
		t.Fatal("expected an order on the execution channel")
	}
}

func TestTrader_FillErrorTerminates(t *testing.T) {
	f := feed.NewEventFeed(4)
	fillErr := errors.New("account corrupted")
	p := &stubPortfolio{fillErr: fillErr}
	trader := newTestTrader(t, f, p, &stubStrategy{}, make(chan *event.OrderEvent, 4))

	require.NoError(t, f.Push(&event.FillEvent{
		Trace:    uuid.New(),
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Decision: event.DecisionLong,
		Quantity: 1.0,
	}))

	assert.ErrorIs(t, trader.Run(), fillErr)
	assert.Len(t, p.fillEvents, 1)
}

func TestTrader_SignalEventDispatchesDirectly(t *testing.T) {
	f := feed.NewEventFeed(4)
	p := &stubPortfolio{}
	trader := newTestTrader(t, f, p, &stubStrategy{}, make(chan *event.OrderEvent, 4))

	require.NoError(t, f.Push(&event.SignalEvent{
		Trace:    uuid.New(),
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Close:    10.0,
		Advice:   event.DecisionShort,
	}))
	f.Close()

	require.NoError(t, trader.Run())
	assert.Len(t, p.signals, 1)
}

func TestTrader_ForwardsInjectedOrders(t *testing.T) {
	f := feed.NewEventFeed(4)
	orders := make(chan *event.OrderEvent, 4)
	trader := newTestTrader(t, f, &stubPortfolio{}, &stubStrategy{}, orders)

	injected := &event.OrderEvent{
		Trace:    uuid.New(),
		Exchange: "binance",
		Symbol:   "BTCUSDT",
		Decision: event.DecisionLong,
		Quantity: 0.5,
		Close:    20.0,
	}
	require.NoError(t, f.Push(injected))
	f.Close()

	require.NoError(t, trader.Run())
	assert.Equal(t, injected, <-orders)
}
