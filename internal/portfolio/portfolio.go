package portfolio

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/feed"
)

// ManagerConfig parameterizes a portfolio Manager.
type ManagerConfig struct {
	// StartingCash seeds both the cash balance and the first equity point.
	StartingCash float64

	// DefaultOrderValue is the gross value allocated to each new entry.
	DefaultOrderValue float64

	// History, when set, receives every closed Position.
	History PositionSink

	// RestoredPositions seeds the open-position set, e.g. from a snapshot.
	RestoredPositions []Position
}

// Manager is the reference Portfolio implementation: it owns every open
// Position exclusively, applies fills and market updates to them, tracks
// cash, and maintains the running equity curve. A Manager belongs to
// exactly one Trader; it is not safe for concurrent mutation.
type Manager struct {
	instruments map[string][]string

	cash  float64
	value EquityPoint

	open        map[string]*Position
	closed      []Position
	equityCurve []EquityPoint

	defaultOrderValue float64
	history           PositionSink
}

// NewManagerInitialiser returns the Initialiser the trader lifecycle calls
// to build and validate a Manager from the declared instrument universe.
func NewManagerInitialiser(cfg ManagerConfig) InitialiserFunc {
	return func(instruments map[string][]string, _ chan<- *event.OrderEvent, _ feed.Feed) (Portfolio, error) {
		return newManager(cfg, instruments)
	}
}

func newManager(cfg ManagerConfig, instruments map[string][]string) (*Manager, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("portfolio init: no instruments declared")
	}
	for exchange, symbols := range instruments {
		if exchange == "" {
			return nil, fmt.Errorf("portfolio init: empty exchange name")
		}
		if len(symbols) == 0 {
			return nil, fmt.Errorf("portfolio init: no symbols declared for exchange %s", exchange)
		}
		seen := make(map[string]bool, len(symbols))
		for _, symbol := range symbols {
			if symbol == "" {
				return nil, fmt.Errorf("portfolio init: empty symbol for exchange %s", exchange)
			}
			if seen[symbol] {
				return nil, fmt.Errorf("portfolio init: duplicate symbol %s for exchange %s", symbol, exchange)
			}
			seen[symbol] = true
		}
	}
	if cfg.StartingCash <= 0 {
		return nil, fmt.Errorf("portfolio init: starting cash must be positive, got %v", cfg.StartingCash)
	}
	if cfg.DefaultOrderValue <= 0 || cfg.DefaultOrderValue > cfg.StartingCash {
		return nil, fmt.Errorf("portfolio init: default order value %v outside (0, %v]",
			cfg.DefaultOrderValue, cfg.StartingCash)
	}

	m := &Manager{
		instruments:       instruments,
		cash:              cfg.StartingCash,
		value:             EquityPoint{Equity: cfg.StartingCash, Timestamp: time.Now().UTC()},
		open:              make(map[string]*Position),
		defaultOrderValue: cfg.DefaultOrderValue,
		history:           cfg.History,
	}

	for i := range cfg.RestoredPositions {
		restored := cfg.RestoredPositions[i]
		if restored.IsClosed() {
			return nil, fmt.Errorf("portfolio init: restored position %s/%s is already closed",
				restored.Exchange, restored.Symbol)
		}
		key := positionKey(restored.Exchange, restored.Symbol)
		if _, dup := m.open[key]; dup {
			return nil, fmt.Errorf("portfolio init: duplicate restored position %s", key)
		}
		m.open[key] = &restored
	}

	return m, nil
}

// UpdateFromMarket marks the affected open Position (if any) to the new Bar
// close and folds its unrealised PnL delta into the equity curve.
func (m *Manager) UpdateFromMarket(market *event.MarketEvent) {
	position, ok := m.open[positionKey(market.Exchange, market.Symbol)]
	if !ok {
		return
	}

	position.Update(market)
	m.value.Update(position)
	m.equityCurve = append(m.equityCurve, m.value)
}

// UpdateFromFill routes a fill to a Position exit when one is open for the
// instrument, otherwise to a Position entry. Closed positions leave the
// open set immediately, so a second exit fill for the same instrument can
// never reach an already-exited Position.
func (m *Manager) UpdateFromFill(fill *event.FillEvent) error {
	key := positionKey(fill.Exchange, fill.Symbol)

	if position, ok := m.open[key]; ok {
		if err := position.Exit(m.value.Equity, fill); err != nil {
			return err
		}
		delete(m.open, key)

		m.cash += fill.FillValueGross - fill.Fees.Total()
		m.value.Update(position)
		m.equityCurve = append(m.equityCurve, m.value)
		m.closed = append(m.closed, *position)

		slog.Info("position closed",
			slog.String("symbol", fill.Symbol),
			slog.String("direction", string(position.Direction)),
			slog.Float64("result_pnl", position.ResultProfitLoss))

		if m.history != nil {
			if err := m.history.SaveClosedPosition(position); err != nil {
				return fmt.Errorf("persist closed position %s: %w", key, err)
			}
		}
		return nil
	}

	position, err := EnterPosition(fill)
	if err != nil {
		return err
	}
	m.open[key] = position

	m.cash -= fill.FillValueGross + fill.Fees.Total()
	m.value.Update(position)
	m.equityCurve = append(m.equityCurve, m.value)

	slog.Info("position opened",
		slog.String("symbol", fill.Symbol),
		slog.String("direction", string(position.Direction)),
		slog.Float64("quantity", position.Quantity))

	return nil
}

// GenerateOrder turns an advisory signal into at most one order: a close
// order negating the open quantity when exposed, or a new entry sized by
// the default order value when flat and cash allows.
func (m *Manager) GenerateOrder(signal *event.SignalEvent) *event.OrderEvent {
	key := positionKey(signal.Exchange, signal.Symbol)

	if position, ok := m.open[key]; ok {
		var decision event.Decision
		switch {
		case position.Direction == DirectionLong &&
			(signal.Advice == event.DecisionCloseLong || signal.Advice == event.DecisionShort):
			decision = event.DecisionCloseLong
		case position.Direction == DirectionShort &&
			(signal.Advice == event.DecisionCloseShort || signal.Advice == event.DecisionLong):
			decision = event.DecisionCloseShort
		default:
			return nil
		}

		return &event.OrderEvent{
			Trace:     signal.Trace,
			Timestamp: signal.Timestamp,
			Exchange:  signal.Exchange,
			Symbol:    signal.Symbol,
			Decision:  decision,
			Quantity:  -position.Quantity,
			Close:     signal.Close,
		}
	}

	if !signal.Advice.IsEntry() || signal.Close <= 0 {
		return nil
	}
	if m.cash < m.defaultOrderValue {
		slog.Debug("signal skipped: insufficient cash",
			slog.String("symbol", signal.Symbol),
			slog.Float64("cash", m.cash))
		return nil
	}

	quantity := m.defaultOrderValue / signal.Close
	if signal.Advice == event.DecisionShort {
		quantity = -quantity
	}

	return &event.OrderEvent{
		Trace:     signal.Trace,
		Timestamp: signal.Timestamp,
		Exchange:  signal.Exchange,
		Symbol:    signal.Symbol,
		Decision:  signal.Advice,
		Quantity:  quantity,
		Close:     signal.Close,
	}
}

// CurrentEquity returns the latest equity point.
func (m *Manager) CurrentEquity() EquityPoint { return m.value }

// Cash returns the free cash balance.
func (m *Manager) Cash() float64 { return m.cash }

// EquityCurve returns the recorded equity samples, one per Position state
// change, oldest first.
func (m *Manager) EquityCurve() []EquityPoint {
	curve := make([]EquityPoint, len(m.equityCurve))
	copy(curve, m.equityCurve)
	return curve
}

// OpenPositions returns copies of all open positions.
func (m *Manager) OpenPositions() []Position {
	positions := make([]Position, 0, len(m.open))
	for _, position := range m.open {
		positions = append(positions, *position)
	}
	return positions
}

// ClosedPositions returns copies of all closed positions, oldest first.
func (m *Manager) ClosedPositions() []Position {
	positions := make([]Position, len(m.closed))
	copy(positions, m.closed)
	return positions
}

func positionKey(exchange, symbol string) string {
	return exchange + "_" + symbol
}
