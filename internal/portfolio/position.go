package portfolio

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/xsa-dev/barter-rs/internal/event"
)

// Direction of a Position when it was opened, Long or Short. The sign of
// the Position quantity matches the direction for its whole lifetime.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// PositionMeta details the trace ids & timestamps associated with entering,
// updating & exiting a Position. Exit fields stay zero until Exit succeeds.
type PositionMeta struct {
	EnterTraceID      uuid.UUID `json:"enter_trace_id"`
	EnterBarTime      time.Time `json:"enter_bar_timestamp"`
	LastUpdateTraceID uuid.UUID `json:"last_update_trace_id"`
	LastUpdateTime    time.Time `json:"last_update_timestamp"`
	ExitTraceID       uuid.UUID `json:"exit_trace_id,omitempty"`
	ExitBarTime       time.Time `json:"exit_bar_timestamp,omitempty"`

	// ExitEquityPoint is the portfolio equity sampled immediately after the
	// Position exit. Nil while the Position is open.
	ExitEquityPoint *EquityPoint `json:"exit_equity_point,omitempty"`
}

// Position is the accounting record of one open or closed instrument
// exposure. It is created by EnterPosition, mutated by Update while open,
// and closed exactly once by Exit. The owning portfolio must not alias it.
type Position struct {
	Meta     PositionMeta `json:"meta"`
	Exchange string       `json:"exchange"`
	Symbol   string       `json:"symbol"`

	// Immutable after entry.
	Direction          Direction  `json:"direction"`
	Quantity           float64    `json:"quantity"`
	EnterFees          event.Fees `json:"enter_fees"`
	EnterFeesTotal     float64    `json:"enter_fees_total"`
	EnterAvgPriceGross float64    `json:"enter_avg_price_gross"`
	EnterValueGross    float64    `json:"enter_value_gross"`

	// Set exactly once by Exit, zero until then.
	ExitFees          event.Fees `json:"exit_fees"`
	ExitFeesTotal     float64    `json:"exit_fees_total"`
	ExitAvgPriceGross float64    `json:"exit_avg_price_gross"`
	ExitValueGross    float64    `json:"exit_value_gross"`

	// Mutable while open.
	CurrentSymbolPrice float64 `json:"current_symbol_price"`
	CurrentValueGross  float64 `json:"current_value_gross"`
	UnrealProfitLoss   float64 `json:"unreal_profit_loss"`
	ResultProfitLoss   float64 `json:"result_profit_loss"`
}

// EnterPosition opens a new Position from an entry FillEvent. Close fills
// and ambiguous decision/quantity-sign combinations are rejected before any
// Position is constructed. The initial unrealised PnL is -2x the entry fees,
// modelling the round-trip fee drag before any price movement.
func EnterPosition(fill *event.FillEvent) (*Position, error) {
	direction, err := parseEntryDirection(fill)
	if err != nil {
		return nil, err
	}

	enterFeesTotal := fill.Fees.Total()
	enterAvgPriceGross := calculateAvgPriceGross(fill)

	return &Position{
		Meta: PositionMeta{
			EnterTraceID:      fill.Trace,
			EnterBarTime:      fill.MarketMeta.Timestamp,
			LastUpdateTraceID: fill.Trace,
			LastUpdateTime:    fill.Timestamp,
		},
		Exchange:           fill.Exchange,
		Symbol:             fill.Symbol,
		Direction:          direction,
		Quantity:           fill.Quantity,
		EnterFees:          fill.Fees,
		EnterFeesTotal:     enterFeesTotal,
		EnterAvgPriceGross: enterAvgPriceGross,
		EnterValueGross:    fill.FillValueGross,
		CurrentSymbolPrice: enterAvgPriceGross,
		CurrentValueGross:  fill.FillValueGross,
		UnrealProfitLoss:   -enterFeesTotal * 2,
	}, nil
}

// Update marks an open Position to the latest market Bar close, recomputing
// the unrealised PnL. Entry fields are never touched.
func (p *Position) Update(market *event.MarketEvent) {
	p.Meta.LastUpdateTraceID = market.Trace
	p.Meta.LastUpdateTime = market.Timestamp

	p.CurrentSymbolPrice = market.Bar.Close
	p.CurrentValueGross = market.Bar.Close * math.Abs(p.Quantity)
	p.UnrealProfitLoss = p.calculateUnrealProfitLoss()
}

// Exit closes the Position with an exit FillEvent, freezing the realised
// PnL and sampling the resulting portfolio equity. Calling Exit twice is
// not safe: the owning portfolio must drop the Position from its open set
// as soon as Exit returns nil.
func (p *Position) Exit(portfolioValue float64, fill *event.FillEvent) error {
	if fill.Decision.IsEntry() {
		return ErrCannotExitPositionWithEntryFill
	}

	p.ExitFees = fill.Fees
	p.ExitFeesTotal = fill.Fees.Total()
	p.ExitValueGross = fill.FillValueGross
	p.ExitAvgPriceGross = calculateAvgPriceGross(fill)

	p.ResultProfitLoss = p.calculateResultProfitLoss()
	p.UnrealProfitLoss = p.ResultProfitLoss

	p.Meta.LastUpdateTraceID = fill.Trace
	p.Meta.LastUpdateTime = fill.Timestamp
	p.Meta.ExitTraceID = fill.Trace
	p.Meta.ExitBarTime = fill.MarketMeta.Timestamp
	p.Meta.ExitEquityPoint = &EquityPoint{
		Equity:    portfolioValue + p.ResultProfitLoss,
		Timestamp: fill.MarketMeta.Timestamp,
	}

	return nil
}

// IsClosed reports whether Exit has completed on this Position.
func (p *Position) IsClosed() bool {
	return !p.Meta.ExitBarTime.IsZero()
}

// calculateAvgPriceGross derives the average fill price excluding fees.
func calculateAvgPriceGross(fill *event.FillEvent) float64 {
	return math.Abs(fill.FillValueGross / fill.Quantity)
}

// parseEntryDirection determines the entry Direction from the fill's
// decision and quantity sign. It runs before Position construction.
func parseEntryDirection(fill *event.FillEvent) (Direction, error) {
	switch {
	case fill.Decision.IsExit():
		return "", ErrCannotEnterPositionWithExitFill
	case fill.Decision == event.DecisionLong && fill.Quantity > 0:
		return DirectionLong, nil
	case fill.Decision == event.DecisionShort && fill.Quantity < 0:
		return DirectionShort, nil
	default:
		return "", ErrParseEntryDirection
	}
}

// calculateUnrealProfitLoss approximates the open PnL, charging the
// yet-unknown exit fee as equal to the entry fee.
func (p *Position) calculateUnrealProfitLoss() float64 {
	approxTotalFees := p.EnterFeesTotal * 2

	if p.Direction == DirectionShort {
		return p.EnterValueGross - p.CurrentValueGross - approxTotalFees
	}
	return p.CurrentValueGross - p.EnterValueGross - approxTotalFees
}

// calculateResultProfitLoss computes the exact realised PnL using the full
// entry and exit fee totals.
func (p *Position) calculateResultProfitLoss() float64 {
	totalFees := p.EnterFeesTotal + p.ExitFeesTotal

	if p.Direction == DirectionShort {
		return p.EnterValueGross - p.ExitValueGross - totalFees
	}
	return p.ExitValueGross - p.EnterValueGross - totalFees
}

// ProfitLossReturn is the realised PnL of a closed Position as a fraction
// of its gross entry value.
func (p *Position) ProfitLossReturn() float64 {
	return p.ResultProfitLoss / p.EnterValueGross
}
