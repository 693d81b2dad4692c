package portfolio

import "github.com/xsa-dev/barter-rs/internal/event"

// PositionBuilder stages the reconstruction of a Position from external
// state (e.g. a persisted snapshot) rather than from a live fill. Every
// field must be set explicitly; Build fails rather than defaulting, so
// fixture-style zero values can never leak into a production Position.
type PositionBuilder struct {
	meta               *PositionMeta
	exchange           *string
	symbol             *string
	direction          *Direction
	quantity           *float64
	enterFees          *event.Fees
	enterFeesTotal     *float64
	enterAvgPriceGross *float64
	enterValueGross    *float64
	exitFees           *event.Fees
	exitFeesTotal      *float64
	exitAvgPriceGross  *float64
	exitValueGross     *float64
	currentSymbolPrice *float64
	currentValueGross  *float64
	unrealProfitLoss   *float64
	resultProfitLoss   *float64
}

// NewPositionBuilder returns an empty builder.
func NewPositionBuilder() *PositionBuilder {
	return &PositionBuilder{}
}

func (b *PositionBuilder) Meta(v PositionMeta) *PositionBuilder         { b.meta = &v; return b }
func (b *PositionBuilder) Exchange(v string) *PositionBuilder           { b.exchange = &v; return b }
func (b *PositionBuilder) Symbol(v string) *PositionBuilder             { b.symbol = &v; return b }
func (b *PositionBuilder) Direction(v Direction) *PositionBuilder       { b.direction = &v; return b }
func (b *PositionBuilder) Quantity(v float64) *PositionBuilder          { b.quantity = &v; return b }
func (b *PositionBuilder) EnterFees(v event.Fees) *PositionBuilder      { b.enterFees = &v; return b }
func (b *PositionBuilder) EnterFeesTotal(v float64) *PositionBuilder    { b.enterFeesTotal = &v; return b }
func (b *PositionBuilder) EnterAvgPriceGross(v float64) *PositionBuilder {
	b.enterAvgPriceGross = &v
	return b
}
func (b *PositionBuilder) EnterValueGross(v float64) *PositionBuilder { b.enterValueGross = &v; return b }
func (b *PositionBuilder) ExitFees(v event.Fees) *PositionBuilder     { b.exitFees = &v; return b }
func (b *PositionBuilder) ExitFeesTotal(v float64) *PositionBuilder   { b.exitFeesTotal = &v; return b }
func (b *PositionBuilder) ExitAvgPriceGross(v float64) *PositionBuilder {
	b.exitAvgPriceGross = &v
	return b
}
func (b *PositionBuilder) ExitValueGross(v float64) *PositionBuilder { b.exitValueGross = &v; return b }
func (b *PositionBuilder) CurrentSymbolPrice(v float64) *PositionBuilder {
	b.currentSymbolPrice = &v
	return b
}
func (b *PositionBuilder) CurrentValueGross(v float64) *PositionBuilder {
	b.currentValueGross = &v
	return b
}
func (b *PositionBuilder) UnrealProfitLoss(v float64) *PositionBuilder {
	b.unrealProfitLoss = &v
	return b
}
func (b *PositionBuilder) ResultProfitLoss(v float64) *PositionBuilder {
	b.resultProfitLoss = &v
	return b
}

// Build finalizes the staged Position, failing with ErrBuilderIncomplete if
// any field was never set.
func (b *PositionBuilder) Build() (*Position, error) {
	if b.meta == nil || b.exchange == nil || b.symbol == nil ||
		b.direction == nil || b.quantity == nil ||
		b.enterFees == nil || b.enterFeesTotal == nil ||
		b.enterAvgPriceGross == nil || b.enterValueGross == nil ||
		b.exitFees == nil || b.exitFeesTotal == nil ||
		b.exitAvgPriceGross == nil || b.exitValueGross == nil ||
		b.currentSymbolPrice == nil || b.currentValueGross == nil ||
		b.unrealProfitLoss == nil || b.resultProfitLoss == nil {
		return nil, ErrBuilderIncomplete
	}

	return &Position{
		Meta:               *b.meta,
		Exchange:           *b.exchange,
		Symbol:             *b.symbol,
		Direction:          *b.direction,
		Quantity:           *b.quantity,
		EnterFees:          *b.enterFees,
		EnterFeesTotal:     *b.enterFeesTotal,
		EnterAvgPriceGross: *b.enterAvgPriceGross,
		EnterValueGross:    *b.enterValueGross,
		ExitFees:           *b.exitFees,
		ExitFeesTotal:      *b.exitFeesTotal,
		ExitAvgPriceGross:  *b.exitAvgPriceGross,
		ExitValueGross:     *b.exitValueGross,
		CurrentSymbolPrice: *b.currentSymbolPrice,
		CurrentValueGross:  *b.currentValueGross,
		UnrealProfitLoss:   *b.unrealProfitLoss,
		ResultProfitLoss:   *b.resultProfitLoss,
	}, nil
}
