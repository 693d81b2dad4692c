package portfolio

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsa-dev/barter-rs/internal/event"
)

func fullBuilder() *PositionBuilder {
	return NewPositionBuilder().
		Meta(PositionMeta{
			EnterTraceID:   uuid.New(),
			EnterBarTime:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			LastUpdateTime: time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC),
		}).
		Exchange("binance").
		Symbol("ETHUSDT").
		Direction(DirectionLong).
		Quantity(2.0).
		EnterFees(event.Fees{Exchange: 1}).
		EnterFeesTotal(1.0).
		EnterAvgPriceGross(50.0).
		EnterValueGross(100.0).
		ExitFees(event.Fees{}).
		ExitFeesTotal(0.0).
		ExitAvgPriceGross(0.0).
		ExitValueGross(0.0).
		CurrentSymbolPrice(50.0).
		CurrentValueGross(100.0).
		UnrealProfitLoss(-2.0).
		ResultProfitLoss(0.0)
}

func TestPositionBuilder_Build(t *testing.T) {
	position, err := fullBuilder().Build()
	require.NoError(t, err)

	assert.Equal(t, "binance", position.Exchange)
	assert.Equal(t, "ETHUSDT", position.Symbol)
	assert.Equal(t, DirectionLong, position.Direction)
	assert.Equal(t, 2.0, position.Quantity)
	assert.Equal(t, 100.0, position.EnterValueGross)
	assert.Equal(t, -2.0, position.UnrealProfitLoss)
	assert.False(t, position.IsClosed())
}

func TestPositionBuilder_Empty(t *testing.T) {
	position, err := NewPositionBuilder().Build()
	assert.Nil(t, position)
	assert.ErrorIs(t, err, ErrBuilderIncomplete)
}

func TestPositionBuilder_MissingSingleField(t *testing.T) {
	// Everything except ResultProfitLoss.
	b := NewPositionBuilder().
		Meta(PositionMeta{}).
		Exchange("binance").
		Symbol("ETHUSDT").
		Direction(DirectionShort).
		Quantity(-1.0).
		EnterFees(event.Fees{}).
		EnterFeesTotal(0.0).
		EnterAvgPriceGross(10.0).
		EnterValueGross(10.0).
		ExitFees(event.Fees{}).
		ExitFeesTotal(0.0).
		ExitAvgPriceGross(0.0).
		ExitValueGross(0.0).
		CurrentSymbolPrice(10.0).
		CurrentValueGross(10.0).
		UnrealProfitLoss(0.0)

	position, err := b.Build()
	assert.Nil(t, position)
	assert.ErrorIs(t, err, ErrBuilderIncomplete)
}

func TestPositionBuilder_ZeroValuesAreSet(t *testing.T) {
	// An explicit zero must count as set: it is the staging that matters,
	// not the value.
	position, err := fullBuilder().ResultProfitLoss(0.0).Build()
	require.NoError(t, err)
	assert.Equal(t, 0.0, position.ResultProfitLoss)
}
