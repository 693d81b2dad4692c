package execution

import (
	"github.com/shopspring/decimal"

	"github.com/xsa-dev/barter-rs/internal/event"
)

// FeeModel derives the itemized fees of a fill from its gross value.
// Rates are kept in decimal so repeated percentage math does not drift;
// the result is converted to float64 only at the event boundary.
type FeeModel struct {
	exchangeRate decimal.Decimal // fraction of gross value, e.g. 0.001
	slippageRate decimal.Decimal // fraction of gross value
	networkFlat  decimal.Decimal // flat charge per fill
}

// NewFeeModel creates a fee model from fractional rates and a flat
// network charge, all in quote currency terms.
func NewFeeModel(exchangeRate, slippageRate, networkFlat float64) FeeModel {
	return FeeModel{
		exchangeRate: decimal.NewFromFloat(exchangeRate),
		slippageRate: decimal.NewFromFloat(slippageRate),
		networkFlat:  decimal.NewFromFloat(networkFlat),
	}
}

// Fees computes the fee breakdown for a fill of the given gross value.
func (m FeeModel) Fees(fillValueGross float64) event.Fees {
	gross := decimal.NewFromFloat(fillValueGross)

	exchange, _ := gross.Mul(m.exchangeRate).Float64()
	slippage, _ := gross.Mul(m.slippageRate).Float64()
	network, _ := m.networkFlat.Float64()

	return event.Fees{
		Exchange: exchange,
		Slippage: slippage,
		Network:  network,
	}
}
