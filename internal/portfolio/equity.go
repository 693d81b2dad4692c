package portfolio

import "time"

// EquityPoint is a timestamped sample of portfolio net worth. Updates are
// additive PnL deltas, never an absolute recomputation, so callers must
// apply it exactly once per Position state change to avoid double counting.
type EquityPoint struct {
	Equity    float64   `json:"equity"`
	Timestamp time.Time `json:"timestamp"`
}

// Update folds the input Position's PnL into the running equity total.
// Open positions contribute their unrealised PnL and advance the timestamp
// to the last update; closed positions contribute their realised PnL and
// advance it to the exit.
func (e *EquityPoint) Update(position *Position) {
	if position.IsClosed() {
		e.Equity += position.ResultProfitLoss
		e.Timestamp = position.Meta.ExitBarTime
		return
	}

	e.Equity += position.UnrealProfitLoss
	e.Timestamp = position.Meta.LastUpdateTime
}
