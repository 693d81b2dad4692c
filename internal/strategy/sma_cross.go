package strategy

import (
	"github.com/xsa-dev/barter-rs/internal/event"
)

// SMACrossStrategy implements a simple SMA Crossover strategy.
// It is stateful and deterministic: the same bar sequence always produces
// the same signal sequence. Uses a ring buffer so the hotpath never
// allocates for price history.
type SMACrossStrategy struct {
	exchange    string
	symbol      string
	shortPeriod int
	longPeriod  int

	// State (Ring Buffer)
	prices []float64
	head   int     // Current write position
	count  int     // Number of elements filled
	sum    float64 // Running sum for the longest period

	prevShortSMA float64
	prevLongSMA  float64
	warm         bool
}

// NewSMACrossStrategy creates a new instance.
func NewSMACrossStrategy(exchange, symbol string, shortPeriod, longPeriod int) *SMACrossStrategy {
	if shortPeriod <= 0 || shortPeriod >= longPeriod {
		panic("SMACrossStrategy: shortPeriod must be in (0, longPeriod)")
	}
	return &SMACrossStrategy{
		exchange:    exchange,
		symbol:      symbol,
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		prices:      make([]float64, longPeriod), // Fixed size allocation
	}
}

// GenerateSignal folds the bar close into the price history and advises
// LONG on a golden cross, SHORT on a dead cross.
func (s *SMACrossStrategy) GenerateSignal(market *event.MarketEvent) *event.SignalEvent {
	// 1. Filter by instrument
	if market.Exchange != s.exchange || market.Symbol != s.symbol {
		return nil
	}

	close := market.Bar.Close

	// 2. Update price history (ring buffer).
	// If full, subtract the oldest value from the running sum first.
	if s.count == s.longPeriod {
		s.sum -= s.prices[s.head] // s.head points to the oldest value when full
	}

	s.prices[s.head] = close
	s.sum += close
	s.head = (s.head + 1) % s.longPeriod

	if s.count < s.longPeriod {
		s.count++
	}

	// 3. Check if we have enough data
	if s.count < s.longPeriod {
		return nil
	}

	// 4. Calculate SMAs
	currLongSMA := s.sum / float64(s.longPeriod)
	currShortSMA := s.calculateShortSMA()

	var signal *event.SignalEvent

	// 5. Check for cross against the previous bar's SMAs
	if s.warm {
		switch {
		// Golden Cross: short goes above long
		case s.prevShortSMA <= s.prevLongSMA && currShortSMA > currLongSMA:
			signal = s.newSignal(market, event.DecisionLong, currShortSMA, currLongSMA)

		// Dead Cross: short goes below long
		case s.prevShortSMA >= s.prevLongSMA && currShortSMA < currLongSMA:
			signal = s.newSignal(market, event.DecisionShort, currShortSMA, currLongSMA)
		}
	}

	// 6. Update state
	s.prevShortSMA = currShortSMA
	s.prevLongSMA = currLongSMA
	s.warm = true

	return signal
}

func (s *SMACrossStrategy) newSignal(market *event.MarketEvent, advice event.Decision, shortSMA, longSMA float64) *event.SignalEvent {
	// Strength grows with the relative SMA separation, capped at 1.
	strength := (shortSMA - longSMA) / longSMA
	if strength < 0 {
		strength = -strength
	}
	if strength > 1 {
		strength = 1
	}
	if strength == 0 {
		strength = 1e-9
	}

	return &event.SignalEvent{
		Trace:     market.Trace,
		Timestamp: market.Timestamp,
		Exchange:  market.Exchange,
		Symbol:    market.Symbol,
		Close:     market.Bar.Close,
		Advice:    advice,
		Strength:  strength,
	}
}

// calculateShortSMA walks backwards from the latest write position.
func (s *SMACrossStrategy) calculateShortSMA() float64 {
	var sum float64
	idx := s.head
	for i := 0; i < s.shortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = s.longPeriod - 1
		}
		sum += s.prices[idx]
	}
	return sum / float64(s.shortPeriod)
}
