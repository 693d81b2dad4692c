package strategy

import (
	"github.com/xsa-dev/barter-rs/internal/event"
)

// Strategy defines the interface for trading logic.
type Strategy interface {
	// GenerateSignal is called for every market event the trader consumes.
	// A nil return means the strategy has no advice for this bar.
	GenerateSignal(market *event.MarketEvent) *event.SignalEvent
}
