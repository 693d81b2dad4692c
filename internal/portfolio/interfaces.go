package portfolio

import (
	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/feed"
)

// The trader lifecycle depends on a portfolio only through the capability
// contracts below; any implementation satisfying them can be plugged in.

// MarketUpdater applies a market event to the open positions it affects,
// recomputing their unrealised PnL and the equity curve.
type MarketUpdater interface {
	UpdateFromMarket(market *event.MarketEvent)
}

// AccountUpdater applies a fill event, routing it to a Position enter or
// exit and updating the equity curve. Errors are accounting errors the
// caller must treat as fatal for the run.
type AccountUpdater interface {
	UpdateFromFill(fill *event.FillEvent) error
}

// OrderGenerator decides whether an advisory signal becomes an order given
// the current exposure. A nil order means the signal was not actionable.
type OrderGenerator interface {
	GenerateOrder(signal *event.SignalEvent) *event.OrderEvent
}

// Portfolio is the full capability set the Consume state requires.
type Portfolio interface {
	MarketUpdater
	AccountUpdater
	OrderGenerator
}

// Initialiser builds and validates a Portfolio from the declared instrument
// universe before any event is processed. The execution channel and feed
// handles are provided so implementations can pre-register collaborators.
type Initialiser interface {
	Init(instruments map[string][]string, executionTx chan<- *event.OrderEvent, f feed.Feed) (Portfolio, error)
}

// InitialiserFunc adapts a plain function to the Initialiser interface.
type InitialiserFunc func(instruments map[string][]string, executionTx chan<- *event.OrderEvent, f feed.Feed) (Portfolio, error)

func (fn InitialiserFunc) Init(instruments map[string][]string, executionTx chan<- *event.OrderEvent, f feed.Feed) (Portfolio, error) {
	return fn(instruments, executionTx, f)
}

// PositionSink receives closed positions for historical record keeping.
type PositionSink interface {
	SaveClosedPosition(position *Position) error
}
