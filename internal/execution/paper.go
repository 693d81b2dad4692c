package execution

import (
	"context"
	"log/slog"
	"math"

	"github.com/xsa-dev/barter-rs/internal/event"
	"github.com/xsa-dev/barter-rs/internal/infra"
)

// EventSink receives the fills this executor produces; in the live wiring
// it is the trader's event feed.
type EventSink interface {
	Push(ev event.Event) error
}

// PaperExecution simulates order execution against the order's reference
// price. Every order fills immediately and completely; the fee model adds
// the cost of a real venue. Deterministic: fill timestamps come from the
// order, never the wall clock.
type PaperExecution struct {
	orders  <-chan *event.OrderEvent
	fills   EventSink
	fees    FeeModel
	limiter *infra.RateLimiter
}

// NewPaperExecution creates a paper executor. The limiter is optional and
// models venue-side request throttling.
func NewPaperExecution(orders <-chan *event.OrderEvent, fills EventSink, fees FeeModel, limiter *infra.RateLimiter) *PaperExecution {
	return &PaperExecution{
		orders:  orders,
		fills:   fills,
		fees:    fees,
		limiter: limiter,
	}
}

// Run consumes orders until the context is cancelled or the order channel
// closes. Each order becomes exactly one fill pushed back onto the sink.
func (p *PaperExecution) Run(ctx context.Context) {
	slog.Info("Paper execution started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Paper execution stopping...")
			return

		case order, ok := <-p.orders:
			if !ok {
				slog.Info("Order channel closed, paper execution done")
				return
			}

			if p.limiter != nil {
				p.limiter.Wait()
			}

			fill := p.fill(order)
			if err := p.fills.Push(fill); err != nil {
				slog.Warn("Fill dropped, event feed finished",
					slog.String("symbol", fill.Symbol))
				return
			}
		}
	}
}

// fill converts one order into its simulated execution report.
func (p *PaperExecution) fill(order *event.OrderEvent) *event.FillEvent {
	fillValueGross := math.Abs(order.Quantity) * order.Close

	fill := &event.FillEvent{
		Trace:          order.Trace,
		Timestamp:      order.Timestamp,
		MarketMeta:     event.MarketMeta{Timestamp: order.Timestamp},
		Exchange:       order.Exchange,
		Symbol:         order.Symbol,
		Decision:       order.Decision,
		Quantity:       order.Quantity,
		FillValueGross: fillValueGross,
		Fees:           p.fees.Fees(fillValueGross),
	}

	slog.Info("PAPER EXECUTION: Order Filled",
		slog.String("symbol", fill.Symbol),
		slog.String("decision", string(fill.Decision)),
		slog.Float64("quantity", fill.Quantity),
		slog.Float64("value_gross", fill.FillValueGross),
		slog.Time("timestamp", fill.Timestamp))

	return fill
}
