package event

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the intent tag carried by Signals, Orders and Fills.
type Decision string

const (
	DecisionLong       Decision = "LONG"
	DecisionShort      Decision = "SHORT"
	DecisionCloseLong  Decision = "CLOSE_LONG"
	DecisionCloseShort Decision = "CLOSE_SHORT"
)

// IsEntry reports whether the decision opens a new exposure.
func (d Decision) IsEntry() bool {
	return d == DecisionLong || d == DecisionShort
}

// IsExit reports whether the decision closes an existing exposure.
func (d Decision) IsExit() bool {
	return d == DecisionCloseLong || d == DecisionCloseShort
}

// Fees itemizes the costs incurred by a single fill.
type Fees struct {
	Exchange float64 `json:"exchange"`
	Slippage float64 `json:"slippage"`
	Network  float64 `json:"network"`
}

// Total is the sum of every fee component. There is no partial total: a
// Fees value always contributes all of its items.
func (f Fees) Total() float64 {
	return f.Exchange + f.Slippage + f.Network
}

// MarketMeta links a Fill back to the market Bar that caused it.
type MarketMeta struct {
	Timestamp time.Time `json:"timestamp"`
}

// FillEvent is the execution report confirming a trade. Quantity is signed:
// positive buys, negative sells. FillValueGross = abs(Quantity) * price,
// excluding fees.
type FillEvent struct {
	Trace          uuid.UUID  `json:"trace_id"`
	Timestamp      time.Time  `json:"timestamp"`
	MarketMeta     MarketMeta `json:"market_meta"`
	Exchange       string     `json:"exchange"`
	Symbol         string     `json:"symbol"`
	Decision       Decision   `json:"decision"`
	Quantity       float64    `json:"quantity"`
	FillValueGross float64    `json:"fill_value_gross"`
	Fees           Fees       `json:"fees"`
}

func (e *FillEvent) TraceID() uuid.UUID { return e.Trace }
func (e *FillEvent) Time() time.Time    { return e.Timestamp }
func (e *FillEvent) Kind() Kind         { return KindFill }
