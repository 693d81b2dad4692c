package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the closed set of events a Trader can consume.
type Kind uint8

const (
	KindMarket Kind = iota + 1
	KindSignal
	KindOrder
	KindFill
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindMarket:
		return "MARKET"
	case KindSignal:
		return "SIGNAL"
	case KindOrder:
		return "ORDER"
	case KindFill:
		return "FILL"
	case KindCommand:
		return "COMMAND"
	default:
		return "UNKNOWN"
	}
}

// Event is the interface satisfied by every event the feed can yield.
type Event interface {
	TraceID() uuid.UUID
	Time() time.Time
	Kind() Kind
}

// Bar is a single OHLCV candle.
type Bar struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MarketEvent carries the next closed Bar for one instrument.
type MarketEvent struct {
	Trace     uuid.UUID `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Bar       Bar       `json:"bar"`
}

func (e *MarketEvent) TraceID() uuid.UUID { return e.Trace }
func (e *MarketEvent) Time() time.Time    { return e.Timestamp }
func (e *MarketEvent) Kind() Kind         { return KindMarket }

// SignalEvent is advisory trading intent produced by a Strategy.
// Strength is in (0, 1]; the portfolio decides whether it becomes an Order.
type SignalEvent struct {
	Trace     uuid.UUID `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Close     float64   `json:"close"`
	Advice    Decision  `json:"advice"`
	Strength  float64   `json:"strength"`
}

func (e *SignalEvent) TraceID() uuid.UUID { return e.Trace }
func (e *SignalEvent) Time() time.Time    { return e.Timestamp }
func (e *SignalEvent) Kind() Kind         { return KindSignal }

// OrderEvent is a request for execution, forwarded on the execution channel.
// Close is the reference price the order was generated against.
type OrderEvent struct {
	Trace     uuid.UUID `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
	Exchange  string    `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Decision  Decision  `json:"decision"`
	Quantity  float64   `json:"quantity"`
	Close     float64   `json:"close"`
}

func (e *OrderEvent) TraceID() uuid.UUID { return e.Trace }
func (e *OrderEvent) Time() time.Time    { return e.Timestamp }
func (e *OrderEvent) Kind() Kind         { return KindOrder }

// CommandKind enumerates supervisor commands.
type CommandKind uint8

const (
	// CommandTerminate requests a graceful transition to Terminate.
	CommandTerminate CommandKind = iota + 1
)

// CommandEvent is an out-of-band instruction observed by the Consume loop.
type CommandEvent struct {
	Trace     uuid.UUID   `json:"trace_id"`
	Timestamp time.Time   `json:"timestamp"`
	Command   CommandKind `json:"command"`
}

func (e *CommandEvent) TraceID() uuid.UUID { return e.Trace }
func (e *CommandEvent) Time() time.Time    { return e.Timestamp }
func (e *CommandEvent) Kind() Kind         { return KindCommand }

// NewTerminateCommand builds the shutdown command a supervisor pushes onto
// the feed to stop a Trader cooperatively.
func NewTerminateCommand() *CommandEvent {
	return &CommandEvent{
		Trace:     uuid.New(),
		Timestamp: time.Now().UTC(),
		Command:   CommandTerminate,
	}
}
