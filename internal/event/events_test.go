package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindMarket, "MARKET"},
		{KindSignal, "SIGNAL"},
		{KindOrder, "ORDER"},
		{KindFill, "FILL"},
		{KindCommand, "COMMAND"},
		{Kind(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestDecision_EntryExit(t *testing.T) {
	entries := []Decision{DecisionLong, DecisionShort}
	exits := []Decision{DecisionCloseLong, DecisionCloseShort}

	for _, d := range entries {
		if !d.IsEntry() || d.IsExit() {
			t.Errorf("%s must be entry-only", d)
		}
	}
	for _, d := range exits {
		if d.IsEntry() || !d.IsExit() {
			t.Errorf("%s must be exit-only", d)
		}
	}
}

func TestFees_Total(t *testing.T) {
	fees := Fees{Exchange: 1.5, Slippage: 0.25, Network: 0.1}
	if got := fees.Total(); got != 1.85 {
		t.Errorf("Total() = %v, want 1.85", got)
	}

	if got := (Fees{}).Total(); got != 0 {
		t.Errorf("empty Total() = %v, want 0", got)
	}
}

func TestEventInterface(t *testing.T) {
	trace := uuid.New()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []Event{
		&MarketEvent{Trace: trace, Timestamp: ts},
		&SignalEvent{Trace: trace, Timestamp: ts},
		&OrderEvent{Trace: trace, Timestamp: ts},
		&FillEvent{Trace: trace, Timestamp: ts},
		&CommandEvent{Trace: trace, Timestamp: ts},
	}
	kinds := []Kind{KindMarket, KindSignal, KindOrder, KindFill, KindCommand}

	for i, ev := range events {
		if ev.TraceID() != trace {
			t.Errorf("%s: trace id not preserved", kinds[i])
		}
		if !ev.Time().Equal(ts) {
			t.Errorf("%s: timestamp not preserved", kinds[i])
		}
		if ev.Kind() != kinds[i] {
			t.Errorf("expected kind %s, got %s", kinds[i], ev.Kind())
		}
	}
}

func TestNewTerminateCommand(t *testing.T) {
	cmd := NewTerminateCommand()

	if cmd.Command != CommandTerminate {
		t.Errorf("expected CommandTerminate, got %v", cmd.Command)
	}
	if cmd.Trace == uuid.Nil {
		t.Error("terminate command must carry a trace id")
	}
	if cmd.Timestamp.IsZero() {
		t.Error("terminate command must carry a timestamp")
	}
}
