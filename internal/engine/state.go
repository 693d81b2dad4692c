package engine

import (
	"github.com/xsa-dev/barter-rs/internal/portfolio"
)

// State is the closed union of trader lifecycle states. Exactly one of
// Initialise, Consume or Terminate is live at any moment; the run loop
// dispatches exhaustively over these three and panics on anything else.
type State interface {
	state()
}

// Initialise is the starting state. It carries the instrument universe the
// portfolio will be built and validated against.
type Initialise struct {
	// Instruments maps exchange name to the symbols traded on it.
	Instruments map[string][]string
}

// Consume is the steady state: pull one event from the feed, dispatch it,
// repeat. The Portfolio built during Initialise lives here and nowhere else.
type Consume struct {
	Portfolio portfolio.Portfolio
}

// Terminate is the final state. Reason is nil for a graceful stop (feed
// exhausted or terminate command) and non-nil for a fatal error.
type Terminate struct {
	Reason error
}

func (Initialise) state() {}
func (Consume) state()    {}
func (Terminate) state()  {}
