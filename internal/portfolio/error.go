package portfolio

import "errors"

// The closed set of accounting errors. All are recoverable value errors:
// callers route them, the engine converts unhandled ones into a terminal
// reason, and nothing here is ever raised as a panic.
var (
	// ErrBuilderIncomplete reports a Position reconstruction finalized with
	// one or more required fields unset.
	ErrBuilderIncomplete = errors.New("failed to build Position due to incomplete attributes provided")

	// ErrCalcProfitLoss is a defensive guard for a missing total-fee
	// computation. Fees are always summed in full, so this path is
	// unreachable under the current fee model.
	ErrCalcProfitLoss = errors.New("failed to calculate PnL due to missing total fees")

	// ErrParseEntryDirection reports an ambiguous fill quantity & Decision
	// combination on entry (zero quantity, or sign mismatched with the
	// decision).
	ErrParseEntryDirection = errors.New("failed to parse Position entry direction due to ambiguous fill quantity & Decision")

	// ErrCannotEnterPositionWithExitFill reports an entry attempted with a
	// closing decision.
	ErrCannotEnterPositionWithExitFill = errors.New("cannot enter Position with an exit decision fill")

	// ErrCannotExitPositionWithEntryFill reports an exit attempted with an
	// opening decision.
	ErrCannotExitPositionWithEntryFill = errors.New("cannot exit Position with an entry decision fill")
)
