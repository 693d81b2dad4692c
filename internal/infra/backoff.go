package infra

import "time"

// Reconnect pacing for the market-data stream: the first retry waits a
// second, repeated failures double the wait up to the cap.
const (
	reconnectBase = 1 * time.Second
	reconnectCap  = 60 * time.Second
)

// CalculateBackoff returns how long to wait before reconnect attempt n,
// following the schedule reconnectBase * 2^n capped at reconnectCap.
func CalculateBackoff(attempt int) time.Duration {
	if attempt < 0 {
		return reconnectBase
	}
	// Shifting past 30 would overflow long before the cap matters.
	if attempt > 30 {
		return reconnectCap
	}

	d := reconnectBase << uint(attempt)
	if d > reconnectCap {
		return reconnectCap
	}
	return d
}
