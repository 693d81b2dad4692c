package feed

import (
	"errors"
	"sync"

	"github.com/xsa-dev/barter-rs/internal/event"
)

// ErrFeedFinished is returned by Next once the feed is closed and drained.
var ErrFeedFinished = errors.New("event feed finished")

// Feed yields the heterogeneous event stream a Trader consumes. Next blocks
// until an event is available or the feed finishes; it is the only
// suspension point of the consume loop.
type Feed interface {
	Next() (event.Event, error)
}

// Sink is the producer side of a feed. Push returns ErrFeedFinished once
// the feed has been closed.
type Sink interface {
	Push(ev event.Event) error
}

// EventFeed is a channel-backed Feed. Producers (market data workers, the
// execution handler, supervisors) push events in; exactly one Trader pulls
// them out in order.
type EventFeed struct {
	inbox     chan event.Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventFeed creates a feed with the given inbox capacity.
func NewEventFeed(size int) *EventFeed {
	return &EventFeed{
		inbox: make(chan event.Event, size),
		done:  make(chan struct{}),
	}
}

// Next blocks until the next event arrives. Once the feed is closed it
// drains the remaining buffered events, then reports ErrFeedFinished.
func (f *EventFeed) Next() (event.Event, error) {
	select {
	case ev := <-f.inbox:
		return ev, nil
	case <-f.done:
		select {
		case ev := <-f.inbox:
			return ev, nil
		default:
			return nil, ErrFeedFinished
		}
	}
}

// Push enqueues an event, blocking while the inbox is full. It returns
// ErrFeedFinished if the feed has been closed.
func (f *EventFeed) Push(ev event.Event) error {
	select {
	case <-f.done:
		return ErrFeedFinished
	default:
	}

	select {
	case f.inbox <- ev:
		return nil
	case <-f.done:
		return ErrFeedFinished
	}
}

// Close marks the feed finished. Buffered events are still delivered before
// Next reports ErrFeedFinished. Safe to call more than once.
func (f *EventFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
