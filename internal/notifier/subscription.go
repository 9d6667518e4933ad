package notifier

import (
	"sync"

	"auction-bidding/internal/models"
)

// Subscription is one consumer of an auction's event stream.
// C is closed when the stream ends; Err then says why.
type Subscription struct {
	hub       *Hub
	auctionID string
	after     int64
	ch        chan models.Event

	mu     sync.Mutex
	closed bool
	err    error
}

func newSubscription(h *Hub, auctionID string, after int64, size int) *Subscription {
	return &Subscription{
		hub:       h,
		auctionID: auctionID,
		after:     after,
		ch:        make(chan models.Event, size),
	}
}

// Completed returns a subscription that has already ended cleanly, for
// auctions that will never change again.
func Completed(auctionID string) *Subscription {
	s := newSubscription(nil, auctionID, 0, 0)
	s.finish(nil)
	return s
}

// C delivers events in version order
func (s *Subscription) C() <-chan models.Event {
	return s.ch
}

// AuctionID is the auction this subscription follows
func (s *Subscription) AuctionID() string {
	return s.auctionID
}

// Err returns nil while the stream is open or after the auction reached a
// terminal status, ErrSubscriberLagged when the consumer fell behind and
// ErrSubscriptionClosed after Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	if s.hub == nil {
		return
	}
	s.hub.unsubscribe(s)
}

// send queues ev without blocking and reports false when the buffer is full
func (s *Subscription) send(ev models.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ev.Version <= s.after {
		return true
	}
	select {
	case s.ch <- ev:
		s.after = ev.Version
		return true
	default:
		return false
	}
}

func (s *Subscription) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.ch)
}
