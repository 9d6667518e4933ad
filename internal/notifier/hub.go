package notifier

import (
	"container/list"
	"sync"
	"time"

	"auction-bidding/internal/biddingerrors"
	"auction-bidding/internal/models"
	"auction-bidding/utils"
)

// Hub fans committed auction events out to local subscribers.
// Events of one auction reach every subscriber in version order; events
// of different auctions are independent.
type Hub struct {
	mu         sync.Mutex
	topics     map[string]*topic // key: auctionID
	bufferSize int
	gapTimeout time.Duration
	closed     bool

	// topics without subscribers, least recently used first
	idle   *list.List
	retain int
}

// DefaultRetainedTopics bounds how many auctions without subscribers keep
// their history and terminal state for late joiners.
const DefaultRetainedTopics = 1024

// topic is the ordering state of one auction
type topic struct {
	auctionID string
	delivered int64 // highest version handed to subscribers
	pending   map[int64]models.Event
	history   []models.Event // last delivered events, for late joiners
	subs      map[*Subscription]struct{}
	gapTimer  *time.Timer
	gapSeq    uint64
	done      bool
	idleElem  *list.Element
}

// NewHub creates a Hub. bufferSize bounds each subscriber's queue and the
// replay history; a version gap older than gapTimeout is skipped.
func NewHub(bufferSize int, gapTimeout time.Duration) *Hub {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Hub{
		topics:     make(map[string]*topic),
		bufferSize: bufferSize,
		gapTimeout: gapTimeout,
		idle:       list.New(),
		retain:     DefaultRetainedTopics,
	}
}

// Publish hands ev to the auction's subscribers. It never blocks on a
// subscriber. Duplicates are dropped and early arrivals wait for the
// versions before them.
func (h *Hub) Publish(ev models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	t, ok := h.topics[ev.AuctionID]
	if !ok {
		t = h.newTopic(ev.AuctionID, ev.Version-1)
	}
	if ev.Version <= t.delivered {
		return
	}
	if _, dup := t.pending[ev.Version]; dup {
		return
	}
	t.pending[ev.Version] = ev
	h.flush(t)
}

// Subscribe streams events of auctionID with a version above afterVersion.
// Events already delivered past afterVersion are replayed from history;
// if history no longer reaches back that far the subscription starts
// closed with ErrSubscriberLagged. A finished auction replays its last
// events and closes the subscription.
func (h *Hub) Subscribe(auctionID string, afterVersion int64) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := newSubscription(h, auctionID, afterVersion, h.bufferSize)
	if h.closed {
		s.finish(biddingerrors.ErrSubscriptionClosed)
		return s
	}

	t, ok := h.topics[auctionID]
	if !ok {
		t = h.newTopic(auctionID, afterVersion)
	}
	if afterVersion < t.delivered {
		if len(t.history) == 0 || t.history[0].Version > afterVersion+1 {
			s.finish(biddingerrors.ErrSubscriberLagged)
			return s
		}
		for _, ev := range t.history {
			s.send(ev)
		}
	}
	if t.done {
		s.finish(nil)
		h.release(t)
		return s
	}
	t.subs[s] = struct{}{}
	h.unpark(t)
	return s
}

// Subscribers returns how many subscriptions are attached to auctionID
func (h *Hub) Subscribers(auctionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.topics[auctionID]; ok {
		return len(t.subs)
	}
	return 0
}

// Close ends every subscription with ErrSubscriptionClosed
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.idle.Init()
	for id, t := range h.topics {
		h.stopGapTimer(t)
		for s := range t.subs {
			h.detach(t, s, biddingerrors.ErrSubscriptionClosed)
		}
		delete(h.topics, id)
	}
}

func (h *Hub) newTopic(auctionID string, delivered int64) *topic {
	t := &topic{
		auctionID: auctionID,
		delivered: delivered,
		pending:   make(map[int64]models.Event),
		subs:      make(map[*Subscription]struct{}),
	}
	h.topics[auctionID] = t
	return t
}

// flush delivers the contiguous run of pending events. Callers hold h.mu.
func (h *Hub) flush(t *topic) {
	for {
		ev, ok := t.pending[t.delivered+1]
		if !ok {
			break
		}
		delete(t.pending, ev.Version)
		t.delivered = ev.Version
		h.deliver(t, ev)
	}

	if len(t.pending) == 0 {
		h.stopGapTimer(t)
	} else if t.gapTimer == nil {
		t.gapSeq++
		seq := t.gapSeq
		t.gapTimer = time.AfterFunc(h.gapTimeout, func() { h.skipGap(t, seq) })
	}
	h.release(t)
}

// skipGap gives up on the missing versions before the oldest pending event
func (h *Hub) skipGap(t *topic, seq uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if seq != t.gapSeq || h.topics[t.auctionID] != t {
		return
	}
	t.gapTimer = nil
	if len(t.pending) == 0 {
		return
	}

	next := int64(-1)
	for v := range t.pending {
		if next == -1 || v < next {
			next = v
		}
	}
	utils.Warn("notifier: skipping missing events", map[string]any{
		"auction_id": t.auctionID,
		"from":       t.delivered + 1,
		"to":         next - 1,
	})
	t.delivered = next - 1
	h.flush(t)
}

func (h *Hub) stopGapTimer(t *topic) {
	if t.gapTimer != nil {
		t.gapTimer.Stop()
		t.gapTimer = nil
	}
	t.gapSeq++
}

func (h *Hub) deliver(t *topic, ev models.Event) {
	t.history = append(t.history, ev)
	if len(t.history) > h.bufferSize {
		t.history = t.history[len(t.history)-h.bufferSize:]
	}

	for s := range t.subs {
		if !s.send(ev) {
			utils.Warn("notifier: subscriber lagged, disconnecting", map[string]any{
				"auction_id": t.auctionID,
				"version":    ev.Version,
			})
			h.detach(t, s, biddingerrors.ErrSubscriberLagged)
		}
	}

	if ev.Type == models.EventStatusChanged && ev.Status.IsTerminal() {
		t.done = true
		for s := range t.subs {
			h.detach(t, s, nil)
		}
	}
}

func (h *Hub) detach(t *topic, s *Subscription, err error) {
	delete(t.subs, s)
	s.finish(err)
}

// release parks a topic nobody listens to. Parked topics keep their history
// and done flag until more than retain are parked; the least recently used
// ones are then dropped. Callers hold h.mu.
func (h *Hub) release(t *topic) {
	if len(t.subs) > 0 || len(t.pending) > 0 {
		h.unpark(t)
		return
	}
	if t.idleElem == nil {
		t.idleElem = h.idle.PushBack(t)
	} else {
		h.idle.MoveToBack(t.idleElem)
	}

	for h.idle.Len() > h.retain {
		old := h.idle.Remove(h.idle.Front()).(*topic)
		old.idleElem = nil
		h.stopGapTimer(old)
		delete(h.topics, old.auctionID)
	}
}

func (h *Hub) unpark(t *topic) {
	if t.idleElem != nil {
		h.idle.Remove(t.idleElem)
		t.idleElem = nil
	}
}

// retained reports how many topics the hub holds
func (h *Hub) retained() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.topics[s.auctionID]; ok {
		if _, attached := t.subs[s]; attached {
			h.detach(t, s, biddingerrors.ErrSubscriptionClosed)
			h.release(t)
			return
		}
	}
	s.finish(biddingerrors.ErrSubscriptionClosed)
}
