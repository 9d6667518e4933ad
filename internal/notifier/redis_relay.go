package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"auction-bidding/internal/models"
	"auction-bidding/utils"
)

// EventsChannel is the Redis pub/sub channel shared by all instances
const EventsChannel = "auction:events"

// envelope tags a relayed event with the instance that committed it
type envelope struct {
	Origin string       `json:"origin"`
	Event  models.Event `json:"event"`
}

// RedisRelay publishes locally committed events to the local Hub and to
// Redis, and feeds events committed by other instances into the local Hub.
// The Redis round trip happens on a worker, never on the commit path.
type RedisRelay struct {
	client  *redis.Client
	local   *Hub
	origin  string
	channel string
	queue   chan models.Event
}

// NewRedisRelay creates a relay with room for queueSize events awaiting
// publication.
func NewRedisRelay(client *redis.Client, local *Hub, queueSize int) *RedisRelay {
	return &RedisRelay{
		client:  client,
		local:   local,
		origin:  utils.GenerateID(),
		channel: EventsChannel,
		queue:   make(chan models.Event, queueSize),
	}
}

// Publish delivers ev locally and queues it for other instances. A full
// queue drops the remote copy; remote subscribers reconcile by re-reading.
func (r *RedisRelay) Publish(ev models.Event) {
	r.local.Publish(ev)

	select {
	case r.queue <- ev:
	default:
		utils.Warn("relay: queue full, event not relayed", map[string]any{
			"auction_id": ev.AuctionID,
			"version":    ev.Version,
		})
	}
}

// Run subscribes to the shared channel and drains the outbound queue until
// ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("relay: subscribe %s: %w", r.channel, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.drain(ctx)
	}()
	defer wg.Wait()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.receive(msg.Payload)
		}
	}
}

func (r *RedisRelay) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			payload, err := json.Marshal(envelope{Origin: r.origin, Event: ev})
			if err != nil {
				utils.Error("relay: encode event", map[string]any{"error": err.Error()})
				continue
			}
			if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
				utils.Warn("relay: publish failed", map[string]any{
					"auction_id": ev.AuctionID,
					"version":    ev.Version,
					"error":      err.Error(),
				})
			}
		}
	}
}

func (r *RedisRelay) receive(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		utils.Warn("relay: malformed message", map[string]any{"error": err.Error()})
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.local.Publish(env.Event)
}
