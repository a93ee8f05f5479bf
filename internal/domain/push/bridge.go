package push

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const bridgeChannel = "casevault.claim-events"

// Bridge fans claim events out across API instances through Redis pub/sub.
// Every instance subscribes to the same channel and forwards received
// events to its local hub, so a claim created on one instance reaches staff
// connected anywhere. Local delivery also happens through the subscription
// (pub/sub echoes to the publisher), keeping a single delivery path.
type Bridge struct {
	rdb *redis.Client
	hub *Hub
}

func NewBridge(redisURL string, hub *Hub) (*Bridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Bridge{rdb: rdb, hub: hub}, nil
}

// Publish sends the event through Redis. If publishing fails the event is
// still delivered to the local hub so connected staff are not left blind.
func (b *Bridge) Publish(ev *Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("push: marshal bridge event type=%s: %v", ev.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, bridgeChannel, data).Err(); err != nil {
		log.Printf("push: bridge publish failed, delivering locally: %v", err)
		b.hub.Publish(ev)
	}
}

// Run subscribes to the bridge channel and forwards events to the local
// hub until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, bridgeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("push: bad bridge payload: %v", err)
				continue
			}
			b.hub.Publish(&ev)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) Close() error {
	return b.rdb.Close()
}
