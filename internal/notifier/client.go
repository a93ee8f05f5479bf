package notifier

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultBackoffInitial = time.Second
	defaultBackoffMax     = 30 * time.Second
	defaultMaxRetries     = 10
)

// Client maintains the dashboard's push connection: dial, identify, read
// events, reconnect with bounded exponential backoff.
//
// Identification is connection-scoped, so identify is re-sent after every
// reconnect, and the Center refetches the snapshot on every OnConnected to
// close the delivery gap.
type Client struct {
	url   string
	token string

	// OnConnected fires after the identify handshake completes.
	OnConnected func()
	// OnEvent receives every decoded push event.
	OnEvent func(Event)
	// OnDown fires once the retry budget is exhausted.
	OnDown func()

	BackoffInitial time.Duration
	BackoffMax     time.Duration
	MaxRetries     int

	dialer *websocket.Dialer
}

// NewClient prepares a push-channel client for ws://host/ws/claims.
func NewClient(url, token string) *Client {
	return &Client{
		url:            url,
		token:          token,
		BackoffInitial: defaultBackoffInitial,
		BackoffMax:     defaultBackoffMax,
		MaxRetries:     defaultMaxRetries,
		dialer:         websocket.DefaultDialer,
	}
}

// Run keeps the connection alive until ctx is cancelled or the retry
// budget runs out.
func (c *Client) Run(ctx context.Context) {
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url+"?token="+c.token, nil)
		if err != nil {
			failures++
			if failures > c.MaxRetries {
				log.Printf("notifier: retry budget exhausted after %d attempts", failures-1)
				if c.OnDown != nil {
					c.OnDown()
				}
				return
			}
			wait := c.backoff(failures)
			log.Printf("notifier: connect failed (attempt %d), retrying in %s: %v", failures, wait, err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
			continue
		}

		failures = 0
		log.Println("notifier: connected")

		if err := c.session(ctx, conn); err != nil {
			log.Printf("notifier: connection lost: %v", err)
		}
		conn.Close()
	}
}

// session identifies and reads events until the connection breaks.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) error {
	if err := conn.WriteJSON(map[string]string{"type": "identify"}); err != nil {
		return err
	}

	// Drop the connection promptly when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	identified := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Printf("notifier: undecodable frame: %v", err)
			continue
		}

		switch ev.Type {
		case "identified":
			if !identified {
				identified = true
				if c.OnConnected != nil {
					c.OnConnected()
				}
			}
		case "pong":
			// keepalive reply, nothing to do
		default:
			if c.OnEvent != nil {
				c.OnEvent(ev)
			}
		}
	}
}

func (c *Client) backoff(failures int) time.Duration {
	wait := c.BackoffInitial
	for i := 1; i < failures; i++ {
		wait *= 2
		if wait >= c.BackoffMax {
			return c.BackoffMax
		}
	}
	if wait > c.BackoffMax {
		wait = c.BackoffMax
	}
	return wait
}
