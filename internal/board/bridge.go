package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/orderdeck/api/internal/client"
	"github.com/orderdeck/api/internal/ws"
)

// ActiveLister fetches the outlet's active orders for a full resync.
// Satisfied by *client.Client.
type ActiveLister interface {
	ListActive(ctx context.Context, outletID uuid.UUID) ([]client.Order, error)
}

// Bridge subscribes to an outlet's websocket feed and folds events into
// the store. The feed has no replay: after any disconnect the bridge
// refetches the active set and replaces the store wholesale, because
// events missed while offline are gone.
type Bridge struct {
	store    *Store
	api      ActiveLister
	outletID uuid.UUID
	feedURL  string

	dial func(ctx context.Context, url string) (*websocket.Conn, error)

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewBridge(store *Store, api ActiveLister, outletID uuid.UUID, feedURL string) *Bridge {
	return &Bridge{
		store:    store,
		api:      api,
		outletID: outletID,
		feedURL:  feedURL,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// HandleEvent folds one feed event into the store.
//
// insert is an unconditional upsert, so redelivery of the same order is
// harmless. update keeps the newer of the cached and delivered copies by
// updated_at, so events arriving out of order cannot regress the board.
// delete removes the order outright.
func (b *Bridge) HandleEvent(event ws.Event) error {
	var order client.Order
	if err := json.Unmarshal(event.Order, &order); err != nil {
		return fmt.Errorf("unmarshal feed order: %w", err)
	}

	switch event.Kind {
	case ws.EventInsert:
		b.store.Upsert(order)
	case ws.EventUpdate:
		b.store.Merge(order)
	case ws.EventDelete:
		b.store.Remove(order.ID)
	default:
		return fmt.Errorf("unknown feed event kind %q", event.Kind)
	}
	return nil
}

// Resync replaces the store with the server's current active set.
func (b *Bridge) Resync(ctx context.Context) error {
	orders, err := b.api.ListActive(ctx, b.outletID)
	if err != nil {
		return fmt.Errorf("resync active orders: %w", err)
	}
	b.store.ReplaceAll(orders)
	return nil
}

// Run connects to the feed and processes events until ctx is cancelled,
// reconnecting with exponential backoff. Every successful (re)connect
// starts with a full resync.
func (b *Bridge) Run(ctx context.Context) error {
	backoff := b.minBackoff
	for {
		conn, err := b.dial(ctx, b.feedURL)
		if err != nil {
			log.Printf("ERROR: feed dial: %v", err)
		} else {
			if err := b.Resync(ctx); err != nil {
				log.Printf("ERROR: %v", err)
				conn.Close()
			} else {
				backoff = b.minBackoff
				b.readLoop(ctx, conn)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > b.maxBackoff {
			backoff = b.maxBackoff
		}
	}
}

// readLoop consumes events until the connection breaks or ctx is done.
func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("ERROR: feed read: %v", err)
			}
			return
		}

		var event ws.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("ERROR: decode feed event: %v", err)
			continue
		}
		if err := b.HandleEvent(event); err != nil {
			log.Printf("ERROR: %v", err)
		}
	}
}

// FeedURL builds the websocket endpoint for an outlet's order feed from
// the API base URL ("http://host:port") and a bearer token.
func FeedURL(baseURL string, outletID uuid.UUID, token string) string {
	wsBase := baseURL
	switch {
	case strings.HasPrefix(baseURL, "https"):
		wsBase = "wss" + strings.TrimPrefix(baseURL, "https")
	case strings.HasPrefix(baseURL, "http"):
		wsBase = "ws" + strings.TrimPrefix(baseURL, "http")
	}
	return fmt.Sprintf("%s/ws/outlets/%s/orders?token=%s", wsBase, outletID, token)
}
