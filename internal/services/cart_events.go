package services

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Cart change events published on cart:<userID>.
const (
	CartUpdated = "updated"
	CartCleared = "cleared"
)

// CartEvents fans cart changes out to every server instance through Redis pub/sub.
type CartEvents struct {
	client *redis.Client
}

func NewCartEvents(client *redis.Client) *CartEvents {
	return &CartEvents{client: client}
}

func cartChannel(userID int64) string {
	return "cart:" + strconv.FormatInt(userID, 10)
}

// Publish announces a cart change. Failures are logged; the mutation already succeeded.
func (e *CartEvents) Publish(ctx context.Context, userID int64, event string) {
	if err := e.client.Publish(ctx, cartChannel(userID), event).Err(); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("⚠️  Cart event not published")
	}
}

// Subscribe streams cart events for userID until ctx is done.
func (e *CartEvents) Subscribe(ctx context.Context, userID int64) (<-chan string, error) {
	pubsub := e.client.Subscribe(ctx, cartChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
