package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"progression-engine/internal/app"
	"progression-engine/internal/domain"
	"progression-engine/internal/logger"
)

// Notifier publishes award notifications on a Redis channel so every
// instance can deliver them to locally connected users.
type Notifier struct {
	client  *redis.Client
	channel string
}

func NewNotifier(client *redis.Client, channel string) *Notifier {
	return &Notifier{client: client, channel: channel}
}

func (n *Notifier) Notify(ctx context.Context, msg domain.Notification) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, raw).Err()
}

// Forward subscribes to the channel and hands every notification to local.
// It returns once the subscription is live; forwarding stops when ctx ends.
func Forward(ctx context.Context, client *redis.Client, channel string, local app.Notifier, log *logger.Logger) error {
	sub := client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var msg domain.Notification
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					log.Warn("bad notification payload", "error", err)
					continue
				}
				if err := local.Notify(ctx, msg); err != nil {
					log.Debug("notification not delivered", "user_id", msg.UserID, "error", err)
				}
			}
		}
	}()
	return nil
}
