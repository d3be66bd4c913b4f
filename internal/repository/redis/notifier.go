package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"videogate/internal/domain/entity"
	"videogate/pkg/utils"
)

// Notifier publishes lifecycle events to the realtime transport. The
// socket layer subscribes connected clients to their user:<id> and
// org:<id> channels; delivery is fire-and-forget.
type Notifier struct {
	Client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{Client: client}
}

func (n *Notifier) Publish(ctx context.Context, channel string, event entity.Event) error {
	payload, err := utils.ToRawMessage(event)
	if err != nil {
		return err
	}
	return n.Client.Publish(ctx, channel, []byte(payload)).Err()
}
