package stars

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BumpChannel carries balance-change events for polling clients.
const BumpChannel = "stars.bump"

// BalanceEvent is published after every committed debit or credit. EventID
// lets consumers deduplicate redelivered events.
type BalanceEvent struct {
	EventID string `json:"event_id,omitempty"`
	UserID  int64  `json:"user_id"`
	Balance int64  `json:"balance"`
	Reason  string `json:"reason"`
}

// Notifier announces balance changes to interested clients.
type Notifier interface {
	BalanceChanged(ctx context.Context, event BalanceEvent) error
}

// RedisNotifier publishes balance events on a Redis channel.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) BalanceChanged(ctx context.Context, event BalanceEvent) error {
	if n == nil || n.client == nil {
		return nil
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, BumpChannel, raw).Err()
}
