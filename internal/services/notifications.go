package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quote-assistant-backend/internal/models"
)

const (
	// RulesChannel carries rules update events between instances.
	RulesChannel     = "quote_assistant:rules_updates"
	rulesUpdatedType = "rules_updated"
)

// RulesNotifier publishes rules updates over Redis pub/sub so every instance
// sharing the rules file refreshes its cached copy.
type RulesNotifier struct {
	redis      *redis.Client
	instanceID string
}

func NewRulesNotifier(redisClient *redis.Client) *RulesNotifier {
	return &RulesNotifier{
		redis:      redisClient,
		instanceID: uuid.NewString(),
	}
}

// InstanceID identifies this process in published events.
func (n *RulesNotifier) InstanceID() string {
	return n.instanceID
}

func (n *RulesNotifier) PublishRulesUpdated(ctx context.Context, size int) error {
	data, err := json.Marshal(models.RulesUpdatedEvent{
		Type:       rulesUpdatedType,
		InstanceID: n.instanceID,
		Bytes:      size,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := n.redis.Publish(ctx, RulesChannel, string(data)).Err(); err != nil {
		return fmt.Errorf("failed to publish rules update: %w", err)
	}
	return nil
}

// Subscribe opens a subscription on the rules channel. The caller closes it.
func (n *RulesNotifier) Subscribe(ctx context.Context) *redis.PubSub {
	return n.redis.Subscribe(ctx, RulesChannel)
}

// IsRemote reports whether an event came from another instance.
func (n *RulesNotifier) IsRemote(evt models.RulesUpdatedEvent) bool {
	return evt.InstanceID != n.instanceID
}
