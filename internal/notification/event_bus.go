package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/OpenCrew/crewflow/internal/config"
)

const (
	phaseCompletedChannel    = "onboarding:events:phase-completed"
	workflowCompletedChannel = "onboarding:events:workflow-completed"
)

// RedisEventBus publishes onboarding completion events over Redis pub/sub.
// The core only publishes; email and certificate dispatchers run as
// separate consumers.
type RedisEventBus struct {
	client *redis.Client
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}
	return client, nil
}

func NewRedisEventBus(client *redis.Client) *RedisEventBus {
	return &RedisEventBus{client: client}
}

// PublishPhaseCompleted broadcasts a phase completion event.
func (b *RedisEventBus) PublishPhaseCompleted(ctx context.Context, event PhaseCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal phase completed event: %w", err)
	}
	return b.client.Publish(ctx, phaseCompletedChannel, payload).Err()
}

// PublishWorkflowCompleted broadcasts a workflow completion event.
func (b *RedisEventBus) PublishWorkflowCompleted(ctx context.Context, event WorkflowCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow completed event: %w", err)
	}
	return b.client.Publish(ctx, workflowCompletedChannel, payload).Err()
}

// SubscribePhaseCompleted opens a continuous stream of phase completion
// events for an external dispatcher. The channel closes when ctx is done.
func (b *RedisEventBus) SubscribePhaseCompleted(ctx context.Context) (<-chan PhaseCompletedEvent, error) {
	pubsub := b.client.Subscribe(ctx, phaseCompletedChannel)
	events := make(chan PhaseCompletedEvent)

	go func() {
		defer close(events)
		defer pubsub.Close()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("failed to receive phase completed event", "error", err)
				continue
			}
			var event PhaseCompletedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("discarding malformed phase completed event", "error", err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// SubscribeWorkflowCompleted opens a continuous stream of workflow
// completion events for an external dispatcher.
func (b *RedisEventBus) SubscribeWorkflowCompleted(ctx context.Context) (<-chan WorkflowCompletedEvent, error) {
	pubsub := b.client.Subscribe(ctx, workflowCompletedChannel)
	events := make(chan WorkflowCompletedEvent)

	go func() {
		defer close(events)
		defer pubsub.Close()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("failed to receive workflow completed event", "error", err)
				continue
			}
			var event WorkflowCompletedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("discarding malformed workflow completed event", "error", err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
