package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"pulseboard.app/ingest/internal/model"
)

// ActivityMessage announces a freshly written activity to downstream
// consumers (aggregators, search indexers).
type ActivityMessage struct {
	ActivityID string
	CustomerID int64
	Source     model.Source
	EventName  string
	Artifact   model.Artifact
	Action     model.Action
}

type Producer interface {
	Publish(ctx context.Context, msg ActivityMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, msg ActivityMessage) error {
	fields := map[string]any{
		"activity_id": msg.ActivityID,
		"customer_id": msg.CustomerID,
		"source":      string(msg.Source),
		"event":       msg.EventName,
		"artifact":    string(msg.Artifact),
		"action":      string(msg.Action),
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish activity: %w", err)
	}

	p.logger.DebugContext(ctx, "published activity", "activity_id", msg.ActivityID, "source", msg.Source, "event", msg.EventName)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
