package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/canopy-network/course-indexer/pkg/blob"
	"github.com/redis/go-redis/v9"
)

// EventIDKey is the message metadata key carrying the event id.
const EventIDKey = "event_id"

// Publisher publishes raw event envelopes to Redis Streams.
type Publisher struct {
	pub         message.Publisher
	redisClient redis.UniversalClient
	topic       string
}

// New creates a new Publisher.
func New(redisClient redis.UniversalClient, topic string) (*Publisher, error) {
	logger := watermill.NewSlogLogger(nil)

	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		pub:         pub,
		redisClient: redisClient,
		topic:       topic,
	}, nil
}

// PublishEvent validates one envelope and appends it to the stream unchanged.
// Envelopes that do not decode are rejected before they reach the queue.
func (p *Publisher) PublishEvent(ctx context.Context, data []byte) error {
	start := time.Now()

	ev, err := blob.Decode(data)
	if err != nil {
		slog.Warn("rejecting undecodable event", "len", len(data), "err", err)
		return fmt.Errorf("publish: %w", err)
	}

	msgUUID := watermill.NewUUID()
	msg := message.NewMessage(msgUUID, data)
	msg.Metadata.Set(EventIDKey, ev.ID)
	msg.SetContext(ctx)

	err = p.pub.Publish(p.topic, msg)
	duration := time.Since(start)

	if err != nil {
		slog.Error("redis publish failed",
			"event_id", ev.ID,
			"kind", ev.Kind,
			"msg_uuid", msgUUID,
			"duration_ms", duration.Milliseconds(),
			"err", err,
		)
		return err
	}

	slog.Debug("redis publish ok",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"msg_uuid", msgUUID,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// Close closes the publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}

// QueueLength returns the number of messages in the Redis stream.
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.redisClient.XLen(ctx, p.topic).Result()
}

// Topic returns the Redis stream topic name.
func (p *Publisher) Topic() string {
	return p.topic
}
