package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/canopy-network/course-indexer/internal/indexer"
	"github.com/redis/go-redis/v9"
)

// DefaultRetryDelay is the pause before a transiently failed event is redelivered.
const DefaultRetryDelay = 5 * time.Second

// EventIndexer applies one raw event envelope. *indexer.Indexer implements it.
type EventIndexer interface {
	IndexRaw(ctx context.Context, data []byte) error
}

// Config configures the worker.
type Config struct {
	RedisClient   redis.UniversalClient
	Indexer       EventIndexer
	Topic         string
	ConsumerGroup string
	RetryDelay    time.Duration
}

// QueueStats holds queue statistics.
type QueueStats struct {
	StreamLength int64 `json:"streamLength"`
	Pending      int64 `json:"pending"`
	Consumers    int64 `json:"consumers"`
}

// Worker consumes raw events from a Redis stream and indexes them one at a time.
// A fatal indexing error stops the worker; Run then returns that error.
type Worker struct {
	router        *message.Router
	indexer       EventIndexer
	redisClient   redis.UniversalClient
	topic         string
	consumerGroup string
	retryDelay    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	fatal  error
}

// New creates a new Worker.
func New(cfg Config) (*Worker, error) {
	logger := watermill.NewSlogLogger(nil)

	sub, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        cfg.RedisClient,
			ConsumerGroup: cfg.ConsumerGroup,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	w := newWorker(cfg)
	w.router = router

	router.AddNoPublisherHandler(
		"index-event",
		cfg.Topic,
		sub,
		w.handleEvent,
	)

	return w, nil
}

func newWorker(cfg Config) *Worker {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Worker{
		indexer:       cfg.Indexer,
		redisClient:   cfg.RedisClient,
		topic:         cfg.Topic,
		consumerGroup: cfg.ConsumerGroup,
		retryDelay:    cfg.RetryDelay,
	}
}

// handleEvent indexes a single event message.
func (w *Worker) handleEvent(msg *message.Message) error {
	start := time.Now()
	msgUUID := msg.UUID

	ctx := msg.Context()
	if err := w.indexer.IndexRaw(ctx, msg.Payload); err != nil {
		duration := time.Since(start)
		if indexer.IsFatal(err) {
			slog.Error("worker fatal event, stopping",
				"msg_uuid", msgUUID,
				"duration_ms", duration.Milliseconds(),
				"err", err,
			)
			w.stop(err)
			return err
		}
		slog.Error("worker indexing failed",
			"msg_uuid", msgUUID,
			"duration_ms", duration.Milliseconds(),
			"err", err,
		)
		// Delay before retry to avoid hammering on errors
		time.Sleep(w.retryDelay)
		return err // will be redelivered
	}

	slog.Debug("worker indexing done",
		"msg_uuid", msgUUID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// stop records the first fatal error and shuts the router down.
func (w *Worker) stop(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fatal == nil {
		w.fatal = err
	}
	if w.cancel != nil {
		w.cancel()
	}
}

// Err returns the fatal error that stopped the worker, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fatal
}

// Run starts the worker. It blocks until the context is cancelled or a fatal
// event stops it.
func (w *Worker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	err := w.router.Run(ctx)
	if fatal := w.Err(); fatal != nil {
		return fatal
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close closes the worker.
func (w *Worker) Close() error {
	return w.router.Close()
}

// QueueStats returns current queue statistics.
func (w *Worker) QueueStats(ctx context.Context) (QueueStats, error) {
	var stats QueueStats

	length, err := w.redisClient.XLen(ctx, w.topic).Result()
	if err != nil {
		return stats, err
	}
	stats.StreamLength = length

	groups, err := w.redisClient.XInfoGroups(ctx, w.topic).Result()
	if err != nil {
		// Stream might not exist yet
		return stats, nil
	}

	for _, g := range groups {
		if g.Name == w.consumerGroup {
			stats.Pending = g.Pending
			stats.Consumers = g.Consumers
			break
		}
	}

	return stats, nil
}

// LogQueueStats logs current queue statistics.
func (w *Worker) LogQueueStats(ctx context.Context) {
	stats, err := w.QueueStats(ctx)
	if err != nil {
		slog.Warn("worker queue stats error", "err", err)
		return
	}

	slog.Info("worker queue stats",
		"stream_length", stats.StreamLength,
		"pending", stats.Pending,
		"consumers", stats.Consumers,
	)
}
