package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canopy-network/course-indexer/internal/api"
	"github.com/canopy-network/course-indexer/internal/api/handler"
	"github.com/canopy-network/course-indexer/internal/backfill"
	"github.com/canopy-network/course-indexer/internal/config"
	"github.com/canopy-network/course-indexer/internal/db"
	"github.com/canopy-network/course-indexer/internal/indexer"
	"github.com/canopy-network/course-indexer/internal/listener"
	"github.com/canopy-network/course-indexer/internal/publisher"
	"github.com/canopy-network/course-indexer/internal/worker"
	"github.com/canopy-network/course-indexer/pkg/rpc"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const queueStatsInterval = time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)
	zlog, err := newZapLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to create logger", "err", err)
		os.Exit(1)
	}
	defer func() { _ = zlog.Sync() }()

	slog.Info("starting course-indexer",
		"worker_enabled", cfg.WorkerEnabled,
		"ws_enabled", cfg.WSEnabled,
		"direct_mode", cfg.DirectMode(),
		"http_enabled", cfg.HTTPEnabled,
	)

	// Open the entity store
	store, closeStore, err := db.Connect(ctx, zlog, cfg.PostgresURL, cfg.PostgresSchema, "indexer")
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	idx := indexer.New(store)

	// Connect to Redis
	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("failed to parse redis url", "err", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()
	}

	// Run all components
	g, ctx := errgroup.WithContext(ctx)

	var wrk *worker.Worker
	if cfg.WorkerEnabled {
		wrk, err = worker.New(worker.Config{
			RedisClient:   redisClient,
			Indexer:       idx,
			Topic:         cfg.EventsTopic,
			ConsumerGroup: cfg.ConsumerGroup,
		})
		if err != nil {
			slog.Error("failed to create worker", "err", err)
			os.Exit(1)
		}
		defer wrk.Close()

		g.Go(func() error {
			slog.Info("starting worker", "topic", cfg.EventsTopic, "group", cfg.ConsumerGroup)
			return wrk.Run(ctx)
		})
		g.Go(func() error {
			return logQueueStats(ctx, wrk)
		})
	}

	if cfg.WSEnabled {
		onEvent, err := eventSink(cfg, idx, redisClient)
		if err != nil {
			slog.Error("failed to create publisher", "err", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return runListener(ctx, cfg, onEvent)
		})
	}

	if cfg.HTTPEnabled {
		var queue handler.QueueInspector
		if wrk != nil {
			queue = wrk
		}
		srv := api.NewServer(store, queue, zlog, api.Config{
			Addr:       cfg.HTTPAddr,
			AdminToken: cfg.AdminToken,
			MaxFirst:   cfg.QueryMaxFirst,
		})
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	// Optional: periodic lag check against the event source
	if cfg.SourceRPCURL != "" && cfg.BackfillCheckInterval > 0 {
		rpcClient := rpc.NewHTTPWithOpts(rpc.Opts{
			Endpoints: []string{cfg.SourceRPCURL},
			RPS:       cfg.RPCRPS,
			Burst:     cfg.RPCBurst,
		})
		bf := backfill.New(rpcClient, idx, nil)
		g.Go(func() error {
			return runPeriodicHealthCheck(ctx, bf, cfg.BackfillCheckInterval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("indexer error", "err", err, "fatal_event", indexer.IsFatal(err))
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// newZapLogger builds the API logger at the same level as slog.
func newZapLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	return zcfg.Build()
}

// eventSink publishes listener frames to the stream, or indexes them in
// place when no stream is configured.
func eventSink(cfg *config.Config, idx *indexer.Indexer, redisClient redis.UniversalClient) (listener.EventHandler, error) {
	if cfg.DirectMode() {
		return idx.IndexRaw, nil
	}
	pub, err := publisher.New(redisClient, cfg.EventsTopic)
	if err != nil {
		return nil, err
	}
	return pub.PublishEvent, nil
}

// runListener runs the websocket listener. In direct mode a fatal indexing
// error stops it and is returned.
func runListener(ctx context.Context, cfg *config.Config, onEvent listener.EventHandler) error {
	ctx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	lst := listener.New(listener.Config{
		URL:            cfg.WSURL,
		MaxRetries:     cfg.WSMaxRetries,
		ReconnectDelay: cfg.WSReconnectDelay,
	}, func(ctx context.Context, data []byte) error {
		err := onEvent(ctx, data)
		if err != nil && indexer.IsFatal(err) {
			stop(err)
		}
		return err
	})

	slog.Info("starting websocket listener", "url", cfg.WSURL)
	err := lst.Run(ctx)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

// logQueueStats periodically logs the stream backlog.
func logQueueStats(ctx context.Context, wrk *worker.Worker) error {
	ticker := time.NewTicker(queueStatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			wrk.LogQueueStats(ctx)
		}
	}
}

// runPeriodicHealthCheck periodically reports how far the store lags behind the source.
func runPeriodicHealthCheck(ctx context.Context, bf *backfill.Backfiller, interval time.Duration) error {
	slog.Info("starting periodic lag check", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := bf.CheckHealth(ctx)
			if err != nil {
				slog.Warn("lag check failed", "err", err)
				continue
			}

			if stats.BlocksBehind > 0 {
				slog.Warn("store behind event source",
					"head_block", stats.HeadBlock,
					"cursor_block", stats.CursorBlock,
					"blocks_behind", stats.BlocksBehind,
				)
			} else {
				slog.Debug("lag check passed", "head_block", stats.HeadBlock)
			}
		}
	}
}
