package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/canopy-network/course-indexer/internal/indexer"
	"github.com/canopy-network/course-indexer/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// Source serves historical events by block range. *rpc.HTTPClient implements it.
type Source interface {
	ChainHead(ctx context.Context) (rpc.Head, error)
	EventsInRange(ctx context.Context, from, to uint64) ([]json.RawMessage, error)
}

// Result contains the results of a backfill operation.
type Result struct {
	StartBlock    uint64
	EndBlock      uint64
	EventsSeen    uint64
	EventsApplied int64
	Duration      time.Duration
}

// Backfiller replays historical events through the indexer. Batches are fetched
// concurrently but always indexed in source order on the calling goroutine.
type Backfiller struct {
	source  Source
	indexer *indexer.Indexer
	config  *Config
}

// New creates a new Backfiller.
func New(source Source, idx *indexer.Indexer, cfg *Config) *Backfiller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultConfig().ProgressInterval
	}
	return &Backfiller{
		source:  source,
		indexer: idx,
		config:  cfg,
	}
}

type window struct {
	from, to uint64
}

// Run executes the backfill operation. A fatal indexing error stops it.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	stats, err := b.CheckHealth(ctx)
	if err != nil {
		return nil, err
	}

	startBlock := b.config.StartBlock
	if startBlock == 0 {
		// Events of the cursor block that were already applied are replays.
		startBlock = max(stats.CursorBlock, 1)
	}
	endBlock := b.config.EndBlock
	if endBlock == 0 {
		endBlock = stats.HeadBlock
	}
	result := &Result{StartBlock: startBlock, EndBlock: endBlock}

	slog.Info("starting backfill",
		"start_block", startBlock,
		"end_block", endBlock,
		"cursor_block", stats.CursorBlock,
		"batch_size", b.config.BatchSize,
		"concurrency", b.config.Concurrency,
		"dry_run", b.config.DryRun,
	)

	if b.config.DryRun || startBlock > endBlock {
		result.Duration = time.Since(start)
		return result, nil
	}

	var windows []window
	for from := startBlock; from <= endBlock; from += b.config.BatchSize {
		to := min(from+b.config.BatchSize-1, endBlock)
		windows = append(windows, window{from: from, to: to})
		if to == endBlock {
			break
		}
	}

	var seen atomic.Uint64
	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()
	go b.reportProgress(progressCtx, endBlock-startBlock+1, startBlock, &seen)

	before, err := b.indexer.Store().Progress(ctx)
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	for i := 0; i < len(windows); i += b.config.Concurrency {
		group := windows[i:min(i+b.config.Concurrency, len(windows))]
		batches, err := b.fetch(ctx, group)
		if err != nil {
			return result, err
		}
		for j, events := range batches {
			for _, raw := range events {
				if err := b.indexer.IndexRaw(ctx, raw); err != nil {
					return result, fmt.Errorf("blocks %d..%d: %w", group[j].from, group[j].to, err)
				}
				result.EventsSeen++
			}
			seen.Store(group[j].to - startBlock + 1)
		}
	}

	after, err := b.indexer.Store().Progress(ctx)
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	result.EventsApplied = after.EventsProcessed - before.EventsProcessed
	result.Duration = time.Since(start)

	slog.Info("backfill complete",
		"events_seen", result.EventsSeen,
		"events_applied", result.EventsApplied,
		"duration", result.Duration,
	)

	return result, nil
}

// fetch loads a group of windows concurrently, preserving their order.
func (b *Backfiller) fetch(ctx context.Context, group []window) ([][]json.RawMessage, error) {
	out := make([][]json.RawMessage, len(group))
	g, gCtx := errgroup.WithContext(ctx)
	for i, w := range group {
		g.Go(func() error {
			events, err := b.source.EventsInRange(gCtx, w.from, w.to)
			if err != nil {
				return fmt.Errorf("fetch blocks %d..%d: %w", w.from, w.to, err)
			}
			out[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// reportProgress logs progress at regular intervals.
func (b *Backfiller) reportProgress(ctx context.Context, total, startBlock uint64, done *atomic.Uint64) {
	ticker := time.NewTicker(b.config.ProgressInterval)
	defer ticker.Stop()

	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := done.Load()
			elapsed := time.Since(startTime)
			rate := float64(p) / elapsed.Seconds()

			var eta time.Duration
			if rate > 0 && p < total {
				eta = time.Duration(float64(total-p)/rate) * time.Second
			}

			slog.Info("backfill progress",
				"block", startBlock+p,
				"blocks_done", p,
				"blocks_total", total,
				"progress_pct", fmt.Sprintf("%.1f%%", float64(p)/float64(total)*100),
				"blocks_per_sec", fmt.Sprintf("%.1f", rate),
				"eta", eta.Round(time.Second),
			)
		}
	}
}
