package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/canopy-network/course-indexer/internal/backfill"
	"github.com/canopy-network/course-indexer/internal/config"
	"github.com/canopy-network/course-indexer/internal/db"
	"github.com/canopy-network/course-indexer/internal/indexer"
	"github.com/canopy-network/course-indexer/pkg/rpc"
	"go.uber.org/zap"
)

func main() {
	// Parse flags
	dryRun := flag.Bool("dry-run", false, "Only report lag, don't index")
	startBlock := flag.Uint64("start", 0, "Start block (default: cursor block)")
	endBlock := flag.Uint64("end", 0, "End block (default: current chain head)")
	batchSize := flag.Uint64("batch", 0, "Blocks per RPC request (default: 1000)")
	concurrency := flag.Int("concurrency", 0, "Batches fetched ahead (default: 4)")
	statsOnly := flag.Bool("stats", false, "Only show cursor vs chain head")
	file := flag.String("file", "", "Replay a JSON-lines event file (.zst for compressed) instead of RPC")
	export := flag.String("export", "", "Write the [start, end] range to a .zst event file instead of indexing")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load base configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)

	// Build backfill config
	backfillCfg := backfill.LoadConfig()

	// Override with flags if provided
	if *dryRun {
		backfillCfg.DryRun = true
	}
	if *startBlock > 0 {
		backfillCfg.StartBlock = *startBlock
	}
	if *endBlock > 0 {
		backfillCfg.EndBlock = *endBlock
	}
	if *batchSize > 0 {
		backfillCfg.BatchSize = *batchSize
	}
	if *concurrency > 0 {
		backfillCfg.Concurrency = *concurrency
	}
	if *file != "" {
		backfillCfg.File = *file
	}

	if backfillCfg.File == "" && cfg.SourceRPCURL == "" {
		slog.Error("SOURCE_RPC_URL is required unless replaying a file")
		os.Exit(1)
	}

	slog.Info("course-indexer backfill starting",
		"source", cfg.SourceRPCURL,
		"file", backfillCfg.File,
	)

	// Open the entity store
	store, closeStore, err := db.Connect(ctx, zap.NewNop(), cfg.PostgresURL, cfg.PostgresSchema, "backfill")
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	idx := indexer.New(store)

	var source backfill.Source
	if cfg.SourceRPCURL != "" {
		source = rpc.NewHTTPWithOpts(rpc.Opts{
			Endpoints: []string{cfg.SourceRPCURL},
			RPS:       cfg.RPCRPS,
			Burst:     cfg.RPCBurst,
		})
	}
	bf := backfill.New(source, idx, backfillCfg)

	if err := run(ctx, bf, backfillCfg, *statsOnly, *export); err != nil {
		slog.Error("backfill failed", "err", err, "fatal_event", indexer.IsFatal(err))
		os.Exit(1)
	}

	slog.Info("backfill complete")
}

func run(ctx context.Context, bf *backfill.Backfiller, cfg *backfill.Config, statsOnly bool, export string) error {
	switch {
	case statsOnly:
		stats, err := bf.CheckHealth(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Indexing Statistics:\n")
		fmt.Printf("  Chain Head:       %d\n", stats.HeadBlock)
		fmt.Printf("  Cursor Block:     %d\n", stats.CursorBlock)
		fmt.Printf("  Blocks Behind:    %d\n", stats.BlocksBehind)
		fmt.Printf("  Events Processed: %d\n", stats.EventsProcessed)
		if stats.LastEventID != "" {
			fmt.Printf("  Last Event:       %s\n", stats.LastEventID)
		}
		return nil

	case export != "":
		end := cfg.EndBlock
		if end == 0 {
			stats, err := bf.CheckHealth(ctx)
			if err != nil {
				return err
			}
			end = stats.HeadBlock
		}
		f, err := os.Create(export)
		if err != nil {
			return err
		}
		n, err := bf.Export(ctx, f, max(cfg.StartBlock, 1), end)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d events to %s\n", n, export)
		return nil

	case cfg.File != "":
		result, err := bf.ReplayFile(ctx, cfg.File)
		printResult(result)
		return err

	default:
		result, err := bf.Run(ctx)
		printResult(result)
		return err
	}
}

func printResult(result *backfill.Result) {
	if result == nil {
		return
	}
	fmt.Printf("\nBackfill Summary:\n")
	if result.EndBlock > 0 {
		fmt.Printf("  Blocks:         %d..%d\n", result.StartBlock, result.EndBlock)
	}
	fmt.Printf("  Events Seen:    %d\n", result.EventsSeen)
	fmt.Printf("  Events Applied: %d\n", result.EventsApplied)
	fmt.Printf("  Duration:       %s\n", result.Duration)
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
