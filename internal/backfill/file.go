package backfill

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/canopy-network/course-indexer/internal/indexer"
	"github.com/klauspost/compress/zstd"
)

const maxLineSize = 4 << 20

// OpenEvents opens a JSON-lines event file, decompressing .zst files.
func OpenEvents(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &zstdFile{Decoder: dec, f: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	f *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

// Replay indexes every line of r in order and returns the number of events read.
// Blank lines are skipped.
func Replay(ctx context.Context, idx *indexer.Indexer, r io.Reader) (uint64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var n uint64
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := idx.IndexRaw(ctx, data); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("read events: %w", err)
	}
	return n, nil
}

// ReplayFile replays the configured event file.
func (b *Backfiller) ReplayFile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	r, err := OpenEvents(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	before, err := b.indexer.Store().Progress(ctx)
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	slog.Info("replaying event file", "path", path)
	seen, err := Replay(ctx, b.indexer, r)
	result := &Result{EventsSeen: seen, Duration: time.Since(start)}
	if err != nil {
		return result, err
	}

	after, err := b.indexer.Store().Progress(ctx)
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	result.EventsApplied = after.EventsProcessed - before.EventsProcessed
	result.Duration = time.Since(start)
	return result, nil
}

// Export writes the events of [from, to] as compressed JSON lines to w.
func (b *Backfiller) Export(ctx context.Context, w io.Writer, from, to uint64) (uint64, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("zstd writer: %w", err)
	}

	var n uint64
	for start := from; start <= to; start += b.config.BatchSize {
		end := min(start+b.config.BatchSize-1, to)
		events, err := b.source.EventsInRange(ctx, start, end)
		if err != nil {
			enc.Close()
			return n, fmt.Errorf("fetch blocks %d..%d: %w", start, end, err)
		}
		if err := writeLines(enc, events); err != nil {
			enc.Close()
			return n, err
		}
		n += uint64(len(events))
		if end == to {
			break
		}
	}
	return n, enc.Close()
}

func writeLines(w io.Writer, events []json.RawMessage) error {
	var buf bytes.Buffer
	for _, raw := range events {
		if err := json.Compact(&buf, raw); err != nil {
			return fmt.Errorf("compact event: %w", err)
		}
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}
