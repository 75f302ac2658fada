package ingest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spider7r/trading-journal-sub002/aggregate"
	"github.com/spider7r/trading-journal-sub002/models"
	"github.com/spider7r/trading-journal-sub002/parser"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkWorkers = 4
)

// Writer is the slice of the cache store the pipeline needs.
type Writer interface {
	UpsertBatch(ctx context.Context, candles []models.Candle) (int, error)
}

// Summary reports what an import parsed and what actually landed in the
// cache. Written counts lower than parsed counts mean chunk failures;
// operators detect data loss here without the import crashing.
type Summary struct {
	NativeCount    int `json:"native_count"`
	DerivedCount   int `json:"derived_count"`
	NativeWritten  int `json:"native_written"`
	DerivedWritten int `json:"derived_written"`
}

// Pipeline drives one import: parse the source file at native resolution,
// resample to each derived interval, then upsert both series in chunks.
// Chunk writes run on a bounded worker pool; that is safe because every
// write is an idempotent upsert, so chunk order does not matter.
type Pipeline struct {
	writer           Writer
	log              *logrus.Logger
	chunkSize        int
	chunkWorkers     int
	derivedIntervals []string
}

type Option func(*Pipeline)

func WithChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

func WithChunkWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkWorkers = n
		}
	}
}

func WithDerivedIntervals(tags []string) Option {
	return func(p *Pipeline) {
		p.derivedIntervals = tags
	}
}

func NewPipeline(w Writer, log *logrus.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		writer:           w,
		log:              log,
		chunkSize:        DefaultChunkSize,
		chunkWorkers:     DefaultChunkWorkers,
		derivedIntervals: []string{"5m"},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ImportFile ingests one source file for one symbol. Failing to open or
// read the file is fatal; everything below that granularity (bad lines,
// failed chunks) is recovered locally and reflected only in the summary.
// Re-running the same import is always safe.
func (p *Pipeline) ImportFile(ctx context.Context, path, symbol string) (Summary, error) {
	start := time.Now()
	symbol = models.NormalizeSymbol(symbol)

	file, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open source file: %w", err)
	}
	defer file.Close()

	sc := parser.NewScanner(file, symbol)
	var native []models.Candle
	for sc.Scan() {
		native = append(native, sc.Candle())
	}
	if err := sc.Err(); err != nil {
		return Summary{}, fmt.Errorf("failed to read source file: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"symbol":  symbol,
		"file":    path,
		"parsed":  len(native),
		"skipped": sc.Skipped(),
	}).Info("parsed source file")

	var derived []models.Candle
	for _, tag := range p.derivedIntervals {
		interval, ok := models.NormalizeInterval(tag)
		if !ok {
			p.log.WithField("interval", tag).Warn("skipping unknown derived interval")
			continue
		}
		secs, err := models.IntervalSeconds(interval)
		if err != nil {
			continue
		}
		derived = append(derived, aggregate.Resample(native, secs, interval)...)
	}

	summary := Summary{
		NativeCount:  len(native),
		DerivedCount: len(derived),
	}

	summary.NativeWritten = p.writeChunks(ctx, native, "native")
	summary.DerivedWritten = p.writeChunks(ctx, derived, "derived")

	p.log.WithFields(logrus.Fields{
		"symbol":          symbol,
		"native_count":    summary.NativeCount,
		"native_written":  summary.NativeWritten,
		"derived_count":   summary.DerivedCount,
		"derived_written": summary.DerivedWritten,
		"took":            time.Since(start).Round(time.Millisecond),
	}).Info("import finished")

	return summary, nil
}

// writeChunks upserts candles in bounded-size chunks through a worker
// pool. A failed chunk is logged with its offset and skipped; remaining
// chunks still run.
func (p *Pipeline) writeChunks(ctx context.Context, candles []models.Candle, phase string) int {
	if len(candles) == 0 {
		return 0
	}

	semaphore := make(chan struct{}, p.chunkWorkers)
	var wg sync.WaitGroup
	var written int64

	for offset := 0; offset < len(candles); offset += p.chunkSize {
		end := offset + p.chunkSize
		if end > len(candles) {
			end = len(candles)
		}

		wg.Add(1)
		go func(offset int, chunk []models.Candle) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			n, err := p.writer.UpsertBatch(ctx, chunk)
			if err != nil {
				p.log.WithError(err).WithFields(logrus.Fields{
					"phase":  phase,
					"offset": offset,
					"size":   len(chunk),
				}).Warn("chunk write failed")
				return
			}
			atomic.AddInt64(&written, int64(n))
		}(offset, candles[offset:end])
	}

	wg.Wait()
	return int(atomic.LoadInt64(&written))
}
