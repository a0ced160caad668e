// Package streamer drives blocks from a Source through a BlockPipeline
// strictly in order, with in-flight bound 1, and advances the
// resumption watermark on success (spec.md §4.I).
package streamer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lux-labs/balance-indexer/internal/chain"
	"github.com/lux-labs/balance-indexer/internal/source"
)

// BlockRunner is the narrow surface Streamer needs from
// internal/pipeline.BlockPipeline.
type BlockRunner interface {
	Run(ctx context.Context, msg *chain.StreamerMessage) error
}

// WatermarkStore is the narrow surface Streamer needs from
// internal/storage.Store.
type WatermarkStore interface {
	AdvanceWatermark(ctx context.Context, height uint64, timestampNanosec uint64) error
}

// Logger is the minimal structured-logging surface Streamer needs;
// internal/telemetry provides an implementation over github.com/luxfi/log.
type Logger interface {
	Info(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
}

// Streamer pulls blocks from src and submits them to pipeline one at a
// time. Because BalanceCache is shared process-wide state, this
// single-block-in-flight bound is a correctness requirement, not merely
// a backpressure default (spec.md §4.I/§5): it guarantees the cache
// always reflects the most recently processed block before the next one
// begins.
type Streamer struct {
	src      source.Source
	pipeline BlockRunner
	store    WatermarkStore
	log      Logger

	blocksProcessed    prometheus.Counter
	blockProcessSeconds prometheus.Histogram
}

// New builds a Streamer over the given source, block pipeline, and
// watermark store.
func New(src source.Source, pipeline BlockRunner, store WatermarkStore, log Logger) *Streamer {
	return &Streamer{src: src, pipeline: pipeline, store: store, log: log}
}

// WithMetrics attaches optional Prometheus instrumentation; a Streamer
// built without calling this records no metrics.
func (s *Streamer) WithMetrics(blocksProcessed prometheus.Counter, blockProcessSeconds prometheus.Histogram) *Streamer {
	s.blocksProcessed = blocksProcessed
	s.blockProcessSeconds = blockProcessSeconds
	return s
}

// Run drives the stream until it ends (source.ErrEndOfStream) or ctx is
// cancelled, or a block fails — in which case the error is returned
// without advancing the watermark for that block (spec.md §7: "no
// partial block is persisted").
func (s *Streamer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := s.src.Next(ctx)
		if err != nil {
			if errors.Is(err, source.ErrEndOfStream) {
				s.log.Info("reached end of stream")
				return nil
			}
			return fmt.Errorf("streamer: fetch next block: %w", err)
		}

		height := msg.Header.Height
		start := time.Now()
		if err := s.pipeline.Run(ctx, msg); err != nil {
			return fmt.Errorf("streamer: block %d: %w", height, err)
		}

		if err := s.store.AdvanceWatermark(ctx, height, msg.Header.TimestampNanosec); err != nil {
			return fmt.Errorf("streamer: advance watermark to %d: %w", height, err)
		}

		if s.blocksProcessed != nil {
			s.blocksProcessed.Inc()
		}
		if s.blockProcessSeconds != nil {
			s.blockProcessSeconds.Observe(time.Since(start).Seconds())
		}

		s.log.Info("processed block", "height", height, "shards", len(msg.Shards))
	}
}

// ResumeHeight picks the height to start at: the CLI-provided override
// if set, otherwise watermark+1, or 0 when no watermark is stored, per
// spec.md §4.I/§8 scenario 6.
func ResumeHeight(cliOverride *uint64, watermark uint64, watermarkPresent bool) uint64 {
	if cliOverride != nil {
		return *cliOverride
	}
	if !watermarkPresent {
		return 0
	}
	return watermark + 1
}
