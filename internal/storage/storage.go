// Package storage is the Postgres persistence backend: batch_insert for
// derived rows and watermark read/write (spec.md §6).
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lux-labs/balance-indexer/internal/derive"
	"github.com/lux-labs/balance-indexer/internal/retrydo"
)

// DefaultInsertChunkSize is the default number of rows per INSERT
// statement, per spec.md §4.H.
const DefaultInsertChunkSize = 100

const rowColumnCount = 13

// Store wraps a Postgres connection pool with the two operations the
// core pipeline needs: BatchInsert and the watermark accessors.
type Store struct {
	pool            *pgxpool.Pool
	insertChunkSize int

	rowsInserted prometheus.Counter
}

// WithMetrics attaches a counter incremented by BatchInsert with the
// number of rows persisted. May be nil to leave it unwired.
func (s *Store) WithMetrics(rowsInserted prometheus.Counter) *Store {
	s.rowsInserted = rowsInserted
	return s
}

// New builds a Store over an already-connected pool. chunkSize <= 0
// falls back to DefaultInsertChunkSize.
func New(pool *pgxpool.Pool, chunkSize int) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultInsertChunkSize
	}
	return &Store{pool: pool, insertChunkSize: chunkSize}
}

// Connect opens a pgx pool against databaseURL (a standard
// postgres://... DSN, e.g. from the DATABASE_URL env var).
func Connect(ctx context.Context, databaseURL string, chunkSize int) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}
	return New(pool, chunkSize), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// BatchInsert persists rows in chunks of s.insertChunkSize, each chunk as
// one multi-row INSERT, retried with the shared exponential backoff
// policy. A chunk that still fails after the retry budget is fatal
// (spec.md §4.H/§7).
func (s *Store) BatchInsert(ctx context.Context, rows []derive.Row) error {
	for start := 0; start < len(rows); start += s.insertChunkSize {
		end := start + s.insertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		if err := retrydo.Do(ctx, func(ctx context.Context) error {
			return s.insertChunk(ctx, chunk)
		}); err != nil {
			return fmt.Errorf("storage: batch insert rows [%d:%d]: %w", start, end, err)
		}
		if s.rowsInserted != nil {
			s.rowsInserted.Add(float64(len(chunk)))
		}
	}
	return nil
}

func (s *Store) insertChunk(ctx context.Context, rows []derive.Row) error {
	query, args := buildInsertQuery(rows)
	_, err := s.pool.Exec(ctx, query, args...)
	return err
}

// buildInsertQuery renders `INSERT INTO balance_changes (...) VALUES
// ($1, $2, ...), ($N, $N+1, ...)`, mirroring the original indexer's
// create_placeholder-generated multi-VALUES statement.
func buildInsertQuery(rows []derive.Row) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO balance_changes (
		block_timestamp, receipt_id, transaction_hash, affected_account_id,
		involved_account_id, direction, cause, delta_liquid_amount,
		delta_locked_amount, absolute_liquid_amount, absolute_locked_amount,
		shard_id, index_in_chunk
	) VALUES `)

	args := make([]interface{}, 0, len(rows)*rowColumnCount)
	placeholder := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 0; c < rowColumnCount; c++ {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", placeholder)
			placeholder++
		}
		sb.WriteString(")")

		args = append(args,
			row.BlockTimestamp,
			nullableString(row.ReceiptID),
			nullableString(row.TransactionHash),
			row.AffectedAccountID,
			nullableString(row.InvolvedAccountID),
			string(row.Direction),
			string(row.Cause),
			row.DeltaLiquid.String(),
			row.DeltaLocked.String(),
			row.AbsoluteLiquid.String(),
			row.AbsoluteLocked.String(),
			row.ShardID,
			row.IndexInChunk,
		)
	}
	return sb.String(), args
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Watermark returns the greatest block height whose rows have been
// persisted, and false if the blocks table is empty (a fresh start).
func (s *Store) Watermark(ctx context.Context) (uint64, bool, error) {
	var height uint64
	err := retrydo.Do(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `SELECT block_height FROM blocks ORDER BY block_timestamp DESC LIMIT 1`)
		scanErr := row.Scan(&height)
		if scanErr != nil && isNoRows(scanErr) {
			return nil
		}
		return scanErr
	})
	if err != nil {
		return 0, false, fmt.Errorf("storage: watermark: %w", err)
	}
	if height == 0 {
		return 0, false, nil
	}
	return height, true, nil
}

// AdvanceWatermark records height as the most recently fully-persisted
// block, called only after BatchInsert for that block has succeeded
// (spec.md §4.I: "on completion advance resumption watermark").
func (s *Store) AdvanceWatermark(ctx context.Context, height uint64, timestampNanosec uint64) error {
	return retrydo.Do(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO blocks (block_height, block_timestamp)
			VALUES ($1, $2)
			ON CONFLICT (block_height) DO UPDATE SET block_timestamp = EXCLUDED.block_timestamp
		`, height, time.Unix(0, int64(timestampNanosec)))
		return err
	})
}
