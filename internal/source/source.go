// Package source abstracts the ordered block-stream the indexer
// consumes (spec.md §6's "block-stream source"). The core pipeline only
// depends on the Source interface; S3Source and FakeSource are its two
// implementations.
package source

import (
	"context"
	"errors"

	"github.com/lux-labs/balance-indexer/internal/chain"
)

// ErrEndOfStream is returned by Next once there is no further block to
// deliver (the stream's natural end, not an error condition — the
// streamer exits with code 0 when it sees this).
var ErrEndOfStream = errors.New("source: end of stream")

// Source produces chain.StreamerMessage values in strictly increasing
// block-height order, starting at the height passed to whatever
// constructed it.
type Source interface {
	Next(ctx context.Context) (*chain.StreamerMessage, error)
}
