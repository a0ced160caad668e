// Package retrydo is the shared exponential-backoff retry policy used
// for transient I/O (DB inserts, watermark queries) per spec.md §4.H
// and §7: initial 100ms, doubling, capped at 120s, up to 10 attempts,
// final failure is fatal.
package retrydo

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	initialInterval = 100 * time.Millisecond
	maxInterval     = 120 * time.Second
	maxAttempts     = 10
	multiplier      = 2.0
)

// Do runs op, retrying on error with the shared exponential backoff
// policy. It returns the final error, wrapped with the attempt count,
// once maxAttempts is exhausted.
func Do(ctx context.Context, op func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.MaxInterval = maxInterval
	policy.Multiplier = multiplier

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op(ctx)
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(maxAttempts))
	if err != nil {
		return fmt.Errorf("retrydo: exhausted %d attempts: %w", maxAttempts, err)
	}
	return nil
}
