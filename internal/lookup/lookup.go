// Package lookup runs calls to external metadata and search services under an
// explicit deadline and folds every failure into ErrUnavailable.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single external call.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable is returned when an external lookup times out or fails.
// Callers treat it as an empty result.
var ErrUnavailable = errors.New("lookup unavailable")

// Do runs fn with a context that expires after timeout. A non-positive
// timeout uses DefaultTimeout. Any error from fn is wrapped in ErrUnavailable;
// the parent context's cancellation is returned unwrapped so callers can stop.
func Do[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(callCtx)
	if err == nil {
		return v, nil
	}

	var zero T
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}
	return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
}
