package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ryabink/chatline/internal/store"
)

const retryDelay = 100 * time.Millisecond

// withReadRetry retries an idempotent read once after a transient driver
// failure. Writes are never retried here: the single store mutation is the
// unit of atomicity and must not be replayed.
func withReadRetry[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	v, err := op(ctx)
	if err == nil || !isTransient(err) {
		return v, err
	}

	select {
	case <-ctx.Done():
		return v, ctx.Err()
	case <-time.After(retryDelay):
	}

	v, err = op(ctx)
	return v, wrapTransient(err)
}

// wrapTransient tags a transient driver error so callers can surface it as
// service-unavailable instead of an internal failure.
func wrapTransient(err error) error {
	if err != nil && isTransient(err) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("RetryableWriteError") || se.HasErrorLabel("TransientTransactionError")
	}
	return false
}
