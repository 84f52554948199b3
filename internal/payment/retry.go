package payment

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
)

// Retry runs an operation up to Attempts times with a fixed Delay between attempts. Wrap an error
// with backoff.Permanent to stop retrying.
type Retry struct {
	Attempts int
	Delay    time.Duration
	// Notify sees every failed attempt that will be retried, with the wait before the next one.
	Notify backoff.Notify
}

func NewRetry() Retry {
	return Retry{
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
	}
}

// Do returns nil on the first successful attempt, otherwise the last error. When ctx ends while
// waiting, the last error is joined with the context error.
func (r Retry) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error

	operation := func() (struct{}, error) {
		last = fn(ctx)
		return struct{}{}, last
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.Delay)),
		backoff.WithMaxTries(uint(max(r.Attempts, 1))),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(r.Notify),
	)

	if ctxErr := ctx.Err(); err != nil && ctxErr != nil && errors.Is(err, ctxErr) && last != nil {
		return errors.Join(last, err)
	}

	return err
}
