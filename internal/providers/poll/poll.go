// Package poll observes long-running generation jobs with a fixed interval and
// a fixed attempt ceiling.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the attempt ceiling is reached.
var ErrTimeout = errors.New("poll: job did not finish in time")

// Config sets the polling cadence.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// Ceiling is the wall-clock upper bound implied by the config.
func (c Config) Ceiling() time.Duration {
	return c.Interval * time.Duration(c.MaxAttempts)
}

// Check inspects the job once. done=true ends polling with the returned value.
type Check[T any] func(ctx context.Context) (value T, done bool, err error)

// Until calls check until it reports done, returns an error, or the attempt
// ceiling is reached.
func Until[T any](ctx context.Context, cfg Config, check Check[T]) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		value, done, err := check(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return value, nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("%w after %d attempts (%s)", ErrTimeout, cfg.MaxAttempts, cfg.Ceiling())
}
