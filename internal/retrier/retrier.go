package retrier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	minMaxAttempts = 1
	minBaseDelay   = time.Millisecond
	minFactor      = 1.0
)

var (
	// ErrInvalidMaxAttempts is returned when the max attempts parameter is invalid.
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")
	// ErrInvalidBaseDelay is returned when the base delay parameter is invalid.
	ErrInvalidBaseDelay = errors.New("base delay must be at least 1ms")
	// ErrInvalidFactor is returned when the factor parameter is invalid.
	ErrInvalidFactor = errors.New("factor must be at least 1.0")
)

// Classifier decides whether a failed attempt may be retried.
type Classifier func(error) bool

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Retrier executes a function with exponential backoff and no jitter.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	factor      float64
	classify    Classifier
	sleep       Sleeper
}

// NewRetrier creates a new Retrier instance.
// Parameters:
// - maxAttempts: total attempts including the first one.
// - baseDelay: wait before the second attempt.
// - maxDelay: ceiling for any single wait.
// - factor: multiplier applied to the wait after each failure.
// - classify: optional; nil retries every error.
func NewRetrier(maxAttempts int, baseDelay, maxDelay time.Duration, factor float64, classify Classifier) (*Retrier, error) {
	if maxAttempts < minMaxAttempts {
		return nil, ErrInvalidMaxAttempts
	}
	if baseDelay < minBaseDelay {
		return nil, ErrInvalidBaseDelay
	}
	if factor < minFactor {
		return nil, ErrInvalidFactor
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	if classify == nil {
		classify = Always
	}

	return &Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		factor:      factor,
		classify:    classify,
		sleep:       sleepContext,
	}, nil
}

// WithSleeper replaces the wait between attempts, mainly for tests.
func (r *Retrier) WithSleeper(s Sleeper) *Retrier {
	if s != nil {
		r.sleep = s
	}
	return r
}

// Run executes fn until it succeeds, fails with a non-retryable error, or the attempt budget is spent.
func (r *Retrier) Run(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !r.classify(err) {
			// Non-retryable error, do not retry
			return err
		}

		if attempt == r.maxAttempts-1 {
			break
		}

		if sleepErr := r.sleep(ctx, r.Delay(attempt)); sleepErr != nil {
			return sleepErr
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}

// Delay returns the wait after the given zero-based failed attempt.
func (r *Retrier) Delay(attempt int) time.Duration {
	delay := float64(r.baseDelay) * math.Pow(r.factor, float64(attempt))
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}
	return time.Duration(delay)
}

// MaxAttempts returns the total attempt budget.
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
