package limiter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"goflare.io/changedesk/internal/models"
)

// Guard rejects calls the Window refuses and races the rest against a timer.
type Guard struct {
	window  *Window
	timeout time.Duration
	logger  *zap.Logger
}

// NewGuard creates a new Guard instance.
func NewGuard(window *Window, timeout time.Duration, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		window:  window,
		timeout: timeout,
		logger:  logger,
	}
}

// Do runs op under the guard. See Run.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Run(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Run executes op unless the window is full, in which case it fails with
// models.ErrRateLimitExceeded before op starts. If the timer fires first the
// result is models.ErrRequestTimeout; op's context is cancelled and its late
// result is discarded.
func Run[T any](ctx context.Context, g *Guard, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !g.window.Allow() {
		g.logger.Warn("Rate limit exceeded", zap.Int("inWindow", g.window.Count()))
		return zero, models.ErrRateLimitExceeded
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := op(ctx)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		g.logger.Warn("Request timed out", zap.Duration("timeout", g.timeout))
		return zero, models.ErrRequestTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
