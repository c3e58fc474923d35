package retrier

import (
	"time"

	"goflare.io/changedesk/internal/config"
	"goflare.io/changedesk/internal/models"
)

// Always retries every error.
func Always(error) bool { return true }

// ForRequests builds the policy used for outbound API calls: maxRetries
// retries after the first attempt, terminal on client errors.
func ForRequests(cfg config.ResilienceConfig) (*Retrier, error) {
	return NewRetrier(cfg.MaxRetries+1, cfg.InitialDelay, cfg.MaxDelay, cfg.Multiplier, models.Retryable)
}

// ForAuth builds the policy used to validate credentials: waits of 2^n base
// units between attempts, every failure retried.
func ForAuth(cfg config.AuthConfig) (*Retrier, error) {
	maxDelay := cfg.BaseDelay * time.Duration(1<<uint(max(cfg.MaxAttempts, 1)))
	return NewRetrier(cfg.MaxAttempts, cfg.BaseDelay, maxDelay, 2, Always)
}
