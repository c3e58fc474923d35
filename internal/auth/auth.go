// Package auth checks the ticketing API credentials and runs the recovery
// sequence when they stop working.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/platform"
	"goflare.io/changedesk/internal/retrier"
	"goflare.io/changedesk/pkg/serialization"
)

// Caller issues a single named call without request-level retries.
type Caller interface {
	InvokeOnce(ctx context.Context, name string, req platform.Request) (*platform.Response, error)
}

// Invalidator drops cached entries.
type Invalidator interface {
	Invalidate(prefix ...string) bool
}

// ErrMissingConfig is wrapped by CheckParams.
var ErrMissingConfig = models.NewValidationError("missing API configuration")

// Report is sent to administrators after a terminal authentication failure.
type Report struct {
	IncidentID string    `json:"incident_id"`
	Type       string    `json:"type"`
	Error      string    `json:"error"`
	Status     int       `json:"status,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Validator checks credentials with a fixed number of attempts.
type Validator struct {
	caller   Caller
	params   platform.DataStore
	notifier *platform.Notifier
	cache    Invalidator
	retrier  *retrier.Retrier
	now      func() time.Time
	logger   *zap.Logger
}

// NewValidator creates a new Validator instance.
func NewValidator(
	caller Caller,
	params platform.DataStore,
	notifier *platform.Notifier,
	cache Invalidator,
	r *retrier.Retrier,
	logger *zap.Logger,
) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		caller:   caller,
		params:   params,
		notifier: notifier,
		cache:    cache,
		retrier:  r,
		now:      time.Now,
		logger:   logger,
	}
}

// Validate calls validateAuth until it answers 200 or the attempts run out,
// in which case the recovery sequence runs and false is returned.
func (v *Validator) Validate(ctx context.Context) bool {
	attempt := 0
	err := v.retrier.Run(ctx, func() error {
		attempt++
		resp, err := v.caller.InvokeOnce(ctx, platform.ValidateAuth, platform.Request{})
		if err != nil {
			v.logger.Warn("Auth validation attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		if resp.Status != http.StatusOK {
			return &models.APIError{Status: resp.Status, Message: "auth validation failed"}
		}
		return nil
	})
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	v.logger.Error("Authentication failed", zap.Int("attempts", attempt), zap.Error(err))
	v.Recover(ctx, err)
	return false
}

// Recover tells the user, tells the administrators and drops cached data.
// A failing step is logged and the remaining steps still run.
func (v *Validator) Recover(ctx context.Context, cause error) {
	v.notifier.Error(ctx, "Authentication failed: "+Reason(cause))

	if err := v.notifyAdmins(ctx, cause); err != nil {
		v.logger.Error("Failed to notify administrators", zap.Error(err))
	}

	if v.cache != nil && !v.cache.Invalidate() {
		v.logger.Warn("Failed to clear cache during auth recovery")
	}
}

func (v *Validator) notifyAdmins(ctx context.Context, cause error) error {
	report := Report{
		IncidentID: uuid.NewString(),
		Type:       "auth_failure",
		Error:      Reason(cause),
		Timestamp:  v.now().UTC(),
	}
	if status, ok := models.StatusOf(cause); ok {
		report.Status = status
	}

	body, err := serialization.Marshal(report)
	if err != nil {
		return err
	}
	resp, err := v.caller.InvokeOnce(ctx, platform.NotifyAdmins, platform.Request{Body: body})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &models.APIError{Status: resp.Status, Message: "admin notification rejected"}
	}
	v.logger.Info("Administrators notified", zap.String("incident_id", report.IncidentID))
	return nil
}

// CheckParams verifies the installation parameters are present.
func (v *Validator) CheckParams(ctx context.Context) (platform.Params, error) {
	params, err := v.params.Params(ctx)
	if err != nil {
		return platform.Params{}, fmt.Errorf("failed to read installation parameters: %w", err)
	}
	if params.Domain == "" || params.APIKey == "" {
		return platform.Params{}, ErrMissingConfig
	}
	return params, nil
}

// Reason turns an authentication error into the text shown after
// "Authentication failed: ".
func Reason(err error) string {
	if status, ok := models.StatusOf(err); ok {
		switch status {
		case http.StatusUnauthorized:
			return "Invalid API credentials. Please check your API key."
		case http.StatusForbidden:
			return "Access denied. Please check your API permissions."
		case http.StatusBadGateway:
			return "Unable to connect to Freshservice. Please check your internet connection and try again."
		}
	}
	if err == nil {
		return "Unknown error"
	}
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
