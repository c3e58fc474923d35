package changedesk

import (
	"goflare.io/changedesk/internal/auth"
	"goflare.io/changedesk/internal/change"
	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/resilience"
	"goflare.io/changedesk/internal/search"
)

var (
	ErrRateLimitExceeded = models.ErrRateLimitExceeded
	ErrRequestTimeout    = models.ErrRequestTimeout
	ErrStaleResult       = models.ErrStaleResult
	ErrAuthFailed        = search.ErrAuthFailed
	ErrMissingConfig     = auth.ErrMissingConfig
	ErrCircuitOpen       = resilience.ErrCircuitOpen
	ErrNotAssessed       = change.ErrNotAssessed
	ErrMissingRequester  = change.ErrMissingRequester
	ErrMissingDepartment = change.ErrMissingDepartment
)

// APIError and ValidationError are the typed failures callers may inspect with errors.As.
type (
	APIError        = models.APIError
	ValidationError = models.ValidationError
)
