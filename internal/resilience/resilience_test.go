package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/changedesk/internal/limiter"
	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/platform"
	"goflare.io/changedesk/internal/platform/platformtest"
	"goflare.io/changedesk/internal/retrier"
)

func newGateway(t *testing.T, client platform.Requester, maxRequests int, settings gobreaker.Settings) *Gateway {
	t.Helper()
	r, err := retrier.NewRetrier(3, time.Millisecond, 2*time.Millisecond, 2, models.Retryable)
	require.NoError(t, err)
	guard := limiter.NewGuard(limiter.NewWindow(maxRequests, time.Minute, nil), time.Second, zap.NewNop())
	return NewGateway(client, guard, r, settings, zap.NewNop())
}

func TestInvokeReturnsSuccessfulResponse(t *testing.T) {
	client := platformtest.New()
	client.Reply(platform.SearchGroups, http.StatusOK, []map[string]any{{"id": 1, "name": "Ops"}})
	g := newGateway(t, client, 10, gobreaker.Settings{})

	resp, err := g.Invoke(context.Background(), platform.SearchGroups, platform.Request{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Len(t, client.Calls(), 1)
}

func TestInvokeConvertsStatusToAPIError(t *testing.T) {
	client := platformtest.New()
	client.Reply(platform.SearchGroups, http.StatusForbidden, map[string]string{"message": "denied"})
	g := newGateway(t, client, 10, gobreaker.Settings{})

	_, err := g.Invoke(context.Background(), platform.SearchGroups, platform.Request{})

	require.Error(t, err)
	assert.True(t, models.IsAuth(err))
	assert.Len(t, client.Calls(), 1, "403 is terminal")
}

func TestAPIErrorMessageSkipsEmptyBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"null", "null", ""},
		{"blank", "  \n", ""},
		{"empty", "", ""},
		{"object", `{"message":"denied"}`, `{"message":"denied"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := platformtest.New()
			client.Handle(platform.SearchGroups, func(context.Context, platform.Request) (*platform.Response, error) {
				return &platform.Response{Status: http.StatusNotFound, Data: []byte(tt.body)}, nil
			})
			g := newGateway(t, client, 10, gobreaker.Settings{})

			_, err := g.Invoke(context.Background(), platform.SearchGroups, platform.Request{})

			var apiErr *models.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
	assert.Equal(t, "api request failed with status 500", (&models.APIError{Status: 500, Message: bodyMessage([]byte("null"))}).Error())
}

func TestInvokeRetriesServerErrors(t *testing.T) {
	client := platformtest.New()
	client.Reply(platform.SearchGroups, http.StatusBadGateway, nil)
	g := newGateway(t, client, 10, gobreaker.Settings{})

	_, err := g.Invoke(context.Background(), platform.SearchGroups, platform.Request{})

	require.Error(t, err)
	status, ok := models.StatusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Len(t, client.Calls(), 3)
}

func TestInvokeOnceDoesNotRetry(t *testing.T) {
	client := platformtest.New()
	client.Reply(platform.CreateChange, http.StatusBadGateway, nil)
	g := newGateway(t, client, 10, gobreaker.Settings{})

	_, err := g.InvokeOnce(context.Background(), platform.CreateChange, platform.Request{})

	require.Error(t, err)
	assert.Len(t, client.Calls(), 1)
}

func TestInvokeRateLimitedBeforeCalling(t *testing.T) {
	client := platformtest.New()
	client.Reply(platform.SearchGroups, http.StatusOK, []string{})
	g := newGateway(t, client, 1, gobreaker.Settings{})

	_, err := g.Invoke(context.Background(), platform.SearchGroups, platform.Request{})
	require.NoError(t, err)
	_, err = g.Invoke(context.Background(), platform.SearchGroups, platform.Request{})

	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
	assert.Len(t, client.Calls(), 1)
}

func TestBreakerOpensOnRepeatedServerFailures(t *testing.T) {
	client := platformtest.New()
	client.Fail(platform.SearchAssets, errors.New("connection refused"))
	settings := gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
		Timeout: time.Hour,
	}
	g := newGateway(t, client, 100, settings)

	for i := 0; i < 2; i++ {
		_, err := g.Invoke(context.Background(), platform.SearchAssets, platform.Request{})
		require.Error(t, err)
	}
	calls := len(client.Calls())

	_, err := g.Invoke(context.Background(), platform.SearchAssets, platform.Request{})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, gobreaker.StateOpen, g.State())
	assert.Len(t, client.Calls(), calls, "open breaker must not reach the client")
}
