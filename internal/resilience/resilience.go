// Package resilience wraps every outbound ticketing call in rate limiting,
// a timeout, a circuit breaker and retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"goflare.io/changedesk/internal/limiter"
	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/platform"
	"goflare.io/changedesk/internal/retrier"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("ticketing API temporarily unavailable")

// Gateway manages circuit breakers and retry mechanisms for a platform.Requester.
type Gateway struct {
	client  platform.Requester
	guard   *limiter.Guard
	retrier *retrier.Retrier
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewGateway creates a new Gateway instance.
func NewGateway(
	client platform.Requester,
	guard *limiter.Guard,
	r *retrier.Retrier,
	settings gobreaker.Settings,
	logger *zap.Logger,
) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		client:  client,
		guard:   guard,
		retrier: r,
		breaker: gobreaker.NewCircuitBreaker(settings),
		tracer:  otel.Tracer("changedesk/gateway"),
		logger:  logger,
	}
}

// Invoke issues the named call with retries. Non-2xx responses come back as *models.APIError.
func (g *Gateway) Invoke(ctx context.Context, name string, req platform.Request) (*platform.Response, error) {
	return g.invoke(ctx, name, req, true)
}

// InvokeOnce issues a call that must not be repeated, such as creating a record.
func (g *Gateway) InvokeOnce(ctx context.Context, name string, req platform.Request) (*platform.Response, error) {
	return g.invoke(ctx, name, req, false)
}

func (g *Gateway) invoke(ctx context.Context, name string, req platform.Request, retry bool) (*platform.Response, error) {
	ctx, span := g.tracer.Start(ctx, "Gateway.Invoke", trace.WithAttributes(
		attribute.String("template", name),
		attribute.Bool("retry", retry),
	))
	defer span.End()

	resp, err := limiter.Run(ctx, g.guard, func(ctx context.Context) (*platform.Response, error) {
		return g.executeWithResilience(ctx, name, req, retry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn("Outbound call failed", zap.String("template", name), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("status", resp.Status))
	return resp, nil
}

func (g *Gateway) executeWithResilience(ctx context.Context, name string, req platform.Request, retry bool) (*platform.Response, error) {
	var resp *platform.Response
	attempt := func() error {
		var callErr error
		resp, callErr = g.call(ctx, name, req)
		return callErr
	}

	_, err := g.breaker.Execute(func() (any, error) {
		if !retry {
			return nil, attempt()
		}
		return nil, g.retrier.Run(ctx, attempt)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *Gateway) call(ctx context.Context, name string, req platform.Request) (*platform.Response, error) {
	resp, err := g.client.Invoke(ctx, name, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("invalid response from %s", name)
	}
	if !resp.OK() {
		return nil, &models.APIError{Status: resp.Status, Message: bodyMessage(resp.Data)}
	}
	return resp, nil
}

// bodyMessage keeps an error body for diagnostics unless it says nothing.
func bodyMessage(data []byte) string {
	msg := strings.TrimSpace(string(data))
	if msg == "null" {
		return ""
	}
	return msg
}

// State reports the breaker state, for diagnostics.
func (g *Gateway) State() gobreaker.State {
	return g.breaker.State()
}
