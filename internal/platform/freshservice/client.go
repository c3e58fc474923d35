// Package freshservice implements the named ticketing calls against the
// Freshservice v2 REST API.
package freshservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"goflare.io/changedesk/internal/platform"
	"goflare.io/changedesk/pkg/serialization"
)

// APIVersion is sent with every request.
const APIVersion = "2.0"

var (
	// ErrUnknownTemplate is returned for a call name with no endpoint.
	ErrUnknownTemplate = errors.New("unknown request template")
	// ErrNoAdminEndpoint is returned by notifyAdmins when no webhook is configured.
	ErrNoAdminEndpoint = errors.New("admin notification endpoint not configured")
)

type endpoint struct {
	method   string
	path     string
	envelope string
}

var endpoints = map[string]endpoint{
	platform.SearchUsers:      {http.MethodGet, "/api/v2/agents", "agents"},
	platform.SearchRequesters: {http.MethodGet, "/api/v2/requesters", "requesters"},
	platform.SearchGroups:     {http.MethodGet, "/api/v2/groups", "groups"},
	platform.SearchServices:   {http.MethodGet, "/api/v2/service_catalog/items", "service_items"},
	platform.SearchAssets:     {http.MethodGet, "/api/v2/assets", "assets"},
	platform.CreateChange:     {http.MethodPost, "/api/v2/changes", "change"},
	platform.ValidateAuth:     {http.MethodGet, "/api/v2/agents/me", "agent"},
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAdminWebhook sets where notifyAdmins posts its report.
func WithAdminWebhook(u string) Option {
	return func(c *Client) { c.adminWebhook = u }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is a platform.Requester and platform.DataStore backed by Freshservice.
type Client struct {
	params       platform.Params
	baseURL      string
	adminWebhook string
	http         *http.Client
	logger       *zap.Logger
}

// New creates a new Client instance. A domain without a scheme is reached over https.
func New(params platform.Params, opts ...Option) *Client {
	c := &Client{
		params:  params,
		baseURL: baseURL(params.Domain),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func baseURL(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if domain == "" || strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}

// Params returns the installation parameters the client was built with.
func (c *Client) Params(context.Context) (platform.Params, error) {
	return c.params, nil
}

// Invoke performs the named call. Any HTTP status is returned as a Response;
// only transport failures are errors. Successful list and record responses
// are unwrapped from their envelope.
func (c *Client) Invoke(ctx context.Context, name string, req platform.Request) (*platform.Response, error) {
	if name == platform.NotifyAdmins {
		return c.notifyAdmins(ctx, req)
	}
	ep, ok := endpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	if c.baseURL == "" {
		return nil, errors.New("freshservice domain not configured")
	}

	target := c.baseURL + ep.path
	if q := encodeQuery(req.Query); q != "" {
		target += "?" + q
	}

	resp, err := c.do(ctx, ep.method, target, req.Body, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if resp.OK() && ep.envelope != "" {
		resp.Data = unwrap(resp.Data, ep.envelope)
	}
	c.logger.Debug("Freshservice call finished", zap.String("template", name), zap.Int("status", resp.Status))
	return resp, nil
}

func (c *Client) notifyAdmins(ctx context.Context, req platform.Request) (*platform.Response, error) {
	if c.adminWebhook == "" {
		return nil, ErrNoAdminEndpoint
	}
	return c.do(ctx, http.MethodPost, c.adminWebhook, req.Body, false)
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, authenticate bool) (*platform.Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if authenticate {
		httpReq.SetBasicAuth(c.params.APIKey, "X")
		httpReq.Header.Set("X-Freshservice-API-Version", APIVersion)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &platform.Response{Status: httpResp.StatusCode, Data: data}, nil
}

func encodeQuery(q *platform.Query) string {
	if q == nil {
		return ""
	}
	values := url.Values{}
	if q.Query != "" {
		values.Set("query", strconv.Quote(q.Query))
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Include != "" {
		values.Set("include", q.Include)
	}
	return values.Encode()
}

// unwrap returns the value under key when data is an object carrying it.
func unwrap(data json.RawMessage, key string) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := serialization.Unmarshal(data, &envelope); err != nil {
		return data
	}
	if inner, ok := envelope[key]; ok {
		return inner
	}
	return data
}
