// Package platformtest provides an in-memory platform client for tests.
package platformtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"goflare.io/changedesk/internal/platform"
)

// Handler answers one named call.
type Handler func(ctx context.Context, req platform.Request) (*platform.Response, error)

// Call records one Invoke.
type Call struct {
	Name    string
	Request platform.Request
}

// Client is a scriptable platform.Client.
type Client struct {
	mu            sync.Mutex
	handlers      map[string]Handler
	calls         []Call
	notifications []platform.Notification
	confirmations []platform.Confirmation

	Parameters  platform.Params
	ParamsErr   error
	ConfirmWith bool
	NotifyErr   error
}

// New returns a Client with valid parameters that confirms every dialog.
func New() *Client {
	return &Client{
		handlers:    make(map[string]Handler),
		Parameters:  platform.Params{Domain: "acme.freshservice.com", APIKey: "key"},
		ConfirmWith: true,
	}
}

// Handle registers h for name.
func (c *Client) Handle(name string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

// Reply registers a fixed JSON reply for name.
func (c *Client) Reply(name string, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	c.Handle(name, func(context.Context, platform.Request) (*platform.Response, error) {
		return &platform.Response{Status: status, Data: raw}, nil
	})
}

// Fail registers an error for name.
func (c *Client) Fail(name string, err error) {
	c.Handle(name, func(context.Context, platform.Request) (*platform.Response, error) {
		return nil, err
	})
}

func (c *Client) Invoke(ctx context.Context, name string, req platform.Request) (*platform.Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Name: name, Request: req})
	h, ok := c.handlers[name]
	c.mu.Unlock()

	if !ok {
		return &platform.Response{Status: http.StatusNotFound}, nil
	}
	return h(ctx, req)
}

func (c *Client) Params(context.Context) (platform.Params, error) {
	return c.Parameters, c.ParamsErr
}

func (c *Client) Notify(_ context.Context, n platform.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, n)
	return c.NotifyErr
}

func (c *Client) Confirm(_ context.Context, conf platform.Confirmation) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmations = append(c.confirmations, conf)
	return c.ConfirmWith, nil
}

// Calls returns the recorded calls, optionally only those named name.
func (c *Client) Calls(name ...string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if len(name) == 0 || call.Name == name[0] {
			out = append(out, call)
		}
	}
	return out
}

// Notifications returns every notification shown so far.
func (c *Client) Notifications() []platform.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]platform.Notification(nil), c.notifications...)
}

// Confirmations returns every dialog shown so far.
func (c *Client) Confirmations() []platform.Confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]platform.Confirmation(nil), c.confirmations...)
}

// Reset forgets recorded calls and notifications.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.notifications = nil
	c.confirmations = nil
}

// String is handy in assertion messages.
func (c *Client) String() string {
	return fmt.Sprintf("calls=%v notifications=%v", c.Calls(), c.Notifications())
}
