// Package platform describes the helpdesk host the change desk runs inside:
// named remote calls, installation parameters and user-facing notifications.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"goflare.io/changedesk/pkg/serialization"
)

// Named request templates understood by the host.
const (
	SearchUsers      = "searchUsers"
	SearchRequesters = "searchRequesters"
	SearchGroups     = "searchGroups"
	SearchServices   = "searchServices"
	SearchAssets     = "searchAssets"
	CreateChange     = "createChange"
	ValidateAuth     = "validateAuth"
	NotifyAdmins     = "notifyAdmins"
)

// Query is the paging query every search template accepts.
type Query struct {
	Query   string `json:"query"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Include string `json:"include,omitempty"`
}

// Request is the argument of a named call: either a query or a JSON body.
type Request struct {
	Query *Query
	Body  json.RawMessage
}

// Response is what a named call returns.
type Response struct {
	Status int
	Data   json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// Decode unmarshals Data into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := serialization.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Params are the installation parameters of the app.
type Params struct {
	Domain string `json:"freshservice_domain"`
	APIKey string `json:"api_key"`
}

// NotificationType is the severity of a notification.
type NotificationType string

const (
	Info    NotificationType = "info"
	Success NotificationType = "success"
	Warning NotificationType = "warning"
	Failure NotificationType = "error"
)

// Notification is a toast shown to the user.
type Notification struct {
	Type    NotificationType `json:"type"`
	Message string           `json:"message"`
}

// Confirmation is a modal dialog asking the user to approve an action.
type Confirmation struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	SaveLabel   string `json:"saveLabel"`
	CancelLabel string `json:"cancelLabel"`
}

// Requester issues named remote calls.
type Requester interface {
	Invoke(ctx context.Context, name string, req Request) (*Response, error)
}

// DataStore exposes installation parameters.
type DataStore interface {
	Params(ctx context.Context) (Params, error)
}

// Interface shows notifications and dialogs.
type Interface interface {
	Notify(ctx context.Context, n Notification) error
	Confirm(ctx context.Context, c Confirmation) (bool, error)
}

// Client is the full capability set handed to the desk.
type Client interface {
	Requester
	DataStore
	Interface
}

type composite struct {
	Requester
	DataStore
	Interface
}

// Compose assembles a Client from independent parts.
func Compose(r Requester, d DataStore, i Interface) Client {
	return composite{Requester: r, DataStore: d, Interface: i}
}
