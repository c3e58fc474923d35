package freshservice

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goflare.io/changedesk/internal/platform"
)

type recorded struct {
	method  string
	path    string
	query   string
	user    string
	pass    string
	version string
	body    string
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var got []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		got = append(got, recorded{
			method:  r.Method,
			path:    r.URL.Path,
			query:   r.URL.RawQuery,
			user:    user,
			pass:    pass,
			version: r.Header.Get("X-Freshservice-API-Version"),
			body:    string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestSearchUnwrapsEnvelope(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"agents":[{"id":1,"first_name":"Ada"}]}`)
	c := New(platform.Params{Domain: srv.URL, APIKey: "secret"})

	resp, err := c.Invoke(context.Background(), platform.SearchUsers, platform.Request{
		Query: &platform.Query{Page: 1, PerPage: 100},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `[{"id":1,"first_name":"Ada"}]`, string(resp.Data))
	require.Len(t, *got, 1)
	call := (*got)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/api/v2/agents", call.path)
	assert.Equal(t, "page=1&per_page=100", call.query)
	assert.Equal(t, "secret", call.user)
	assert.Equal(t, "X", call.pass)
	assert.Equal(t, "2.0", call.version)
}

func TestQueryIsQuoted(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"groups":[]}`)
	c := New(platform.Params{Domain: srv.URL, APIKey: "k"})

	_, err := c.Invoke(context.Background(), platform.SearchGroups, platform.Request{
		Query: &platform.Query{Query: "name:'ops'", Page: 2},
	})

	require.NoError(t, err)
	assert.Equal(t, "page=2&query=%22name%3A%27ops%27%22", (*got)[0].query)
}

func TestCreateChangePostsBody(t *testing.T) {
	srv, got := newServer(t, http.StatusCreated, `{"change":{"id":77}}`)
	c := New(platform.Params{Domain: srv.URL, APIKey: "k"})

	resp, err := c.Invoke(context.Background(), platform.CreateChange, platform.Request{Body: []byte(`{"change":{}}`)})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"id":77}`, string(resp.Data))
	assert.Equal(t, http.MethodPost, (*got)[0].method)
	assert.Equal(t, "/api/v2/changes", (*got)[0].path)
	assert.Equal(t, `{"change":{}}`, (*got)[0].body)
}

func TestErrorStatusIsReturnedAsResponse(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"code":"access_denied"}`)
	c := New(platform.Params{Domain: srv.URL, APIKey: "bad"})

	resp, err := c.Invoke(context.Background(), platform.ValidateAuth, platform.Request{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.JSONEq(t, `{"code":"access_denied"}`, string(resp.Data))
}

func TestNotifyAdminsUsesWebhook(t *testing.T) {
	srv, got := newServer(t, http.StatusAccepted, ``)
	c := New(platform.Params{Domain: "acme.freshservice.com", APIKey: "k"}, WithAdminWebhook(srv.URL+"/hooks/admins"))

	resp, err := c.Invoke(context.Background(), platform.NotifyAdmins, platform.Request{Body: []byte(`{"incident_id":"x"}`)})

	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "/hooks/admins", (*got)[0].path)
	assert.Empty(t, (*got)[0].user, "api key is not sent to the webhook")

	_, err = New(platform.Params{Domain: "acme"}).Invoke(context.Background(), platform.NotifyAdmins, platform.Request{})
	assert.ErrorIs(t, err, ErrNoAdminEndpoint)
}

func TestUnknownTemplate(t *testing.T) {
	c := New(platform.Params{Domain: "acme.freshservice.com"})

	_, err := c.Invoke(context.Background(), "deleteEverything", platform.Request{})

	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://acme.freshservice.com", baseURL(" acme.freshservice.com/ "))
	assert.Equal(t, "http://localhost:8080", baseURL("http://localhost:8080"))
	assert.Equal(t, "", baseURL(""))
}

func TestParams(t *testing.T) {
	params := platform.Params{Domain: "acme", APIKey: "k"}

	got, err := New(params).Params(context.Background())

	require.NoError(t, err)
	assert.Equal(t, params, got)
}
