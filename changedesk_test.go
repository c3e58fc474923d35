package changedesk_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/changedesk"
	"goflare.io/changedesk/internal/change"
	"goflare.io/changedesk/internal/platform"
	"goflare.io/changedesk/internal/platform/platformtest"
	"goflare.io/changedesk/internal/risk"
	"goflare.io/changedesk/internal/search"
	"goflare.io/changedesk/internal/settings"
)

func newDesk(t *testing.T) (*changedesk.Desk, *platformtest.Client) {
	t.Helper()
	client := platformtest.New()
	desk, err := changedesk.New(client,
		changedesk.WithLogger(zap.NewNop()),
		changedesk.WithRetry(0, time.Millisecond, time.Millisecond),
		changedesk.WithAuthRetry(1, time.Millisecond),
	)
	require.NoError(t, err)
	return desk, client
}

func replyBulk(client *platformtest.Client) {
	client.Reply(platform.ValidateAuth, http.StatusOK, map[string]any{"id": 1})
	client.Reply(platform.SearchUsers, http.StatusOK, []map[string]any{
		{"id": 1, "first_name": "Ada", "last_name": "Lovelace", "email": "ada@acme.test"},
	})
	client.Reply(platform.SearchRequesters, http.StatusOK, []map[string]any{})
	client.Reply(platform.SearchGroups, http.StatusOK, []map[string]any{{"id": 7, "name": "Network"}})
	client.Reply(platform.SearchServices, http.StatusOK, []map[string]any{})
	client.Reply(platform.SearchAssets, http.StatusOK, []map[string]any{{"id": 20, "name": "Core Switch"}})
}

func TestNewRequiresClient(t *testing.T) {
	_, err := changedesk.New(nil)
	assert.Error(t, err)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := changedesk.New(platformtest.New(), changedesk.WithLogger(zap.NewNop()), changedesk.WithCacheMaxSize(0))
	assert.Error(t, err)
}

func TestStartLoadsSearchData(t *testing.T) {
	desk, client := newDesk(t)
	replyBulk(client)

	require.NoError(t, desk.Start(context.Background()))

	assert.Equal(t, 4, desk.CacheStats().Size)
	assert.Contains(t, client.Notifications(), platform.Notification{
		Type: platform.Success, Message: "Search data loaded successfully",
	})

	results, err := desk.Search(context.Background(), search.KindPeople, "ada")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Ada Lovelace", results[0].Name)
}

func TestStartFailsOnRejectedCredentials(t *testing.T) {
	desk, client := newDesk(t)
	client.Reply(platform.ValidateAuth, http.StatusUnauthorized, nil)

	err := desk.Start(context.Background())

	assert.ErrorIs(t, err, changedesk.ErrAuthFailed)
	assert.Equal(t, 0, desk.CacheStats().Size)
	require.NotEmpty(t, client.Notifications())
	assert.Equal(t, platform.Failure, client.Notifications()[0].Type)
}

func TestStartFailureNotifiesOnce(t *testing.T) {
	desk, client := newDesk(t)
	replyBulk(client)
	client.Reply(platform.SearchAssets, http.StatusInternalServerError, nil)

	err := desk.Start(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, changedesk.ErrAuthFailed)
	assert.Equal(t, []platform.Notification{{
		Type:    platform.Failure,
		Message: "Server error. Please try again later.",
	}}, client.Notifications())
}

func TestStartWithRejectedCredentialsNotifiesOnce(t *testing.T) {
	desk, client := newDesk(t)
	client.Reply(platform.ValidateAuth, http.StatusUnauthorized, nil)

	require.ErrorIs(t, desk.Start(context.Background()), changedesk.ErrAuthFailed)

	failures := 0
	for _, n := range client.Notifications() {
		if n.Type == platform.Failure {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestSupersededSearchIsStale(t *testing.T) {
	desk, client := newDesk(t)
	replyBulk(client)
	require.NoError(t, desk.Start(context.Background()))

	release := make(chan struct{})
	started := make(chan struct{})
	client.Handle(platform.SearchGroups, func(context.Context, platform.Request) (*platform.Response, error) {
		close(started)
		<-release
		return &platform.Response{Status: http.StatusOK, Data: []byte(`[]`)}, nil
	})
	require.True(t, desk.ClearSearchCache())

	errs := make(chan error, 1)
	go func() {
		_, err := desk.Search(context.Background(), search.KindDepartments, "net")
		errs <- err
	}()
	<-started

	// a newer keystroke supersedes the pending search
	_, err := desk.Search(context.Background(), search.KindDepartments, "n")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errs, changedesk.ErrStaleResult)
}

func TestAssess(t *testing.T) {
	desk, _ := newDesk(t)

	a := desk.Assess([]risk.Answer{{Question: risk.BusinessCriticality, Value: "critical"}})

	assert.True(t, a.Assessed())
	assert.Len(t, a.Indicators, 2)
	assert.Contains(t, a.Summary, "Impact Analysis Summary:")
}

func TestSubmitRecordsOutcome(t *testing.T) {
	desk, client := newDesk(t)
	client.Reply(platform.CreateChange, http.StatusCreated, map[string]any{"id": 99})
	form := change.NewForm(map[string]string{
		change.FieldSubject:    "Patch",
		change.FieldRequester:  "1",
		change.FieldDepartment: "7",
	})

	res, err := desk.Submit(context.Background(), form, []risk.Answer{{Question: risk.TestingCoverage, Value: "comprehensive"}})

	require.NoError(t, err)
	assert.Equal(t, change.Created, res.Outcome)
	assert.Equal(t, int64(99), res.ChangeID)

	count, err := testutil.GatherAndCount(desk.Registry(), "changedesk_changes_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPreviewMakesNoCalls(t *testing.T) {
	desk, client := newDesk(t)
	form := change.NewForm(map[string]string{change.FieldSubject: "Patch"})

	preview, err := desk.Preview(form, []risk.Answer{{Question: risk.TestingCoverage, Value: "comprehensive"}})

	require.NoError(t, err)
	assert.Equal(t, desk.Workspace(), preview.Payload.Change.CustomFields.Workspace)
	assert.Empty(t, client.Calls())
}

func TestValidateSettings(t *testing.T) {
	desk, _ := newDesk(t)

	assert.True(t, desk.ValidateSettings(settings.Settings{DefaultRiskLevel: "low"}).OK())
	assert.False(t, desk.ValidateSettings(settings.Settings{DefaultRiskLevel: "extreme"}).OK())
}

func TestLifecycle(t *testing.T) {
	t.Run("install", func(t *testing.T) {
		desk, client := newDesk(t)
		require.NoError(t, desk.OnInstall(context.Background()))
		assert.Equal(t, []platform.Notification{{Type: platform.Success, Message: "App installed successfully"}}, client.Notifications())
	})

	t.Run("install without parameters", func(t *testing.T) {
		desk, client := newDesk(t)
		client.Parameters = platform.Params{}
		assert.ErrorIs(t, desk.OnInstall(context.Background()), changedesk.ErrMissingConfig)
		assert.Equal(t, []platform.Notification{{
			Type:    platform.Failure,
			Message: "Failed to install app. Please check your configuration.",
		}}, client.Notifications())
	})

	t.Run("uninstall", func(t *testing.T) {
		desk, client := newDesk(t)
		replyBulk(client)
		require.NoError(t, desk.Start(context.Background()))
		client.Reset()

		desk.OnUninstall(context.Background())

		assert.Equal(t, 0, desk.CacheStats().Size)
		assert.Equal(t, []platform.Notification{{Type: platform.Success, Message: "App uninstalled successfully"}}, client.Notifications())
	})
}
