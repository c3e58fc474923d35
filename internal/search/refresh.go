package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"goflare.io/changedesk/internal/cache"
	"goflare.io/changedesk/internal/config"
	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/platform"
)

// Bulk data sets, cached under "<type>_all".
const (
	Users       = "users"
	Departments = "departments"
	Services    = "services"
	Assets      = "assets"
)

// BulkTypes lists every bulk data set in refresh order.
var BulkTypes = []string{Users, Departments, Services, Assets}

// ErrAuthFailed is returned when credentials could not be validated. The
// user has already been told by the recovery sequence.
var ErrAuthFailed = errors.New("authentication failed")

// BulkKey is the cache key of a bulk data set.
func BulkKey(typ string) string { return typ + "_all" }

// Invoker issues a named call through the resilience layer.
type Invoker interface {
	Invoke(ctx context.Context, name string, req platform.Request) (*platform.Response, error)
}

// Authenticator validates credentials and recovers from auth failures.
type Authenticator interface {
	Validate(ctx context.Context) bool
	CheckParams(ctx context.Context) (platform.Params, error)
	Recover(ctx context.Context, cause error)
}

// TypeFailure is one data set that could not be loaded.
type TypeFailure struct {
	Type string `json:"type"`
	Err  error  `json:"-"`
}

// RefreshError aggregates the data sets that failed during one refresh.
type RefreshError struct {
	Failures []TypeFailure
}

func (e *RefreshError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Type, f.Err)
	}
	return "failed to initialize cache: " + strings.Join(parts, "; ")
}

// Is matches ErrAuthFailed when any data set was rejected for credentials,
// since recovery has already notified the user in that case.
func (e *RefreshError) Is(target error) bool {
	if target != ErrAuthFailed {
		return false
	}
	for _, f := range e.Failures {
		if models.IsAuth(f.Err) {
			return true
		}
	}
	return false
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *RefreshError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Refresher keeps the bulk data sets in the cache fresh.
type Refresher struct {
	invoker  Invoker
	auth     Authenticator
	store    *cache.Store
	notifier *platform.Notifier

	interval time.Duration
	pageSize int

	mu          sync.Mutex
	lastRefresh time.Time
	now         func() time.Time

	sf     singleflight.Group
	tracer trace.Tracer
	logger *zap.Logger
}

// NewRefresher creates a new Refresher instance.
func NewRefresher(
	invoker Invoker,
	auth Authenticator,
	store *cache.Store,
	notifier *platform.Notifier,
	cfg *config.Config,
) *Refresher {
	return &Refresher{
		invoker:  invoker,
		auth:     auth,
		store:    store,
		notifier: notifier,
		interval: cfg.CacheConfig.RefreshInterval,
		pageSize: cfg.SearchConfig.BulkPageSize,
		now:      time.Now,
		tracer:   otel.Tracer("changedesk/search"),
		logger:   cfg.Logger,
	}
}

// Stale reports whether the data sets were never loaded or are older than the refresh interval.
func (r *Refresher) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRefresh.IsZero() || r.now().Sub(r.lastRefresh) > r.interval
}

// LastRefresh returns when the last successful refresh finished.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRefresh
}

// Ensure refreshes the data sets if they are stale.
func (r *Refresher) Ensure(ctx context.Context) error {
	if !r.Stale() {
		return nil
	}
	return r.Initialize(ctx)
}

// Initialize validates credentials and loads every data set concurrently.
// Concurrent callers share one refresh, which keeps running when the caller
// that started it goes away. One failing data set does not stop the others;
// the refresh as a whole fails with a *RefreshError.
func (r *Refresher) Initialize(ctx context.Context) error {
	ch := r.sf.DoChan("bulk", func() (any, error) {
		return nil, r.initialize(context.WithoutCancel(ctx))
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Shared {
		r.logger.Debug("Joined in-flight cache refresh")
	}
	if res.Err != nil {
		return res.Err
	}
	r.notifier.Success(ctx, "Search data loaded successfully")
	return nil
}

// Forget marks the data sets stale so the next Ensure reloads them.
func (r *Refresher) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRefresh = time.Time{}
}

func (r *Refresher) initialize(ctx context.Context) (err error) {
	ctx, span := r.tracer.Start(ctx, "Refresher.Initialize")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if !r.auth.Validate(ctx) {
		return ErrAuthFailed
	}
	if _, err := r.auth.CheckParams(ctx); err != nil {
		return err
	}

	p := pool.NewWithResults[TypeFailure]()
	for _, typ := range BulkTypes {
		typ := typ
		p.Go(func() TypeFailure {
			return TypeFailure{Type: typ, Err: r.refreshType(ctx, typ)}
		})
	}

	var failures []TypeFailure
	var authErr error
	for _, result := range p.Wait() {
		if result.Err == nil {
			continue
		}
		failures = append(failures, result)
		if authErr == nil && models.IsAuth(result.Err) {
			authErr = result.Err
		}
	}

	if authErr != nil {
		r.auth.Recover(ctx, authErr)
	}
	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].Type < failures[j].Type })
		span.SetAttributes(attribute.Int("failures", len(failures)))
		r.logger.Error("Cache initialization failed", zap.Int("failures", len(failures)))
		return &RefreshError{Failures: failures}
	}

	r.mu.Lock()
	r.lastRefresh = r.now()
	r.mu.Unlock()
	return nil
}

func (r *Refresher) refreshType(ctx context.Context, typ string) error {
	var data any
	var err error
	switch typ {
	case Users:
		data, err = r.fetchUsers(ctx)
	case Departments:
		data, err = fetchAll(ctx, r, platform.SearchGroups, func(d *models.Department) {
			d.Type = models.TypeDepartment
		})
	case Services:
		data, err = fetchAll(ctx, r, platform.SearchServices, func(i *models.Item) {
			i.Type = models.TypeService
		})
	case Assets:
		data, err = fetchAll(ctx, r, platform.SearchAssets, func(i *models.Item) {
			i.Type = models.TypeAsset
		})
	default:
		return fmt.Errorf("unknown data type %q", typ)
	}
	if err != nil {
		r.logger.Warn("Failed to fetch data set", zap.String("type", typ), zap.Error(err))
		return fmt.Errorf("failed to fetch %s: %w", typ, err)
	}

	if !r.store.Set(BulkKey(typ), data) {
		return fmt.Errorf("failed to cache %s", typ)
	}
	return nil
}

// fetchUsers loads agents and requesters in parallel and merges them.
func (r *Refresher) fetchUsers(ctx context.Context) ([]models.User, error) {
	var agents, requesters []models.User

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agents, err = fetchAll(gctx, r, platform.SearchUsers, func(u *models.User) {
			normalizeUser(u, models.TypeAgent)
		})
		return err
	})
	g.Go(func() error {
		var err error
		requesters, err = fetchAll(gctx, r, platform.SearchRequesters, func(u *models.User) {
			normalizeUser(u, models.TypeRequester)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(agents)+len(requesters))
	users = append(users, agents...)
	return append(users, requesters...), nil
}

func fetchAll[T any](ctx context.Context, r *Refresher, template string, stamp func(*T)) ([]T, error) {
	resp, err := r.invoker.Invoke(ctx, template, platform.Request{
		Query: &platform.Query{Query: "", Page: 1, PerPage: r.pageSize},
	})
	if err != nil {
		return nil, err
	}

	var records []T
	if err := resp.Decode(&records); err != nil {
		return nil, fmt.Errorf("invalid response format for %s: %w", template, err)
	}
	for i := range records {
		stamp(&records[i])
	}
	return records, nil
}

// normalizeUser derives the display name and fills contact details from nested data.
func normalizeUser(u *models.User, typ string) {
	u.DisplayName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	if u.DisplayName == "" {
		u.DisplayName = u.Name
	}
	if u.Name == "" {
		u.Name = u.DisplayName
	}
	if c := u.Contact; c != nil {
		if u.Email == "" {
			u.Email = c.Email
		}
		if u.Phone == "" {
			u.Phone = c.Phone
		}
		if u.Department == "" {
			u.Department = c.Department
		}
	}
	u.Type = typ
}
