// Package search answers people, department and item lookups from bulk data
// sets that are prefetched into the cache and filtered locally.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"goflare.io/changedesk/internal/cache"
	"goflare.io/changedesk/internal/config"
	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/platform"
)

// Kind is a searchable entity kind.
type Kind string

const (
	KindPeople      Kind = "people"
	KindDepartments Kind = "departments"
	KindItems       Kind = "items"
)

// ParseKind validates a kind coming from the outside.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindPeople, KindDepartments, KindItems:
		return k, nil
	default:
		return "", models.NewValidationError("unknown search kind %q", s)
	}
}

// Result is one row of any search kind.
type Result struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Department  string `json:"department,omitempty"`
	Description string `json:"description,omitempty"`
}

// Service filters cached data sets. It never returns errors; failures are
// shown to the user once and produce an empty list.
type Service struct {
	store     *cache.Store
	refresher *Refresher
	notifier  *platform.Notifier

	minQuery   int
	maxResults int

	tracer trace.Tracer
	logger *zap.Logger
}

// NewService creates a new Service instance.
func NewService(store *cache.Store, refresher *Refresher, notifier *platform.Notifier, cfg *config.Config) *Service {
	return &Service{
		store:      store,
		refresher:  refresher,
		notifier:   notifier,
		minQuery:   cfg.SearchConfig.MinQueryLength,
		maxResults: cfg.SearchConfig.MaxResults,
		tracer:     otel.Tracer("changedesk/search"),
		logger:     cfg.Logger,
	}
}

// Search dispatches to the kind-specific lookup.
func (s *Service) Search(ctx context.Context, kind Kind, query string) []Result {
	switch kind {
	case KindPeople:
		users := s.People(ctx, query)
		out := make([]Result, len(users))
		for i, u := range users {
			out[i] = Result{ID: u.ID, Type: u.Type, Name: u.DisplayName, Email: u.Email, Phone: u.Phone, Department: u.Department}
		}
		return out
	case KindDepartments:
		departments := s.Departments(ctx, query)
		out := make([]Result, len(departments))
		for i, d := range departments {
			out[i] = Result{ID: d.ID, Type: d.Type, Name: d.Name, Description: d.Description}
		}
		return out
	case KindItems:
		items := s.Items(ctx, query)
		out := make([]Result, len(items))
		for i, it := range items {
			out[i] = Result{ID: it.ID, Type: it.Type, Name: it.Name, Description: it.Description}
		}
		return out
	default:
		s.logger.Warn("Unknown search kind", zap.String("kind", string(kind)))
		return []Result{}
	}
}

// People matches agents and requesters by display name or email, sorted by name.
func (s *Service) People(ctx context.Context, query string) []models.User {
	q, ok := s.normalize(query)
	if !ok {
		return []models.User{}
	}
	ctx, span := s.tracer.Start(ctx, "Search.People", trace.WithAttributes(attribute.String("query", q)))
	defer span.End()

	users, err := bulk[[]models.User](ctx, s, Users)
	if err != nil {
		s.fail(ctx, "user search", err)
		return []models.User{}
	}

	matches := make([]models.User, 0)
	for _, u := range users {
		if contains(u.DisplayName, q) || contains(u.Email, q) {
			matches = append(matches, u)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return strings.ToLower(matches[i].DisplayName) < strings.ToLower(matches[j].DisplayName)
	})
	return limit(matches, s.maxResults)
}

// Departments matches groups by name or description.
func (s *Service) Departments(ctx context.Context, query string) []models.Department {
	q, ok := s.normalize(query)
	if !ok {
		return []models.Department{}
	}
	ctx, span := s.tracer.Start(ctx, "Search.Departments", trace.WithAttributes(attribute.String("query", q)))
	defer span.End()

	departments, err := bulk[[]models.Department](ctx, s, Departments)
	if err != nil {
		s.fail(ctx, "department search", err)
		return []models.Department{}
	}

	matches := make([]models.Department, 0)
	for _, d := range departments {
		if contains(d.Name, q) || contains(d.Description, q) {
			matches = append(matches, d)
		}
	}
	return limit(matches, s.maxResults)
}

// Items matches services first, then assets, by name or description.
func (s *Service) Items(ctx context.Context, query string) []models.Item {
	q, ok := s.normalize(query)
	if !ok {
		return []models.Item{}
	}
	ctx, span := s.tracer.Start(ctx, "Search.Items", trace.WithAttributes(attribute.String("query", q)))
	defer span.End()

	services, err := bulk[[]models.Item](ctx, s, Services)
	if err != nil {
		s.fail(ctx, "item search", err)
		return []models.Item{}
	}
	assets, err := bulk[[]models.Item](ctx, s, Assets)
	if err != nil {
		s.fail(ctx, "item search", err)
		return []models.Item{}
	}

	matches := make([]models.Item, 0)
	for _, set := range [][]models.Item{services, assets} {
		for _, it := range set {
			if contains(it.Name, q) || contains(it.Description, q) {
				matches = append(matches, it)
			}
		}
	}
	return limit(matches, s.maxResults)
}

// ClearSearchCache drops every bulk data set and forces a reload on the next search.
func (s *Service) ClearSearchCache() bool {
	s.refresher.Forget()
	return s.store.Invalidate(BulkTypes...)
}

func (s *Service) normalize(query string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	return q, len([]rune(q)) >= s.minQuery
}

// bulk returns the cached data set for typ, reloading when it is stale or has
// dropped out of the cache.
func bulk[T any](ctx context.Context, s *Service, typ string) (T, error) {
	var zero T
	if s.refresher.Stale() {
		s.notifier.Info(ctx, "Loading search data...")
		if err := s.refresher.Ensure(ctx); err != nil {
			return zero, err
		}
	}
	if data, ok := cache.Lookup[T](s.store, BulkKey(typ)); ok {
		return data, nil
	}

	s.logger.Debug("Bulk data set missing from cache, reloading", zap.String("type", typ))
	if err := s.refresher.Initialize(ctx); err != nil {
		return zero, err
	}
	if data, ok := cache.Lookup[T](s.store, BulkKey(typ)); ok {
		return data, nil
	}
	return zero, fmt.Errorf("%s not available in cache", typ)
}

// fail shows exactly one notification for a search failure, unless the auth
// recovery sequence already told the user.
func (s *Service) fail(ctx context.Context, operation string, err error) {
	s.logger.Error("Search failed", zap.String("operation", operation), zap.Error(err))
	if errors.Is(err, ErrAuthFailed) {
		return
	}
	s.notifier.Error(ctx, models.UserMessage(err))
}

func contains(field, lowerQuery string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), lowerQuery)
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
