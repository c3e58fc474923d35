// Package changedesk assembles the change request desk: cached lookups
// against the ticketing API, risk scoring and change submission.
package changedesk

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/changedesk/internal/auth"
	"goflare.io/changedesk/internal/cache"
	"goflare.io/changedesk/internal/change"
	"goflare.io/changedesk/internal/config"
	"goflare.io/changedesk/internal/limiter"
	"goflare.io/changedesk/internal/metrics"
	"goflare.io/changedesk/internal/models"
	"goflare.io/changedesk/internal/platform"
	"goflare.io/changedesk/internal/resilience"
	"goflare.io/changedesk/internal/retrier"
	"goflare.io/changedesk/internal/risk"
	"goflare.io/changedesk/internal/search"
	"goflare.io/changedesk/internal/settings"
)

// Option 定義初始化 Desk 的選項
type Option = config.Option

// 常用選項
var (
	WithLogger          = config.WithLogger
	WithCacheMaxAge     = config.WithCacheMaxAge
	WithCacheMaxSize    = config.WithCacheMaxSize
	WithRefreshInterval = config.WithRefreshInterval
	WithRateLimit       = config.WithRateLimit
	WithTimeout         = config.WithTimeout
	WithRetry           = config.WithRetry
	WithAuthRetry       = config.WithAuthRetry
	WithWorkspace       = config.WithWorkspace
	WithMaxPayloadBytes = config.WithMaxPayloadBytes
)

const (
	msgInstalled     = "App installed successfully"
	msgInstallFailed = "Failed to install app. Please check your configuration."
	msgUninstalled   = "App uninstalled successfully"
)

// Assessment is a scored questionnaire together with what the form shows for it.
type Assessment struct {
	risk.Assessment
	Summary    string           `json:"impact_summary"`
	Indicators []risk.Indicator `json:"indicators"`
}

// Desk 定義 change desk 的主要結構體
type Desk struct {
	cfg       *config.Config
	store     *cache.Store
	gateway   *resilience.Gateway
	notifier  *platform.Notifier
	auth      *auth.Validator
	refresher *search.Refresher
	search    *search.Service
	sequencer *search.Sequencer
	submitter *change.Submitter
	settings  *settings.Validator
	collector *metrics.Collector
	registry  *prometheus.Registry
	logger    *zap.Logger
}

// New 初始化 Desk，接受多個配置選項
func New(client platform.Client, opts ...Option) (*Desk, error) {
	if client == nil {
		return nil, fmt.Errorf("platform client is required")
	}
	cfg, err := config.NewConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create config: %w", err)
	}

	requests, err := retrier.ForRequests(cfg.ResilienceConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build request retrier: %w", err)
	}
	authRetrier, err := retrier.ForAuth(cfg.AuthConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth retrier: %w", err)
	}

	store := cache.New(cfg.CacheConfig, cfg.Logger)
	window := limiter.NewWindow(cfg.RequestConfig.MaxRequestsPerWindow, cfg.RequestConfig.Window, nil)
	guard := limiter.NewGuard(window, cfg.RequestConfig.Timeout, cfg.Logger)
	gateway := resilience.NewGateway(client, guard, requests, cfg.ResilienceConfig.CircuitBreaker, cfg.Logger)
	notifier := platform.NewNotifier(client, cfg.Logger)

	validator := auth.NewValidator(gateway, client, notifier, store, authRetrier, cfg.Logger)
	refresher := search.NewRefresher(gateway, validator, store, notifier, cfg)

	collector := metrics.New(store)
	registry := prometheus.NewRegistry()
	if err := collector.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	return &Desk{
		cfg:       cfg,
		store:     store,
		gateway:   gateway,
		notifier:  notifier,
		auth:      validator,
		refresher: refresher,
		search:    search.NewService(store, refresher, notifier, cfg),
		sequencer: search.NewSequencer(),
		submitter: change.NewSubmitter(gateway, notifier, cfg),
		settings:  settings.NewValidator(cfg.Logger),
		collector: collector,
		registry:  registry,
		logger:    cfg.Logger,
	}, nil
}

// Start validates credentials and loads the search data sets.
func (d *Desk) Start(ctx context.Context) error {
	err := d.refresher.Initialize(ctx)
	d.collector.ObserveRefresh(err)
	if err != nil {
		d.logger.Error("Error during app initialization", zap.Error(err))
		// Recovery has already told the user about rejected credentials.
		if !errors.Is(err, ErrAuthFailed) {
			d.notifier.Error(ctx, models.UserMessage(err))
		}
		return err
	}
	d.logger.Info("Change desk started", zap.Time("last_refresh", d.refresher.LastRefresh()))
	return nil
}

// Search looks up kind by query. Only the newest search of a kind returns
// results; an older one that finishes later gets ErrStaleResult.
func (d *Desk) Search(ctx context.Context, kind search.Kind, query string) ([]search.Result, error) {
	ticket := d.sequencer.Begin(kind)
	results := d.search.Search(ctx, kind, query)
	if !ticket.Latest() {
		d.logger.Debug("Dropping superseded search", zap.String("kind", string(ticket.Kind())), zap.Uint64("token", ticket.Token()))
		return nil, ErrStaleResult
	}
	return results, nil
}

// Assess scores answers without touching any form.
func (d *Desk) Assess(answers []risk.Answer) Assessment {
	a := risk.Score(answers)
	return Assessment{
		Assessment: a,
		Summary:    risk.ImpactSummary(a, answers),
		Indicators: risk.Indicators(a),
	}
}

// Preview builds the payload and confirmation for form without calling out.
func (d *Desk) Preview(form *change.Form, answers []risk.Answer) (*change.Preview, error) {
	preview, _, err := d.submitter.Prepare(form, answers)
	return preview, err
}

// Submit runs the submission flow and records its outcome.
func (d *Desk) Submit(ctx context.Context, form *change.Form, answers []risk.Answer) (*change.Result, error) {
	res, err := d.submitter.Submit(ctx, form, answers)
	d.collector.ObserveSubmission(string(res.Outcome))
	return res, err
}

// ValidateSettings checks what the settings screen submitted.
func (d *Desk) ValidateSettings(s settings.Settings) settings.Report {
	return d.settings.Validate(s)
}

// CacheStats returns the cache counters.
func (d *Desk) CacheStats() models.CacheStats {
	return d.store.Stats()
}

// ClearSearchCache drops the search data sets.
func (d *Desk) ClearSearchCache() bool {
	return d.search.ClearSearchCache()
}

// BreakerState reports the circuit breaker state of outbound calls.
func (d *Desk) BreakerState() gobreaker.State {
	return d.gateway.State()
}

// Registry holds every metric the desk exports.
func (d *Desk) Registry() *prometheus.Registry {
	return d.registry
}

// Workspace is the workspace stamped on every change.
func (d *Desk) Workspace() string {
	return d.cfg.Workspace
}

// OnInstall checks the installation parameters and tells the user how it went.
func (d *Desk) OnInstall(ctx context.Context) error {
	if _, err := d.auth.CheckParams(ctx); err != nil {
		d.logger.Error("Error during app installation", zap.Error(err))
		d.notifier.Error(ctx, msgInstallFailed)
		return err
	}
	d.notifier.Success(ctx, msgInstalled)
	return nil
}

// OnUninstall drops cached data and confirms the removal.
func (d *Desk) OnUninstall(ctx context.Context) {
	d.store.Invalidate()
	d.refresher.Forget()
	d.notifier.Success(ctx, msgUninstalled)
}
