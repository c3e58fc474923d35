package config

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/changedesk/internal/models"
)

// DefaultWorkspace is forced onto every change payload.
const DefaultWorkspace = "CXI Change Management"

// Config 用於 change desk 的配置
type Config struct {
	Workspace string

	CacheConfig      CacheConfig
	RequestConfig    RequestConfig
	ResilienceConfig ResilienceConfig
	AuthConfig       AuthConfig
	SearchConfig     SearchConfig
	SubmitConfig     SubmitConfig
	Logger           *zap.Logger
}

// CacheConfig 緩存相關配置
type CacheConfig struct {
	MaxAge              time.Duration
	MaxSize             int
	RefreshInterval     time.Duration
	BloomFilterSettings BloomFilterConfig
}

// BloomFilterConfig 用於布隆過濾器的配置
type BloomFilterConfig struct {
	ExpectedItems     uint
	FalsePositiveRate float64
}

// RequestConfig 限流與超時
type RequestConfig struct {
	MaxRequestsPerWindow int
	Window               time.Duration
	Timeout              time.Duration
}

// ResilienceConfig 用於設置重試和熔斷器
type ResilienceConfig struct {
	CircuitBreaker gobreaker.Settings
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
}

// AuthConfig 認證驗證重試
type AuthConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// SearchConfig 搜尋行為
type SearchConfig struct {
	MinQueryLength int
	MaxResults     int
	BulkPageSize   int
}

// SubmitConfig 提交行為
type SubmitConfig struct {
	MaxPayloadBytes int
}

// Option 函數類型
type Option func(*Config) error

var (
	ErrCacheSizeZero   = errors.New("cache max size must be at least 1")
	ErrWindowZero      = errors.New("rate limit window must be positive")
	ErrTimeoutZero     = errors.New("request timeout must be positive")
	ErrRetriesNegative = errors.New("max retries cannot be negative")
)

// NewConfig 創建一個默認的 Config，允許覆蓋特定參數
func NewConfig(options ...Option) (*Config, error) {
	defaultLogger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Workspace: DefaultWorkspace,
		CacheConfig: CacheConfig{
			MaxAge:          5 * time.Minute,
			MaxSize:         100,
			RefreshInterval: 15 * time.Minute,
			BloomFilterSettings: BloomFilterConfig{
				ExpectedItems:     1000,
				FalsePositiveRate: 0.01,
			},
		},
		RequestConfig: RequestConfig{
			MaxRequestsPerWindow: 50,
			Window:               time.Minute,
			Timeout:              14 * time.Second,
		},
		ResilienceConfig: ResilienceConfig{
			CircuitBreaker: gobreaker.Settings{
				Name:        "TicketingAPI",
				MaxRequests: 3,
				Interval:    60 * time.Second,
				Timeout:     30 * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures > 5
				},
				IsSuccessful: countsAsSuccess,
			},
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     5 * time.Second,
			Multiplier:   2,
		},
		AuthConfig: AuthConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
		},
		SearchConfig: SearchConfig{
			MinQueryLength: 2,
			MaxResults:     10,
			BulkPageSize:   100,
		},
		SubmitConfig: SubmitConfig{
			MaxPayloadBytes: 100 * 1024,
		},
		Logger: defaultLogger,
	}

	// 應用所有選項
	for _, option := range options {
		if err := option(cfg); err != nil {
			return nil, err
		}
	}

	// 最終檢查
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.CacheConfig.MaxSize < 1:
		return ErrCacheSizeZero
	case c.RequestConfig.Window <= 0:
		return ErrWindowZero
	case c.RequestConfig.Timeout <= 0:
		return ErrTimeoutZero
	case c.ResilienceConfig.MaxRetries < 0:
		return ErrRetriesNegative
	}
	return nil
}

// countsAsSuccess keeps caller mistakes from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	status, ok := models.StatusOf(err)
	return ok && status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

// WithLogger 設置自定義 Logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.Logger = logger
		}
		return nil
	}
}

// WithCacheMaxAge 設置快取過期時間
func WithCacheMaxAge(maxAge time.Duration) Option {
	return func(c *Config) error {
		if maxAge <= 0 {
			return errors.New("cache max age must be positive")
		}
		c.CacheConfig.MaxAge = maxAge
		return nil
	}
}

// WithCacheMaxSize 設置快取最大項目數
func WithCacheMaxSize(size int) Option {
	return func(c *Config) error {
		c.CacheConfig.MaxSize = size
		return nil
	}
}

// WithRefreshInterval 設置批量快取刷新間隔
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Config) error {
		if interval <= 0 {
			return errors.New("refresh interval must be positive")
		}
		c.CacheConfig.RefreshInterval = interval
		return nil
	}
}

// WithRateLimit 設置每個窗口的最大請求數
func WithRateLimit(maxRequests int, window time.Duration) Option {
	return func(c *Config) error {
		if maxRequests < 1 {
			return errors.New("max requests per window must be at least 1")
		}
		c.RequestConfig.MaxRequestsPerWindow = maxRequests
		c.RequestConfig.Window = window
		return nil
	}
}

// WithTimeout 設置請求超時
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.RequestConfig.Timeout = timeout
		return nil
	}
}

// WithRetry 設置重試策略
func WithRetry(maxRetries int, initialDelay, maxDelay time.Duration) Option {
	return func(c *Config) error {
		if initialDelay < time.Millisecond || maxDelay < initialDelay {
			return errors.New("retry delays must satisfy 1ms <= initial <= max")
		}
		c.ResilienceConfig.MaxRetries = maxRetries
		c.ResilienceConfig.InitialDelay = initialDelay
		c.ResilienceConfig.MaxDelay = maxDelay
		return nil
	}
}

// WithAuthRetry 設置認證驗證的嘗試次數與基礎等待
func WithAuthRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Config) error {
		if maxAttempts < 1 {
			return errors.New("auth attempts must be at least 1")
		}
		c.AuthConfig.MaxAttempts = maxAttempts
		c.AuthConfig.BaseDelay = baseDelay
		return nil
	}
}

// WithWorkspace 設置強制寫入的 workspace
func WithWorkspace(workspace string) Option {
	return func(c *Config) error {
		if workspace == "" {
			return errors.New("workspace cannot be empty")
		}
		c.Workspace = workspace
		return nil
	}
}

// WithMaxPayloadBytes 設置提交負載上限
func WithMaxPayloadBytes(limit int) Option {
	return func(c *Config) error {
		if limit < 1 {
			return errors.New("payload limit must be positive")
		}
		c.SubmitConfig.MaxPayloadBytes = limit
		return nil
	}
}
