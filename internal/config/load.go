package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Keys understood by Load. Environment variables use the CHANGEDESK_ prefix with dots replaced by underscores.
const (
	KeyWorkspace        = "workspace"
	KeyCacheMaxAge      = "cache.max_age"
	KeyCacheMaxSize     = "cache.max_size"
	KeyRefreshInterval  = "cache.refresh_interval"
	KeyRateLimitMax     = "request.max_per_window"
	KeyRateLimitWindow  = "request.window"
	KeyRequestTimeout   = "request.timeout"
	KeyRetryMax         = "retry.max_retries"
	KeyRetryInitial     = "retry.initial_delay"
	KeyRetryMaxDelay    = "retry.max_delay"
	KeyAuthAttempts     = "auth.max_attempts"
	KeyAuthBaseDelay    = "auth.base_delay"
	KeyMaxPayloadBytes  = "submit.max_payload_bytes"
	KeyServerAddr       = "server.addr"
	KeyFreshserviceHost = "freshservice.domain"
	KeyFreshserviceKey  = "freshservice.api_key"
	KeyAdminWebhook     = "freshservice.admin_webhook"
)

// EnvPrefix prefixes every environment variable read by NewViper.
const EnvPrefix = "CHANGEDESK"

// NewViper returns a viper instance with defaults registered and environment overrides enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyWorkspace, DefaultWorkspace)
	v.SetDefault(KeyCacheMaxAge, "5m")
	v.SetDefault(KeyCacheMaxSize, 100)
	v.SetDefault(KeyRefreshInterval, "15m")
	v.SetDefault(KeyRateLimitMax, 50)
	v.SetDefault(KeyRateLimitWindow, "60s")
	v.SetDefault(KeyRequestTimeout, "14s")
	v.SetDefault(KeyRetryMax, 3)
	v.SetDefault(KeyRetryInitial, "1s")
	v.SetDefault(KeyRetryMaxDelay, "5s")
	v.SetDefault(KeyAuthAttempts, 3)
	v.SetDefault(KeyAuthBaseDelay, "2s")
	v.SetDefault(KeyMaxPayloadBytes, 100*1024)
	v.SetDefault(KeyServerAddr, ":3000")
}

// ReadFile reads an optional config file into v. A missing file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		v.SetConfigName("changedesk")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Options converts the values held by v into Config options.
func Options(v *viper.Viper) []Option {
	return []Option{
		WithWorkspace(v.GetString(KeyWorkspace)),
		WithCacheMaxAge(v.GetDuration(KeyCacheMaxAge)),
		WithCacheMaxSize(v.GetInt(KeyCacheMaxSize)),
		WithRefreshInterval(v.GetDuration(KeyRefreshInterval)),
		WithRateLimit(v.GetInt(KeyRateLimitMax), v.GetDuration(KeyRateLimitWindow)),
		WithTimeout(v.GetDuration(KeyRequestTimeout)),
		WithRetry(v.GetInt(KeyRetryMax), v.GetDuration(KeyRetryInitial), v.GetDuration(KeyRetryMaxDelay)),
		WithAuthRetry(v.GetInt(KeyAuthAttempts), v.GetDuration(KeyAuthBaseDelay)),
		WithMaxPayloadBytes(v.GetInt(KeyMaxPayloadBytes)),
	}
}

// Load builds a Config from v, applying extra options last.
func Load(v *viper.Viper, extra ...Option) (*Config, error) {
	opts := append(Options(v), extra...)
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
