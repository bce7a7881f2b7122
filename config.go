package goSession

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/fisioonhand/goSession/session"
)

// Config holds every tunable of a [Manager]. Build it with [DefaultConfig]
// and adjust fields before handing it to [Builder.WithConfig].
type Config struct {
	Store   StoreConfig
	Restore RestoreConfig
	Remote  RemoteConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the durable key layout and write deadlines.
type StoreConfig struct {
	// KeyPrefix namespaces the token and identity keys.
	KeyPrefix string
	// OperationTimeout bounds a single store write or delete. The deadline
	// is applied after caller cancellation is detached.
	OperationTimeout time.Duration
}

/*
====================================
RESTORE CONFIG
====================================
*/

// RestoreConfig controls what Initialize does with a persisted session.
type RestoreConfig struct {
	// VerifyOnInitialize checks a restored credential against the auth
	// endpoint. An explicit rejection discards the session; an unreachable
	// endpoint keeps it.
	VerifyOnInitialize bool
	VerifyTimeout      time.Duration
	// PurgeExpired discards a restored JWT whose exp claim has passed.
	PurgeExpired bool
}

/*
====================================
REMOTE CONFIG
====================================
*/

// RemoteConfig is used by Build to construct the default authenticator when
// none is supplied with [Builder.WithAuthenticator].
type RemoteConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     uint
	MaxElapsedTime time.Duration
	UserAgent      string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// DrainTimeout bounds how long Manager.Close waits for queued events.
	DrainTimeout time.Duration
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			KeyPrefix:        session.DefaultPrefix,
			OperationTimeout: 5 * time.Second,
		},
		Restore: RestoreConfig{
			VerifyOnInitialize: false,
			VerifyTimeout:      5 * time.Second,
			PurgeExpired:       true,
		},
		Remote: RemoteConfig{
			RequestTimeout: 10 * time.Second,
			MaxRetries:     3,
			MaxElapsedTime: 20 * time.Second,
			UserAgent:      "goSession",
		},
		Audit: AuditConfig{
			Enabled:      false,
			BufferSize:   256,
			DropIfFull:   true,
			DrainTimeout: 2 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Store.KeyPrefix = strings.Clone(cfg.Store.KeyPrefix)
	out.Remote.BaseURL = strings.Clone(cfg.Remote.BaseURL)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.KeyPrefix) == "" {
		return errors.New("Store KeyPrefix must not be empty")
	}
	if c.Store.OperationTimeout < 0 {
		return errors.New("Store OperationTimeout must be >= 0")
	}

	if c.Restore.VerifyOnInitialize && c.Restore.VerifyTimeout <= 0 {
		return errors.New("Restore VerifyTimeout must be > 0 when VerifyOnInitialize is true")
	}

	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("Remote BaseURL must be an absolute http(s) URL")
		}
	}
	if c.Remote.RequestTimeout < 0 || c.Remote.MaxElapsedTime < 0 {
		return errors.New("Remote timeouts must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.DrainTimeout < 0 {
		return errors.New("Audit DrainTimeout must be >= 0")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
