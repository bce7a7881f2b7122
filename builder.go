package goSession

import (
	"errors"
	"log/slog"

	"github.com/fisioonhand/goSession/remote"
	"github.com/fisioonhand/goSession/session"
)

// Builder assembles a [Manager]. A Builder can be used once.
type Builder struct {
	config Config

	backend   session.Backend
	auth      Authenticator
	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackend sets the durable store. It is required.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithAuthenticator sets the remote side of Login, Revalidate and restore
// verification. Without it, Build creates a [remote.Client] from
// Config.Remote when a BaseURL is configured.
func (b *Builder) WithAuthenticator(auth Authenticator) *Builder {
	b.auth = auth
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns an uninitialized [Manager].
// Call [Manager.Initialize] before issuing any mutation.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.backend == nil {
		return nil, errors.New("session backend required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	auth := b.auth
	if auth == nil && cfg.Remote.BaseURL != "" {
		rc := remote.DefaultConfig()
		rc.BaseURL = cfg.Remote.BaseURL
		rc.RequestTimeout = cfg.Remote.RequestTimeout
		rc.MaxRetries = cfg.Remote.MaxRetries
		rc.MaxElapsedTime = cfg.Remote.MaxElapsedTime
		if cfg.Remote.UserAgent != "" {
			rc.UserAgent = cfg.Remote.UserAgent
		}
		rc.Logger = logger
		client, err := remote.New(rc)
		if err != nil {
			return nil, err
		}
		auth = client
	}
	if cfg.Restore.VerifyOnInitialize && auth == nil {
		return nil, errors.New("Restore VerifyOnInitialize requires an authenticator or Remote BaseURL")
	}

	store := session.NewStore(b.backend, cfg.Store.KeyPrefix)
	m := newManager(cfg, store, auth, logger, b.auditSink)

	b.built = true
	return m, nil
}
