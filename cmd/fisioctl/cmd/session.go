package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goSession "github.com/fisioonhand/goSession"
	"github.com/fisioonhand/goSession/clinic"
	"github.com/fisioonhand/goSession/internal/output"
	"github.com/fisioonhand/goSession/remote"
	"github.com/fisioonhand/goSession/session"
)

// sessionEnv is the per-invocation session manager and the API client bound
// to it.
type sessionEnv struct {
	manager *goSession.Manager
	api     *clinic.Client
	closers []func() error
}

func (e *sessionEnv) Close() {
	if e.manager != nil {
		if err := e.manager.Close(); err != nil {
			logger.Warn("session.audit_flush_failed", "err", err)
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			logger.Debug("session.close_failed", "err", err)
		}
	}
}

// openSession restores the persisted session. Callers must Close the result.
func openSession(cmd *cobra.Command) (*sessionEnv, error) {
	ctx := cmd.Context()
	env := &sessionEnv{}

	backend, err := openBackend(ctx)
	if err != nil {
		return nil, &output.CLIError{
			Summary:    "cannot open session store",
			Detail:     err.Error(),
			Suggestion: "check session.path or session.redis_addr",
			ExitCode:   output.ExitConfigError,
			Err:        err,
		}
	}
	env.closers = append(env.closers, backend.Close)

	sc := goSession.DefaultConfig()
	sc.Store.KeyPrefix = cfg.Session.KeyPrefix
	sc.Restore.VerifyOnInitialize = cfg.Session.VerifyOnStart
	sc.Restore.VerifyTimeout = cfg.API.Timeout
	sc.Remote.BaseURL = cfg.API.BaseURL
	sc.Remote.RequestTimeout = cfg.API.Timeout
	sc.Remote.MaxRetries = cfg.API.MaxRetries
	sc.Remote.UserAgent = "fisioctl/" + version

	builder := goSession.New().WithConfig(sc).WithBackend(backend).WithLogger(logger)
	if cfg.Session.AuditLog != "" {
		f, err := os.OpenFile(cfg.Session.AuditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		env.closers = append(env.closers, f.Close)
		builder = builder.WithAuditSink(goSession.NewJSONWriterSink(f))
	}

	manager, err := builder.Build()
	if err != nil {
		env.Close()
		return nil, &output.CLIError{Summary: "invalid session configuration", Detail: err.Error(), ExitCode: output.ExitConfigError, Err: err}
	}
	env.manager = manager

	snap := manager.Initialize(ctx)
	logger.Debug("session restored", "status", snap.Status)

	api, err := clinic.New(manager, clinic.Config{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: "fisioctl/" + version,
		Logger:    logger,
		OnUnauthorized: func(ctx context.Context) {
			if _, err := manager.SignOut(ctx); err != nil {
				logger.Warn("session.signout_failed", "err", err)
			}
		},
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	env.api = api
	return env, nil
}

func openBackend(ctx context.Context) (session.Backend, error) {
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Session.RedisAddr, err)
		}
		return &redisBackend{RedisBackend: session.NewRedisBackend(client, cfg.Session.RedisTTL), client: client}, nil
	default:
		return session.OpenBolt(cfg.Session.Path)
	}
}

// redisBackend closes the client it owns.
type redisBackend struct {
	*session.RedisBackend
	client *redis.Client
}

func (r *redisBackend) Close() error {
	return r.client.Close()
}

// describe turns library errors into user-facing CLI errors.
func describe(action string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, clinic.ErrNotAuthenticated):
		return &output.CLIError{Summary: "not signed in", Suggestion: "run `fisioctl login`", ExitCode: output.ExitAuthError, Err: err}
	case errors.Is(err, clinic.ErrUnauthorized):
		return &output.CLIError{Summary: "session expired or revoked", Detail: "you have been signed out", Suggestion: "run `fisioctl login` again", ExitCode: output.ExitAuthError, Err: err}
	case errors.Is(err, clinic.ErrNotFound):
		return &output.CLIError{Summary: action + ": not found", Detail: err.Error(), ExitCode: output.ExitGeneral, Err: err}
	case errors.Is(err, clinic.ErrInvalid):
		return &output.CLIError{Summary: action + ": invalid input", Detail: err.Error(), ExitCode: output.ExitUsageError, Err: err}
	}

	var apiErr *clinic.APIError
	if errors.As(err, &apiErr) {
		return &output.CLIError{Summary: action + " failed", Detail: apiErr.Error(), ExitCode: output.ExitGeneral, Err: err}
	}

	var sessErr *goSession.Error
	if errors.As(err, &sessErr) {
		switch sessErr.Kind {
		case goSession.FailureAuthentication:
			return &output.CLIError{Summary: action + ": authentication failed", Detail: "the server rejected the credentials", Suggestion: "check email and password", ExitCode: output.ExitAuthError, Err: err}
		case goSession.FailureUnavailable:
			return &output.CLIError{Summary: action + ": server unreachable", Detail: err.Error(), Suggestion: "check your connection or api.base_url", ExitCode: output.ExitUnavailable, Err: err}
		case goSession.FailureInvalidInput:
			return &output.CLIError{Summary: action + ": invalid input", Detail: err.Error(), ExitCode: output.ExitUsageError, Err: err}
		case goSession.FailurePersistence:
			return &output.CLIError{Summary: action + ": could not save the session", Detail: err.Error(), Suggestion: "check permissions on session.path", ExitCode: output.ExitGeneral, Err: err}
		}
	}

	if errors.Is(err, remote.ErrUnavailable) {
		return &output.CLIError{Summary: action + ": server unreachable", Detail: err.Error(), ExitCode: output.ExitUnavailable, Err: err}
	}
	return &output.CLIError{Summary: action + " failed", Detail: err.Error(), ExitCode: output.ExitGeneral, Err: err}
}
