package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fisioonhand/goSession/session"
	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://fisioonhand.work/api"
	// RequestIDHeader carries a per-attempt correlation id.
	RequestIDHeader = "X-Request-ID"

	loginPath  = "/auth/login"
	verifyPath = "/auth/verify"

	maxErrorBody = 4 << 10
)

var (
	// ErrRejected is returned when the endpoint answers with a non-success status.
	ErrRejected = errors.New("remote auth rejected")
	// ErrUnavailable is returned when the endpoint cannot be reached.
	ErrUnavailable = errors.New("remote auth unavailable")
)

// Config configures a [Client].
type Config struct {
	BaseURL         string
	HTTPClient      *http.Client
	RequestTimeout  time.Duration
	MaxRetries      uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	UserAgent       string
	Logger          *slog.Logger
}

// DefaultConfig returns settings suited to a handheld client on a flaky network.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		RequestTimeout:  10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  20 * time.Second,
		UserAgent:       "goSession/remote",
	}
}

// Token is the credential returned by a successful login.
type Token struct {
	Value     string
	ExpiresIn time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	cfg    Config
	logger *slog.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New validates cfg and returns a [Client].
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("remote base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported remote URL scheme %q", base.Scheme)
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{base: base, http: httpClient, cfg: cfg, logger: logger}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (Token, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return Token{}, err
	}

	var out loginResponse
	if err := c.do(ctx, http.MethodPost, loginPath, "", body, &out); err != nil {
		return Token{}, err
	}
	if strings.TrimSpace(out.Token) == "" {
		return Token{}, fmt.Errorf("%w: login response without token", ErrRejected)
	}
	return Token{Value: out.Token, ExpiresIn: time.Duration(out.ExpiresIn) * time.Second}, nil
}

// Verify resolves token into the practitioner identity it was issued for.
func (c *Client) Verify(ctx context.Context, token string) (session.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return session.Identity{}, fmt.Errorf("%w: empty token", ErrRejected)
	}

	var out session.Identity
	if err := c.do(ctx, http.MethodGet, verifyPath, token, nil, &out); err != nil {
		return session.Identity{}, err
	}
	if !out.Valid() {
		return session.Identity{}, fmt.Errorf("%w: verify response without identity", ErrRejected)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body []byte, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.InitialInterval
	expo.MaxInterval = c.cfg.MaxInterval

	opts := []backoff.RetryOption{
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(c.cfg.MaxRetries + 1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("remote.retry", "method", method, "path", path, "next", next, "err", err)
		}),
	}
	if c.cfg.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(c.cfg.MaxElapsedTime))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.attempt(ctx, method, path, bearer, body, out)
	}, opts...)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRejected) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// attempt performs one request. Rejections are permanent; everything else is
// retried by the caller.
func (c *Client) attempt(ctx context.Context, method, path, bearer string, body []byte, out any) error {
	reqCtx := ctx
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.base.String()+path, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err()))
		}
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("remote.response", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	switch {
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return backoff.Permanent(rejection(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrRejected, err))
	}
	return nil
}

func rejection(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload errorResponse
	msg := ""
	if json.Unmarshal(data, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Error
		}
	}
	if msg == "" {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, msg)
}
