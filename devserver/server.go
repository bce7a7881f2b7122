package devserver

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fisioonhand/goSession/internal/rate"
	"github.com/fisioonhand/goSession/jwt"
	"github.com/fisioonhand/goSession/middleware"
	"github.com/fisioonhand/goSession/password"
	"github.com/fisioonhand/goSession/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL    = time.Hour
	defaultIssuer = "fisioonhand-dev"
	revokedPrefix = "devserver:revoked:"
)

// ErrDuplicateEmail is returned when a practitioner email is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

// Config configures a [Server]. Zero values select development defaults.
type Config struct {
	TTL    time.Duration
	Issuer string
	// Secret signs tokens with HS256. A random secret is generated when empty.
	Secret []byte
	// Password tunes Argon2id; the zero value uses password.DefaultConfig.
	Password password.Config
	// Redis, when set, holds the revocation list instead of process memory
	// and enables failed-login throttling.
	Redis         redis.UniversalClient
	LoginThrottle rate.Config
	Logger        *slog.Logger
}

type practitioner struct {
	identity session.Identity
	hash     string
}

// Server is safe for concurrent use.
type Server struct {
	tokens  *jwt.Manager
	hasher  *password.Hasher
	revoked revocations
	limiter *rate.Limiter
	logger  *slog.Logger

	mu            sync.RWMutex
	practitioners map[string]practitioner // by lower-cased email
	byID          map[string]session.Identity
	clinic        *clinicData

	handler http.Handler
}

// New builds a Server.
func New(cfg Config) (*Server, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		if _, err := rand.Read(cfg.Secret); err != nil {
			return nil, fmt.Errorf("generate signing secret: %w", err)
		}
	}
	if cfg.Password == (password.Config{}) {
		cfg.Password = password.DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.TTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.Secret,
		Issuer:        cfg.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	var revoked revocations = &memoryRevocations{tokens: map[string]time.Time{}}
	var limiter *rate.Limiter
	if cfg.Redis != nil {
		revoked = &redisRevocations{client: cfg.Redis}
		limiter = rate.New(cfg.Redis, cfg.LoginThrottle)
	}

	s := &Server{
		tokens:        tokens,
		hasher:        hasher,
		revoked:       revoked,
		limiter:       limiter,
		logger:        logger,
		practitioners: map[string]practitioner{},
		byID:          map[string]session.Identity{},
		clinic:        newClinicData(),
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// AddPractitioner registers an account and returns its identity.
func (s *Server) AddPractitioner(email, username, plain, crefito string) (session.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(username) == "" {
		return session.Identity{}, errors.New("email and username are required")
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return session.Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.practitioners[email]; ok {
		return session.Identity{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
	}
	id := session.Identity{ID: uuid.NewString(), Username: username, Email: email, CrefitoID: crefito}
	s.practitioners[email] = practitioner{identity: id, hash: hash}
	s.byID[id.ID] = id
	return id, nil
}

// Revoke makes token fail verification until it would have expired anyway.
func (s *Server) Revoke(ctx context.Context, token string) error {
	exp, ok := jwt.ExpiresAt(token)
	if !ok {
		return errors.New("token has no expiry")
	}
	return s.revoked.revoke(ctx, token, exp)
}

// Parse verifies token and rejects revoked ones. It satisfies
// middleware.TokenVerifier.
func (s *Server) Parse(token string) (*jwt.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.isRevoked(context.Background(), token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errors.New("token revoked")
	}
	return claims, nil
}

func (s *Server) routes() http.Handler {
	guard := middleware.RequireBearer(s)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.Handle("GET /auth/verify", guard(http.HandlerFunc(s.handleVerify)))

	mux.Handle("GET /pacientes", guard(http.HandlerFunc(s.handleListPatients)))
	mux.Handle("POST /pacientes", guard(http.HandlerFunc(s.handleCreatePatient)))
	mux.Handle("GET /pacientes/{id}", guard(http.HandlerFunc(s.handleGetPatient)))
	mux.Handle("GET /fichas-pacientes", guard(http.HandlerFunc(s.handleFindRecords)))
	mux.Handle("POST /fichas-pacientes", guard(http.HandlerFunc(s.handleSaveRecord)))
	mux.Handle("PUT /fichas-pacientes/{id}", guard(http.HandlerFunc(s.handleSaveRecord)))
	mux.Handle("GET /anotacoes-fichas-pacientes", guard(http.HandlerFunc(s.handleListNotes)))
	mux.Handle("POST /anotacoes-fichas-pacientes", guard(http.HandlerFunc(s.handleAddNote)))

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Debug("devserver.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", r.Header.Get("X-Request-ID"),
			"elapsed", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	ip := clientIP(r)
	if s.limiter != nil {
		if err := s.limiter.CheckLogin(r.Context(), email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				w.Header().Set("Retry-After", "900")
				writeError(w, http.StatusTooManyRequests, "too many failed attempts")
				return
			}
			s.logger.Error("devserver.login.throttle_unavailable", "err", err)
			writeError(w, http.StatusServiceUnavailable, "try again later")
			return
		}
	}

	s.mu.RLock()
	p, ok := s.practitioners[email]
	s.mu.RUnlock()

	match := false
	if ok {
		var err error
		match, err = s.hasher.Verify(req.Password, p.hash)
		if err != nil && !errors.Is(err, password.ErrPasswordLength) {
			s.logger.Error("devserver.login.verify_failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	// Unknown emails and wrong passwords are indistinguishable to the caller.
	if !match {
		if s.limiter != nil {
			if err := s.limiter.RecordFailure(r.Context(), email, ip); err != nil {
				s.logger.Warn("devserver.login.throttle_record_failed", "err", err)
			}
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLogin(r.Context(), email); err != nil {
			s.logger.Warn("devserver.login.throttle_reset_failed", "err", err)
		}
	}

	token, ttl, err := s.tokens.Issue(p.identity.ID, p.identity.Email)
	if err != nil {
		s.logger.Error("devserver.login.issue_failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresIn: int64(ttl / time.Second)})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, ok := s.currentPractitioner(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown practitioner")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) currentPractitioner(r *http.Request) (session.Identity, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return session.Identity{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byID[claims.UID]
	return id, ok
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": http.StatusText(status), "message": msg})
}

type revocations interface {
	revoke(ctx context.Context, token string, until time.Time) error
	isRevoked(ctx context.Context, token string) (bool, error)
}

type memoryRevocations struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func (m *memoryRevocations) revoke(_ context.Context, token string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = until
	return nil
}

func (m *memoryRevocations) isRevoked(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.tokens[token]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(m.tokens, token)
		return false, nil
	}
	return true, nil
}

type redisRevocations struct {
	client redis.UniversalClient
}

func (r *redisRevocations) revoke(ctx context.Context, token string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedPrefix+token, 1, ttl).Err()
}

func (r *redisRevocations) isRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("revocation lookup: %w", err)
	}
	return n > 0, nil
}
