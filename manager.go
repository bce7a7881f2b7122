package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	internalaudit "github.com/fisioonhand/goSession/internal/audit"
	"github.com/fisioonhand/goSession/jwt"
	"github.com/fisioonhand/goSession/remote"
	"github.com/fisioonhand/goSession/session"
)

// Manager owns the process-wide session. Build one with [Builder] at the
// application root and pass it to consumers.
//
// Reads ([Manager.Snapshot] and friends) never block. Mutations are
// linearized by a single writer lock and applied write-through: the durable
// store is updated first, then the in-memory snapshot is swapped, then
// listeners run, all before the mutating call returns.
type Manager struct {
	config  Config
	store   *session.Store
	auth    Authenticator
	logger  *slog.Logger
	metrics *Metrics
	audit   *internalaudit.Dispatcher
	now     func() time.Time

	mu          sync.Mutex
	initialized bool
	ready       chan struct{}

	state atomic.Pointer[session.Session]

	listenersMu  sync.Mutex
	listeners    []listenerEntry
	nextListener uint64
}

type listenerEntry struct {
	id uint64
	fn Listener
}

func newManager(cfg Config, store *session.Store, auth Authenticator, logger *slog.Logger, sink AuditSink) *Manager {
	m := &Manager{
		config:  cfg,
		store:   store,
		auth:    auth,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:      cfg.Audit.Enabled,
			BufferSize:   cfg.Audit.BufferSize,
			DropIfFull:   cfg.Audit.DropIfFull,
			DrainTimeout: cfg.Audit.DrainTimeout,
		}, sink),
		now:   time.Now,
		ready: make(chan struct{}),
	}
	initial := session.Initializing()
	m.state.Store(&initial)
	return m
}

// Initialize loads the persisted session. It runs once; later and concurrent
// calls wait for the first one and return its result.
//
// Initialize never fails: a missing, partial, undecodable, expired or
// revoked stored session, and any store read error, all yield
// StatusUnauthenticated.
func (m *Manager) Initialize(ctx context.Context) Snapshot {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return m.Snapshot()
	}

	restored := m.restore(ctx)
	m.state.Store(&restored)
	m.initialized = true
	close(m.ready)

	m.logger.Info("session.initialized", "status", restored.Status.String())
	m.notify(restored)
	return restored.Clone()
}

func (m *Manager) restore(ctx context.Context) session.Session {
	stored, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound):
		m.metrics.Inc(MetricSessionRestoreEmpty)
		m.logger.Debug("session.restore.empty")
		return session.Unauthenticated()
	case errors.Is(err, session.ErrIncomplete), errors.Is(err, session.ErrMalformed):
		m.metrics.Inc(MetricSessionRestoreMalformed)
		m.logger.Warn("session.restore.malformed", "err", err)
		m.emitAudit(ctx, auditEventSessionRestoreRejected, false, "", fmt.Errorf("%w: %w", ErrMalformedStoredData, err), nil)
		m.purge(ctx, "malformed")
		return session.Unauthenticated()
	case err != nil:
		// The data may be fine; leave it for the next start.
		m.metrics.Inc(MetricSessionRestoreReadFailure)
		m.logger.Warn("session.restore.read_failed", "err", err)
		return session.Unauthenticated()
	}

	userID := stored.Identity.ID

	if m.config.Restore.PurgeExpired {
		if exp, ok := jwt.ExpiresAt(stored.Credential); ok && !exp.After(m.now()) {
			m.metrics.Inc(MetricSessionRestoreRejected)
			m.logger.Info("session.restore.expired", "user_id", userID, "expired_at", exp)
			m.emitAudit(ctx, auditEventSessionRestoreRejected, false, userID, errCredentialExpired, nil)
			m.purge(ctx, "expired")
			return session.Unauthenticated()
		}
	}

	if m.config.Restore.VerifyOnInitialize && m.auth != nil {
		vctx, cancel := context.WithTimeout(ctx, m.config.Restore.VerifyTimeout)
		_, verr := m.auth.Verify(vctx, stored.Credential)
		cancel()

		switch {
		case verr == nil:
		case errors.Is(verr, remote.ErrRejected):
			m.metrics.Inc(MetricSessionRestoreRejected)
			m.logger.Info("session.restore.revoked", "user_id", userID, "err", verr)
			m.emitAudit(ctx, auditEventSessionRestoreRejected, false, userID, fmt.Errorf("%w: %w", ErrAuthenticationFailure, verr), nil)
			m.purge(ctx, "revoked")
			return session.Unauthenticated()
		default:
			m.logger.Warn("session.restore.verify_unavailable", "user_id", userID, "err", verr)
		}
	}

	m.metrics.Inc(MetricSessionRestored)
	m.emitAudit(ctx, auditEventSessionRestored, true, userID, nil, nil)
	return stored
}

// purge deletes whatever is stored. Failures are logged only; the caller has
// already decided the session is absent.
func (m *Manager) purge(ctx context.Context, reason string) {
	wctx, cancel := m.writeContext(ctx)
	defer cancel()
	if err := m.store.Clear(wctx); err != nil {
		m.logger.Warn("session.restore.purge_failed", "reason", reason, "err", err)
	}
}

// SignIn persists credential and identity, then makes them the current
// session. The store write is not cancelled with ctx: once accepted, the call
// runs to completion even if the caller gives up.
//
// On a store failure the in-memory session is left as it was and the error
// has kind FailurePersistence.
func (m *Manager) SignIn(ctx context.Context, credential string, identity Identity) (Snapshot, error) {
	const op = "sign_in"

	if strings.TrimSpace(credential) == "" {
		m.metrics.Inc(MetricSignInInvalid)
		return m.Snapshot(), opError(op, FailureInvalidInput, ErrInvalidCredential)
	}
	if !identity.Valid() {
		m.metrics.Inc(MetricSignInInvalid)
		return m.Snapshot(), opError(op, FailureInvalidInput, ErrInvalidIdentity)
	}
	if err := session.CheckEncodable(identity); err != nil {
		m.metrics.Inc(MetricSignInInvalid)
		return m.Snapshot(), opError(op, FailureInvalidInput, fmt.Errorf("%w: %w", ErrInvalidIdentity, err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return m.Snapshot(), opError(op, FailureNotReady, ErrNotInitialized)
	}

	wctx, cancel := m.writeContext(ctx)
	defer cancel()

	start := time.Now()
	err := m.store.Save(wctx, credential, identity)
	m.metrics.Observe(MetricStoreWriteLatency, time.Since(start))
	if err != nil {
		m.metrics.Inc(MetricSignInFailure)
		m.logger.Error("session.signin.persist_failed", "user_id", identity.ID, "err", err)
		failure := fmt.Errorf("%w: %w", ErrPersistence, err)
		m.emitAudit(ctx, auditEventSignInFailure, false, identity.ID, failure, nil)
		return m.Snapshot(), opError(op, FailurePersistence, failure)
	}

	next := session.Authenticated(credential, identity)
	prev := m.state.Load()
	m.state.Store(&next)

	m.metrics.Inc(MetricSignInSuccess)
	m.logger.Info("session.signin", "user_id", identity.ID)
	m.emitAudit(ctx, auditEventSignIn, true, identity.ID, nil, nil)
	if !prev.Equal(next) {
		m.notify(next)
	}
	return next.Clone(), nil
}

// SignOut deletes the stored session and clears the in-memory one. A failed
// deletion is logged and audited but does not stop the transition. The only
// error is ErrNotInitialized.
func (m *Manager) SignOut(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return m.Snapshot(), opError("sign_out", FailureNotReady, ErrNotInitialized)
	}
	return m.signOutLocked(ctx, "user"), nil
}

func (m *Manager) signOutLocked(ctx context.Context, reason string) Snapshot {
	prev := m.state.Load()
	userID := ""
	if prev.Identity != nil {
		userID = prev.Identity.ID
	}

	wctx, cancel := m.writeContext(ctx)
	defer cancel()

	start := time.Now()
	err := m.store.Clear(wctx)
	m.metrics.Observe(MetricStoreWriteLatency, time.Since(start))
	if err != nil {
		m.metrics.Inc(MetricSignOutDeleteFailure)
		m.logger.Warn("session.signout.delete_failed", "user_id", userID, "reason", reason, "err", err)
		err = fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	next := session.Unauthenticated()
	m.state.Store(&next)

	m.metrics.Inc(MetricSignOut)
	m.logger.Info("session.signout", "user_id", userID, "reason", reason)
	m.emitAudit(ctx, auditEventSignOut, err == nil, userID, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	if !prev.Equal(next) {
		m.notify(next)
	}
	return next
}

func (m *Manager) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)
	if m.config.Store.OperationTimeout > 0 {
		return context.WithTimeout(ctx, m.config.Store.OperationTimeout)
	}
	return ctx, func() {}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Snapshot {
	return m.state.Load().Clone()
}

// Status returns the current lifecycle phase.
func (m *Manager) Status() Status {
	return m.state.Load().Status
}

// Credential returns the current bearer token, if any.
func (m *Manager) Credential() (string, bool) {
	s := m.state.Load()
	return s.Credential, s.Credential != ""
}

// Identity returns a copy of the current practitioner identity, if any.
func (m *Manager) Identity() (Identity, bool) {
	s := m.state.Load()
	if s.Identity == nil {
		return Identity{}, false
	}
	return *s.Identity, true
}

// Ready is closed once Initialize has completed.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// WaitReady blocks until Initialize has completed or ctx is done.
func (m *Manager) WaitReady(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers l for every later transition. The returned function
// removes it and is safe to call more than once.
func (m *Manager) Subscribe(l Listener) (cancel func()) {
	if l == nil {
		return func() {}
	}

	m.listenersMu.Lock()
	m.nextListener++
	id := m.nextListener
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: l})
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			defer m.listenersMu.Unlock()
			for i, entry := range m.listeners {
				if entry.id == id {
					m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// notify runs under m.mu so listeners observe transitions in call order.
func (m *Manager) notify(snap session.Session) {
	m.listenersMu.Lock()
	listeners := make([]listenerEntry, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenersMu.Unlock()

	for _, entry := range listeners {
		m.callListener(entry.fn, snap.Clone())
	}
}

func (m *Manager) callListener(l Listener, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.Inc(MetricListenerPanic)
			m.logger.Error("session.listener.panic", "panic", r)
		}
	}()
	l(snap)
}

// MetricsSnapshot returns the manager's counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped returns the number of audit events that were never delivered:
// dropped under backpressure or abandoned at the Close drain deadline.
func (m *Manager) AuditDropped() uint64 {
	return m.audit.Dropped() + m.audit.Abandoned()
}

// Close delivers queued audit events and stops the dispatcher, waiting at
// most Audit.DrainTimeout. The store backend is owned by the caller and is
// not closed.
func (m *Manager) Close() error {
	if err := m.audit.Close(); err != nil {
		m.logger.Warn("session.audit.drain_incomplete", "err", err)
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
