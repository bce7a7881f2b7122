package goSession

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fisioonhand/goSession/remote"
	"github.com/fisioonhand/goSession/session"
)

// faultyBackend wraps a MemoryBackend with switchable failures.
type faultyBackend struct {
	*session.MemoryBackend
	failGet    atomic.Bool
	failPut    atomic.Bool
	failDelete atomic.Bool
	gets       atomic.Int32
}

func newFaultyBackend() *faultyBackend {
	return &faultyBackend{MemoryBackend: session.NewMemoryBackend()}
}

func (f *faultyBackend) Get(ctx context.Context, key string) ([]byte, error) {
	f.gets.Add(1)
	if f.failGet.Load() {
		return nil, fmt.Errorf("%w: read failed", session.ErrBackendUnavailable)
	}
	return f.MemoryBackend.Get(ctx, key)
}

func (f *faultyBackend) PutAll(ctx context.Context, entries map[string][]byte) error {
	if f.failPut.Load() {
		return fmt.Errorf("%w: disk full", session.ErrBackendUnavailable)
	}
	return f.MemoryBackend.PutAll(ctx, entries)
}

func (f *faultyBackend) DeleteAll(ctx context.Context, keys ...string) error {
	if f.failDelete.Load() {
		return fmt.Errorf("%w: read-only", session.ErrBackendUnavailable)
	}
	return f.MemoryBackend.DeleteAll(ctx, keys...)
}

type fakeAccount struct {
	password string
	token    string
	identity session.Identity
}

// fakeAuth is an in-memory Authenticator.
type fakeAuth struct {
	mu          sync.Mutex
	accounts    map[string]fakeAccount
	tokens      map[string]session.Identity
	down        bool
	verifyCalls int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{accounts: map[string]fakeAccount{}, tokens: map[string]session.Identity{}}
}

func (a *fakeAuth) addAccount(email, password, token string, id session.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[email] = fakeAccount{password: password, token: token, identity: id}
	a.tokens[token] = id
}

func (a *fakeAuth) revoke(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tokens, token)
}

func (a *fakeAuth) setDown(down bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.down = down
}

func (a *fakeAuth) Login(_ context.Context, email, password string) (remote.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.down {
		return remote.Token{}, fmt.Errorf("%w: connection refused", remote.ErrUnavailable)
	}
	acc, ok := a.accounts[email]
	if !ok || acc.password != password {
		return remote.Token{}, fmt.Errorf("%w: status 401", remote.ErrRejected)
	}
	return remote.Token{Value: acc.token}, nil
}

func (a *fakeAuth) Verify(_ context.Context, credential string) (session.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.verifyCalls++
	if a.down {
		return session.Identity{}, fmt.Errorf("%w: connection refused", remote.ErrUnavailable)
	}
	id, ok := a.tokens[credential]
	if !ok {
		return session.Identity{}, fmt.Errorf("%w: status 401", remote.ErrRejected)
	}
	return id, nil
}

type managerOption func(b *Builder)

func withAuth(auth Authenticator) managerOption {
	return func(b *Builder) { b.WithAuthenticator(auth) }
}

func withConfig(mut func(cfg *Config)) managerOption {
	return func(b *Builder) {
		mut(&b.config)
	}
}

func newTestManager(t *testing.T, backend session.Backend, opts ...managerOption) *Manager {
	t.Helper()
	b := New().WithBackend(backend).WithMetricsEnabled(true)
	for _, opt := range opts {
		opt(b)
	}
	m, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newReadyManager(t *testing.T, backend session.Backend, opts ...managerOption) *Manager {
	t.Helper()
	m := newTestManager(t, backend, opts...)
	m.Initialize(context.Background())
	return m
}

func ana() Identity {
	return Identity{ID: "u1", Username: "ana", Email: "ana@clinic.io", CrefitoID: "CREFITO-3/12345-F"}
}

func assertConsistent(t *testing.T, s Snapshot) {
	t.Helper()
	hasCred := s.Credential != ""
	hasID := s.Identity != nil
	switch s.Status {
	case StatusAuthenticated:
		if !hasCred || !hasID {
			t.Fatalf("authenticated snapshot missing half of the pair: %+v", s)
		}
	default:
		if hasCred || hasID {
			t.Fatalf("%s snapshot carries session data: %+v", s.Status, s)
		}
	}
}
