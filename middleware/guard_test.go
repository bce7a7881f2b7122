package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goSession "github.com/fisioonhand/goSession"
	"github.com/fisioonhand/goSession/jwt"
	"github.com/fisioonhand/goSession/session"
)

func newVerifier(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{TTL: time.Minute, SigningMethod: jwt.MethodHS256, PrivateKey: []byte("middleware-secret")})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	return m
}

func TestRequireBearer(t *testing.T) {
	verifier := newVerifier(t)
	token, _, err := verifier.Issue("u1", "ana@clinic.io")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var gotUID string
	h := RequireBearer(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("claims missing from context")
		}
		gotUID = claims.UID
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer not-a-jwt", http.StatusUnauthorized},
		{"Bearer " + token, http.StatusNoContent},
		{"bearer " + token, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/patients", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("header %q: expected %d, got %d", tc.header, tc.want, rec.Code)
		}
		if rec.Code == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
			t.Fatal("expected WWW-Authenticate on 401")
		}
	}
	if gotUID != "u1" {
		t.Fatalf("expected uid u1, got %q", gotUID)
	}
}

func TestRequireBearerNilVerifier(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireBearer(nil)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireSession(t *testing.T) {
	m, err := goSession.New().WithBackend(session.NewMemoryBackend()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer m.Close()

	var seen string
	h := RequireSession(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, ok := goSession.SnapshotFromContext(r.Context())
		if ok && snap.Identity != nil {
			seen = snap.Identity.Username
		}
		w.WriteHeader(http.StatusOK)
	}))

	serve := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records", nil))
		return rec.Code
	}

	if code := serve(); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while initializing, got %d", code)
	}
	m.Initialize(context.Background())
	if code := serve(); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when signed out, got %d", code)
	}
	if _, err := m.SignIn(context.Background(), "tok-123", goSession.Identity{ID: "u1", Username: "ana"}); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if code := serve(); code != http.StatusOK || seen != "ana" {
		t.Fatalf("expected 200 with snapshot, got %d (%q)", code, seen)
	}
}
