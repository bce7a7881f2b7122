package goSession

import (
	"context"
	"testing"

	"github.com/fisioonhand/goSession/session"
)

func TestManagerFromContext(t *testing.T) {
	if _, ok := ManagerFromContext(context.Background()); ok {
		t.Fatal("expected no manager")
	}

	m := newReadyManager(t, session.NewMemoryBackend())
	ctx := WithManager(context.Background(), m)
	got, ok := ManagerFromContext(ctx)
	if !ok || got != m {
		t.Fatal("expected attached manager")
	}

	snap, ok := SnapshotFromContext(ctx)
	if !ok || snap.Status != StatusUnauthenticated {
		t.Fatalf("expected live snapshot, got %+v", snap)
	}
}

func TestPinnedSnapshotSurvivesSignOut(t *testing.T) {
	bg := context.Background()
	m := newReadyManager(t, session.NewMemoryBackend())
	if _, err := m.SignIn(bg, "tok-123", ana()); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	ctx := WithSnapshot(WithManager(bg, m), m.Snapshot())
	if _, err := m.SignOut(bg); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	snap, ok := SnapshotFromContext(ctx)
	if !ok || snap.Credential != "tok-123" {
		t.Fatalf("expected pinned snapshot, got %+v", snap)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want FailureKind
	}{
		{nil, FailureNone},
		{ErrAuthenticationFailure, FailureAuthentication},
		{ErrPersistence, FailurePersistence},
		{ErrInvalidIdentity, FailureInvalidInput},
		{ErrNotInitialized, FailureNotReady},
		{&Error{Op: "x", Kind: FailurePersistence, Err: ErrInvalidIdentity}, FailurePersistence},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
