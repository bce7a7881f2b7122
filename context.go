package goSession

import "context"

type managerContextKey struct{}
type snapshotContextKey struct{}

// WithManager attaches m to ctx so request-scoped code can reach the
// application's session without a global.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerContextKey{}, m)
}

// ManagerFromContext returns the manager attached with [WithManager].
func ManagerFromContext(ctx context.Context) (*Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	m, ok := ctx.Value(managerContextKey{}).(*Manager)
	return m, ok && m != nil
}

// WithSnapshot pins a snapshot to ctx, so a unit of work sees one consistent
// session even if a sign-out happens midway.
func WithSnapshot(ctx context.Context, snap Snapshot) context.Context {
	return context.WithValue(ctx, snapshotContextKey{}, snap.Clone())
}

// SnapshotFromContext returns the pinned snapshot, falling back to the
// attached manager's current snapshot.
func SnapshotFromContext(ctx context.Context) (Snapshot, bool) {
	if ctx == nil {
		return Snapshot{}, false
	}
	if snap, ok := ctx.Value(snapshotContextKey{}).(Snapshot); ok {
		return snap.Clone(), true
	}
	if m, ok := ManagerFromContext(ctx); ok {
		return m.Snapshot(), true
	}
	return Snapshot{}, false
}
