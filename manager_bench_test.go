package goSession

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fisioonhand/goSession/session"
)

func benchManager(b *testing.B, metrics bool) *Manager {
	b.Helper()
	m, err := New().
		WithBackend(session.NewMemoryBackend()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithMetricsEnabled(metrics).
		Build()
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	b.Cleanup(func() { _ = m.Close() })
	m.Initialize(context.Background())
	return m
}

func BenchmarkSnapshotParallel(b *testing.B) {
	m := benchManager(b, false)
	if _, err := m.SignIn(context.Background(), "tok-123", ana()); err != nil {
		b.Fatalf("SignIn: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if m.Snapshot().Status != StatusAuthenticated {
				b.Error("unexpected status")
				return
			}
		}
	})
}

func BenchmarkCredentialParallel(b *testing.B) {
	m := benchManager(b, false)
	if _, err := m.SignIn(context.Background(), "tok-123", ana()); err != nil {
		b.Fatalf("SignIn: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, ok := m.Credential(); !ok {
				b.Error("missing credential")
				return
			}
		}
	})
}

// Readers keep going while one writer alternates sign-in and sign-out.
func BenchmarkSnapshotUnderWrites(b *testing.B) {
	m := benchManager(b, true)
	ctx := context.Background()

	var stop atomic.Bool
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for i := 0; !stop.Load(); i++ {
			if i%2 == 0 {
				_, _ = m.SignIn(ctx, fmt.Sprintf("tok-%d", i), ana())
			} else {
				_, _ = m.SignOut(ctx)
			}
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s := m.Snapshot()
			if s.IsAuthenticated() != (s.Identity != nil) {
				b.Error("mixed snapshot")
				return
			}
		}
	})
	b.StopTimer()

	stop.Store(true)
	<-writerDone
}

func BenchmarkSignInMemoryBackend(b *testing.B) {
	for _, metrics := range []bool{false, true} {
		b.Run(fmt.Sprintf("metrics=%t", metrics), func(b *testing.B) {
			m := benchManager(b, metrics)
			ctx := context.Background()
			credentials := [2]string{"tok-A", "tok-B"}
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := m.SignIn(ctx, credentials[i&1], ana()); err != nil {
					b.Fatalf("SignIn: %v", err)
				}
			}
		})
	}
}

func BenchmarkSignInSignOutCycle(b *testing.B) {
	m := benchManager(b, true)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := m.SignIn(ctx, "tok-123", ana()); err != nil {
			b.Fatalf("SignIn: %v", err)
		}
		if _, err := m.SignOut(ctx); err != nil {
			b.Fatalf("SignOut: %v", err)
		}
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricSignInSuccess)
		}
	})
}

func BenchmarkStoreWriteLatencyObserve(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricStoreWriteLatency, d)
		}
	})
}
