package goSession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram in [Metrics].
type MetricID uint16

const (
	// MetricSessionRestored counts Initialize calls that restored a session.
	MetricSessionRestored MetricID = iota
	// MetricSessionRestoreEmpty counts Initialize calls that found no session.
	MetricSessionRestoreEmpty
	// MetricSessionRestoreMalformed counts partial or undecodable stored sessions.
	MetricSessionRestoreMalformed
	// MetricSessionRestoreReadFailure counts store read errors during Initialize.
	MetricSessionRestoreReadFailure
	// MetricSessionRestoreRejected counts restored sessions discarded as expired or revoked.
	MetricSessionRestoreRejected
	// MetricSignInSuccess counts completed sign-ins.
	MetricSignInSuccess
	// MetricSignInFailure counts sign-ins that failed to persist.
	MetricSignInFailure
	// MetricSignInInvalid counts sign-ins rejected for invalid input.
	MetricSignInInvalid
	// MetricSignOut counts sign-outs.
	MetricSignOut
	// MetricSignOutDeleteFailure counts sign-outs whose store deletion failed.
	MetricSignOutDeleteFailure
	// MetricLoginSuccess counts successful login flows.
	MetricLoginSuccess
	// MetricLoginFailure counts login flows rejected by the endpoint.
	MetricLoginFailure
	// MetricLoginUnavailable counts login flows that could not reach the endpoint.
	MetricLoginUnavailable
	// MetricRevalidateSuccess counts credentials confirmed by Revalidate.
	MetricRevalidateSuccess
	// MetricRevalidateRejected counts credentials revoked by Revalidate.
	MetricRevalidateRejected
	// MetricListenerPanic counts recovered listener panics.
	MetricListenerPanic
	// MetricStoreWriteLatency is the store write and delete latency histogram.
	MetricStoreWriteLatency
	metricIDCount
)

const cacheLineSize = 64

// StoreWriteLatencyBounds are the inclusive upper bounds of the store write
// latency buckets. A final bucket catches everything slower.
var StoreWriteLatencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(StoreWriteLatencyBounds) + 1

type metricHistogram struct {
	buckets  [histBucketCount]uint64
	sumNanos uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A nil or disabled Metrics
// ignores all updates.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histograms holds
// per-bucket (non-cumulative) counts; HistogramSums the total observed time.
type MetricsSnapshot struct {
	Counters      map[MetricID]uint64
	Histograms    map[MetricID][]uint64
	HistogramSums map[MetricID]time.Duration
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricStoreWriteLatency has buckets.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricStoreWriteLatency {
		return
	}
	if d < 0 {
		d = 0
	}
	h := &m.histograms[id]
	atomic.AddUint64(&h.buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&h.sumNanos, uint64(d))
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, the latency buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}

	s := MetricsSnapshot{
		Counters:      make(map[MetricID]uint64, int(metricIDCount)),
		Histograms:    make(map[MetricID][]uint64, 1),
		HistogramSums: make(map[MetricID]time.Duration, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricStoreWriteLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		h := &m.histograms[MetricStoreWriteLatency]
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&h.buckets[i])
		}
		s.Histograms[MetricStoreWriteLatency] = buckets
		s.HistogramSums[MetricStoreWriteLatency] = time.Duration(atomic.LoadUint64(&h.sumNanos))
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range StoreWriteLatencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(StoreWriteLatencyBounds)
}
