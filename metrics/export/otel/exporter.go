package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/fisioonhand/goSession"
	"github.com/fisioonhand/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads; *goSession.Manager satisfies it.
type Source interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
	Status() goSession.Status
}

// OTelExporter publishes session metrics as observable instruments read from
// the source on each collection.
type OTelExporter struct {
	source       Source
	registration metric.Registration

	counters     map[goSession.MetricID]metric.Int64ObservableCounter
	status       metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter

	// Store write latency: cumulative buckets labelled le, plus sum and count.
	latencyBuckets metric.Int64ObservableGauge
	latencySum     metric.Float64ObservableGauge
	latencyCount   metric.Int64ObservableGauge
}

// NewOTelExporter registers instruments reading from a session manager.
func NewOTelExporter(meter metric.Meter, manager *goSession.Manager) (*OTelExporter, error) {
	if manager == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, manager)
}

// NewOTelExporterFromSource registers instruments reading from any [Source].
func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		counters: make(map[goSession.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	if err := e.createInstruments(meter); err != nil {
		return nil, err
	}

	observables := []metric.Observable{e.status, e.auditDropped, e.latencyBuckets, e.latencySum, e.latencyCount}
	for _, c := range e.counters {
		observables = append(observables, c)
	}

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) createInstruments(meter metric.Meter) error {
	var err error
	for _, def := range internaldefs.CounterDefs {
		c, cerr := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if cerr != nil {
			return fmt.Errorf("create counter %s: %w", def.Name, cerr)
		}
		e.counters[def.ID] = c
	}

	if e.status, err = meter.Int64ObservableGauge(internaldefs.SessionStatusName,
		metric.WithDescription(internaldefs.SessionStatusHelp)); err != nil {
		return fmt.Errorf("create status gauge: %w", err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp)); err != nil {
		return fmt.Errorf("create audit dropped counter: %w", err)
	}

	def := internaldefs.StoreWriteLatency
	if e.latencyBuckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription("Cumulative store write latency bucket counts.")); err != nil {
		return fmt.Errorf("create latency buckets: %w", err)
	}
	if e.latencySum, err = meter.Float64ObservableGauge(def.Name+"_sum",
		metric.WithDescription("Total observed store write time."), metric.WithUnit("s")); err != nil {
		return fmt.Errorf("create latency sum: %w", err)
	}
	if e.latencyCount, err = meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help)); err != nil {
		return fmt.Errorf("create latency count: %w", err)
	}
	return nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	current := e.source.Status()
	for _, status := range internaldefs.Statuses {
		var v int64
		if status == current {
			v = 1
		}
		o.ObserveInt64(e.status, v, metric.WithAttributes(attribute.String("status", status.String())))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) > 0 {
		for id, c := range e.counters {
			o.ObserveInt64(c, int64(snapshot.Counters[id]))
		}
	}

	id := internaldefs.StoreWriteLatency.ID
	raw, ok := snapshot.Histograms[id]
	if !ok {
		return nil
	}
	buckets := internaldefs.CumulativeBuckets(raw)
	for _, b := range buckets {
		o.ObserveInt64(e.latencyBuckets, int64(b.Count), metric.WithAttributes(attribute.String("le", b.UpperBound)))
	}
	o.ObserveFloat64(e.latencySum, snapshot.HistogramSums[id].Seconds())
	o.ObserveInt64(e.latencyCount, int64(buckets[len(buckets)-1].Count))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
