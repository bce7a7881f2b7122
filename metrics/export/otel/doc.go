// Package otel publishes session metrics through an OpenTelemetry meter.
//
// Counters become Int64ObservableCounters. The session status is a gauge
// labelled status; store write latency is exported as a bucket gauge labelled
// le plus _sum and _count gauges. One callback reads the manager per
// collection. Callers own the MeterProvider.
package otel
