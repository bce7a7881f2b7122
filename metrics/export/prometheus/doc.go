// Package prometheus renders session metrics in the Prometheus text format.
//
// [NewPrometheusExporter] wraps a [goSession.Manager] and exposes an
// [http.Handler]. The gosession_session_status gauge is always present;
// counters (gosession_*_total) and the gosession_store_write_latency_seconds
// histogram appear once the manager has metrics enabled.
//
// Nothing is registered globally; callers mount the handler.
package prometheus
