package internaldefs

import (
	"strconv"

	goSession "github.com/fisioonhand/goSession"
)

// CounterDef maps a counter to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef maps a latency histogram to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSessionRestored, Name: "gosession_restore_success_total", Help: "Initializations that restored a stored session."},
	{ID: goSession.MetricSessionRestoreEmpty, Name: "gosession_restore_empty_total", Help: "Initializations that found no stored session."},
	{ID: goSession.MetricSessionRestoreMalformed, Name: "gosession_restore_malformed_total", Help: "Stored sessions discarded as partial or undecodable."},
	{ID: goSession.MetricSessionRestoreReadFailure, Name: "gosession_restore_read_failure_total", Help: "Initializations that could not read the store."},
	{ID: goSession.MetricSessionRestoreRejected, Name: "gosession_restore_rejected_total", Help: "Stored sessions discarded as expired or revoked."},
	{ID: goSession.MetricSignInSuccess, Name: "gosession_sign_in_success_total", Help: "Completed sign-ins."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_sign_in_failure_total", Help: "Sign-ins that failed to persist."},
	{ID: goSession.MetricSignInInvalid, Name: "gosession_sign_in_invalid_total", Help: "Sign-ins rejected for invalid input."},
	{ID: goSession.MetricSignOut, Name: "gosession_sign_out_total", Help: "Sign-outs."},
	{ID: goSession.MetricSignOutDeleteFailure, Name: "gosession_sign_out_delete_failure_total", Help: "Sign-outs whose store deletion failed."},
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful login flows."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Login flows rejected by the auth endpoint."},
	{ID: goSession.MetricLoginUnavailable, Name: "gosession_login_unavailable_total", Help: "Login flows that could not reach the auth endpoint."},
	{ID: goSession.MetricRevalidateSuccess, Name: "gosession_revalidate_success_total", Help: "Credentials confirmed by revalidation."},
	{ID: goSession.MetricRevalidateRejected, Name: "gosession_revalidate_rejected_total", Help: "Credentials revoked on revalidation."},
	{ID: goSession.MetricListenerPanic, Name: "gosession_listener_panic_total", Help: "Recovered listener panics."},
}

// StoreWriteLatency is the only histogram the manager records.
var StoreWriteLatency = HistogramDef{
	ID:   goSession.MetricStoreWriteLatency,
	Name: "gosession_store_write_latency_seconds",
	Help: "Session store write and delete latency.",
}

// SessionStatusName is a gauge set to 1 for the current session status and
// 0 for the others, labelled by status.
const SessionStatusName = "gosession_session_status"

// SessionStatusHelp describes SessionStatusName.
const SessionStatusHelp = "Current session lifecycle phase."

// Statuses lists every status label, in lifecycle order.
var Statuses = []goSession.Status{
	goSession.StatusInitializing,
	goSession.StatusUnauthenticated,
	goSession.StatusAuthenticated,
}

// AuditDroppedName counts audit events that never reached the sink.
const AuditDroppedName = "gosession_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped under backpressure or abandoned at shutdown."

// Bucket is one cumulative latency bucket.
type Bucket struct {
	// UpperBound is the le label: seconds, or "+Inf".
	UpperBound string
	Count      uint64
}

// CumulativeBuckets turns per-bucket counts, as found in
// [goSession.MetricsSnapshot], into labelled cumulative buckets ending in
// +Inf. Missing trailing counts are treated as zero.
func CumulativeBuckets(raw []uint64) []Bucket {
	bounds := goSession.StoreWriteLatencyBounds
	out := make([]Bucket, len(bounds)+1)

	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i].Count = running
		if i < len(bounds) {
			out[i].UpperBound = strconv.FormatFloat(bounds[i].Seconds(), 'g', -1, 64)
		} else {
			out[i].UpperBound = "+Inf"
		}
	}
	return out
}
