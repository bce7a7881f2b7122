// Package clinic is a session-gated client for the patient API.
//
// Every call reads the bearer token from a [SessionSource] at call time;
// with no session the call fails with [ErrNotAuthenticated] before any
// network I/O. A 401 from the server invokes Config.OnUnauthorized so the
// application can sign out, then fails with [ErrUnauthorized].
//
// Wire field names follow the clinic API (nome_completo, paciente_id, ...).
package clinic
