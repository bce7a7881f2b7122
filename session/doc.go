// Package session provides the practitioner session model, the durable credential
// store, and the compact identity encoding used to persist it.
//
// # Storage layout
//
// A session occupies exactly two keys in a [Backend]: the bearer credential as a plain
// string under "<prefix>token" and the serialized identity under "<prefix>userData".
// Both keys are written in one backend batch and deleted in one backend batch.
//
// # Binary encoding
//
// Identities are written in a versioned binary format. Identities written by the
// original mobile client as JSON objects are still accepted on read. The decoder never
// panics on arbitrary input; anything it cannot parse is reported as [ErrMalformed].
//
// # Architecture boundaries
//
// This package owns the [Store], the [Backend] implementations (memory, bbolt, Redis)
// and the [Session] model. It does NOT decide what a missing or malformed record means
// for the application; that policy belongs to the Manager.
//
// # What this package must NOT do
//
//   - Import goSession, remote, or clinic (no upward imports).
//   - Log or otherwise expose credential values.
package session
