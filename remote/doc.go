// Package remote talks to the clinic's authentication endpoint.
//
// Two calls are exposed: [Client.Login] exchanges an email and password for a
// bearer token, and [Client.Verify] resolves a token into the practitioner
// identity. A non-success status is reported as [ErrRejected]. Transport
// failures and 5xx responses are retried with exponential backoff and surface
// as [ErrUnavailable] once the retry budget is spent.
//
// The package never logs passwords or tokens.
package remote
