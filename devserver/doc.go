// Package devserver is an in-memory stand-in for the clinic backend.
//
// It serves the remote auth endpoints (/auth/login, /auth/verify) and the
// patient API under the same paths as production, so the session manager,
// the clinic client and the CLI can run end to end without the real service.
// Practitioner passwords are Argon2id hashes and tokens are signed JWTs;
// revoked tokens live in memory or, when configured, in Redis.
package devserver
