// Package goSession owns the practitioner session of a Fisio On Hand client:
// it restores the persisted credential at start-up, signs in and out with
// write-through persistence, and tells subscribers about every transition.
//
// A process builds one [Manager] with [Builder], calls [Manager.Initialize]
// once, and hands the manager to consumers directly or through
// [WithManager].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Manager], [Builder], [Config]
// and value types ([Snapshot], [Identity], [MetricsSnapshot]). Key layout and
// identity encoding live in the session package; the HTTP client for the auth
// endpoint lives in remote.
//
// # Guarantees
//
//   - A snapshot is Authenticated exactly when it holds both a credential and
//     an identity. The pair is swapped in one atomic store.
//   - StatusInitializing is never observed after Initialize returns.
//   - SignIn changes memory only after the store write succeeded.
//   - SignOut always leaves the manager signed out.
//   - Listeners see transitions in call order before the caller returns.
//
// # What this package must NOT do
//
//   - Log credentials or passwords.
//   - Terminate the process on any store or network failure.
package goSession
