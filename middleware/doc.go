// Package middleware gates HTTP handlers on authentication.
//
// # Guards
//
//   - [RequireBearer]: server side. Verifies the Authorization bearer token
//     with a [TokenVerifier] and injects the claims into the request context.
//   - [RequireSession]: client side. Lets a request through only while the
//     local session manager is authenticated and pins that snapshot to the
//     request context.
//
// # What this package must NOT do
//
//   - Issue tokens or change session state.
//   - Log bearer tokens.
package middleware
