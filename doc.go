// Package auth provides the credential and session token backend for the
// keepin journal service: password hashing, a bun backed credential store,
// HS256 token issuance and the go-router routes that expose them.
//
// Sessions:
//   - Sign in issues an access token and a refresh token. Both are signed with
//     the same process wide key but carry independent lifetimes.
//   - The refresh token is persisted on the user record. Signing in again
//     replaces it, and RefreshCoordinator can be told to reject any refresh
//     token that is not the stored one.
//   - Access tokens travel in the jwt header and refresh tokens in the
//     refreshToken header. RouteAuthenticator only ever reads the former.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the
//     command handlers to describe signup, login, refresh, profile and password
//     events. Sinks run best-effort (errors are logged) so you can forward to
//     metrics or a queue without blocking authentication.
//
// Errors:
//   - Every failure surfaced to a client is a go-errors value carrying a
//     category and text code. ErrorStatus maps those to HTTP status codes and
//     DefaultErrorHandler renders them as {status, message, code}.
package auth
