// Package identity establishes, tracks, and reacts to changes in a user's
// authenticated identity for the SmartLocal resource-sharing marketplace,
// reconciling sessions with durable profile records and gating access to
// protected views.
//
// Identity lifecycle:
//   - Controller owns the process-wide snapshot {session, user, profile,
//     isLoading}. It bootstraps from the SessionStore exactly once, then is
//     driven purely by change notifications. On a newly authenticated
//     session it resolves the profile, provisioning the default row (100
//     credits, unverified) on first sign-in. A per-event generation counter
//     guarantees a stale resolution never overwrites a newer session.
//   - AccessGuard decides whether a protected view renders, shows a loading
//     indicator, or redirects to authentication while preserving the
//     originally requested destination. RouteGuard adapts it to go-router
//     middleware using the rejected-route cookie.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the controller
//     and the token session store to describe bootstrap, sign-in/out, and
//     provisioning events. Sinks run best-effort (errors are logged) so you
//     can forward to a database or metrics registry without blocking
//     authentication.
//
// Stores:
//   - TokenSessionStore is a complete SessionStore over the accounts
//     repository and signed session tokens; any store honoring the
//     notification ordering contract can replace it.
package identity
