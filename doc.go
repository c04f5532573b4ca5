// Package portalguard implements the session-authorization core of the
// Portal Educacional posts platform: a cookie-borne JWT session guard with
// role-gated routes, and the single-use, time-limited password-reset token
// lifecycle behind the forgot-password flow.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], and the decision/record value types. Token generation and
// hashing, the redis and in-memory reset stores, and the reset rate limiter
// live under internal/ and are never exported.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build]. The guard itself holds no mutable
// state: [Engine.Authorize] is a pure function of the request, the signing
// secret, and the directory role lookup. All mutable state is confined to
// the reset token store, which only the three reset operations touch.
//
// # Architecture boundaries
//
//   - portalguard verifies session credentials; it never mints them. Login
//     and registration belong to the external backend.
//   - Every denial is uniform: the guard reports a [Decision], the HTTP
//     middleware turns it into a redirect, and reset failures collapse into
//     [ErrResetTokenInvalid]. No internal cause ever reaches the client.
//   - Backend failures during a role lookup deny access (fail-closed); the
//     distinct cause is preserved on the audit trail only.
package portalguard
