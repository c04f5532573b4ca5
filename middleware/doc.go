// Package middleware adapts the authorization engine to net/http. The
// session guard sits in front of the portal: it reads the session cookie,
// asks the engine for a decision, and either forwards the request (with
// the caller's identity attached for role-gated paths) or redirects to the
// unauthorized page.
package middleware
