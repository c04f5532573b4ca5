package portalguard

import (
	"context"

	"github.com/eduportal/portalguard/routes"
)

// Authorize evaluates one request against the route policy and returns the
// terminal decision. It never returns an error: any failure along the way —
// bad signature, malformed token, role lookup timeout, backend error —
// resolves to a deny. Each request is evaluated independently; nothing is
// cached across calls.
//
// The walk is: route classification, credential presence, signature and
// expiry verification, then the role gate for gated routes. Expiry is
// enforced by the verification step itself; there is no separate re-check.
func (e *Engine) Authorize(ctx context.Context, req AccessRequest) Decision {
	if e == nil || e.verifier == nil || e.policy == nil {
		// Fail closed when called on a half-built engine.
		return Decision{Reason: DenyInvalidCredential}
	}

	access := e.policy.Lookup(req.Path)
	if access.Level == routes.Public {
		return Decision{Allowed: true}
	}

	if req.Token == "" {
		e.auditDeny(ctx, req, 0, DenyNoCredential, "")
		return Decision{Reason: DenyNoCredential}
	}

	claims, err := e.verifier.Verify(req.Token)
	if err != nil {
		e.auditDeny(ctx, req, 0, DenyInvalidCredential, err.Error())
		return Decision{Reason: DenyInvalidCredential}
	}

	if access.Level == routes.RoleGated {
		role, err := e.lookupRole(ctx, claims.UserID, req.Token)
		if err != nil {
			// Backend unreachable and role disallowed look identical to
			// the client; the audit event keeps them apart.
			e.auditDeny(ctx, req, claims.UserID, DenyInsufficientRole, err.Error())
			return Decision{Reason: DenyInsufficientRole}
		}
		if !access.AllowRole(string(role)) {
			e.auditDeny(ctx, req, claims.UserID, DenyInsufficientRole, "")
			return Decision{Reason: DenyInsufficientRole}
		}

		e.auditAllow(ctx, req, claims.UserID)
		return Decision{
			Allowed:         true,
			UserID:          claims.UserID,
			ForwardIdentity: true,
		}
	}

	e.auditAllow(ctx, req, claims.UserID)
	return Decision{
		Allowed: true,
		UserID:  claims.UserID,
	}
}

// UnauthorizedPath is where denied requests are redirected.
func (e *Engine) UnauthorizedPath() string {
	if e == nil {
		return "/unauthorized"
	}
	return e.config.Routes.UnauthorizedPath
}

// SessionCookieName is the cookie the guard reads the credential from.
func (e *Engine) SessionCookieName() string {
	if e == nil {
		return "accessToken"
	}
	return e.config.Cookie.Name
}

func (e *Engine) lookupRole(ctx context.Context, userID int64, accessToken string) (Role, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, e.config.Directory.LookupTimeout)
	defer cancel()

	user, err := e.directory.UserByID(lookupCtx, userID, accessToken)
	if err != nil {
		return "", err
	}
	return user.Tipo, nil
}

func (e *Engine) auditAllow(ctx context.Context, req AccessRequest, userID int64) {
	if e.audit == nil {
		return
	}
	event := newAuditEvent(auditEventAuthorizeAllow, true)
	event.UserID = userID
	event.Path = req.Path
	event.IP = clientIPFromContext(ctx)
	e.emitAudit(ctx, event)
}

func (e *Engine) auditDeny(ctx context.Context, req AccessRequest, userID int64, reason DenyReason, cause string) {
	if e.audit == nil {
		return
	}
	event := newAuditEvent(auditEventAuthorizeDeny, false)
	event.UserID = userID
	event.Path = req.Path
	event.IP = clientIPFromContext(ctx)
	event.Reason = reason.String()
	event.Error = cause
	e.emitAudit(ctx, event)
}
