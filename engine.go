package portalguard

import (
	"context"

	"github.com/eduportal/portalguard/credential"
	"github.com/eduportal/portalguard/internal/limiters"
	"github.com/eduportal/portalguard/routes"
)

// Engine is the session-authorization core: route-policy evaluation with
// credential verification on one side, the reset token lifecycle on the
// other. Construct it through [Builder.Build]; it is immutable afterwards
// and safe for concurrent use.
type Engine struct {
	config       Config
	verifier     *credential.Verifier
	policy       *routes.Policy
	resetStore   ResetTokenStore
	resetLimiter *limiters.ResetLimiter
	directory    UserDirectory
	mailer       Mailer
	audit        *auditDispatcher
}

// Config returns a copy of the engine's configuration. The HTTP middleware
// reads the cookie name and the unauthorized path from here.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Close stops the audit dispatcher after draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were shed because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Emit(ctx, event)
}
