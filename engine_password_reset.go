package portalguard

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/eduportal/portalguard/internal"
	"github.com/eduportal/portalguard/internal/limiters"
	"github.com/eduportal/portalguard/internal/stores"
)

// RequestPasswordReset issues a single-use reset token for the account
// behind email and mails the reset link. Unknown addresses return nil after
// a small randomized delay, so the endpoint cannot be used to enumerate
// accounts. Issuing replaces any outstanding token for the same email.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.resetStore == nil {
		return ErrEngineNotReady
	}

	normalized := internal.NormalizeEmail(email)
	ip := clientIPFromContext(ctx)

	if err := e.resetLimiter.CheckRequest(ctx, normalized, ip); err != nil {
		return mapResetLimiterError(err)
	}

	user, err := e.lookupAccountByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Indistinguishable from success on the outside.
			if delayErr := sleepEnumerationDelay(ctx); delayErr != nil {
				return delayErr
			}
			e.auditReset(ctx, auditEventResetRequest, normalized, false, "user_not_found")
			return nil
		}
		return err
	}

	token, err := internal.NewResetToken(e.config.Reset.TokenBytes)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(e.config.Reset.TokenTTL)
	if err := e.resetStore.Save(ctx, normalized, internal.HashResetToken(token), expiresAt); err != nil {
		return mapResetStoreError(err)
	}

	mail := composeResetMail(user.Email, token, e.config.Reset.LinkBaseURL)
	if err := e.mailer.Send(ctx, mail); err != nil {
		e.auditReset(ctx, auditEventResetRequest, normalized, false, err.Error())
		return ErrMailerUnavailable
	}

	e.auditReset(ctx, auditEventResetRequest, normalized, true, "")
	return nil
}

// ValidateResetToken reports whether (email, token) names a live token.
// False is the only failure signal: wrong token, expired token, unknown
// email, and store trouble all look the same to the caller.
func (e *Engine) ValidateResetToken(ctx context.Context, email, token string) bool {
	if e == nil || e.resetStore == nil {
		return false
	}

	normalized := internal.NormalizeEmail(email)
	return e.resetStore.Validate(ctx, normalized, internal.HashResetToken(token)) == nil
}

// ConfirmPasswordReset validates the token, pushes the new password to the
// backend, and consumes the token so it can never be replayed. Every
// validation-class failure maps to [ErrResetTokenInvalid]; callers show one
// generic "invalid or expired" message regardless of cause.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	if e == nil || e.resetStore == nil {
		return ErrEngineNotReady
	}

	normalized := internal.NormalizeEmail(email)
	providedHash := internal.HashResetToken(token)

	if err := e.resetStore.Validate(ctx, normalized, providedHash); err != nil {
		e.auditReset(ctx, auditEventResetDenied, normalized, false, err.Error())
		return mapResetStoreError(err)
	}

	user, err := e.lookupAccountByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Token outlived the account; same uniform failure.
			e.auditReset(ctx, auditEventResetDenied, normalized, false, "user_not_found")
			return ErrResetTokenInvalid
		}
		return err
	}

	if err := e.directory.UpdatePassword(ctx, user.ID, newPassword); err != nil {
		return ErrDirectoryUnavailable
	}

	// The password is already updated; a failed consume must not bubble up
	// as a user-facing failure. The audit trail keeps the anomaly.
	if err := e.resetStore.Consume(ctx, normalized, providedHash); err != nil {
		e.auditReset(ctx, auditEventResetConfirm, normalized, true, "consume: "+err.Error())
		return nil
	}

	e.auditReset(ctx, auditEventResetConfirm, normalized, true, "")
	return nil
}

func (e *Engine) lookupAccountByEmail(ctx context.Context, email string) (*UserRecord, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, e.config.Directory.LookupTimeout)
	defer cancel()

	return e.directory.UserByEmail(lookupCtx, email)
}

func (e *Engine) auditReset(ctx context.Context, eventType, email string, success bool, cause string) {
	if e.audit == nil {
		return
	}
	event := newAuditEvent(eventType, success)
	event.Email = email
	event.IP = clientIPFromContext(ctx)
	event.Error = cause
	e.emitAudit(ctx, event)
}

func mapResetLimiterError(err error) error {
	switch {
	case errors.Is(err, limiters.ErrResetRateLimited):
		return ErrResetRateLimited
	default:
		return ErrResetUnavailable
	}
}

func mapResetStoreError(err error) error {
	switch {
	case errors.Is(err, stores.ErrResetNotFound), errors.Is(err, stores.ErrResetMismatch):
		return ErrResetTokenInvalid
	default:
		return ErrResetUnavailable
	}
}

// sleepEnumerationDelay pads the unknown-account path so its latency blends
// into the issue-and-mail path.
func sleepEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	delay := time.Duration(minMs+n.Int64()) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
