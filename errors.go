package portalguard

import "errors"

var (
	// ErrNoCredential is returned by [Decision.Err] when a protected route
	// was requested without a session cookie.
	ErrNoCredential = errors.New("no session credential")
	// ErrInvalidCredential is returned by [Decision.Err] when the session
	// token failed signature verification, was malformed, or had expired.
	ErrInvalidCredential = errors.New("invalid session credential")
	// ErrInsufficientRole is returned by [Decision.Err] when the decoded
	// identity lacked the role a route requires, or when the role lookup
	// itself failed. The two causes are deliberately conflated: the guard
	// fails closed.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrResetTokenInvalid is the uniform failure for every reset-token
	// validation problem: unknown email, wrong token, expired token.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
	// ErrResetRateLimited is returned when reset issuance or confirmation
	// exceeds the configured fixed window.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrResetUnavailable is returned when the reset token store cannot be
	// reached.
	ErrResetUnavailable = errors.New("password reset backend unavailable")
	// ErrDirectoryUnavailable is returned by directory implementations when
	// the users backend cannot be reached or answers with a server error.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrUserNotFound is returned by directory implementations when no
	// account matches the requested id or email.
	ErrUserNotFound = errors.New("user not found")
	// ErrMailerUnavailable is returned when the reset e-mail could not be
	// handed to the delivery backend.
	ErrMailerUnavailable = errors.New("mailer unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// nil or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
