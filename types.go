package portalguard

import (
	"context"
	"time"
)

// Role is the user type the backend reports in `tipo_usuario`.
type Role string

const (
	// RoleProfessor marks authoring accounts; professors may manage their
	// own posts.
	RoleProfessor Role = "professor"
	// RoleAluno marks student accounts; alunos read but never author.
	RoleAluno Role = "aluno"
	// RoleAdmin marks administrative accounts; admins share the professor
	// surface.
	RoleAdmin Role = "admin"
)

// UserRecord is the directory's view of an account, mirroring the backend's
// JSON shape.
type UserRecord struct {
	ID    int64  `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Tipo  Role   `json:"tipo_usuario"`
}

// DenyReason classifies why the guard denied a request. Reasons never reach
// the client — every denial renders as the same redirect — but they are
// kept distinct on the audit trail.
type DenyReason uint8

const (
	// DenyNone means the request was allowed.
	DenyNone DenyReason = iota
	// DenyNoCredential means the session cookie was absent.
	DenyNoCredential
	// DenyInvalidCredential means signature, format, or expiry verification
	// failed.
	DenyInvalidCredential
	// DenyInsufficientRole means the role gate rejected the identity, or
	// the role lookup failed (fail-closed conflation).
	DenyInsufficientRole
)

func (r DenyReason) String() string {
	switch r {
	case DenyNone:
		return "none"
	case DenyNoCredential:
		return "no_credential"
	case DenyInvalidCredential:
		return "invalid_credential"
	case DenyInsufficientRole:
		return "insufficient_role"
	default:
		return "unknown"
	}
}

// AccessRequest is the guard's view of an inbound request: the path being
// requested and the raw session token from the cookie (empty when the
// cookie is absent).
type AccessRequest struct {
	Path  string
	Token string
}

// Decision is the terminal outcome of [Engine.Authorize] for one request.
//
// When Allowed is true and ForwardIdentity is set, the caller must attach
// UserID to the forwarded request as the x-user-id header; downstream pages
// read it. Requests are evaluated independently — a Decision is never
// cached or reused.
type Decision struct {
	Allowed         bool
	Reason          DenyReason
	UserID          int64
	ForwardIdentity bool
}

// Err translates the decision into the error taxonomy: nil for an allow,
// otherwise the sentinel matching Reason. Callers that prefer errors.Is
// over switching on DenyReason use this.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case DenyNoCredential:
		return ErrNoCredential
	case DenyInsufficientRole:
		return ErrInsufficientRole
	default:
		return ErrInvalidCredential
	}
}

// ResetTokenStore abstracts the reset token table so production can use a
// durable TTL-capable store while tests use the in-memory one. Keys are
// case-folded emails; values are SHA-256 digests of the token string — the
// raw token exists only in the reset e-mail. At most one live record exists
// per email: Save replaces any prior record for the same key.
type ResetTokenStore interface {
	// Save records the token digest, replacing any outstanding record for
	// the same email.
	Save(ctx context.Context, email string, tokenHash [32]byte, expiresAt time.Time) error
	// Validate checks that a live record matches the provided digest
	// exactly. Comparison is constant-time; expired records never match.
	Validate(ctx context.Context, email string, providedHash [32]byte) error
	// Consume deletes the matching record. Absent records are not an
	// error: consume is idempotent.
	Consume(ctx context.Context, email string, providedHash [32]byte) error
}

// UserDirectory is the external users backend the guard and the reset flow
// consult. Implementations must bound their own I/O; callers additionally
// impose a context deadline.
type UserDirectory interface {
	// UserByID resolves an account by numeric id, authenticated with the
	// caller's own session token.
	UserByID(ctx context.Context, id int64, accessToken string) (*UserRecord, error)
	// UserByEmail resolves an account by email for the reset flow.
	// Returns ErrUserNotFound for unknown addresses.
	UserByEmail(ctx context.Context, email string) (*UserRecord, error)
	// UpdatePassword sets a new password for the account. Hashing is the
	// backend's concern.
	UpdatePassword(ctx context.Context, id int64, newPassword string) error
}

// Mail is one outbound message.
type Mail struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers reset e-mails. Delivery failures are surfaced to the
// caller of RequestPasswordReset; they are the only reset-request error the
// client may see besides rate limiting.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}
