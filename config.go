package portalguard

import (
	"errors"
	"net/http"
	"time"
)

// Config carries every tunable of the engine. Configure it once, hand it to
// [Builder.WithConfig], and treat it as immutable afterwards.
type Config struct {
	Credential CredentialConfig
	Cookie     CookieConfig
	Routes     RoutesConfig
	Reset      ResetConfig
	Directory  DirectoryConfig
	Audit      AuditConfig
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig governs verification of the signed session token. The
// engine only verifies; the external login endpoint mints.
type CredentialConfig struct {
	// Secret is the HS256 signing secret shared with the login backend.
	Secret []byte
	// Leeway tolerates clock skew on the exp claim. Capped at 2 minutes.
	Leeway time.Duration
	// MaxFutureIAT rejects tokens issued absurdly far in the future.
	MaxFutureIAT time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig mirrors the attributes the login endpoint sets on the
// session cookie. The guard reads Name; the rest documents the contract and
// feeds the gateway when it re-issues attributes.
type CookieConfig struct {
	Name     string
	Path     string
	MaxAge   time.Duration
	SameSite http.SameSite
	Secure   bool
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig declares the protection policy per route pattern.
//
// The historical frontend shipped an allow-by-omission list; any page that
// forgot to register itself was silently public. AllowUnregistered keeps
// that behavior reproducible, but deployments should register every route
// and set it to false so omission fails safe.
type RoutesConfig struct {
	// Protected lists exact paths that require a valid session.
	Protected []string
	// ProtectedPrefixes lists path prefixes that require a valid session.
	ProtectedPrefixes []string
	// RoleGated maps an exact path to the roles allowed through it. The
	// gate consults the directory per request.
	RoleGated map[string][]Role
	// Public lists exact paths that are always allowed, even when
	// AllowUnregistered is false.
	Public []string
	// PublicPrefixes lists always-allowed path prefixes.
	PublicPrefixes []string
	// AllowUnregistered controls the fate of paths matching nothing above.
	AllowUnregistered bool
	// UnauthorizedPath is where every denial redirects.
	UnauthorizedPath string
}

/*
====================================
RESET CONFIG
====================================
*/

// ResetConfig governs the password-reset token lifecycle.
type ResetConfig struct {
	// TokenTTL bounds a token's life from issuance.
	TokenTTL time.Duration
	// TokenBytes is the entropy of a token before hex encoding.
	TokenBytes int
	// MaxRequests is the fixed-window cap on issuance per identifier and
	// per IP. Zero disables throttling.
	MaxRequests int
	// RequestWindow is the width of that fixed window.
	RequestWindow time.Duration
	// LinkBaseURL prefixes the reset link placed in the e-mail.
	LinkBaseURL string
}

/*
====================================
DIRECTORY CONFIG
====================================
*/

// DirectoryConfig bounds calls into the external users backend.
type DirectoryConfig struct {
	// LookupTimeout caps the role lookup during authorization. A timeout
	// denies the request, matching the fail-closed policy.
	LookupTimeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig governs the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking request handling.
	DropIfFull bool
}

func defaultConfig() Config {
	return Config{
		Credential: CredentialConfig{
			Leeway:       0,
			MaxFutureIAT: 10 * time.Minute,
		},
		Cookie: CookieConfig{
			Name:     "accessToken",
			Path:     "/",
			MaxAge:   24 * time.Hour,
			SameSite: http.SameSiteStrictMode,
			Secure:   true,
		},
		Routes: RoutesConfig{
			Protected:         []string{"/", "/search", "/my-posts"},
			ProtectedPrefixes: []string{"/posts"},
			RoleGated: map[string][]Role{
				"/my-posts": {RoleProfessor, RoleAdmin},
			},
			Public:            []string{"/unauthorized", "/login", "/register", "/forgot-password", "/reset-password"},
			AllowUnregistered: true,
			UnauthorizedPath:  "/unauthorized",
		},
		Reset: ResetConfig{
			TokenTTL:      time.Hour,
			TokenBytes:    32,
			MaxRequests:   5,
			RequestWindow: 15 * time.Minute,
			LinkBaseURL:   "http://localhost:3000",
		},
		Directory: DirectoryConfig{
			LookupTimeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

// DefaultConfig returns the portal's stock configuration: the observed
// route set, a 24 h session cookie, and 1 h single-use reset tokens.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Credential.Secret = cloneBytes(cfg.Credential.Secret)
	out.Routes.Protected = cloneStrings(cfg.Routes.Protected)
	out.Routes.ProtectedPrefixes = cloneStrings(cfg.Routes.ProtectedPrefixes)
	out.Routes.Public = cloneStrings(cfg.Routes.Public)
	out.Routes.PublicPrefixes = cloneStrings(cfg.Routes.PublicPrefixes)
	if cfg.Routes.RoleGated != nil {
		out.Routes.RoleGated = make(map[string][]Role, len(cfg.Routes.RoleGated))
		for path, roles := range cfg.Routes.RoleGated {
			out.Routes.RoleGated[path] = append([]Role(nil), roles...)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	if len(c.Credential.Secret) == 0 {
		return errors.New("Credential Secret is required")
	}
	if c.Credential.Leeway < 0 || c.Credential.Leeway > 2*time.Minute {
		return errors.New("Credential Leeway must be within [0, 2m]")
	}
	if c.Credential.MaxFutureIAT < 0 || c.Credential.MaxFutureIAT > 24*time.Hour {
		return errors.New("Credential MaxFutureIAT must be within [0, 24h]")
	}

	if c.Cookie.Name == "" {
		return errors.New("Cookie Name is required")
	}
	if c.Cookie.MaxAge <= 0 {
		return errors.New("Cookie MaxAge must be > 0")
	}

	if c.Routes.UnauthorizedPath == "" {
		return errors.New("Routes UnauthorizedPath is required")
	}
	for path := range c.Routes.RoleGated {
		if len(c.Routes.RoleGated[path]) == 0 {
			return errors.New("Routes RoleGated entries must allow at least one role")
		}
	}

	if c.Reset.TokenTTL <= 0 {
		return errors.New("Reset TokenTTL must be > 0")
	}
	if c.Reset.TokenBytes < 16 {
		return errors.New("Reset TokenBytes must be >= 16")
	}
	if c.Reset.MaxRequests < 0 {
		return errors.New("Reset MaxRequests must be >= 0")
	}
	if c.Reset.MaxRequests > 0 && c.Reset.RequestWindow <= 0 {
		return errors.New("Reset RequestWindow must be > 0 when throttling is enabled")
	}

	if c.Directory.LookupTimeout <= 0 {
		return errors.New("Directory LookupTimeout must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
