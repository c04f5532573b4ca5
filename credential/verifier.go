package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config carries the verification parameters for the session credential.
type Config struct {
	// Secret is the HS256 secret shared with the login backend.
	Secret []byte
	// Leeway tolerates clock skew on time-based claims.
	Leeway time.Duration
	// MaxFutureIAT rejects tokens whose iat lies too far ahead. Zero
	// selects the 10 minute default.
	MaxFutureIAT time.Duration
}

// Claims is the decoded claim set of a session token. The login backend
// writes the subject id under "userId"; expiry rides the registered exp
// claim.
type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// Verifier verifies and decodes session tokens. It is immutable after
// construction and safe for concurrent use.
type Verifier struct {
	config Config
}

// ErrVerification is the uniform verification failure. Callers must not
// branch on the underlying cause; a token either verifies or it does not.
var ErrVerification = errors.New("credential verification failed")

// NewVerifier validates cfg and returns a ready Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}

	return &Verifier{config: cfg}, nil
}

// Verify checks the token's signature and time claims and returns the
// decoded claims. Any failure — bad signature, wrong algorithm, malformed
// token, expired exp — collapses into an error wrapping [ErrVerification].
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(v.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return v.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrVerification, jwt.ErrTokenInvalidClaims)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing userId claim", ErrVerification)
	}
	if claims.IssuedAt != nil && v.config.MaxFutureIAT > 0 {
		maxAllowed := time.Now().Add(v.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrVerification)
		}
	}

	return claims, nil
}

// Sign mints a session token for the given subject. The engine never calls
// this — minting belongs to the login backend — but the development stub
// and the test suites need tokens compatible with Verify.
func (v *Verifier) Sign(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.config.Secret)
}
