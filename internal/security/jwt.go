package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAssertionTTL is the assertion lifetime used when no TTL is
// configured.
const DefaultAssertionTTL = 15 * time.Minute

var (
	ErrAssertionExpired   = errors.New("assertion expired")
	ErrBadSignature       = errors.New("assertion signature invalid")
	ErrAssertionMalformed = errors.New("assertion malformed")
)

// AssertionClaims binds a credential-stage success to an identity: sub carries
// the user UUID, username the login name. The assertion is the only proof of
// stage-1 completion; no server-side session state exists.
type AssertionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies session assertions with a process-wide HS256
// secret. The secret is injected at construction and never logged.
type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
}

func NewJWTManager(issuer, audience, secret string) *JWTManager {
	return &JWTManager{issuer: issuer, audience: audience, secret: []byte(secret)}
}

// SignAssertion encodes {sub, username, exp=now+ttl}. A zero ttl produces an
// immediately expiring assertion; callers wanting the default pass
// DefaultAssertionTTL explicitly (config.Load does).
func (m *JWTManager) SignAssertion(uuid, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AssertionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseAssertion verifies signature, issuer, audience, and expiry. Expiry is
// enforced even when the signature is valid. Failures are distinguishable so
// the orchestrator can decide whether the caller must restart at stage 1.
func (m *JWTManager) ParseAssertion(token string) (*AssertionClaims, error) {
	claims := &AssertionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrAssertionExpired
		default:
			return nil, ErrAssertionMalformed
		}
	}
	if claims.Subject == "" || claims.Username == "" {
		return nil, ErrAssertionMalformed
	}
	return claims, nil
}
