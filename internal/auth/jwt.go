// Package auth holds the pieces of the access controller that do not need
// any storage: signing session tokens, checking configured credentials and
// the HTTP middleware that puts the resolved principal on the request.
//
// SESSION FLOW OVERVIEW:
// 1. Client POSTs /login with username + password
// 2. Credentials are checked against the configured set
// 3. A session record {id, username, expiresAt} is stored server-side
// 4. The session ID is signed into a JWT and set as the "sid" HttpOnly cookie
// 5. On later requests the middleware verifies the JWT, looks the session
//    up and stores the principal in the request context
//
// WHY SIGN A SERVER-SIDE SESSION ID?
// The session record is what makes logout real: deleting it revokes the
// cookie immediately, which a bare stateless JWT cannot do. The signature
// means a forged or guessed ID is rejected before the store is even asked.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<session id>","jti":"<session id>","exp":...,"iss":"fileblog"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every token and required on validation.
const Issuer = "fileblog"

// TokenService signs and verifies session tokens.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a token naming sessionID that stops validating at expiresAt.
func (s *TokenService) Generate(sessionID string, expiresAt time.Time) (string, error) {
	if sessionID == "" {
		return "", errors.New("auth: empty session id")
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token and returns the session ID inside it.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches "fileblog"
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.ID == "" || c.ID != c.Subject {
		return "", fmt.Errorf("auth: token has no session id")
	}

	return c.ID, nil
}
