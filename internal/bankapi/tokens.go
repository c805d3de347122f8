package bankapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the diagnostic view of a session token.
type SessionClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// DecodeSessionToken reads the claims of a JWT session token without
// verifying its signature. The client never holds the signing key; the claims
// are only used for log output. Opaque (non-JWT) tokens return an error.
func DecodeSessionToken(token string) (*SessionClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode session token: %w", err)
	}

	out := &SessionClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
