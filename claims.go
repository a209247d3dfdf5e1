package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the claim set carried by every bearer token.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// Subject returns the subject claim, the account email
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// TokenID returns the jti claim
func (c *TokenClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time, zero when absent
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAt returns the issued-at time, zero when absent
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// Revocable reports whether the claims carry what is needed to add the
// token to a revocation store.
func (c *TokenClaims) Revocable() bool {
	return c != nil && c.TokenID() != "" && !c.Expires().IsZero()
}
