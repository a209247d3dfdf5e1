package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the user directory record
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Name          string     `bun:"name,notnull" json:"name"`
	Phone         string     `bun:"phone" json:"phone,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

// RevokedToken is a revocation record. TokenID is unique so revoking twice
// leaves a single row.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens,alias:rvk"`
	TokenID       string    `bun:"token_id,pk" json:"token_id"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	RevokedAt     time.Time `bun:"revoked_at,notnull" json:"revoked_at"`
}

// Principal is the identity attached to an authenticated request. It is
// rebuilt on every request and never persisted.
type Principal struct {
	AccountID uuid.UUID  `json:"id"`
	Subject   string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	TokenID   string     `json:"-"`
	ExpiresAt time.Time  `json:"-"`
}

// NewPrincipal builds a Principal from an account and the claims that
// authenticated it.
func NewPrincipal(account *Account, claims *TokenClaims) *Principal {
	p := &Principal{}
	if account != nil {
		p.AccountID = account.ID
		p.Subject = account.Email
		p.Name = account.Name
		p.Phone = account.Phone
		p.CreatedAt = account.CreatedAt
		p.UpdatedAt = account.UpdatedAt
	}
	if claims != nil {
		if p.Subject == "" {
			p.Subject = claims.Subject()
		}
		p.TokenID = claims.TokenID()
		p.ExpiresAt = claims.Expires()
	}
	return p
}

// NormalizeIdentity trims and lower cases an email identity.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
