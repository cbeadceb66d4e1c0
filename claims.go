package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the JWT payload for a session token. The token carries the
// account id and issuance metadata only; account status is always re-read from
// the store, never trusted from the token.
type SessionClaims struct {
	jwt.RegisteredClaims
	AID      string `json:"aid,omitempty"`
	Remember bool   `json:"rmb,omitempty"`
	// OriginalIssuedAt survives sliding renewals so the absolute session
	// lifetime cap is measured from the first issuance, not the latest.
	OriginalIssuedAt *jwt.NumericDate `json:"oat,omitempty"`
}

// AccountID returns the account id bound to the token
func (c *SessionClaims) AccountID() string {
	if c.AID != "" {
		return c.AID
	}
	return c.RegisteredClaims.Subject
}

// TokenID returns the jti, the key used for revocation
func (c *SessionClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// FirstIssuedAt returns the original issuance time, falling back to iat for
// tokens that were never renewed.
func (c *SessionClaims) FirstIssuedAt() time.Time {
	if c.OriginalIssuedAt != nil {
		return c.OriginalIssuedAt.Time
	}
	return c.IssuedAt()
}
