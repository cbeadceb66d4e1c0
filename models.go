package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the account's lifecycle status
type AccountStatus = string

const (
	// AccountStatusUnverified is the status every new registration starts in.
	// Nothing transitions an account out of it automatically; only an admin
	// unblock moves it to active.
	AccountStatusUnverified AccountStatus = "unverified"
	// AccountStatusActive is set by an admin unblock action
	AccountStatusActive AccountStatus = "active"
	// AccountStatusBlocked accounts cannot log in and lose any live session
	// on their next request
	AccountStatusBlocked AccountStatus = "blocked"
)

// ValidStatus checks the status is one of the known lifecycle states
func ValidStatus(s AccountStatus) bool {
	switch s {
	case AccountStatusUnverified, AccountStatusActive, AccountStatusBlocked:
		return true
	default:
		return false
	}
}

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Email         string        `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string        `bun:"password_hash,notnull" json:"-"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	LastLoginAt   *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	RegisteredAt  time.Time     `bun:"registered_at,notnull" json:"registered_at,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus normalizes a missing status to unverified, the creation default
func (a *Account) EnsureStatus() {
	if a == nil {
		return
	}
	if a.Status == "" {
		a.Status = AccountStatusUnverified
	}
}

// Blocked reports whether the account is in the blocked state
func (a *Account) Blocked() bool {
	return a != nil && a.Status == AccountStatusBlocked
}

// RevokedToken is a denylist entry for a session token that was invalidated
// before its signed expiry. Rows are keyed by the token's jti and become
// purgeable once expires_at passes.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens,alias:rvt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     *uuid.UUID `bun:"account_id" json:"account_id,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero,default:current_timestamp" json:"revoked_at,omitempty"`
}
