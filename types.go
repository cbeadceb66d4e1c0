package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds the attributes of a live auth session
type Session interface {
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetTokenID() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
	GetRemember() bool
}

// Issuer turns a successful credential check into a signed session token and
// validates, renews, and revokes tokens it issued.
type Issuer interface {
	IssueSession(ctx context.Context, account *Account, remember bool) (string, error)
	SessionFromToken(ctx context.Context, raw string) (Session, error)
	RenewIfDue(ctx context.Context, session Session) (string, bool, error)
	RevokeSession(ctx context.Context, session Session) error
}

// AccountFinder is the read surface the revalidation guard needs. The guard
// fetches the account fresh on every request; the token is never authoritative
// for status.
type AccountFinder interface {
	GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// LoginPayload is the request shape the cookie session layer consumes
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetRemember() bool
}

// Config holds accounts options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetSessionDuration() int
	GetRememberDuration() int
	GetMaxSessionLifetime() int
	GetLoginPath() string
	GetExemptPaths() []string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
