package accounts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

type SessionObject struct {
	AccountID      string     `json:"account_id,omitempty"`
	TokenID        string     `json:"token_id,omitempty"`
	Remember       bool       `json:"remember,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	FirstIssuedAt  *time.Time `json:"first_issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) GetTokenID() string {
	return s.TokenID
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiration() *time.Time {
	return s.ExpirationDate
}

func (s *SessionObject) GetRemember() bool {
	return s.Remember
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"account=%s jti=%s remember=%t iat=%s",
		s.AccountID,
		s.TokenID,
		s.Remember,
		issuedAt,
	)
}

// sessionFromClaims creates a SessionObject from validated token claims
func sessionFromClaims(claims *SessionClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	issuedAt := claims.IssuedAt()
	firstIssuedAt := claims.FirstIssuedAt()
	expiresAt := claims.Expires()

	return &SessionObject{
		AccountID:      claims.AccountID(),
		TokenID:        claims.TokenID(),
		Remember:       claims.Remember,
		IssuedAt:       &issuedAt,
		FirstIssuedAt:  &firstIssuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
