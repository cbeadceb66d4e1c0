package accounts

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var _ Issuer = (*SessionIssuer)(nil)

// SessionIssuer signs session tokens and manages their lifetime. Remember
// sessions slide: each validated use past half the window re-issues the token
// with a fresh expiry, up to an absolute cap measured from first issuance.
type SessionIssuer struct {
	tokens           TokenService
	revoked          RevokedTokens
	issuer           string
	audience         []string
	sessionDuration  time.Duration
	rememberDuration time.Duration
	maxLifetime      time.Duration
	logger           Logger
	now              func() time.Time
}

type SessionIssuerOption func(*SessionIssuer)

// WithIssuerClock injects a custom clock (useful for tests)
func WithIssuerClock(clock func() time.Time) SessionIssuerOption {
	return func(s *SessionIssuer) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithIssuerLogger(logger Logger) SessionIssuerOption {
	return func(s *SessionIssuer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSessionIssuer returns a new SessionIssuer
func NewSessionIssuer(cfg Config, revoked RevokedTokens, opts ...SessionIssuerOption) *SessionIssuer {
	sessionDuration := 24 * time.Hour
	if cfg.GetSessionDuration() > 0 {
		sessionDuration = time.Duration(cfg.GetSessionDuration()) * time.Hour
	}

	rememberDuration := 7 * 24 * time.Hour
	if cfg.GetRememberDuration() > 0 {
		rememberDuration = time.Duration(cfg.GetRememberDuration()) * time.Hour
	}

	// zero disables the cap, preserving the unbounded renewal of the
	// original cookie behavior
	maxLifetime := time.Duration(cfg.GetMaxSessionLifetime()) * time.Hour

	s := &SessionIssuer{
		tokens:           NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), cfg.GetAudience(), defLogger{}),
		revoked:          revoked,
		issuer:           cfg.GetIssuer(),
		audience:         cfg.GetAudience(),
		sessionDuration:  sessionDuration,
		rememberDuration: rememberDuration,
		maxLifetime:      maxLifetime,
		logger:           defLogger{},
		now:              time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// WithTokenService overrides the token service, mostly for tests
func (s *SessionIssuer) WithTokenService(tokens TokenService) *SessionIssuer {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// IssueSession signs a token binding the account id and issuance time
func (s *SessionIssuer) IssueSession(ctx context.Context, account *Account, remember bool) (string, error) {
	if account == nil || account.ID == uuid.Nil {
		return "", goerrors.New("cannot issue session without an account", goerrors.CategoryInternal)
	}

	now := s.now()
	duration := s.sessionDuration
	if remember {
		duration = s.rememberDuration
	}

	claims := s.newClaims(account.ID.String(), remember, now, now, now.Add(duration))

	return s.tokens.SignClaims(claims)
}

// SessionFromToken validates a raw token and checks the revocation denylist
func (s *SessionIssuer) SessionFromToken(ctx context.Context, raw string) (Session, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		return nil, err
	}

	if tokenID, err := uuid.Parse(session.TokenID); err == nil {
		revoked, err := s.revoked.IsRevoked(ctx, tokenID)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token revocation")
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return session, nil
}

// RenewIfDue re-issues a remember token once more than half its window has
// elapsed, resetting the expiry to a full window from now. The renewed token
// keeps the original issuance time so the absolute cap still applies. Returns
// the new token and true when a renewal happened.
func (s *SessionIssuer) RenewIfDue(ctx context.Context, session Session) (string, bool, error) {
	if session == nil || !session.GetRemember() {
		return "", false, nil
	}

	expires := session.GetExpiration()
	issued := session.GetIssuedAt()
	if expires == nil || issued == nil {
		return "", false, nil
	}

	now := s.now()
	halfway := issued.Add(expires.Sub(*issued) / 2)
	if now.Before(halfway) {
		return "", false, nil
	}

	firstIssued := *issued
	if so, ok := session.(*SessionObject); ok && so.FirstIssuedAt != nil {
		firstIssued = *so.FirstIssuedAt
	}

	newExpiry := now.Add(s.rememberDuration)
	if s.maxLifetime > 0 {
		limit := firstIssued.Add(s.maxLifetime)
		if !now.Before(limit) {
			// session aged out; let it run to its current expiry
			return "", false, nil
		}
		if newExpiry.After(limit) {
			newExpiry = limit
		}
	}

	claims := s.newClaims(session.GetAccountID(), true, now, firstIssued, newExpiry)

	token, err := s.tokens.SignClaims(claims)
	if err != nil {
		return "", false, err
	}

	return token, true, nil
}

// RevokeSession puts the token on the denylist until its natural expiry
func (s *SessionIssuer) RevokeSession(ctx context.Context, session Session) error {
	if session == nil {
		return nil
	}

	tokenID, err := uuid.Parse(session.GetTokenID())
	if err != nil {
		// tokens without a parseable jti cannot be denylisted; they die
		// with the cookie
		s.logger.Warn("revoke skipped for token without jti", "token_id", session.GetTokenID())
		return nil
	}

	accountID, _ := session.GetAccountUUID()

	expiresAt := s.now().Add(s.rememberDuration)
	if exp := session.GetExpiration(); exp != nil && !exp.IsZero() {
		expiresAt = *exp
	}

	return s.revoked.Revoke(ctx, tokenID, accountID, expiresAt)
}

func (s *SessionIssuer) newClaims(accountID string, remember bool, now, firstIssued time.Time, expiresAt time.Time) *SessionClaims {
	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AID:      accountID,
		Remember: remember,
	}

	if remember {
		claims.OriginalIssuedAt = jwt.NewNumericDate(firstIssued)
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}
