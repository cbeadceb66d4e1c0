package accounts

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// DefaultAccountContextKey is the Locals key the guard stores the fresh
// account under when no context key is configured.
const DefaultAccountContextKey = "account"

// RevalidationGuard re-checks the session against the account store on every
// request. The signed token only identifies the account; whether the request
// is admitted depends on the account's current stored state, so a block or a
// delete takes effect on the very next request, not at token expiry.
//
// Requests without a usable token pass through anonymously; handlers that need
// a session gate themselves with RequireSession. Requests whose token points
// at a missing or blocked account get the session revoked, the cookie cleared,
// and a redirect to the login page.
type RevalidationGuard struct {
	finder     AccountFinder
	issuer     Issuer
	cache      StatusCache
	cfg        Config
	contextKey string
	loginPath  string
	exempt     []string
	logger     Logger
}

type RevalidationGuardOption func(*RevalidationGuard)

func WithGuardLogger(logger Logger) RevalidationGuardOption {
	return func(g *RevalidationGuard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithStatusCache adds a short lived status cache in front of the account
// store. Bulk operations invalidate it synchronously, so a cached status is
// never staler than the last committed change.
func WithStatusCache(cache StatusCache) RevalidationGuardOption {
	return func(g *RevalidationGuard) {
		if cache != nil {
			g.cache = cache
		}
	}
}

func NewRevalidationGuard(finder AccountFinder, issuer Issuer, cfg Config, opts ...RevalidationGuardOption) *RevalidationGuard {
	contextKey := cfg.GetContextKey()
	if contextKey == "" {
		contextKey = DefaultAccountContextKey
	}

	loginPath := cfg.GetLoginPath()
	if loginPath == "" {
		loginPath = "/account/login"
	}

	g := &RevalidationGuard{
		finder:     finder,
		issuer:     issuer,
		cfg:        cfg,
		contextKey: contextKey,
		loginPath:  loginPath,
		exempt:     normalizeExemptPaths(cfg.GetExemptPaths(), loginPath),
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Middleware returns the guard as router middleware. Mount it once, ahead of
// every route that can carry a session cookie.
func (g *RevalidationGuard) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if g.isExempt(ctx.Path()) {
				return next(ctx)
			}

			raw := ctx.Cookies(g.contextKey)
			if raw == "" {
				return next(ctx)
			}

			session, err := g.issuer.SessionFromToken(ctx.Context(), raw)
			if err != nil {
				if IsSessionInvalidError(err) {
					// expired, garbled, or revoked: drop the cookie and
					// treat the request as anonymous
					g.logger.Debug("discarding unusable session token: %s", err)
					cookieDel(ctx, g.contextKey)
					return next(ctx)
				}
				return errors.Wrap(err, errors.CategoryInternal, "session validation failed")
			}

			accountID, err := session.GetAccountUUID()
			if err != nil {
				g.logger.Warn("session token carries a bad account id: %s", err)
				cookieDel(ctx, g.contextKey)
				return next(ctx)
			}

			var cachedStatus AccountStatus
			cacheHit := false
			if g.cache != nil {
				status, ok, err := g.cache.Get(ctx.Context(), accountID)
				if err != nil {
					g.logger.Warn("status cache read failed: %s", err)
				} else if ok {
					cacheHit = true
					cachedStatus = status
					if status == AccountStatusBlocked {
						return g.reject(ctx, session)
					}
				}
			}

			account, err := g.finder.GetAccountByID(ctx.Context(), accountID)
			if err != nil {
				if errors.IsNotFound(err) {
					// the account was deleted while the session was live
					return g.reject(ctx, session)
				}
				return errors.Wrap(err, errors.CategoryInternal, "failed to revalidate session account")
			}

			account.EnsureStatus()

			if g.cache != nil && (!cacheHit || cachedStatus != account.Status) {
				if err := g.cache.Set(ctx.Context(), account.ID, account.Status); err != nil {
					g.logger.Warn("status cache write failed: %s", err)
				}
			}

			if account.Blocked() {
				return g.reject(ctx, session)
			}

			g.admit(ctx, account, session)

			if token, renewed, err := g.issuer.RenewIfDue(ctx.Context(), session); err != nil {
				g.logger.Warn("session renewal failed: %s", err)
			} else if renewed {
				duration := 7 * 24 * time.Hour
				if g.cfg.GetRememberDuration() > 0 {
					duration = time.Duration(g.cfg.GetRememberDuration()) * time.Hour
				}
				setCookieToken(ctx, g.contextKey, token, duration)
			}

			return next(ctx)
		}
	}
}

// RequireSession gates a route on a revalidated session. The guard middleware
// must run first; anything it did not admit gets redirected to the login page.
func (g *RevalidationGuard) RequireSession() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if account, ok := FromContext(ctx.Context()); ok && account != nil {
				return next(ctx)
			}
			return redirectToLogin(ctx, g.loginPath)
		}
	}
}

// admit stores the fresh account and session where downstream handlers look
// for them, both in the request context and in router Locals.
func (g *RevalidationGuard) admit(ctx router.Context, account *Account, session Session) {
	reqCtx := WithContext(ctx.Context(), account)
	reqCtx = WithSessionContext(reqCtx, session)
	ctx.SetContext(reqCtx)
	ctx.Locals(g.contextKey, account)
}

// reject handles a live token whose account no longer qualifies: revoke the
// token, clear the cookie, and send the browser to the login page.
func (g *RevalidationGuard) reject(ctx router.Context, session Session) error {
	if err := g.issuer.RevokeSession(ctx.Context(), session); err != nil {
		g.logger.Error("failed to revoke rejected session: %s", err)
	}

	cookieDel(ctx, g.contextKey)

	g.logger.Info("session rejected on revalidation account=%s path=%s", session.GetAccountID(), ctx.Path())

	return redirectToLogin(ctx, g.loginPath)
}

func (g *RevalidationGuard) isExempt(path string) bool {
	for _, prefix := range g.exempt {
		if prefix == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// normalizeExemptPaths always includes the login path so a rejected session
// cannot bounce between the guard and the login page.
func normalizeExemptPaths(paths []string, loginPath string) []string {
	out := make([]string, 0, len(paths)+1)
	seen := map[string]bool{}

	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if p != "/" {
			p = strings.TrimRight(p, "/")
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	add(loginPath)
	for _, p := range paths {
		add(p)
	}

	return out
}
