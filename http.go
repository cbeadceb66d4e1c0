package accounts

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// CookieSessions binds the credential check and the token issuer to the HTTP
// cookie surface. The session token travels in an HTTPOnly cookie named after
// the configured context key.
type CookieSessions struct {
	manager                *AccountManager
	issuer                 Issuer
	cfg                    Config
	extendedCookieDuration time.Duration
	Logger                 Logger
	AuthErrorHandler       func(c router.Context, err error) error
	ErrorHandler           func(c router.Context, err error) error
}

func NewCookieSessions(manager *AccountManager, issuer Issuer, cfg Config) (*CookieSessions, error) {
	extendedCookieDuration := 7 * 24 * time.Hour
	if cfg.GetRememberDuration() > 0 {
		extendedCookieDuration = time.Duration(cfg.GetRememberDuration()) * time.Hour
	}

	a := &CookieSessions{
		cfg:                    cfg,
		manager:                manager,
		issuer:                 issuer,
		Logger:                 defLogger{},
		extendedCookieDuration: extendedCookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a CookieSessions) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

// Login verifies the credentials, issues a session token, and sets the
// session cookie. Remember-me gets a persistent cookie with the extended
// duration; otherwise the cookie is session scoped and the browser drops it
// when the client session ends. The token expiry still bounds both.
func (a *CookieSessions) Login(ctx router.Context, payload LoginPayload) (*Account, error) {
	account, err := a.manager.Authenticate(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return nil, err
	}

	token, err := a.issuer.IssueSession(ctx.Context(), account, payload.GetRemember())
	if err != nil {
		a.Logger.Error("Session issue error: %s", err)
		return nil, err
	}

	if payload.GetRemember() {
		setCookieToken(ctx, a.cfg.GetContextKey(), token, a.extendedCookieDuration)
	} else {
		setSessionCookieToken(ctx, a.cfg.GetContextKey(), token)
	}

	return account, nil
}

// Logout revokes the current session token, if any, and deletes the cookie.
// A bad or missing token still clears the cookie.
func (a *CookieSessions) Logout(ctx router.Context) {
	if raw := ctx.Cookies(a.cfg.GetContextKey()); raw != "" {
		session, err := a.issuer.SessionFromToken(ctx.Context(), raw)
		if err == nil {
			if err := a.issuer.RevokeSession(ctx.Context(), session); err != nil {
				a.Logger.Error("Failed to revoke session on logout: %s", err)
			}
		}
	}

	cookieDel(ctx, a.cfg.GetContextKey())
}

// RefreshCookie replaces the session cookie after a sliding renewal
func (a *CookieSessions) RefreshCookie(ctx router.Context, token string, remember bool) {
	if !remember {
		setSessionCookieToken(ctx, a.cfg.GetContextKey(), token)
		return
	}
	setCookieToken(ctx, a.cfg.GetContextKey(), token, a.extendedCookieDuration)
}

func (a *CookieSessions) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return redirectToLogin(c, a.cfg.GetLoginPath())
}

func (a *CookieSessions) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

// redirectToLogin sends the browser to the login page. GET requests use 302;
// everything else uses 303 so the follow-up request is a GET.
func redirectToLogin(c router.Context, loginPath string) error {
	if loginPath == "" {
		loginPath = "/account/login"
	}

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(loginPath, statusCode)
}

func setCookieToken(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// setSessionCookieToken sets the token in a cookie with no Expires or MaxAge,
// valid only for the current client session.
func setSessionCookieToken(c router.Context, name, val string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
