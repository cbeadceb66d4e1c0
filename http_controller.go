package accounts

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// RegisterAccountRoutes mounts the public account routes: registration,
// login, and logout.
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {
	controller := NewAccountController(opts...)

	app.Get(controller.Routes.Register, controller.RegisterShow).
		SetName("account-register.get")
	app.Post(controller.Routes.Register, controller.RegisterCreate).
		SetName("account-register.post")

	app.Get(controller.Routes.Login, controller.LoginShow).
		SetName("account-login.get")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("account-login.post")

	app.Post(controller.Routes.Logout, controller.Logout).
		SetName("account-logout.post")
}

// RegisterAdminRoutes mounts the account administration routes behind the
// guard's session gate.
func RegisterAdminRoutes[T any](app router.Router[T], guard *RevalidationGuard, opts ...AdminControllerOption) {
	controller := NewAdminController(opts...)

	app.Get(controller.Routes.Index, guard.RequireSession()(controller.Index)).
		SetName("admin-accounts.get")
	app.Post(controller.Routes.BulkAction, guard.RequireSession()(controller.BulkAction)).
		SetName("admin-accounts-bulk.post")
}

type AccountControllerRoutes struct {
	Register string
	Login    string
	Logout   string
}

type AccountControllerViews struct {
	Register string
	Login    string
}

type AccountController struct {
	Debug        bool
	Logger       Logger
	Manager      *AccountManager
	Sessions     *CookieSessions
	Routes       *AccountControllerRoutes
	Views        *AccountControllerViews
	SuccessPath  string
	ErrorHandler router.ErrorHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func WithAccountManager(manager *AccountManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Manager = manager
		return c
	}
}

func WithCookieSessions(sessions *CookieSessions) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Sessions = sessions
		return c
	}
}

func WithAccountLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAccountDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		SuccessPath:  "/admin",
		Routes: &AccountControllerRoutes{
			Register: "/account/register",
			Login:    "/account/login",
			Logout:   "/account/logout",
		},
		Views: &AccountControllerViews{
			Register: "register",
			Login:    "login",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing AccountManager in account controller...")
	}

	if c.Sessions == nil {
		panic("Missing CookieSessions in account controller...")
	}

	return c
}

func (a *AccountController) RegisterShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterAccountMessage{},
	})
}

// RegisterCreatePayload is the registration form payload
type RegisterCreatePayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r RegisterCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) RegisterCreate(ctx router.Context) error {
	payload := new(RegisterCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register account parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register account validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	msg := RegisterAccountMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	}

	if _, err := a.Manager.Register(ctx.Context(), msg); err != nil {
		a.Logger.Error("register account error: ", "error", err)

		errs := map[string]string{}
		if IsConflictError(err) {
			errs["email"] = "Email already exists"
		} else {
			errs["registration"] = "Registration failed"
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": errs,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful account registration",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *AccountController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the email used to log in
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetRemember reports whether the session should outlive the browser session
func (r LoginRequest) GetRemember() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AccountController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	if _, err := a.Sessions.Login(ctx, payload); err != nil {
		errs := map[string]string{}
		if IsBlockedError(err) {
			errs["authentication"] = "Your account is blocked"
		} else {
			errs["authentication"] = "Invalid email or password"
		}

		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	return ctx.Redirect(a.SuccessPath, router.StatusSeeOther)
}

func (a *AccountController) Logout(ctx router.Context) error {
	a.Sessions.Logout(ctx)
	return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
}

type AdminControllerRoutes struct {
	Index      string
	BulkAction string
}

type AdminControllerViews struct {
	Index string
}

type AdminController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Operator     *BulkOperator
	Routes       *AdminControllerRoutes
	Views        *AdminControllerViews
	ErrorHandler router.ErrorHandler
}

type AdminControllerOption func(*AdminController) *AdminController

func WithAdminRepository(repo RepositoryManager) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		c.Repo = repo
		return c
	}
}

func WithBulkOperator(operator *BulkOperator) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		c.Operator = operator
		return c
	}
}

func WithAdminLogger(logger Logger) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func NewAdminController(opts ...AdminControllerOption) *AdminController {
	c := &AdminController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AdminControllerRoutes{
			Index:      "/admin",
			BulkAction: "/admin/bulk-action",
		},
		Views: &AdminControllerViews{
			Index: "admin",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in admin controller...")
	}

	if c.Operator == nil {
		panic("Missing BulkOperator in admin controller...")
	}

	return c
}

// Index lists every account, most recently logged in first
func (a *AdminController) Index(ctx router.Context) error {
	records, err := a.Repo.Accounts().ListByLastLogin(ctx.Context())
	if err != nil {
		a.Logger.Error("admin list accounts: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	current, _ := FromContext(ctx.Context())

	return ctx.Render(a.Views.Index, router.ViewContext{
		"records": records,
		"current": current,
	})
}

// BulkActionPayload carries the admin form selection
type BulkActionPayload struct {
	Action string   `form:"action" json:"action"`
	IDs    []string `form:"ids" json:"ids"`
}

// Validate will run validation rules
func (r BulkActionPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required),
		validation.Field(&r.IDs, validation.Each(is.UUIDv4)),
	)
}

func (a *AdminController) BulkAction(ctx router.Context) error {
	payload := new(BulkActionPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("admin bulk action parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Redirect(a.Routes.Index, fiber.StatusSeeOther)
	}

	action, err := ParseBulkAction(payload.Action)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Unknown bulk action",
		}).Redirect(a.Routes.Index, fiber.StatusSeeOther)
	}

	ids, err := parseAccountIDs(payload.IDs)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Invalid account selection",
		}).Redirect(a.Routes.Index, fiber.StatusSeeOther)
	}

	affected, err := a.Operator.Apply(ctx.Context(), action, ids)
	if err != nil {
		a.Logger.Error("admin bulk action error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Bulk action failed",
		}).Redirect(a.Routes.Index, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("Applied %s to %d account(s)", action, affected),
	}).Redirect(a.Routes.Index, fiber.StatusSeeOther)
}

func parseAccountIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid account id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatValidationErrorToMap flattens an ozzo validation error into a field
// to message map for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			if fieldErr != nil {
				out[field] = fieldErr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
