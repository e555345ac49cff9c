package identity

import (
	"context"
	stderrors "errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterAuthRoutes mounts the authentication entry point plus the sign-in,
// sign-up, and sign-out flows.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Auth, controller.AuthShow).
		SetName("auth.get")

	app.Post(controller.Routes.SignIn, controller.SignInPost).
		SetName("sign-in.post")

	app.Post(controller.Routes.SignUp, controller.SignUpPost).
		SetName("sign-up.post")

	app.Get(controller.Routes.SignOut, controller.SignOutGet).
		SetName("sign-out.get")
}

type AuthControllerRoutes struct {
	Auth    string
	SignIn  string
	SignUp  string
	SignOut string
}

type AuthControllerViews struct {
	Auth    string
	Loading string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Store        SessionStore
	Identity     *Controller
	Repo         RepositoryManager
	Guard        *RouteGuard
	Notifier     Notifier
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithAuthStore(store SessionStore) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Store = store
		return c
	}
}

func WithAuthIdentity(controller *Controller) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Identity = controller
		return c
	}
}

func WithAuthRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithAuthGuard(guard *RouteGuard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

func WithAuthNotifier(n Notifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Notifier = normalizeNotifier(n)
		return c
	}
}

func WithAuthLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		Notifier:     noopNotifier{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Auth:    "/auth",
			SignIn:  "/auth/sign-in",
			SignUp:  "/auth/sign-up",
			SignOut: "/auth/sign-out",
		},
		Views: &AuthControllerViews{
			Auth:    "auth",
			Loading: "loading",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Store == nil {
		panic("Missing SessionStore in auth controller...")
	}

	if c.Identity == nil {
		panic("Missing identity Controller in auth controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in auth controller...")
	}

	return c
}

// AuthShow renders the tabbed sign-in/sign-up page. An already authenticated
// visitor is sent back to the page they originally requested.
func (a *AuthController) AuthShow(ctx router.Context) error {
	snap := a.Identity.Snapshot()

	if snap.IsLoading {
		return ctx.Render(a.Views.Loading, router.ViewContext{
			"message": "Checking your session",
		})
	}

	if snap.User != nil {
		redirect := a.Guard.GetRedirectOrDefault(ctx)
		return ctx.Redirect(redirect, router.StatusSeeOther)
	}

	return ctx.Render(a.Views.Auth, router.ViewContext{
		"tab":    ctx.Query("tab", "signin"),
		"errors": nil,
		"record": nil,
	})
}

// SignInRequest payload
type SignInRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
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

func (a *AuthController) SignInPost(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Auth, router.ViewContext{
			"tab":        "signin",
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGN IN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	if _, err := a.Store.SignInWithPassword(ctx.Context(), payload.Email, payload.Password); err != nil {
		a.Logger.Error("Sign in error: %s", err)
		a.notify(ctx.Context(), Notification{
			Title:       "Error signing in",
			Description: "Unable to sign in. Please check your credentials and try again.",
			Severity:    SeverityError,
		})
		return ctx.Render(a.Views.Auth, router.ViewContext{
			"tab":    "signin",
			"record": payload,
			"errors": map[string]string{"authentication": "Invalid email or password"},
		})
	}

	a.notify(ctx.Context(), Notification{
		Title:       "Welcome back!",
		Description: "Successfully signed in.",
		Severity:    SeveritySuccess,
	})

	redirect := a.Guard.GetRedirect(ctx)
	return ctx.Redirect(redirect, router.StatusSeeOther)
}

// SignUpRequest is the registration payload
type SignUpRequest struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign up parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Auth, router.ViewContext{
			"tab":    "signup",
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("sign up validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Auth, router.ViewContext{
			"tab":        "signup",
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	confirmTarget := a.Routes.Auth + "?tab=signin"

	user, err := a.Store.SignUp(ctx.Context(), payload.Email, payload.Password, confirmTarget)
	if err != nil {
		a.Logger.Error("sign up error: ", "error", err)
		a.notify(ctx.Context(), Notification{
			Title:       "Error signing up",
			Description: "Unable to sign up. Please try again later.",
			Severity:    SeverityError,
		})
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering account",
		}).Render(a.Views.Auth, router.ViewContext{
			"tab":    "signup",
			"record": payload,
			"errors": map[string]string{"registration": err.Error()},
		})
	}

	// Provision the profile eagerly so the first sign-in finds it; the
	// controller provisions on first session observation either way.
	if a.Repo != nil {
		if _, err := a.Repo.Profiles().Provision(ctx.Context(), user.ID); err != nil {
			a.Logger.Error("profile provisioning on sign up failed", "user_id", user.ID, "error", err)
		}
	}

	a.notify(ctx.Context(), Notification{
		Title:       "Success!",
		Description: "Check your email for the confirmation link.",
		Severity:    SeveritySuccess,
	})

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account created, check your email for the confirmation link",
	}).Redirect(confirmTarget, fiber.StatusSeeOther)
}

func (a *AuthController) SignOutGet(ctx router.Context) error {
	if err := a.Identity.SignOut(ctx.Context()); err != nil {
		// Local state is cleared regardless; the remote failure is only
		// surfaced as a notice.
		a.notify(ctx.Context(), Notification{
			Title:       "Sign out issue",
			Description: "You have been signed out locally, but the session service reported an error.",
			Severity:    SeverityError,
		})
	}

	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) notify(ctx context.Context, n Notification) {
	if err := normalizeNotifier(a.Notifier).Notify(ctx, n); err != nil {
		a.Logger.Warn("auth controller notifier error: %v", err)
	}
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["validation"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
