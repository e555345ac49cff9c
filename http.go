package identity

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// RouteGuard adapts the AccessGuard to go-router middleware. Redirects carry
// the originally requested URL in the rejected-route cookie so the auth flow
// can send the user back after a successful sign-in.
type RouteGuard struct {
	controller  *Controller
	guard       *AccessGuard
	cfg         Config
	Logger      Logger
	loadingView string
}

func NewRouteGuard(controller *Controller, cfg Config, guard *AccessGuard) *RouteGuard {
	loadingView := "loading"
	if cfg.GetLoadingView() != "" {
		loadingView = cfg.GetLoadingView()
	}

	return &RouteGuard{
		controller:  controller,
		guard:       guard,
		cfg:         cfg,
		Logger:      defLogger{},
		loadingView: loadingView,
	}
}

// Protected gates a route on the current identity snapshot. The guard is
// re-evaluated on every request, so an expired session redirects even when
// the protected view was already open.
func (rg *RouteGuard) Protected() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			snap := rg.controller.Snapshot()
			result := rg.guard.Evaluate(c.Context(), snap, c.OriginalURL())

			switch result.Decision {
			case GuardPending:
				return c.Render(rg.loadingView, router.ViewContext{
					"message": "Checking your session",
				})
			case GuardRedirect:
				rg.SetRedirect(c)

				statusCode := http.StatusSeeOther
				if c.Method() == string(router.GET) {
					statusCode = http.StatusFound
				}
				return c.Redirect(result.RedirectTo, statusCode)
			default:
				c.SetContext(WithUserContext(
					WithSnapshotContext(c.Context(), snap),
					snap.User,
				))
				return c.Next()
			}
		}
	}
}

// SetRedirect remembers the originally requested URL for after sign-in.
func (rg *RouteGuard) SetRedirect(c router.Context) {
	rejectedRoute := rg.cfg.GetRejectedRouteKey()

	rg.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", c.OriginalURL())

	c.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect consumes the remembered URL, falling back to def.
func (rg *RouteGuard) GetRedirect(c router.Context, def ...string) string {
	rejectedRoute := rg.cfg.GetRejectedRouteKey()
	r := c.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return rg.cfg.GetDefaultProtectedRoute()
	}
	rg.cookieDel(c, rejectedRoute)
	return r
}

// GetRedirectOrDefault consumes the remembered URL, falling back to the
// referer header and then the configured default protected route.
func (rg *RouteGuard) GetRedirectOrDefault(c router.Context) string {
	rejectedRoute := rg.cfg.GetRejectedRouteKey()
	refererHeader := string(c.Referer())

	r := c.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = rg.cfg.GetDefaultProtectedRoute()
	}
	rg.cookieDel(c, rejectedRoute)
	return r
}

func (rg *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
