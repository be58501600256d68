package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tokengate/pkg/identity"
	"github.com/dmitrymomot/tokengate/pkg/logger"
	"github.com/dmitrymomot/tokengate/pkg/siteconfig"
	"github.com/dmitrymomot/tokengate/pkg/viewgate"
)

type ctxKey struct{}

// PathView maps a request path to the view it asks for. Unknown paths fall
// through to the landing view.
func PathView(path string) viewgate.View {
	switch {
	case path == "/" || path == "":
		return viewgate.ViewLanding
	case path == "/dashboard" || strings.HasPrefix(path, "/dashboard/"):
		return viewgate.ViewDashboard
	case path == "/billing/confirm":
		return viewgate.ViewConfirm
	case path == "/billing" || strings.HasPrefix(path, "/billing/"):
		return viewgate.ViewBilling
	case path == "/admin" || strings.HasPrefix(path, "/admin/"):
		return viewgate.ViewAdmin
	case path == "/maintenance":
		return viewgate.ViewMaintenance
	}
	return viewgate.ViewLanding
}

// ViewPath is the canonical path for a view.
func ViewPath(view viewgate.View) string {
	switch view {
	case viewgate.ViewDashboard:
		return "/dashboard"
	case viewgate.ViewBilling:
		return "/billing"
	case viewgate.ViewConfirm:
		return "/billing/confirm"
	case viewgate.ViewAdmin:
		return "/admin"
	case viewgate.ViewMaintenance:
		return "/maintenance"
	default:
		return "/"
	}
}

// FromContext returns the effective view the middleware resolved for this
// request.
func FromContext(ctx context.Context) (viewgate.View, bool) {
	v, ok := ctx.Value(ctxKey{}).(viewgate.View)
	return v, ok
}

// CurrentUserFunc supplies the signed-in user, or nil.
type CurrentUserFunc func() *identity.User

// CurrentConfigFunc supplies the live site configuration.
type CurrentConfigFunc func() siteconfig.Config

// Middleware re-resolves the effective view on every request from the
// current auth state and site configuration. Requests whose path does not
// match the resolved view are redirected to it; allowed requests proceed
// with the view stored in the context.
func Middleware(currentUser CurrentUserFunc, currentConfig CurrentConfigFunc, log *slog.Logger) func(http.Handler) http.Handler {
	if currentUser == nil {
		panic("gate: nil current user func")
	}
	if currentConfig == nil {
		panic("gate: nil current config func")
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested := PathView(r.URL.Path)
			effective := viewgate.Resolve(requested, currentUser(), currentConfig())

			if effective != requested {
				log.DebugContext(r.Context(), "navigation redirected",
					logger.View(effective), slog.String("path", r.URL.Path))
				http.Redirect(w, r, ViewPath(effective), http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, effective)))
		})
	}
}
