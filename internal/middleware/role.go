package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/notify"
)

// LoginPath is where visitors without the required session are sent.
const LoginPath = "/login"

// RequireSession redirects visitors without a valid session to the login
// page.
func RequireSession(h *notify.Hub) echo.MiddlewareFunc {
	return RequireRole(h)
}

// RequireRole lets the request through only when the visitor has a valid
// session and, if roles are given, one of them. Everyone else is redirected
// to the login page with a notice.
func RequireRole(h *notify.Hub, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := Visitor(c)
			if v.Valid && (len(allowed) == 0 || allowed[v.Session.Role]) {
				return next(c)
			}
			if h != nil && v.ID != "" {
				n := Notices(h, c)
				n.Warning(n.T(i18n.MsgLoginRequired))
			}
			return c.Redirect(http.StatusSeeOther, LoginPath)
		}
	}
}
