// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/config"
	"github.com/iliyamo/lube-storefront/internal/handler"
	"github.com/iliyamo/lube-storefront/internal/middleware"
	"github.com/iliyamo/lube-storefront/internal/model"
)

// Options carries what RegisterRoutes needs besides the handlers.
type Options struct {
	Identity  middleware.IdentityConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
	CSRFKey   []byte
	Secure    bool
	Checks    map[string]handler.Check
	Log       *zap.Logger
}

// RegisterRoutes installs the global middleware chain and every route.
func RegisterRoutes(e *echo.Echo, h *handler.Handler, o Options) {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	e.Use(echomw.Recover())
	e.Use(middleware.Identity(h.Sessions, o.Identity))
	e.Use(middleware.RequestLogger(o.Log))
	if len(o.CSRFKey) > 0 {
		e.Use(csrfProtect(o.CSRFKey, o.Secure, o.Log))
	}

	// Operational endpoints.
	e.GET("/healthz", handler.Health(o.Checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.StaticFS("/static", handler.Static())

	limit := middleware.TokenBucket(o.RateLimit, o.Redis, h.Hub, o.Log)

	// Storefront.
	e.GET("/", h.Home)
	e.GET("/products", h.Products)
	e.GET("/appointment", h.Appointment)
	e.POST("/appointment", h.SubmitAppointment, limit)

	// Account.
	e.GET("/login", h.LoginPage)
	e.POST("/login", h.Login, limit)
	e.GET("/register", h.RegisterPage)
	e.POST("/register", h.Register, limit)
	e.POST("/logout", h.Logout)

	signedIn := middleware.RequireSession(h.Hub)
	e.GET("/profile", h.Profile, signedIn)
	e.GET("/appointments", h.MyAppointments, signedIn)
	e.POST("/appointments/:id/delete", h.DeleteMyAppointment, signedIn)
	e.POST("/account/delete", h.DeleteAccount, signedIn)

	// Administration.
	a := e.Group("/admin", middleware.RequireRole(h.Hub, model.RoleAdmin))
	a.GET("", h.Admin)
	a.POST("/appointments/:id/status", h.ChangeAppointmentStatus)
	a.POST("/appointments/:id/delete", h.DeleteAppointment)
	a.GET("/appointments/export.xlsx", h.ExportAppointments)
	a.POST("/products", h.CreateProduct)
	a.POST("/products/:id", h.UpdateProduct)
	a.POST("/products/:id/delete", h.DeleteProduct)

	// Notifications.
	e.POST("/notifications/:id/select/:index", h.SelectNotification)
	e.POST("/notifications/:id/dismiss", h.DismissNotification)
	e.GET("/notifications/ws", h.NotificationStream)
}

// csrfProtect adapts gorilla/csrf to echo. Outside production the requests
// are marked as plaintext so the Referer check does not demand TLS.
func csrfProtect(key []byte, secure bool, log *zap.Logger) echo.MiddlewareFunc {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			http.Error(w, "invalid or missing CSRF token", http.StatusForbidden)
		})),
	)
	wrapped := echo.WrapMiddleware(protect)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		inner := wrapped(next)
		return func(c echo.Context) error {
			if !secure {
				c.SetRequest(csrf.PlaintextHTTPRequest(c.Request()))
			}
			return inner(c)
		}
	}
}
