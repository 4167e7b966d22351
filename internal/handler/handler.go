// Package handler serves the storefront pages. Each request builds its view
// from the remote API and the visitor's session, publishes outcomes as
// notifications and either renders a page or redirects.
package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/booking"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/middleware"
	"github.com/iliyamo/lube-storefront/internal/notify"
	"github.com/iliyamo/lube-storefront/internal/session"
)

// Handler bundles what the page handlers share.
type Handler struct {
	API      *apiclient.Client
	Sessions *session.Provider
	Hub      *notify.Hub
	Events   booking.EventSink
	Log      *zap.Logger
	Now      func() time.Time
}

func New(api *apiclient.Client, sessions *session.Provider, hub *notify.Hub, events booking.EventSink, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{API: api, Sessions: sessions, Hub: hub, Events: events, Log: log, Now: time.Now}
}

// Page is what every template receives.
type Page struct {
	Title     string
	Path      string
	Visitor   *session.Visitor
	Notices   []notify.Notification
	CSRFToken string
	Data      any
}

// SignedIn reports whether the page is rendered for a valid session.
func (p Page) SignedIn() bool { return p.Visitor != nil && p.Visitor.Valid }

// IsAdmin reports whether the page is rendered for an administrator.
func (p Page) IsAdmin() bool { return p.SignedIn() && p.Visitor.Session.IsAdmin() }

func (h *Handler) notices(c echo.Context) notify.Scope {
	return middleware.Notices(h.Hub, c)
}

func (h *Handler) render(c echo.Context, status int, name, title string, data any) error {
	v := middleware.Visitor(c)
	return c.Render(status, name, Page{
		Title:     title,
		Path:      c.Request().URL.Path,
		Visitor:   v,
		Notices:   h.Hub.Pending(v.ID),
		CSRFToken: csrf.Token(c.Request()),
		Data:      data,
	})
}

func (h *Handler) redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusSeeOther, to)
}

// sessionExpired sends the visitor to the login page when err reports a
// rejected token. The API client has already cleared the session.
func (h *Handler) sessionExpired(c echo.Context, err error) (bool, error) {
	if !errors.Is(err, apiclient.ErrSessionExpired) {
		return false, nil
	}
	n := h.notices(c)
	n.Error(n.T(i18n.MsgSessionExpired))
	return true, h.redirect(c, middleware.LoginPath)
}

// back returns the local path the request came from, or fallback.
func back(c echo.Context, fallback string) string {
	ref := c.Request().Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != c.Request().Host) || u.Path == "" {
		return fallback
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
