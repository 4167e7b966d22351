package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"

	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/notify"
	"github.com/iliyamo/lube-storefront/internal/session"
)

const (
	visitorKey = "visitor"
	langKey    = "lang"

	// LangCookie holds an explicit language choice.
	LangCookie = "lang"
)

// IdentityConfig controls the visitor cookie.
type IdentityConfig struct {
	Cookie      string
	TTL         time.Duration
	Secure      bool
	DefaultLang string
}

// Identity gives every browser a stable visitor id cookie, loads its session
// through p and binds the resulting *session.Visitor to the request context.
// Expired or malformed sessions are cleared by p.Read on the way.
func Identity(p *session.Provider, cfg IdentityConfig) echo.MiddlewareFunc {
	if cfg.Cookie == "" {
		cfg.Cookie = "sid"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			sid := ""
			if ck, err := req.Cookie(cfg.Cookie); err == nil {
				if _, err := uuid.Parse(ck.Value); err == nil {
					sid = ck.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     cfg.Cookie,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(cfg.TTL / time.Second),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sess, ok := p.Read(req.Context(), sid)
			v := &session.Visitor{ID: sid, Session: sess, Valid: ok}
			c.SetRequest(req.WithContext(session.NewContext(req.Context(), v)))
			c.Set(visitorKey, v)

			var pref string
			if ck, err := req.Cookie(LangCookie); err == nil {
				pref = ck.Value
			}
			c.Set(langKey, i18n.Match(cfg.DefaultLang, pref, req.Header.Get("Accept-Language")))
			return next(c)
		}
	}
}

// Visitor returns the visitor loaded by Identity. Outside of it an anonymous
// visitor with an empty id is returned.
func Visitor(c echo.Context) *session.Visitor {
	if v, ok := c.Get(visitorKey).(*session.Visitor); ok && v != nil {
		return v
	}
	return &session.Visitor{}
}

// Lang returns the language picked for the request.
func Lang(c echo.Context) language.Tag {
	if t, ok := c.Get(langKey).(language.Tag); ok {
		return t
	}
	return language.English
}

// Notices returns the notification scope of the current visitor.
func Notices(h *notify.Hub, c echo.Context) notify.Scope {
	return notify.NewScope(h, Visitor(c).ID, i18n.Printer(Lang(c)))
}
