package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lube-storefront/internal/account"
	"github.com/iliyamo/lube-storefront/internal/middleware"
	"github.com/iliyamo/lube-storefront/internal/model"
)

func (h *Handler) account(c echo.Context) *account.Service {
	return account.New(h.API, h.Sessions, h.notices(c), h.Log)
}

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (h *Handler) LoginPage(c echo.Context) error {
	if middleware.Visitor(c).Valid {
		return h.redirect(c, "/")
	}
	return h.render(c, http.StatusOK, "login", "Sign in", loginForm{})
}

func (h *Handler) Login(c echo.Context) error {
	var f loginForm
	if err := c.Bind(&f); err != nil {
		return h.redirect(c, "/login")
	}
	to, err := h.account(c).Login(c.Request().Context(), middleware.Visitor(c).ID, f.Email, f.Password)
	if err != nil {
		f.Password = ""
		return h.render(c, http.StatusUnprocessableEntity, "login", "Sign in", f)
	}
	return h.redirect(c, to)
}

func (h *Handler) RegisterPage(c echo.Context) error {
	return h.render(c, http.StatusOK, "register", "Create an account", account.RegisterForm{})
}

func (h *Handler) Register(c echo.Context) error {
	var f account.RegisterForm
	if err := c.Bind(&f); err != nil {
		return h.redirect(c, "/register")
	}
	if err := h.account(c).Register(c.Request().Context(), f); err != nil {
		f.Password, f.Confirm = "", ""
		return h.render(c, http.StatusUnprocessableEntity, "register", "Create an account", f)
	}
	return h.redirect(c, "/login")
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.account(c).Logout(c.Request().Context(), middleware.Visitor(c).ID); err != nil {
		h.Log.Sugar().Warnf("logout: %v", err)
	}
	return h.redirect(c, "/")
}

func (h *Handler) Profile(c echo.Context) error {
	p, err := account.Profile(c.Request().Context())
	if err != nil {
		return h.redirect(c, middleware.LoginPath)
	}
	return h.render(c, http.StatusOK, "profile", "Profile", p)
}

type myAppointmentsView struct {
	Appointments []model.Appointment
}

func (h *Handler) MyAppointments(c echo.Context) error {
	as, err := h.account(c).MyAppointments(c.Request().Context())
	if errors.Is(err, account.ErrLoginRequired) {
		return h.redirect(c, middleware.LoginPath)
	}
	return h.render(c, http.StatusOK, "appointments", "My appointments", myAppointmentsView{Appointments: as})
}

// DeleteMyAppointment asks for confirmation; the delete itself runs when the
// visitor selects Confirm.
func (h *Handler) DeleteMyAppointment(c echo.Context) error {
	h.account(c).RequestDeleteAppointment(c.Param("id"))
	return h.redirect(c, "/appointments")
}

func (h *Handler) DeleteAccount(c echo.Context) error {
	h.account(c).RequestDeleteAccount(middleware.Visitor(c).ID)
	return h.redirect(c, "/profile")
}
