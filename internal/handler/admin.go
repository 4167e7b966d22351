package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/admin"
	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/middleware"
	"github.com/iliyamo/lube-storefront/internal/model"
)

type adminView struct {
	Dashboard *admin.Dashboard
	Statuses  []model.Status
	Brands    []string
	Grades    []string
	Form      admin.ProductForm
}

func (h *Handler) dashboard(c echo.Context) *admin.Dashboard {
	return admin.New(h.API, h.notices(c), h.Log)
}

func (h *Handler) renderAdmin(c echo.Context, status int, d *admin.Dashboard, f admin.ProductForm) error {
	return h.render(c, status, "admin", "Admin", adminView{
		Dashboard: d,
		Statuses:  model.Statuses,
		Brands:    model.Brands,
		Grades:    model.Grades,
		Form:      f,
	})
}

// adminResult renders the dashboard after a mutation, or sends the visitor
// to the login page when the API no longer accepts the session.
func (h *Handler) adminResult(c echo.Context, d *admin.Dashboard, err error, f admin.ProductForm) error {
	if errors.Is(err, admin.ErrLoginRequired) {
		return h.redirect(c, middleware.LoginPath)
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	return h.renderAdmin(c, status, d, f)
}

func (h *Handler) Admin(c echo.Context) error {
	d := h.dashboard(c)
	err := d.Load(c.Request().Context(), admin.ParseTab(c.QueryParam("tab")))
	if errors.Is(err, admin.ErrLoginRequired) {
		return h.redirect(c, middleware.LoginPath)
	}
	return h.renderAdmin(c, http.StatusOK, d, admin.ProductForm{})
}

func (h *Handler) ChangeAppointmentStatus(c echo.Context) error {
	d := h.dashboard(c)
	err := d.ChangeStatus(c.Request().Context(), c.Param("id"), c.FormValue("status"))
	return h.adminResult(c, d, err, admin.ProductForm{})
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	h.dashboard(c).RequestDeleteAppointment(c.Param("id"))
	return h.redirect(c, "/admin?tab="+string(admin.TabAppointments))
}

// CreateProduct accepts the multipart product form with an optional image.
func (h *Handler) CreateProduct(c echo.Context) error {
	var f admin.ProductForm
	if err := c.Bind(&f); err != nil {
		return h.redirect(c, "/admin?tab="+string(admin.TabProducts))
	}
	d := h.dashboard(c)
	d.Tab = admin.TabProducts

	img, err := readUpload(c, "image")
	if err != nil {
		h.Log.Info("product image unreadable", zap.Error(err))
		n := h.notices(c)
		n.Error(n.T(i18n.MsgProductInvalid))
		return h.renderAdmin(c, http.StatusUnprocessableEntity, d, f)
	}
	err = d.CreateProduct(c.Request().Context(), f, img)
	if err == nil {
		f = admin.ProductForm{}
	}
	return h.adminResult(c, d, err, f)
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	d := h.dashboard(c)
	d.Tab = admin.TabProducts
	err := d.UpdateProduct(c.Request().Context(), c.Param("id"), c.FormValue("price"), c.FormValue("stock"))
	return h.adminResult(c, d, err, admin.ProductForm{})
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	h.dashboard(c).RequestDeleteProduct(c.Param("id"))
	return h.redirect(c, "/admin?tab="+string(admin.TabProducts))
}

func (h *Handler) ExportAppointments(c echo.Context) error {
	var buf bytes.Buffer
	err := h.dashboard(c).ExportAppointments(c.Request().Context(), &buf)
	switch {
	case errors.Is(err, admin.ErrLoginRequired):
		return h.redirect(c, middleware.LoginPath)
	case err != nil:
		return h.redirect(c, "/admin")
	}
	name := fmt.Sprintf("appointments-%s.xlsx", h.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// readUpload returns nil when the field is absent.
func readUpload(c echo.Context, field string) (*apiclient.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > admin.MaxUploadBytes {
		return nil, admin.ErrImageTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, admin.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	return &apiclient.Upload{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}
