// Package admin implements the administrator dashboard: the appointment
// list with status changes and the product inventory.
package admin

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/model"
)

type Tab string

const (
	TabAppointments Tab = "appointments"
	TabProducts     Tab = "products"
)

// ParseTab defaults to the appointments tab.
func ParseTab(s string) Tab {
	if Tab(s) == TabProducts {
		return TabProducts
	}
	return TabAppointments
}

// ErrLoginRequired means the visitor has to sign in (again) before the
// dashboard can be shown.
var ErrLoginRequired = errors.New("admin: login required")

// API is the subset of the API client the dashboard uses.
type API interface {
	Appointments(ctx context.Context) ([]model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status model.Status) error
	DeleteAppointment(ctx context.Context, id string) error
	AdminProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, p apiclient.NewProduct) (model.Product, error)
	UpdateProduct(ctx context.Context, id string, patch apiclient.ProductPatch) error
	DeleteProduct(ctx context.Context, id string) error
}

// Notifier publishes to the administrator and asks for confirmations.
type Notifier interface {
	T(key string, args ...any) string
	Success(msg string) string
	Error(msg string) string
	Confirm(msg string, onDecide func(ctx context.Context, confirmed bool)) string
}

// Dashboard holds what one render of the admin page shows.
type Dashboard struct {
	api    API
	notify Notifier
	log    *zap.Logger

	Tab          Tab
	Loading      bool
	Appointments []model.Appointment
	Products     []model.Product
}

func New(api API, n Notifier, log *zap.Logger) *Dashboard {
	if api == nil || n == nil {
		panic("admin: nil api or notifier")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dashboard{api: api, notify: n, log: log, Tab: TabAppointments}
}

// Load fetches the collection of tab.
func (d *Dashboard) Load(ctx context.Context, tab Tab) error {
	d.Tab = tab
	return d.refresh(ctx, tab, i18n.MsgGenericFailure)
}

// refresh re-fetches only the list of tab.
func (d *Dashboard) refresh(ctx context.Context, tab Tab, fallback string) error {
	d.Loading = true
	defer func() { d.Loading = false }()

	var err error
	switch tab {
	case TabProducts:
		var ps []model.Product
		if ps, err = d.api.AdminProducts(ctx); err == nil {
			d.Products = ps
		}
	default:
		var as []model.Appointment
		if as, err = d.api.Appointments(ctx); err == nil {
			d.Appointments = as
		}
	}
	if err != nil {
		return d.fail(err, fallback)
	}
	return nil
}

func (d *Dashboard) fail(err error, fallback string) error {
	d.log.Warn("admin operation failed", zap.Error(err))
	if apiclient.IsAuthFailure(err) {
		if errors.Is(err, apiclient.ErrSessionExpired) {
			d.notify.Error(d.notify.T(i18n.MsgSessionExpired))
		}
		return ErrLoginRequired
	}
	d.notify.Error(apiclient.Message(err, d.notify.T(i18n.MsgConnectivity), d.notify.T(fallback)))
	return err
}

// ChangeStatus persists a new status and re-fetches the appointment list.
func (d *Dashboard) ChangeStatus(ctx context.Context, id, status string) error {
	st, err := model.ParseStatus(status)
	if err != nil {
		d.notify.Error(d.notify.T(i18n.MsgStatusFailed))
		return &apiclient.ValidationFailure{Field: "status", Reason: i18n.MsgStatusFailed}
	}
	if err := d.api.UpdateAppointmentStatus(ctx, id, st); err != nil {
		return d.fail(err, i18n.MsgStatusFailed)
	}
	d.notify.Success(d.notify.T(i18n.MsgStatusUpdated))
	d.Tab = TabAppointments
	return d.refresh(ctx, TabAppointments, i18n.MsgAppointmentsFailed)
}

// RequestDeleteAppointment asks for confirmation; the appointment is
// deleted only if the administrator confirms.
func (d *Dashboard) RequestDeleteAppointment(id string) string {
	return d.notify.Confirm(d.notify.T(i18n.MsgAppointmentDelAsk), func(ctx context.Context, ok bool) {
		if !ok {
			return
		}
		if err := d.api.DeleteAppointment(ctx, id); err != nil {
			_ = d.fail(err, i18n.MsgAppointmentDelFail)
			return
		}
		d.notify.Success(d.notify.T(i18n.MsgAppointmentDeleted))
		_ = d.refresh(ctx, TabAppointments, i18n.MsgAppointmentsFailed)
	})
}

// ProductForm is the raw create form.
type ProductForm struct {
	Brand       string `form:"name"`
	Grade       string `form:"category"`
	Price       string `form:"price"`
	Stock       string `form:"stock"`
	Description string `form:"description"`
}

// Parse validates the form against the closed sets and returns the
// request body without the image.
func (f ProductForm) Parse() (apiclient.NewProduct, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		return apiclient.NewProduct{}, &apiclient.ValidationFailure{Field: "price", Reason: i18n.MsgProductInvalid}
	}
	stock, err := strconv.Atoi(strings.TrimSpace(f.Stock))
	if err != nil {
		return apiclient.NewProduct{}, &apiclient.ValidationFailure{Field: "stock", Reason: i18n.MsgProductInvalid}
	}
	p := model.Product{Brand: f.Brand, Grade: f.Grade, Price: price, Stock: stock}
	if err := p.Validate(); err != nil {
		return apiclient.NewProduct{}, &apiclient.ValidationFailure{Field: "product", Reason: i18n.MsgProductInvalid}
	}
	return apiclient.NewProduct{
		Brand: f.Brand, Grade: f.Grade, Price: price, Stock: stock,
		Description: strings.TrimSpace(f.Description),
	}, nil
}

// CreateProduct validates, downsizes the optional image, posts the product
// and re-fetches the product list.
func (d *Dashboard) CreateProduct(ctx context.Context, f ProductForm, img *apiclient.Upload) error {
	p, err := f.Parse()
	if err != nil {
		d.notify.Error(d.notify.T(i18n.MsgProductInvalid))
		return err
	}
	if img != nil && len(img.Data) > 0 {
		small, err := Downscale(*img, MaxImageSide)
		if err != nil {
			d.log.Info("product image rejected", zap.Error(err))
			d.notify.Error(d.notify.T(i18n.MsgProductInvalid))
			return &apiclient.ValidationFailure{Field: "image", Reason: i18n.MsgProductInvalid}
		}
		p.Image = &small
	}
	if _, err := d.api.CreateProduct(ctx, p); err != nil {
		return d.fail(err, i18n.MsgProductCreateFailed)
	}
	d.notify.Success(d.notify.T(i18n.MsgProductCreated))
	d.Tab = TabProducts
	return d.refresh(ctx, TabProducts, i18n.MsgProductsLoadFailed)
}

// UpdateProduct changes only price and stock. Empty inputs are left out of
// the update.
func (d *Dashboard) UpdateProduct(ctx context.Context, id, price, stock string) error {
	var patch apiclient.ProductPatch
	if s := strings.TrimSpace(price); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil || v.IsNegative() {
			d.notify.Error(d.notify.T(i18n.MsgProductInvalid))
			return &apiclient.ValidationFailure{Field: "price", Reason: i18n.MsgProductInvalid}
		}
		patch.Price = &v
	}
	if s := strings.TrimSpace(stock); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			d.notify.Error(d.notify.T(i18n.MsgProductInvalid))
			return &apiclient.ValidationFailure{Field: "stock", Reason: i18n.MsgProductInvalid}
		}
		patch.Stock = &v
	}
	if err := d.api.UpdateProduct(ctx, id, patch); err != nil {
		return d.fail(err, i18n.MsgProductUpdateFailed)
	}
	d.notify.Success(d.notify.T(i18n.MsgProductUpdated))
	d.Tab = TabProducts
	return d.refresh(ctx, TabProducts, i18n.MsgProductsLoadFailed)
}

// RequestDeleteProduct asks for confirmation before deleting.
func (d *Dashboard) RequestDeleteProduct(id string) string {
	return d.notify.Confirm(d.notify.T(i18n.MsgProductDeleteAsk), func(ctx context.Context, ok bool) {
		if !ok {
			return
		}
		if err := d.api.DeleteProduct(ctx, id); err != nil {
			_ = d.fail(err, i18n.MsgProductDeleteFailed)
			return
		}
		d.notify.Success(d.notify.T(i18n.MsgProductDeleted))
		_ = d.refresh(ctx, TabProducts, i18n.MsgProductsLoadFailed)
	})
}
