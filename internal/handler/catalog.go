package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/catalog"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/model"
)

type homeView struct {
	Services []string
	Featured []model.Product
}

// Home shows the services and a few products.
func (h *Handler) Home(c echo.Context) error {
	ps, err := h.API.Products(c.Request().Context())
	if err != nil {
		h.Log.Warn("home: products unavailable", zap.Error(err))
		if expired, rerr := h.sessionExpired(c, err); expired {
			return rerr
		}
		n := h.notices(c)
		n.Error(apiclient.Message(err, n.T(i18n.MsgConnectivity), n.T(i18n.MsgProductsLoadFailed)))
		ps = nil
	}
	featured := catalog.Apply(ps, catalog.Filter{}, catalog.SortNone)
	if len(featured) > 4 {
		featured = featured[:4]
	}
	return h.render(c, http.StatusOK, "home", "Home", homeView{Services: model.Services, Featured: featured})
}

type productsQuery struct {
	Brand string `query:"brand"`
	Grade string `query:"grade"`
	Min   string `query:"min"`
	Max   string `query:"max"`
	Sort  string `query:"sort"`
}

type productsView struct {
	Query    productsQuery
	Products []model.Product
	Brands   []string
	Grades   []string
	Sorts    []catalog.Sort
	Total    int
}

// Products lists the catalog with filters and sorting from the query string.
// A failed load leaves the grid empty.
func (h *Handler) Products(c echo.Context) error {
	var q productsQuery
	if err := c.Bind(&q); err != nil {
		q = productsQuery{}
	}
	ps, err := h.API.Products(c.Request().Context())
	if err != nil {
		h.Log.Warn("products: load failed", zap.Error(err))
		if expired, rerr := h.sessionExpired(c, err); expired {
			return rerr
		}
		n := h.notices(c)
		n.Error(apiclient.Message(err, n.T(i18n.MsgConnectivity), n.T(i18n.MsgProductsLoadFailed)))
		ps = nil
	}
	f := catalog.Filter{
		Brand:    q.Brand,
		Grade:    q.Grade,
		MinPrice: catalog.ParsePrice(q.Min),
		MaxPrice: catalog.ParsePrice(q.Max),
	}
	out := catalog.Apply(ps, f, catalog.ParseSort(q.Sort))
	return h.render(c, http.StatusOK, "products", "Products", productsView{
		Query:    q,
		Products: out,
		Brands:   catalog.Brands(ps),
		Grades:   model.Grades,
		Sorts:    catalog.Sorts,
		Total:    len(ps),
	})
}
