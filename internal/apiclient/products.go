package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/metrics"
	"github.com/iliyamo/lube-storefront/internal/model"
)

// Cache keys of the memoized product lists.
const (
	KeyProducts      = "products"
	KeyAdminProducts = "adminProducts"
)

// Upload is an image file attached to a product.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewProduct is the create form of a product.
type NewProduct struct {
	Brand       string
	Grade       string
	Price       decimal.Decimal
	Stock       int
	Description string
	Image       *Upload
}

// ProductPatch updates only the fields that are set.
type ProductPatch struct {
	Price *decimal.Decimal
	Stock *int
}

// Products returns the public catalog, memoized under KeyProducts.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	return c.memoProducts(ctx, KeyProducts, c.cfg.ProductsTTL,
		call{op: "products.list", method: http.MethodGet, path: "/products"})
}

// AdminProducts returns the administrator listing, memoized under
// KeyAdminProducts.
func (c *Client) AdminProducts(ctx context.Context) ([]model.Product, error) {
	return c.memoProducts(ctx, KeyAdminProducts, c.cfg.AdminProductsTTL,
		call{op: "products.admin", method: http.MethodGet, path: "/products/admin", needsAuth: true})
}

func (c *Client) memoProducts(ctx context.Context, key string, ttl time.Duration, cl call) ([]model.Product, error) {
	var out []model.Product
	ok, err := c.cache.Get(ctx, key, &out)
	if err != nil {
		c.log.Warn("product cache read", zap.String("key", key), zap.Error(err))
	}
	if ok {
		metrics.CacheLookups.WithLabelValues(key, "hit").Inc()
		return out, nil
	}
	metrics.CacheLookups.WithLabelValues(key, "miss").Inc()

	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	out = []model.Product{}
	if err := resp.Data(&out); err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, out, ttl); err != nil {
		c.log.Warn("product cache write", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

// InvalidateProducts drops both memoized product lists.
func (c *Client) InvalidateProducts(ctx context.Context) error {
	return c.cache.Evict(ctx, KeyProducts, KeyAdminProducts)
}

// CreateProduct posts p as multipart form data.
func (c *Client) CreateProduct(ctx context.Context, p NewProduct) (model.Product, error) {
	form := NewMultipart().
		Field("name", p.Brand).
		Field("description", p.Description).
		Field("price", p.Price.String()).
		Field("category", p.Grade).
		Field("stock", strconv.Itoa(p.Stock))
	if p.Image != nil && len(p.Image.Data) > 0 {
		form.File("image", p.Image.Filename, p.Image.ContentType, p.Image.Data)
	}
	resp, err := c.do(ctx, call{op: "products.create", method: http.MethodPost, path: "/products", body: form, needsAuth: true})
	if err != nil {
		return model.Product{}, err
	}
	c.evictProducts(ctx)
	var created model.Product
	if err := resp.Data(&created); err != nil {
		return model.Product{}, err
	}
	return created, nil
}

// UpdateProduct sends a partial update of price and stock.
func (c *Client) UpdateProduct(ctx context.Context, id string, patch ProductPatch) error {
	body := map[string]any{}
	if patch.Price != nil {
		body["price"] = json.Number(patch.Price.String())
	}
	if patch.Stock != nil {
		body["stock"] = *patch.Stock
	}
	_, err := c.do(ctx, call{op: "products.update", method: http.MethodPut, path: "/products/" + url.PathEscape(id), body: body, needsAuth: true})
	if err != nil {
		return err
	}
	c.evictProducts(ctx)
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{op: "products.delete", method: http.MethodDelete, path: "/products/" + url.PathEscape(id), needsAuth: true})
	if err != nil {
		return err
	}
	c.evictProducts(ctx)
	return nil
}

func (c *Client) evictProducts(ctx context.Context) {
	if err := c.InvalidateProducts(ctx); err != nil {
		c.log.Warn("product cache evict", zap.Error(err))
	}
}
