package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CacheConfig defines settings for the memoized API reads. Backend selects
// where entries live ("memory" or "redis"); when redis is requested but no
// client is available the memory backend is used instead. Prefix namespaces
// Redis keys so several storefronts can share one server.
type CacheConfig struct {
	Backend          string        `envconfig:"CACHE_BACKEND" default:"memory"`
	Prefix           string        `envconfig:"CACHE_PREFIX" default:"cache"`
	ProductsTTL      time.Duration `envconfig:"PRODUCTS_CACHE_TTL" default:"5m"`
	AdminProductsTTL time.Duration `envconfig:"ADMIN_PRODUCTS_CACHE_TTL" default:"1m"`
}

// LoadCacheConfig reads CACHE_* variables. Non-positive TTLs fall back to
// the defaults.
func LoadCacheConfig() (CacheConfig, error) {
	var c CacheConfig
	if err := envconfig.Process("", &c); err != nil {
		return CacheConfig{}, err
	}
	if c.ProductsTTL <= 0 {
		c.ProductsTTL = 5 * time.Minute
	}
	if c.AdminProductsTTL <= 0 {
		c.AdminProductsTTL = time.Minute
	}
	if c.Backend != "redis" {
		c.Backend = "memory"
	}
	return c, nil
}
