package config

import (
	"testing"
	"time"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.local/api/")
	t.Setenv("CSRF_KEY", testKey)

	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.APIBaseURL != "http://api.local/api" {
		t.Fatalf("base url = %q", c.APIBaseURL)
	}
	if c.APIRetries != 2 || c.APIRetryDelay != 500*time.Millisecond || c.APITimeout != 30*time.Second {
		t.Fatalf("retry settings = %d %s %s", c.APIRetries, c.APIRetryDelay, c.APITimeout)
	}
	if c.SessionCheckInterval != 5*time.Minute || c.Production() {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"relative url", map[string]string{"API_BASE_URL": "/api", "CSRF_KEY": testKey}},
		{"short key", map[string]string{"API_BASE_URL": "http://api.local", "CSRF_KEY": "short"}},
		{"session backend", map[string]string{"API_BASE_URL": "http://api.local", "CSRF_KEY": testKey, "SESSION_BACKEND": "disk"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c, err := LoadRateLimitConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.Capacity != 1 || c.RefillTokens != 1 || c.TTL != 10*time.Second {
		t.Fatalf("got %+v", c)
	}
}

func TestCacheBackendFallsBackToMemory(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")
	t.Setenv("PRODUCTS_CACHE_TTL", "0s")

	c, err := LoadCacheConfig()
	if err != nil {
		t.Fatal(err)
	}
	if c.Backend != "memory" || c.ProductsTTL != 5*time.Minute || c.AdminProductsTTL != time.Minute {
		t.Fatalf("got %+v", c)
	}
}
