package config // package config loads application configuration from the environment

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; defaults mirror the behaviour the storefront
// expects when nothing is set.
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`     // dev, test or prod
	Port     string `envconfig:"APP_PORT" default:"8080"`   // HTTP port to listen on
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`  // zap level name
	Lang     string `envconfig:"DEFAULT_LANG" default:"en"` // fallback UI language
	Service  string `envconfig:"SERVICE_NAME" default:"lube-storefront"`

	APIBaseURL    string        `envconfig:"API_BASE_URL" required:"true"`
	APITimeout    time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
	APIRetries    int           `envconfig:"API_RETRIES" default:"2"`
	APIRetryDelay time.Duration `envconfig:"API_RETRY_DELAY" default:"500ms"`

	SessionCookie        string        `envconfig:"SESSION_COOKIE" default:"sid"`
	SessionBackend       string        `envconfig:"SESSION_BACKEND" default:"memory"` // memory or redis
	SessionCheckInterval time.Duration `envconfig:"SESSION_CHECK_INTERVAL" default:"5m"`
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	CSRFKey string `envconfig:"CSRF_KEY" required:"true"` // 32 bytes

	AMQPURL      string `envconfig:"AMQP_URL"`                    // empty disables event publishing
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"` // empty disables tracing
}

// Load reads a .env file when present and then the process environment.
// Missing required variables and malformed values are returned as errors.
func Load() (Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL %q", c.APIBaseURL)
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if len(c.CSRFKey) != 32 {
		return fmt.Errorf("CSRF_KEY must be 32 bytes, got %d", len(c.CSRFKey))
	}
	if c.APIRetries < 0 {
		c.APIRetries = 0
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 30 * time.Second
	}
	if c.SessionCheckInterval <= 0 {
		c.SessionCheckInterval = 5 * time.Minute
	}
	switch c.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

// Production reports whether the process runs with APP_ENV=prod.
func (c Config) Production() bool { return c.Env == "prod" || c.Env == "production" }
