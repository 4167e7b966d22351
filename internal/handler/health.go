package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Health reports liveness plus the state of optional dependencies such as
// Redis. A failing dependency is reported but does not fail the probe, since
// every one of them has an in-process fallback.
func Health(checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = "degraded: " + err.Error()
				continue
			}
			deps[name] = "ok"
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "dependencies": deps})
	}
}
