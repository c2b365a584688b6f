// Package handler contains the HTTP handlers. Each handler depends on a
// narrow interface so tests can stub the service side.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/querysage/querysage/internal/api/response"
	"github.com/querysage/querysage/internal/cache"
)

// Pinger checks warehouse connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns the handler for GET /api/v1/health. The cache is
// optional; a nil cache reports "disabled" rather than degrading health.
func NewHealthHandler(warehouse Pinger, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := map[string]string{
			"status":    "healthy",
			"warehouse": "ok",
			"cache":     "disabled",
		}
		healthy := true

		if err := warehouse.Ping(ctx); err != nil {
			status["warehouse"] = "unreachable"
			status["status"] = "degraded"
			healthy = false
		}

		if c != nil {
			status["cache"] = "ok"
			if err := c.Ping(ctx); err != nil {
				// Cache is an optimization; a dead Redis degrades but
				// does not fail health.
				status["cache"] = "unreachable"
				status["status"] = "degraded"
			}
		}

		if !healthy {
			response.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "Warehouse is unreachable", status)
			return
		}
		response.JSON(w, status)
	}
}
