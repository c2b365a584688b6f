// Package api wires the HTTP surface: router, middleware, handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/querysage/querysage/internal/api/middleware"
	"github.com/querysage/querysage/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler        http.HandlerFunc
	GenerateHandler      http.HandlerFunc
	GetKnowledgeHandler  http.HandlerFunc
	SubmitFeedback       http.HandlerFunc
	ConsolidateHandler   http.HandlerFunc
	ListReportsHandler   http.HandlerFunc
	GetReportHandler     http.HandlerFunc
	QueryHandler         http.HandlerFunc
	DescribeTableHandler http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/knowledge/{category}", orNotImplemented(deps.GetKnowledgeHandler))
		r.Post("/api/v1/feedback", orNotImplemented(deps.SubmitFeedback))
		r.Get("/api/v1/reports", orNotImplemented(deps.ListReportsHandler))
		r.Get("/api/v1/reports/{reportID}", orNotImplemented(deps.GetReportHandler))
		r.Post("/api/v1/query", orNotImplemented(deps.QueryHandler))
		r.Get("/api/v1/tables/{table}", orNotImplemented(deps.DescribeTableHandler))

		// Pipeline triggers need the write scope
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("write"))

			r.Post("/api/v1/knowledge/generate", orNotImplemented(deps.GenerateHandler))
			r.Post("/api/v1/feedback/consolidate", orNotImplemented(deps.ConsolidateHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
