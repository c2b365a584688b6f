package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/querysage/querysage/internal/api/response"
	"github.com/querysage/querysage/internal/consolidate"
	"github.com/querysage/querysage/pkg/models"
)

// Consolidator runs consolidation passes and serves stored reports.
type Consolidator interface {
	Run(ctx context.Context) (*models.Report, error)
	Report(id string) (*models.Report, error)
	Reports() ([]string, error)
}

// NewConsolidateHandler returns the handler for POST /api/v1/feedback/consolidate.
func NewConsolidateHandler(svc Consolidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Run(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Consolidation failed", nil)
			return
		}
		response.Created(w, report)
	}
}

// NewListReportsHandler returns the handler for GET /api/v1/reports.
func NewListReportsHandler(svc Consolidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := svc.Reports()
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list reports", nil)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		response.JSON(w, map[string][]string{"reports": ids})
	}
}

// NewGetReportHandler returns the handler for GET /api/v1/reports/{reportID}.
func NewGetReportHandler(svc Consolidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Report(chi.URLParam(r, "reportID"))
		if errors.Is(err, consolidate.ErrReportNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "No such report", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to read report", nil)
			return
		}
		response.JSON(w, report)
	}
}
