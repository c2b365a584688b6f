package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/querysage/querysage/internal/api/response"
	"github.com/querysage/querysage/internal/knowledge"
	"github.com/querysage/querysage/pkg/models"
)

const maxRowCap = 1000

// Generator runs one knowledge synthesis pass.
type Generator interface {
	Generate(ctx context.Context, rowCap int) (*knowledge.GenerateResult, error)
}

// DocumentReader fetches stored knowledge documents.
type DocumentReader interface {
	Document(category models.Category) (*models.KnowledgeDocument, error)
}

// NewGenerateHandler returns the handler for POST /api/v1/knowledge/generate.
// Synthesis runs synchronously; the response carries the regenerated
// categories and the per-template failures.
func NewGenerateHandler(svc Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RowCap int `json:"row_cap"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.RowCap < 0 || req.RowCap > maxRowCap {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "row_cap must be between 0 and 1000", nil)
			return
		}

		result, err := svc.Generate(r.Context(), req.RowCap)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				response.Error(w, http.StatusGatewayTimeout, "GENERATION_TIMEOUT",
					"Knowledge generation was cancelled", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Knowledge generation failed", nil)
			return
		}

		categories := make([]string, 0, len(result.Documents))
		for _, doc := range result.Documents {
			categories = append(categories, string(doc.Category))
		}

		response.Accepted(w, generateResponse{
			Categories: categories,
			Templates:  result.Templates,
			Failures:   result.Failures,
		})
	}
}

type generateResponse struct {
	Categories []string            `json:"categories"`
	Templates  int                 `json:"templates"`
	Failures   []models.QueryError `json:"failures"`
}

// NewGetKnowledgeHandler returns the handler for GET /api/v1/knowledge/{category}.
func NewGetKnowledgeHandler(svc DocumentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, ok := models.ParseCategory(chi.URLParam(r, "category"))
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Unknown knowledge category", nil)
			return
		}

		doc, err := svc.Document(category)
		if errors.Is(err, knowledge.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND",
				"No document has been generated for this category", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to read document", nil)
			return
		}

		response.JSON(w, documentResponse{
			Category:    string(doc.Category),
			GeneratedAt: doc.GeneratedAt.UTC().Format(time.RFC3339),
			Content:     doc.Content,
		})
	}
}

type documentResponse struct {
	Category    string `json:"category"`
	GeneratedAt string `json:"generated_at"`
	Content     string `json:"content"`
}
