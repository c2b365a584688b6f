package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/querysage/querysage/internal/api/response"
	"github.com/querysage/querysage/pkg/models"
)

// FeedbackAppender persists one feedback record.
type FeedbackAppender interface {
	Append(record models.FeedbackRecord) (*models.FeedbackRecord, error)
}

// NewSubmitFeedbackHandler returns the handler for POST /api/v1/feedback.
func NewSubmitFeedbackHandler(store FeedbackAppender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Source       string   `json:"source"`
			Body         string   `json:"body"`
			Satisfaction int      `json:"satisfaction"`
			Accurate     *bool    `json:"accurate"`
			Tags         []string `json:"tags"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if strings.TrimSpace(req.Body) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "body is required", nil)
			return
		}

		source := req.Source
		if source == "" {
			source = models.SourceUser
		}
		if source != models.SourceUser && source != models.SourceAgent {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"source must be user or agent", nil)
			return
		}

		if req.Satisfaction < 0 || req.Satisfaction > 5 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"satisfaction must be between 1 and 5", nil)
			return
		}

		var tags []models.GapCategory
		for _, raw := range req.Tags {
			tag, ok := models.ParseGapCategory(raw)
			if !ok {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"unknown tag", map[string]string{"tag": raw})
				return
			}
			tags = append(tags, tag)
		}

		record, err := store.Append(models.FeedbackRecord{
			Source:       source,
			Body:         strings.TrimSpace(req.Body),
			Satisfaction: req.Satisfaction,
			Accurate:     req.Accurate,
			Tags:         tags,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to store feedback", nil)
			return
		}

		response.Created(w, record)
	}
}
