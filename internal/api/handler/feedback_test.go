package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querysage/querysage/pkg/models"
)

type stubAppender struct {
	last *models.FeedbackRecord
}

func (s *stubAppender) Append(record models.FeedbackRecord) (*models.FeedbackRecord, error) {
	record.ID = "20240301T120000.000000000Z"
	s.last = &record
	return &record, nil
}

func submitFeedback(t *testing.T, store FeedbackAppender, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewSubmitFeedbackHandler(store).ServeHTTP(rec, req)
	return rec
}

func TestSubmitFeedbackHandler(t *testing.T) {
	store := &stubAppender{}
	rec := submitFeedback(t, store,
		`{"source":"agent","body":"missing table for creator revenue","satisfaction":2,"accurate":false,"tags":["missing-table"]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, store.last)
	assert.Equal(t, models.SourceAgent, store.last.Source)
	assert.Equal(t, 2, store.last.Satisfaction)
	require.NotNil(t, store.last.Accurate)
	assert.False(t, *store.last.Accurate)
	assert.Equal(t, []models.GapCategory{models.GapMissingTable}, store.last.Tags)
	assert.Contains(t, rec.Body.String(), `"id":"20240301T120000.000000000Z"`)
}

func TestSubmitFeedbackHandler_DefaultsSource(t *testing.T) {
	store := &stubAppender{}
	rec := submitFeedback(t, store, `{"body":"the docs are confusing"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.SourceUser, store.last.Source)
	assert.Zero(t, store.last.Satisfaction)
	assert.Nil(t, store.last.Accurate)
}

func TestSubmitFeedbackHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body field", `{"source":"user","body":"   "}`},
		{"bad source", `{"source":"bot","body":"hello"}`},
		{"satisfaction out of range", `{"body":"hello","satisfaction":9}`},
		{"unknown tag", `{"body":"hello","tags":["urgent"]}`},
		{"invalid json", `{nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submitFeedback(t, &stubAppender{}, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
