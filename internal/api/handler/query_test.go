package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querysage/querysage/internal/warehouse"
	"github.com/querysage/querysage/pkg/models"
)

type stubRunner struct {
	result  *models.QueryResult
	qerr    *models.QueryError
	schema  *models.TableSchema
	descErr error
	lastSQL string
}

func (s *stubRunner) Run(_ context.Context, tpl models.TemplateQuery, _ int) (*models.QueryResult, *models.QueryError) {
	s.lastSQL = tpl.SQL
	return s.result, s.qerr
}

func (s *stubRunner) DescribeTable(context.Context, string) (*models.TableSchema, error) {
	return s.schema, s.descErr
}

func runQuery(t *testing.T, exec QueryRunner, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewQueryHandler(exec).ServeHTTP(rec, req)
	return rec
}

func TestQueryHandler(t *testing.T) {
	exec := &stubRunner{result: &models.QueryResult{
		Columns:   []string{"dau"},
		Rows:      []map[string]string{{"dau": "1042"}},
		Truncated: true,
	}}

	rec := runQuery(t, exec, `{"sql":"SELECT dau FROM analytics.daily_metrics","row_cap":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SELECT dau FROM analytics.daily_metrics", exec.lastSQL)
	assert.Contains(t, rec.Body.String(), `"row_count":1`)
	assert.Contains(t, rec.Body.String(), `"truncated":true`)
}

func TestQueryHandler_Validation(t *testing.T) {
	for _, body := range []string{`{}`, `{"sql":"  "}`, `{"sql":"SELECT 1","row_cap":-2}`, `{bad`} {
		rec := runQuery(t, &stubRunner{}, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestQueryHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		kind       models.ErrorKind
		wantStatus int
		wantCode   string
	}{
		{models.ErrorKindSyntax, http.StatusBadRequest, "QUERY_SYNTAX"},
		{models.ErrorKindPermission, http.StatusForbidden, "QUERY_PERMISSION"},
		{models.ErrorKindTimeout, http.StatusGatewayTimeout, "QUERY_TIMEOUT"},
		{models.ErrorKindUnavailable, http.StatusBadGateway, "WAREHOUSE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			exec := &stubRunner{qerr: &models.QueryError{
				Template: "adhoc",
				Kind:     tt.kind,
				Message:  "failed",
			}}
			rec := runQuery(t, exec, `{"sql":"SELECT 1"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func describeTable(t *testing.T, exec QueryRunner, table string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/v1/tables/{table}", NewDescribeTableHandler(exec))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables/"+table, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDescribeTableHandler(t *testing.T) {
	exec := &stubRunner{schema: &models.TableSchema{
		Table:   "analytics.daily_metrics",
		Columns: []models.ColumnInfo{{Name: "dau", Type: "bigint"}},
	}}

	rec := describeTable(t, exec, "analytics.daily_metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"table":"analytics.daily_metrics"`)
}

func TestDescribeTableHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("x: %w", warehouse.ErrTableNotFound), http.StatusNotFound},
		{"permission", fmt.Errorf("x: %w", warehouse.ErrPermission), http.StatusForbidden},
		{"timeout", fmt.Errorf("x: %w", warehouse.ErrTimeout), http.StatusGatewayTimeout},
		{"unavailable", fmt.Errorf("x: %w", warehouse.ErrUnavailable), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := describeTable(t, &stubRunner{descErr: tt.err}, "analytics.daily_metrics")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
