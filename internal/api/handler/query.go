package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/querysage/querysage/internal/api/response"
	"github.com/querysage/querysage/internal/warehouse"
	"github.com/querysage/querysage/pkg/models"
)

// QueryRunner executes ad-hoc capped queries and table describes.
type QueryRunner interface {
	Run(ctx context.Context, tpl models.TemplateQuery, rowCap int) (*models.QueryResult, *models.QueryError)
	DescribeTable(ctx context.Context, table string) (*models.TableSchema, error)
}

// NewQueryHandler returns the handler for POST /api/v1/query.
func NewQueryHandler(exec QueryRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SQL    string `json:"sql"`
			RowCap int    `json:"row_cap"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if strings.TrimSpace(req.SQL) == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "sql is required", nil)
			return
		}
		if req.RowCap < 0 || req.RowCap > maxRowCap {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "row_cap must be between 0 and 1000", nil)
			return
		}

		result, qerr := exec.Run(r.Context(), models.TemplateQuery{
			Name: "adhoc",
			SQL:  req.SQL,
		}, req.RowCap)
		if qerr != nil {
			status, code := queryErrorStatus(qerr.Kind)
			response.Error(w, status, code, qerr.Message, nil)
			return
		}

		response.JSON(w, queryResponse{
			Columns:   result.Columns,
			Rows:      result.Rows,
			RowCount:  len(result.Rows),
			Truncated: result.Truncated,
		})
	}
}

type queryResponse struct {
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	RowCount  int                 `json:"row_count"`
	Truncated bool                `json:"truncated"`
}

// NewDescribeTableHandler returns the handler for GET /api/v1/tables/{table}.
func NewDescribeTableHandler(exec QueryRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := chi.URLParam(r, "table")
		if table == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "table is required", nil)
			return
		}

		schema, err := exec.DescribeTable(r.Context(), table)
		if err != nil {
			switch {
			case errors.Is(err, warehouse.ErrTableNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "No such table", nil)
			case errors.Is(err, warehouse.ErrPermission):
				response.Error(w, http.StatusForbidden, "QUERY_PERMISSION",
					"Not allowed to describe this table", nil)
			case errors.Is(err, warehouse.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
				response.Error(w, http.StatusGatewayTimeout, "QUERY_TIMEOUT",
					"Describe timed out", nil)
			default:
				response.Error(w, http.StatusBadGateway, "WAREHOUSE_UNAVAILABLE",
					"The warehouse is not available", nil)
			}
			return
		}

		response.JSON(w, schema)
	}
}

func queryErrorStatus(kind models.ErrorKind) (int, string) {
	switch kind {
	case models.ErrorKindSyntax:
		return http.StatusBadRequest, "QUERY_SYNTAX"
	case models.ErrorKindPermission:
		return http.StatusForbidden, "QUERY_PERMISSION"
	case models.ErrorKindTimeout:
		return http.StatusGatewayTimeout, "QUERY_TIMEOUT"
	default:
		return http.StatusBadGateway, "WAREHOUSE_UNAVAILABLE"
	}
}
