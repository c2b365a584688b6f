package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/querysage/querysage/pkg/models"
	"github.com/querysage/querysage/pkg/sqlutil"
)

// HTTPTransport implements Transport against warehouse engines exposing a
// submit-and-poll statement API (Trino and compatible engines): POST the SQL,
// then follow nextUri until the query reaches a terminal state, paging rows.
type HTTPTransport struct {
	baseURL      string
	username     string
	password     string
	user         string
	pollInterval time.Duration
	client       *http.Client
}

// NewHTTPTransport creates a new HTTPTransport.
func NewHTTPTransport(baseURL, username, password string, pollInterval, timeout time.Duration) *HTTPTransport {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &HTTPTransport{
		baseURL:      strings.TrimRight(baseURL, "/"),
		username:     username,
		password:     password,
		user:         "querysage",
		pollInterval: pollInterval,
		client:       &http.Client{Timeout: timeout},
	}
}

type statementResponse struct {
	ID      string            `json:"id"`
	NextURI string            `json:"nextUri"`
	Columns []statementColumn `json:"columns"`
	Data    [][]any           `json:"data"`
	Stats   statementStats    `json:"stats"`
	Error   *statementError   `json:"error"`
}

type statementColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type statementStats struct {
	State string `json:"state"`
}

type statementError struct {
	Message   string `json:"message"`
	ErrorName string `json:"errorName"`
	ErrorType string `json:"errorType"`
}

func (t *HTTPTransport) Execute(ctx context.Context, sql string, rowCap int) (*models.ResultSet, error) {
	page, err := t.submit(ctx, sqlutil.StripTrailingSemicolon(sql))
	if err != nil {
		return nil, err
	}

	result := &models.ResultSet{Rows: []map[string]string{}}
	for {
		if page.Error != nil {
			return nil, classifyEngineError(page.Error)
		}
		if len(page.Columns) > 0 && len(result.Columns) == 0 {
			for _, col := range page.Columns {
				result.Columns = append(result.Columns, col.Name)
			}
		}

		for _, raw := range page.Data {
			if len(result.Rows) >= rowCap {
				result.Truncated = true
				t.cancel(page.ID)
				return result, nil
			}
			row := make(map[string]string, len(result.Columns))
			for i, col := range result.Columns {
				if i < len(raw) {
					row[col] = renderValue(raw[i])
				}
			}
			result.Rows = append(result.Rows, row)
		}

		if page.NextURI == "" {
			return result, nil
		}

		// No data on this page means the query is still queued or running.
		if len(page.Data) == 0 && page.Stats.State != "FINISHED" {
			select {
			case <-ctx.Done():
				t.cancel(page.ID)
				return nil, classifyNetError(ctx.Err())
			case <-time.After(t.pollInterval):
			}
		}

		page, err = t.fetch(ctx, page.NextURI)
		if err != nil {
			return nil, err
		}
	}
}

func (t *HTTPTransport) Describe(ctx context.Context, table string) (*models.TableSchema, error) {
	result, err := t.Execute(ctx, "DESCRIBE "+table, 500)
	if err != nil {
		return nil, err
	}
	return parseDescribeRows(table, result)
}

func (t *HTTPTransport) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v1/info", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	t.setHeaders(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: engine not ready (status %d)", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (t *HTTPTransport) submit(ctx context.Context, sql string) (*statementResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/statement", strings.NewReader(sql))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	t.setHeaders(req)

	return t.do(req)
}

func (t *HTTPTransport) fetch(ctx context.Context, uri string) (*statementResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	t.setHeaders(req)

	return t.do(req)
}

// cancel tells the engine to abandon a running query. Best effort; failures
// are ignored because the rows already fetched are still valid.
func (t *HTTPTransport) cancel(id string) {
	if id == "" {
		return
	}
	req, err := http.NewRequest(http.MethodDelete, t.baseURL+"/v1/statement/"+id, nil)
	if err != nil {
		return
	}
	t.setHeaders(req)
	if resp, err := t.client.Do(req); err == nil {
		resp.Body.Close()
	}
}

func (t *HTTPTransport) do(req *http.Request) (*statementResponse, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyNetError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var page statementResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decoding engine response: %v", ErrUnavailable, err)
	}
	return &page, nil
}

func (t *HTTPTransport) setHeaders(req *http.Request) {
	req.Header.Set("X-Trino-User", t.user)
	if t.username != "" && t.password != "" {
		req.SetBasicAuth(t.username, t.password)
	}
}

// classifyEngineError maps a terminal engine error to a sentinel error.
func classifyEngineError(e *statementError) error {
	switch e.ErrorName {
	case "TABLE_NOT_FOUND", "SCHEMA_NOT_FOUND":
		return fmt.Errorf("%w: %s", ErrTableNotFound, e.Message)
	case "EXCEEDED_TIME_LIMIT":
		return fmt.Errorf("%w: %s", ErrTimeout, e.Message)
	case "PERMISSION_DENIED", "ACCESS_DENIED":
		return fmt.Errorf("%w: %s", ErrPermission, e.Message)
	case "SYNTAX_ERROR", "COLUMN_NOT_FOUND", "TYPE_MISMATCH":
		return fmt.Errorf("%w: %s", ErrSyntax, e.Message)
	}
	switch e.ErrorType {
	case "USER_ERROR":
		return fmt.Errorf("%w: %s", ErrSyntax, e.Message)
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, e.Message)
}

// classifyNetError maps transport-level errors to sentinel errors.
func classifyNetError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// parseDescribeRows converts Hive-style DESCRIBE output into a TableSchema.
// Rows after a "# Partition Information" marker are partition keys.
func parseDescribeRows(table string, result *models.ResultSet) (*models.TableSchema, error) {
	schema := &models.TableSchema{Table: table}
	inPartition := false

	for _, row := range result.Rows {
		name := strings.TrimSpace(cell(result.Columns, row, 0))
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, "#") {
			inPartition = strings.HasPrefix(strings.ToLower(name), "# partition")
			continue
		}
		col := models.ColumnInfo{
			Name: name,
			Type: strings.TrimSpace(cell(result.Columns, row, 1)),
		}
		if len(result.Columns) >= 3 {
			col.Comment = strings.TrimSpace(cell(result.Columns, row, len(result.Columns)-1))
		}
		if inPartition {
			schema.PartitionKeys = append(schema.PartitionKeys, col)
		} else {
			schema.Columns = append(schema.Columns, col)
		}
	}

	if len(schema.Columns) == 0 && len(schema.PartitionKeys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return schema, nil
}

// cell returns the value of the i-th DESCRIBE output column for a row.
func cell(columns []string, row map[string]string, i int) string {
	if i < 0 || i >= len(columns) {
		return ""
	}
	return row[columns[i]]
}
