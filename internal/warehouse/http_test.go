package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- helpers ---

func newTestTransport(t *testing.T, baseURL string) *HTTPTransport {
	t.Helper()
	return NewHTTPTransport(baseURL, "", "", time.Millisecond, 5*time.Second)
}

func writePage(t *testing.T, w http.ResponseWriter, page statementResponse) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(page); err != nil {
		t.Errorf("encoding page: %v", err)
	}
}

// --- Execute tests ---

func TestExecute_SubmitAndPoll(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("POST /v1/statement", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Trino-User") == "" {
			t.Error("expected X-Trino-User header")
		}
		writePage(t, w, statementResponse{
			ID:      "q1",
			NextURI: ts.URL + "/v1/statement/q1/1",
			Stats:   statementStats{State: "QUEUED"},
		})
	})
	mux.HandleFunc("GET /v1/statement/q1/1", func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, statementResponse{
			ID:      "q1",
			NextURI: ts.URL + "/v1/statement/q1/2",
			Columns: []statementColumn{{Name: "eventdate", Type: "date"}, {Name: "dau", Type: "bigint"}},
			Data:    [][]any{{"2024-01-01", 120.0}, {"2024-01-02", 140.0}},
			Stats:   statementStats{State: "RUNNING"},
		})
	})
	mux.HandleFunc("GET /v1/statement/q1/2", func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, statementResponse{
			ID:    "q1",
			Data:  [][]any{{"2024-01-03", nil}},
			Stats: statementStats{State: "FINISHED"},
		})
	})

	tr := newTestTransport(t, ts.URL)
	result, err := tr.Execute(context.Background(), "SELECT eventdate, dau FROM analytics.daily_metrics;", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Columns) != 2 || result.Columns[0] != "eventdate" {
		t.Errorf("unexpected columns: %v", result.Columns)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	if result.Rows[0]["eventdate"] != "2024-01-01" {
		t.Errorf("unexpected first row: %v", result.Rows[0])
	}
	if result.Rows[2]["dau"] != "NULL" {
		t.Errorf("expected NULL for nil value, got %q", result.Rows[2]["dau"])
	}
	if result.Truncated {
		t.Error("expected truncated = false")
	}
}

func TestExecute_CapTruncatesAndCancels(t *testing.T) {
	cancelled := make(chan string, 1)

	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("POST /v1/statement", func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, statementResponse{
			ID:      "q2",
			NextURI: ts.URL + "/v1/statement/q2/1",
			Columns: []statementColumn{{Name: "n", Type: "bigint"}},
			Data:    [][]any{{1.0}, {2.0}, {3.0}, {4.0}},
			Stats:   statementStats{State: "RUNNING"},
		})
	})
	mux.HandleFunc("DELETE /v1/statement/q2", func(w http.ResponseWriter, r *http.Request) {
		cancelled <- "q2"
		w.WriteHeader(http.StatusNoContent)
	})

	tr := newTestTransport(t, ts.URL)
	result, err := tr.Execute(context.Background(), "SELECT n FROM analytics.series", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Rows) != 2 {
		t.Errorf("expected 2 rows (capped), got %d", len(result.Rows))
	}
	if !result.Truncated {
		t.Error("expected truncated = true")
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("expected the capped query to be cancelled")
	}
}

func TestExecute_EngineErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		engine   statementError
		sentinel error
	}{
		{"syntax error", statementError{Message: "line 1:8: mismatched input", ErrorName: "SYNTAX_ERROR", ErrorType: "USER_ERROR"}, ErrSyntax},
		{"access denied", statementError{Message: "Access Denied", ErrorName: "ACCESS_DENIED", ErrorType: "USER_ERROR"}, ErrPermission},
		{"time limit", statementError{Message: "Query exceeded time limit", ErrorName: "EXCEEDED_TIME_LIMIT", ErrorType: "INSUFFICIENT_RESOURCES"}, ErrTimeout},
		{"table not found", statementError{Message: "Table does not exist", ErrorName: "TABLE_NOT_FOUND", ErrorType: "USER_ERROR"}, ErrTableNotFound},
		{"internal error", statementError{Message: "worker died", ErrorName: "GENERIC_INTERNAL_ERROR", ErrorType: "INTERNAL_ERROR"}, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engErr := tt.engine
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writePage(t, w, statementResponse{
					ID:    "q3",
					Error: &engErr,
					Stats: statementStats{State: "FAILED"},
				})
			}))
			defer ts.Close()

			tr := newTestTransport(t, ts.URL)
			_, err := tr.Execute(context.Background(), "SELECT 1", 10)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestExecute_Unreachable(t *testing.T) {
	tr := newTestTransport(t, "http://127.0.0.1:1")
	_, err := tr.Execute(context.Background(), "SELECT 1", 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

// --- Describe tests ---

func TestDescribe_ParsesColumnsAndPartitions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, statementResponse{
			ID:      "q4",
			Columns: []statementColumn{{Name: "Column"}, {Name: "Type"}, {Name: "Extra"}, {Name: "Comment"}},
			Data: [][]any{
				{"eventdate", "date", "", "event day (IST)"},
				{"dau", "bigint", "", ""},
				{"", "", "", ""},
				{"# Partition Information", "", "", ""},
				{"eventdate", "date", "partition key", ""},
			},
			Stats: statementStats{State: "FINISHED"},
		})
	}))
	defer ts.Close()

	tr := newTestTransport(t, ts.URL)
	schema, err := tr.Describe(context.Background(), "analytics.daily_metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if schema.Table != "analytics.daily_metrics" {
		t.Errorf("unexpected table name: %q", schema.Table)
	}
	if len(schema.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(schema.Columns))
	}
	if schema.Columns[0].Name != "eventdate" || schema.Columns[0].Comment != "event day (IST)" {
		t.Errorf("unexpected first column: %+v", schema.Columns[0])
	}
	if len(schema.PartitionKeys) != 1 || schema.PartitionKeys[0].Name != "eventdate" {
		t.Errorf("unexpected partition keys: %+v", schema.PartitionKeys)
	}
}

func TestDescribe_EmptySchemaIsNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, statementResponse{
			ID:      "q5",
			Columns: []statementColumn{{Name: "Column"}, {Name: "Type"}},
			Stats:   statementStats{State: "FINISHED"},
		})
	}))
	defer ts.Close()

	tr := newTestTransport(t, ts.URL)
	_, err := tr.Describe(context.Background(), "analytics.missing")
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

// --- Ping tests ---

func TestPing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/info" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tr := newTestTransport(t, ts.URL)
	if err := tr.Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPing_Down(t *testing.T) {
	tr := newTestTransport(t, "http://127.0.0.1:1")
	if err := tr.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}
