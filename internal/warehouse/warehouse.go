// Package warehouse provides access to the external SQL warehouse engine.
// Implementations submit SQL text, enforce a row cap, and normalize engine
// failures into a small sentinel-error taxonomy.
package warehouse

import (
	"context"
	"errors"

	"github.com/querysage/querysage/pkg/models"
)

// Sentinel errors for warehouse failures. Callers classify with errors.Is.
var (
	ErrSyntax        = errors.New("warehouse syntax error")
	ErrPermission    = errors.New("warehouse permission denied")
	ErrTimeout       = errors.New("warehouse query timeout")
	ErrUnavailable   = errors.New("warehouse unavailable")
	ErrTableNotFound = errors.New("warehouse table not found")
)

// Transport is the interface for executing queries against the warehouse.
type Transport interface {
	// Execute runs SQL and returns at most rowCap rows. Truncated is set
	// when the engine had more rows than the cap.
	Execute(ctx context.Context, sql string, rowCap int) (*models.ResultSet, error)
	// Describe returns the schema of a table. Returns ErrTableNotFound if
	// the table does not exist.
	Describe(ctx context.Context, table string) (*models.TableSchema, error)
	Ping(ctx context.Context) error
}
