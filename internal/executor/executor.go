// Package executor runs template queries against the warehouse with a row
// cap, a per-query timeout, and an optional result cache. Failures are
// normalized into models.QueryError so callers can report them without
// aborting a batch.
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/querysage/querysage/internal/cache"
	"github.com/querysage/querysage/internal/warehouse"
	"github.com/querysage/querysage/pkg/models"
)

// DefaultRowCap is applied when a caller passes a non-positive cap.
const DefaultRowCap = 100

// Executor executes capped queries through a warehouse transport.
type Executor struct {
	transport warehouse.Transport
	cache     cache.Cache // nil disables result caching
	cacheTTL  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

func New(transport warehouse.Transport, c cache.Cache, cacheTTL, timeout time.Duration, logger *slog.Logger) *Executor {
	return &Executor{
		transport: transport,
		cache:     c,
		cacheTTL:  cacheTTL,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run executes one template query with the given row cap. The cap defaults
// to DefaultRowCap when non-positive. On failure it returns a QueryError
// carrying the template name and a coarse error kind; the error never
// includes more than the transport's message.
func (e *Executor) Run(ctx context.Context, tpl models.TemplateQuery, rowCap int) (*models.QueryResult, *models.QueryError) {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}

	if cached := e.fromCache(ctx, tpl, rowCap); cached != nil {
		return cached, nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rs, err := e.transport.Execute(ctx, tpl.SQL, rowCap)
	if err != nil {
		qerr := classify(tpl.Name, err)
		e.logger.Warn("query failed",
			"template", tpl.Name,
			"kind", string(qerr.Kind),
			"error", err)
		return nil, qerr
	}

	// The transport enforces the cap; trim anyway in case a backend
	// returned extra rows.
	if len(rs.Rows) > rowCap {
		rs.Rows = rs.Rows[:rowCap]
		rs.Truncated = true
	}

	result := &models.QueryResult{
		Template:  tpl.Name,
		Category:  tpl.Category,
		Columns:   rs.Columns,
		Rows:      rs.Rows,
		Truncated: rs.Truncated,
	}

	e.toCache(ctx, tpl, rowCap, result)

	return result, nil
}

// DescribeTable returns the schema of a warehouse table.
func (e *Executor) DescribeTable(ctx context.Context, table string) (*models.TableSchema, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.transport.Describe(ctx, table)
}

func (e *Executor) cacheKey(tpl models.TemplateQuery, rowCap int) string {
	sum := sha256.Sum256([]byte(tpl.SQL))
	return cache.QueryResultKey(hex.EncodeToString(sum[:]), rowCap)
}

// fromCache returns a cached result, or nil on miss. Cache failures are
// logged and treated as misses.
func (e *Executor) fromCache(ctx context.Context, tpl models.TemplateQuery, rowCap int) *models.QueryResult {
	if e.cache == nil || e.cacheTTL <= 0 {
		return nil
	}

	data, found, err := e.cache.Get(ctx, e.cacheKey(tpl, rowCap))
	if err != nil {
		e.logger.Warn("result cache read failed", "template", tpl.Name, "error", err)
		return nil
	}
	if !found {
		return nil
	}

	var result models.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		e.logger.Warn("result cache entry corrupt", "template", tpl.Name, "error", err)
		return nil
	}
	return &result
}

func (e *Executor) toCache(ctx context.Context, tpl models.TemplateQuery, rowCap int, result *models.QueryResult) {
	if e.cache == nil || e.cacheTTL <= 0 {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, e.cacheKey(tpl, rowCap), data, e.cacheTTL); err != nil {
		e.logger.Warn("result cache write failed", "template", tpl.Name, "error", err)
	}
}

// classify maps transport sentinel errors to the coarse error kinds exposed
// to callers. An unknown table reads as a syntax problem from the template
// author's point of view.
func classify(template string, err error) *models.QueryError {
	kind := models.ErrorKindUnavailable
	switch {
	case errors.Is(err, warehouse.ErrSyntax), errors.Is(err, warehouse.ErrTableNotFound):
		kind = models.ErrorKindSyntax
	case errors.Is(err, warehouse.ErrPermission):
		kind = models.ErrorKindPermission
	case errors.Is(err, warehouse.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = models.ErrorKindTimeout
	}

	return &models.QueryError{
		Template: template,
		Kind:     kind,
		Message:  err.Error(),
	}
}
