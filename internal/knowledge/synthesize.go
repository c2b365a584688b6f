package knowledge

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/querysage/querysage/pkg/models"
	"github.com/querysage/querysage/pkg/sqlutil"
)

// timeNow is swapped out in tests.
var timeNow = time.Now

// Runner executes capped template queries. Satisfied by executor.Executor.
type Runner interface {
	Run(ctx context.Context, tpl models.TemplateQuery, rowCap int) (*models.QueryResult, *models.QueryError)
	DescribeTable(ctx context.Context, table string) (*models.TableSchema, error)
}

// Synthesizer turns a template catalog into the per-category knowledge
// corpus. Template failures are collected, not fatal: every category with at
// least one successful result still gets a fresh document.
type Synthesizer struct {
	runner      Runner
	store       *DocumentStore
	workers     int
	previewRows int
	logger      *slog.Logger
}

func NewSynthesizer(runner Runner, store *DocumentStore, workers, previewRows int, logger *slog.Logger) *Synthesizer {
	if workers < 1 {
		workers = 1
	}
	return &Synthesizer{
		runner:      runner,
		store:       store,
		workers:     workers,
		previewRows: previewRows,
		logger:      logger,
	}
}

// Synthesize runs every template with the given row cap, renders one
// document per category, and atomically replaces the stored documents.
//
// The returned map holds the newly written documents. QueryErrors carry the
// per-template failures in catalog order. The error return is non-nil only
// when the run as a whole failed: context cancellation writes nothing, and
// document write failures are joined per category.
func (s *Synthesizer) Synthesize(ctx context.Context, templates []models.TemplateQuery, rowCap int) (map[models.Category]models.KnowledgeDocument, []models.QueryError, error) {
	if len(templates) == 0 {
		return map[models.Category]models.KnowledgeDocument{}, nil, nil
	}

	results := make([]*models.QueryResult, len(templates))
	qerrs := make([]*models.QueryError, len(templates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, tpl := range templates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], qerrs[i] = s.runner.Run(gctx, tpl, rowCap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var failures []models.QueryError
	byCategory := make(map[models.Category][]templateResult)
	for i, tpl := range templates {
		if qerrs[i] != nil {
			failures = append(failures, *qerrs[i])
			continue
		}
		byCategory[tpl.Category] = append(byCategory[tpl.Category], templateResult{
			Template: tpl,
			Result:   results[i],
		})
	}

	schemas := s.describeReferencedTables(ctx, templates)
	if len(schemas) > 0 && byCategory[models.CategoryCatalog] == nil {
		byCategory[models.CategoryCatalog] = []templateResult{}
	}

	now := timeNow().UTC()
	docs := make(map[models.Category]models.KnowledgeDocument, len(byCategory))
	var writeErrs []error
	for _, category := range models.Categories() {
		trs, ok := byCategory[category]
		if !ok {
			continue
		}

		var catSchemas []schemaEntry
		if category == models.CategoryCatalog {
			catSchemas = schemas
		}

		doc := models.KnowledgeDocument{
			Category:    category,
			GeneratedAt: now,
			Content:     renderDocument(category, now, trs, catSchemas, s.previewRows),
		}
		if err := s.store.Write(doc); err != nil {
			s.logger.Error("document write failed", "category", string(category), "error", err)
			writeErrs = append(writeErrs, err)
			continue
		}
		docs[category] = doc
	}

	s.logger.Info("knowledge synthesis complete",
		"templates", len(templates),
		"failed", len(failures),
		"documents", len(docs))

	return docs, failures, errors.Join(writeErrs...)
}

// describeReferencedTables describes every table referenced by a FROM or
// JOIN clause across the catalog, for the data catalog document. Describe
// failures are kept and rendered so a missing or restricted table is visible
// rather than silently absent.
func (s *Synthesizer) describeReferencedTables(ctx context.Context, templates []models.TemplateQuery) []schemaEntry {
	seen := make(map[string]bool)
	var tables []string
	for _, tpl := range templates {
		for _, table := range sqlutil.ExtractTableRefs(tpl.SQL) {
			if !seen[table] {
				seen[table] = true
				tables = append(tables, table)
			}
		}
	}
	sort.Strings(tables)

	entries := make([]schemaEntry, 0, len(tables))
	for _, table := range tables {
		if ctx.Err() != nil {
			break
		}
		schema, err := s.runner.DescribeTable(ctx, table)
		entries = append(entries, schemaEntry{Table: table, Schema: schema, Err: err})
	}
	return entries
}
