package consolidate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/querysage/querysage/internal/feedback"
	"github.com/querysage/querysage/internal/knowledge"
	"github.com/querysage/querysage/pkg/models"
)

var timeNow = time.Now

// reportIDFormat names reports by generation time, matching the feedback
// store's sortable-timestamp convention. Nanosecond precision keeps runs
// within the same second from colliding.
const reportIDFormat = "20060102T150405.000000000Z"

// Service runs consolidation end to end: read all feedback, read the
// current knowledge corpus, consolidate, persist the report.
type Service struct {
	feedback *feedback.Store
	docs     *knowledge.DocumentStore
	reports  *ReportStore
	logger   *slog.Logger
}

func NewService(fb *feedback.Store, docs *knowledge.DocumentStore, reports *ReportStore, logger *slog.Logger) *Service {
	return &Service{feedback: fb, docs: docs, reports: reports, logger: logger}
}

// Run executes one consolidation pass and returns the persisted report.
// Zero feedback records produce a valid empty report.
func (s *Service) Run(ctx context.Context) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, skipped, err := s.feedback.All()
	if err != nil {
		return nil, err
	}

	docList, err := s.docs.ReadAll()
	if err != nil {
		return nil, err
	}
	docs := make(map[models.Category]models.KnowledgeDocument, len(docList))
	for _, doc := range docList {
		docs[doc.Category] = doc
	}

	report := &models.Report{
		SkippedRecords: skipped,
		Items:          Consolidate(records, docs),
	}

	// Bump the timestamp on ID collision rather than failing the run.
	ts := timeNow().UTC()
	for {
		report.ID = ts.Format(reportIDFormat)
		report.GeneratedAt = ts
		err := s.reports.Write(report)
		if errors.Is(err, ErrReportExists) {
			ts = ts.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	s.logger.Info("consolidation complete",
		"report", report.ID,
		"records", len(records),
		"skipped", skipped,
		"items", len(report.Items))

	return report, nil
}

// Report returns a stored report by ID.
func (s *Service) Report(id string) (*models.Report, error) {
	return s.reports.Read(id)
}

// Reports lists stored report IDs newest first.
func (s *Service) Reports() ([]string, error) {
	return s.reports.List()
}
