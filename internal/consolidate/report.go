package consolidate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/querysage/querysage/pkg/models"
)

var (
	// ErrReportNotFound is returned when no report exists for a requested ID.
	ErrReportNotFound = errors.New("report not found")
	// ErrReportExists is returned by Write when the report ID is taken.
	ErrReportExists = errors.New("report already exists")
)

// ReportStore keeps one JSON file per consolidation run. Reports are
// written once and never overwritten; history is the point.
type ReportStore struct {
	dir string
}

func NewReportStore(dir string) (*ReportStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports dir: %w", err)
	}
	return &ReportStore{dir: dir}, nil
}

func (s *ReportStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Write persists a report. Fails if a report with the same ID already
// exists. The temp-file + rename discipline keeps readers from ever seeing
// a partial report.
func (s *ReportStore) Write(report *models.Report) error {
	if _, err := os.Stat(s.path(report.ID)); err == nil {
		return fmt.Errorf("report %s: %w", report.ID, ErrReportExists)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing report: %w", werr)
	}

	if err := os.Rename(tmpName, s.path(report.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing report: %w", err)
	}
	return nil
}

// Read returns one report by ID.
func (s *ReportStore) Read(id string) (*models.Report, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("report %s: %w", id, ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", id, err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", id, err)
	}
	return &report, nil
}

// List returns report IDs newest first. IDs are generation timestamps, so
// reverse lexicographic order is reverse chronological order.
func (s *ReportStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading reports dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}
