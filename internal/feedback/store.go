// Package feedback persists feedback records as an append-only store of one
// JSON file per record. File names are submission timestamps, so a plain
// directory listing yields chronological order.
package feedback

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/querysage/querysage/pkg/models"
)

// idFormat produces sortable, collision-resistant file name stems like
// 20240301T120000.000000001Z.
const idFormat = "20060102T150405.000000000Z"

var timeNow = time.Now

// Store is the append-only feedback record store. Records are never updated
// or deleted once written.
type Store struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex // serializes ID assignment
}

func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating feedback dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Append assigns the record an ID and submission time, then writes it. The
// timestamp is bumped by a nanosecond when two submissions land in the same
// instant, keeping IDs unique without a counter file.
func (s *Store) Append(record models.FeedbackRecord) (*models.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := timeNow().UTC()
	for {
		record.SubmittedAt = ts
		record.ID = ts.Format(idFormat)

		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding feedback record: %w", err)
		}

		f, err := os.OpenFile(s.recordPath(record.ID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			ts = ts.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating feedback record: %w", err)
		}

		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			os.Remove(f.Name())
			return nil, fmt.Errorf("writing feedback record: %w", werr)
		}
		return &record, nil
	}
}

// All returns every readable record sorted by submission time ascending,
// plus the count of malformed files that were skipped.
func (s *Store) All() ([]models.FeedbackRecord, int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, 0, fmt.Errorf("reading feedback dir: %w", err)
	}

	var records []models.FeedbackRecord
	skipped := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.Warn("unreadable feedback record", "file", entry.Name(), "error", err)
			skipped++
			continue
		}

		var record models.FeedbackRecord
		if err := json.Unmarshal(data, &record); err != nil || record.Body == "" {
			s.logger.Warn("malformed feedback record", "file", entry.Name(), "error", err)
			skipped++
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.Before(records[j].SubmittedAt)
	})
	return records, skipped, nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}
