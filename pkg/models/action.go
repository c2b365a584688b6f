package models

import (
	"time"

	"github.com/google/uuid"
)

// GapCategory is the fixed taxonomy an action item belongs to.
type GapCategory string

const (
	GapMissingTable            GapCategory = "missing-table"
	GapMissingMetricDefinition GapCategory = "missing-metric-definition"
	GapMissingDomainContext    GapCategory = "missing-domain-context"
	GapMissingExample          GapCategory = "missing-example"
	GapQueryQuality            GapCategory = "query-quality"
	GapAmbiguousDocumentation  GapCategory = "ambiguous-documentation"

	// GapDiscoverability marks a "missing X" report whose X already exists
	// in the knowledge corpus: the content is there but was not found.
	GapDiscoverability GapCategory = "documentation-discoverability"
)

// ParseGapCategory validates a submitter-supplied gap tag.
func ParseGapCategory(s string) (GapCategory, bool) {
	switch GapCategory(s) {
	case GapMissingTable, GapMissingMetricDefinition, GapMissingDomainContext,
		GapMissingExample, GapQueryQuality, GapAmbiguousDocumentation,
		GapDiscoverability:
		return GapCategory(s), true
	}
	return "", false
}

// ActionItem is a deduplicated, prioritized unit of work derived from one or
// more feedback records. Within one report no two items share the same
// (Category, NormalizedKey) pair.
type ActionItem struct {
	ID              uuid.UUID   `json:"id"`
	Category        GapCategory `json:"category"`
	Description     string      `json:"description"`
	NormalizedKey   string      `json:"-"`
	Priority        int         `json:"priority"`
	Supporting      []string    `json:"supporting"` // feedback record IDs, timestamp order
	FirstReportedAt time.Time   `json:"first_reported_at"`
}

// Report is the consolidated output of one consolidation run. Reports are
// written once, keyed by generation timestamp, and never overwritten.
type Report struct {
	ID             string       `json:"id"`
	GeneratedAt    time.Time    `json:"generated_at"`
	SkippedRecords int          `json:"skipped_records"`
	Items          []ActionItem `json:"items"`
}
