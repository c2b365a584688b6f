package models

import "time"

// Feedback sources.
const (
	SourceUser  = "user"
	SourceAgent = "agent"
)

// FeedbackRecord is a single structured submission describing a gap or issue
// with the knowledge corpus. Records are immutable once written; corrections
// are modeled as new records.
type FeedbackRecord struct {
	// ID is derived from the submission timestamp and doubles as the
	// record's file name stem in the store.
	ID           string        `json:"id"`
	Source       string        `json:"source"`
	Body         string        `json:"body"`
	Satisfaction int           `json:"satisfaction,omitempty"` // 1..5, 0 = unset
	Accurate     *bool         `json:"accurate,omitempty"`
	Tags         []GapCategory `json:"tags,omitempty"`
	SubmittedAt  time.Time     `json:"submitted_at"`
}
