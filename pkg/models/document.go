package models

import "time"

// KnowledgeDocument is one generated artifact of the knowledge corpus.
// Exactly one current document exists per category; regenerating a category
// replaces its document wholesale (no incremental merge).
type KnowledgeDocument struct {
	Category    Category  `json:"category"`
	GeneratedAt time.Time `json:"generated_at"`
	Content     string    `json:"content"`
}
