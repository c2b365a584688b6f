package knowledge

import (
	"context"

	"github.com/querysage/querysage/internal/catalog"
	"github.com/querysage/querysage/pkg/models"
)

// Service exposes knowledge generation and retrieval to the API layer. The
// template catalog is re-read on every generation so operators can drop in
// new .sql files without a restart.
type Service struct {
	queriesDir string
	synth      *Synthesizer
	store      *DocumentStore
	rowCap     int
}

func NewService(queriesDir string, synth *Synthesizer, store *DocumentStore, rowCap int) *Service {
	return &Service{
		queriesDir: queriesDir,
		synth:      synth,
		store:      store,
		rowCap:     rowCap,
	}
}

// GenerateResult summarizes one synthesis run.
type GenerateResult struct {
	Documents []models.KnowledgeDocument `json:"documents"`
	Failures  []models.QueryError        `json:"failures"`
	Templates int                        `json:"templates"`
}

// Generate loads the catalog and synthesizes the full corpus. rowCap
// overrides the configured cap when positive.
func (s *Service) Generate(ctx context.Context, rowCap int) (*GenerateResult, error) {
	templates, err := catalog.Load(s.queriesDir)
	if err != nil {
		return nil, err
	}
	if rowCap <= 0 {
		rowCap = s.rowCap
	}

	docs, failures, err := s.synth.Synthesize(ctx, templates, rowCap)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{Failures: failures, Templates: len(templates)}
	for _, category := range models.Categories() {
		if doc, ok := docs[category]; ok {
			result.Documents = append(result.Documents, doc)
		}
	}
	return result, nil
}

// Document returns the stored document for one category.
func (s *Service) Document(category models.Category) (*models.KnowledgeDocument, error) {
	return s.store.Read(category)
}

// Documents returns every stored document in canonical category order.
func (s *Service) Documents() ([]models.KnowledgeDocument, error) {
	return s.store.ReadAll()
}
