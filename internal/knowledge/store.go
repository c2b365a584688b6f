// Package knowledge generates and stores the per-category knowledge corpus.
// Synthesis runs the template catalog through the executor, renders one text
// document per category, and atomically replaces the stored documents.
package knowledge

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/querysage/querysage/pkg/models"
)

// ErrNotFound is returned when no document has been generated for a category.
var ErrNotFound = errors.New("knowledge document not found")

// WriteError records a failed document write for one category. Writes for
// the other categories proceed regardless.
type WriteError struct {
	Category models.Category
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s document: %v", e.Category, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// generatedAtPrefix marks the header line carrying the generation timestamp.
// It sits alone on its line so Read can recover the timestamp without a
// sidecar metadata file.
const generatedAtPrefix = "Generated at: "

// DocumentStore persists knowledge documents as one text file per category.
// Replacement is atomic: readers see either the old document or the new one,
// never a partial write.
type DocumentStore struct {
	dir string
}

func NewDocumentStore(dir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating knowledge dir: %w", err)
	}
	return &DocumentStore{dir: dir}, nil
}

func (s *DocumentStore) path(category models.Category) string {
	return filepath.Join(s.dir, string(category)+".txt")
}

// Write replaces the document for doc.Category. The content is written to a
// temp file in the same directory and renamed over the target.
func (s *DocumentStore) Write(doc models.KnowledgeDocument) error {
	tmp, err := os.CreateTemp(s.dir, "."+string(doc.Category)+"-*.tmp")
	if err != nil {
		return &WriteError{Category: doc.Category, Err: err}
	}
	tmpName := tmp.Name()

	_, werr := tmp.WriteString(doc.Content)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		return &WriteError{Category: doc.Category, Err: errors.Join(werr, cerr)}
	}

	if err := os.Rename(tmpName, s.path(doc.Category)); err != nil {
		os.Remove(tmpName)
		return &WriteError{Category: doc.Category, Err: err}
	}
	return nil
}

// Read returns the current document for a category, or ErrNotFound.
func (s *DocumentStore) Read(category models.Category) (*models.KnowledgeDocument, error) {
	data, err := os.ReadFile(s.path(category))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("category %s: %w", category, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s document: %w", category, err)
	}

	content := string(data)
	return &models.KnowledgeDocument{
		Category:    category,
		GeneratedAt: parseGeneratedAt(content),
		Content:     content,
	}, nil
}

// ReadAll returns the stored documents in canonical category order, skipping
// categories that have never been generated.
func (s *DocumentStore) ReadAll() ([]models.KnowledgeDocument, error) {
	var docs []models.KnowledgeDocument
	for _, category := range models.Categories() {
		doc, err := s.Read(category)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func parseGeneratedAt(content string) time.Time {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, generatedAtPrefix) {
			continue
		}
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(strings.TrimPrefix(line, generatedAtPrefix)))
		if err == nil {
			return ts
		}
	}
	return time.Time{}
}
