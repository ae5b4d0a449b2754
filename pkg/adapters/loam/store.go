// Package loam persists models as documents in a Loam workspace: one
// markdown file per model, typed frontmatter for browsing metadata and
// the canonical JSON as the document body. This is the default store of
// the top-level engine.
package loam

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/loam"

	"github.com/aretw0/espalier/pkg/codec"
	"github.com/aretw0/espalier/pkg/domain"
)

// Store implements ports.ModelStore and ports.ModelCreator on top of a
// Loam repository.
type Store struct {
	repo     *loam.TypedRepository[ModelMetadata]
	basePath string
}

// New initializes a Loam workspace at dir and returns a store over it.
func New(dir string) (*Store, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithVersioning(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return &Store{
		repo:     loam.NewTypedRepository[ModelMetadata](repo),
		basePath: absPath,
	}, nil
}

// BasePath returns the workspace directory.
func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) docPath(modelID string) string {
	return filepath.Join(s.basePath, modelID+".md")
}

// Save writes the model document, regenerating the frontmatter metadata
// from the model content.
func (s *Store) Save(ctx context.Context, modelID string, m *domain.Model) error {
	if modelID == "" {
		return fmt.Errorf("modelID cannot be empty")
	}
	data, err := codec.Encode(m)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	title := modelID
	if ordered := m.SlicesByIndex(); len(ordered) > 0 && ordered[0].Title != "" {
		title = ordered[0].Title
	}

	err = s.repo.Save(ctx, &loam.DocumentModel[ModelMetadata]{
		ID:      modelID,
		Content: string(data),
		Data: ModelMetadata{
			Title:      title,
			SliceCount: len(m.Slices),
			UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", modelID, err)
	}
	return nil
}

// Load reads the model document and decodes its body as a draft.
func (s *Store) Load(ctx context.Context, modelID string) (*domain.Model, error) {
	if modelID == "" {
		return nil, fmt.Errorf("modelID cannot be empty")
	}
	if _, err := os.Stat(s.docPath(modelID)); os.IsNotExist(err) {
		return nil, domain.ErrModelNotFound
	}

	doc, err := s.repo.Get(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("loam get failed for %s: %w", modelID, err)
	}

	m, err := codec.DecodeDraft([]byte(doc.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored model %s: %w", modelID, err)
	}
	return m, nil
}

// Delete removes the model document. Loam has no delete operation, so
// the backing file is removed directly.
func (s *Store) Delete(ctx context.Context, modelID string) error {
	if modelID == "" {
		return fmt.Errorf("modelID cannot be empty")
	}
	err := os.Remove(s.docPath(modelID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete model document: %w", err)
	}
	return nil
}

// List returns the ids of every model document in the workspace.
func (s *Store) List(ctx context.Context) ([]string, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, trimExtension(doc.ID))
	}
	return ids, nil
}

// Create stores the model under the requested id, appending "-2", "-3",
// ... while the id is taken. The id actually used is returned.
func (s *Store) Create(ctx context.Context, modelID string, m *domain.Model) (string, error) {
	if modelID == "" {
		return "", fmt.Errorf("modelID cannot be empty")
	}
	id := modelID
	for counter := 2; ; counter++ {
		if _, err := os.Stat(s.docPath(id)); os.IsNotExist(err) {
			break
		}
		id = fmt.Sprintf("%s-%d", modelID, counter)
	}
	if err := s.Save(ctx, id, m); err != nil {
		return "", err
	}
	return id, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
