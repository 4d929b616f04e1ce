package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// LoadSnapshot reads a persisted corpus (documents with embeddings) from
// path. The format is a JSON array of Document records.
func LoadSnapshot(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return docs, nil
}

// SaveSnapshot writes the corpus to path, creating parent directories as
// needed.
func SaveSnapshot(path string, docs []Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadOrBuild initializes the store. It prefers the snapshot at path; when
// the snapshot is missing, unreadable, or carries documents without
// embeddings, it rebuilds from the embedded catalog, embeds everything, and
// persists a fresh snapshot so later startups skip the embedding cost.
// A failed persist is logged and tolerated; a failed embed is not.
func (s *Store) LoadOrBuild(ctx context.Context, path string) error {
	docs, err := LoadSnapshot(path)
	if err == nil {
		s.SetDocuments(docs)
		if s.Ready() {
			slog.Info("knowledge base loaded from snapshot", "documents", len(docs), "path", path)
			return nil
		}
		slog.Warn("snapshot has documents without embeddings, rebuilding", "path", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("knowledge snapshot unreadable, rebuilding", "path", path, "error", err)
	}

	builtin, err := BuiltinDocuments()
	if err != nil {
		return err
	}
	s.SetDocuments(builtin)
	if err := s.EmbedAll(ctx); err != nil {
		return err
	}
	if err := SaveSnapshot(path, s.Documents()); err != nil {
		slog.Warn("could not persist knowledge snapshot", "path", path, "error", err)
	} else {
		slog.Info("knowledge base built and persisted", "documents", s.Len(), "path", path)
	}
	return nil
}
