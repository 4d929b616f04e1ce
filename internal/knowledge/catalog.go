// Package knowledge implements the policy retrieval engine: an embedded
// document corpus scored by cosine similarity against query embeddings.
package knowledge

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Documents []catalogEntry `yaml:"documents"`
}

type catalogEntry struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
}

// BuiltinDocuments parses the embedded policy catalog into documents without
// embeddings. The corpus ships inside the binary so a fresh install can build
// its snapshot with no external data.
func BuiltinDocuments() ([]Document, error) {
	var f catalogFile
	if err := yaml.Unmarshal(catalogYAML, &f); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}
	if len(f.Documents) == 0 {
		return nil, fmt.Errorf("embedded catalog is empty")
	}
	docs := make([]Document, len(f.Documents))
	for i, e := range f.Documents {
		docs[i] = Document{
			ID:       e.ID,
			Category: e.Category,
			Title:    e.Title,
			Content:  e.Content,
		}
	}
	return docs, nil
}
