package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
)

// DefaultTopK is how many documents a search returns when the caller does
// not say otherwise.
const DefaultTopK = 3

// DefaultRelevanceThreshold is the minimum cosine score for a document to
// count as relevant in Answer. Below it the engine reports nothing found
// rather than risk quoting an unrelated policy.
const DefaultRelevanceThreshold = 0.3

// NotFoundMessage is returned by Answer when no document clears the
// relevance threshold.
const NotFoundMessage = "No relevant policy information found for this query. Please contact ERWIQ Airlines customer care at 1800-ERWIQ-AIR for assistance."

// answerHeader prefixes every non-empty Answer.
const answerHeader = "Here's the relevant policy information:\n\n"

// Document is one policy entry with its embedding vector. Documents are
// immutable once the store reports Ready.
type Document struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"embedding,omitempty"`
}

// EmbedText is the text fed to the embedding model for a document: title and
// content joined by a newline. Corpus vectors and query vectors must come
// from the same model for cosine scores to mean anything.
func (d Document) EmbedText() string { return d.Title + "\n" + d.Content }

// Embedder computes embedding vectors, one per input text, order-preserving.
// *providers.OpenAIClient satisfies this.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Result pairs a document with its similarity score for one query.
type Result struct {
	Document Document
	Score    float64
}

// Store holds the embedded corpus and answers similarity searches. The
// document set is read-only after initialization, so concurrent searches
// need no coordination beyond the store's own lock.
type Store struct {
	mu        sync.RWMutex
	docs      []Document
	embedder  Embedder
	topK      int
	threshold float64
}

// NewStore builds an empty store. topK and threshold fall back to the
// package defaults when non-positive.
func NewStore(embedder Embedder, topK int, threshold float64) *Store {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}
	return &Store{embedder: embedder, topK: topK, threshold: threshold}
}

// SetDocuments replaces the corpus. Insertion order is preserved and later
// used for tie-breaking in Search.
func (s *Store) SetDocuments(docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make([]Document, len(docs))
	copy(s.docs, docs)
}

// Documents returns a copy of the corpus, embeddings included.
func (s *Store) Documents() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Len reports the corpus size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Categories returns the distinct document categories in corpus order.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.docs))
	var out []string
	for _, d := range s.docs {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	return out
}

// Ready reports whether every document has an embedding. A store that is
// not ready answers searches with an empty result set instead of failing.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readyLocked()
}

func (s *Store) readyLocked() bool {
	if len(s.docs) == 0 {
		return false
	}
	for _, d := range s.docs {
		if len(d.Embedding) == 0 {
			return false
		}
	}
	return true
}

// EmbedAll computes vectors for every document that lacks one, in a single
// batched embedder call.
func (s *Store) EmbedAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var texts []string
	var idx []int
	for i, d := range s.docs {
		if len(d.Embedding) == 0 {
			texts = append(texts, d.EmbedText())
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	slog.Info("embedding knowledge base documents", "count", len(texts))
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	for j, i := range idx {
		s.docs[i].Embedding = vectors[j]
	}
	return nil
}

// Add appends one document, embedding it immediately. Used by the importer;
// the built-in corpus goes through SetDocuments + EmbedAll instead.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if len(doc.Embedding) == 0 {
		vectors, err := s.embedder.Embed(ctx, []string{doc.EmbedText()})
		if err != nil {
			return fmt.Errorf("embed document %q: %w", doc.ID, err)
		}
		doc.Embedding = vectors[0]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return nil
}

// Search embeds the query and returns the topK most similar documents,
// scores descending, ties kept in corpus insertion order. topK <= 0 uses the
// store default. A store without embeddings returns an empty set.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = s.topK
	}

	s.mu.RLock()
	ready := s.readyLocked()
	s.mu.RUnlock()
	if !ready {
		slog.Warn("knowledge base not ready, returning no results")
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := vectors[0]

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, len(s.docs))
	for _, d := range s.docs {
		results = append(results, Result{Document: d, Score: Cosine(queryVec, d.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Answer runs a search and formats the relevant documents as a reply. When
// nothing clears the relevance threshold it returns NotFoundMessage, so the
// caller always gets presentable text on the success path.
func (s *Store) Answer(ctx context.Context, query string) (string, error) {
	results, err := s.Search(ctx, query, s.topK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 || results[0].Score < s.threshold {
		return NotFoundMessage, nil
	}

	var b strings.Builder
	b.WriteString(answerHeader)
	for _, r := range results {
		if r.Score < s.threshold {
			continue
		}
		fmt.Fprintf(&b, "**%s**\n%s\n\n", r.Document.Title, r.Document.Content)
	}
	return b.String(), nil
}

// Cosine returns the cosine similarity of two vectors: their dot product
// divided by the product of their Euclidean norms. Mismatched lengths or a
// zero-norm input score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
