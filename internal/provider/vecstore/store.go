// Package vecstore is the default in-process vector similarity
// provider: an HNSW graph over embedded knowledge documents. It
// implements retrieve.VectorSearcher.
package vecstore

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/fixmate/kbsearch/internal/retrieve"
)

// Document is one knowledge entry held by the store.
type Document struct {
	ID        string
	Title     string
	Content   string
	Category  string
	URL       string
	OriginTag string
}

// Config tunes the HNSW graph.
type Config struct {
	// Dimensions is the embedding dimension count.
	Dimensions int
	// M is the graph connectivity parameter (default 16).
	M int
	// EfSearch is the search beam width (default 20).
	EfSearch int
}

// Store is an HNSW-backed vector store. Long-lived, safe for
// concurrent use by simultaneous requests.
type Store struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	embedder Embedder
	config   Config

	docs    map[uint64]Document
	nextKey uint64
}

// New creates a vector store over the given embedder.
func New(embedder Embedder, cfg Config) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("vecstore: embedder is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vecstore: dimensions must be positive")
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &Store{
		graph:    graph,
		embedder: embedder,
		config:   cfg,
		docs:     make(map[uint64]Document),
	}, nil
}

// Add embeds the documents and inserts them into the graph.
func (s *Store) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Title + "\n" + d.Content
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range docs {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if len(vec) != s.config.Dimensions {
			return fmt.Errorf("dimension mismatch: expected %d, got %d", s.config.Dimensions, len(vec))
		}
		normalizeInPlace(vec)

		key := s.nextKey
		s.nextKey++
		s.graph.Add(hnsw.MakeNode(key, vec))
		s.docs[key] = d
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Search embeds the query text and returns the k nearest documents
// with cosine similarity in [0,1]. Implements retrieve.VectorSearcher.
func (s *Store) Search(ctx context.Context, text string, k int) ([]retrieve.VectorHit, error) {
	vec, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph.Len() == 0 {
		return []retrieve.VectorHit{}, nil
	}

	queryVec := make([]float32, len(vec))
	copy(queryVec, vec)
	normalizeInPlace(queryVec)

	nodes := s.graph.Search(queryVec, k)

	hits := make([]retrieve.VectorHit, 0, len(nodes))
	for _, node := range nodes {
		doc, ok := s.docs[node.Key]
		if !ok {
			continue
		}
		distance := s.graph.Distance(queryVec, node.Value)
		hits = append(hits, retrieve.VectorHit{
			Title:      doc.Title,
			Content:    doc.Content,
			Category:   doc.Category,
			URL:        doc.URL,
			OriginTag:  doc.OriginTag,
			Similarity: distanceToSimilarity(distance),
		})
	}
	return hits, nil
}

// normalizeInPlace scales a vector to unit length for cosine distance.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToSimilarity converts cosine distance (0-2) to similarity (0-1).
func distanceToSimilarity(distance float32) float64 {
	sim := 1.0 - float64(distance)/2.0
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
