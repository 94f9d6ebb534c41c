// Package databases provides the storage-boundary adapters consumed by the
// retrieval and ingestion packages: a lexical (BM25) full-text search index
// and a vector store adapter. Both satisfy small, storage-agnostic
// interfaces so the retrieval layer never depends on a concrete backend.
package databases

import "context"

// SearchResult represents a single hit from the full-text search backend.
type SearchResult struct {
	ID       string
	Score    float64
	Snippet  string
	Text     string
	Metadata map[string]string
}

// FullTextSearch defines the minimum interface for a pluggable lexical
// search backend. The BM25 index (internal/persistence/databases/bm25.go)
// is the only implementation carried by this module; the interface exists
// so retrieval code stays decoupled from that choice.
type FullTextSearch interface {
	Index(ctx context.Context, id string, text string, metadata map[string]string) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// VectorResult represents a single nearest-neighbor lookup result. Score is
// a similarity in [0,1], higher is closer — adapters are responsible for
// converting whatever their backend natively returns (distance, cosine
// score, dot product) into this convention.
type VectorResult struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]string
}

// VectorStore defines the minimum interface for a pluggable vector index.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, text string, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error)
	Dimension() int
}

// Manager holds the concrete backends resolved from configuration.
type Manager struct {
	Search FullTextSearch
	Vector VectorStore
}
