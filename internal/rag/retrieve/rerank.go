package retrieve

import (
	"context"
	"math"
)

// Reranker scores (query, passage) pairs jointly, returning one raw
// real-valued score per text in the same order — the cross-encoder
// adapter consumed by §4.8 step 6. Raw scores are mapped to [0,1] via
// sigmoid by the retriever, never by the reranker itself.
type Reranker interface {
	RawScores(ctx context.Context, query string, texts []string) ([]float64, error)
}

// NoopReranker returns a raw score of 0 for every text, so every result
// gets relevance sigmoid(0) = 0.5 and the retriever's chunk_id tie-break
// decides the final order; the fusion/MMR order is not kept.
type NoopReranker struct{}

func (NoopReranker) RawScores(_ context.Context, _ string, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))
	return out, nil
}

// sigmoid maps any real value into (0,1), per §4.8 step 6 and the
// sigmoid(rerank(...)) ∈ [0,1] round-trip law in §8.
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
