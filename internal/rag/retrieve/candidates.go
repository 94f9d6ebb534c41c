package retrieve

import (
	"context"

	"ragcore/internal/persistence/databases"
)

// fetchBM25 runs the lexical candidate search and post-filters results
// against filter, per §4.8's "filters are passed to both BM25 (post-filter)"
// rule — BM25Index.Search has no native filter parameter.
func fetchBM25(ctx context.Context, idx databases.FullTextSearch, query string, k1 int, filter map[string]string) ([]candidate, error) {
	if idx == nil {
		return nil, nil
	}
	hits, err := idx.Search(ctx, query, k1)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(hits))
	for _, h := range hits {
		if !matchesFilter(h.Metadata, filter) {
			continue
		}
		out = append(out, candidate{id: h.ID, score: h.Score, text: h.Text, metadata: h.Metadata})
	}
	return out, nil
}

// fetchDense runs the dense candidate search, passing filter natively
// (pre-filter) when a query vector is available.
func fetchDense(ctx context.Context, store databases.VectorStore, qvec []float32, k1 int, filter map[string]string) ([]candidate, error) {
	if store == nil || len(qvec) == 0 {
		return nil, nil
	}
	hits, err := store.SimilaritySearch(ctx, qvec, k1, filter)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, candidate{id: h.ID, score: h.Score, text: h.Text, metadata: h.Metadata})
	}
	return out, nil
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
