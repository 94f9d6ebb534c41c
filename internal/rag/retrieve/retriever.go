package retrieve

import (
	"context"
	"sort"

	"ragcore/internal/docmodel"
	"ragcore/internal/rag/cache"
	"ragcore/internal/rag/embedder"
	"ragcore/internal/persistence/databases"
)

// Config holds the tunable fusion weights and MMR lambda for a Retriever.
type Config struct {
	BM25Weight  float64
	DenseWeight float64
	MMRLambda   float64
}

// Retriever implements the hybrid search algorithm described in §4.8.
type Retriever struct {
	search databases.FullTextSearch
	vector databases.VectorStore
	emb    embedder.Embedder
	rerank Reranker
	cache  *cache.Cache
	cfg    Config
}

// New constructs a Retriever. cache may be nil to disable the L7 probe.
func New(search databases.FullTextSearch, vector databases.VectorStore, emb embedder.Embedder, rerank Reranker, c *cache.Cache, cfg Config) *Retriever {
	if rerank == nil {
		rerank = NoopReranker{}
	}
	return &Retriever{search: search, vector: vector, emb: emb, rerank: rerank, cache: c, cfg: cfg}
}

// Retrieve executes the full §4.8 pipeline and returns up to req.K ranked
// results.
func (r *Retriever) Retrieve(ctx context.Context, req Request) ([]docmodel.SearchResult, error) {
	k := req.K
	if k <= 0 {
		k = 10
	}
	mode := cache.Mode(req.Mode)
	if mode == "" {
		mode = cache.ModeHybrid
	}

	var cacheKey string
	if r.cache != nil && mode == cache.ModeHybrid {
		cacheKey = cache.Key(req.Query, k, req.Filter, mode)
		if hit, ok := r.cache.Get(cacheKey); ok {
			return hit, nil
		}
	}

	k1 := max(60, 4*k)
	var qvec []float32
	if r.emb != nil {
		vecs, err := r.emb.EmbedBatch(ctx, []string{req.Query})
		if err != nil {
			return nil, err
		}
		if len(vecs) > 0 {
			qvec = vecs[0]
		}
	}

	bm25Cands, err := fetchBM25(ctx, r.search, req.Query, k1, req.Filter)
	if err != nil {
		return nil, err
	}
	denseCands, err := fetchDense(ctx, r.vector, qvec, k1, req.Filter)
	if err != nil {
		return nil, err
	}

	k2 := max(20, 2*k)
	fusedCands := fuse(bm25Cands, denseCands, r.cfg.BM25Weight, r.cfg.DenseWeight, k2)
	if len(fusedCands) == 0 {
		if r.cache != nil && cacheKey != "" {
			r.cache.Set(cacheKey, nil)
		}
		return nil, nil
	}

	lambda := r.cfg.MMRLambda
	if lambda == 0 {
		lambda = 0.7
	}
	k3 := max(10, k)
	diverse := mmrSelect(fusedCands, lambda, k3)

	texts := make([]string, len(diverse))
	for i, d := range diverse {
		texts[i] = d.text
	}
	raw, err := r.rerank.RawScores(ctx, req.Query, texts)
	if err != nil {
		return nil, err
	}

	results := make([]docmodel.SearchResult, len(diverse))
	for i, d := range diverse {
		rawScore := 0.0
		if i < len(raw) {
			rawScore = raw[i]
		}
		rs := rawScore
		results[i] = docmodel.SearchResult{
			ChunkID:        d.id,
			DocID:          d.metadata["doc_id"],
			Text:           d.text,
			Metadata:       d.metadata,
			RelevanceScore: sigmoid(rawScore),
			RawRerankScore: &rs,
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > k {
		results = results[:k]
	}

	if r.cache != nil && cacheKey != "" {
		r.cache.Set(cacheKey, results)
	}
	return results, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
