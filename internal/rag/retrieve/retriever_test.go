package retrieve

import (
	"context"
	"testing"

	"ragcore/internal/persistence/databases"
)

func TestRetrieveHybridWinsOnExactMatch(t *testing.T) {
	ctx := context.Background()
	bm25 := databases.NewBM25Index()
	vec := databases.NewMemoryVector(8)
	_ = bm25.Index(ctx, "c1", "SKU-12345 teardown report", nil)
	_ = bm25.Index(ctx, "c2", "generic product overview", nil)
	_ = vec.Upsert(ctx, "c1", []float32{1, 0, 0, 0, 0, 0, 0, 0}, "SKU-12345 teardown report", nil)
	_ = vec.Upsert(ctx, "c2", []float32{0, 1, 0, 0, 0, 0, 0, 0}, "generic product overview", nil)

	emb := stubEmbedder{vec: []float32{1, 0, 0, 0, 0, 0, 0, 0}}
	r := New(bm25, vec, emb, nil, nil, Config{BM25Weight: 0.3, DenseWeight: 0.7, MMRLambda: 0.7})
	got, err := r.Retrieve(ctx, Request{Query: "SKU-12345", K: 3})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) == 0 || got[0].ChunkID != "c1" {
		t.Fatalf("expected c1 at rank 1, got %+v", got)
	}
}

func TestRetrieveEmptyBothSourcesReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	bm25 := databases.NewBM25Index()
	r := New(bm25, nil, nil, nil, nil, Config{BM25Weight: 0.3, DenseWeight: 0.7, MMRLambda: 0.7})
	got, err := r.Retrieve(ctx, Request{Query: "anything", K: 3})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestRetrieveRelevanceScoreBounded(t *testing.T) {
	ctx := context.Background()
	bm25 := databases.NewBM25Index()
	_ = bm25.Index(ctx, "c1", "alpha beta gamma", nil)
	_ = bm25.Index(ctx, "c2", "alpha delta epsilon", nil)
	r := New(bm25, nil, nil, nil, nil, Config{BM25Weight: 1, DenseWeight: 0, MMRLambda: 0.7})
	got, err := r.Retrieve(ctx, Request{Query: "alpha", K: 2})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, res := range got {
		if res.RelevanceScore < 0 || res.RelevanceScore > 1 {
			t.Fatalf("relevance score out of [0,1]: %v", res.RelevanceScore)
		}
	}
}

type stubEmbedder struct{ vec []float32 }

func (s stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}
func (s stubEmbedder) Name() string                        { return "stub" }
func (s stubEmbedder) Dimension() int                       { return len(s.vec) }
func (s stubEmbedder) Ping(context.Context) error           { return nil }
