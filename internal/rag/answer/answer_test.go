package answer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
	"ragcore/internal/costledger"
	"ragcore/internal/llmgateway"
	"ragcore/internal/persistence/databases"
	"ragcore/internal/rag/embedder"
	"ragcore/internal/rag/retrieve"
)

type stubChatProvider struct{ text string }

func (s *stubChatProvider) Name() string { return "stub" }
func (s *stubChatProvider) Complete(ctx context.Context, prompt, model string, temperature float64, schema json.RawMessage) (string, int, int, string, error) {
	return s.text, 20, 20, "stub-model", nil
}

func newAnswerer(t *testing.T, cfg config.RAGConfig) (*Answerer, *databases.BM25Index) {
	t.Helper()
	search := databases.NewBM25Index()
	vector := databases.NewMemoryVector(4)
	emb := embedder.NewDeterministic(4, true, 7)
	r := retrieve.New(search, vector, emb, nil, nil, retrieve.Config{BM25Weight: 0.5, DenseWeight: 0.5, MMRLambda: 0.7})

	ledger := costledger.New(map[string]costledger.Price{"stub-model": {InputUSDPer1M: 1, OutputUSDPer1M: 1}}, 5, 0.01)
	gw := llmgateway.New([]string{"primary"}, map[string]llmgateway.Provider{"primary": &stubChatProvider{text: "The answer is 42."}}, ledger)
	return New(r, gw, cfg), search
}

func TestAnswerRefusesOnEmptyCorpus(t *testing.T) {
	a, _ := newAnswerer(t, config.RAGConfig{ConfidenceThreshold: 0.6, DefaultTopK: 5})
	resp, err := a.Answer(context.Background(), Request{Question: "What is the deployment process?"})
	require.NoError(t, err)
	require.True(t, resp.Refused, "expected refusal on empty corpus, got %+v", resp)
	require.Zero(t, resp.CostUSD, "refusal must not incur LLM cost")
}

func TestAnswerSynthesizesWithHighCoverage(t *testing.T) {
	a, search := newAnswerer(t, config.RAGConfig{ConfidenceThreshold: 0.1, DefaultTopK: 5})
	ctx := context.Background()
	require.NoError(t, search.Index(ctx, "doc1_chunk_0", "The deployment process uses a blue-green rollout with automated rollback.", map[string]string{
		"doc_id": "doc1", "signalness": "0.9",
	}))

	resp, err := a.Answer(ctx, Request{Question: "What is the deployment process rollout"})
	require.NoError(t, err)
	require.False(t, resp.Refused, "expected synthesis, got refusal: %+v", resp)
	require.NotEmpty(t, resp.Answer)
	require.Greater(t, resp.CostUSD, 0.0, "expected positive LLM cost for a synthesized answer")
}
