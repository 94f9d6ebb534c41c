package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
	"ragcore/internal/costledger"
	"ragcore/internal/enrichment"
	"ragcore/internal/llmgateway"
	"ragcore/internal/persistence/databases"
	"ragcore/internal/rag/embedder"
	"ragcore/internal/vocab"
)

type stubProvider struct{ text string }

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Complete(ctx context.Context, prompt, model string, temperature float64, schema json.RawMessage) (string, int, int, string, error) {
	return s.text, 10, 10, "stub-model", nil
}

func newTestPipeline(t *testing.T, gated bool) (*Pipeline, *databases.BM25Index) {
	t.Helper()
	v := vocab.New("")
	v.LoadTerms(vocab.KindTopic, []string{"technology/ai"})
	raw := `{"title":"A title","summary":"A summary of the document.","topics":["technology/ai"],"projects":[],"places":[]}`
	p := &stubProvider{text: raw}
	ledger := costledger.New(nil, 5, 0.01)
	gw := llmgateway.New([]string{"primary"}, map[string]llmgateway.Provider{"primary": p}, ledger)
	enricher := enrichment.New(gw, v, config.EnrichmentConfig{PromptWindowChars: 8000})

	search := databases.NewBM25Index()
	vector := databases.NewMemoryVector(4)
	emb := embedder.NewDeterministic(4, true, 1)

	gateCfg := config.QualityGateConfig{Enabled: gated, Threshold: 0.9}
	pl := New(search, vector, emb, enricher, nil, config.ChunkerConfig{TargetTokens: 100, MaxTokens: 200}, gateCfg)
	return pl, search
}

func TestIngestStoresAndIndexesDocument(t *testing.T) {
	pl, search := newTestPipeline(t, false)
	text := "# Heading\n\nThis is a paragraph about neural networks and machine learning models."
	resp, err := pl.Ingest(context.Background(), []byte(text), "doc.md", "markdown", true)
	require.NoError(t, err)
	require.Equal(t, OutcomeStored, resp.Outcome, "reason: %s", resp.Reason)
	require.Greater(t, resp.NumChunks, 0)

	results, err := search.Search(context.Background(), "neural networks", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results, "expected the ingested chunk to be searchable")
}

func TestIngestDetectsDuplicate(t *testing.T) {
	pl, _ := newTestPipeline(t, false)
	text := []byte("Some repeated content about a topic.")
	_, err := pl.Ingest(context.Background(), text, "a.txt", "generic", true)
	require.NoError(t, err)

	resp, err := pl.Ingest(context.Background(), text, "a.txt", "generic", true)
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, resp.Outcome)
}

func TestIngestGatesLowSignalDocument(t *testing.T) {
	pl, search := newTestPipeline(t, true)
	text := []byte("low signal content")
	resp, err := pl.Ingest(context.Background(), text, "b.txt", "generic", true)
	require.NoError(t, err)
	require.Equal(t, OutcomeGated, resp.Outcome)

	results, _ := search.Search(context.Background(), "low signal", 10)
	require.Empty(t, results, "gated document must not be indexed")
}
