package service

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
	"ragcore/internal/rag/answer"
	"ragcore/internal/rag/embedder"
	"ragcore/internal/rag/ingest"
	"ragcore/internal/rag/retrieve"
	"ragcore/internal/vocab"
)

type stubProvider struct{ text string }

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Complete(ctx context.Context, prompt, model string, temperature float64, schema json.RawMessage) (string, int, int, string, error) {
	return s.text, 10, 10, "stub-model", nil
}

func TestServiceIngestThenAnswerEndToEnd(t *testing.T) {
	v := vocab.New("")
	v.LoadTerms(vocab.KindTopic, []string{"technology/ai"})

	enrichRaw := `{"title":"Rollout guide","summary":"Describes the blue-green rollout process.","topics":["technology/ai"],"projects":[],"places":[]}`
	enrichProvider := &stubProvider{text: enrichRaw}
	enrichLedger := costledger.New(nil, 5, 0.01)
	enrichGW := llmgateway.New([]string{"primary"}, map[string]llmgateway.Provider{"primary": enrichProvider}, enrichLedger)
	enricher := enrichment.New(enrichGW, v, config.EnrichmentConfig{PromptWindowChars: 8000})

	search := databases.NewBM25Index()
	vector := databases.NewMemoryVector(4)
	emb := embedder.NewDeterministic(4, true, 3)

	pipeline := ingest.New(search, vector, emb, enricher, nil, config.ChunkerConfig{TargetTokens: 100, MaxTokens: 200}, config.QualityGateConfig{Enabled: false, Threshold: 0.3})

	chatProvider := &stubProvider{text: "Use a blue-green rollout with automated rollback."}
	answerLedger := costledger.New(nil, 5, 0.01)
	answerGW := llmgateway.New([]string{"primary"}, map[string]llmgateway.Provider{"primary": chatProvider}, answerLedger)
	retriever := retrieve.New(search, vector, emb, nil, nil, retrieve.Config{BM25Weight: 0.5, DenseWeight: 0.5, MMRLambda: 0.7})
	answerer := answer.New(retriever, answerGW, config.RAGConfig{ConfidenceThreshold: 0.1, DefaultTopK: 5})

	svc := New(pipeline, answerer)

	ctx := context.Background()
	text := "The deployment process uses a blue-green rollout with an automated rollback step if health checks fail."
	ingestResp, err := svc.Ingest(ctx, []byte(text), "rollout.md", "markdown", true)
	require.NoError(t, err)
	require.Equal(t, ingest.OutcomeStored, ingestResp.Outcome, "reason: %s", ingestResp.Reason)

	answerResp, err := svc.Answer(ctx, answer.Request{Question: "What is the blue-green rollout process?"})
	require.NoError(t, err)
	require.False(t, answerResp.Refused, "expected a synthesized answer, got refusal: %+v", answerResp)
	require.NotEmpty(t, answerResp.Sources)
}
