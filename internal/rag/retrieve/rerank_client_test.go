package retrieve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
)

func TestHTTPRerankerOrdersScoresByIndex(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Documents) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(req.Documents))
		}
		resp := rerankResp{Results: []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		}{
			{Index: 1, RelevanceScore: 2.0},
			{Index: 0, RelevanceScore: 0.5},
		}}
		b, _ := json.Marshal(resp)
		w.Write(b)
	}))
	defer ts.Close()

	reranker := NewHTTPReranker(config.RerankerConfig{BaseURL: ts.URL, Path: "/", Model: "m"})
	scores, err := reranker.RawScores(context.Background(), "q", []string{"doc0", "doc1"})
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, 2.0}, scores)
}
