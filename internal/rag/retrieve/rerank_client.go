package retrieve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragcore/internal/config"
)

// HTTPReranker calls a configured cross-encoder rerank endpoint, in the
// same request-shape-over-HTTP style as internal/embedding's embed client.
type HTTPReranker struct {
	cfg config.RerankerConfig
}

// NewHTTPReranker constructs a Reranker backed by an HTTP cross-encoder.
func NewHTTPReranker(cfg config.RerankerConfig) *HTTPReranker {
	return &HTTPReranker{cfg: cfg}
}

type rerankReq struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResp struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// RawScores posts the query and candidate texts to the configured rerank
// endpoint and returns one raw score per text, in input order.
func (r *HTTPReranker) RawScores(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(rerankReq{Model: r.cfg.Model, Query: query, Documents: texts})
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(r.cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, r.cfg.BaseURL+r.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if r.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	} else if r.cfg.APIHeader != "" {
		req.Header.Set(r.cfg.APIHeader, r.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank error: %s: %s", resp.Status, string(b))
	}

	var rr rerankResp
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	out := make([]float64, len(texts))
	for _, res := range rr.Results {
		if res.Index >= 0 && res.Index < len(out) {
			out[res.Index] = res.RelevanceScore
		}
	}
	return out, nil
}
