// Package answer implements the confidence-gated RAG answerer (T2):
// hybrid retrieval, a three-component confidence composite, a refusal
// path below threshold, and prompt composition with per-source markers
// for documents that clear the gate.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ragcore/internal/config"
	"ragcore/internal/docmodel"
	"ragcore/internal/llmgateway"
	"ragcore/internal/persistence/databases"
	"ragcore/internal/rag/retrieve"
)

// Request describes one question to the answerer.
type Request struct {
	Question string
	Model    string // optional explicit provider id, forwarded to the gateway
	TopK     int    // defaults to cfg.DefaultTopK, then 5
}

// Response is the T2 output contract.
type Response struct {
	Answer     string
	Sources    []docmodel.SearchResult
	CostUSD    float64
	ModelUsed  string
	Confidence float64
	Refused    bool
}

const refusalThresholdFallback = 0.6

// Confidence is the weighted composite behind the refusal gate, broken
// out for callers that want to inspect or log the components.
type Confidence struct {
	Relevance float64
	Coverage  float64
	Quality   float64
	Composite float64
}

// Answerer wires a Retriever and an LLM gateway into the T2 contract.
type Answerer struct {
	retriever *retrieve.Retriever
	gw        *llmgateway.Gateway
	cfg       config.RAGConfig
}

// New constructs an Answerer.
func New(r *retrieve.Retriever, gw *llmgateway.Gateway, cfg config.RAGConfig) *Answerer {
	return &Answerer{retriever: r, gw: gw, cfg: cfg}
}

// Answer runs the §4.12 protocol: retrieve, score confidence, gate, and
// either refuse or synthesize.
func (a *Answerer) Answer(ctx context.Context, req Request) (Response, error) {
	k := req.TopK
	if k <= 0 {
		k = a.cfg.DefaultTopK
	}
	if k <= 0 {
		k = 5
	}

	results, err := a.retriever.Retrieve(ctx, retrieve.Request{Query: req.Question, K: k})
	if err != nil {
		return Response{}, err
	}

	conf := computeConfidence(req.Question, results)
	threshold := a.cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = refusalThresholdFallback
	}

	if conf.Composite < threshold {
		return Response{
			Answer:     refusalText(conf, threshold),
			Sources:    results,
			Confidence: conf.Composite,
			Refused:    true,
		}, nil
	}

	prompt := composePrompt(req.Question, results)
	result, err := a.gw.Call(ctx, prompt, req.Model, 0.2, json.RawMessage(nil))
	if err != nil {
		return Response{}, err
	}

	return Response{
		Answer:     result.Text,
		Sources:    results,
		CostUSD:    result.CostUSD,
		ModelUsed:  result.ModelUsed,
		Confidence: conf.Composite,
	}, nil
}

// computeConfidence implements §4.12 step 2's weighted composite:
// relevance 50%, coverage 30%, quality (signalness) 20%.
func computeConfidence(question string, results []docmodel.SearchResult) Confidence {
	if len(results) == 0 {
		return Confidence{}
	}

	n := len(results)
	if n > 3 {
		n = 3
	}
	relSum := 0.0
	for i := 0; i < n; i++ {
		relSum += results[i].RelevanceScore
	}
	relevance := relSum / float64(n)

	coverage := coverageScore(question, results)
	quality := qualityScore(results)

	composite := 0.5*relevance + 0.3*coverage + 0.2*quality
	return Confidence{Relevance: relevance, Coverage: coverage, Quality: quality, Composite: composite}
}

// coverageScore is the fraction of content-word tokens from the question
// (length > 2, the cheap stand-in for stopword filtering used elsewhere
// in this package's tokenization) that appear anywhere in the retrieved
// chunk texts.
func coverageScore(question string, results []docmodel.SearchResult) float64 {
	qTokens := contentTokens(question)
	if len(qTokens) == 0 {
		return 0
	}
	corpus := make(map[string]struct{})
	for _, r := range results {
		for _, tok := range databases.Tokenize(r.Text) {
			corpus[tok] = struct{}{}
		}
	}
	present := 0
	for _, tok := range qTokens {
		if _, ok := corpus[tok]; ok {
			present++
		}
	}
	return float64(present) / float64(len(qTokens))
}

func contentTokens(text string) []string {
	var out []string
	for _, tok := range databases.Tokenize(text) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// qualityScore is the mean signalness of the source documents backing the
// retrieved chunks, read back from the "signalness" metadata field
// Storage/Indexing stamped during ingestion.
func qualityScore(results []docmodel.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	n := 0
	for _, r := range results {
		raw, ok := r.Metadata["signalness"]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func refusalText(conf Confidence, threshold float64) string {
	return fmt.Sprintf(
		"I don't have enough confident evidence to answer that (confidence %.2f, below the %.2f threshold). "+
			"The closest sources are listed below — you may want to check them directly.", conf.Composite, threshold)
}

// composePrompt builds the synthesis prompt with per-source markers so the
// model's citations can be checked against docmodel.SearchResult.ChunkID.
func composePrompt(question string, results []docmodel.SearchResult) string {
	sorted := make([]docmodel.SearchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ChunkID < sorted[j].ChunkID })

	var b strings.Builder
	b.WriteString("Answer the question using only the sources below. Cite sources by their [S#] marker.\n")
	b.WriteString("If the sources do not contain the answer, say so explicitly.\n\n")
	for i, r := range sorted {
		fmt.Fprintf(&b, "[S%d] (chunk_id=%s)\n%s\n\n", i+1, r.ChunkID, r.Text)
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}
