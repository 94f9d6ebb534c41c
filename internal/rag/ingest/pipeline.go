// Package ingest implements the ingestion pipeline (T1): a staged,
// typed, short-circuitable orchestrator running Triage → Enrichment →
// QualityGate → Chunking → Storage → Indexing in fixed order.
package ingest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"ragcore/internal/config"
	"ragcore/internal/docmodel"
	"ragcore/internal/enrichment"
	"ragcore/internal/persistence/databases"
	"ragcore/internal/qualitygate"
	"ragcore/internal/rag/cache"
	"ragcore/internal/rag/chunker"
	"ragcore/internal/rag/embedder"
)

// StageResult is the outcome every pipeline stage returns: Continue lets
// the orchestrator proceed to the next stage; Stop is a successful
// short-circuit (duplicate detection, quality gating); Error aborts the
// document with a failure.
type StageResult int

const (
	Continue StageResult = iota
	Stop
	Error
)

// Outcome is the pipeline-visible result of one Ingest call.
type Outcome string

const (
	OutcomeStored    Outcome = "stored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeGated     Outcome = "gated"
	OutcomeFailed    Outcome = "failed"
)

// Context is the shared, typed state threaded through every stage.
type Context struct {
	DocID        string
	StartedAt    time.Time
	StageTimings map[string]time.Duration
	EnableGating bool
}

// Response summarizes one Ingest call.
type Response struct {
	Outcome  Outcome
	DocID    string
	Reason   string
	Err      error
	ChunkIDs []string
	NumChunks int
	CostUSD  float64
	Gate     qualitygate.Outcome
}

// Pipeline wires together the stage implementations and the storage
// boundaries they write through.
type Pipeline struct {
	search   databases.FullTextSearch
	vector   databases.VectorStore
	emb      embedder.Embedder
	enricher *enrichment.Service
	cache    *cache.Cache

	chunkerCfg config.ChunkerConfig
	gateCfg    config.QualityGateConfig
	gateWeights qualitygate.Weights

	mu           sync.Mutex
	seenHashes   map[string]string // content hash -> doc short id, for duplicate detection
	seenTopics   map[string]struct{}
	totalTopics  int
}

// New constructs a Pipeline. vector and emb may both be nil to disable
// the embedding/vector-upsert stage (BM25-only operation).
func New(search databases.FullTextSearch, vector databases.VectorStore, emb embedder.Embedder, enricher *enrichment.Service, c *cache.Cache, chunkerCfg config.ChunkerConfig, gateCfg config.QualityGateConfig) *Pipeline {
	return &Pipeline{
		search: search, vector: vector, emb: emb, enricher: enricher, cache: c,
		chunkerCfg: chunkerCfg, gateCfg: gateCfg, gateWeights: qualitygate.DefaultWeights,
		seenHashes: map[string]string{}, seenTopics: map[string]struct{}{},
	}
}

// Ingest runs the full staged pipeline for one raw document.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte, filename string, docType docmodel.DocType, enableGating bool) (Response, error) {
	start := time.Now()
	doc := docmodel.NewDocument(raw, filename, docType, start)
	pc := &Context{DocID: doc.HashShort, StartedAt: start, StageTimings: map[string]time.Duration{}, EnableGating: enableGating}

	// --- Triage ---
	t0 := time.Now()
	if dup := p.triage(doc); dup {
		pc.StageTimings["triage"] = time.Since(t0)
		return Response{Outcome: OutcomeDuplicate, DocID: doc.HashShort, Reason: "duplicate content hash"}, nil
	}
	pc.StageTimings["triage"] = time.Since(t0)

	// --- Enrichment ---
	t0 = time.Now()
	em, truncated, err := p.enricher.Enrich(ctx, doc)
	pc.StageTimings["enrichment"] = time.Since(t0)
	if err != nil {
		return Response{Outcome: OutcomeFailed, DocID: doc.HashShort, Err: err}, err
	}
	doc.Truncated = truncated

	// --- QualityGate ---
	t0 = time.Now()
	gateCfg := p.gateCfg
	gateCfg.Enabled = gateCfg.Enabled && enableGating
	stats := p.corpusStats(em)
	gate := qualitygate.Evaluate(em, stats, p.gateWeights, gateCfg)
	pc.StageTimings["quality_gate"] = time.Since(t0)
	if gate.Gated {
		p.recordSeen(doc.HashFull, doc.HashShort)
		return Response{Outcome: OutcomeGated, DocID: doc.HashShort, Reason: gate.Reason, Gate: gate}, nil
	}
	p.recordTopics(em)

	// --- Chunking ---
	t0 = time.Now()
	chunks := chunker.Chunk(doc.Text, docType, doc.HashShort, p.chunkerCfg)
	pc.StageTimings["chunking"] = time.Since(t0)

	// --- Storage ---
	t0 = time.Now()
	if err := p.store(ctx, doc, em, chunks, gate.Scores.Signalness); err != nil {
		return Response{Outcome: OutcomeFailed, DocID: doc.HashShort, Err: err}, err
	}
	pc.StageTimings["storage"] = time.Since(t0)

	// --- Indexing (BM25) ---
	t0 = time.Now()
	if err := p.index(ctx, doc, em, chunks, gate.Scores.Signalness); err != nil {
		return Response{Outcome: OutcomeFailed, DocID: doc.HashShort, Err: err}, err
	}
	pc.StageTimings["indexing"] = time.Since(t0)

	p.recordSeen(doc.HashFull, doc.HashShort)
	if p.cache != nil {
		p.cache.InvalidateAll()
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return Response{Outcome: OutcomeStored, DocID: doc.HashShort, ChunkIDs: ids, NumChunks: len(chunks), Gate: gate}, nil
}

// triage reports true (Stop with Duplicate) when this content hash has
// already been ingested, per the smart-triage adjunct in §4.9 and
// invariant 1 in §8.
func (p *Pipeline) triage(doc docmodel.Document) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, dup := p.seenHashes[doc.HashFull]
	return dup
}

func (p *Pipeline) recordSeen(hashFull, hashShort string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seenHashes[hashFull] = hashShort
}

func (p *Pipeline) recordTopics(em docmodel.EnrichedMetadata) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range append(append([]string{}, em.Topics...), em.Projects...) {
		p.seenTopics[t] = struct{}{}
		p.totalTopics++
	}
}

func (p *Pipeline) corpusStats(em docmodel.EnrichedMetadata) qualitygate.CorpusStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := 0
	total := len(em.Topics) + len(em.Projects)
	for _, t := range append(append([]string{}, em.Topics...), em.Projects...) {
		if _, ok := p.seenTopics[t]; ok {
			seen++
		}
	}
	return qualitygate.CorpusStats{SeenTopicOrProjectCount: seen, TotalTopicOrProjectCount: total}
}

// store upserts chunk embeddings into the vector store when one and an
// embedder are configured (dense retrieval is optional; BM25-only
// operation runs with both nil). The chunk corpus itself only ever
// enters the FTS backend via index below — no whole-document entry is
// written here, so lexical search and fusion never see a
// pseudo-chunk competing with real chunk hits.
func (p *Pipeline) store(ctx context.Context, doc docmodel.Document, em docmodel.EnrichedMetadata, chunks []docmodel.Chunk, signalness float64) error {
	if p.vector == nil || p.emb == nil || len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := p.emb.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	for i, c := range chunks {
		md := docmodel.FlatMetadata(doc, em, c)
		md["signalness"] = formatScore(signalness)
		if err := p.vector.Upsert(ctx, c.ID, vecs[i], c.Text, md); err != nil {
			return err
		}
	}
	return nil
}

// index adds every chunk to the BM25 lexical index (L5). The index's own
// rebuild is deferred to the next Search call.
func (p *Pipeline) index(ctx context.Context, doc docmodel.Document, em docmodel.EnrichedMetadata, chunks []docmodel.Chunk, signalness float64) error {
	for _, c := range chunks {
		md := docmodel.FlatMetadata(doc, em, c)
		md["signalness"] = formatScore(signalness)
		if err := p.search.Index(ctx, c.ID, c.Text, md); err != nil {
			return err
		}
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
