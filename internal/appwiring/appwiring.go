// Package appwiring assembles the full L1-M2/T1-T2 component graph from a
// loaded config.Config. Both cmd/ragcoreingest and cmd/ragcorequery call
// Build so the two binaries share exactly one construction path.
package appwiring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ragcore/internal/config"
	"ragcore/internal/costledger"
	"ragcore/internal/enrichment"
	"ragcore/internal/llm/providers"
	"ragcore/internal/llmgateway"
	"ragcore/internal/observability"
	"ragcore/internal/persistence/databases"
	"ragcore/internal/rag/answer"
	"ragcore/internal/rag/cache"
	"ragcore/internal/rag/embedder"
	"ragcore/internal/rag/ingest"
	"ragcore/internal/rag/obs"
	"ragcore/internal/rag/retrieve"
	"ragcore/internal/rag/service"
	"ragcore/internal/vocab"
)

// App holds the fully wired service plus the collaborators a CLI entrypoint
// may want direct access to (e.g. the vocab store, to print suggestions).
type App struct {
	Service *service.Service
	Vocab   *vocab.Store
	Ledger  *costledger.Ledger

	// Shutdown flushes and closes the OTel exporters, if one was configured.
	// Nil when cfg.Obs.OTLP is empty; callers should still guard the call.
	Shutdown func(context.Context) error
}

// Build constructs every component named in the component table and wires
// them into one service.Service.
func Build(cfg config.Config) (*App, error) {
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	v := vocab.New(cfg.Vocab.SuggestionsPath)
	if cfg.Vocab.Dir != "" {
		if err := v.LoadDir(cfg.Vocab.Dir); err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
	}

	prices, err := costledger.LoadPriceTable(cfg.Cost.PriceTablePath)
	if err != nil {
		return nil, err
	}
	ledger := costledger.New(prices, cfg.Cost.DailyBudgetUSD, cfg.Cost.SafetyMarginUSD)

	httpClient := http.DefaultClient
	gwProviders := map[string]llmgateway.Provider{}
	for id, pc := range cfg.Providers {
		p, err := providers.Build(pc, httpClient)
		if err != nil {
			return nil, fmt.Errorf("build provider %q: %w", id, err)
		}
		gwProviders[id] = llmgateway.Adapt(id, pc.Model, p)
	}
	gw := llmgateway.New(cfg.ProvidersOrder, gwProviders, ledger)

	enricher := enrichment.New(gw, v, cfg.Enrichment)

	search := databases.NewBM25Index()
	var vector databases.VectorStore
	switch cfg.VectorStore.Backend {
	case "", "memory":
		vector = databases.NewMemoryVector(cfg.VectorStore.Dimensions)
	case "qdrant":
		vector, err = databases.NewQdrantVector(cfg.VectorStore.DSN, cfg.VectorStore.Collection, cfg.VectorStore.Dimensions, cfg.VectorStore.Metric)
		if err != nil {
			return nil, fmt.Errorf("connect qdrant: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", cfg.VectorStore.Backend)
	}

	emb := embedder.NewClient(cfg.Embedding, cfg.VectorStore.Dimensions)
	searchCache := cache.New(cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second)

	pipeline := ingest.New(search, vector, emb, enricher, searchCache, cfg.Chunker, cfg.QualityGate)

	var reranker retrieve.Reranker
	if cfg.Reranker.BaseURL != "" {
		reranker = retrieve.NewHTTPReranker(cfg.Reranker)
	}
	retriever := retrieve.New(search, vector, emb, reranker, searchCache, retrieve.Config{
		BM25Weight:  cfg.Fusion.BM25Weight,
		DenseWeight: cfg.Fusion.DenseWeight,
		MMRLambda:   cfg.Fusion.MMRLambda,
	})
	answerer := answer.New(retriever, gw, cfg.RAG)

	metrics := service.Metrics(service.NoopMetrics{})
	var shutdown func(context.Context) error
	if cfg.Obs.OTLP != "" {
		shutdown, err = observability.InitOTel(context.Background(), cfg.Obs)
		if err != nil {
			return nil, fmt.Errorf("init otel: %w", err)
		}
		metrics = obs.NewOtelMetrics()
	}

	svc := service.New(pipeline, answerer, service.WithLogger(&obs.JSONLogger{}), service.WithMetrics(metrics))
	return &App{Service: svc, Vocab: v, Ledger: ledger, Shutdown: shutdown}, nil
}
