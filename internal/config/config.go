// Package config loads the process-wide Config struct for the ingestion
// and retrieval core. Every field that changes control flow is an explicit,
// enumerated struct field rather than a loosely-typed options map.
package config

// ProviderConfig describes one LLM provider entry in the gateway's ordered
// fallback chain. Kind selects which concrete client package builds it
// ("openai", "anthropic", "google"); API is openai-specific ("completions"
// or "responses", defaulting to "completions").
type ProviderConfig struct {
	ID             string         `yaml:"id"`
	Kind           string         `yaml:"kind"`
	API            string         `yaml:"api,omitempty"`
	APIKey         string         `yaml:"api_key"`
	BaseURL        string         `yaml:"base_url,omitempty"`
	Model          string         `yaml:"model"`
	NativeFallback bool           `yaml:"native_fallback,omitempty"`
	Timeout        int            `yaml:"timeout_seconds,omitempty"`
	LogPayloads    bool           `yaml:"log_payloads,omitempty"`
	PromptCache    AnthropicPromptCacheConfig `yaml:"prompt_cache,omitempty"`
	ExtraParams    map[string]any `yaml:"extra_params,omitempty"`
}

// OpenAIConfig adapts a ProviderConfig entry for the openai client package.
type OpenAIConfig struct {
	API         string
	APIKey      string
	BaseURL     string
	Model       string
	LogPayloads bool
	ExtraParams map[string]any
}

// AnthropicConfig adapts a ProviderConfig entry for the anthropic client
// package.
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	PromptCache AnthropicPromptCacheConfig
	ExtraParams map[string]any
}

// AnthropicPromptCacheConfig controls Anthropic prompt-cache breakpoints.
type AnthropicPromptCacheConfig struct {
	Enabled       bool `yaml:"enabled,omitempty"`
	CacheSystem   bool `yaml:"cache_system,omitempty"`
	CacheTools    bool `yaml:"cache_tools,omitempty"`
	CacheMessages bool `yaml:"cache_messages,omitempty"`
}

// GoogleConfig adapts a ProviderConfig entry for the google (genai) client
// package.
type GoogleConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// AsOpenAI projects this entry into the shape internal/llm/openai.New wants.
func (p ProviderConfig) AsOpenAI() OpenAIConfig {
	return OpenAIConfig{API: p.API, APIKey: p.APIKey, BaseURL: p.BaseURL, Model: p.Model, LogPayloads: p.LogPayloads, ExtraParams: p.ExtraParams}
}

// AsAnthropic projects this entry into the shape internal/llm/anthropic.New wants.
func (p ProviderConfig) AsAnthropic() AnthropicConfig {
	return AnthropicConfig{APIKey: p.APIKey, BaseURL: p.BaseURL, Model: p.Model, PromptCache: p.PromptCache, ExtraParams: p.ExtraParams}
}

// AsGoogle projects this entry into the shape internal/llm/google.New wants.
func (p ProviderConfig) AsGoogle() GoogleConfig {
	return GoogleConfig{APIKey: p.APIKey, BaseURL: p.BaseURL, Model: p.Model, Timeout: p.Timeout}
}

// EmbeddingConfig configures the HTTP embedding client. Headers lets an
// operator attach arbitrary extra request headers (e.g. a second API-key
// style header some self-hosted servers require) on top of the legacy
// single APIHeader/APIKey pair; entries in Headers are applied after the
// legacy pair and win on key collision.
type EmbeddingConfig struct {
	BaseURL    string            `yaml:"base_url"`
	Path       string            `yaml:"path"`
	APIKey     string            `yaml:"api_key"`
	APIHeader  string            `yaml:"api_header"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	Model      string            `yaml:"model"`
	Dimensions int               `yaml:"dimensions"`
	Timeout    int               `yaml:"timeout_seconds"`
}

// RerankerConfig configures the HTTP cross-encoder reranker client.
type RerankerConfig struct {
	BaseURL   string `yaml:"base_url"`
	Path      string `yaml:"path"`
	APIKey    string `yaml:"api_key"`
	APIHeader string `yaml:"api_header"`
	Model     string `yaml:"model"`
	Timeout   int    `yaml:"timeout_seconds"`
}

// VectorStoreConfig configures the vector store adapter (L6).
type VectorStoreConfig struct {
	Backend    string `yaml:"backend"` // "qdrant" | "memory"
	DSN        string `yaml:"dsn"`
	Collection string `yaml:"collection"`
	Dimensions int    `yaml:"dimensions"`
	Metric     string `yaml:"metric"`
}

// FusionConfig configures the hybrid retriever (L8).
type FusionConfig struct {
	BM25Weight  float64 `yaml:"bm25_weight"`
	DenseWeight float64 `yaml:"dense_weight"`
	MMRLambda   float64 `yaml:"mmr_lambda"`
}

// CacheConfig configures the search cache (L7).
type CacheConfig struct {
	Size        int `yaml:"cache_size"`
	TTLSeconds  int `yaml:"cache_ttl_seconds"`
}

// QualityGateConfig configures the quality gate (M2).
type QualityGateConfig struct {
	Enabled   bool    `yaml:"quality_gate_enabled"`
	Threshold float64 `yaml:"quality_gate_threshold"`
}

// ChunkerConfig configures the chunker (L4).
type ChunkerConfig struct {
	TargetTokens int `yaml:"chunker_target_tokens"`
	MaxTokens    int `yaml:"chunker_max_tokens"`
}

// EnrichmentConfig configures the enrichment stage (M1).
type EnrichmentConfig struct {
	PromptWindowChars int `yaml:"enrichment_prompt_window_chars"`
}

// RAGConfig configures the confidence-gated answerer (T2).
type RAGConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	DefaultTopK         int     `yaml:"default_top_k"`
}

// ObsConfig configures OpenTelemetry export.
type ObsConfig struct {
	OTLP           string `yaml:"otlp_endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
}

// VocabConfig configures vocabulary loading (L1).
type VocabConfig struct {
	Dir             string `yaml:"dir"`
	SuggestionsPath string `yaml:"suggestions_path"`
}

// CostConfig configures the cost ledger (L2).
type CostConfig struct {
	PriceTablePath string  `yaml:"price_table_path"`
	DailyBudgetUSD float64 `yaml:"daily_budget_usd"`
	SafetyMarginUSD float64 `yaml:"safety_margin_usd"`
	LedgerSnapshotPath string `yaml:"ledger_snapshot_path"`
}

// Config is the top-level, fully-typed configuration for the core.
type Config struct {
	LogLevel      string `yaml:"log_level"`
	LogPath       string `yaml:"log_path"`

	ProvidersOrder []string                  `yaml:"providers_order"`
	Providers      map[string]ProviderConfig `yaml:"providers"`

	Embedding    EmbeddingConfig   `yaml:"embedding"`
	Reranker     RerankerConfig    `yaml:"reranker"`
	VectorStore  VectorStoreConfig `yaml:"vector_store"`
	Fusion       FusionConfig      `yaml:"fusion"`
	Cache        CacheConfig       `yaml:"cache"`
	QualityGate  QualityGateConfig `yaml:"quality_gate"`
	Chunker      ChunkerConfig     `yaml:"chunker"`
	Enrichment   EnrichmentConfig  `yaml:"enrichment"`
	RAG          RAGConfig         `yaml:"rag"`
	Obs          ObsConfig         `yaml:"observability"`
	Vocab        VocabConfig       `yaml:"vocab"`
	Cost         CostConfig        `yaml:"cost"`

	MaxInFlightIngestions int `yaml:"max_in_flight_ingestions"`
}

// Default returns a Config populated with the defaults named throughout
// spec.md §6 (cache size 500, TTL 300s, fusion weights 0.3/0.7, MMR lambda
// 0.7, quality gate threshold 0.3, confidence threshold 0.6, chunker
// targets, and the 8,000-char enrichment prompt window).
func Default() Config {
	return Config{
		LogLevel: "info",
		LogPath:  "",
		ProvidersOrder: []string{"primary", "fallback", "emergency"},
		Providers:      map[string]ProviderConfig{},
		Embedding: EmbeddingConfig{
			Path:    "/v1/embeddings",
			Timeout: 30,
		},
		Reranker: RerankerConfig{
			Path:    "/v1/rerank",
			Timeout: 30,
		},
		VectorStore: VectorStoreConfig{
			Backend:    "memory",
			Collection: "ragcore_chunks",
			Dimensions: 768,
			Metric:     "cosine",
		},
		Fusion: FusionConfig{
			BM25Weight:  0.3,
			DenseWeight: 0.7,
			MMRLambda:   0.7,
		},
		Cache: CacheConfig{
			Size:       500,
			TTLSeconds: 300,
		},
		QualityGate: QualityGateConfig{
			Enabled:   false,
			Threshold: 0.3,
		},
		Chunker: ChunkerConfig{
			TargetTokens: 400,
			MaxTokens:    800,
		},
		Enrichment: EnrichmentConfig{
			PromptWindowChars: 8000,
		},
		RAG: RAGConfig{
			ConfidenceThreshold: 0.6,
			DefaultTopK:         5,
		},
		Obs: ObsConfig{
			ServiceName: "ragcore",
			Environment: "development",
		},
		Vocab: VocabConfig{
			Dir:             "./vocab",
			SuggestionsPath: "./vocab/suggestions.jsonl",
		},
		Cost: CostConfig{
			PriceTablePath:     "./vocab/price_table.yaml",
			DailyBudgetUSD:     5.0,
			SafetyMarginUSD:    0.05,
			LedgerSnapshotPath: "./ragcore_cost_ledger.json",
		},
		MaxInFlightIngestions: 16,
	}
}
