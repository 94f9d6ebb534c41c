package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Load builds a Config starting from Default(), applying an optional YAML
// override file (RAGCORE_CONFIG_FILE) and then environment variables
// (optionally loaded from a .env file), in that precedence order — env
// wins, matching the teacher's "Overload so .env/real env always decide"
// convention.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("RAGCORE_CONFIG_FILE")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_PATH")); v != "" {
		cfg.LogPath = v
	}

	// Providers: one env-driven entry per known provider id, merged into
	// whatever the YAML file already declared.
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	for _, id := range []string{"primary", "fallback", "emergency"} {
		upper := strings.ToUpper(id)
		p := cfg.Providers[id]
		if v := os.Getenv("RAGCORE_" + upper + "_API_KEY"); v != "" {
			p.APIKey = v
		}
		if v := os.Getenv("RAGCORE_" + upper + "_MODEL"); v != "" {
			p.Model = v
		}
		if v := os.Getenv("RAGCORE_" + upper + "_BASE_URL"); v != "" {
			p.BaseURL = v
		}
		if v := os.Getenv("RAGCORE_" + upper + "_PROVIDER"); v != "" {
			p.Kind = v
		}
		p.ID = id
		cfg.Providers[id] = p
	}

	if v := strings.TrimSpace(os.Getenv("RAGCORE_EMBEDDING_BASE_URL")); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCORE_EMBEDDING_API_KEY")); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCORE_EMBEDDING_MODEL")); v != "" {
		cfg.Embedding.Model = v
	}
	if v := envInt("RAGCORE_EMBEDDING_DIMENSIONS"); v != 0 {
		cfg.Embedding.Dimensions = v
	}

	if v := strings.TrimSpace(os.Getenv("RAGCORE_RERANKER_BASE_URL")); v != "" {
		cfg.Reranker.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCORE_RERANKER_API_KEY")); v != "" {
		cfg.Reranker.APIKey = v
	}

	if v := strings.TrimSpace(os.Getenv("RAGCORE_VECTOR_BACKEND")); v != "" {
		cfg.VectorStore.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCORE_VECTOR_DSN")); v != "" {
		cfg.VectorStore.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCORE_VECTOR_COLLECTION")); v != "" {
		cfg.VectorStore.Collection = v
	}
	if v := envInt("RAGCORE_VECTOR_DIMENSIONS"); v != 0 {
		cfg.VectorStore.Dimensions = v
	}

	if v := envFloat("RAGCORE_BM25_WEIGHT"); v != 0 {
		cfg.Fusion.BM25Weight = v
	}
	if v := envFloat("RAGCORE_DENSE_WEIGHT"); v != 0 {
		cfg.Fusion.DenseWeight = v
	}
	if v := envFloat("RAGCORE_MMR_LAMBDA"); v != 0 {
		cfg.Fusion.MMRLambda = v
	}

	if v := envInt("RAGCORE_CACHE_SIZE"); v != 0 {
		cfg.Cache.Size = v
	}
	if v := envInt("RAGCORE_CACHE_TTL_SECONDS"); v != 0 {
		cfg.Cache.TTLSeconds = v
	}

	if v := strings.TrimSpace(os.Getenv("RAGCORE_QUALITY_GATE_ENABLED")); v != "" {
		cfg.QualityGate.Enabled = v == "true" || v == "1"
	}
	if v := envFloat("RAGCORE_QUALITY_GATE_THRESHOLD"); v != 0 {
		cfg.QualityGate.Threshold = v
	}

	if v := envInt("RAGCORE_CHUNKER_TARGET_TOKENS"); v != 0 {
		cfg.Chunker.TargetTokens = v
	}
	if v := envInt("RAGCORE_CHUNKER_MAX_TOKENS"); v != 0 {
		cfg.Chunker.MaxTokens = v
	}

	if v := envFloat("RAGCORE_CONFIDENCE_THRESHOLD"); v != 0 {
		cfg.RAG.ConfidenceThreshold = v
	}

	if v := envFloat("RAGCORE_DAILY_BUDGET_USD"); v != 0 {
		cfg.Cost.DailyBudgetUSD = v
	}
	if v := strings.TrimSpace(os.Getenv("RAGCORE_PRICE_TABLE_PATH")); v != "" {
		cfg.Cost.PriceTablePath = v
	}

	if v := strings.TrimSpace(os.Getenv("RAGCORE_OTLP_ENDPOINT")); v != "" {
		cfg.Obs.OTLP = v
	}

	if v := strings.TrimSpace(os.Getenv("RAGCORE_VOCAB_DIR")); v != "" {
		cfg.Vocab.Dir = v
	}
}

func envInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envFloat(key string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func validate(cfg Config) error {
	if cfg.Fusion.BM25Weight < 0 || cfg.Fusion.DenseWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if cfg.Fusion.BM25Weight == 0 && cfg.Fusion.DenseWeight == 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}
	if cfg.VectorStore.Backend != "memory" && cfg.VectorStore.Backend != "qdrant" {
		return fmt.Errorf("unsupported vector store backend: %s", cfg.VectorStore.Backend)
	}
	return nil
}
