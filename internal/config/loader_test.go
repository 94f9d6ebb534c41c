package config

import "testing"

func TestLoad_DefaultsWithoutEnv(t *testing.T) {
	t.Setenv("RAGCORE_CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Cache.Size != 500 {
		t.Errorf("cache size = %d, want 500", cfg.Cache.Size)
	}
	if cfg.Cache.TTLSeconds != 300 {
		t.Errorf("cache ttl = %d, want 300", cfg.Cache.TTLSeconds)
	}
	if cfg.Fusion.BM25Weight != 0.3 || cfg.Fusion.DenseWeight != 0.7 {
		t.Errorf("fusion weights = (%v,%v), want (0.3,0.7)", cfg.Fusion.BM25Weight, cfg.Fusion.DenseWeight)
	}
	if cfg.RAG.ConfidenceThreshold != 0.6 {
		t.Errorf("confidence threshold = %v, want 0.6", cfg.RAG.ConfidenceThreshold)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("RAGCORE_CACHE_SIZE", "42")
	t.Setenv("RAGCORE_BM25_WEIGHT", "0.5")
	t.Setenv("RAGCORE_DENSE_WEIGHT", "0.5")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Cache.Size != 42 {
		t.Errorf("cache size = %d, want 42", cfg.Cache.Size)
	}
	if cfg.Fusion.BM25Weight != 0.5 {
		t.Errorf("bm25 weight = %v, want 0.5", cfg.Fusion.BM25Weight)
	}
}

func TestValidate_RejectsUnsupportedVectorBackend(t *testing.T) {
	cfg := Default()
	cfg.VectorStore.Backend = "pinecone"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unsupported vector backend")
	}
}

func TestValidate_RejectsAllZeroFusionWeights(t *testing.T) {
	cfg := Default()
	cfg.Fusion.BM25Weight = 0
	cfg.Fusion.DenseWeight = 0
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for all-zero fusion weights")
	}
}
