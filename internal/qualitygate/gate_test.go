package qualitygate

import (
	"testing"

	"ragcore/internal/config"
	"ragcore/internal/docmodel"
)

func TestEvaluateGatesBelowThreshold(t *testing.T) {
	// no title, summary, topics -> quality 0; with no topics novelty is 1 and
	// recency is always 1, so signalness = 0.25 + 0.15 = 0.40
	em := docmodel.EnrichedMetadata{}
	cfg := config.QualityGateConfig{Enabled: true, Threshold: 0.5}
	out := Evaluate(em, CorpusStats{}, DefaultWeights, cfg)
	if !out.Gated {
		t.Fatalf("expected gated outcome, got %+v", out)
	}
}

func TestEvaluateScoreOnlyNeverGates(t *testing.T) {
	em := docmodel.EnrichedMetadata{}
	cfg := config.QualityGateConfig{Enabled: false, Threshold: 0.9}
	out := Evaluate(em, CorpusStats{}, DefaultWeights, cfg)
	if out.Gated {
		t.Fatal("expected score-only mode to never gate")
	}
}

func TestEvaluateHighQualityPassesThreshold(t *testing.T) {
	em := docmodel.EnrichedMetadata{Title: "t", Summary: "s", Topics: []string{"a"}, Technologies: []string{"go"}, Projects: []string{"p"}}
	cfg := config.QualityGateConfig{Enabled: true, Threshold: 0.3}
	out := Evaluate(em, CorpusStats{}, DefaultWeights, cfg)
	if out.Gated {
		t.Fatalf("expected ungated outcome for high quality doc, got %+v", out)
	}
}
