// Package qualitygate implements M2: a weighted signalness composite over
// enrichment output and corpus statistics, with gating or score-only modes.
package qualitygate

import (
	"ragcore/internal/config"
	"ragcore/internal/docmodel"
)

// Scores holds the component scores and the weighted composite.
type Scores struct {
	Quality       float64
	Novelty       float64
	Actionability float64
	Recency       float64
	Signalness    float64
}

// Weights for the signalness composite. They sum to 1 by construction in
// DefaultWeights; callers providing custom weights are responsible for
// normalization if that matters to them.
type Weights struct {
	Quality       float64
	Novelty       float64
	Actionability float64
	Recency       float64
}

// DefaultWeights mirrors a conventional quality/novelty/actionability/
// recency split with quality weighted highest, consistent with the RAG
// answerer's own 50/30/20 style composite in §4.12.
var DefaultWeights = Weights{Quality: 0.4, Novelty: 0.25, Actionability: 0.2, Recency: 0.15}

// Outcome is the pipeline-visible result of running the gate.
type Outcome struct {
	Scores Scores
	Gated  bool
	Reason string
}

// CorpusStats carries the minimal corpus-wide signal the novelty score
// needs — how similar this document's topic/project assignment is to
// documents already ingested.
type CorpusStats struct {
	// SeenTopicOrProjectCount is the number of this document's topics and
	// projects that already appear elsewhere in the corpus.
	SeenTopicOrProjectCount int
	TotalTopicOrProjectCount int
}

// Evaluate computes Scores from enrichment output and corpus statistics,
// then applies gating or score-only policy per cfg.
func Evaluate(em docmodel.EnrichedMetadata, stats CorpusStats, w Weights, cfg config.QualityGateConfig) Outcome {
	quality := qualityScore(em)
	novelty := noveltyScore(stats)
	actionability := actionabilityScore(em)
	recency := 1.0 // recency of a just-ingested document is always maximal

	signalness := w.Quality*quality + w.Novelty*novelty + w.Actionability*actionability + w.Recency*recency

	out := Outcome{Scores: Scores{
		Quality: quality, Novelty: novelty, Actionability: actionability, Recency: recency, Signalness: signalness,
	}}

	if cfg.Enabled && signalness < cfg.Threshold {
		out.Gated = true
		out.Reason = "signalness below threshold"
	}
	return out
}

func qualityScore(em docmodel.EnrichedMetadata) float64 {
	score := 0.0
	if em.Title != "" {
		score += 0.3
	}
	if em.Summary != "" {
		score += 0.3
	}
	if len(em.Topics) > 0 {
		score += 0.4
	}
	return clamp01(score)
}

func noveltyScore(stats CorpusStats) float64 {
	if stats.TotalTopicOrProjectCount == 0 {
		return 1.0
	}
	seenFrac := float64(stats.SeenTopicOrProjectCount) / float64(stats.TotalTopicOrProjectCount)
	return clamp01(1 - seenFrac)
}

func actionabilityScore(em docmodel.EnrichedMetadata) float64 {
	score := 0.0
	if len(em.Technologies) > 0 {
		score += 0.5
	}
	if len(em.Projects) > 0 {
		score += 0.5
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
