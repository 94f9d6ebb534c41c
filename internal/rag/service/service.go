// Package service wires the ingestion pipeline (T1) and the RAG answerer
// (T2) behind one constructor, using the functional-options pattern for
// its cross-cutting collaborators (logging, metrics, clock).
package service

import (
	"context"

	"ragcore/internal/docmodel"
	"ragcore/internal/qualitygate"
	"ragcore/internal/rag/answer"
	"ragcore/internal/rag/ingest"
)

// Option configures a Service at construction time.
type Option func(*Service)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option { return func(s *Service) { s.log = l } }

// WithMetrics overrides the default NoopMetrics.
func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithClock overrides the default SystemClock; tests use this to control
// timestamps deterministically.
func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

// Service is the top-level entry point: one ingestion pipeline, one
// answerer, sharing the observability collaborators.
type Service struct {
	pipeline *ingest.Pipeline
	answerer *answer.Answerer

	log     Logger
	metrics Metrics
	clock   Clock
}

// New constructs a Service from an already-wired Pipeline and Answerer.
// Both building blocks are package-level constructors in their own
// packages (ingest.New, answer.New) — Service only adds the shared
// cross-cutting collaborators and a single call surface.
func New(pipeline *ingest.Pipeline, answerer *answer.Answerer, opts ...Option) *Service {
	s := &Service{
		pipeline: pipeline,
		answerer: answerer,
		log:      &noopLogger{},
		metrics:  NoopMetrics{},
		clock:    SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type noopLogger struct{}

func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}
func (noopLogger) Debug(string, map[string]any) {}

// Ingest runs the T1 pipeline for one raw document and records timing and
// outcome metrics/logs around it.
func (s *Service) Ingest(ctx context.Context, raw []byte, filename string, docType docmodel.DocType, enableGating bool) (ingest.Response, error) {
	start := s.clock.Now()
	resp, err := s.pipeline.Ingest(ctx, raw, filename, docType, enableGating)
	elapsed := s.clock.Now().Sub(start)

	labels := map[string]string{"outcome": string(resp.Outcome)}
	s.metrics.ObserveHistogram("ingest_duration_seconds", elapsed.Seconds(), labels)
	s.metrics.IncCounter("ingest_total", labels)

	if err != nil {
		s.log.Error("ingest failed", map[string]any{"doc_id": resp.DocID, "err": err.Error()})
		return resp, err
	}
	s.log.Info("ingest completed", map[string]any{
		"doc_id": resp.DocID, "outcome": string(resp.Outcome), "num_chunks": resp.NumChunks,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	return resp, nil
}

// Answer runs the T2 confidence-gated answerer and records the same
// cross-cutting signals Ingest does.
func (s *Service) Answer(ctx context.Context, req answer.Request) (answer.Response, error) {
	start := s.clock.Now()
	resp, err := s.answerer.Answer(ctx, req)
	elapsed := s.clock.Now().Sub(start)

	labels := map[string]string{"refused": boolLabel(resp.Refused)}
	s.metrics.ObserveHistogram("answer_duration_seconds", elapsed.Seconds(), labels)
	s.metrics.IncCounter("answer_total", labels)

	if err != nil {
		s.log.Error("answer failed", map[string]any{"question": req.Question, "err": err.Error()})
		return resp, err
	}
	s.log.Info("answer completed", map[string]any{
		"refused": resp.Refused, "confidence": resp.Confidence, "cost_usd": resp.CostUSD,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	return resp, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// QualityGateOutcome re-exports qualitygate.Outcome so callers depending
// only on this package can inspect the last gate decision without an
// extra import.
type QualityGateOutcome = qualitygate.Outcome
