// Package llmgateway implements the multi-provider LLM gateway (L3):
// ordered primary → fallback → emergency dispatch, per-call cost
// accounting against the cost ledger, and a daily budget gate consulted
// before every dispatch.
package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ragcore/internal/costledger"
	"ragcore/internal/docmodel"
	"ragcore/internal/llm"
)

// Provider is the thin contract the gateway dispatches against — one
// entry in the ordered provider chain. It is satisfied by an adapter
// wrapping llm.Provider (see Adapt).
type Provider interface {
	// Name identifies the provider for cost records and error reporting.
	Name() string
	// Complete sends prompt at the given temperature, optionally constrained
	// to a JSON schema for structured output, and returns the raw text (or
	// JSON-encoded structured value), token usage, and the model id that
	// actually produced the result.
	Complete(ctx context.Context, prompt string, model string, temperature float64, schema json.RawMessage) (text string, inTokens, outTokens int, modelUsed string, err error)
}

// Classification of a provider-call failure, used to decide whether to
// advance the fallback chain or surface immediately.
type Classification int

const (
	Retryable Classification = iota
	NonRetryable
	CallCancelled
)

// ClassifiableError lets a Provider tag its own errors; providers that
// don't implement this are treated as Retryable (the conservative default
// that keeps the fallback chain moving).
type ClassifiableError interface {
	error
	Classify() Classification
}

// ErrBudgetExceeded is surfaced verbatim from the cost ledger's budget gate.
type ErrBudgetExceeded = costledger.ErrBudgetExceeded

// ErrAllProvidersFailed is returned when every provider in the chain has
// been tried and failed.
type ErrAllProvidersFailed struct {
	Last error
}

func (e *ErrAllProvidersFailed) Error() string {
	return fmt.Sprintf("all providers failed: %v", e.Last)
}
func (e *ErrAllProvidersFailed) Unwrap() error { return e.Last }

// ErrSchemaViolation means structured-output parsing failed after the
// gateway's one retry-per-provider allowance.
type ErrSchemaViolation struct {
	Text string
	Err  error
}

func (e *ErrSchemaViolation) Error() string {
	return fmt.Sprintf("schema violation: %v (text: %.200s)", e.Err, e.Text)
}
func (e *ErrSchemaViolation) Unwrap() error { return e.Err }

// Result is the outcome of a gateway Call.
type Result struct {
	Text      string
	CostUSD   float64
	ModelUsed string
	Provider  string
}

// Gateway dispatches calls across an ordered provider chain, gating each
// attempt on the cost ledger's daily budget and recording cost on success.
// Gateway holds no mutable state of its own beyond the ledger's — it is
// safe for concurrent use.
type Gateway struct {
	order   []string
	byID    map[string]Provider
	prices  map[string]string // provider id -> model id, for native-fallback bookkeeping
	ledger  *costledger.Ledger
	clock   func() time.Time
}

// New builds a Gateway from an ordered list of provider ids and a lookup
// from id to Provider. Order is tried primary-first; the first entry is
// conventionally "primary", then "fallback", then "emergency", but any
// ids are accepted.
func New(order []string, providers map[string]Provider, ledger *costledger.Ledger) *Gateway {
	return &Gateway{order: order, byID: providers, ledger: ledger, clock: time.Now}
}

// Call implements the L3 contract: try requestedModel's provider first (if
// given and known), else the declared order; gate each attempt on budget;
// classify failures to decide whether to advance the chain.
func (g *Gateway) Call(ctx context.Context, prompt string, requestedProviderID string, temperature float64, schema json.RawMessage) (Result, error) {
	order := g.order
	if requestedProviderID != "" {
		if _, ok := g.byID[requestedProviderID]; ok {
			order = prepend(requestedProviderID, g.order)
		}
	}

	var lastErr error
	for _, id := range order {
		p, ok := g.byID[id]
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if !g.ledger.WithinBudget(g.clock()) {
			return Result{}, &ErrBudgetExceeded{}
		}

		text, inTok, outTok, modelUsed, err := p.Complete(ctx, prompt, "", temperature, schema)
		var sv *ErrSchemaViolation
		if errors.As(err, &sv) {
			text, inTok, outTok, modelUsed, err = p.Complete(ctx, prompt, "", temperature, schema)
		}
		if err == nil {
			cost := g.ledger.Estimate(modelUsed, inTok, outTok)
			g.ledger.Record(docmodel.CostRecord{
				Provider: id, Model: modelUsed, InputTokens: inTok, OutputTokens: outTok,
				CostUSD: cost, Timestamp: g.clock(),
			})
			return Result{Text: text, CostUSD: cost, ModelUsed: modelUsed, Provider: id}, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, err
		}
		var ce ClassifiableError
		if errors.As(err, &ce) && ce.Classify() == CallCancelled {
			return Result{}, err
		}
		lastErr = err
		// Retryable and non-retryable both advance the chain; only
		// cancellation short-circuits. A schema violation that survives its
		// one retry on this provider also advances, matching §4.3 step 5.
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return Result{}, &ErrAllProvidersFailed{Last: lastErr}
}

func prepend(id string, order []string) []string {
	out := make([]string, 0, len(order)+1)
	out = append(out, id)
	for _, o := range order {
		if o != id {
			out = append(out, o)
		}
	}
	return out
}

// Adapt wraps an llm.Provider (chat-oriented) as a gateway Provider. model
// is the concrete model id this adapter always reports as modelUsed — the
// gateway's "native fallback" chain across models within one provider is
// out of scope here; multi-model chains are expressed as distinct
// gateway.Provider entries instead.
func Adapt(name, model string, p llm.Provider) Provider {
	return &chatAdapter{name: name, model: model, p: p}
}

type chatAdapter struct {
	name  string
	model string
	p     llm.Provider
}

func (a *chatAdapter) Name() string { return a.name }

func (a *chatAdapter) Complete(ctx context.Context, prompt, _ string, temperature float64, schema json.RawMessage) (string, int, int, string, error) {
	msgs := []llm.Message{{Role: "user", Content: withSchemaInstruction(prompt, schema)}}
	resp, err := a.p.Chat(ctx, msgs, a.model)
	if err != nil {
		return "", 0, 0, a.model, err
	}
	if schema != nil {
		if !json.Valid([]byte(resp.Content)) {
			return "", 0, 0, a.model, &ErrSchemaViolation{Text: resp.Content, Err: errors.New("response is not valid JSON")}
		}
	}
	in, out := approxUsage(prompt, resp.Content)
	return resp.Content, in, out, a.model, nil
}

func withSchemaInstruction(prompt string, schema json.RawMessage) string {
	if schema == nil {
		return prompt
	}
	return prompt + "\n\nRespond with JSON matching this schema exactly:\n" + string(schema)
}

// approxUsage estimates token counts at ~4 characters/token when the
// underlying provider doesn't report exact usage. Cost accounting off an
// approximation is an accepted tradeoff versus threading usage through
// every llm.Provider implementation.
func approxUsage(prompt, completion string) (int, int) {
	return (len(prompt) + 3) / 4, (len(completion) + 3) / 4
}
