package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ragcore/internal/costledger"
	"ragcore/internal/docmodel"
)

type stubProvider struct {
	name      string
	err       error
	text      string
	modelUsed string
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Complete(ctx context.Context, prompt, model string, temperature float64, schema json.RawMessage) (string, int, int, string, error) {
	if s.err != nil {
		return "", 0, 0, "", s.err
	}
	return s.text, 10, 10, s.modelUsed, nil
}

func newLedger() *costledger.Ledger {
	return costledger.New(map[string]costledger.Price{"m": {InputUSDPer1M: 1, OutputUSDPer1M: 1}}, 5.0, 0.01)
}

func TestCallFallsBackOnProviderError(t *testing.T) {
	a := &stubProvider{name: "primary", err: errors.New("429")}
	b := &stubProvider{name: "fallback", text: "ok", modelUsed: "m"}
	gw := New([]string{"primary", "fallback"}, map[string]Provider{"primary": a, "fallback": b}, newLedger())

	res, err := gw.Call(context.Background(), "hi", "", 0, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Provider != "fallback" || res.Text != "ok" {
		t.Fatalf("res = %+v, want fallback/ok", res)
	}
}

func TestCallFailsWhenAllProvidersFail(t *testing.T) {
	a := &stubProvider{name: "primary", err: errors.New("boom")}
	gw := New([]string{"primary"}, map[string]Provider{"primary": a}, newLedger())
	_, err := gw.Call(context.Background(), "hi", "", 0, nil)
	var allFailed *ErrAllProvidersFailed
	if !errors.As(err, &allFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
}

func TestCallFailsFastOnBudgetExceeded(t *testing.T) {
	l := costledger.New(nil, 0.01, 0)
	now := time.Now()
	l.Record(docmodel.CostRecord{Provider: "x", CostUSD: 0.02, Timestamp: now})
	called := false
	a := &stubProvider{name: "primary", text: "ok", modelUsed: "m"}
	gw := New([]string{"primary"}, map[string]Provider{"primary": a}, l)
	gw.clock = func() time.Time { called = true; return now }
	_, err := gw.Call(context.Background(), "hi", "", 0, nil)
	var budgetErr *ErrBudgetExceeded
	if !errors.As(err, &budgetErr) {
		t.Fatalf("err = %v, want ErrBudgetExceeded", err)
	}
	if !called {
		t.Fatal("expected clock to be consulted")
	}
}
