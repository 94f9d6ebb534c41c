// Package costledger implements the per-call cost accounting and daily
// budget gate (L2): a static price table, rolling daily totals keyed by
// UTC calendar date, and the within_budget check the LLM gateway consults
// before dispatching any paid call.
package costledger

import (
	"fmt"
	"sync"
	"time"

	"ragcore/internal/docmodel"
)

// Price is the per-million-token rate for one model.
type Price struct {
	InputUSDPer1M  float64 `yaml:"input_usd_per_1m"`
	OutputUSDPer1M float64 `yaml:"output_usd_per_1m"`
}

// ErrBudgetExceeded is returned by WithinBudget's caller contract: the
// gateway treats it as a fatal, fail-fast condition for the current call.
type ErrBudgetExceeded struct {
	Today, SafetyMargin, Budget float64
}

func (e *ErrBudgetExceeded) Error() string {
	return fmt.Sprintf("budget exceeded: today_total=%.4f safety_margin=%.4f daily_budget=%.4f", e.Today, e.SafetyMargin, e.Budget)
}

type dailyTotals struct {
	date      string // YYYY-MM-DD in UTC
	total     float64
	byProvider map[string]float64
	calls     int
}

// Ledger accounts LLM call cost against a static price table and a daily
// USD budget. A single mutex protects the rolling totals; critical
// sections are O(1).
type Ledger struct {
	mu     sync.Mutex
	prices map[string]Price

	dailyBudgetUSD  float64
	safetyMarginUSD float64

	today dailyTotals
	all   []docmodel.CostRecord
}

// New constructs a Ledger with the given static price table and budget
// parameters. Today's totals start at zero and are held in memory only: the
// ledger writes no snapshot and loads none, so totals do not survive a
// restart.
func New(prices map[string]Price, dailyBudgetUSD, safetyMarginUSD float64) *Ledger {
	return &Ledger{
		prices:          prices,
		dailyBudgetUSD:  dailyBudgetUSD,
		safetyMarginUSD: safetyMarginUSD,
		today:           dailyTotals{date: utcDate(time.Now()), byProvider: map[string]float64{}},
	}
}

func utcDate(t time.Time) string { return t.UTC().Format("2006-01-02") }

// Estimate returns the USD cost for a call against model with the given
// token counts, per the static price table. Unknown models cost 0 — the
// gateway is responsible for treating that as "no price data" rather than
// "free", if it cares to.
func (l *Ledger) Estimate(model string, inTokens, outTokens int) float64 {
	l.mu.Lock()
	p, ok := l.prices[model]
	l.mu.Unlock()
	if !ok {
		return 0
	}
	return float64(inTokens)/1_000_000*p.InputUSDPer1M + float64(outTokens)/1_000_000*p.OutputUSDPer1M
}

// rolloverLocked resets the rolling daily totals if the UTC calendar date
// has advanced since the last recorded call. Caller must hold l.mu.
func (l *Ledger) rolloverLocked(now time.Time) {
	d := utcDate(now)
	if l.today.date != d {
		l.today = dailyTotals{date: d, byProvider: map[string]float64{}}
	}
}

// WithinBudget reports whether the next call can be dispatched without
// pushing today's total, plus the configured safety margin, past the
// daily budget.
func (l *Ledger) WithinBudget(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked(now)
	return l.today.total+l.safetyMarginUSD <= l.dailyBudgetUSD
}

// Record appends a priced call to the ledger and updates rolling totals.
func (l *Ledger) Record(rec docmodel.CostRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked(rec.Timestamp)
	l.today.total += rec.CostUSD
	l.today.byProvider[rec.Provider] += rec.CostUSD
	l.today.calls++
	l.all = append(l.all, rec)
}

// Stats is the aggregate returned by Stats(window).
type Stats struct {
	TotalUSD    float64
	ByProvider  map[string]float64
	CallCount   int
}

// Stats aggregates cost records with Timestamp within [now-window, now].
func (l *Ledger) Stats(window time.Duration, now time.Time) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := now.Add(-window)
	out := Stats{ByProvider: map[string]float64{}}
	for _, r := range l.all {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		out.TotalUSD += r.CostUSD
		out.ByProvider[r.Provider] += r.CostUSD
		out.CallCount++
	}
	return out
}

// TodayTotal returns today's rolling USD total, for observability.
func (l *Ledger) TodayTotal(now time.Time) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rolloverLocked(now)
	return l.today.total
}
