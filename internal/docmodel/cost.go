package docmodel

import "time"

// CostRecord is one priced LLM call, as recorded by the cost ledger (L2).
type CostRecord struct {
	Provider    string
	Model       string
	InputTokens int
	OutputTokens int
	CostUSD     float64
	Timestamp   time.Time
}

// SearchResult is a materialized hit returned from the hybrid retriever.
type SearchResult struct {
	ChunkID        string
	DocID          string
	Text           string
	Metadata       map[string]string
	RelevanceScore float64
	RawRerankScore *float64
}
