package databases

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// bm25K1 and bm25B are the standard Okapi BM25 tuning constants.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize splits text into lowercased unicode word tokens. No stemming is
// applied, matching the BM25 Index contract in the spec.
func Tokenize(text string) []string {
	matches := tokenRe.FindAllString(strings.ToLower(text), -1)
	return matches
}

type bm25Doc struct {
	id       string
	text     string
	tokens   []string
	termFreq map[string]int
	length   int
	metadata map[string]string
}

// BM25Index is an in-memory Okapi BM25 lexical index over a chunk corpus.
// Writes are batched and the inverted index is rebuilt lazily on the next
// Search call after any Index/Remove, per the spec's deferred-rebuild
// policy — acceptable up to roughly 10^5 chunks.
type BM25Index struct {
	mu   sync.RWMutex
	docs map[string]*bm25Doc

	dirty     bool
	postings  map[string]map[string]int // term -> docID -> term frequency
	avgLength float64
}

// NewBM25Index constructs an empty index.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		docs:     make(map[string]*bm25Doc),
		postings: make(map[string]map[string]int),
	}
}

// Index adds or replaces a chunk's text in the corpus.
func (b *BM25Index) Index(_ context.Context, id string, text string, metadata map[string]string) error {
	tokens := Tokenize(text)
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[id] = &bm25Doc{id: id, text: text, tokens: tokens, termFreq: tf, length: len(tokens), metadata: copyStrMap(metadata)}
	b.dirty = true
	return nil
}

// Remove deletes a chunk from the corpus.
func (b *BM25Index) Remove(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.docs[id]; ok {
		delete(b.docs, id)
		b.dirty = true
	}
	return nil
}

// rebuildLocked recomputes postings and average document length. Caller
// must hold b.mu for writing.
func (b *BM25Index) rebuildLocked() {
	postings := make(map[string]map[string]int)
	var totalLen int
	for id, d := range b.docs {
		for term, f := range d.termFreq {
			m, ok := postings[term]
			if !ok {
				m = make(map[string]int)
				postings[term] = m
			}
			m[id] = f
		}
		totalLen += d.length
	}
	b.postings = postings
	if len(b.docs) > 0 {
		b.avgLength = float64(totalLen) / float64(len(b.docs))
	} else {
		b.avgLength = 0
	}
	b.dirty = false
}

// Search returns the top-k chunks ranked by Okapi BM25 score against query.
// Results with equal score are ordered by chunk ID ascending for
// determinism.
func (b *BM25Index) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	qTerms := Tokenize(query)
	if len(qTerms) == 0 || limit <= 0 {
		return nil, nil
	}

	b.mu.Lock()
	if b.dirty {
		b.rebuildLocked()
	}
	n := len(b.docs)
	avgLen := b.avgLength
	postings := b.postings
	docs := b.docs
	b.mu.Unlock()

	if n == 0 {
		return nil, nil
	}

	seen := map[string]struct{}{}
	uniqueTerms := qTerms[:0:0]
	for _, t := range qTerms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniqueTerms = append(uniqueTerms, t)
	}

	idf := make(map[string]float64, len(uniqueTerms))
	for _, t := range uniqueTerms {
		df := len(postings[t])
		idf[t] = math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
	}

	scores := make(map[string]float64)
	for _, t := range uniqueTerms {
		termIDF := idf[t]
		for docID, f := range postings[t] {
			d := docs[docID]
			if d == nil {
				continue
			}
			denom := float64(f) + bm25K1*(1-bm25B+bm25B*float64(d.length)/maxf(avgLen, 1))
			score := termIDF * (float64(f) * (bm25K1 + 1)) / denom
			scores[docID] += score
		}
	}

	out := make([]SearchResult, 0, len(scores))
	for id, s := range scores {
		d := docs[id]
		out = append(out, SearchResult{ID: id, Score: s, Text: d.text, Metadata: d.metadata})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func copyStrMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
