package retrieve

import (
	"sort"

	"ragcore/internal/persistence/databases"
)

// candidate is one scored hit from a single source (BM25 or dense), before
// fusion.
type candidate struct {
	id       string
	score    float64
	text     string
	metadata map[string]string
}

// minMaxNormalize implements §4.8 step 3: norm(s) = (s-min)/(max-min), or
// 0.5 uniformly when max==min (including the single-candidate case).
func minMaxNormalize(cands []candidate) map[string]float64 {
	out := make(map[string]float64, len(cands))
	if len(cands) == 0 {
		return out
	}
	min, max := cands[0].score, cands[0].score
	for _, c := range cands[1:] {
		if c.score < min {
			min = c.score
		}
		if c.score > max {
			max = c.score
		}
	}
	for _, c := range cands {
		if max > min {
			out[c.id] = (c.score - min) / (max - min)
		} else {
			out[c.id] = 0.5
		}
	}
	return out
}

// fused is one chunk's state after weighted fusion, carrying enough to
// drive MMR and final packaging.
type fused struct {
	id       string
	text     string
	metadata map[string]string
	score    float64
}

// fuse implements §4.8 steps 3–4: normalize each source independently,
// combine with the configured weights (falling back to single-source
// weighting when one side is empty, per the edge-case rule), and return
// the top k2 by fused score with chunk_id-ascending tie-break.
func fuse(bm25, dense []candidate, bm25Weight, denseWeight float64, k2 int) []fused {
	wB, wD := bm25Weight, denseWeight
	switch {
	case len(bm25) == 0 && len(dense) == 0:
		return nil
	case len(bm25) == 0:
		wB, wD = 0, 1
	case len(dense) == 0:
		wB, wD = 1, 0
	}

	normB := minMaxNormalize(bm25)
	normD := minMaxNormalize(dense)

	byID := map[string]*fused{}
	order := []string{}
	ensure := func(id, text string, md map[string]string) *fused {
		f, ok := byID[id]
		if !ok {
			f = &fused{id: id, text: text, metadata: md}
			byID[id] = f
			order = append(order, id)
		} else if f.text == "" {
			f.text = text
			f.metadata = md
		}
		return f
	}
	for _, c := range bm25 {
		ensure(c.id, c.text, c.metadata)
	}
	for _, c := range dense {
		ensure(c.id, c.text, c.metadata)
	}

	for _, id := range order {
		f := byID[id]
		nb := normB[id] // missing -> zero value 0, per "missing ids treated as normalized 0"
		nd := normD[id]
		f.score = wB*nb + wD*nd
	}

	out := make([]fused, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	if len(out) > k2 {
		out = out[:k2]
	}
	return out
}

// jaccard computes token-set Jaccard similarity over already-tokenized
// text, used by MMR as the intra-result similarity metric.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := map[string]struct{}{}
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := map[string]struct{}{}
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// mmrSelect implements §4.8 step 5: iteratively pick the candidate
// maximizing λ·score − (1−λ)·max-similarity-to-selected, stopping at k3.
func mmrSelect(cands []fused, lambda float64, k3 int) []fused {
	if len(cands) == 0 {
		return nil
	}
	tokens := make([][]string, len(cands))
	for i, c := range cands {
		tokens[i] = databases.Tokenize(c.text)
	}

	remaining := make([]int, len(cands))
	for i := range remaining {
		remaining[i] = i
	}
	var selected []int

	for len(selected) < k3 && len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0
		bestPos := -1
		for pos, ci := range remaining {
			maxSim := 0.0
			for _, si := range selected {
				if sim := jaccard(tokens[ci], tokens[si]); sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := lambda*cands[ci].score - (1-lambda)*maxSim
			if bestIdx == -1 || mmrScore > bestScore ||
				(mmrScore == bestScore && cands[ci].id < cands[bestIdx].id) {
				bestIdx = ci
				bestScore = mmrScore
				bestPos = pos
			}
		}
		selected = append(selected, bestIdx)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	out := make([]fused, len(selected))
	for i, idx := range selected {
		out[i] = cands[idx]
	}
	return out
}
