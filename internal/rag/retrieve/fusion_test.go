package retrieve

import "testing"

func TestMinMaxNormalizeSingleCandidateYieldsHalf(t *testing.T) {
	norm := minMaxNormalize([]candidate{{id: "a", score: 5}})
	if norm["a"] != 0.5 {
		t.Fatalf("norm = %v, want 0.5", norm["a"])
	}
}

func TestFuseFallsBackToDenseOnlyWhenBM25Empty(t *testing.T) {
	dense := []candidate{{id: "a", score: 1}, {id: "b", score: 0}}
	out := fuse(nil, dense, 0.3, 0.7, 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 fused, got %d", len(out))
	}
	if out[0].id != "a" || out[0].score != 1 {
		t.Fatalf("expected a to win with full weight, got %+v", out[0])
	}
}

func TestJaccardIdenticalTokensIsOne(t *testing.T) {
	if got := jaccard([]string{"a", "b"}, []string{"a", "b"}); got != 1 {
		t.Fatalf("jaccard = %v, want 1", got)
	}
}

func TestJaccardDisjointIsZero(t *testing.T) {
	if got := jaccard([]string{"a"}, []string{"b"}); got != 0 {
		t.Fatalf("jaccard = %v, want 0", got)
	}
}

func TestMMRSelectReducesNearDuplicates(t *testing.T) {
	cands := []fused{
		{id: "d1", text: "daycare enrollment form for fall semester", score: 0.9},
		{id: "d2", text: "daycare enrollment form for fall semester now", score: 0.89},
		{id: "d3", text: "daycare enrollment form for fall term", score: 0.88},
		{id: "d4", text: "completely unrelated topic about gardening", score: 0.65},
	}
	out := mmrSelect(cands, 0.7, 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 selected, got %d", len(out))
	}
	foundUnrelated := false
	for _, o := range out {
		if o.id == "d4" {
			foundUnrelated = true
		}
	}
	if !foundUnrelated {
		t.Fatal("expected the structurally different hit to survive MMR diversification")
	}
}
