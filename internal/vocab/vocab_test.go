package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateDemotesUnknownTerms(t *testing.T) {
	s := New("")
	s.LoadTerms(KindTopic, []string{"technology/ai", "technology/machine-learning"})

	res := s.Validate(KindTopic, []string{"technology/ai", "technology/neural-networks"})
	if len(res.Accepted) != 1 || res.Accepted[0] != "technology/ai" {
		t.Fatalf("accepted = %v, want [technology/ai]", res.Accepted)
	}
	if len(res.Demoted) != 1 || res.Demoted[0] != "technology/neural-networks" {
		t.Fatalf("demoted = %v, want [technology/neural-networks]", res.Demoted)
	}
}

func TestRecordSuggestionAppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suggestions.jsonl")
	s := New(path)
	if err := s.RecordSuggestion(KindTopic, "technology/neural-networks", "doc1", "evaluated neural networks"); err != nil {
		t.Fatalf("RecordSuggestion: %v", err)
	}
	if err := s.RecordSuggestion(KindPlace, "atlantis", "doc2", ""); err != nil {
		t.Fatalf("RecordSuggestion: %v", err)
	}
	recs, err := s.ReadSuggestions()
	if err != nil {
		t.Fatalf("ReadSuggestions: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].Term != "technology/neural-networks" || recs[0].SourceDocID != "doc1" {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
}

func TestLoadDirMissingFilesYieldEmptySets(t *testing.T) {
	dir := t.TempDir()
	s := New("")
	if err := s.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(s.All(KindTopic)) != 0 {
		t.Fatalf("expected empty topic set, got %v", s.All(KindTopic))
	}
}

func TestLoadDirReadsHierarchicalTerms(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "topics.txt"), []byte("# comment\ntechnology/ai\ntechnology/machine-learning\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New("")
	if err := s.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if !s.IsValid(KindTopic, "technology/ai") {
		t.Fatal("expected technology/ai to be valid")
	}
	if s.IsValid(KindTopic, "technology/neural-networks") {
		t.Fatal("expected technology/neural-networks to be invalid")
	}
}
