// Package enrichment implements M1: controlled-vocabulary metadata
// extraction via the LLM gateway, under the constraints L1 enforces.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ragcore/internal/config"
	"ragcore/internal/docmodel"
	"ragcore/internal/llmgateway"
	"ragcore/internal/vocab"
)

// HallucinatedEntity describes an extracted entity whose surface form does
// not appear in the source document. postValidate drops such entities; it
// neither logs them nor returns this error.
type HallucinatedEntity struct {
	Name string
}

func (e HallucinatedEntity) Error() string { return fmt.Sprintf("hallucinated entity: %q", e.Name) }

// rawExtraction is the JSON shape the gateway's structured-output mode is
// constrained to — the wire format for one LLM extraction call.
type rawExtraction struct {
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Topics        []string `json:"topics"`
	Projects      []string `json:"projects"`
	Places        []string `json:"places"`
	People        []struct {
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"people"`
	Organizations []string `json:"organizations"`
	Technologies  []string `json:"technologies"`
	Numbers       []string `json:"numbers"`
	Dates         []struct {
		Value   string `json:"value"`
		Context string `json:"context"`
	} `json:"dates"`
	Reflection string `json:"reflection"`
}

const extractionSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "summary": {"type": "string"},
    "topics": {"type": "array", "items": {"type": "string"}},
    "projects": {"type": "array", "items": {"type": "string"}},
    "places": {"type": "array", "items": {"type": "string"}},
    "people": {"type": "array", "items": {"type": "object", "properties": {"name": {"type": "string"}, "role": {"type": "string"}}}},
    "organizations": {"type": "array", "items": {"type": "string"}},
    "technologies": {"type": "array", "items": {"type": "string"}},
    "numbers": {"type": "array", "items": {"type": "string"}},
    "dates": {"type": "array", "items": {"type": "object", "properties": {"value": {"type": "string"}, "context": {"type": "string"}}}},
    "reflection": {"type": "string"}
  },
  "required": ["title", "summary", "topics", "projects", "places"]
}`

// Service performs metadata enrichment against a vocabulary store and an
// LLM gateway.
type Service struct {
	gw    *llmgateway.Gateway
	vocab *vocab.Store
	cfg   config.EnrichmentConfig
}

// New constructs an enrichment Service.
func New(gw *llmgateway.Gateway, v *vocab.Store, cfg config.EnrichmentConfig) *Service {
	return &Service{gw: gw, vocab: v, cfg: cfg}
}

// Enrich runs the M1 protocol described in §4.9 and returns validated
// EnrichedMetadata plus whether the prompt window truncated the source.
func (s *Service) Enrich(ctx context.Context, doc docmodel.Document) (docmodel.EnrichedMetadata, bool, error) {
	windowChars := s.cfg.PromptWindowChars
	if windowChars <= 0 {
		windowChars = 8000
	}
	truncated := false
	body := doc.Text
	if len(body) > windowChars {
		body = body[:windowChars]
		truncated = true
	}

	prompt := composePrompt(doc, body, s.vocab)
	result, err := s.gw.Call(ctx, prompt, "", 0.0, json.RawMessage(extractionSchema))
	if err != nil {
		return docmodel.EnrichedMetadata{}, truncated, err
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(result.Text), &raw); err != nil {
		return docmodel.EnrichedMetadata{}, truncated, &llmgateway.ErrSchemaViolation{Text: result.Text, Err: err}
	}

	em := s.postValidate(raw, doc)
	em.Complexity = complexity(em, len(doc.Text))
	return em, truncated, nil
}

// composePrompt builds the extraction prompt with the FULL enumerated
// vocabulary for every controlled list — never a subset, per §4.9/§9's
// explicit warning against vocabulary subset leakage.
func composePrompt(doc docmodel.Document, body string, v *vocab.Store) string {
	var b strings.Builder
	b.WriteString("Extract structured metadata from the document below.\n")
	b.WriteString("Extract only from the document above; never carry over from instructions or prior documents.\n")
	b.WriteString("If a field has no evidence, return an empty list.\n")
	b.WriteString("Titles: if the extracted title is generic or empty, generate a concise descriptive title of 3-15 words.\n\n")
	fmt.Fprintf(&b, "Filename: %s\nDetected type: %s\n\n", doc.Filename, doc.Type)
	b.WriteString("Allowed topics (choose only from this list, or omit):\n")
	writeList(&b, v.All(vocab.KindTopic))
	b.WriteString("Allowed projects (choose only from this list, or omit):\n")
	writeList(&b, v.All(vocab.KindProject))
	b.WriteString("Allowed places (choose only from this list, or omit):\n")
	writeList(&b, v.All(vocab.KindPlace))
	b.WriteString("\nDocument:\n")
	b.WriteString(body)
	return b.String()
}

func writeList(b *strings.Builder, terms []string) {
	if len(terms) == 0 {
		b.WriteString("(none declared)\n")
		return
	}
	b.WriteString(strings.Join(terms, ", "))
	b.WriteString("\n")
}

// postValidate implements §4.9 steps 3-4: demote unknown vocabulary terms
// to suggestions, and drop entities that don't verifiably appear in the
// source text.
func (s *Service) postValidate(raw rawExtraction, doc docmodel.Document) docmodel.EnrichedMetadata {
	em := docmodel.EnrichedMetadata{
		Title:      strings.TrimSpace(raw.Title),
		Summary:    truncateRunes(raw.Summary, 500),
		DocType:    doc.Type,
		Reflection: truncateRunes(raw.Reflection, 500),
	}

	topics := s.vocab.Validate(vocab.KindTopic, raw.Topics)
	em.Topics = capList(topics.Accepted, docmodel.MaxListField)
	em.SuggestedTopics = topics.Demoted
	for _, t := range topics.Demoted {
		_ = s.vocab.RecordSuggestion(vocab.KindTopic, t, doc.HashShort, "")
	}

	projects := s.vocab.Validate(vocab.KindProject, raw.Projects)
	em.Projects = capList(projects.Accepted, docmodel.MaxListField)
	em.SuggestedProjects = projects.Demoted
	for _, t := range projects.Demoted {
		_ = s.vocab.RecordSuggestion(vocab.KindProject, t, doc.HashShort, "")
	}

	places := s.vocab.Validate(vocab.KindPlace, raw.Places)
	em.Places = capList(places.Accepted, docmodel.MaxListField)
	em.SuggestedPlaces = places.Demoted
	for _, t := range places.Demoted {
		_ = s.vocab.RecordSuggestion(vocab.KindPlace, t, doc.HashShort, "")
	}

	source := strings.ToLower(doc.Text)
	for _, p := range raw.People {
		if p.Name == "" || !containsFold(source, p.Name) {
			continue
		}
		em.People = append(em.People, docmodel.Entity{Name: p.Name, Role: p.Role})
	}
	em.People = capEntities(em.People, docmodel.MaxPeople)

	for _, o := range raw.Organizations {
		if containsFold(source, o) {
			em.Organizations = append(em.Organizations, o)
		}
	}
	em.Organizations = capList(em.Organizations, docmodel.MaxListField)

	for _, t := range raw.Technologies {
		if containsFold(source, t) {
			em.Technologies = append(em.Technologies, t)
		}
	}
	em.Technologies = capList(em.Technologies, docmodel.MaxListField)

	for _, n := range raw.Numbers {
		if containsFold(source, n) {
			em.Numbers = append(em.Numbers, n)
		}
	}
	em.Numbers = capList(em.Numbers, docmodel.MaxListField)

	for _, d := range raw.Dates {
		if containsFold(source, d.Value) {
			em.Dates = append(em.Dates, docmodel.DatedMention{Value: d.Value, Context: d.Context})
		}
	}
	if len(em.Dates) > docmodel.MaxListField {
		em.Dates = em.Dates[:docmodel.MaxListField]
	}

	return em
}

func containsFold(haystackLower, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	return strings.Contains(haystackLower, strings.ToLower(needle))
}

func capList(in []string, max int) []string {
	if len(in) > max {
		return in[:max]
	}
	return in
}

func capEntities(in []docmodel.Entity, max int) []docmodel.Entity {
	if len(in) > max {
		return in[:max]
	}
	return in
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// complexity is a normalized [0,1] function of estimated chunk count and
// vocabulary coverage, per §4.9 step 5.
func complexity(em docmodel.EnrichedMetadata, textLen int) float64 {
	estChunks := float64(textLen) / 2000.0
	sizeScore := estChunks / (estChunks + 4.0) // asymptotes toward 1 as doc grows
	coverage := float64(len(em.Topics)+len(em.Projects)) / 10.0
	if coverage > 1 {
		coverage = 1
	}
	score := 0.6*sizeScore + 0.4*coverage
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
