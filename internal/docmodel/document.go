// Package docmodel holds the core data types shared by ingestion and
// retrieval: documents, enriched metadata, chunks, and the flatten/parse
// contract the vector store adapter relies on.
package docmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DocType enumerates the detected document categories.
type DocType string

const (
	DocTypeEmail    DocType = "email"
	DocTypeMarkdown DocType = "markdown"
	DocTypePDF      DocType = "pdf"
	DocTypeImage    DocType = "image"
	DocTypeChat     DocType = "chat"
	DocTypeGeneric  DocType = "generic"
)

// Document is the unit of ingestion, identified by a content hash so that
// re-ingesting identical bytes is always detectable as a duplicate.
type Document struct {
	HashFull string
	HashShort string

	Filename string
	Type     DocType
	Text     string
	Language string

	SourcePath string
	CreatedAt  time.Time
	IngestedAt time.Time

	// Truncated records whether the enrichment prompt window truncated Text
	// before handing it to the LLM gateway. The ingestion pipeline sets
	// Truncated only; it leaves PromptWindowChars at zero.
	Truncated         bool
	PromptWindowChars int
}

// HashDocument computes the full and short content hash for raw bytes.
func HashDocument(raw []byte) (full, short string) {
	sum := sha256.Sum256(raw)
	full = hex.EncodeToString(sum[:])
	short = full[:12]
	return
}

// NewDocument builds a Document from raw content, stamping hashes and
// IngestedAt. CreatedAt is left to the caller (e.g. file mtime).
func NewDocument(raw []byte, filename string, docType DocType, now time.Time) Document {
	full, short := HashDocument(raw)
	return Document{
		HashFull:   full,
		HashShort:  short,
		Filename:   filename,
		Type:       docType,
		Text:       string(raw),
		IngestedAt: now,
	}
}

// Entity is a single extracted entity mention.
type Entity struct {
	Name string
	Role string // optional, people only
}

// DatedMention is an extracted date with optional surrounding context.
type DatedMention struct {
	Value   string
	Context string
}

// EnrichedMetadata is the controlled-vocabulary metadata attached to a
// document by M1 Enrichment. Enrichment leaves Generation at 0, and no code
// in this module re-enriches a document or increments it.
type EnrichedMetadata struct {
	Generation int

	Title      string
	Summary    string
	DocType    DocType
	Complexity float64

	People        []Entity
	Organizations []string
	Places        []string
	Technologies  []string
	Dates         []DatedMention
	Numbers       []string

	Topics   []string
	Projects []string

	SuggestedTopics   []string
	SuggestedProjects []string
	SuggestedPlaces   []string

	Reflection string
}

const (
	MaxPeople    = 50
	MaxListField = 20
)

// ChunkType enumerates the structural origin of a chunk.
type ChunkType string

const (
	ChunkHeading  ChunkType = "heading"
	ChunkParagraph ChunkType = "paragraph"
	ChunkList     ChunkType = "list"
	ChunkTable    ChunkType = "table"
	ChunkCode     ChunkType = "code"
	ChunkChatTurn ChunkType = "chat_turn"
)

// Chunk is the minimal retrievable unit produced by L4 and stored by
// Storage/Indexing.
type Chunk struct {
	ID       string
	DocShortID string
	Sequence int

	Text          string
	ChunkType     ChunkType
	SectionTitle  string
	ParentSections []string
	TokenEstimate int

	// CharOffsets is a [start,end) range into the enrichment-ready text this
	// chunk was cut from. The chunker in internal/rag/chunker does not fill
	// it, so it is [0,0] on the chunks it produces.
	CharOffsets [2]int

	// Speaker is populated only for ChunkChatTurn chunks.
	Speaker string
}

// ChunkID formats the canonical "{doc_short_id}_chunk_{sequence}" id.
func ChunkID(docShortID string, sequence int) string {
	return docShortID + "_chunk_" + strconv.Itoa(sequence)
}

// FlatMetadata renders a Chunk plus its document's EnrichedMetadata into
// the flat string-keyed map the vector store boundary (L6) requires:
// lists become comma-joined strings, nested values become dot-paths, and
// empty/zero values are elided rather than written as empty strings.
func FlatMetadata(doc Document, em EnrichedMetadata, c Chunk) map[string]string {
	out := map[string]string{}
	setIf(out, "doc_id", doc.HashShort)
	setIf(out, "doc_hash", doc.HashFull)
	setIf(out, "filename", doc.Filename)
	setIf(out, "doc_type", string(doc.Type))
	setIf(out, "language", doc.Language)

	setIf(out, "title", em.Title)
	setIf(out, "summary", em.Summary)
	if em.Complexity != 0 {
		out["complexity"] = strconv.FormatFloat(em.Complexity, 'f', -1, 64)
	}
	setJoined(out, "organizations", em.Organizations)
	setJoined(out, "places", em.Places)
	setJoined(out, "technologies", em.Technologies)
	setJoined(out, "numbers", em.Numbers)
	setJoined(out, "topics", em.Topics)
	setJoined(out, "projects", em.Projects)
	if len(em.People) > 0 {
		names := make([]string, len(em.People))
		for i, p := range em.People {
			names[i] = p.Name
		}
		setJoined(out, "people", names)
	}

	setIf(out, "chunk_id", c.ID)
	out["sequence"] = strconv.Itoa(c.Sequence)
	setIf(out, "chunk_type", string(c.ChunkType))
	setIf(out, "section_title", c.SectionTitle)
	setJoined(out, "parent_sections", c.ParentSections)
	if c.TokenEstimate != 0 {
		out["token_estimate"] = strconv.Itoa(c.TokenEstimate)
	}
	setIf(out, "speaker", c.Speaker)
	return out
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func setJoined(m map[string]string, k string, vs []string) {
	if len(vs) == 0 {
		return
	}
	clean := make([]string, 0, len(vs))
	for _, v := range vs {
		v = strings.TrimSpace(v)
		if v != "" {
			clean = append(clean, v)
		}
	}
	if len(clean) > 0 {
		m[k] = strings.Join(clean, ",")
	}
}

// ParseJoined reverses setJoined: split on commas, trim whitespace, drop
// empties. Used when reading flat metadata back out of the vector store.
func ParseJoined(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SortedFilterKey renders a filter map deterministically for use in cache
// keys, so that equivalent filters always hash to the same string.
func SortedFilterKey(filter map[string]string) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(filter[k])
	}
	return b.String()
}
