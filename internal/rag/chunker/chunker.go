// Package chunker implements the structure-aware splitter (L4): explicit
// ignore-blocks are excluded entirely, headings establish section context,
// fenced code and tables are kept atomic, lists are grouped with their
// lead-in text, and remaining prose is split on paragraph/sentence
// boundaries targeting a token budget.
package chunker

import (
	"regexp"
	"strings"

	"ragcore/internal/config"
	"ragcore/internal/docmodel"
)

var (
	ignoreBlockRe = regexp.MustCompile(`(?s)<!--\s*RAG:IGNORE\s*-->.*?<!--\s*/RAG:IGNORE\s*-->`)
	headingRe     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	fenceRe       = regexp.MustCompile("^```")
	listItemRe    = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)
	tableRowRe    = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	sentenceEndRe = regexp.MustCompile(`[.!?]["')\]]?\s+`)
	speakerRe     = regexp.MustCompile(`(?m)^([A-Za-z0-9 _.\-]{1,40}):\s`)
)

// Chunk splits enrichment-ready text into a contiguous, zero-indexed
// sequence of chunks per §4.4. docType "chat" triggers the speaker-turn
// special case; any other value uses the structural splitter.
func Chunk(text string, docType docmodel.DocType, docShortID string, cfg config.ChunkerConfig) []docmodel.Chunk {
	cleaned := stripIgnoreBlocks(text)
	if docType == docmodel.DocTypeChat {
		return chunkChat(cleaned, docShortID)
	}
	return chunkStructured(cleaned, docShortID, cfg)
}

// stripIgnoreBlocks removes <!-- RAG:IGNORE --> ... <!-- /RAG:IGNORE -->
// regions entirely before any other boundary detection runs.
func stripIgnoreBlocks(text string) string {
	return ignoreBlockRe.ReplaceAllString(text, "")
}

// segment is an intermediate structural unit before token-budget splitting.
type segment struct {
	kind           docmodel.ChunkType
	text           string
	sectionTitle   string
	parentSections []string
}

func chunkStructured(text string, docShortID string, cfg config.ChunkerConfig) []docmodel.Chunk {
	lines := strings.Split(text, "\n")
	var segs []segment

	type headingLevel struct {
		level int
		title string
	}
	var stack []headingLevel
	sectionPath := func() []string {
		out := make([]string, len(stack))
		for i, h := range stack {
			out[i] = h.title
		}
		return out
	}
	currentTitle := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1].title
	}

	var para []string
	flushPara := func() {
		if len(para) == 0 {
			return
		}
		body := strings.TrimSpace(strings.Join(para, "\n"))
		para = nil
		if body == "" {
			return
		}
		segs = append(segs, segment{kind: docmodel.ChunkParagraph, text: body, sectionTitle: currentTitle(), parentSections: sectionPath()})
	}

	i := 0
	for i < len(lines) {
		line := lines[i]

		if fenceRe.MatchString(strings.TrimSpace(line)) {
			flushPara()
			j := i + 1
			for j < len(lines) && !fenceRe.MatchString(strings.TrimSpace(lines[j])) {
				j++
			}
			if j < len(lines) {
				j++ // include closing fence
			}
			body := strings.Join(lines[i:minInt(j, len(lines))], "\n")
			segs = append(segs, segment{kind: docmodel.ChunkCode, text: body, sectionTitle: currentTitle(), parentSections: sectionPath()})
			i = j
			continue
		}

		if tableRowRe.MatchString(line) {
			flushPara()
			j := i
			for j < len(lines) && tableRowRe.MatchString(lines[j]) {
				j++
			}
			body := strings.Join(lines[i:j], "\n")
			segs = append(segs, segment{kind: docmodel.ChunkTable, text: body, sectionTitle: currentTitle(), parentSections: sectionPath()})
			i = j
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flushPara()
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headingLevel{level: level, title: title})
			i++
			continue
		}

		if listItemRe.MatchString(line) {
			// The lead-in is the paragraph directly above the list in the
			// same section, with or without a blank line between them.
			lead := strings.TrimSpace(strings.Join(para, "\n"))
			para = nil
			sep := "\n"
			if n := len(segs); lead == "" && n > 0 && segs[n-1].kind == docmodel.ChunkParagraph && segs[n-1].sectionTitle == currentTitle() {
				lead, sep = segs[n-1].text, "\n\n"
				segs = segs[:n-1]
			}
			j := i
			for j < len(lines) && (listItemRe.MatchString(lines[j]) || (strings.TrimSpace(lines[j]) != "" && strings.HasPrefix(lines[j], " "))) {
				j++
			}
			body := strings.Join(lines[i:j], "\n")
			if lead != "" {
				body = lead + sep + body
			}
			segs = append(segs, segment{kind: docmodel.ChunkList, text: body, sectionTitle: currentTitle(), parentSections: sectionPath()})
			i = j
			continue
		}

		if strings.TrimSpace(line) == "" {
			flushPara()
			i++
			continue
		}

		para = append(para, line)
		i++
	}
	flushPara()

	return assemble(segs, docShortID, cfg)
}

// assemble turns structural segments into final chunks: atomic segments
// (code/table) pass through unchanged regardless of size; list segments
// pass through unless they exceed MaxTokens, in which case they're split
// like prose; paragraph segments are grouped up to TargetTokens and capped
// at MaxTokens with sentence-boundary tiebreaking.
func assemble(segs []segment, docShortID string, cfg config.ChunkerConfig) []docmodel.Chunk {
	target := cfg.TargetTokens
	if target <= 0 {
		target = 400
	}
	maxT := cfg.MaxTokens
	if maxT <= 0 {
		maxT = 800
	}

	var out []docmodel.Chunk
	seq := 0
	emit := func(kind docmodel.ChunkType, text, sectionTitle string, parents []string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		out = append(out, docmodel.Chunk{
			ID:             docmodel.ChunkID(docShortID, seq),
			DocShortID:     docShortID,
			Sequence:       seq,
			Text:           text,
			ChunkType:      kind,
			SectionTitle:   sectionTitle,
			ParentSections: append([]string(nil), parents...),
			TokenEstimate:  tokenEstimate(text),
		})
		seq++
	}

	var buf []string
	var bufTitle string
	var bufParents []string
	bufTokens := 0
	flushBuf := func() {
		if len(buf) == 0 {
			return
		}
		emit(docmodel.ChunkParagraph, strings.Join(buf, "\n\n"), bufTitle, bufParents)
		buf = nil
		bufTokens = 0
	}

	for _, s := range segs {
		switch s.kind {
		case docmodel.ChunkCode, docmodel.ChunkTable:
			flushBuf()
			emit(s.kind, s.text, s.sectionTitle, s.parentSections)
		case docmodel.ChunkList:
			if tokenEstimate(s.text) <= maxT {
				flushBuf()
				emit(docmodel.ChunkList, s.text, s.sectionTitle, s.parentSections)
			} else {
				flushBuf()
				for _, piece := range splitToBudget(s.text, target, maxT) {
					emit(docmodel.ChunkList, piece, s.sectionTitle, s.parentSections)
				}
			}
		default: // paragraph
			t := tokenEstimate(s.text)
			if t > maxT {
				flushBuf()
				for _, piece := range splitToBudget(s.text, target, maxT) {
					emit(docmodel.ChunkParagraph, piece, s.sectionTitle, s.parentSections)
				}
				continue
			}
			if bufTokens+t > target && len(buf) > 0 {
				flushBuf()
			}
			if len(buf) == 0 {
				bufTitle = s.sectionTitle
				bufParents = s.parentSections
			}
			buf = append(buf, s.text)
			bufTokens += t
		}
	}
	flushBuf()
	return out
}

// splitToBudget splits text (already known to exceed maxTokens) on
// paragraph boundaries, then sentence boundaries, packing greedily up to
// targetTokens with a hard cap of maxTokens.
func splitToBudget(text string, targetTokens, maxTokens int) []string {
	paras := strings.Split(text, "\n\n")
	var units []string
	for _, p := range paras {
		if tokenEstimate(p) <= maxTokens {
			units = append(units, p)
			continue
		}
		units = append(units, splitSentences(p, maxTokens)...)
	}

	var out []string
	var buf []string
	bufTokens := 0
	for _, u := range units {
		t := tokenEstimate(u)
		if bufTokens > 0 && bufTokens+t > targetTokens {
			out = append(out, strings.Join(buf, "\n\n"))
			buf = nil
			bufTokens = 0
		}
		buf = append(buf, u)
		bufTokens += t
		if bufTokens >= targetTokens {
			out = append(out, strings.Join(buf, "\n\n"))
			buf = nil
			bufTokens = 0
		}
	}
	if len(buf) > 0 {
		out = append(out, strings.Join(buf, "\n\n"))
	}
	return out
}

// splitSentences breaks a too-long paragraph on sentence boundaries,
// packing greedily up to maxTokens per piece. A single sentence longer
// than maxTokens is cut at word boundaries.
func splitSentences(p string, maxTokens int) []string {
	idxs := sentenceEndRe.FindAllStringIndex(p, -1)
	var sentences []string
	last := 0
	for _, idx := range idxs {
		sentences = append(sentences, p[last:idx[1]])
		last = idx[1]
	}
	if last < len(p) {
		sentences = append(sentences, p[last:])
	}
	if len(sentences) == 0 {
		sentences = []string{p}
	}
	maxWords := int(float64(maxTokens) / 1.3)
	if maxWords < 1 {
		maxWords = 1
	}
	var fitted []string
	for _, s := range sentences {
		if tokenEstimate(s) <= maxTokens {
			fitted = append(fitted, s)
			continue
		}
		words := strings.Fields(s)
		for k := 0; k < len(words); k += maxWords {
			fitted = append(fitted, strings.Join(words[k:minInt(k+maxWords, len(words))], " ")+" ")
		}
	}
	sentences = fitted
	var out []string
	var buf strings.Builder
	bufTokens := 0
	for _, s := range sentences {
		t := tokenEstimate(s)
		if bufTokens > 0 && bufTokens+t > maxTokens {
			out = append(out, strings.TrimSpace(buf.String()))
			buf.Reset()
			bufTokens = 0
		}
		buf.WriteString(s)
		bufTokens += t
	}
	if buf.Len() > 0 {
		out = append(out, strings.TrimSpace(buf.String()))
	}
	return out
}

// tokenEstimate approximates token count as words * 1.3, per §4.4.
func tokenEstimate(s string) int {
	words := len(strings.Fields(s))
	return int(float64(words)*1.3 + 0.5)
}

// chunkChat splits a chat export on speaker-turn boundaries: each turn
// (from one "Speaker: " line up to the next) becomes one chat_turn chunk.
func chunkChat(text string, docShortID string) []docmodel.Chunk {
	matches := speakerRe.FindAllStringSubmatchIndex(text, -1)
	var out []docmodel.Chunk
	seq := 0
	if len(matches) == 0 {
		if strings.TrimSpace(text) != "" {
			out = append(out, docmodel.Chunk{
				ID: docmodel.ChunkID(docShortID, 0), DocShortID: docShortID, Sequence: 0,
				Text: strings.TrimSpace(text), ChunkType: docmodel.ChunkChatTurn,
				TokenEstimate: tokenEstimate(text),
			})
		}
		return out
	}
	for i, m := range matches {
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		speaker := text[m[2]:m[3]]
		body := strings.TrimSpace(text[start:end])
		if body == "" {
			continue
		}
		out = append(out, docmodel.Chunk{
			ID: docmodel.ChunkID(docShortID, seq), DocShortID: docShortID, Sequence: seq,
			Text: body, ChunkType: docmodel.ChunkChatTurn, Speaker: strings.TrimSpace(speaker),
			TokenEstimate: tokenEstimate(body),
		})
		seq++
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
