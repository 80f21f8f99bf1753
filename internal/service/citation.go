package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"compliance-rag/internal/models"
)

// CitationPolicy decides what counts as "used" when an answer cites nothing.
//
// Free-text chat answers are expected to always ground in the supplied
// context, so an uncited chat answer reports the whole selection. Structured
// analyses may legitimately draw findings from the rule table alone, so an
// uncited analysis reports no sources.
type CitationPolicy int

const (
	PolicyChat CitationPolicy = iota
	PolicyStructured
)

const (
	verbatimMinRun      = 200
	verbatimMaxCoverage = 0.30
	snippetLength       = 200
	defaultSourceCap    = 3
)

var (
	citationPattern = regexp.MustCompile(`\[(\d+)\]`)
	sentenceEnd     = regexp.MustCompile(`[.!?]+(\s|$)`)
	quotedSpan      = regexp.MustCompile(`"[^"\n]{3,}"|“[^”\n]{3,}”`)
)

type CitationAudit struct {
	Used         []*models.DocumentChunk
	Sources      []models.Source
	OverCitation bool
}

// CitationIndices returns the distinct [n] markers in text, ascending.
func CitationIndices(text string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// AuditCitations maps [n] markers back to the context chunks supplied in the
// same call, reduces them to one source per document (highest similarity,
// then lowest index) and caps the result at maxSources.
// Over-citation is only evaluated for chat answers.
func AuditCitations(answer string, chunks []*models.DocumentChunk, policy CitationPolicy, maxSources int) CitationAudit {
	if maxSources <= 0 {
		maxSources = defaultSourceCap
	}

	referenced := make(map[int]bool)
	for _, n := range CitationIndices(answer) {
		referenced[n] = true
	}

	type indexed struct {
		index int
		chunk *models.DocumentChunk
	}

	var used []indexed
	for i, chunk := range chunks {
		if referenced[i+1] {
			used = append(used, indexed{i + 1, chunk})
		}
	}
	if len(used) == 0 && policy == PolicyChat {
		for i, chunk := range chunks {
			used = append(used, indexed{i + 1, chunk})
		}
	}

	best := make(map[string]indexed)
	for _, u := range used {
		cur, ok := best[u.chunk.DocID]
		if !ok || u.chunk.Similarity > cur.chunk.Similarity ||
			(u.chunk.Similarity == cur.chunk.Similarity && u.index < cur.index) {
			best[u.chunk.DocID] = u
		}
	}

	deduped := make([]indexed, 0, len(best))
	for _, b := range best {
		deduped = append(deduped, b)
	}
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].chunk.Similarity != deduped[j].chunk.Similarity {
			return deduped[i].chunk.Similarity > deduped[j].chunk.Similarity
		}
		return deduped[i].index < deduped[j].index
	})
	if len(deduped) > maxSources {
		deduped = deduped[:maxSources]
	}

	audit := CitationAudit{
		Used:    make([]*models.DocumentChunk, 0, len(used)),
		Sources: make([]models.Source, 0, len(deduped)),
	}
	for _, u := range used {
		audit.Used = append(audit.Used, u.chunk)
	}
	for _, d := range deduped {
		audit.Sources = append(audit.Sources, models.Source{
			Index:       d.index,
			DocID:       d.chunk.DocID,
			Title:       d.chunk.Title(),
			SectionPath: d.chunk.Section(),
			Similarity:  d.chunk.Similarity,
			Snippet:     snippet(d.chunk.Content),
		})
	}

	if policy == PolicyChat {
		audit.OverCitation = DetectOverCitation(answer, chunks)
	}

	return audit
}

// DetectOverCitation flags answers that copy or cite instead of synthesising:
// more than 30% of the text in 200+ character verbatim runs from the context,
// more [n] markers than sentences, or more quoted spans than half the sentences.
func DetectOverCitation(answer string, chunks []*models.DocumentChunk) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}

	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		contents[i] = chunk.Content
	}
	if verbatimCoverage(answer, strings.Join(contents, "\n")) > verbatimMaxCoverage {
		return true
	}

	sentences := countSentences(answer)
	if len(citationPattern.FindAllStringIndex(answer, -1)) > sentences {
		return true
	}
	return float64(len(quotedSpan.FindAllStringIndex(answer, -1))) > float64(sentences)/2
}

// verbatimCoverage is the fraction of answer covered by stretches in which
// every verbatimMinRun-byte window also occurs in source. Windows of source
// are indexed once, so the cost is linear in both inputs. Stretches start on
// rune boundaries only.
func verbatimCoverage(answer, source string) float64 {
	if len(answer) < verbatimMinRun || len(source) < verbatimMinRun {
		return 0
	}

	windows := make(map[string]struct{}, len(source)-verbatimMinRun+1)
	for k := 0; k+verbatimMinRun <= len(source); k++ {
		windows[source[k:k+verbatimMinRun]] = struct{}{}
	}
	inSource := func(end int) bool {
		_, ok := windows[answer[end-verbatimMinRun:end]]
		return ok
	}

	covered := 0
	i := 0
	for i+verbatimMinRun <= len(answer) {
		if !inSource(i + verbatimMinRun) {
			_, size := utf8.DecodeRuneInString(answer[i:])
			i += size
			continue
		}
		j := i + verbatimMinRun
		for j < len(answer) && inSource(j+1) {
			j++
		}
		covered += j - i
		i = j
	}
	return float64(covered) / float64(len(answer))
}

func countSentences(text string) int {
	n := len(sentenceEnd.FindAllStringIndex(strings.TrimSpace(text), -1))
	if n == 0 {
		return 1
	}
	return n
}

func snippet(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= snippetLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:snippetLength]) + "..."
}
