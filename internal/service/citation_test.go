package service

import (
	"strings"
	"testing"

	"compliance-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextChunks() []*models.DocumentChunk {
	return []*models.DocumentChunk{
		chunk(1, "flsa", "FLSA", "Overtime is due after 40 hours.", 0.80),
		chunk(2, "flsa", "FLSA", "The federal minimum wage is $7.25.", 0.90),
		chunk(3, "ca", "California", "California minimum wage is $16.00.", 0.70),
		chunk(4, "ny", "New York", "New York minimum wage is $15.00.", 0.60),
		chunk(5, "wa", "Washington", "Washington minimum wage is $16.28.", 0.95),
	}
}

func TestCitationIndices(t *testing.T) {
	assert.Equal(t, []int{1, 3, 12}, CitationIndices("a [3] b [1] c [12] d [3] [x]"))
	assert.Empty(t, CitationIndices("no markers"))
}

func TestAuditCitations_StructuredWithoutCitationsHasNoSources(t *testing.T) {
	audit := AuditCitations(`{"violations":[]}`, contextChunks(), PolicyStructured, 3)
	assert.Empty(t, audit.Sources)
	assert.NotNil(t, audit.Sources)
	assert.Empty(t, audit.Used)
}

func TestAuditCitations_ChatWithoutCitationsUsesAllContext(t *testing.T) {
	chunks := contextChunks()
	audit := AuditCitations("Pay at least the state minimum.", chunks, PolicyChat, 3)
	assert.Len(t, audit.Used, len(chunks))
	assert.Len(t, audit.Sources, 3)
}

func TestAuditCitations_DedupKeepsHighestSimilarityPerDocument(t *testing.T) {
	answer := "Overtime applies [1]. The floor is $7.25 [2]. In California it is higher [3]."
	audit := AuditCitations(answer, contextChunks(), PolicyStructured, 3)

	require.Len(t, audit.Sources, 2)
	assert.Equal(t, "flsa", audit.Sources[0].DocID)
	assert.Equal(t, 2, audit.Sources[0].Index, "chunk 2 has the higher similarity")
	assert.Equal(t, 0.90, audit.Sources[0].Similarity)
	assert.Equal(t, "ca", audit.Sources[1].DocID)
}

func TestAuditCitations_TieKeepsEarliestIndex(t *testing.T) {
	chunks := []*models.DocumentChunk{
		chunk(1, "d", "D", "first", 0.5),
		chunk(2, "d", "D", "second", 0.5),
	}
	audit := AuditCitations("see [2] and [1]", chunks, PolicyStructured, 3)
	require.Len(t, audit.Sources, 1)
	assert.Equal(t, 1, audit.Sources[0].Index)
}

func TestAuditCitations_SourcesOnlyFromCitedIndices(t *testing.T) {
	answer := "A [5]. B [4]. C [3]. D [1]. Out of range [9]."
	audit := AuditCitations(answer, contextChunks(), PolicyStructured, 3)

	require.Len(t, audit.Sources, 3)
	cited := map[int]bool{}
	for _, n := range CitationIndices(answer) {
		cited[n] = true
	}
	seen := map[string]bool{}
	for _, s := range audit.Sources {
		assert.True(t, cited[s.Index])
		assert.False(t, seen[s.DocID], "one source per document")
		seen[s.DocID] = true
	}
	// ordered by similarity, capped at 3
	assert.Equal(t, "wa", audit.Sources[0].DocID)
	assert.Equal(t, "flsa", audit.Sources[1].DocID)
	assert.Equal(t, "ca", audit.Sources[2].DocID)
}

func TestAuditCitations_SnippetIsTruncated(t *testing.T) {
	chunks := []*models.DocumentChunk{chunk(1, "d", "D", strings.Repeat("é", 500), 0.5)}
	audit := AuditCitations("[1]", chunks, PolicyStructured, 3)
	require.Len(t, audit.Sources, 1)
	assert.Equal(t, 203, len([]rune(audit.Sources[0].Snippet)))
	assert.Equal(t, "Section d", audit.Sources[0].SectionPath)
}

func TestDetectOverCitation_VerbatimCopy(t *testing.T) {
	source := strings.Repeat("Employers must pay overtime at one and one-half times the regular rate. ", 6)
	chunks := []*models.DocumentChunk{chunk(1, "d", "D", source, 0.9)}

	copied := source[:300] + " That is the rule."
	assert.True(t, DetectOverCitation(copied, chunks))

	own := "Overtime is paid at time and a half for long weeks [1]. Check your payroll settings."
	assert.False(t, DetectOverCitation(own, chunks))
}

func TestDetectOverCitation_TooManyMarkers(t *testing.T) {
	answer := "Pay the minimum [1][2][3]. Track hours [4]."
	assert.True(t, DetectOverCitation(answer, contextChunks()))
}

func TestDetectOverCitation_TooManyQuotes(t *testing.T) {
	answer := `The law says "pay the minimum" and "track all hours" and "keep records". Follow it.`
	assert.True(t, DetectOverCitation(answer, contextChunks()))
}

func TestAuditCitations_OverCitationOnlyForChat(t *testing.T) {
	answer := "Rule [1][2][3][4]."
	assert.True(t, AuditCitations(answer, contextChunks(), PolicyChat, 3).OverCitation)
	assert.False(t, AuditCitations(answer, contextChunks(), PolicyStructured, 3).OverCitation)
}

func TestVerbatimCoverage(t *testing.T) {
	source := strings.Repeat("Employers must pay overtime at one and one-half times the regular rate. ", 6)

	answer := strings.Repeat("x", 100) + source[:300]
	assert.InDelta(t, 0.75, verbatimCoverage(answer, source), 1e-9)

	assert.Zero(t, verbatimCoverage("short answer", source))
	assert.Zero(t, verbatimCoverage(strings.Repeat("y", 400), source))
}

func TestVerbatimCoverage_MultiByte(t *testing.T) {
	source := strings.Repeat("Работодатель обязан оплачивать сверхурочную работу в полуторном размере. ", 5)
	copied := string([]rune(source)[:250])
	answer := "Кратко:" + copied

	coverage := verbatimCoverage(answer, source)
	assert.InDelta(t, float64(len(copied))/float64(len(answer)), coverage, 1e-9)

	chunks := []*models.DocumentChunk{chunk(1, "ru", "RU", source, 0.9)}
	assert.True(t, DetectOverCitation(answer, chunks))
}
