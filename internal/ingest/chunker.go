package ingest

import (
	"strings"
)

const (
	defaultChunkSize    = 1200
	defaultChunkOverlap = 150
)

// Section is one chunk of a document with the heading trail it sits under.
type Section struct {
	Path    string
	Content string
}

// Chunker splits markdown or plain text along headings first and then into
// word windows of at most Size characters with Overlap characters carried
// over between neighbours.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}
	return &Chunker{Size: size, Overlap: overlap}
}

func (c *Chunker) Split(text string) []Section {
	var (
		sections []Section
		headings []string
		body     strings.Builder
	)

	flush := func() {
		path := strings.Join(headings, " > ")
		for _, chunk := range c.window(body.String()) {
			sections = append(sections, Section{Path: path, Content: chunk})
		}
		body.Reset()
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		level, title := headingLevel(line)
		if level == 0 {
			body.WriteString(line)
			body.WriteByte('\n')
			continue
		}

		flush()
		if level > len(headings) {
			level = len(headings) + 1
		}
		headings = append(headings[:level-1], title)
	}
	flush()

	return sections
}

// window is a word-boundary sliding window.
func (c *Chunker) window(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		chunks  []string
		current []string
		size    int
	)
	for _, word := range words {
		if size+len(word)+1 > c.Size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			// carry the tail of the previous chunk
			keep := 0
			carried := 0
			for i := len(current) - 1; i >= 0 && carried+len(current[i])+1 <= c.Overlap; i-- {
				carried += len(current[i]) + 1
				keep++
			}
			current = append([]string(nil), current[len(current)-keep:]...)
			size = carried
		}
		current = append(current, word)
		size += len(word) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// headingLevel returns the ATX heading level of line (1-6) and its text.
func headingLevel(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(strings.TrimRight(trimmed[level:], "#"))
}
