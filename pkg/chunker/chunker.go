package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunk is a retrieval-sized passage of manual text. Title carries the
// most recent section header seen before the chunk, or "" when none.
type Chunk struct {
	Text  string
	Title string
}

const (
	DefaultMinChars = 400
	DefaultMaxChars = 2400

	// A paragraph shorter than this that looks like a heading is treated
	// as a section header rather than content.
	headerMaxChars = 100
)

var (
	paragraphSplitter = regexp.MustCompile(`\n\n+`)
	headerPattern     = regexp.MustCompile(`^[A-Z][a-z\s]+:?$`)
)

// Split breaks raw manual text into passages of roughly minChars..maxChars,
// keeping paragraph boundaries intact. The function is pure and
// deterministic: identical input always yields an identical chunk sequence,
// which is what makes re-ingestion reproducible.
func Split(text string, minChars, maxChars int) []Chunk {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var chunks []Chunk
	var current strings.Builder
	currentLen := 0
	title := ""

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, Chunk{Text: strings.TrimSpace(current.String()), Title: title})
			current.Reset()
			currentLen = 0
		}
	}

	for _, p := range paragraphSplitter.Split(text, -1) {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}

		trimmedLen := utf8.RuneCountInString(trimmed)

		// Section headers flush the running buffer under the previous
		// title and retitle everything that follows.
		if trimmedLen < headerMaxChars && headerPattern.MatchString(trimmed) {
			flush()
			title = strings.TrimSuffix(trimmed, ":")
			continue
		}

		if currentLen+trimmedLen > maxChars && currentLen > 0 {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(trimmed)
		currentLen += trimmedLen
	}
	flush()

	// A short whole document must still produce one chunk; otherwise
	// fragments under minChars are dropped.
	if len(chunks) == 1 {
		return chunks
	}
	kept := chunks[:0]
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Text) >= minChars {
			kept = append(kept, c)
		}
	}
	return kept
}
