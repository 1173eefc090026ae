package text

import (
	"regexp"
	"strings"
)

// DefaultMaxChunkSize matches the ingestion service's per-item size limit.
const DefaultMaxChunkSize = 5000

var paragraphRe = regexp.MustCompile(`\n\n+`)

// SplitChunks slices text into chunks no larger than maxSize characters,
// splitting on paragraph boundaries first and falling back to sentences when
// a single paragraph exceeds the limit. A lone sentence longer than maxSize
// becomes its own oversized chunk rather than being cut mid-sentence.
// Rejoining the chunks with blank-line separators reproduces the input up to
// whitespace normalization.
func SplitChunks(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}

	paragraphs := paragraphRe.Split(text, -1)
	var chunks []string
	var current strings.Builder

	flush := func() {
		if c := strings.TrimSpace(current.String()); c != "" {
			chunks = append(chunks, c)
		}
		current.Reset()
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(para) > maxSize {
			// Oversized paragraph: flush what we have and pack sentences.
			flush()
			chunks = append(chunks, splitSentenceChunks(para, maxSize)...)
			continue
		}

		if current.Len()+len(para)+2 > maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

func splitSentenceChunks(text string, maxSize int) []string {
	sentences := Sentences(text)
	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len()+len(sentence)+1 > maxSize && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}
