package text

import (
	"regexp"
	"strings"
)

var (
	blankRunRe   = regexp.MustCompile(`\n\s*\n`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`([.!?])\s+`)
)

// Clean normalizes submitted content: blank-line runs collapse to a single
// break, whitespace runs collapse to one space, surrounding space is trimmed.
func Clean(s string) string {
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Sentences splits text after terminal punctuation followed by whitespace.
func Sentences(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	split := sentenceRe.ReplaceAllString(s, "$1\x00")
	parts := strings.Split(split, "\x00")
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// ExtractiveSummary is the degraded summarization path used when the
// completion service is unavailable: the first min(5, n/3) sentences when the
// text has more than five, otherwise the text verbatim.
func ExtractiveSummary(s string) string {
	sentences := Sentences(s)
	if len(sentences) <= 5 {
		return s
	}
	n := len(sentences) / 3
	if n > 5 {
		n = 5
	}
	return strings.Join(sentences[:n], " ")
}
