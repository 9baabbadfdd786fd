package segmenter

import (
	"regexp"
	"strings"
)

// Segmenter splits raw input text into cleaned candidate sentences. Sentences
// shorter than the minimum length are dropped as noise (headings, stray
// numbers, citation fragments).
type Segmenter struct {
	minLength int
}

func New(minLength int) *Segmenter {
	if minLength <= 0 {
		minLength = 10
	}
	return &Segmenter{minLength: minLength}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Sentence boundary: terminator followed by whitespace and an upper-case
	// letter, opening quote, or digit. Decimal points and common
	// abbreviations like "e.g." do not match because no space follows.
	boundaryRe = regexp.MustCompile(`([.!?])\s+(["'A-Z0-9])`)
)

// Segment splits text into cleaned sentences of at least the minimum length.
func (s *Segmenter) Segment(text string) []string {
	marked := boundaryRe.ReplaceAllString(text, "$1\x00$2")

	var sentences []string
	for _, part := range strings.Split(marked, "\x00") {
		cleaned := clean(part)
		if len(cleaned) >= s.minLength {
			sentences = append(sentences, cleaned)
		}
	}
	return sentences
}

func clean(sentence string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(sentence), " ")
}
