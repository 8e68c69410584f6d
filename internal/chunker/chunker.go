package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrInvalidParams reports chunking parameters that cannot produce a valid
// chunk sequence.
var ErrInvalidParams = fmt.Errorf("chunker: invalid parameters")

// Splitter cuts document text into overlapping chunks sized for embedding.
// Sizes and the overlap are counted in runes.
type Splitter struct {
	chunkSize        int
	overlap          int
	sentenceBoundary bool
}

// boundary matches a sentence terminator followed by whitespace. Sentences are
// cut after the terminator; the whitespace is discarded.
var boundary = regexp.MustCompile(`[.!?]\s+`)

// New validates the parameters and returns a Splitter. overlap must be
// non-negative and strictly smaller than chunkSize.
func New(chunkSize, overlap int, sentenceBoundary bool) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidParams, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d with chunk size %d", ErrInvalidParams, overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap, sentenceBoundary: sentenceBoundary}, nil
}

// Split returns the chunk sequence for text. Whitespace-only input yields an
// empty sequence; no returned chunk is empty.
func (s *Splitter) Split(text string) []string {
	if !s.sentenceBoundary {
		return s.fixedWidth(text)
	}
	return s.sentenceAware(text)
}

// fixedWidth slides a chunkSize window over the text, advancing by
// chunkSize-overlap until the window reaches the end.
func (s *Splitter) fixedWidth(text string) []string {
	runes := []rune(text)
	step := s.chunkSize - s.overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// sentenceAware accumulates whole sentences up to chunkSize, then applies the
// overlap post-pass. A single sentence longer than chunkSize is kept intact.
func (s *Splitter) sentenceAware(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0
	for _, sent := range sentences {
		sentLen := utf8.RuneCountInString(sent) + 1 // one separator per sentence
		if currentLen+sentLen <= s.chunkSize {
			current = append(current, sent)
			currentLen += sentLen
			continue
		}
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
		current = []string{sent}
		currentLen = sentLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	if s.overlap == 0 || len(chunks) < 2 {
		return chunks
	}

	// Stitch each chunk after the first with the tail of its already-rewritten
	// predecessor. Compounding against the rewritten chunk, not the original,
	// keeps the overlap from growing across the sequence.
	out := make([]string, 0, len(chunks))
	out = append(out, chunks[0])
	for i := 1; i < len(chunks); i++ {
		prev := []rune(out[i-1])
		if len(prev) > s.overlap {
			out = append(out, string(prev[len(prev)-s.overlap:])+" "+chunks[i])
		} else {
			out = append(out, string(prev)+" "+chunks[i])
		}
	}
	return out
}

// splitSentences cuts text after `.`, `!` or `?` followed by whitespace. Text
// without a terminator is returned as a single sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sentences []string
	prev := 0
	for _, m := range boundary.FindAllStringIndex(text, -1) {
		if sent := strings.TrimSpace(text[prev : m[0]+1]); sent != "" {
			sentences = append(sentences, sent)
		}
		prev = m[1]
	}
	if tail := strings.TrimSpace(text[prev:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
