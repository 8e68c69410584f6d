package summarizer

import (
	"regexp"
	"sort"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// Frequency ranks sentences by normalized token frequency and returns the
// top-ranked ones in document order. It is used to log a short digest of
// each ingested document.
type Frequency struct {
	stopwords map[string]struct{}
}

func NewFrequency() *Frequency {
	return &Frequency{stopwords: stopwordSet()}
}

// Summarize returns at most maxSentences sentences from text, chosen by
// frequency score, preserving their original order.
func (f *Frequency) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	tokenized := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		toks := tokenPattern.FindAllString(strings.ToLower(sent), -1)
		tokenized[i] = toks
		for _, tok := range toks {
			if _, skip := f.stopwords[tok]; !skip {
				freq[tok]++
			}
		}
	}
	var peak float64
	for _, n := range freq {
		if n > peak {
			peak = n
		}
	}

	type ranked struct {
		idx   int
		score float64
	}
	order := make([]ranked, len(sentences))
	for i, toks := range tokenized {
		var score float64
		for _, tok := range toks {
			score += freq[tok]
		}
		if peak > 0 && len(toks) > 0 {
			score /= peak * float64(len(toks))
		}
		order[i] = ranked{i, score}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].score > order[j].score })

	if maxSentences > len(order) {
		maxSentences = len(order)
	}
	keep := make([]int, maxSentences)
	for i := range keep {
		keep[i] = order[i].idx
	}
	sort.Ints(keep)

	parts := make([]string, 0, len(keep))
	for _, idx := range keep {
		parts = append(parts, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(parts, " "), nil
}

func stopwordSet() map[string]struct{} {
	words := strings.Fields("a an the and or but if for to of in on at by with as is are was were be been it this that these those from so such into about than too very can will just not no")
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
