package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
	// abbreviations must not end a sentence
	abbreviations = strings.NewReplacer("e.g.", "e․g․", "i.e.", "i․e․", "et al.", "et al․")
	restore       = strings.NewReplacer("․", ".")
)

// FrequencySummarizer keeps the sentences whose non-stopword terms are most
// frequent across the text.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}[\p{L}\p{N}]*(?:['’-][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Summarize returns at most maxSentences sentences of text, in their original
// order. Text that is already short enough is returned trimmed but otherwise
// unchanged.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	text = strings.TrimSpace(text)
	sentences := splitSentences(text)
	if len(sentences) <= maxSentences {
		return text, nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		sum := 0.0
		for _, tok := range toks {
			sum += freq[tok] / maxF
		}
		if len(toks) > 0 {
			sum /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func splitSentences(text string) []string {
	var out []string
	for _, m := range sentencePattern.FindAllString(abbreviations.Replace(text), -1) {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, restore.Replace(m))
		}
	}
	return out
}

func (s *FrequencySummarizer) tokens(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"its", "also", "which", "such", "e", "g", "i",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
