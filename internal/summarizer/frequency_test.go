package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clustalDescription = "A widely-used multiple sequence alignment (MSA) program that efficiently aligns three or more protein or nucleic acid (DNA/RNA) sequences. " +
	"Clustal Omega is known for its speed, accuracy, and ability to handle large datasets, producing biologically meaningful alignments even for divergent sequences. " +
	"These alignments are crucial for phylogenetic analysis, identifying conserved motifs and domains, and informing protein structure and function prediction."

func TestSummarize_ShortTextUnchanged(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("  Parses FASTA files (e.g. GenBank). Fast.  ", 2)
	require.NoError(t, err)
	assert.Equal(t, "Parses FASTA files (e.g. GenBank). Fast.", out)
}

func TestSummarize_KeepsOriginalOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize(clustalDescription, 2)
	require.NoError(t, err)

	sentences := splitSentences(out)
	require.Len(t, sentences, 2)
	for _, sent := range sentences {
		assert.Contains(t, clustalDescription, sent)
	}
	assert.Less(t, strings.Index(clustalDescription, sentences[0]), strings.Index(clustalDescription, sentences[1]))
}

func TestSummarize_Deterministic(t *testing.T) {
	s := NewFrequencySummarizer()
	a, _ := s.Summarize(clustalDescription, 1)
	b, _ := s.Summarize(clustalDescription, 1)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Reads BAM files, e.g. from Illumina runs. Writes VCF! No trailing stop")
	assert.Equal(t, []string{
		"Reads BAM files, e.g. from Illumina runs.",
		"Writes VCF!",
		"No trailing stop",
	}, got)
}
