package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"biorag/internal/domain"
)

func TestFormatContext(t *testing.T) {
	got := FormatContext([]domain.RetrievedTool{
		{Name: "BioPython", Description: "Python tools for biology.", URL: "https://biopython.org/", Score: 0.8734},
		{Name: "Galaxy", Description: "Workflow platform.", Score: 0.5},
	})
	assert.Equal(t, "Tool: BioPython\nDescription: Python tools for biology.\nURL: https://biopython.org/\nRelevance Score: 0.87\n\n"+
		"Tool: Galaxy\nDescription: Workflow platform.\nURL: No URL\nRelevance Score: 0.50", got)
}

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, noResults, FormatContext(nil))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Which tool aligns reads?", []domain.RetrievedTool{{Name: "BWA", Description: "Short read aligner."}})
	assert.True(t, strings.HasPrefix(prompt, "You are a bioinformatics expert assistant."))
	assert.Contains(t, prompt, "User Query: Which tool aligns reads?")
	assert.Contains(t, prompt, "Tool: BWA")
	assert.Contains(t, prompt, "do not suggest tools that are not listed")
}
