package service

import (
	"fmt"
	"strings"

	"biorag/internal/domain"
)

const promptTemplate = `You are a bioinformatics expert assistant. A user has asked about bioinformatics tools.

User Query: %s

Based on my search, here are the most relevant tools from our database:

%s

Please provide a helpful, concise answer that:
1. Directly addresses the user's query
2. Recommends the most relevant tool(s) from the search results above only; do not suggest tools that are not listed
3. Briefly explains why each recommended tool is suitable
4. Mentions the tool's key features that relate to the user's needs
5. Provides the URL for easy access

If none of the listed tools fit, say so plainly.
Keep your response friendly, informative, and focused on the user's specific needs.`

const noResults = "(no matching tools were found in the database)"

// FormatContext renders retrieved tools as the prompt's context block.
func FormatContext(tools []domain.RetrievedTool) string {
	if len(tools) == 0 {
		return noResults
	}
	blocks := make([]string, len(tools))
	for i, t := range tools {
		url := t.URL
		if url == "" {
			url = "No URL"
		}
		blocks[i] = fmt.Sprintf("Tool: %s\nDescription: %s\nURL: %s\nRelevance Score: %.2f",
			t.Name, t.Description, url, t.Score)
	}
	return strings.Join(blocks, "\n\n")
}

// BuildPrompt combines the fixed instructions, the question and the context.
func BuildPrompt(question string, tools []domain.RetrievedTool) string {
	return fmt.Sprintf(promptTemplate, question, FormatContext(tools))
}
