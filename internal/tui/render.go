// Package tui renders query results for the terminal.
package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"biorag/internal/domain"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("10"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// Hits renders retrieved tools, highlighting the description sentence that
// best overlaps the question.
func Hits(question string, tools []domain.RetrievedTool) string {
	if len(tools) == 0 {
		return dimStyle.Render("No matching tools found.")
	}
	blocks := make([]string, len(tools))
	for i, t := range tools {
		title := headerStyle.Render(fmt.Sprintf("[%d] %s", i+1, t.Name)) + dimStyle.Render(fmt.Sprintf("  score=%.3f", t.Score))
		url := t.URL
		if url == "" {
			url = "no homepage"
		}
		body := title + "\n" + dimStyle.Render(url) + "\n\n" + highlightBestSentence(t.Description, question)
		blocks[i] = resultBoxStyle.Render(body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// Answer renders a synthesized answer followed by the tools it drew on.
func Answer(question, answer string, tools []domain.RetrievedTool) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Q: " + question))
	b.WriteString("\n")
	b.WriteString(answerBoxStyle.Render(answer))
	if len(tools) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Sources"))
		for _, t := range tools {
			b.WriteString("\n  ")
			fmt.Fprintf(&b, "%s %s", t.Name, dimStyle.Render(fmt.Sprintf("(%.2f) %s", t.Score, t.URL)))
		}
	}
	return b.String()
}

// Status renders a one-line summary such as an ingestion report.
func Status(line string) string {
	return statusStyle.Render(line)
}

func highlightBestSentence(text, query string) string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	best := bestSentence(sentences, query)
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == best {
			sent = highlightStyle.Render(sent)
		}
		sentences[i] = sent
	}
	return strings.Join(sentences, " ")
}

// bestSentence returns the index of the sentence sharing the most distinct
// words with query, or -1 when nothing overlaps.
func bestSentence(sentences []string, query string) int {
	qTokens := toTokenSet(query)
	best, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := map[string]struct{}{}
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
