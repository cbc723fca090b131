// Package report renders essay reports for people: Markdown for terminals and HTML for browsers.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// Markdown renders r as a Markdown document in Portuguese.
func Markdown(r models.EssayReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Correção: %d/1000\n\n", r.Total)
	fmt.Fprintf(&sb, "**Tema:** %s\n\n", r.Theme)
	if r.Summary.Level != "" {
		fmt.Fprintf(&sb, "**Nível:** %s\n\n", r.Summary.Level)
	}

	sb.WriteString("| Competência | Nota |\n|---|---:|\n")
	for _, c := range r.Competencies {
		fmt.Fprintf(&sb, "| %d. %s | %d/%d |\n", c.Competency, escapeCell(c.Name), c.Points, models.MaxCompetencyPoints)
	}
	fmt.Fprintf(&sb, "| **Total** | **%d/1000** |\n\n", r.Total)

	if r.Adherence.Verdict != "" {
		fmt.Fprintf(&sb, "## Adequação ao tema: %s\n\n", r.Adherence.Verdict)
		if r.Adherence.Rationale != "" {
			sb.WriteString(r.Adherence.Rationale + "\n\n")
		}
		bullets(&sb, r.Adherence.Recommendations)
	}

	for _, c := range r.Competencies {
		fmt.Fprintf(&sb, "## Competência %d: %s (%d)\n\n", c.Competency, c.Name, c.Points)
		if c.Rationale != "" {
			sb.WriteString(c.Rationale + "\n\n")
		}
		section(&sb, "Pontos fortes", c.Strengths)
		section(&sb, "Pontos a melhorar", c.Weaknesses)
		section(&sb, "Sugestões", c.Suggestions)
		section(&sb, "Correções", c.Corrections)
	}

	sb.WriteString("## Resumo\n\n")
	if r.Summary.Text != "" {
		sb.WriteString(r.Summary.Text + "\n\n")
	}
	section(&sb, "Prioridades", r.Summary.Priorities)
	if r.Summary.Conclusion != "" {
		sb.WriteString(r.Summary.Conclusion + "\n\n")
	}

	if r.Stats.Words > 0 {
		fmt.Fprintf(&sb, "_%d palavras, %d frases, %d parágrafos._\n", r.Stats.Words, r.Stats.Sentences, r.Stats.Paragraphs)
	}
	if !r.Grounded {
		sb.WriteString("\n> Avaliação feita sem material de referência.\n")
	}
	return sb.String()
}

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders r as an HTML fragment.
func HTML(r models.EssayReport) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func section(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "**%s**\n\n", title)
	bullets(sb, items)
}

func bullets(sb *strings.Builder, items []string) {
	if len(items) == 0 {
		return
	}
	for _, it := range items {
		sb.WriteString("- " + it + "\n")
	}
	sb.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
