package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/report"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	badgeStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
)

var reportMarkdown = report.Markdown

// header is the one-glance summary printed above the full report.
func header(r models.EssayReport) string {
	title := titleStyle.Render(" Redação ENEM ")
	total := badgeStyle.Render(fmt.Sprintf("%d/1000", r.Total))
	line := lipgloss.JoinHorizontal(lipgloss.Center, title, " ", total)

	meta := mutedStyle.Render(fmt.Sprintf("%s · %s · %s", r.Provider, r.Model, r.ID))
	parts := []string{line, meta}
	if r.Adherence.Verdict != "" && !r.Adherence.Adheres {
		parts = append(parts, warnStyle.Render("⚠ "+r.Adherence.Verdict))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderMarkdown prints md styled for the terminal, or as plain text when styling fails.
func renderMarkdown(w io.Writer, md string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		var out string
		if out, err = renderer.Render(md); err == nil {
			_, err = io.WriteString(w, out)
			return err
		}
	}
	logger.Debug("markdown rendering failed, printing plain text")
	_, err = io.WriteString(w, md)
	return err
}
