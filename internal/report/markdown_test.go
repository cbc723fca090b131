package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

func sampleReport() models.EssayReport {
	return models.EssayReport{
		Theme: "Desafios da mobilidade urbana no Brasil",
		Total: 680,
		Competencies: []models.CompetencyScore{
			{Competency: 1, Name: "Norma culta", Points: 160, Rationale: "Poucos desvios.", Suggestions: []string{"Revise a concordância."}},
			{Competency: 2, Name: "Compreensão do tema", Points: 160, Rationale: "Tema compreendido."},
			{Competency: 3, Name: "Argumentação", Points: 120, Rationale: "Argumentos previsíveis.", Strengths: []string{"Tese clara"}},
			{Competency: 4, Name: "Coesão | conectivos", Points: 120, Rationale: "Conectivos repetidos."},
			{Competency: 5, Name: "Proposta de intervenção", Points: 120, Rationale: "Faltam meio e detalhamento."},
		},
		Adherence: models.ThemeAdherence{Adheres: true, Verdict: models.VerdictAdequate, Rationale: "Discute o tema."},
		Summary:   models.ReportSummary{Text: "Nota 680/1000.", Level: "médio", Priorities: []string{"Competência 5: detalhe a proposta."}},
		Stats:     models.TextStats{Words: 320, Sentences: 14, Paragraphs: 4},
		Grounded:  true,
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	assert.True(t, strings.HasPrefix(md, "# Correção: 680/1000\n"))
	assert.Contains(t, md, "| 1. Norma culta | 160/200 |")
	assert.Contains(t, md, `| 4. Coesão \| conectivos | 120/200 |`)
	assert.Contains(t, md, "## Adequação ao tema: Adequada")
	assert.Contains(t, md, "**Sugestões**\n\n- Revise a concordância.\n")
	assert.Contains(t, md, "**Pontos fortes**\n\n- Tese clara\n")
	assert.Contains(t, md, "- Competência 5: detalhe a proposta.")
	assert.Contains(t, md, "_320 palavras, 14 frases, 4 parágrafos._")
	assert.NotContains(t, md, "sem material de referência")
	assert.NotContains(t, md, "**Correções**")

	// competencies keep report order
	assert.Less(t, strings.Index(md, "## Competência 1"), strings.Index(md, "## Competência 5"))
}

func TestMarkdownUngrounded(t *testing.T) {
	r := sampleReport()
	r.Grounded = false
	assert.Contains(t, Markdown(r), "Avaliação feita sem material de referência.")
}

func TestHTML(t *testing.T) {
	html, err := HTML(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<h1>Correção: 680/1000</h1>")
	assert.Contains(t, html, "<li>Revise a concordância.</li>")
}
