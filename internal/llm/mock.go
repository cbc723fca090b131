package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MockBackend answers locally with well-formed JSON, for offline runs and demos.
// Scores depend only on the prompt, so results are reproducible.
type MockBackend struct{}

func (MockBackend) Name() string { return "mock" }

var mockCompetencyRe = regexp.MustCompile(`Competência (\d)`)

func (MockBackend) Generate(ctx context.Context, prompt string, _ GenerateConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case strings.Contains(prompt, `"adequacao"`):
		return `{"adequacao": "Adequada", "justificativa": "O texto discute o tema proposto.", "recomendacoes": []}`, nil
	case strings.Contains(prompt, `"introducao"`):
		return `{"introducao": "Apresente o problema e a tese.", "desenvolvimento": ["Causa principal com repertório.", "Consequência com dados."], "conclusao": "Proposta de intervenção com agente, ação, meio, finalidade e detalhamento.", "repertorios": ["Constituição Federal de 1988"]}`, nil
	case strings.Contains(prompt, `"repertorios_identificados"`):
		return `{"repertorios_identificados": [], "avaliacao": "Repertório pouco explorado.", "sugestoes": ["Cite uma lei, um dado ou um pensador pertinente."]}`, nil
	}

	id := 0
	if m := mockCompetencyRe.FindStringSubmatch(prompt); m != nil {
		id, _ = strconv.Atoi(m[1])
	}
	// Longer prompts, i.e. longer essays, score a little higher.
	points := 120 + 20*((utf8.RuneCountInString(prompt)/800+id)%4)
	return fmt.Sprintf(`{"competencia": %d, "pontuacao": %d, "analise": "Avaliação automática da competência %d.", "pontos_fortes": ["Estrutura reconhecível"], "pontos_fracos": ["Aprofundamento limitado"], "sugestoes": ["Desenvolva melhor os argumentos da competência %d."]}`,
		id, points, id, id), nil
}
