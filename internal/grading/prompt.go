package grading

import (
	"fmt"
	"strings"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/utils"
)

// Submission is the immutable input shared by every evaluator of a run.
type Submission struct {
	Theme    string
	Essay    string
	Context  models.AssembledContext
	Analysis utils.EssayAnalysis
}

const suggestionsInstruction = "ATENÇÃO: a nota atribuída é inferior a 200, portanto a lista \"sugestoes\" deve conter ao menos uma sugestão concreta de melhoria."

// essayTokenBudget bounds the essay part of every prompt.
const essayTokenBudget = 3000

// orderForCategory puts passages of the given category first, keeping relevance order otherwise.
func orderForCategory(ps []models.RetrievedPassage, category string) []models.RetrievedPassage {
	out := make([]models.RetrievedPassage, 0, len(ps))
	for _, p := range ps {
		if p.Category == category {
			out = append(out, p)
		}
	}
	for _, p := range ps {
		if p.Category != category {
			out = append(out, p)
		}
	}
	return out
}

func writePassages(sb *strings.Builder, ps []models.RetrievedPassage) {
	if len(ps) == 0 {
		sb.WriteString("(nenhum material de referência disponível; avalie apenas com base nos critérios)\n")
		return
	}
	for i, p := range ps {
		fmt.Fprintf(sb, "[%d] fonte: %s (relevância %.2f)\n%s\n\n", i+1, p.Source, p.Relevance, p.Text)
	}
}

// CompetencyPrompt builds the prompt for one competency.
func CompetencyPrompt(r Rubric, c Criterion, sub Submission, extra string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Competência %d: %s\n\n", c.ID, c.Name)
	fmt.Fprintf(&sb, "Você é um avaliador de redações do ENEM. Avalie SOMENTE este critério.\n\nCritério:\n%s\n\n", c.Description)

	sb.WriteString("Material de referência:\n")
	writePassages(&sb, orderForCategory(sub.Context.Passages, c.Category))

	fmt.Fprintf(&sb, "Tema: %s\n\n", sub.Theme)
	fmt.Fprintf(&sb, "Redação:\n%s\n\n", utils.FitEssay(sub.Essay, essayTokenBudget))

	a := sub.Analysis
	switch c.ID {
	case 1:
		fmt.Fprintf(&sb, "Estatísticas do texto: %d palavras, %d frases, %d parágrafos.\n\n",
			a.Stats.Words, a.Stats.Sentences, a.Stats.Paragraphs)
	case 2:
		if len(a.Repertoire) > 0 {
			fmt.Fprintf(&sb, "Possíveis repertórios detectados:\n- %s\n\n", strings.Join(a.Repertoire, "\n- "))
		}
	case 3:
		if a.Development != "" {
			fmt.Fprintf(&sb, "Desenvolvimento (foco da análise):\n%s\n\n", a.Development)
		}
	case 4:
		fmt.Fprintf(&sb, "O texto possui %d parágrafos; observe os conectivos entre e dentro deles.\n\n", a.Stats.Paragraphs)
	case 5:
		if a.Conclusion != "" {
			fmt.Fprintf(&sb, "Conclusão:\n%s\n\nProposta de intervenção identificada:\n%s\n\n", a.Conclusion, a.Proposal)
		}
	}

	fmt.Fprintf(&sb, `A pontuação deve ser um valor entre 0 e %d, em múltiplos de %d.
Pontos fortes e pontos fracos não podem repetir o mesmo item.
Se a nota for menor que %d, inclua ao menos uma sugestão de melhoria.

Formato obrigatório da resposta (JSON):
{
  "competencia": %d,
  "pontuacao": <número>,
  "analise": "análise detalhada",
  "pontos_fortes": ["..."],
  "pontos_fracos": ["..."],
  "sugestoes": ["..."]
}

Responda APENAS com o JSON, sem texto adicional ou formatação markdown.`, r.Max, r.Step, r.Max, c.ID)

	if extra != "" {
		sb.WriteString("\n\n")
		sb.WriteString(extra)
	}
	return sb.String()
}

// AdherencePrompt builds the dedicated theme adherence check.
func AdherencePrompt(sub Submission) string {
	var sb strings.Builder
	sb.WriteString("Verifique a adequação da redação ao tema proposto, segundo os critérios do ENEM.\n\n")
	sb.WriteString("Material de referência:\n")
	writePassages(&sb, sub.Context.Passages)
	fmt.Fprintf(&sb, "Tema: %s\n\nRedação:\n%s\n\n", sub.Theme, utils.FitEssay(sub.Essay, essayTokenBudget))
	sb.WriteString(`Classifique como "Adequada" (aborda o tema), "Tangenciamento" (aborda o assunto geral sem o recorte proposto) ou "Fuga ao tema" (não aborda o tema).

Formato obrigatório da resposta (JSON):
{
  "adequacao": "Adequada|Tangenciamento|Fuga ao tema",
  "justificativa": "explicação",
  "recomendacoes": ["..."]
}

Responda APENAS com o JSON, sem texto adicional ou formatação markdown.`)
	return sb.String()
}
