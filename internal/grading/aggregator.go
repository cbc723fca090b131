package grading

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// priorityThreshold marks competencies whose first suggestion becomes a report priority.
const priorityThreshold = 160

var levelBands = []struct {
	min        int
	level      string
	conclusion string
}{
	{800, "excelente", "A redação demonstra excelente domínio das competências avaliadas no ENEM. Continue praticando para manter a consistência."},
	{600, "bom", "A redação apresenta bom desempenho, com pontos específicos a aprimorar para alcançar as faixas mais altas."},
	{400, "médio", "A redação atende parcialmente às competências; revise os pontos fracos indicados em cada uma delas."},
	{0, "insuficiente", "A redação ainda não atende às exigências do ENEM; priorize as sugestões de cada competência e pratique a estrutura dissertativo-argumentativa."},
}

// Aggregator combines five validated scores into a report.
type Aggregator struct {
	Rubric Rubric
}

// Aggregate sums and orders the scores. The input slice is not modified.
func (a Aggregator) Aggregate(scores []models.CompetencyScore, adherence models.ThemeAdherence) (models.EssayReport, error) {
	seen := make(map[int]bool, len(scores))
	for _, s := range scores {
		if seen[s.Competency] {
			return models.EssayReport{}, &StageError{Stage: StageAggregation, Competency: s.Competency, Err: ErrDuplicateCompetency}
		}
		seen[s.Competency] = true
	}
	var missing []string
	for id := 1; id <= models.CompetencyCount; id++ {
		if !seen[id] {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 || len(scores) != models.CompetencyCount {
		return models.EssayReport{}, &StageError{Stage: StageAggregation, Err: fmt.Errorf("%w: missing competencies [%s], got %d scores",
			ErrIncompleteReport, strings.Join(missing, ","), len(scores))}
	}

	ordered := make([]models.CompetencyScore, len(scores))
	copy(ordered, scores)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Competency < ordered[j].Competency })

	total := 0
	for _, s := range ordered {
		total += s.Points
	}

	return models.EssayReport{
		Total:        total,
		Competencies: ordered,
		Adherence:    adherence,
		Summary:      a.summarize(ordered, total, adherence),
	}, nil
}

func (a Aggregator) summarize(ordered []models.CompetencyScore, total int, adherence models.ThemeAdherence) models.ReportSummary {
	strongest, weakest := ordered[0], ordered[0]
	for _, s := range ordered[1:] {
		if s.Points > strongest.Points {
			strongest = s
		}
		if s.Points < weakest.Points {
			weakest = s
		}
	}

	band := levelBands[len(levelBands)-1]
	for _, b := range levelBands {
		if total >= b.min {
			band = b
			break
		}
	}

	low := make([]models.CompetencyScore, 0, len(ordered))
	for _, s := range ordered {
		if s.Points < priorityThreshold && len(s.Suggestions) > 0 {
			low = append(low, s)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Points < low[j].Points })
	priorities := make([]string, 0, len(low))
	for _, s := range low {
		priorities = append(priorities, fmt.Sprintf("Competência %d (%s): %s", s.Competency, a.name(s), s.Suggestions[0]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Pontuação total: %d/%d (nível %s). ", total, a.Rubric.Max*models.CompetencyCount, band.level)
	fmt.Fprintf(&sb, "Ponto mais forte: Competência %d - %s (%d pontos). ", strongest.Competency, a.name(strongest), strongest.Points)
	fmt.Fprintf(&sb, "Ponto a desenvolver: Competência %d - %s (%d pontos).", weakest.Competency, a.name(weakest), weakest.Points)
	if adherence.Verdict != "" && !adherence.Adheres {
		fmt.Fprintf(&sb, " Adequação ao tema: %s.", adherence.Verdict)
	}

	return models.ReportSummary{
		Text:       sb.String(),
		Level:      band.level,
		Conclusion: band.conclusion,
		Strongest:  strongest.Competency,
		Weakest:    weakest.Competency,
		Priorities: priorities,
	}
}

func (a Aggregator) name(s models.CompetencyScore) string {
	if s.Name != "" {
		return s.Name
	}
	c, _ := a.Rubric.Criterion(s.Competency)
	return c.Name
}
