package grading

import (
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

const offTopicSuggestion = "Revisar compreensão do tema proposto."

// offTopicScores is the zero report given to an essay that escapes the theme.
func offTopicScores(r Rubric, adherence models.ThemeAdherence) []models.CompetencyScore {
	rationale := "Fuga ao tema"
	if adherence.Rationale != "" {
		rationale += ": " + adherence.Rationale
	}
	scores := make([]models.CompetencyScore, 0, models.CompetencyCount)
	for _, c := range r.Criteria {
		scores = append(scores, models.CompetencyScore{
			Competency:  c.ID,
			Name:        c.Name,
			Points:      0,
			Rationale:   rationale,
			Strengths:   []string{},
			Weaknesses:  []string{"Fuga ao tema"},
			Suggestions: []string{offTopicSuggestion},
		})
	}
	return scores
}

// adherenceFromCompetency2 derives theme adherence from the theme comprehension score.
func adherenceFromCompetency2(s models.CompetencyScore) models.ThemeAdherence {
	a := models.ThemeAdherence{Rationale: s.Rationale}
	switch {
	case s.Points == 0:
		a.Verdict = models.VerdictOffTopic
	case s.Points <= 40:
		a.Verdict = models.VerdictTangential
	default:
		a.Verdict = models.VerdictAdequate
		a.Adheres = true
	}
	if !a.Adheres {
		a.Recommendations = s.Suggestions
	}
	return a
}
