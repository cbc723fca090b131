package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

func scoresOf(points ...int) []models.CompetencyScore {
	out := make([]models.CompetencyScore, 0, len(points))
	for i, p := range points {
		s := models.CompetencyScore{Competency: i + 1, Points: p, Rationale: "ok"}
		if p < 200 {
			s.Suggestions = []string{"melhore a competência " + string(rune('1'+i))}
		}
		out = append(out, s)
	}
	return out
}

func TestAggregateOrdersAndSums(t *testing.T) {
	scores := scoresOf(180, 160, 200, 140, 120)
	shuffled := []models.CompetencyScore{scores[4], scores[2], scores[0], scores[3], scores[1]}

	report, err := Aggregator{Rubric: DefaultRubric(20)}.Aggregate(shuffled, models.ThemeAdherence{Adheres: true, Verdict: models.VerdictAdequate})
	require.NoError(t, err)
	assert.Equal(t, 800, report.Total)
	for i, c := range report.Competencies {
		assert.Equal(t, i+1, c.Competency)
	}
	assert.Equal(t, 5, shuffled[0].Competency, "input must not be reordered")

	assert.Equal(t, []string{
		"Competência 5 (Proposta de intervenção): melhore a competência 5",
		"Competência 4 (Coesão textual): melhore a competência 4",
	}, report.Summary.Priorities)
	assert.Contains(t, report.Summary.Text, "800/1000")
	assert.NotContains(t, report.Summary.Text, "Adequação ao tema")
}

func TestAggregateLevels(t *testing.T) {
	tests := []struct {
		points []int
		level  string
	}{
		{[]int{200, 200, 200, 200, 200}, "excelente"},
		{[]int{160, 160, 160, 120, 0}, "bom"},
		{[]int{80, 80, 80, 80, 80}, "médio"},
		{[]int{80, 80, 80, 80, 60}, "insuficiente"},
	}
	for _, tt := range tests {
		report, err := Aggregator{Rubric: DefaultRubric(20)}.Aggregate(scoresOf(tt.points...), models.ThemeAdherence{})
		require.NoError(t, err)
		assert.Equal(t, tt.level, report.Summary.Level, "points %v", tt.points)
	}
}

func TestAggregateTiesResolveToLowestID(t *testing.T) {
	report, err := Aggregator{Rubric: DefaultRubric(20)}.Aggregate(scoresOf(120, 160, 160, 120, 140), models.ThemeAdherence{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Strongest)
	assert.Equal(t, 1, report.Summary.Weakest)
}

func TestAggregateDuplicate(t *testing.T) {
	scores := scoresOf(180, 160, 200, 140, 120)
	scores[4].Competency = 2
	_, err := Aggregator{Rubric: DefaultRubric(20)}.Aggregate(scores, models.ThemeAdherence{})
	require.ErrorIs(t, err, ErrDuplicateCompetency)
	stage, competency := StageOf(err)
	assert.Equal(t, StageAggregation, stage)
	assert.Equal(t, 2, competency)
	assert.Equal(t, KindInternal, FailureKindOf(err))
}

func TestAggregateIncomplete(t *testing.T) {
	for _, scores := range [][]models.CompetencyScore{
		nil,
		scoresOf(180, 160, 200, 140),
		append(scoresOf(180, 160, 200, 140, 120), models.CompetencyScore{Competency: 6}),
	} {
		_, err := Aggregator{Rubric: DefaultRubric(20)}.Aggregate(scores, models.ThemeAdherence{})
		assert.ErrorIs(t, err, ErrIncompleteReport)
	}
}
