package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

func TestValidatorChecks(t *testing.T) {
	v := Validator{Rubric: DefaultRubric(20)}
	valid := models.CompetencyScore{
		Competency:  3,
		Points:      160,
		Rationale:   "Argumentos consistentes.",
		Strengths:   []string{"projeto de texto"},
		Weaknesses:  []string{"autoria"},
		Suggestions: []string{"aprofunde o segundo argumento"},
	}
	require.NoError(t, v.Validate(valid))

	tests := []struct {
		name   string
		mutate func(*models.CompetencyScore)
		check  Check
	}{
		{"off grid", func(s *models.CompetencyScore) { s.Points = 150 }, CheckBounds},
		{"above max", func(s *models.CompetencyScore) { s.Points = 220 }, CheckBounds},
		{"empty rationale", func(s *models.CompetencyScore) { s.Rationale = "  " }, CheckRationale},
		{"overlap", func(s *models.CompetencyScore) { s.Weaknesses = append(s.Weaknesses, "projeto de texto") }, CheckDisjoint},
		{"no suggestions", func(s *models.CompetencyScore) { s.Suggestions = nil }, CheckSuggestions},
		{"bounds checked first", func(s *models.CompetencyScore) {
			s.Points = -20
			s.Rationale = ""
			s.Suggestions = nil
		}, CheckBounds},
		{"rationale before suggestions", func(s *models.CompetencyScore) {
			s.Rationale = ""
			s.Suggestions = nil
		}, CheckRationale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.Weaknesses = append([]string(nil), valid.Weaknesses...)
			tt.mutate(&s)
			err := v.Validate(s)
			require.ErrorIs(t, err, ErrValidationFailed)
			var vf *ValidationFailedError
			require.ErrorAs(t, err, &vf)
			assert.Equal(t, tt.check, vf.Check)
			assert.Equal(t, 3, vf.Competency)
			assert.Equal(t, tt.check == CheckSuggestions, needsSuggestions(err))
		})
	}
}

func TestValidatorMaxNeedsNoSuggestions(t *testing.T) {
	v := Validator{Rubric: DefaultRubric(20)}
	assert.NoError(t, v.Validate(models.CompetencyScore{Competency: 1, Points: 200, Rationale: "Excelente."}))
}
