package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

func TestParseCompetencyTolerance(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		points int
	}{
		{"plain", `{"pontuacao": 160, "analise": "ok"}`, 160},
		{"fenced", "```json\n{\"pontuacao\": 120, \"analise\": \"ok\"}\n```", 120},
		{"prose around", "Segue a avaliação:\n{\"nota\": 80, \"justificativa\": \"ok\"}\nEspero ter ajudado.", 80},
		{"fraction string", `{"pontuacao": "160/200", "analise": "ok"}`, 160},
		{"decimal comma", `{"pontuação": "139,6 pontos", "análise": "ok"}`, 140},
		{"english keys", `{"score": 200, "rationale": "ok"}`, 200},
		{"braces inside strings", `Resposta: {"analise": "usa {chaves}", "pontuacao": 40}`, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseCompetency(tt.raw, 4)
			require.NoError(t, err)
			assert.Equal(t, tt.points, s.Points)
			assert.Equal(t, 4, s.Competency)
			assert.NotEmpty(t, s.Rationale)
		})
	}
}

func TestParseCompetencyHugeScoresClampToNearestBound(t *testing.T) {
	rubric := DefaultRubric(20)
	tests := []struct {
		raw    string
		points int
	}{
		{`{"pontuacao": 1e30, "analise": "ok"}`, 200},
		{`{"pontuacao": "99999999999999999999999", "analise": "ok"}`, 200},
		{`{"pontuacao": -1e30, "analise": "ok"}`, 0},
		{`{"pontuacao": "-99999999999999999999999 pontos", "analise": "ok"}`, 0},
	}
	for _, tt := range tests {
		s, err := ParseCompetency(tt.raw, 3)
		require.NoError(t, err, tt.raw)
		assert.True(t, rubric.ApplyClamp(&s), tt.raw)
		assert.Equal(t, tt.points, s.Points, tt.raw)
	}
}

func TestParseCompetencyForcesRequestedID(t *testing.T) {
	s, err := ParseCompetency(`{"competencia": 2, "pontuacao": 160, "analise": "ok"}`, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Competency)
}

func TestParseCompetencyLists(t *testing.T) {
	raw := `{"pontuacao": 120, "analise": "ok",
		"pontos_fortes": ["clareza", " clareza ", ""],
		"pontos_fracos": "- repetição\n- pontuação",
		"sugestoes": ["• revise vírgulas"]}`
	s, err := ParseCompetency(raw, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"clareza"}, s.Strengths)
	assert.Equal(t, []string{"repetição", "pontuação"}, s.Weaknesses)
	assert.Equal(t, []string{"revise vírgulas"}, s.Suggestions)
}

func TestParseCompetencyRejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"Não consigo avaliar.",
		`{"analise": "sem nota"}`,
		`{"pontuacao": "excelente"}`,
		`{"pontuacao": 160`,
	} {
		_, err := ParseCompetency(raw, 1)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, "input %q", raw)
	}
}

func TestParseAdherence(t *testing.T) {
	tests := []struct {
		raw     string
		verdict string
		adheres bool
	}{
		{`{"adequacao": "Adequada", "justificativa": "ok"}`, models.VerdictAdequate, true},
		{`{"adequação": "TANGENCIAMENTO"}`, models.VerdictTangential, false},
		{`{"verdict": "fuga ao tema", "recomendacoes": ["releia a proposta"]}`, models.VerdictOffTopic, false},
	}
	for _, tt := range tests {
		a, err := ParseAdherence(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.verdict, a.Verdict)
		assert.Equal(t, tt.adheres, a.Adheres)
	}

	_, err := ParseAdherence(`{"adequacao": "talvez"}`)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}
