package grading

import (
	"fmt"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/passage"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// Criterion is the static description of one ENEM competency.
type Criterion struct {
	ID          int
	Name        string
	Description string
	Query       string
	Category    string
}

// Rubric holds the five criteria and the legal score grid.
type Rubric struct {
	Criteria [models.CompetencyCount]Criterion
	Max      int
	Step     int
}

var defaultCriteria = [models.CompetencyCount]Criterion{
	{
		ID:   1,
		Name: "Domínio da norma padrão",
		Description: `Avalia o domínio da modalidade escrita formal da língua portuguesa: ortografia, acentuação,
concordância, regência, pontuação, crase e estrutura sintática. 200: no máximo uma falha estrutural e
dois desvios; 160: poucos desvios; 120: domínio mediano; 80: domínio insuficiente; 40: domínio precário;
0: desconhecimento da norma.`,
		Query:    "norma culta gramática redação enem",
		Category: passage.CategoryNormaCulta,
	},
	{
		ID:   2,
		Name: "Compreensão do tema",
		Description: `Avalia a compreensão da proposta, a aplicação de conceitos de várias áreas do conhecimento e
o uso do tipo textual dissertativo-argumentativo. 200: argumentação consistente com repertório legitimado,
pertinente e produtivo; 120: abordagem completa com repertório previsível; 40: tangenciamento do tema;
0: fuga ao tema ou não atendimento ao tipo textual.`,
		Query:    "compreensão tema redação enem",
		Category: passage.CategoryTema,
	},
	{
		ID:   3,
		Name: "Argumentação",
		Description: `Avalia a seleção, relação, organização e interpretação de informações, fatos, opiniões e
argumentos em defesa de um ponto de vista. 200: projeto de texto estratégico e autoria; 160: projeto com
poucas falhas; 120: argumentos limitados aos motivadores; 80: informações desorganizadas; 40: pouco
relacionadas ao tema; 0: sem defesa de ponto de vista.`,
		Query:    "argumentação redação enem",
		Category: passage.CategoryArgumentacao,
	},
	{
		ID:   4,
		Name: "Coesão textual",
		Description: `Avalia o conhecimento dos mecanismos linguísticos necessários à construção da argumentação:
conectivos entre e dentro dos parágrafos, referenciação, repertório coesivo diversificado. 200: repertório
diversificado e sem inadequações; 120: mediano; 40: precário; 0: ausência de articulação.`,
		Query:    "coesão textual redação enem",
		Category: passage.CategoryCoesao,
	},
	{
		ID:   5,
		Name: "Proposta de intervenção",
		Description: `Avalia a proposta de intervenção para o problema abordado, respeitando os direitos humanos.
Elementos: agente, ação, modo ou meio, finalidade e detalhamento. 200: cinco elementos bem articulados;
160: quatro; 120: três; 80: dois; 40: um ou proposta vaga; 0: ausência de proposta ou desrespeito aos
direitos humanos.`,
		Query:    "proposta intervenção redação enem",
		Category: passage.CategoryIntervencao,
	},
}

// DefaultRubric returns the ENEM rubric with the given score step (20 or 40).
func DefaultRubric(step int) Rubric {
	if step <= 0 {
		step = 20
	}
	return Rubric{Criteria: defaultCriteria, Max: models.MaxCompetencyPoints, Step: step}
}

// Criterion returns the criterion with the given id.
func (r Rubric) Criterion(id int) (Criterion, bool) {
	if id < 1 || id > len(r.Criteria) {
		return Criterion{}, false
	}
	return r.Criteria[id-1], true
}

// Legal reports whether points lie on the score grid.
func (r Rubric) Legal(points int) bool {
	return points >= 0 && points <= r.Max && points%r.Step == 0
}

// Clamp returns the legal value nearest to points. Ties round down.
func (r Rubric) Clamp(points int) int {
	if points <= 0 {
		return 0
	}
	if points >= r.Max {
		return r.Max
	}
	lower := points / r.Step * r.Step
	if points-lower > r.Step/2 {
		return lower + r.Step
	}
	return lower
}

// ApplyClamp coerces score.Points onto the grid and records the correction.
// It reports whether the score changed; applying it twice never changes anything the second time.
func (r Rubric) ApplyClamp(score *models.CompetencyScore) bool {
	if r.Legal(score.Points) {
		return false
	}
	legal := r.Clamp(score.Points)
	note := fmt.Sprintf("pontuação ajustada de %d para %d (valores válidos: 0 a %d em passos de %d)",
		score.Points, legal, r.Max, r.Step)
	score.Corrections = append(score.Corrections, note)
	if score.Rationale != "" {
		score.Rationale += "\n"
	}
	score.Rationale += "[Correção] " + note
	score.Points = legal
	return true
}
