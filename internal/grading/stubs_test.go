package grading

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/llm"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/passage"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

const testTheme = "Desafios da mobilidade urbana"

// testEssay is a 30-line argumentative text.
var testEssay = strings.Join([]string{
	"A mobilidade urbana constitui um dos maiores desafios das metrópoles brasileiras no século XXI.",
	"Segundo o IBGE, milhões de trabalhadores gastam mais de duas horas por dia no trajeto entre casa e trabalho.",
	"Esse cenário revela a ineficiência do planejamento urbano e a prioridade histórica dada ao automóvel.",
	"Em primeiro lugar, convém destacar a insuficiência do transporte público coletivo.",
	"Ônibus superlotados e linhas de metrô limitadas obrigam a população a enfrentar longas esperas.",
	"Além disso, a tarifa elevada compromete parcela significativa da renda das famílias mais pobres.",
	"De acordo com pesquisas recentes, 40% dos usuários consideram o serviço ruim ou péssimo.",
	"Dessa maneira, muitos cidadãos optam pelo transporte individual, agravando os congestionamentos.",
	"Em segundo lugar, a expansão desordenada das cidades afasta a moradia dos centros de emprego.",
	"A especulação imobiliária empurra a população de baixa renda para as periferias distantes.",
	"Consequentemente, os deslocamentos se tornam mais longos, caros e cansativos.",
	"Tal realidade contraria o direito de ir e vir assegurado pela Constituição Federal de 1988.",
	"Ademais, a ausência de ciclovias seguras desestimula meios de transporte sustentáveis.",
	"Pedestres também enfrentam calçadas irregulares e travessias perigosas.",
	"O resultado é um sistema que exclui idosos e pessoas com deficiência.",
	"Nesse contexto, a poluição atmosférica cresce e afeta a saúde pública.",
	"Doenças respiratórias sobrecarregam hospitais nas grandes capitais.",
	"Os custos ambientais e sociais do modelo atual são, portanto, elevados.",
	"Por outro lado, experiências internacionais mostram caminhos possíveis.",
	"Cidades como Bogotá implantaram corredores exclusivos de ônibus com resultados expressivos.",
	"Tais iniciativas reduziram o tempo de viagem e as emissões de poluentes.",
	"No Brasil, a Lei 12.587 de 2012 instituiu a Política Nacional de Mobilidade Urbana.",
	"Entretanto, sua aplicação ainda é tímida na maioria dos municípios.",
	"Falta integração entre os modais e investimento contínuo em infraestrutura.",
	"Logo, é evidente que o problema exige ação coordenada do poder público.",
	"Portanto, cabe ao Ministério das Cidades, em parceria com as prefeituras, ampliar os corredores exclusivos.",
	"Isso deve ocorrer por meio de investimentos do Orçamento federal e de parcerias público-privadas.",
	"Também é necessário integrar tarifas entre ônibus, metrô e bicicletas compartilhadas.",
	"Essas medidas têm a finalidade de reduzir o tempo de deslocamento e democratizar o acesso à cidade.",
	"Assim, a mobilidade deixará de ser um privilégio e se tornará um direito efetivo de todos.",
}, "\n")

var promptCompetencyRe = regexp.MustCompile(`^Competência (\d)`)

// competencyOf returns the competency a prompt asks for, or 0 for the adherence check.
func competencyOf(prompt string) int {
	if m := promptCompetencyRe.FindStringSubmatch(prompt); m != nil {
		id, _ := strconv.Atoi(m[1])
		return id
	}
	return 0
}

type respondFunc func(ctx context.Context, competency, call int, prompt string) (string, error)

// stubBackend records calls per competency and answers through respond.
type stubBackend struct {
	respond respondFunc

	mu    sync.Mutex
	calls map[int]int
}

func newStubBackend(respond respondFunc) *stubBackend {
	return &stubBackend{respond: respond, calls: map[int]int{}}
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Generate(ctx context.Context, prompt string, _ llm.GenerateConfig) (string, error) {
	id := competencyOf(prompt)
	s.mu.Lock()
	s.calls[id]++
	n := s.calls[id]
	s.mu.Unlock()
	return s.respond(ctx, id, n, prompt)
}

func (s *stubBackend) Calls(competency int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[competency]
}

func (s *stubBackend) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

const adequateJSON = `{"adequacao": "Adequada", "justificativa": "Aborda o tema.", "recomendacoes": []}`

func scoreJSON(id, points int) string {
	suggestions := `["Aprofunde a competência ` + strconv.Itoa(id) + `."]`
	if points >= 200 {
		suggestions = `[]`
	}
	return fmt.Sprintf(`{"competencia": %d, "pontuacao": %d, "analise": "Análise da competência %d.", "pontos_fortes": ["forte %d"], "pontos_fracos": ["fraco %d"], "sugestoes": %s}`,
		id, points, id, id, id, suggestions)
}

var scenarioPoints = map[int]int{1: 180, 2: 160, 3: 200, 4: 140, 5: 120}

// wellFormed answers the adherence check as adequate and each competency with scenarioPoints.
func wellFormed(_ context.Context, id, _ int, _ string) (string, error) {
	if id == 0 {
		return adequateJSON, nil
	}
	return scoreJSON(id, scenarioPoints[id]), nil
}

var testPassages = []models.RetrievedPassage{
	{Text: "A proposta de intervenção deve conter agente, ação, meio, finalidade e detalhamento.", Source: "intervencao.md#0", Category: passage.CategoryIntervencao, Relevance: 0.91},
	{Text: "Conectivos como além disso e portanto garantem a coesão.", Source: "coesao.md#0", Category: passage.CategoryCoesao, Relevance: 0.84},
	{Text: "O repertório sociocultural deve ser legitimado e pertinente.", Source: "tema.md#0", Category: passage.CategoryTema, Relevance: 0.77},
}

func staticStore(ps []models.RetrievedPassage) passage.Store {
	return passage.StoreFunc(func(ctx context.Context, _ string, k int, categories ...string) ([]models.RetrievedPassage, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var out []models.RetrievedPassage
		for _, p := range ps {
			if len(categories) == 0 || p.Category == categories[0] {
				out = append(out, p)
			}
		}
		if len(out) > k {
			out = out[:k]
		}
		return out, nil
	})
}

func staticStoreErr(err error) passage.Store {
	return passage.StoreFunc(func(context.Context, string, int, ...string) ([]models.RetrievedPassage, error) {
		return nil, err
	})
}

// spyStore flags every search that reaches the wrapped store.
func spyStore(s passage.Store, searched *bool) passage.Store {
	var mu sync.Mutex
	return passage.StoreFunc(func(ctx context.Context, query string, k int, categories ...string) ([]models.RetrievedPassage, error) {
		mu.Lock()
		*searched = true
		mu.Unlock()
		return s.Search(ctx, query, k, categories...)
	})
}

func nopLogger() *zap.Logger { return zap.NewNop() }

func newTestPipeline(t *testing.T, store passage.Store, backend llm.Backend, mutate func(*Options)) *Pipeline {
	t.Helper()
	opts := DefaultOptions()
	opts.Generation = llm.GenerateConfig{Model: "stub-model"}
	if mutate != nil {
		mutate(&opts)
	}
	return NewPipeline(store, backend, opts, nil, nil)
}
