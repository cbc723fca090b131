package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/passage"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/utils"
)

// searchCategories runs one query per category and merges the results.
func (p *Pipeline) searchCategories(ctx context.Context, query string, categories ...string) ([]models.RetrievedPassage, error) {
	results := make([][]models.RetrievedPassage, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		g.Go(func() error {
			ps, err := p.store.Search(gctx, query, p.opts.K, cat)
			if err != nil && !errors.Is(err, ErrStoreUnavailable) && gctx.Err() == nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			results[i] = ps
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return budget(merge(results), p.opts.Budget).Passages, nil
}

// SuggestStructure proposes an essay outline for a theme, grounded in structure and example passages.
func (p *Pipeline) SuggestStructure(ctx context.Context, theme string) (models.StructureSuggestion, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return models.StructureSuggestion{}, &StageError{Stage: StageInput, Err: ErrInvalidTheme}
	}
	passages, err := p.searchCategories(ctx, theme, passage.CategoryEstrutura, passage.CategoryExemplos)
	if err != nil {
		return models.StructureSuggestion{}, &StageError{Stage: StageContext, Err: err}
	}

	var sb strings.Builder
	sb.WriteString("Você é um professor de redação do ENEM. Proponha uma estrutura de redação dissertativo-argumentativa para o tema abaixo.\n\nMaterial de referência:\n")
	writePassages(&sb, passages)
	fmt.Fprintf(&sb, "Tema: %s\n\n", theme)
	sb.WriteString(`Formato obrigatório da resposta (JSON):
{
  "introducao": "como apresentar o problema e a tese",
  "desenvolvimento": ["argumento do primeiro parágrafo", "argumento do segundo parágrafo"],
  "conclusao": "proposta de intervenção com agente, ação, meio, finalidade e detalhamento",
  "repertorios": ["repertório sociocultural pertinente"]
}

Responda APENAS com o JSON, sem texto adicional ou formatação markdown.`)

	out := models.StructureSuggestion{Theme: theme, SupportingPassages: passages}
	err = p.evaluator.generate(ctx, StageEvaluation, 0, sb.String(), func(raw string) error {
		doc, ok := extractJSON(raw)
		if !ok {
			return &ParseError{Reason: "no JSON object found"}
		}
		intro := strings.TrimSpace(gjson.Get(doc, "introducao").String())
		if intro == "" {
			return &ParseError{Reason: "missing introducao"}
		}
		out.Introduction = intro
		out.Development = stringList(gjson.Get(doc, "desenvolvimento"))
		out.Conclusion = strings.TrimSpace(gjson.Get(doc, "conclusao").String())
		out.Repertoire = stringList(gjson.Get(doc, "repertorios"))
		return nil
	})
	if err != nil {
		return models.StructureSuggestion{}, err
	}
	return out, nil
}

// AnalyzeRepertoire evaluates the sociocultural repertoire used in an essay.
func (p *Pipeline) AnalyzeRepertoire(ctx context.Context, essay string) (models.RepertoireAnalysis, error) {
	if strings.TrimSpace(essay) == "" {
		return models.RepertoireAnalysis{}, &StageError{Stage: StageInput, Err: ErrInvalidEssay}
	}
	detected := utils.DetectRepertoire(essay)
	passages, err := p.searchCategories(ctx, truncateRunes(essay, openingRunes), passage.CategoryArgumentacao, passage.CategoryExemplos)
	if err != nil {
		return models.RepertoireAnalysis{}, &StageError{Stage: StageContext, Err: err}
	}

	var sb strings.Builder
	sb.WriteString("Analise o repertório sociocultural da redação do ENEM abaixo: citações, dados, leis, obras e referências históricas, sua legitimidade, pertinência e produtividade.\n\nMaterial de referência:\n")
	writePassages(&sb, passages)
	if len(detected) > 0 {
		fmt.Fprintf(&sb, "Trechos com possível repertório:\n- %s\n\n", strings.Join(detected, "\n- "))
	}
	fmt.Fprintf(&sb, "Redação:\n%s\n\n", utils.FitEssay(essay, essayTokenBudget))
	sb.WriteString(`Formato obrigatório da resposta (JSON):
{
  "repertorios_identificados": ["..."],
  "avaliacao": "avaliação do uso do repertório",
  "sugestoes": ["..."]
}

Responda APENAS com o JSON, sem texto adicional ou formatação markdown.`)

	out := models.RepertoireAnalysis{Detected: detected}
	err = p.evaluator.generate(ctx, StageEvaluation, 0, sb.String(), func(raw string) error {
		doc, ok := extractJSON(raw)
		if !ok {
			return &ParseError{Reason: "no JSON object found"}
		}
		assessment := strings.TrimSpace(gjson.Get(doc, "avaliacao").String())
		if assessment == "" {
			return &ParseError{Reason: "missing avaliacao"}
		}
		out.Assessment = assessment
		out.Identified = stringList(gjson.Get(doc, "repertorios_identificados"))
		out.Suggestions = stringList(gjson.Get(doc, "sugestoes"))
		return nil
	})
	if err != nil {
		return models.RepertoireAnalysis{}, err
	}
	if out.Detected == nil {
		out.Detected = []string{}
	}
	return out, nil
}
