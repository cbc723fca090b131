package grading

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/llm"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/passage"
)

func seededMemoryStore(t *testing.T) *passage.MemoryStore {
	t.Helper()
	store := passage.NewMemoryStore(passage.HashEmbedder{})
	err := store.Add(context.Background(), []passage.Chunk{
		{ID: "1", Text: "Introdução com contextualização, tese e anúncio dos argumentos.", Source: "estrutura.md#0", Category: passage.CategoryEstrutura},
		{ID: "2", Text: "Exemplo de redação nota mil sobre mobilidade urbana.", Source: "exemplos.md#0", Category: passage.CategoryExemplos},
		{ID: "3", Text: "Repertório legitimado: leis, dados do IBGE e pensadores.", Source: "argumentacao.md#0", Category: passage.CategoryArgumentacao},
		{ID: "4", Text: "Use conectivos variados.", Source: "coesao.md#0", Category: passage.CategoryCoesao},
	})
	require.NoError(t, err)
	return store
}

func TestSuggestStructure(t *testing.T) {
	p := newTestPipeline(t, seededMemoryStore(t), llm.MockBackend{}, nil)
	out, err := p.SuggestStructure(context.Background(), testTheme)
	require.NoError(t, err)

	assert.Equal(t, testTheme, out.Theme)
	assert.NotEmpty(t, out.Introduction)
	assert.Len(t, out.Development, 2)
	assert.NotEmpty(t, out.Conclusion)
	for _, sp := range out.SupportingPassages {
		assert.Contains(t, []string{passage.CategoryEstrutura, passage.CategoryExemplos}, sp.Category)
	}
}

func TestSuggestStructureRejectsEmptyTheme(t *testing.T) {
	backend := newStubBackend(wellFormed)
	_, err := newTestPipeline(t, staticStore(testPassages), backend, nil).SuggestStructure(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidTheme)
	assert.Zero(t, backend.TotalCalls())
}

func TestAnalyzeRepertoire(t *testing.T) {
	p := newTestPipeline(t, seededMemoryStore(t), llm.MockBackend{}, nil)
	out, err := p.AnalyzeRepertoire(context.Background(), testEssay)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Assessment)
	assert.NotEmpty(t, out.Suggestions)
	assert.NotEmpty(t, out.Detected)
	assert.NotNil(t, out.Identified)
}

func TestCoachStoreUnavailable(t *testing.T) {
	p := newTestPipeline(t, staticStoreErr(errors.New("no route to host")), llm.MockBackend{}, nil)
	_, err := p.AnalyzeRepertoire(context.Background(), testEssay)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	stage, _ := StageOf(err)
	assert.Equal(t, StageContext, stage)
}

func TestCoachRetriesUnparseableAnswers(t *testing.T) {
	backend := newStubBackend(func(_ context.Context, _, call int, _ string) (string, error) {
		if call == 1 {
			return "Claro! Aqui está uma estrutura possível.", nil
		}
		return `{"introducao": "Contextualize.", "desenvolvimento": "Causa\nConsequência", "conclusao": "Proposta.", "repertorios": []}`, nil
	})
	out, err := newTestPipeline(t, staticStore(testPassages), backend, nil).SuggestStructure(context.Background(), testTheme)
	require.NoError(t, err)
	assert.Equal(t, []string{"Causa", "Consequência"}, out.Development)
	assert.Equal(t, 2, backend.Calls(0))
}
