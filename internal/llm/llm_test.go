package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
)

func TestCleanOutput(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```JSON{\"a\":1}```":     `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```\n{}\n```":            `{}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanOutput(in))
	}
}

func TestBackendErrorClassification(t *testing.T) {
	err := wrapError("openai", 429, errors.New("rate limited"))
	assert.ErrorIs(t, err, ErrBackend)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 429, be.Status)
	assert.True(t, be.Retryable())
	assert.False(t, be.Timeout())

	timeout := wrapError("gemini", 0, fmt.Errorf("call: %w", context.DeadlineExceeded))
	require.ErrorAs(t, timeout, &be)
	assert.True(t, be.Timeout())
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)

	auth := wrapError("anthropic", 401, errors.New("bad key"))
	require.ErrorAs(t, auth, &be)
	assert.False(t, be.Retryable())

	assert.Same(t, auth, wrapError("anthropic", 500, auth))
	assert.NoError(t, wrapError("x", 0, nil))
}

func TestMockBackendCompetency(t *testing.T) {
	out, err := MockBackend{}.Generate(context.Background(), "Competência 3: Argumentação\n...\n\"pontuacao\"", GenerateConfig{})
	require.NoError(t, err)
	assert.Contains(t, out, `"competencia": 3`)
	assert.Contains(t, out, `"pontuacao"`)
}

func TestMockBackendHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MockBackend{}.Generate(ctx, "x", GenerateConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactory(t *testing.T) {
	b, err := New(context.Background(), config.GenerationConfig{Provider: config.ProviderMock})
	require.NoError(t, err)
	assert.Equal(t, "mock", b.Name())

	_, err = New(context.Background(), config.GenerationConfig{Provider: config.ProviderOpenAI})
	assert.ErrorContains(t, err, "api key missing")

	_, err = New(context.Background(), config.GenerationConfig{Provider: config.ProviderAnthropic})
	assert.ErrorContains(t, err, "api key missing")

	_, err = New(context.Background(), config.GenerationConfig{Provider: "cohere"})
	assert.Error(t, err)

	b, err = New(context.Background(), config.GenerationConfig{Provider: config.ProviderOpenAI, OpenAIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())
}

func TestConfigFromKeepsZeroTemperature(t *testing.T) {
	zero := 0.0
	got := ConfigFrom(config.GenerationConfig{Model: "m", MaxOutputTokens: 10, Temperature: &zero})
	assert.Equal(t, GenerateConfig{Model: "m", MaxOutputTokens: 10, Temperature: 0}, got)

	got = ConfigFrom(config.GenerationConfig{Model: "m"})
	assert.Equal(t, config.DefaultTemperature, got.Temperature)
}
