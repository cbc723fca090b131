package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/services"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/utils"
)

const essayBody = `{"theme": "Desafios da mobilidade urbana no Brasil", "essay": "A mobilidade urbana é um desafio das metrópoles brasileiras. Segundo o IBGE, trabalhadores gastam horas no trânsito. Portanto, cabe ao governo ampliar corredores de ônibus."}`

func newTestApp(t *testing.T, mutate func(*config.Config)) (*services.App, *prometheus.Registry) {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.Retrieval.EmptyContextPolicy = config.EmptyContextProceed
	if mutate != nil {
		mutate(cfg)
	}
	reg := prometheus.NewRegistry()
	app, err := services.NewApp(context.Background(), cfg, nil, reg)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, reg
}

func serve(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	app, reg := newTestApp(t, nil)
	r := setupRouter(app, reg)

	w := serve(r, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"provider":"mock"`)

	require.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/essays", essayBody, "").Code)

	w = serve(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "grading_runs_total")
}

func TestRoutesRequireTokenWhenSecretSet(t *testing.T) {
	app, reg := newTestApp(t, func(c *config.Config) { c.JWT.Secret = "s3cr3t" })
	r := setupRouter(app, reg)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/essays", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", "", "").Code)

	token, err := utils.NewTokenManager("s3cr3t", 0).GenerateJWTToken("escola-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/essays", "", token).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/essays", essayBody, token).Code)
}

func TestGradingIsRateLimited(t *testing.T) {
	app, reg := newTestApp(t, func(c *config.Config) { c.RateLimit.Max = 1 })
	r := setupRouter(app, reg)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/essays", essayBody, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/essays", essayBody, "").Code)
	// reads are not limited
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/essays", "", "").Code)
}
