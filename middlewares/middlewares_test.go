package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/cache"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(tokens *utils.TokenManager, limiter *cache.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()), AuthMiddleware(tokens), RateLimitMiddleware(limiter))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SubjectKey))
	})
	return r
}

func get(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	r := newRouter(nil, nil)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
}

func TestAuthMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("segredo", time.Hour)
	r := newRouter(tokens, nil)
	token, err := tokens.GenerateJWTToken("escola-7")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/ping", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping", "Bearer abc").Code)

	w := get(r, "/ping", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "escola-7", w.Body.String())

	// query tokens are only honoured on websocket upgrades
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ping?token="+token, "").Code)

	req := httptest.NewRequest(http.MethodGet, "/ping?token="+token, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "escola-7", w.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newRouter(nil, cache.NewRateLimiter(nil, 2, time.Minute, nil))
	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", "").Code)
}
