package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/janhq/answer-api/internal/config"
	"github.com/janhq/answer-api/internal/interfaces/httpserver/handlers"
)

func newTestServer(checks map[string]ReadinessCheck) *HttpServer {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{ServiceName: "answer-api", Environment: "test"}
	return New(cfg, zerolog.Nop(), handlers.NewProvider(nil, nil, zerolog.Nop()), checks)
}

func serve(s *HttpServer, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(nil)

	w := serve(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(s, http.MethodGet, "/")
	assert.Contains(t, w.Body.String(), "answer-api")

	w = serve(s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jan_answer_api_requests_total")
}

func TestReadiness(t *testing.T) {
	healthy := newTestServer(map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
	})
	w := serve(healthy, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)

	failing := newTestServer(map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("redis unreachable") },
	})
	w = serve(failing, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis unreachable")
	assert.NotContains(t, w.Body.String(), "database")
}

func TestVersionedRoutesRegistered(t *testing.T) {
	s := newTestServer(nil)

	routes := map[string]bool{}
	for _, r := range s.engine.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /v1/chat",
		"GET /v1/conversations",
		"POST /v1/conversations",
		"GET /v1/conversations/:conversation_id",
		"PATCH /v1/conversations/:conversation_id",
		"DELETE /v1/conversations/:conversation_id",
	} {
		assert.True(t, routes[want], want)
	}
}
