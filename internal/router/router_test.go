package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/config"
	"github.com/stemsi/akademi-backend/internal/handler"
	"github.com/stemsi/akademi-backend/internal/middleware"
	"github.com/stemsi/akademi-backend/internal/repository/memory"
	"github.com/stemsi/akademi-backend/internal/scoring"
	"github.com/stemsi/akademi-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *service.AuthService) {
	t.Helper()
	log := zerolog.Nop()
	cfg := &config.Config{GinMode: "test", JWTSecret: "router-secret"}
	store := memory.NewStore().Bundle()

	catalog := service.NewExamCatalog(store.Exams, store.Questions, nil, 0, log)
	ledger := service.NewAttemptLedger(store.Attempts)
	issuer := service.NewCertificateIssuer(store.Certificates, scoring.DefaultHonorsScale(), nil, log)
	guard := service.NewAccessGuard(catalog, ledger, issuer, store, nil, log)
	auth := service.NewAuthService(cfg)

	handlers := &Handlers{
		Exam:        handler.NewExamHandler(guard, log),
		Certificate: handler.NewCertificateHandler(guard, log),
		WS:          handler.NewWSHandler(nil, log, nil),
		Health:      handler.NewHealthHandler(log),
	}
	return SetupRouter(auth, handlers, middleware.NewRateLimiter(10, time.Minute, nil), cfg), auth
}

func TestRoutes(t *testing.T) {
	r, auth := newTestRouter(t)
	token, err := auth.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		auth   bool
		want   int
	}{
		{"health", http.MethodGet, "/health", false, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", false, http.StatusOK},
		{"api requires token", http.MethodGet, "/api/v1/me/certificates", false, http.StatusUnauthorized},
		{"certificates", http.MethodGet, "/api/v1/me/certificates", true, http.StatusOK},
		{"unknown exam", http.MethodGet, "/api/v1/exams/6f1c3a52-8d0e-4b7a-9c51-2e4f7d9a0b13", true, http.StatusNotFound},
		{"ws requires token", http.MethodGet, "/ws/v1/me/events", false, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestAPIResponsesAreNotCacheable(t *testing.T) {
	r, auth := newTestRouter(t)
	token, err := auth.GenerateToken("alice", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/certificates", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
