package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/response"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness plus the state of each registered dependency.
type HealthHandler struct {
	checks map[string]HealthCheck
	log    zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		checks: make(map[string]HealthCheck),
		log:    log.With().Str("component", "health_handler").Logger(),
	}
}

// Register adds a named dependency check.
func (h *HealthHandler) Register(name string, check HealthCheck) {
	h.checks[name] = check
}

// Health godoc
// GET /health
// 200 when every dependency answers, 503 otherwise.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			deps[name] = "down"
			status = "degraded"
			continue
		}
		deps[name] = "up"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	response.Success(c, code, gin.H{"status": status, "dependencies": deps})
}
