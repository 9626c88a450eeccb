package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stemsi/akademi-backend/internal/config"
	"github.com/stemsi/akademi-backend/internal/handler"
	"github.com/stemsi/akademi-backend/internal/middleware"
	"github.com/stemsi/akademi-backend/internal/response"
	"github.com/stemsi/akademi-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam        *handler.ExamHandler
	Certificate *handler.CertificateHandler
	WS          *handler.WSHandler
	Health      *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	submitLimiter *middleware.RateLimiter,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestMetrics())

	// Health check and Prometheus scrape endpoint.
	router.GET("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── 1. Participant API (JWT) ──────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireUserJWT(authService),
		middleware.Brotli(middleware.DefaultBrotliMinLength),
		middleware.NoStore(),
	)
	{
		api.GET("/exams/:id", handlers.Exam.GetExam)
		api.POST("/exams/:id/attempts", handlers.Exam.StartAttempt)
		api.POST("/attempts/:attempt_id/submit", submitLimiter.Middleware(), handlers.Exam.SubmitAttempt)

		api.GET("/attempts/:attempt_id/certificate", handlers.Certificate.GetCertificate)
		api.POST("/attempts/:attempt_id/certificate", handlers.Certificate.IssueCertificate)
		api.GET("/me/certificates", handlers.Certificate.ListCertificates)
	}

	// ─── 2. WebSocket Group (query token auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/me/events", handlers.WS.UserEventStream)
	}

	return router
}
