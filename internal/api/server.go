package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobqueue-service/internal/api/handlers"
	"jobqueue-service/internal/api/middleware"
	"jobqueue-service/internal/core/services"
	"jobqueue-service/internal/infrastructure/logger"
	"jobqueue-service/internal/infrastructure/metrics"
	"jobqueue-service/internal/pkg/config"
	apierrors "jobqueue-service/internal/pkg/errors"
	"jobqueue-service/internal/pkg/validation"
)

// Server represents the HTTP server
type Server struct {
	config  *config.Config
	logger  logger.Logger
	router  *gin.Engine
	service *services.JobService
}

// NewServer creates a new HTTP server over the boundary service
func NewServer(cfg *config.Config, svc *services.JobService, m *metrics.Metrics, log logger.Logger) *Server {
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:  cfg,
		logger:  log.With("component", "server"),
		router:  gin.New(),
		service: svc,
	}

	server.setupMiddleware()
	server.setupRoutes(m)

	return server
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware sets up middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.ErrorHandler(s.logger))
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes sets up API routes
func (s *Server) setupRoutes(m *metrics.Metrics) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/ready", healthHandler.Ready)

	metricsHandler := handlers.NewMetricsHandler(m)
	s.router.GET("/metrics", metricsHandler.Metrics)

	jobsHandler := handlers.NewJobsHandler(s.service, validation.New(), s.logger)

	api := s.router.Group("/api")
	{
		api.POST("/jobs", jobsHandler.Create)
		api.GET("/jobs", jobsHandler.List)
		api.GET("/jobs/:id", jobsHandler.Get)
		api.DELETE("/jobs/:id", jobsHandler.Cancel)
		api.GET("/stats", jobsHandler.Stats)
	}

	s.router.HandleMethodNotAllowed = true
	s.router.NoMethod(func(c *gin.Context) {
		apiErr := apierrors.NewAPIError(apierrors.ErrCodeInvalidArgument, "Method not allowed")
		apiErr.Status = http.StatusMethodNotAllowed
		middleware.AbortWithError(c, apiErr)
	})
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "The requested resource does not exist",
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	})
}
