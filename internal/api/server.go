package api

import (
	"time"

	"gocohort/app"
	"gocohort/internal"

	"github.com/gin-gonic/gin"
)

// Server exposes stored segmentation results over HTTP
type Server struct {
	router  *gin.Engine
	service *app.SegmentationService
	options app.RunOptions
}

// NewServer creates a server backed by service. opts are the defaults for
// runs started through POST /runs.
func NewServer(service *app.SegmentationService, opts app.RunOptions, ginMode string) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{router: router, service: service, options: opts}
	s.setupRoutes()
	return s
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	runs := s.router.Group("/runs")
	runs.GET("", s.handleListRuns)
	runs.POST("", s.handleCreateRun)
	runs.GET("/latest", s.handleLatestRun)
	runs.GET("/:id", s.handleGetRun)
	runs.DELETE("/:id", s.handleDeleteRun)
	runs.GET("/:id/cohorts", s.handleListCohorts)
	runs.POST("/:id/assign", s.handleAssign)
	runs.GET("/:id/report", s.handleReport)

	s.router.GET("/actors/:id/cohort", s.handleActorCohort)
}

// Handler returns the underlying http.Handler
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	internal.DefaultLogger.Info("starting cohort API on http://%s", addr)
	return s.router.Run(addr)
}

func requestLogger() gin.HandlerFunc {
	logger := internal.DefaultLogger.WithPrefix("api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}
