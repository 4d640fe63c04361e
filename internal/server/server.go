package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/audit"
	"github.com/aegisshield/biometric-engine/internal/compliance"
	"github.com/aegisshield/biometric-engine/internal/config"
	"github.com/aegisshield/biometric-engine/internal/forensic"
	"github.com/aegisshield/biometric-engine/internal/handlers"
	"github.com/aegisshield/biometric-engine/internal/imaging"
	"github.com/aegisshield/biometric-engine/internal/metrics"
	"github.com/aegisshield/biometric-engine/internal/template"
)

// Server represents the biometric engine server
type Server struct {
	config *config.Config
	logger *zap.Logger

	// Domain components
	analyzer          *imaging.Analyzer
	normalizer        *imaging.Normalizer
	imageValidator    *compliance.Validator
	validationCache   *compliance.ValidationCache
	templateBuilder   *template.Builder
	templateValidator *template.Validator
	logFactory        *forensic.LogFactory
	securityFactory   *forensic.MetadataFactory
	auditStore        *audit.Store
	collector         *metrics.Collector

	// Handlers
	photoHandler    *handlers.PhotoHandler
	templateHandler *handlers.TemplateHandler
	forensicHandler *handlers.ForensicHandler
	healthHandler   *handlers.HealthHandler

	router     *gin.Engine
	httpServer *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		config: cfg,
		logger: logger.Named("server"),
	}
}

// Initialize sets up the server components
func (s *Server) Initialize() error {
	s.logger.Info("Initializing biometric engine server")

	s.initComponents()
	s.initHandlers()
	if err := s.initHTTPServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	s.logger.Info("Server initialized successfully")
	return nil
}

// initComponents initializes the domain components
func (s *Server) initComponents() {
	s.analyzer = imaging.NewAnalyzer(s.logger)
	s.normalizer = imaging.NewNormalizer(s.logger)
	s.imageValidator = compliance.NewValidator(s.logger)

	if s.config.Compliance.EnableCache {
		s.validationCache = compliance.NewValidationCache(s.config.Compliance.CacheCapacity)
	}

	var builderOpts []template.BuilderOption
	if s.config.Template.LegacyDigest {
		builderOpts = append(builderOpts, template.WithLegacyDigest())
	}
	s.templateBuilder = template.NewBuilder(s.logger, builderOpts...)
	s.templateValidator = template.NewValidator(s.logger)

	s.logFactory = forensic.NewLogFactory(s.logger)
	s.securityFactory = forensic.NewMetadataFactory()
	s.auditStore = audit.NewStore(s.config.Audit, s.logger)
	s.collector = metrics.NewCollector(prometheus.DefaultRegisterer)
}

// initHandlers initializes all handler instances
func (s *Server) initHandlers() {
	s.photoHandler = handlers.NewPhotoHandler(
		s.analyzer,
		s.normalizer,
		s.imageValidator,
		s.validationCache,
		s.collector,
		s.config.Imaging.MaxUploadSize,
		s.logger,
	)
	s.templateHandler = handlers.NewTemplateHandler(
		s.templateBuilder,
		s.templateValidator,
		s.securityFactory,
		s.collector,
		s.logger,
	)
	s.forensicHandler = handlers.NewForensicHandler(
		s.logFactory,
		s.auditStore,
		s.collector,
		s.logger,
	)
	s.healthHandler = handlers.NewHealthHandler(s.auditStore)
}

// initHTTPServer initializes the HTTP server with Gin
func (s *Server) initHTTPServer() error {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	if s.config.Debug {
		s.router.Use(gin.Logger())
	}
	s.router.Use(s.requestMetrics())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Info("HTTP server initialized", zap.Int("port", s.config.Server.HTTPPort))
	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.healthHandler.RegisterRoutes(s.router)

	if s.config.Monitoring.EnableMetrics {
		s.router.GET(s.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := s.router.Group("/api/v1")
	s.photoHandler.RegisterRoutes(api)
	s.templateHandler.RegisterRoutes(api)
	s.forensicHandler.RegisterRoutes(api)
}

// requestMetrics records the duration of each request by route template.
func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.collector.RecordRequest(route, fmt.Sprintf("%d", c.Writer.Status()), time.Since(start))
	}
}

// Start starts the audit store and the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting biometric engine server")

	if err := s.auditStore.Start(ctx); err != nil {
		return fmt.Errorf("failed to start audit store: %w", err)
	}

	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	s.logger.Info("Biometric engine server started successfully")
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Info("Shutting down biometric engine server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
	}

	if err := s.auditStore.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop audit store gracefully", zap.Error(err))
	}

	s.logger.Info("Biometric engine server shutdown completed")
	return nil
}
