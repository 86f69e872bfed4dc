package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beaconlabs/beacon/internal/cache"
	"github.com/beaconlabs/beacon/internal/config"
	"github.com/beaconlabs/beacon/internal/models"
	"github.com/beaconlabs/beacon/internal/service"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Registry     *service.RegistryService
	Social       *service.SocialService
	Decisions    *service.DecisionService
	Orchestrator *service.Orchestrator
	Auth         *service.AuthService
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	registry := service.NewRegistryService(db, logger)
	scraper := service.NewScrapeClient(&cfg.Scraper, logger)
	social := service.NewSocialService(
		scraper,
		service.NewGormSocialStore(db),
		cache.NewDB(db),
		logger,
		config.Duration(cfg.Agent.CacheTTL, 6*time.Hour),
		cfg.Scraper.MaxItems,
		config.Duration(cfg.Agent.SyncDelay, 2*time.Second),
	)
	llm := service.NewOpenAIClient(&cfg.LLM, logger)
	brain := service.NewBrain(llm, logger)
	decisions := service.NewDecisionService(db, logger)
	market := service.NewTrendsClient(&cfg.Trends, logger)
	briefer := service.NewBriefingService(db, llm, market, logger)
	orchestrator := service.NewOrchestrator(&cfg.Agent, logger, registry, social, brain, decisions, market, briefer)
	auth := service.NewAuthService(logger, cfg.Server.TOTPSecret)

	// Create router
	router := gin.New()

	srv := &Server{
		Config:       cfg,
		DB:           db,
		Router:       router,
		Logger:       logger,
		Registry:     registry,
		Social:       social,
		Decisions:    decisions,
		Orchestrator: orchestrator,
		Auth:         auth,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Auth-Code")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		api.GET("/decisions", s.handleGetDecisions)
		api.GET("/briefings/:tenant", s.handleGetBriefing)

		agent := api.Group("/agent", s.requireTOTP())
		{
			agent.POST("/run/:tenant", s.handleTriggerRun)
			agent.POST("/sync", s.handleSyncAll)
		}
	}
}

// requireTOTP rejects mutating calls without a valid code when a secret is
// configured.
func (s *Server) requireTOTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Auth.Enabled() {
			c.Next()
			return
		}
		if !s.Auth.ValidateToken(c.GetHeader("X-Auth-Code")) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid auth code"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleGetDecisions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	decisions, err := s.Decisions.Recent(c.Request.Context(), limit)
	if err != nil {
		s.Logger.Error("Failed to list decisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list decisions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

func (s *Server) handleGetBriefing(c *gin.Context) {
	tenant := c.Param("tenant")

	var report models.BriefingReport
	err := s.DB.WithContext(c.Request.Context()).
		Where("tenant_id = ?", tenant).
		First(&report).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No briefing for tenant"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleTriggerRun(c *gin.Context) {
	outcome, err := s.Orchestrator.TriggerRun(c.Request.Context(), c.Param("tenant"))
	if err != nil {
		if errors.Is(err, service.ErrUnknownTenant) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown tenant"})
			return
		}
		s.Logger.Error("On-demand run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Agent run failed"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleSyncAll(c *gin.Context) {
	synced, source := s.Orchestrator.ResyncAll(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"message": "Sync completed",
		"tenants": synced,
		"source":  source,
	})
}

func (s *Server) Start(ctx context.Context) error {
	// Start orchestrator
	if err := s.Orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop orchestrator first
	s.Orchestrator.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
