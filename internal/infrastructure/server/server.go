// Package server wires the service together: storage, workspace repository,
// bridge client, HTTP API and the extension WebSocket endpoint.
package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tabflow/backend/internal/api/http"
	"github.com/tabflow/backend/internal/api/middleware"
	"github.com/tabflow/backend/internal/api/ws"
	"github.com/tabflow/backend/internal/domain/bridge"
	"github.com/tabflow/backend/internal/domain/inbox"
	"github.com/tabflow/backend/internal/domain/workspace"
	"github.com/tabflow/backend/internal/infrastructure/config"
	"github.com/tabflow/backend/internal/infrastructure/logging"
	"github.com/tabflow/backend/internal/infrastructure/monitoring"
	"github.com/tabflow/backend/internal/storage"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router *gin.Engine
	kv     storage.KV
	logger *logging.Logger
	config *config.Config
}

// New creates a server instance from configuration.
func New(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.New(cfg.Logging.Level, false)
	}

	logger.Info("initializing tabflow backend",
		zap.String("port", cfg.Server.Port),
		zap.String("storage_path", cfg.Storage.Path),
	)

	metrics := monitoring.NewMetrics()

	// Durable store. An empty path keeps everything in memory.
	var kv storage.KV
	if cfg.Storage.Path == "" {
		logger.Warn("no storage path configured, workspace will not survive restarts")
		kv = storage.NewMemory()
	} else {
		sq, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		kv = sq
	}

	store := storage.NewWorkspaceStore(kv, logger.Logger)
	repo, err := workspace.NewRepository(store)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("init workspace: %w", err)
	}
	repo.WithObserver(metrics)

	box := inbox.New()
	client := bridge.NewClient(box, store, bridge.Config{
		FetchTimeout: cfg.Bridge.FetchTimeout,
		MockFallback: cfg.Bridge.MockFallback,
	}, logger.Logger).WithObserver(metrics)

	wsHandler := ws.NewHandler(client, logger.Logger).WithObserver(metrics)
	client.AttachTransport(wsHandler)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := http.NewHandlers(repo, box, client, store, wsHandler, metrics, logger.Logger)

	router.GET("/health", handlers.Health)

	// Workspace
	router.GET("/workspace", handlers.GetWorkspace)
	router.GET("/workspace/stats", handlers.WorkspaceStats)
	router.GET("/workspace/export", handlers.ExportWorkspace)
	router.POST("/workspace/import", handlers.ImportWorkspace)

	// Sessions
	router.POST("/sessions", handlers.CreateSession)
	router.POST("/sessions/from-tab", handlers.CreateSessionFromTab)
	router.GET("/sessions/search", handlers.SearchSessions)
	router.PATCH("/sessions/:id", handlers.UpdateSession)
	router.DELETE("/sessions/:id", handlers.DeleteSession)
	router.POST("/sessions/:id/tabs", handlers.AddTab)
	router.DELETE("/sessions/:id/tabs/:tabId", handlers.RemoveTab)

	// Live inbox
	router.GET("/inbox", handlers.ListInbox)
	router.POST("/inbox/fetch", handlers.FetchInbox)
	router.DELETE("/inbox/:tabId", handlers.ConsumeInboxTab)

	// Extension bridge
	router.GET("/bridge", wsHandler.HandleConnection)
	router.GET("/bridge/status", handlers.BridgeStatus)
	router.POST("/bridge/identity", handlers.SetBridgeIdentity)

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("server initialized")

	return &Server{
		router: router,
		kv:     kv,
		logger: logger,
		config: cfg,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close releases the durable store and flushes the logger.
func (s *Server) Close() error {
	s.logger.Info("shutting down")
	if err := s.kv.Close(); err != nil {
		s.logger.Error("failed to close storage", zap.Error(err))
		return err
	}
	s.logger.Sync()
	return nil
}
