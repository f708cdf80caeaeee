// Package server wires the REST surface over gin.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/config"
	"github.com/stkw0/lms/internal/events"
	"github.com/stkw0/lms/internal/logger"
	"github.com/stkw0/lms/internal/scanner"
	"github.com/stkw0/lms/internal/server/handlers"
)

// Server is the HTTP front end of the scanner backend.
type Server struct {
	cfg        *config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
}

// New builds the router and registers all routes.
func New(cfg *config.Config, store *catalog.Store, service *scanner.Service, bus *events.EventBus) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.EnableCORS {
		router.Use(corsMiddleware())
	}

	s := &Server{cfg: &cfg.Server, router: router}
	s.registerRoutes(store, service, bus)
	return s
}

func (s *Server) registerRoutes(store *catalog.Store, service *scanner.Service, bus *events.EventBus) {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")

	scannerHandler := handlers.NewScannerHandler(service)
	sc := api.Group("/scanner")
	sc.POST("/scan", scannerHandler.StartScan)
	sc.POST("/abort", scannerHandler.AbortScan)
	sc.POST("/reload", scannerHandler.Reload)
	sc.GET("/status", scannerHandler.Status)

	libraryHandler := handlers.NewLibraryHandler(store, service, bus)
	lib := api.Group("/libraries")
	lib.GET("", libraryHandler.List)
	lib.POST("", libraryHandler.Create)
	lib.DELETE("/:id", libraryHandler.Delete)

	settingsHandler := handlers.NewSettingsHandler(store, service, bus)
	api.GET("/settings/scan", settingsHandler.Get)
	api.PUT("/settings/scan", settingsHandler.Update)

	eventsHandler := handlers.NewEventsHandler(bus)
	api.GET("/events", eventsHandler.Recent)
	api.GET("/events/stats", eventsHandler.Stats)
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	logger.Info("http server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
