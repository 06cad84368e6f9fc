package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bridgeconnector/internal/api/handlers"
	"bridgeconnector/internal/api/middleware"
	"bridgeconnector/internal/bridge"
	"bridgeconnector/internal/config"
	"bridgeconnector/internal/logger"
	"bridgeconnector/internal/storekey"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, log *logger.Logger, b *bridge.Bridge, keys *storekey.Manager) *Server {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	bridgeHandler := handlers.NewBridgeHandler(b, log)
	adminHandler := handlers.NewAdminHandler(keys, log)

	// The connector posts every action to the same endpoint; routing happens
	// on the action parameter after the signature check.
	router.Any("/bridge",
		middleware.CollectParams(),
		middleware.Signature(keys, log),
		bridgeHandler.Handle)

	admin := router.Group("/admin")
	admin.Use(middleware.AdminCORS(cfg.AdminOrigins))
	admin.Use(adminToken(cfg.AdminToken))
	{
		admin.POST("/install", adminHandler.Install)
		admin.POST("/uninstall", adminHandler.Uninstall)
		admin.GET("/status", adminHandler.Status)
		admin.POST("/rotate-key", adminHandler.RotateKey)
	}

	return &Server{
		config: cfg,
		logger: log,
		router: router,
	}
}

// adminToken guards the admin group with a shared secret header.
func adminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
