// Package httpserver assembles the gin engine: middlewares, routes and
// handlers.
package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DphenomenalALU/tresor-backend/internal/config"
	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/authhandler"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/chathandler"
	"github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/handlers/ragiehandler"
	middleware "github.com/DphenomenalALU/tresor-backend/internal/interfaces/httpserver/middlewares"
)

type HTTPServer struct {
	engine       *gin.Engine
	config       *config.Config
	authHandler  *authhandler.AuthHandler
	chatHandler  *chathandler.ChatHandler
	ragieHandler *ragiehandler.RagieHandler
}

func NewHTTPServer(
	cfg *config.Config,
	authHandler *authhandler.AuthHandler,
	chatHandler *chathandler.ChatHandler,
	ragieHandler *ragiehandler.RagieHandler,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := &HTTPServer{
		engine:       gin.New(),
		config:       cfg,
		authHandler:  authHandler,
		chatHandler:  chatHandler,
		ragieHandler: ragieHandler,
	}

	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.LoggingMiddleware(logger.GetLogger()))
	server.engine.Use(middleware.CORSMiddleware(cfg.AppURL))
	server.engine.Use(middleware.MetricsMiddleware())

	server.registerRoutes()
	return server
}

func (s *HTTPServer) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	auth := s.engine.Group("/auth")
	auth.POST("/google", s.authHandler.Google)
	auth.POST("/register", s.authHandler.Register)
	auth.POST("/login", s.authHandler.Login)

	api := s.engine.Group("/api")
	api.POST("/chat", s.chatHandler.Completions)
	api.POST("/ragie/init", s.ragieHandler.Init)

	s.engine.GET("/ragie-callback", s.ragieHandler.Callback)
}

// Handler exposes the engine for an http.Server owned by the caller.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Addr is the listen address derived from configuration.
func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.config.Port)
}
