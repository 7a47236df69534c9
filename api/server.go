// Package api assembles the HTTP surface: REST endpoints, middleware and the
// websocket streaming channel.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mentoria-ai/mentoria/api/handlers"
	"github.com/mentoria-ai/mentoria/api/middleware"
	"github.com/mentoria-ai/mentoria/api/websocket"
	"github.com/mentoria-ai/mentoria/internal/config"
)

// Server is the HTTP server hosting the REST API and the websocket channel.
type Server struct {
	router *gin.Engine
	server *http.Server
}

// New builds the router. apiKey empty disables auth.
func New(cfg config.ServerConfig, deps handlers.Deps, ws websocket.Config, apiKey string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logging())
	router.Use(middleware.CORS())

	router.GET("/health", handlers.Health)
	router.GET("/ws", websocket.Handler(ws))

	limiter := middleware.NewRateLimiter(20, 40)

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.APIKey(apiKey))
	apiGroup.Use(limiter.Middleware())
	{
		apiGroup.POST("/projects", deps.CreateProject)
		apiGroup.GET("/projects/:id", deps.GetProject)
		apiGroup.DELETE("/projects/:id", deps.DeleteProject)
		apiGroup.GET("/projects/:id/status", deps.ProjectStatus)

		apiGroup.POST("/projects/:id/documents", deps.UploadDocument)
		apiGroup.GET("/projects/:id/documents", deps.ListDocuments)
		apiGroup.POST("/projects/:id/ingest", deps.IngestProject)
		apiGroup.POST("/documents/:docID/reingest", deps.ReingestDocument)
		apiGroup.DELETE("/documents/:docID", deps.DeleteDocument)

		apiGroup.POST("/projects/:id/query", deps.Query)

		apiGroup.POST("/projects/:id/files", deps.GenerateFile)
		apiGroup.GET("/files/:fileID", deps.GetFile)
		apiGroup.POST("/files/:fileID/versions", deps.EditFile)
		apiGroup.GET("/files/:fileID/versions", deps.ListFileVersions)
		apiGroup.GET("/files/:fileID/download", deps.DownloadFile)
		apiGroup.POST("/files/:fileID/versions/:version/cancel", deps.CancelFileVersion)
		apiGroup.DELETE("/files/:fileID", deps.DeleteFile)
	}

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0, // streaming endpoints manage their own deadlines
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start blocks serving until Shutdown or a listener error.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
