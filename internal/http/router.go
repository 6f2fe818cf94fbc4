package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appconfig "github.com/saker-ai/akbar-server/internal/config"
	"github.com/saker-ai/akbar-server/internal/engine"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/session/fsm"
	"github.com/saker-ai/akbar-server/internal/storage"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

// Engine is the orchestrator surface exposed over HTTP.
type Engine interface {
	Submit(ctx context.Context, in engine.Input) engine.Outcome
	SelectComicStyle(ctx context.Context, style string) (engine.Outcome, error)
	Retry(ctx context.Context) (engine.Outcome, error)
	ClearHistory(ctx context.Context) error
	SaveHistory(ctx context.Context) error
	SetPersona(ctx context.Context, raw string) error
	Messages() []transcript.Message
	Persona() persona.ID
	SessionState() fsm.State
	Drafts(ctx context.Context) ([]storage.Draft, error)
}

// NewRouter wires the health check, the websocket endpoint, the REST API
// and the saved media directory.
func NewRouter(cfg appconfig.Config, wsHandler http.Handler, eng Engine, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if wsHandler != nil {
		router.GET("/client-ws", gin.WrapH(wsHandler))
	}

	apiLogger := logger
	if apiLogger == nil {
		apiLogger = zap.NewNop()
	}
	api := &apiHandler{engine: eng, logger: apiLogger}
	group := router.Group("/api")
	group.GET("/messages", api.listMessages)
	group.POST("/messages", api.submit)
	group.DELETE("/messages", api.clearHistory)
	group.POST("/history/save", api.saveHistory)
	group.POST("/comic/style", api.selectComicStyle)
	group.POST("/retry", api.retry)
	group.PUT("/persona", api.setPersona)
	group.GET("/drafts", api.listDrafts)

	if cfg.Video.DownloadDir != "" {
		router.Static(cfg.Video.PublicPath, cfg.Video.DownloadDir)
		if logger != nil {
			logger.Info("serving saved media", zap.String("route", cfg.Video.PublicPath), zap.String("source", cfg.Video.DownloadDir))
		}
	}
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		if logger == nil {
			return
		}
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", latency),
		)
	}
}
