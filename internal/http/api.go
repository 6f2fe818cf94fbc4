package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saker-ai/akbar-server/internal/engine"
	"github.com/saker-ai/akbar-server/internal/protocol"
)

type apiHandler struct {
	engine Engine
	logger *zap.Logger
}

type submitRequest struct {
	Text                 string                `json:"text"`
	File                 *protocol.FilePayload `json:"file"`
	SkipListenSuggestion bool                  `json:"skip_listen_suggestion"`
}

type styleRequest struct {
	Style string `json:"style" binding:"required"`
}

type personaRequest struct {
	Persona string `json:"persona" binding:"required"`
}

func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (a *apiHandler) listMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"messages": a.engine.Messages(),
		"persona":  a.engine.Persona(),
		"session":  a.engine.SessionState(),
	})
}

func (a *apiHandler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	file, err := req.File.Attachment()
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	out := a.engine.Submit(c.Request.Context(), engine.Input{
		Text:                 req.Text,
		File:                 file,
		SkipListenSuggestion: req.SkipListenSuggestion,
	})
	c.JSON(http.StatusOK, out)
}

func (a *apiHandler) clearHistory(c *gin.Context) {
	if err := a.engine.ClearHistory(c.Request.Context()); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *apiHandler) saveHistory(c *gin.Context) {
	if err := a.engine.SaveHistory(c.Request.Context()); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *apiHandler) selectComicStyle(c *gin.Context) {
	var req styleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	out, err := a.engine.SelectComicStyle(c.Request.Context(), req.Style)
	if errors.Is(err, engine.ErrNoPendingComic) {
		abort(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *apiHandler) retry(c *gin.Context) {
	out, err := a.engine.Retry(c.Request.Context())
	if errors.Is(err, engine.ErrNothingToRetry) {
		abort(c, http.StatusConflict, err)
		return
	}
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (a *apiHandler) setPersona(c *gin.Context) {
	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if err := a.engine.SetPersona(c.Request.Context(), req.Persona); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"persona": a.engine.Persona()})
}

func (a *apiHandler) listDrafts(c *gin.Context) {
	drafts, err := a.engine.Drafts(c.Request.Context())
	if err != nil {
		a.logger.Warn("failed to list drafts", zap.Error(err))
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}
