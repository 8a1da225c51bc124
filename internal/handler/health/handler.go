package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	started time.Time
	version string
}

func NewHandler(version string) *Handler {
	return &Handler{started: time.Now(), version: version}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).String(),
	})
}

func (h *Handler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
