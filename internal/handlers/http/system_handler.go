package http

import (
	"net/http"
	"time"

	"manualcall/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
)

// SystemHandler serves health probes and the live event stream.
type SystemHandler struct {
	health    *monitoring.HealthChecker
	events    http.Handler
	startedAt time.Time
}

// NewSystemHandler creates a handler; events may be nil to disable /ws/events
func NewSystemHandler(health *monitoring.HealthChecker, events http.Handler) *SystemHandler {
	return &SystemHandler{
		health:    health,
		events:    events,
		startedAt: time.Now(),
	}
}

func (h *SystemHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	if h.events != nil {
		router.GET("/ws/events", gin.WrapH(h.events))
	}
}

func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": monitoring.StatusHealthy,
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready runs every health check and answers 503 if any fails
func (h *SystemHandler) Ready(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != monitoring.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
