package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var startTime = time.Now()

// HealthHandler serves /health and /ready.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler builds a HealthHandler over the central registry handle.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthResponse is the /health and /ready response body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// Health reports liveness without checking downstream dependencies.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "dashboard-gateway",
		Uptime:  time.Since(startTime).String(),
	})
}

// Ready reports readiness, pinging the central registry database.
func (h *HealthHandler) Ready(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:  "not ready",
			Service: "dashboard-gateway",
			Uptime:  time.Since(startTime).String(),
		})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ready",
		Service: "dashboard-gateway",
		Uptime:  time.Since(startTime).String(),
	})
}
