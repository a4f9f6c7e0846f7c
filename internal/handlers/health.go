// internal/handlers/health.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	database := "up"

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status = http.StatusServiceUnavailable
		database = "down"
	}

	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"database":  database,
		"timestamp": time.Now().UTC(),
	})
}
