// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/models"
)

const maxAuditBody = 64 << 10

var redactedFields = map[string]bool{
	"password":         true,
	"current_password": true,
	"new_password":     true,
	"code":             true,
	"refresh_token":    true,
}

// AuditLogMiddleware records every mutating request. Multipart bodies are
// not captured since they carry files.
func AuditLogMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for GET requests and health checks
		if c.Request.Method == "GET" || c.Request.Method == "OPTIONS" || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(requestBody), c.Request.Body))
		}

		c.Next()

		auditLog := &models.AuditLog{
			Action:       c.Request.Method + " " + c.FullPath(),
			ResourceType: extractResourceType(c.Request.URL.Path),
			ResourceID:   extractResourceID(c.Request.URL.Path),
			Status:       c.Writer.Status(),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			NewValues:    redact(requestBody),
		}
		if auditLog.Action == c.Request.Method+" " {
			auditLog.Action = c.Request.Method + " " + c.Request.URL.Path
		}
		if userID, ok := CurrentUserID(c); ok {
			auditLog.UserID = &userID
		}

		if err := db.Create(auditLog).Error; err != nil {
			logrus.WithError(err).Error("Failed to create audit log")
		}
	}
}

func redact(body []byte) models.JSONB {
	if len(body) == 0 {
		return nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	for key := range data {
		if redactedFields[strings.ToLower(key)] {
			data[key] = "[REDACTED]"
		}
	}
	return models.JSONB(data)
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

// extractResourceID returns the first numeric path segment.
func extractResourceID(path string) *uint {
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if id, err := strconv.ParseUint(part, 10, 64); err == nil {
			v := uint(id)
			return &v
		}
	}
	return nil
}

// RequestLogger writes one structured entry per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		userID, _ := CurrentUserID(c)
		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"user_id":    userID,
		})

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("Request processed")
		case status >= 400:
			entry.Warn("Request processed")
		default:
			entry.Info("Request processed")
		}
	}
}
