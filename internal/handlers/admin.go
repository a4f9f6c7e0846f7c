// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	now          func() time.Time
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		now:          time.Now,
	}
}

// GET /admin/dashboard
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AuditLogFilter{
		PaginationParams: params,
		ResourceType:     c.Query("resource_type"),
		Action:           c.Query("action"),
	}
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		if id, err := strconv.ParseUint(userIDStr, 10, 64); err == nil {
			userID := uint(id)
			filter.UserID = &userID
		}
	}

	logs, total, err := h.adminService.GetAuditLogs(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}
