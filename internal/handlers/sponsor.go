// internal/handlers/sponsor.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type SponsorHandler struct {
	sponsorService *services.SponsorService
}

func NewSponsorHandler(sponsorService *services.SponsorService) *SponsorHandler {
	return &SponsorHandler{sponsorService: sponsorService}
}

// POST /sponsors/apply
func (h *SponsorHandler) Apply(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SponsorApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	application, err := h.sponsorService.Apply(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeySponsorReceived),
		"application": application,
	})
}

// GET /sponsors
func (h *SponsorHandler) ListApplications(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	applications, total, err := h.sponsorService.List(services.SponsorListParams{
		PaginationParams: params,
		Status:           models.SponsorStatus(strings.ToUpper(c.Query("status"))),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(applications, total, params))
}

// PUT /sponsors/:id/status
func (h *SponsorHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateSponsorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	req.Status = models.SponsorStatus(strings.ToUpper(string(req.Status)))

	application, err := h.sponsorService.UpdateStatus(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeySponsorUpdated),
		"application": application,
	})
}
